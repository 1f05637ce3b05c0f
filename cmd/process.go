package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oguzatay/smartmeet/pkg/logging"
)

var processCmd = &cobra.Command{
	Use:   "process <meeting-id>",
	Short: "Run the processing pipeline for one meeting synchronously",
	Long: `Runs the full pipeline (normalize, transcribe, identify speakers,
correct, analyze, index) for a single meeting in the foreground.
Useful for debugging and for reprocessing a failed meeting.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		meetingID, err := parseID(args[0])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		pool, err := connectDatabase(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		rdb := connectRedis(cfg)
		defer rdb.Close()

		pipe := newPipeline(cfg, pool, rdb, logging.MustGlobal())
		if err := pipe.Process(ctx, meetingID); err != nil {
			return err
		}

		fmt.Printf("Meeting %d processed\n", meetingID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(processCmd)
}
