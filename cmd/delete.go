package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	smarterrors "github.com/oguzatay/smartmeet/pkg/errors"
	"github.com/oguzatay/smartmeet/pkg/logging"
	"github.com/oguzatay/smartmeet/pkg/meeting"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <meeting-id>",
	Short: "Delete a meeting and everything derived from it",
	Long: `Deletes the meeting row, its transcript segments and action items
(database cascade), and purges its entries from the semantic memory.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		meetingID, err := parseID(args[0])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		logger := logging.MustGlobal()

		pool, err := connectDatabase(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		repo := meeting.NewRepository(pool, logger)
		m, err := repo.Get(ctx, meetingID)
		if smarterrors.IsNotFound(err) {
			return fmt.Errorf("meeting %d does not exist", meetingID)
		}
		if err != nil {
			return err
		}

		rdb := connectRedis(cfg)
		defer rdb.Close()

		// Purge memory first: if the row delete fails the meeting can be
		// re-indexed, the reverse leaves orphaned memory.
		index := newMemoryIndex(cfg, rdb, logger)
		if err := index.Purge(ctx, m.OwnerID, m.ID); err != nil {
			return fmt.Errorf("purging memory for meeting %d: %w", m.ID, err)
		}

		if err := repo.Delete(ctx, m.ID); err != nil {
			return err
		}

		fmt.Printf("Meeting %d deleted\n", m.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
