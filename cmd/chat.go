package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oguzatay/smartmeet/pkg/logging"
)

var (
	chatOwnerID   int64
	chatMeetingID int64
)

var chatCmd = &cobra.Command{
	Use:   "chat <question>",
	Short: "Ask a question over the meeting memory",
	Long: `Answers a natural-language question grounded on the user's meeting
history and task list. With --meeting the question is answered from
that single meeting's transcript instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.Join(args, " ")

		ctx := cmd.Context()
		pool, err := connectDatabase(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		rdb := connectRedis(cfg)
		defer rdb.Close()

		c := newChat(cfg, pool, rdb, logging.MustGlobal())

		var answer string
		if chatMeetingID > 0 {
			answer, err = c.AskMeeting(ctx, chatMeetingID, question)
		} else {
			answer, err = c.Ask(ctx, chatOwnerID, question)
		}
		if err != nil {
			return err
		}

		fmt.Println(answer)
		return nil
	},
}

func init() {
	chatCmd.Flags().Int64Var(&chatOwnerID, "user", 1, "user whose meeting memory to query")
	chatCmd.Flags().Int64Var(&chatMeetingID, "meeting", 0, "answer from this meeting's transcript only")
	rootCmd.AddCommand(chatCmd)
}
