package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	smarterrors "github.com/oguzatay/smartmeet/pkg/errors"
	"github.com/oguzatay/smartmeet/pkg/logging"
	"github.com/oguzatay/smartmeet/pkg/meeting"
	"github.com/oguzatay/smartmeet/pkg/pipeline/queue"
)

var enqueuePriority int

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <meeting-id>",
	Short: "Enqueue a meeting for background processing",
	Args:  cobra.ExactArgs(1),
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

		repo := meeting.NewRepository(pool, logging.MustGlobal())
		m, err := repo.Get(ctx, meetingID)
		if smarterrors.IsNotFound(err) {
			return fmt.Errorf("meeting %d does not exist", meetingID)
		}
		if err != nil {
			return err
		}

		rdb := connectRedis(cfg)
		defer rdb.Close()

		q := newQueue(rdb)
		defer q.Close()

		if err := q.Enqueue(&queue.ProcessMeetingMessage{
			MeetingID:   m.ID,
			OwnerID:     m.OwnerID,
			Priority:    queue.Priority(enqueuePriority),
			RequestedAt: time.Now(),
		}); err != nil {
			return err
		}

		fmt.Printf("Meeting %d enqueued\n", m.ID)
		return nil
	},
}

func init() {
	enqueueCmd.Flags().IntVar(&enqueuePriority, "priority", int(queue.PriorityNormal), "message priority (0=low, 1=normal, 2=high)")
	rootCmd.AddCommand(enqueueCmd)
}
