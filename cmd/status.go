package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	smarterrors "github.com/oguzatay/smartmeet/pkg/errors"
	"github.com/oguzatay/smartmeet/pkg/logging"
	"github.com/oguzatay/smartmeet/pkg/meeting"
)

var statusShowTranscript bool

var statusCmd = &cobra.Command{
	Use:   "status <meeting-id>",
	Short: "Show a meeting's processing status and analysis results",
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

		fmt.Printf("Meeting %d: %s\n", m.ID, m.Title)
		fmt.Printf("  Status:  %s\n", m.Status)
		fmt.Printf("  Owner:   %d\n", m.OwnerID)
		fmt.Printf("  Audio:   %s\n", m.AudioPath)
		fmt.Printf("  Updated: %s\n", m.UpdatedAt.Format("2006-01-02 15:04:05"))

		if m.Mood != nil {
			fmt.Printf("  Mood:    %s (%d/10)\n", m.Mood.Mood, m.Mood.Score)
		}

		if m.Summary != nil && !m.Summary.Empty() {
			fmt.Println("\nSummary:")
			printSection("Discussions", m.Summary.Discussions)
			printSection("Decisions", m.Summary.Decisions)
			printSection("Action plan", m.Summary.ActionPlan)
			printSection("Deadlines", m.Summary.Deadlines)
		}

		items, err := repo.ActionItemsByMeeting(ctx, m.ID)
		if err != nil {
			return err
		}
		if len(items) > 0 {
			fmt.Println("\nAction items:")
			for _, item := range items {
				due := "no date"
				if item.DueDate != nil {
					due = *item.DueDate
				}
				marker := " "
				if item.Status == meeting.ActionItemCompleted {
					marker = "x"
				}
				fmt.Printf("  [%s] #%d %s (%s, due: %s)\n",
					marker, item.ID, item.Description, item.Assignee, due)
			}
		}

		if statusShowTranscript {
			segments, err := repo.SegmentsByMeeting(ctx, m.ID)
			if err != nil {
				return err
			}
			if len(segments) > 0 {
				fmt.Println("\nTranscript:")
				for _, seg := range segments {
					fmt.Printf("  [%7.1fs] %s: %s\n", seg.StartTime, seg.Speaker, seg.Text)
				}
			}
		}

		return nil
	},
}

func printSection(title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	fmt.Printf("  %s:\n", title)
	for _, line := range lines {
		fmt.Printf("    - %s\n", strings.TrimSpace(line))
	}
}

func init() {
	statusCmd.Flags().BoolVar(&statusShowTranscript, "transcript", false, "include the full transcript")
	rootCmd.AddCommand(statusCmd)
}
