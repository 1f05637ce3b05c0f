package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oguzatay/smartmeet/pkg/logging"
	"github.com/oguzatay/smartmeet/pkg/meeting"
)

var (
	tasksOwnerID int64
	tasksLimit   int
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List a user's extracted action items",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pool, err := connectDatabase(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		repo := meeting.NewRepository(pool, logging.MustGlobal())
		tasks, err := repo.RecentTasksByOwner(ctx, tasksOwnerID, tasksLimit)
		if err != nil {
			return err
		}

		if len(tasks) == 0 {
			fmt.Println("No tasks found")
			return nil
		}

		for _, task := range tasks {
			due := "no date"
			if task.DueDate != nil {
				due = *task.DueDate
			}
			marker := " "
			if task.Status == meeting.ActionItemCompleted {
				marker = "x"
			}
			fmt.Printf("[%s] #%d %s (%s, due: %s) from %q\n",
				marker, task.ID, task.Description, task.Assignee, due, task.MeetingTitle)
		}
		return nil
	},
}

var tasksDoneCmd = &cobra.Command{
	Use:   "done <task-id>",
	Short: "Mark an action item as completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID, err := parseID(args[0])
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
		if err := repo.SetActionItemStatus(ctx, taskID, meeting.ActionItemCompleted); err != nil {
			return err
		}

		fmt.Printf("Task %d completed\n", taskID)
		return nil
	},
}

func init() {
	tasksCmd.Flags().Int64Var(&tasksOwnerID, "user", 1, "user whose tasks to list")
	tasksCmd.Flags().IntVar(&tasksLimit, "limit", 20, "maximum tasks to show")
	tasksCmd.AddCommand(tasksDoneCmd)
	rootCmd.AddCommand(tasksCmd)
}
