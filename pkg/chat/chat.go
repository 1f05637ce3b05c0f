// Package chat answers natural-language questions about a user's
// meeting history, grounding the model on retrieved transcript memory
// and the user's open tasks.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oguzatay/smartmeet/pkg/llm"
	"github.com/oguzatay/smartmeet/pkg/logging"
	"github.com/oguzatay/smartmeet/pkg/meeting"
	"github.com/oguzatay/smartmeet/pkg/memory"
)

const (
	// memoryHits is how many transcript segments are retrieved per question.
	memoryHits = 15

	// recentTasks is how many of the user's latest tasks are always
	// injected alongside the retrieved memory.
	recentTasks = 10
)

// NoInformationAnswer is returned without a model call when neither
// memory nor tasks contain anything for the user.
const NoInformationAnswer = "I don't have any meeting history for you yet, so there is nothing I can answer from."

// NoTranscriptAnswer is returned for per-meeting questions before the
// meeting has been processed.
const NoTranscriptAnswer = "This meeting has no transcript yet. Ask again once processing has finished."

// Searcher is the slice of the memory index the chat needs.
type Searcher interface {
	Search(ctx context.Context, ownerID int64, query string, k int) ([]memory.Hit, error)
}

// TaskSource supplies the user's recent tasks and meeting transcripts.
type TaskSource interface {
	RecentTasksByOwner(ctx context.Context, ownerID int64, limit int) ([]meeting.TaskWithMeeting, error)
	SegmentsByMeeting(ctx context.Context, meetingID int64) ([]meeting.Segment, error)
	Get(ctx context.Context, id int64) (*meeting.Meeting, error)
}

// Chat is the retrieval-augmented question answerer.
type Chat struct {
	completer llm.Completer
	index     Searcher
	source    TaskSource
	logger    logging.Logger

	now func() time.Time
}

// New creates a Chat.
func New(completer llm.Completer, index Searcher, source TaskSource, logger logging.Logger) *Chat {
	return &Chat{
		completer: completer,
		index:     index,
		source:    source,
		logger:    logger.With(logging.F("component", "chat")),
		now:       time.Now,
	}
}

// Ask answers a question against the user's entire meeting history.
// Retrieved memory provides context; the task list is injected as the
// authoritative record for anything task-related.
func (c *Chat) Ask(ctx context.Context, ownerID int64, question string) (string, error) {
	hits, err := c.index.Search(ctx, ownerID, question, memoryHits)
	if err != nil {
		c.logger.Warn("Memory search failed, answering from tasks only", logging.Err(err))
		hits = nil
	}

	tasks, err := c.source.RecentTasksByOwner(ctx, ownerID, recentTasks)
	if err != nil {
		return "", fmt.Errorf("loading recent tasks: %w", err)
	}

	if len(hits) == 0 && len(tasks) == 0 {
		return NoInformationAnswer, nil
	}

	today := c.now()
	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Today is %s (%s).\n\n", today.Format("2006-01-02"), today.Weekday())

	if len(hits) > 0 {
		prompt.WriteString("Relevant excerpts from the user's past meetings:\n")
		for _, hit := range hits {
			fmt.Fprintf(&prompt, "- [%s] %s: %s\n", hit.MeetingTitle, hit.Speaker, hit.Text)
		}
		prompt.WriteString("\n")
	}

	if len(tasks) > 0 {
		prompt.WriteString("The user's current task list. This list is authoritative: for any question about tasks, deadlines, or assignments, answer from it rather than from the excerpts.\n")
		for _, task := range tasks {
			fmt.Fprintf(&prompt, "- [%s] %s (assignee: %s, due: %s)\n",
				task.MeetingTitle, task.Description, task.Assignee, formatDue(task.DueDate))
		}
		prompt.WriteString("\n")
	}

	fmt.Fprintf(&prompt, "Question: %s", question)

	return c.complete(ctx, prompt.String())
}

// AskMeeting answers a question about one specific meeting from its
// transcript alone.
func (c *Chat) AskMeeting(ctx context.Context, meetingID int64, question string) (string, error) {
	m, err := c.source.Get(ctx, meetingID)
	if err != nil {
		return "", fmt.Errorf("loading meeting %d: %w", meetingID, err)
	}

	segments, err := c.source.SegmentsByMeeting(ctx, meetingID)
	if err != nil {
		return "", fmt.Errorf("loading transcript for meeting %d: %w", meetingID, err)
	}
	if len(segments) == 0 {
		return NoTranscriptAnswer, nil
	}

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Transcript of the meeting %q:\n", m.Title)
	for _, seg := range segments {
		fmt.Fprintf(&prompt, "%s: %s\n", seg.Speaker, seg.Text)
	}
	fmt.Fprintf(&prompt, "\nAnswer from this transcript only. If the transcript does not contain the answer, say so.\n\nQuestion: %s", question)

	return c.complete(ctx, prompt.String())
}

func (c *Chat) complete(ctx context.Context, prompt string) (string, error) {
	answer, err := c.completer.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: "You are a meeting assistant. Answer concisely from the provided context, in the language of the question.",
		Prompt:       prompt,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

func formatDue(due *string) string {
	if due == nil || strings.TrimSpace(*due) == "" {
		return "no date"
	}
	return *due
}
