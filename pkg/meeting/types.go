// Package meeting defines the relational data model for analyzed meetings
// and the repository that persists it.
package meeting

import "time"

// Status represents a meeting's position in the processing state machine.
//
// Transitions are monotonic: UPLOADING -> PROCESSING -> COMPLETED, with
// PROCESSING -> FAILED as the error path. COMPLETED and FAILED are terminal.
type Status string

const (
	StatusUploading  Status = "uploading"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status is a terminal state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo reports whether moving from s to next is a legal
// state-machine transition.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusUploading:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	case StatusFailed:
		// Retries re-enter the pipeline.
		return next == StatusProcessing
	default:
		return false
	}
}

// ExecutiveSummary is the structured digest produced by the analysis phase.
type ExecutiveSummary struct {
	Discussions []string `json:"discussions"`
	Decisions   []string `json:"decisions"`
	ActionPlan  []string `json:"action_plan"`
	Deadlines   []string `json:"deadlines"`
}

// Empty reports whether the summary carries no content.
func (s ExecutiveSummary) Empty() bool {
	return len(s.Discussions) == 0 && len(s.Decisions) == 0 &&
		len(s.ActionPlan) == 0 && len(s.Deadlines) == 0
}

// Sentiment is the overall mood assessment of a meeting.
type Sentiment struct {
	// Mood is a one-word label, e.g. "tense", "productive", "neutral".
	Mood string `json:"mood"`

	// Score runs 1 (very negative) to 10 (very positive).
	Score int `json:"score"`
}

// Meeting is one user-owned recording under analysis.
type Meeting struct {
	ID        int64
	OwnerID   int64
	TeamID    *int64
	Title     string
	AudioPath string
	Status    Status

	// Summary and Mood are set only once the meeting completes analysis.
	Summary *ExecutiveSummary
	Mood    *Sentiment

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Segment is one utterance window of a meeting transcript.
type Segment struct {
	ID        int64
	MeetingID int64

	// StartTime and EndTime are offsets into the recording, in seconds.
	StartTime float64
	EndTime   float64

	// Speaker is a display name, or SpeakerUnknown when identification
	// did not produce a confident match.
	Speaker string

	// Text is the corrected transcript text.
	Text string
}

// SpeakerUnknown is the sentinel label for unidentified speakers.
const SpeakerUnknown = "unknown"

// AssigneeUnspecified is the sentinel assignee for tasks without an owner.
const AssigneeUnspecified = "unspecified"

// ActionItemStatus is the completion state of an extracted task.
type ActionItemStatus string

const (
	ActionItemPending   ActionItemStatus = "pending"
	ActionItemCompleted ActionItemStatus = "completed"
)

// ActionItem is one task extracted from a meeting transcript.
type ActionItem struct {
	ID        int64
	MeetingID int64

	Description string
	Assignee    string

	// DueDate is a "YYYY-MM-DD HH:MM" string, or nil when the model found
	// no date. Kept as text because the LLM owns the format.
	DueDate *string

	Status ActionItemStatus

	// Confidence is the model's confidence in [0,1].
	Confidence float64
}

// TaskWithMeeting joins an action item with its source meeting title,
// as consumed by the retrieval chat and the status views.
type TaskWithMeeting struct {
	ActionItem
	MeetingTitle string
}
