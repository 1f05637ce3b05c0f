// Package queue provides the Redis-backed work queue feeding the
// meeting processing pipeline.
package queue

import (
	"encoding/json"
	"errors"
	"time"
)

// Queue errors.
var (
	ErrMessageNotFound = errors.New("message not found")
	ErrInvalidMessage  = errors.New("invalid message")
)

// Priority levels for queue messages.
type Priority int

const (
	PriorityLow    Priority = 0 // re-processing, backfill
	PriorityNormal Priority = 1 // fresh uploads
	PriorityHigh   Priority = 2 // user is waiting on the result
)

// ProcessMeetingMessage asks a worker to run the full pipeline for one
// uploaded meeting.
type ProcessMeetingMessage struct {
	MeetingID   int64     `json:"meeting_id"`
	OwnerID     int64     `json:"owner_id"`
	Priority    Priority  `json:"priority"`
	RequestedAt time.Time `json:"requested_at"`
}

// Validate checks the message carries the fields a worker needs.
func (m *ProcessMeetingMessage) Validate() error {
	if m.MeetingID <= 0 || m.OwnerID <= 0 {
		return ErrInvalidMessage
	}
	return nil
}

// QueuedMessage wraps a message with queue bookkeeping.
type QueuedMessage struct {
	ID           string          `json:"id"`
	Message      json.RawMessage `json:"message"`
	Priority     Priority        `json:"priority"`
	RetryCount   int             `json:"retry_count"`
	EnqueuedAt   time.Time       `json:"enqueued_at"`
	VisibleAfter time.Time       `json:"visible_after,omitempty"`
}

// ParseMessage decodes the wrapped ProcessMeetingMessage.
func (qm *QueuedMessage) ParseMessage() (*ProcessMeetingMessage, error) {
	var msg ProcessMeetingMessage
	if err := json.Unmarshal(qm.Message, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Queue is the contract workers consume from.
type Queue interface {
	Name() string
	Enqueue(msg *ProcessMeetingMessage) error

	// Dequeue retrieves up to maxMessages, blocking up to timeout.
	Dequeue(maxMessages int, timeout time.Duration) ([]*QueuedMessage, error)

	Ack(messageID string) error

	// Nack re-enqueues with backoff, or dead-letters after max retries.
	Nack(messageID string) error

	MoveToDeadLetter(messageID string, reason string) error
	Depth() (int64, error)
	Close() error
}

// Config configures queue behavior.
type Config struct {
	Name              string        `yaml:"name"`
	VisibilityTimeout time.Duration `yaml:"visibility_timeout"`
	MaxRetries        int           `yaml:"max_retries"`
	RetentionPeriod   time.Duration `yaml:"retention_period"`
}

// DefaultConfig returns the processing queue defaults. The visibility
// timeout is generous: transcribing a long recording is slow and a
// message must not reappear while its worker is still on it.
func DefaultConfig() Config {
	return Config{
		Name:              "meetings:process",
		VisibilityTimeout: 20 * time.Minute,
		MaxRetries:        3,
		RetentionPeriod:   24 * time.Hour,
	}
}
