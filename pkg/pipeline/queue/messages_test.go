package queue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessMeetingMessageRoundTrip(t *testing.T) {
	msg := &ProcessMeetingMessage{
		MeetingID:   42,
		OwnerID:     3,
		Priority:    PriorityHigh,
		RequestedAt: time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC),
	}

	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	qm := &QueuedMessage{
		ID:         "msg-1",
		Message:    raw,
		Priority:   msg.Priority,
		EnqueuedAt: time.Now(),
	}

	parsed, err := qm.ParseMessage()
	require.NoError(t, err)
	assert.Equal(t, msg.MeetingID, parsed.MeetingID)
	assert.Equal(t, msg.OwnerID, parsed.OwnerID)
	assert.Equal(t, PriorityHigh, parsed.Priority)
	assert.True(t, msg.RequestedAt.Equal(parsed.RequestedAt))
}

func TestProcessMeetingMessageValidate(t *testing.T) {
	tests := []struct {
		name    string
		msg     ProcessMeetingMessage
		wantErr bool
	}{
		{"valid", ProcessMeetingMessage{MeetingID: 1, OwnerID: 1}, false},
		{"missing meeting", ProcessMeetingMessage{OwnerID: 1}, true},
		{"missing owner", ProcessMeetingMessage{MeetingID: 1}, true},
		{"negative ids", ProcessMeetingMessage{MeetingID: -1, OwnerID: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidMessage)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseMessageRejectsGarbage(t *testing.T) {
	qm := &QueuedMessage{ID: "msg-1", Message: []byte("not json")}
	_, err := qm.ParseMessage()
	require.Error(t, err)

	qm = &QueuedMessage{ID: "msg-2", Message: []byte(`{"meeting_id": 0}`)}
	_, err = qm.ParseMessage()
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestCalculateBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, calculateBackoff(1))
	assert.Equal(t, 4*time.Second, calculateBackoff(2))
	assert.Equal(t, 8*time.Second, calculateBackoff(3))
	assert.Equal(t, 5*time.Minute, calculateBackoff(30), "capped at five minutes")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "meetings:process", cfg.Name)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Greater(t, cfg.VisibilityTimeout, 10*time.Minute,
		"visibility must outlast a slow transcription")
}
