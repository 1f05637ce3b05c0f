package meeting

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"uploading to processing", StatusUploading, StatusProcessing, true},
		{"uploading to completed skips processing", StatusUploading, StatusCompleted, false},
		{"uploading to failed", StatusUploading, StatusFailed, false},
		{"processing to completed", StatusProcessing, StatusCompleted, true},
		{"processing to failed", StatusProcessing, StatusFailed, true},
		{"processing to uploading", StatusProcessing, StatusUploading, false},
		{"completed is final", StatusCompleted, StatusProcessing, false},
		{"failed retries into processing", StatusFailed, StatusProcessing, true},
		{"failed to completed directly", StatusFailed, StatusCompleted, false},
		{"unknown status goes nowhere", Status("bogus"), StatusProcessing, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, StatusUploading.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

func TestExecutiveSummary_Empty(t *testing.T) {
	assert.True(t, ExecutiveSummary{}.Empty())

	assert.False(t, ExecutiveSummary{Discussions: []string{"budget review"}}.Empty())
	assert.False(t, ExecutiveSummary{Decisions: []string{"ship friday"}}.Empty())
	assert.False(t, ExecutiveSummary{ActionPlan: []string{"update roadmap"}}.Empty())
	assert.False(t, ExecutiveSummary{Deadlines: []string{"2026-09-01"}}.Empty())
}
