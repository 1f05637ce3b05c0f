package summarize

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oguzatay/smartmeet/pkg/llm"
	"github.com/oguzatay/smartmeet/pkg/logging"
	"github.com/oguzatay/smartmeet/pkg/meeting"
)

// fakeCompleter returns a canned completion and records the last request.
type fakeCompleter struct {
	response string
	err      error
	lastReq  llm.CompletionRequest
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.CompletionRequest) (string, error) {
	f.lastReq = req
	return f.response, f.err
}

func newTestSummarizer(fake *fakeCompleter) *Summarizer {
	s := NewSummarizer(fake, logging.NewNopLogger())
	s.now = func() time.Time {
		return time.Date(2026, time.March, 9, 14, 0, 0, 0, time.UTC) // a Monday
	}
	return s
}

func TestSummarizeParsesSections(t *testing.T) {
	fake := &fakeCompleter{response: `{
		"discussions": ["Q2 roadmap", "hiring freeze"],
		"decisions": ["ship v2 in May"],
		"action_plan": ["draft the migration doc"],
		"deadlines": ["2026-05-01 release cut"]
	}`}
	s := newTestSummarizer(fake)

	summary := s.Summarize(context.Background(), "a long enough transcript")

	assert.Equal(t, []string{"Q2 roadmap", "hiring freeze"}, summary.Discussions)
	assert.Equal(t, []string{"ship v2 in May"}, summary.Decisions)
	assert.Equal(t, []string{"draft the migration doc"}, summary.ActionPlan)
	assert.Equal(t, []string{"2026-05-01 release cut"}, summary.Deadlines)
	assert.True(t, fake.lastReq.JSONMode)
}

func TestSummarizeToleratesFencedJSON(t *testing.T) {
	fake := &fakeCompleter{response: "```json\n{\"discussions\": [\"budget\"]}\n```"}
	s := newTestSummarizer(fake)

	summary := s.Summarize(context.Background(), "transcript")
	assert.Equal(t, []string{"budget"}, summary.Discussions)
}

func TestSummarizeDegradesToEmpty(t *testing.T) {
	for name, fake := range map[string]*fakeCompleter{
		"provider error": {err: errors.New("rate limited")},
		"not json":       {response: "I could not summarize this meeting."},
	} {
		t.Run(name, func(t *testing.T) {
			s := newTestSummarizer(fake)
			summary := s.Summarize(context.Background(), "transcript")
			assert.True(t, summary.Empty())
		})
	}
}

func TestSummarizeCapsTranscript(t *testing.T) {
	fake := &fakeCompleter{response: `{}`}
	s := newTestSummarizer(fake)

	long := make([]byte, maxTranscriptChars*2)
	for i := range long {
		long[i] = 'a'
	}
	s.Summarize(context.Background(), string(long))

	assert.Less(t, len(fake.lastReq.Prompt), maxTranscriptChars+1000)
}

func TestSentimentParsed(t *testing.T) {
	fake := &fakeCompleter{response: `{"mood": "tense", "score": 3}`}
	s := newTestSummarizer(fake)

	got := s.Sentiment(context.Background(), "transcript")
	assert.Equal(t, meeting.Sentiment{Mood: "tense", Score: 3}, got)
}

func TestSentimentFallsBackToNeutral(t *testing.T) {
	tests := map[string]*fakeCompleter{
		"provider error": {err: errors.New("boom")},
		"not json":       {response: "the mood was fine"},
		"score too high": {response: `{"mood": "great", "score": 99}`},
	}
	for name, fake := range tests {
		t.Run(name, func(t *testing.T) {
			s := newTestSummarizer(fake)
			got := s.Sentiment(context.Background(), "transcript")
			assert.Equal(t, 5, got.Score)
			assert.NotEmpty(t, got.Mood)
		})
	}
}

func TestExtractTasksRelativeDueDate(t *testing.T) {
	fake := &fakeCompleter{response: `{"tasks": [
		{"description": "Raporu hazirla", "assignee": "Ahmet", "due_date": "2026-03-10 17:00", "confidence": 0.9}
	]}`}
	s := newTestSummarizer(fake)

	drafts := s.ExtractTasks(context.Background(), "Ahmet yapsın bunu yarın akşama kadar")

	require.Len(t, drafts, 1)
	assert.Equal(t, "Raporu hazirla", drafts[0].Description)
	assert.Equal(t, "Ahmet", drafts[0].Assignee)
	require.NotNil(t, drafts[0].DueDate)
	assert.Equal(t, "2026-03-10 17:00", *drafts[0].DueDate)
	assert.InDelta(t, 0.9, drafts[0].Confidence, 1e-9)

	// The model needs today's date to resolve "yarın" (tomorrow).
	assert.Contains(t, fake.lastReq.Prompt, "2026-03-09")
	assert.Contains(t, fake.lastReq.Prompt, "Monday")
}

func TestExtractTasksAlternateShapes(t *testing.T) {
	tests := map[string]string{
		"action_items key": `{"action_items": [{"description": "send notes", "assignee": "dana"}]}`,
		"bare list":        `[{"description": "send notes", "assignee": "dana"}]`,
		"fenced bare list": "```json\n[{\"description\": \"send notes\", \"assignee\": \"dana\"}]\n```",
		"task key":         `{"tasks": [{"task": "send notes", "assignee": "dana"}]}`,
	}
	for name, response := range tests {
		t.Run(name, func(t *testing.T) {
			s := newTestSummarizer(&fakeCompleter{response: response})
			drafts := s.ExtractTasks(context.Background(), "transcript")
			require.Len(t, drafts, 1)
			assert.Equal(t, "send notes", drafts[0].Description)
			assert.Equal(t, "dana", drafts[0].Assignee)
		})
	}
}

func TestExtractTasksDefaults(t *testing.T) {
	fake := &fakeCompleter{response: `{"tasks": [
		{"description": "follow up with legal", "due_date": null},
		{"description": "", "assignee": "nobody"},
		{"description": "check budget", "assignee": "  ", "confidence": "not a number"}
	]}`}
	s := newTestSummarizer(fake)

	drafts := s.ExtractTasks(context.Background(), "transcript")

	require.Len(t, drafts, 2)
	assert.Equal(t, meeting.AssigneeUnspecified, drafts[0].Assignee)
	assert.Nil(t, drafts[0].DueDate)
	assert.Equal(t, meeting.AssigneeUnspecified, drafts[1].Assignee)
	assert.Zero(t, drafts[1].Confidence)
}

func TestExtractTasksFailure(t *testing.T) {
	s := newTestSummarizer(&fakeCompleter{err: errors.New("timeout")})
	assert.Empty(t, s.ExtractTasks(context.Background(), "transcript"))

	s = newTestSummarizer(&fakeCompleter{response: "no tasks here"})
	assert.Empty(t, s.ExtractTasks(context.Background(), "transcript"))
}

func TestCorrectorFixesText(t *testing.T) {
	fake := &fakeCompleter{response: "Let's review the quarterly numbers."}
	c := NewCorrector(fake, logging.NewNopLogger())

	got := c.Correct(context.Background(), "lets revue the quartely numbers")

	assert.True(t, got.Corrected)
	assert.Equal(t, "Let's review the quarterly numbers.", got.Text)
}

func TestCorrectorSkipsShortText(t *testing.T) {
	fake := &fakeCompleter{response: "should never be used"}
	c := NewCorrector(fake, logging.NewNopLogger())

	got := c.Correct(context.Background(), "ok")

	assert.False(t, got.Corrected)
	assert.Equal(t, "ok", got.Text)
	assert.Empty(t, fake.lastReq.Prompt)
}

func TestCorrectorFallsBackOnFailure(t *testing.T) {
	c := NewCorrector(&fakeCompleter{err: errors.New("down")}, logging.NewNopLogger())
	got := c.Correct(context.Background(), "the original segment text")
	assert.False(t, got.Corrected)
	assert.Equal(t, "the original segment text", got.Text)
}

func TestCorrectorUnchangedText(t *testing.T) {
	c := NewCorrector(&fakeCompleter{response: "already clean text"}, logging.NewNopLogger())
	got := c.Correct(context.Background(), "already clean text")
	assert.False(t, got.Corrected)
	assert.Equal(t, "already clean text", got.Text)
}
