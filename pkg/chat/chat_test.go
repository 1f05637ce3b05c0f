package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	smarterrors "github.com/oguzatay/smartmeet/pkg/errors"
	"github.com/oguzatay/smartmeet/pkg/llm"
	"github.com/oguzatay/smartmeet/pkg/logging"
	"github.com/oguzatay/smartmeet/pkg/meeting"
	"github.com/oguzatay/smartmeet/pkg/memory"
)

type fakeCompleter struct {
	response string
	err      error
	lastReq  *llm.CompletionRequest
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.CompletionRequest) (string, error) {
	f.lastReq = &req
	return f.response, f.err
}

type fakeSearcher struct {
	hits []memory.Hit
	err  error
}

func (f *fakeSearcher) Search(_ context.Context, _ int64, _ string, _ int) ([]memory.Hit, error) {
	return f.hits, f.err
}

type fakeSource struct {
	tasks    []meeting.TaskWithMeeting
	tasksErr error
	meeting  *meeting.Meeting
	segments []meeting.Segment
}

func (f *fakeSource) RecentTasksByOwner(_ context.Context, _ int64, _ int) ([]meeting.TaskWithMeeting, error) {
	return f.tasks, f.tasksErr
}

func (f *fakeSource) SegmentsByMeeting(_ context.Context, _ int64) ([]meeting.Segment, error) {
	return f.segments, nil
}

func (f *fakeSource) Get(_ context.Context, _ int64) (*meeting.Meeting, error) {
	if f.meeting == nil {
		return nil, smarterrors.ErrNotFound
	}
	return f.meeting, nil
}

func due(s string) *string { return &s }

func newTestChat(completer *fakeCompleter, searcher *fakeSearcher, source *fakeSource) *Chat {
	c := New(completer, searcher, source, logging.NewNopLogger())
	c.now = func() time.Time {
		return time.Date(2026, time.March, 9, 10, 0, 0, 0, time.UTC)
	}
	return c
}

func TestAskComposesContext(t *testing.T) {
	completer := &fakeCompleter{response: "The budget was approved on Monday."}
	searcher := &fakeSearcher{hits: []memory.Hit{
		{Record: memory.Record{MeetingTitle: "Finance sync", Speaker: "alice", Text: "budget is approved"}, Score: 0.91},
	}}
	source := &fakeSource{tasks: []meeting.TaskWithMeeting{
		{
			ActionItem: meeting.ActionItem{
				Description: "send the report",
				Assignee:    "Ahmet",
				DueDate:     due("2026-03-10 17:00"),
			},
			MeetingTitle: "Finance sync",
		},
		{
			ActionItem: meeting.ActionItem{
				Description: "book a room",
				Assignee:    meeting.AssigneeUnspecified,
			},
			MeetingTitle: "Standup",
		},
	}}

	c := newTestChat(completer, searcher, source)
	answer, err := c.Ask(context.Background(), 3, "was the budget approved?")

	require.NoError(t, err)
	assert.Equal(t, "The budget was approved on Monday.", answer)

	require.NotNil(t, completer.lastReq)
	prompt := completer.lastReq.Prompt
	assert.Contains(t, prompt, "2026-03-09")
	assert.Contains(t, prompt, "[Finance sync] alice: budget is approved")
	assert.Contains(t, prompt, "send the report (assignee: Ahmet, due: 2026-03-10 17:00)")
	assert.Contains(t, prompt, "book a room (assignee: unspecified, due: no date)")
	assert.Contains(t, prompt, "authoritative")
	assert.Contains(t, prompt, "Question: was the budget approved?")
}

func TestAskNoInformation(t *testing.T) {
	completer := &fakeCompleter{response: "should not be called"}
	c := newTestChat(completer, &fakeSearcher{}, &fakeSource{})

	answer, err := c.Ask(context.Background(), 3, "anything?")

	require.NoError(t, err)
	assert.Equal(t, NoInformationAnswer, answer)
	assert.Nil(t, completer.lastReq, "no model call without context")
}

func TestAskTasksOnlyWhenSearchFails(t *testing.T) {
	completer := &fakeCompleter{response: "You have one open task."}
	searcher := &fakeSearcher{err: errors.New("redis down")}
	source := &fakeSource{tasks: []meeting.TaskWithMeeting{
		{ActionItem: meeting.ActionItem{Description: "review PR", Assignee: "dana"}, MeetingTitle: "Standup"},
	}}

	c := newTestChat(completer, searcher, source)
	answer, err := c.Ask(context.Background(), 3, "what are my tasks?")

	require.NoError(t, err)
	assert.Equal(t, "You have one open task.", answer)
	assert.Contains(t, completer.lastReq.Prompt, "review PR")
}

func TestAskTaskLoadFailure(t *testing.T) {
	c := newTestChat(&fakeCompleter{}, &fakeSearcher{}, &fakeSource{tasksErr: errors.New("db down")})
	_, err := c.Ask(context.Background(), 3, "q")
	require.Error(t, err)
}

func TestAskMeetingUsesTranscriptOnly(t *testing.T) {
	completer := &fakeCompleter{response: "Bob raised the latency issue."}
	source := &fakeSource{
		meeting: &meeting.Meeting{ID: 7, Title: "Incident review"},
		segments: []meeting.Segment{
			{Speaker: "alice", Text: "what went wrong?"},
			{Speaker: "bob", Text: "latency spiked after the deploy"},
		},
	}

	c := newTestChat(completer, &fakeSearcher{}, source)
	answer, err := c.AskMeeting(context.Background(), 7, "who raised the latency issue?")

	require.NoError(t, err)
	assert.Equal(t, "Bob raised the latency issue.", answer)
	assert.Contains(t, completer.lastReq.Prompt, `"Incident review"`)
	assert.Contains(t, completer.lastReq.Prompt, "bob: latency spiked after the deploy")
	assert.Contains(t, completer.lastReq.Prompt, "this transcript only")
}

func TestAskMeetingNoTranscript(t *testing.T) {
	completer := &fakeCompleter{response: "should not be called"}
	source := &fakeSource{meeting: &meeting.Meeting{ID: 7, Title: "Fresh upload"}}

	c := newTestChat(completer, &fakeSearcher{}, source)
	answer, err := c.AskMeeting(context.Background(), 7, "anything?")

	require.NoError(t, err)
	assert.Equal(t, NoTranscriptAnswer, answer)
	assert.Nil(t, completer.lastReq)
}

func TestAskMeetingNotFound(t *testing.T) {
	c := newTestChat(&fakeCompleter{}, &fakeSearcher{}, &fakeSource{})
	_, err := c.AskMeeting(context.Background(), 404, "q")
	require.Error(t, err)
	assert.True(t, smarterrors.IsNotFound(err))
}
