package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oguzatay/smartmeet/pkg/logging"
	"github.com/oguzatay/smartmeet/pkg/meeting"
)

// fakeEmbedder maps known texts to fixed vectors.
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   [][]string
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, ok := f.vectors[text]
		if !ok {
			vec = []float32{0, 0, 1}
		}
		out[i] = vec
	}
	return out, nil
}

// fakeStore is an in-memory RecordStore keyed like the Redis one.
type fakeStore struct {
	records map[string]Record
	putErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]Record)}
}

func (f *fakeStore) Put(_ context.Context, records []Record) error {
	if f.putErr != nil {
		return f.putErr
	}
	for _, rec := range records {
		f.records[rec.Key] = rec
	}
	return nil
}

func (f *fakeStore) ListByOwner(_ context.Context, ownerID int64) ([]Record, error) {
	var out []Record
	for _, rec := range f.records {
		if rec.OwnerID == ownerID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteMeeting(_ context.Context, ownerID, meetingID int64) error {
	for key, rec := range f.records {
		if rec.OwnerID == ownerID && rec.MeetingID == meetingID {
			delete(f.records, key)
		}
	}
	return nil
}

func testMeeting() *meeting.Meeting {
	return &meeting.Meeting{ID: 7, OwnerID: 3, Title: "Sprint planning"}
}

func TestIndexMeetingSkipsEmptySegments(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{}}
	store := newFakeStore()
	idx := NewIndex(embedder, store, logging.NewNopLogger())

	segments := []meeting.Segment{
		{StartTime: 0, Speaker: "alice", Text: "we agreed on the budget"},
		{StartTime: 5.7, Speaker: "bob", Text: "   "},
		{StartTime: 9.2, Speaker: "bob", Text: "ship it friday"},
	}
	require.NoError(t, idx.IndexMeeting(context.Background(), testMeeting(), segments))

	assert.Len(t, store.records, 2)
	require.Len(t, embedder.calls, 1)
	assert.Equal(t, []string{"alice: we agreed on the budget", "bob: ship it friday"},
		embedder.calls[0], "the attributed line is the embedded document")

	rec, ok := store.records["7:9"]
	require.True(t, ok, "key is meeting id plus truncated start time")
	assert.Equal(t, "bob", rec.Speaker)
	assert.Equal(t, "Sprint planning", rec.MeetingTitle)
}

func TestIndexMeetingIdempotent(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{}}
	store := newFakeStore()
	idx := NewIndex(embedder, store, logging.NewNopLogger())

	segments := []meeting.Segment{{StartTime: 1.2, Speaker: "alice", Text: "hello"}}
	require.NoError(t, idx.IndexMeeting(context.Background(), testMeeting(), segments))
	require.NoError(t, idx.IndexMeeting(context.Background(), testMeeting(), segments))

	assert.Len(t, store.records, 1)
}

func TestIndexMeetingEmbedderFailure(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("quota exceeded")}
	store := newFakeStore()
	idx := NewIndex(embedder, store, logging.NewNopLogger())

	err := idx.IndexMeeting(context.Background(), testMeeting(),
		[]meeting.Segment{{Text: "something"}})

	require.Error(t, err)
	assert.Empty(t, store.records)
}

func TestSearchRanksBySimilarity(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"alice: budget approved":   {1, 0, 0},
		"bob: lunch order":         {0, 1, 0},
		"alice: budget discussion": {0.9, 0.1, 0},
		"what about the budget":    {1, 0, 0},
	}}
	store := newFakeStore()
	idx := NewIndex(embedder, store, logging.NewNopLogger())

	m := testMeeting()
	require.NoError(t, idx.IndexMeeting(context.Background(), m, []meeting.Segment{
		{StartTime: 0, Speaker: "alice", Text: "budget approved"},
		{StartTime: 10, Speaker: "bob", Text: "lunch order"},
		{StartTime: 20, Speaker: "alice", Text: "budget discussion"},
	}))

	hits, err := idx.Search(context.Background(), m.OwnerID, "what about the budget", 2)
	require.NoError(t, err)

	require.Len(t, hits, 2)
	assert.Equal(t, "budget approved", hits[0].Text)
	assert.Equal(t, "budget discussion", hits[1].Text)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestSearchScopedToOwner(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{"secret": {1, 0, 0}, "q": {1, 0, 0}}}
	store := newFakeStore()
	idx := NewIndex(embedder, store, logging.NewNopLogger())

	other := &meeting.Meeting{ID: 9, OwnerID: 99, Title: "Other team"}
	require.NoError(t, idx.IndexMeeting(context.Background(), other,
		[]meeting.Segment{{Text: "secret"}}))

	hits, err := idx.Search(context.Background(), 3, "q", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchEmptyQuery(t *testing.T) {
	idx := NewIndex(&fakeEmbedder{}, newFakeStore(), logging.NewNopLogger())
	hits, err := idx.Search(context.Background(), 1, "   ", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestPurgeRemovesMeetingRecords(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{}}
	store := newFakeStore()
	idx := NewIndex(embedder, store, logging.NewNopLogger())

	m := testMeeting()
	keep := &meeting.Meeting{ID: 8, OwnerID: m.OwnerID, Title: "Keep me"}
	require.NoError(t, idx.IndexMeeting(context.Background(), m,
		[]meeting.Segment{{StartTime: 0, Text: "purge me"}}))
	require.NoError(t, idx.IndexMeeting(context.Background(), keep,
		[]meeting.Segment{{StartTime: 0, Text: "keep me"}}))

	require.NoError(t, idx.Purge(context.Background(), m.OwnerID, m.ID))

	assert.Len(t, store.records, 1)
	_, ok := store.records["8:0"]
	assert.True(t, ok)
}

func TestCosine(t *testing.T) {
	score, ok := cosine([]float32{1, 0}, []float32{1, 0})
	require.True(t, ok)
	assert.InDelta(t, 1.0, score, 1e-9)

	score, ok = cosine([]float32{1, 0}, []float32{0, 1})
	require.True(t, ok)
	assert.InDelta(t, 0.0, score, 1e-9)

	_, ok = cosine([]float32{0, 0}, []float32{1, 0})
	assert.False(t, ok, "zero vector has no direction")

	_, ok = cosine([]float32{1, 0}, []float32{1, 0, 0})
	assert.False(t, ok, "dimension mismatch")
}
