// Package memory is the semantic long-term memory over meeting
// transcripts: segments are embedded and stored, and free-text queries
// are answered by cosine similarity over a user's whole history.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/oguzatay/smartmeet/pkg/logging"
	"github.com/oguzatay/smartmeet/pkg/meeting"
)

// Record is one indexed transcript segment.
type Record struct {
	// Key is stable per segment so re-processing a meeting overwrites
	// rather than duplicates.
	Key string `json:"key"`

	MeetingID    int64   `json:"meeting_id"`
	OwnerID      int64   `json:"owner_id"`
	MeetingTitle string  `json:"meeting_title"`
	Speaker      string  `json:"speaker"`
	Text         string  `json:"text"`
	StartTime    float64 `json:"start_time"`

	Vector []float32 `json:"vector"`
}

// Hit is a search result with its similarity score.
type Hit struct {
	Record
	Score float64
}

// Embedder turns texts into vectors. Implementations must return one
// vector per input, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// RecordStore persists records. It knows nothing about similarity;
// ranking happens in the Index.
type RecordStore interface {
	Put(ctx context.Context, records []Record) error
	ListByOwner(ctx context.Context, ownerID int64) ([]Record, error)
	DeleteMeeting(ctx context.Context, ownerID, meetingID int64) error
}

// Index couples an Embedder with a RecordStore.
type Index struct {
	embedder Embedder
	store    RecordStore
	logger   logging.Logger
}

// NewIndex creates a memory index.
func NewIndex(embedder Embedder, store RecordStore, logger logging.Logger) *Index {
	return &Index{
		embedder: embedder,
		store:    store,
		logger:   logger.With(logging.F("component", "memory")),
	}
}

// recordKey derives the stable per-segment key.
func recordKey(meetingID int64, startTime float64) string {
	return fmt.Sprintf("%d:%d", meetingID, int(startTime))
}

// IndexMeeting embeds and stores every non-empty segment of a meeting.
// Keys are stable across runs, so indexing the same meeting twice is
// an overwrite, not a duplicate.
func (idx *Index) IndexMeeting(ctx context.Context, m *meeting.Meeting, segments []meeting.Segment) error {
	texts := make([]string, 0, len(segments))
	kept := make([]meeting.Segment, 0, len(segments))
	for _, seg := range segments {
		if strings.TrimSpace(seg.Text) == "" {
			continue
		}
		// The attributed line is the document: queries like "what did
		// alice say" should match on the speaker too.
		texts = append(texts, fmt.Sprintf("%s: %s", seg.Speaker, seg.Text))
		kept = append(kept, seg)
	}
	if len(kept) == 0 {
		idx.logger.Debug("Nothing to index", logging.F("meeting_id", m.ID))
		return nil
	}

	vectors, err := idx.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding %d segments: %w", len(kept), err)
	}
	if len(vectors) != len(kept) {
		return fmt.Errorf("embedder returned %d vectors for %d segments", len(vectors), len(kept))
	}

	records := make([]Record, len(kept))
	for i, seg := range kept {
		records[i] = Record{
			Key:          recordKey(m.ID, seg.StartTime),
			MeetingID:    m.ID,
			OwnerID:      m.OwnerID,
			MeetingTitle: m.Title,
			Speaker:      seg.Speaker,
			Text:         seg.Text,
			StartTime:    seg.StartTime,
			Vector:       vectors[i],
		}
	}

	if err := idx.store.Put(ctx, records); err != nil {
		return fmt.Errorf("storing %d records: %w", len(records), err)
	}
	idx.logger.Info("Indexed meeting segments",
		logging.F("meeting_id", m.ID), logging.F("segments", len(records)))
	return nil
}

// Search embeds the query and returns the owner's k most similar
// records, best first. Records with zero or mismatched vectors are
// skipped.
func (idx *Index) Search(ctx context.Context, ownerID int64, query string, k int) ([]Hit, error) {
	if strings.TrimSpace(query) == "" || k <= 0 {
		return nil, nil
	}

	vectors, err := idx.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query", len(vectors))
	}
	queryVec := vectors[0]

	records, err := idx.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}

	hits := make([]Hit, 0, len(records))
	for _, rec := range records {
		score, ok := cosine(queryVec, rec.Vector)
		if !ok {
			continue
		}
		hits = append(hits, Hit{Record: rec, Score: score})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Purge removes everything indexed for a meeting.
func (idx *Index) Purge(ctx context.Context, ownerID, meetingID int64) error {
	return idx.store.DeleteMeeting(ctx, ownerID, meetingID)
}

// cosine returns the cosine similarity of two vectors, or ok=false when
// either is zero-length, zero-norm, or the dimensions differ.
func cosine(a, b []float32) (float64, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), true
}
