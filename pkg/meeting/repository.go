package meeting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	smerrors "github.com/oguzatay/smartmeet/pkg/errors"
	"github.com/oguzatay/smartmeet/pkg/logging"
)

// Repository provides database operations for meetings, transcript
// segments, and action items.
type Repository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewRepository creates a new meeting repository.
func NewRepository(pool *pgxpool.Pool, logger logging.Logger) *Repository {
	return &Repository{
		pool:   pool,
		logger: logger.With(logging.F("component", "meeting_repository")),
	}
}

// Create inserts a new meeting in UPLOADING state.
func (r *Repository) Create(ctx context.Context, m *Meeting) error {
	if m.Status == "" {
		m.Status = StatusUploading
	}

	query := `
		INSERT INTO meetings (owner_id, team_id, title, audio_path, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		m.OwnerID, m.TeamID, m.Title, m.AudioPath, m.Status,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create meeting: %w", err)
	}

	r.logger.Debug("Meeting created",
		logging.F("meeting_id", m.ID),
		logging.F("owner_id", m.OwnerID))
	return nil
}

// Get retrieves a meeting by ID.
func (r *Repository) Get(ctx context.Context, id int64) (*Meeting, error) {
	query := `
		SELECT id, owner_id, team_id, title, audio_path, status,
		       executive_summary, sentiment, created_at, updated_at
		FROM meetings
		WHERE id = $1
	`

	var (
		m             Meeting
		summaryJSON   []byte
		sentimentJSON []byte
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&m.ID, &m.OwnerID, &m.TeamID, &m.Title, &m.AudioPath, &m.Status,
		&summaryJSON, &sentimentJSON, &m.CreatedAt, &m.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("meeting %d: %w", id, smerrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get meeting %d: %w", id, err)
	}

	if len(summaryJSON) > 0 {
		var s ExecutiveSummary
		if err := json.Unmarshal(summaryJSON, &s); err == nil {
			m.Summary = &s
		}
	}
	if len(sentimentJSON) > 0 {
		var s Sentiment
		if err := json.Unmarshal(sentimentJSON, &s); err == nil {
			m.Mood = &s
		}
	}

	return &m, nil
}

// ListByOwner returns the owner's meetings, newest first.
func (r *Repository) ListByOwner(ctx context.Context, ownerID int64) ([]*Meeting, error) {
	query := `
		SELECT id, owner_id, team_id, title, audio_path, status, created_at, updated_at
		FROM meetings
		WHERE owner_id = $1
		ORDER BY id DESC
	`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}
	defer rows.Close()

	var meetings []*Meeting
	for rows.Next() {
		var m Meeting
		if err := rows.Scan(&m.ID, &m.OwnerID, &m.TeamID, &m.Title, &m.AudioPath,
			&m.Status, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan meeting: %w", err)
		}
		meetings = append(meetings, &m)
	}
	return meetings, rows.Err()
}

// TransitionStatus moves a meeting from one status to another, enforcing
// the state machine. The update is conditional on the current status so
// concurrent writers cannot regress a terminal meeting.
func (r *Repository) TransitionStatus(ctx context.Context, id int64, from, to Status) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("transition %s -> %s: %w", from, to, smerrors.ErrInvalidState)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE meetings SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		return fmt.Errorf("failed to update meeting %d status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		// Either the meeting is gone or its status moved under us.
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return getErr
		}
		return fmt.Errorf("meeting %d not in status %s: %w", id, from, smerrors.ErrInvalidState)
	}

	r.logger.Debug("Meeting status updated",
		logging.F("meeting_id", id),
		logging.F("from", string(from)),
		logging.F("to", string(to)))
	return nil
}

// MarkFailed forces a meeting into FAILED regardless of its current
// non-terminal status. Used by the pipeline's error boundary.
func (r *Repository) MarkFailed(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE meetings SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status NOT IN ($3, $4)
	`, id, StatusFailed, StatusCompleted, StatusFailed)
	if err != nil {
		return fmt.Errorf("failed to mark meeting %d failed: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("meeting %d: %w", id, smerrors.ErrInvalidState)
	}
	return nil
}

// SetAudioPath records the normalized audio file path. The path is
// mutated at most once, when a non-canonical upload is converted.
func (r *Repository) SetAudioPath(ctx context.Context, id int64, path string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE meetings SET audio_path = $2, updated_at = NOW() WHERE id = $1
	`, id, path)
	if err != nil {
		return fmt.Errorf("failed to set audio path for meeting %d: %w", id, err)
	}
	return nil
}

// SetSummary persists the executive summary blob.
func (r *Repository) SetSummary(ctx context.Context, id int64, s *ExecutiveSummary) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		UPDATE meetings SET executive_summary = $2, updated_at = NOW() WHERE id = $1
	`, id, data)
	if err != nil {
		return fmt.Errorf("failed to set summary for meeting %d: %w", id, err)
	}
	return nil
}

// SetSentiment persists the sentiment blob.
func (r *Repository) SetSentiment(ctx context.Context, id int64, s *Sentiment) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal sentiment: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		UPDATE meetings SET sentiment = $2, updated_at = NOW() WHERE id = $1
	`, id, data)
	if err != nil {
		return fmt.Errorf("failed to set sentiment for meeting %d: %w", id, err)
	}
	return nil
}

// InsertSegments appends transcript segments in one transaction.
// Segments are append-only: nothing ever updates them afterwards.
func (r *Repository) InsertSegments(ctx context.Context, segments []Segment) error {
	if len(segments) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for i := range segments {
		seg := &segments[i]
		err := tx.QueryRow(ctx, `
			INSERT INTO transcript_segments (meeting_id, start_time, end_time, speaker, text)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, seg.MeetingID, seg.StartTime, seg.EndTime, seg.Speaker, seg.Text).Scan(&seg.ID)
		if err != nil {
			return fmt.Errorf("failed to insert segment: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit segments: %w", err)
	}

	r.logger.Debug("Segments persisted",
		logging.F("meeting_id", segments[0].MeetingID),
		logging.F("count", len(segments)))
	return nil
}

// SegmentsByMeeting returns a meeting's segments in chronological order.
func (r *Repository) SegmentsByMeeting(ctx context.Context, meetingID int64) ([]Segment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, meeting_id, start_time, end_time, speaker, text
		FROM transcript_segments
		WHERE meeting_id = $1
		ORDER BY start_time ASC
	`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query segments: %w", err)
	}
	defer rows.Close()

	var segments []Segment
	for rows.Next() {
		var s Segment
		if err := rows.Scan(&s.ID, &s.MeetingID, &s.StartTime, &s.EndTime, &s.Speaker, &s.Text); err != nil {
			return nil, fmt.Errorf("failed to scan segment: %w", err)
		}
		segments = append(segments, s)
	}
	return segments, rows.Err()
}

// InsertActionItems creates extracted tasks in bulk.
func (r *Repository) InsertActionItems(ctx context.Context, items []ActionItem) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for i := range items {
		item := &items[i]
		if item.Status == "" {
			item.Status = ActionItemPending
		}
		err := tx.QueryRow(ctx, `
			INSERT INTO action_items (meeting_id, description, assignee, due_date, status, confidence)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, item.MeetingID, item.Description, item.Assignee, item.DueDate, item.Status, item.Confidence).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("failed to insert action item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit action items: %w", err)
	}
	return nil
}

// ActionItemsByMeeting returns a meeting's extracted tasks.
func (r *Repository) ActionItemsByMeeting(ctx context.Context, meetingID int64) ([]ActionItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, meeting_id, description, assignee, due_date, status, confidence
		FROM action_items
		WHERE meeting_id = $1
		ORDER BY id ASC
	`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query action items: %w", err)
	}
	defer rows.Close()

	return scanActionItems(rows)
}

// RecentTasksByOwner returns the caller's most recent tasks joined with
// their source meeting titles, ordered by due date descending. Feeds the
// retrieval chat's structured grounding block.
func (r *Repository) RecentTasksByOwner(ctx context.Context, ownerID int64, limit int) ([]TaskWithMeeting, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.meeting_id, a.description, a.assignee, a.due_date, a.status, a.confidence,
		       m.title
		FROM action_items a
		JOIN meetings m ON m.id = a.meeting_id
		WHERE m.owner_id = $1
		ORDER BY a.due_date DESC NULLS LAST
		LIMIT $2
	`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent tasks: %w", err)
	}
	defer rows.Close()

	var tasks []TaskWithMeeting
	for rows.Next() {
		var t TaskWithMeeting
		if err := rows.Scan(&t.ID, &t.MeetingID, &t.Description, &t.Assignee,
			&t.DueDate, &t.Status, &t.Confidence, &t.MeetingTitle); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// SetActionItemStatus updates a task's completion state. Mutated by users,
// never by the pipeline.
func (r *Repository) SetActionItemStatus(ctx context.Context, id int64, status ActionItemStatus) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE action_items SET status = $2 WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update action item %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("action item %d: %w", id, smerrors.ErrNotFound)
	}
	return nil
}

// Delete removes a meeting. Segments and action items cascade in SQL;
// the caller is responsible for purging the memory index.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM meetings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete meeting %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("meeting %d: %w", id, smerrors.ErrNotFound)
	}
	return nil
}

func scanActionItems(rows pgx.Rows) ([]ActionItem, error) {
	var items []ActionItem
	for rows.Next() {
		var item ActionItem
		if err := rows.Scan(&item.ID, &item.MeetingID, &item.Description,
			&item.Assignee, &item.DueDate, &item.Status, &item.Confidence); err != nil {
			return nil, fmt.Errorf("failed to scan action item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
