package speaker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	gocache "github.com/patrickmn/go-cache"

	smerrors "github.com/oguzatay/smartmeet/pkg/errors"
	"github.com/oguzatay/smartmeet/pkg/logging"
)

const (
	knownProfilesCacheKey = "known_profiles"
	profileCacheTTL       = 30 * time.Second
)

// ProfileStore persists voice fingerprints and serves the known-speaker
// set to the pipeline. LoadKnown results are cached briefly because the
// pipeline loads the set once per meeting run, and enrollments are rare.
type ProfileStore struct {
	pool   *pgxpool.Pool
	dim    int
	cache  *gocache.Cache
	logger logging.Logger
}

// NewProfileStore creates a profile store expecting embeddings of the
// given dimensionality.
func NewProfileStore(pool *pgxpool.Pool, dim int, logger logging.Logger) *ProfileStore {
	return &ProfileStore{
		pool:   pool,
		dim:    dim,
		cache:  gocache.New(profileCacheTTL, time.Minute),
		logger: logger.With(logging.F("component", "profile_store")),
	}
}

// Enroll upserts a user's voice profile. The embedding is replaced, not
// averaged, and sample_count increments on re-enrollment.
func (s *ProfileStore) Enroll(ctx context.Context, userID int64, embedding []float32) error {
	if len(embedding) != s.dim {
		return fmt.Errorf("embedding has %d dims, want %d: %w", len(embedding), s.dim, smerrors.ErrValidation)
	}
	if IsZero(embedding) {
		return fmt.Errorf("embedding carries no signal: %w", smerrors.ErrValidation)
	}

	data, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO speaker_profiles (user_id, embedding, sample_count, created_at, updated_at)
		VALUES ($1, $2, 1, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			sample_count = speaker_profiles.sample_count + 1,
			updated_at = NOW()
	`, userID, data)
	if err != nil {
		return fmt.Errorf("failed to enroll voice profile: %w", err)
	}

	s.cache.Delete(knownProfilesCacheKey)

	s.logger.Info("Voice profile enrolled", logging.F("user_id", userID))
	return nil
}

// GetByUser returns a user's profile embedding and sample count.
func (s *ProfileStore) GetByUser(ctx context.Context, userID int64) ([]float32, int, error) {
	var (
		data  []byte
		count int
	)
	err := s.pool.QueryRow(ctx, `
		SELECT embedding, sample_count FROM speaker_profiles WHERE user_id = $1
	`, userID).Scan(&data, &count)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, fmt.Errorf("profile for user %d: %w", userID, smerrors.ErrNotFound)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get voice profile: %w", err)
	}

	var embedding []float32
	if err := json.Unmarshal(data, &embedding); err != nil {
		return nil, 0, fmt.Errorf("failed to unmarshal embedding: %w", err)
	}
	return embedding, count, nil
}

// LoadKnown returns every enrolled profile joined with its owner's display
// name. Loaded once per pipeline run, never per segment: identification
// cost is O(segments x profiles), profile loading stays O(profiles).
func (s *ProfileStore) LoadKnown(ctx context.Context) ([]Profile, error) {
	if cached, ok := s.cache.Get(knownProfilesCacheKey); ok {
		return cached.([]Profile), nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT u.full_name, p.embedding
		FROM speaker_profiles p
		JOIN users u ON u.id = p.user_id
		ORDER BY p.id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load speaker profiles: %w", err)
	}
	defer rows.Close()

	var profiles []Profile
	for rows.Next() {
		var (
			name string
			data []byte
		)
		if err := rows.Scan(&name, &data); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}

		var embedding []float32
		if err := json.Unmarshal(data, &embedding); err != nil {
			// A corrupt profile must not break identification for everyone.
			s.logger.Warn("Skipping unreadable voice profile",
				logging.F("name", name), logging.Err(err))
			continue
		}
		profiles = append(profiles, Profile{Name: name, Embedding: embedding})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read profiles: %w", err)
	}

	s.cache.Set(knownProfilesCacheKey, profiles, gocache.DefaultExpiration)
	return profiles, nil
}
