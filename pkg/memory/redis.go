package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/oguzatay/smartmeet/pkg/logging"
)

// RedisStore is a RecordStore on Redis hashes. Records live in one hash
// per owner (field = record key), with a per-meeting set of field names
// so a meeting can be purged without scanning.
type RedisStore struct {
	client *redis.Client
	logger logging.Logger
}

// NewRedisStore creates a Redis-backed record store.
func NewRedisStore(client *redis.Client, logger logging.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		logger: logger.With(logging.F("component", "memory_store")),
	}
}

func ownerKey(ownerID int64) string {
	return fmt.Sprintf("memory:records:%d", ownerID)
}

func meetingKey(ownerID, meetingID int64) string {
	return fmt.Sprintf("memory:meeting:%d:%d", ownerID, meetingID)
}

// Put upserts records by key.
func (s *RedisStore) Put(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	pipe := s.client.TxPipeline()
	for _, rec := range records {
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshaling record %s: %w", rec.Key, err)
		}
		pipe.HSet(ctx, ownerKey(rec.OwnerID), rec.Key, payload)
		pipe.SAdd(ctx, meetingKey(rec.OwnerID, rec.MeetingID), rec.Key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("writing records: %w", err)
	}
	return nil
}

// ListByOwner returns every record for an owner. Corrupt entries are
// skipped with a warning rather than failing the whole read.
func (s *RedisStore) ListByOwner(ctx context.Context, ownerID int64) ([]Record, error) {
	raw, err := s.client.HGetAll(ctx, ownerKey(ownerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading records for owner %d: %w", ownerID, err)
	}

	records := make([]Record, 0, len(raw))
	for field, payload := range raw {
		var rec Record
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			s.logger.Warn("Skipping corrupt memory record",
				logging.F("owner_id", ownerID), logging.F("key", field), logging.Err(err))
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// DeleteMeeting removes all records indexed for one meeting.
func (s *RedisStore) DeleteMeeting(ctx context.Context, ownerID, meetingID int64) error {
	fields, err := s.client.SMembers(ctx, meetingKey(ownerID, meetingID)).Result()
	if err != nil {
		return fmt.Errorf("listing meeting records: %w", err)
	}

	pipe := s.client.TxPipeline()
	if len(fields) > 0 {
		pipe.HDel(ctx, ownerKey(ownerID), fields...)
	}
	pipe.Del(ctx, meetingKey(ownerID, meetingID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("deleting meeting records: %w", err)
	}
	return nil
}

var _ RecordStore = (*RedisStore)(nil)
