package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"meetrix/internal/core/domain"
	"meetrix/internal/core/ports"
)

// RedisViolationStore persists proctoring violations as append-only
// lists so the audit trail survives signal instance restarts.
type RedisViolationStore struct {
	client *redis.Client
	prefix string
}

func NewRedisViolationStore(client *redis.Client) ports.ViolationStore {
	return &RedisViolationStore{
		client: client,
		prefix: "meetrix:violations:",
	}
}

func (r *RedisViolationStore) key(meetingID domain.MeetingID, participantID domain.ParticipantID) string {
	return fmt.Sprintf("%s%s:%s", r.prefix, meetingID, participantID)
}

func (r *RedisViolationStore) Append(ctx context.Context, meetingID domain.MeetingID, participantID domain.ParticipantID, record domain.ViolationRecord) error {
	if meetingID == "" || participantID == "" {
		return fmt.Errorf("meeting and participant are required")
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal violation: %w", err)
	}

	if err := r.client.RPush(ctx, r.key(meetingID, participantID), data).Err(); err != nil {
		return fmt.Errorf("failed to append violation: %w", err)
	}

	return nil
}

func (r *RedisViolationStore) List(ctx context.Context, meetingID domain.MeetingID, participantID domain.ParticipantID) ([]domain.ViolationRecord, error) {
	entries, err := r.client.LRange(ctx, r.key(meetingID, participantID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read violations: %w", err)
	}

	records := make([]domain.ViolationRecord, 0, len(entries))
	for _, entry := range entries {
		var record domain.ViolationRecord
		if err := json.Unmarshal([]byte(entry), &record); err != nil {
			// Skip undecodable entries rather than failing the listing
			continue
		}
		records = append(records, record)
	}

	return records, nil
}

func (r *RedisViolationStore) Close() error {
	return nil
}
