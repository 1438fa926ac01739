package memory

import (
	"context"
	"fmt"
	"sync"

	"meetrix/internal/core/domain"
	"meetrix/internal/core/ports"
)

type violationKey struct {
	meeting     domain.MeetingID
	participant domain.ParticipantID
}

// MemoryViolationStore keeps violation records in process memory.
// Suitable for single-node deployments and tests.
type MemoryViolationStore struct {
	mu      sync.RWMutex
	records map[violationKey][]domain.ViolationRecord
}

func NewMemoryViolationStore() ports.ViolationStore {
	return &MemoryViolationStore{
		records: make(map[violationKey][]domain.ViolationRecord),
	}
}

func (s *MemoryViolationStore) Append(ctx context.Context, meetingID domain.MeetingID, participantID domain.ParticipantID, record domain.ViolationRecord) error {
	if meetingID == "" || participantID == "" {
		return fmt.Errorf("meeting and participant are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := violationKey{meeting: meetingID, participant: participantID}
	s.records[key] = append(s.records[key], record)
	return nil
}

func (s *MemoryViolationStore) List(ctx context.Context, meetingID domain.MeetingID, participantID domain.ParticipantID) ([]domain.ViolationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := violationKey{meeting: meetingID, participant: participantID}
	stored := s.records[key]
	out := make([]domain.ViolationRecord, len(stored))
	copy(out, stored)
	return out, nil
}

func (s *MemoryViolationStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[violationKey][]domain.ViolationRecord)
	return nil
}
