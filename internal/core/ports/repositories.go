package ports

import (
	"context"

	"meetrix/internal/core/domain"
)

// ViolationStore persists proctoring violation reports for post-session
// review. Records are append-only and never deduplicated.
type ViolationStore interface {
	Append(ctx context.Context, meetingID domain.MeetingID, participantID domain.ParticipantID, record domain.ViolationRecord) error
	List(ctx context.Context, meetingID domain.MeetingID, participantID domain.ParticipantID) ([]domain.ViolationRecord, error)
	Close() error
}
