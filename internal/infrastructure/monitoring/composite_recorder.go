package monitoring

import (
	"time"

	"meetrix/internal/core/domain"
	"meetrix/internal/core/ports"
)

// CompositeRecorder fans every counter out to multiple recorders so the
// Prometheus collector and the in-memory metrics service stay in step.
type CompositeRecorder struct {
	recorders []ports.MetricsRecorder
}

func NewCompositeRecorder(recorders ...ports.MetricsRecorder) *CompositeRecorder {
	return &CompositeRecorder{recorders: recorders}
}

func (c *CompositeRecorder) RecordRoomOpened(meetingID domain.MeetingID) {
	for _, r := range c.recorders {
		r.RecordRoomOpened(meetingID)
	}
}

func (c *CompositeRecorder) RecordRoomClosed(meetingID domain.MeetingID) {
	for _, r := range c.recorders {
		r.RecordRoomClosed(meetingID)
	}
}

func (c *CompositeRecorder) RecordPeerJoined(meetingID domain.MeetingID, waiting bool) {
	for _, r := range c.recorders {
		r.RecordPeerJoined(meetingID, waiting)
	}
}

func (c *CompositeRecorder) RecordPeerAdmitted(meetingID domain.MeetingID) {
	for _, r := range c.recorders {
		r.RecordPeerAdmitted(meetingID)
	}
}

func (c *CompositeRecorder) RecordPeerLeft(meetingID domain.MeetingID) {
	for _, r := range c.recorders {
		r.RecordPeerLeft(meetingID)
	}
}

func (c *CompositeRecorder) RecordProducerOpened(meetingID domain.MeetingID, kind domain.MediaKind) {
	for _, r := range c.recorders {
		r.RecordProducerOpened(meetingID, kind)
	}
}

func (c *CompositeRecorder) RecordProducerClosed(meetingID domain.MeetingID, kind domain.MediaKind) {
	for _, r := range c.recorders {
		r.RecordProducerClosed(meetingID, kind)
	}
}

func (c *CompositeRecorder) RecordConsumerOpened(meetingID domain.MeetingID) {
	for _, r := range c.recorders {
		r.RecordConsumerOpened(meetingID)
	}
}

func (c *CompositeRecorder) RecordConsumerClosed(meetingID domain.MeetingID) {
	for _, r := range c.recorders {
		r.RecordConsumerClosed(meetingID)
	}
}

func (c *CompositeRecorder) RecordChatMessage(meetingID domain.MeetingID) {
	for _, r := range c.recorders {
		r.RecordChatMessage(meetingID)
	}
}

func (c *CompositeRecorder) RecordViolation(meetingID domain.MeetingID, violationType domain.ViolationType) {
	for _, r := range c.recorders {
		r.RecordViolation(meetingID, violationType)
	}
}

func (c *CompositeRecorder) RecordNegotiation(meetingID domain.MeetingID, duration time.Duration) {
	for _, r := range c.recorders {
		r.RecordNegotiation(meetingID, duration)
	}
}
