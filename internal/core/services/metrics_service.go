package services

import (
	"sync"
	"time"

	"meetrix/internal/core/domain"
)

// RoomMetrics is a point-in-time aggregate for one room, exposed on
// the health endpoint.
type RoomMetrics struct {
	MeetingID      domain.MeetingID `json:"meeting_id"`
	PeerCount      int              `json:"peer_count"`
	WaitingCount   int              `json:"waiting_count"`
	AudioProducers int              `json:"audio_producers"`
	VideoProducers int              `json:"video_producers"`
	ConsumerCount  int              `json:"consumer_count"`
	ChatMessages   int              `json:"chat_messages"`
	Violations     int              `json:"violations"`
	OpenedAt       time.Time        `json:"opened_at"`
}

// MetricsService keeps in-memory session counters. It satisfies
// ports.MetricsRecorder alongside the Prometheus collector.
type MetricsService struct {
	mu    sync.RWMutex
	rooms map[domain.MeetingID]*RoomMetrics

	totalRoomsOpened int
	totalPeersJoined int
	negotiationCount int
	negotiationTotal time.Duration
}

func NewMetricsService() *MetricsService {
	return &MetricsService{
		rooms: make(map[domain.MeetingID]*RoomMetrics),
	}
}

func (m *MetricsService) roomLocked(meetingID domain.MeetingID) *RoomMetrics {
	rm, ok := m.rooms[meetingID]
	if !ok {
		rm = &RoomMetrics{MeetingID: meetingID, OpenedAt: time.Now()}
		m.rooms[meetingID] = rm
	}
	return rm
}

func (m *MetricsService) RecordRoomOpened(meetingID domain.MeetingID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roomLocked(meetingID)
	m.totalRoomsOpened++
}

func (m *MetricsService) RecordRoomClosed(meetingID domain.MeetingID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, meetingID)
}

func (m *MetricsService) RecordPeerJoined(meetingID domain.MeetingID, waiting bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rm := m.roomLocked(meetingID)
	if waiting {
		rm.WaitingCount++
	} else {
		rm.PeerCount++
	}
	m.totalPeersJoined++
}

func (m *MetricsService) RecordPeerAdmitted(meetingID domain.MeetingID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rm := m.roomLocked(meetingID)
	if rm.WaitingCount > 0 {
		rm.WaitingCount--
	}
	rm.PeerCount++
}

func (m *MetricsService) RecordPeerLeft(meetingID domain.MeetingID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rm := m.roomLocked(meetingID)
	if rm.PeerCount > 0 {
		rm.PeerCount--
	} else if rm.WaitingCount > 0 {
		rm.WaitingCount--
	}
}

func (m *MetricsService) RecordProducerOpened(meetingID domain.MeetingID, kind domain.MediaKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rm := m.roomLocked(meetingID)
	if kind == domain.KindAudio {
		rm.AudioProducers++
	} else {
		rm.VideoProducers++
	}
}

func (m *MetricsService) RecordProducerClosed(meetingID domain.MeetingID, kind domain.MediaKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rm := m.roomLocked(meetingID)
	if kind == domain.KindAudio && rm.AudioProducers > 0 {
		rm.AudioProducers--
	} else if kind == domain.KindVideo && rm.VideoProducers > 0 {
		rm.VideoProducers--
	}
}

func (m *MetricsService) RecordConsumerOpened(meetingID domain.MeetingID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roomLocked(meetingID).ConsumerCount++
}

func (m *MetricsService) RecordConsumerClosed(meetingID domain.MeetingID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rm := m.roomLocked(meetingID)
	if rm.ConsumerCount > 0 {
		rm.ConsumerCount--
	}
}

func (m *MetricsService) RecordChatMessage(meetingID domain.MeetingID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roomLocked(meetingID).ChatMessages++
}

func (m *MetricsService) RecordViolation(meetingID domain.MeetingID, _ domain.ViolationType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roomLocked(meetingID).Violations++
}

func (m *MetricsService) RecordNegotiation(meetingID domain.MeetingID, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.negotiationCount++
	m.negotiationTotal += duration
}

// Snapshot returns a copy of all per-room aggregates.
func (m *MetricsService) Snapshot() []RoomMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RoomMetrics, 0, len(m.rooms))
	for _, rm := range m.rooms {
		out = append(out, *rm)
	}
	return out
}

// Totals returns cumulative counters since process start.
func (m *MetricsService) Totals() (roomsOpened, peersJoined int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalRoomsOpened, m.totalPeersJoined
}

// AverageNegotiation is the mean transport handshake duration.
func (m *MetricsService) AverageNegotiation() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.negotiationCount == 0 {
		return 0
	}
	return m.negotiationTotal / time.Duration(m.negotiationCount)
}
