package webrtc

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"meetrix/internal/core/domain"
	"meetrix/internal/core/ports"
)

type sessionKey struct {
	meetingID domain.MeetingID
	peerID    domain.PeerID
}

// Manager owns one router per live room and one media session per
// admitted peer. It implements ports.MediaRoomProvider for the
// coordinator and ports.StatsSource for the network monitor.
type Manager struct {
	engine  *Engine
	logger  *zap.SugaredLogger
	metrics ports.MetricsRecorder

	mu       sync.RWMutex
	routers  map[domain.MeetingID]*Router
	sessions map[sessionKey]*Session
}

func NewManager(engine *Engine, logger *zap.SugaredLogger) *Manager {
	return &Manager{
		engine:   engine,
		logger:   logger,
		routers:  make(map[domain.MeetingID]*Router),
		sessions: make(map[sessionKey]*Session),
	}
}

// SetMetricsRecorder attaches consumer-level counters. Must be called
// before the first room is created.
func (m *Manager) SetMetricsRecorder(metrics ports.MetricsRecorder) {
	m.metrics = metrics
}

func (m *Manager) GetOrCreate(ctx context.Context, meetingID domain.MeetingID) (ports.MediaRoom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.routers[meetingID]; ok {
		return r, nil
	}
	r := NewRouter(meetingID, m.engine, m.logger)
	r.metrics = m.metrics
	r.onClose = func() { m.dropRoom(meetingID) }
	r.onPeerClose = func(peerID domain.PeerID) { m.dropSession(meetingID, peerID) }
	m.routers[meetingID] = r
	return r, nil
}

func (m *Manager) Router(meetingID domain.MeetingID) (*Router, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.routers[meetingID]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return r, nil
}

// Session returns the peer's media session, creating it on first use.
func (m *Manager) Session(meetingID domain.MeetingID, peerID domain.PeerID, coordinator ports.Coordinator) (*Session, error) {
	m.mu.RLock()
	router, ok := m.routers[meetingID]
	m.mu.RUnlock()
	if !ok {
		return nil, domain.ErrRoomNotFound
	}

	key := sessionKey{meetingID: meetingID, peerID: peerID}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[key]; ok {
		return s, nil
	}
	s := NewSession(meetingID, peerID, router, coordinator, m.logger)
	m.sessions[key] = s
	return s, nil
}

func (m *Manager) dropSession(meetingID domain.MeetingID, peerID domain.PeerID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionKey{meetingID: meetingID, peerID: peerID})
}

func (m *Manager) dropRoom(meetingID domain.MeetingID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.routers, meetingID)
	for key := range m.sessions {
		if key.meetingID == meetingID {
			delete(m.sessions, key)
		}
	}
}

func (m *Manager) ActiveRooms() []domain.MeetingID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.MeetingID, 0, len(m.routers))
	for id := range m.routers {
		out = append(out, id)
	}
	return out
}

func (m *Manager) RoomStats(ctx context.Context, meetingID domain.MeetingID) map[domain.PeerID]domain.TransportStats {
	m.mu.RLock()
	r, ok := m.routers[meetingID]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	return r.AllStats()
}

// Close shuts every router down, used on process shutdown.
func (m *Manager) Close() error {
	m.mu.Lock()
	routers := make([]*Router, 0, len(m.routers))
	for _, r := range m.routers {
		routers = append(routers, r)
	}
	m.mu.Unlock()

	for _, r := range routers {
		_ = r.Close()
	}
	return nil
}
