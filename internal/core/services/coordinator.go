package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"meetrix/internal/core/domain"
	"meetrix/internal/core/ports"
	"meetrix/pkg/utils"
)

// CoordinatorConfig carries the room policy knobs.
type CoordinatorConfig struct {
	Capacity           int
	WaitingRoomEnabled bool
	// GraceTimeout keeps an empty room alive so a reconnecting peer
	// finds its room instead of a closed one.
	GraceTimeout time.Duration
	// QualityInterval bounds network-quality fanout per peer.
	QualityInterval time.Duration
}

type peerState struct {
	domain.Peer
	sink            ports.EventSink
	qualityLimiter  *rate.Limiter
	reportedQuality int
}

type room struct {
	id     domain.MeetingID
	mu     sync.Mutex
	closed bool

	media ports.MediaRoom

	peers         map[domain.PeerID]*peerState
	byParticipant map[domain.ParticipantID]domain.PeerID
	producers     map[domain.ProducerID]domain.ProducerInfo
	pausedTracks  map[domain.ProducerID]bool

	graceTimer *time.Timer
	createdAt  time.Time
}

type coordinator struct {
	cfg      CoordinatorConfig
	provider ports.MediaRoomProvider
	store    ports.ViolationStore
	metrics  ports.MetricsRecorder
	bus      ports.EventPublisher // optional, nil when running single-node
	logger   *zap.SugaredLogger

	mu    sync.RWMutex
	rooms map[domain.MeetingID]*room
}

// NewCoordinator wires the room membership state machine. The provider
// supplies per-room media routing; store and bus may be nil.
func NewCoordinator(
	cfg CoordinatorConfig,
	provider ports.MediaRoomProvider,
	store ports.ViolationStore,
	metrics ports.MetricsRecorder,
	bus ports.EventPublisher,
	logger *zap.SugaredLogger,
) ports.Coordinator {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 10
	}
	if cfg.QualityInterval <= 0 {
		cfg.QualityInterval = 2 * time.Second
	}
	return &coordinator{
		cfg:      cfg,
		provider: provider,
		store:    store,
		metrics:  metrics,
		bus:      bus,
		logger:   logger,
		rooms:    make(map[domain.MeetingID]*room),
	}
}

// getOrCreateRoom returns an open room, creating it on first join.
// The rooms map lock is held only for the lookup; room state is
// guarded by the per-room mutex.
func (c *coordinator) getOrCreateRoom(ctx context.Context, meetingID domain.MeetingID) (*room, error) {
	c.mu.RLock()
	r, ok := c.rooms[meetingID]
	c.mu.RUnlock()
	if ok {
		return r, nil
	}

	media, err := c.provider.GetOrCreate(ctx, meetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to create media routing for room %s: %w", meetingID, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.rooms[meetingID]; ok {
		return existing, nil
	}
	r = &room{
		id:            meetingID,
		media:         media,
		peers:         make(map[domain.PeerID]*peerState),
		byParticipant: make(map[domain.ParticipantID]domain.PeerID),
		producers:     make(map[domain.ProducerID]domain.ProducerInfo),
		pausedTracks:  make(map[domain.ProducerID]bool),
		createdAt:     utils.Now(),
	}
	c.rooms[meetingID] = r
	if c.metrics != nil {
		c.metrics.RecordRoomOpened(meetingID)
	}
	c.logger.Infow("room opened", "meeting_id", meetingID)
	return r, nil
}

func (c *coordinator) getRoom(meetingID domain.MeetingID) (*room, error) {
	c.mu.RLock()
	r, ok := c.rooms[meetingID]
	c.mu.RUnlock()
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return r, nil
}

func (c *coordinator) Join(ctx context.Context, req ports.JoinRequest) (*ports.JoinResult, error) {
	r, err := c.getOrCreateRoom(ctx, req.MeetingID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, domain.ErrRoomClosed
	}

	// A reconnecting participant replaces its previous session:
	// last writer wins, the stale connection is torn down first.
	if oldID, ok := r.byParticipant[req.ParticipantID]; ok {
		old := r.peers[oldID]
		c.logger.Infow("participant reconnected, replacing session",
			"meeting_id", req.MeetingID, "participant_id", req.ParticipantID, "old_peer_id", oldID)
		if old != nil && old.sink != nil {
			_ = old.sink.Send(domain.Event{Type: domain.EventSessionReplaced})
		}
		c.removePeerLocked(ctx, r, oldID, domain.AdmissionLeft, "replaced")
	}

	if c.admittedCountLocked(r) >= c.cfg.Capacity && (req.Role == domain.RoleHost || !c.cfg.WaitingRoomEnabled) {
		return nil, domain.ErrRoomFull
	}

	peer := &peerState{
		Peer: domain.Peer{
			ID:            domain.PeerID(utils.GeneratePeerID()),
			ParticipantID: req.ParticipantID,
			DisplayName:   req.DisplayName,
			Role:          req.Role,
			Admission:     domain.AdmissionConnecting,
			JoinedAt:      utils.Now(),
		},
		sink:           req.Sink,
		qualityLimiter: rate.NewLimiter(rate.Every(c.cfg.QualityInterval), 1),
	}
	r.peers[peer.ID] = peer
	r.byParticipant[req.ParticipantID] = peer.ID
	r.cancelGraceLocked()

	if c.cfg.WaitingRoomEnabled && req.Role != domain.RoleHost {
		peer.Admission = domain.AdmissionWaiting
		c.notifyHostsLocked(r, domain.Event{
			Type: domain.EventParticipantWaiting,
			Payload: domain.ParticipantWaitingPayload{
				PeerID:        peer.ID,
				ParticipantID: peer.ParticipantID,
				DisplayName:   peer.DisplayName,
			},
		})
		if c.metrics != nil {
			c.metrics.RecordPeerJoined(req.MeetingID, true)
		}
		c.logger.Infow("peer waiting for admission",
			"meeting_id", req.MeetingID, "peer_id", peer.ID, "participant_id", peer.ParticipantID)
		return &ports.JoinResult{PeerID: peer.ID, Admission: domain.AdmissionWaiting}, nil
	}

	result := c.admitLocked(ctx, r, peer)
	if c.metrics != nil {
		c.metrics.RecordPeerJoined(req.MeetingID, false)
	}
	return result, nil
}

// admitLocked transitions a peer to admitted, snapshots room state for
// it and announces it to everyone already admitted. Caller holds r.mu.
func (c *coordinator) admitLocked(ctx context.Context, r *room, peer *peerState) *ports.JoinResult {
	peer.Admission = domain.AdmissionAdmitted

	existing := make([]domain.ProducerInfo, 0, len(r.producers))
	for _, info := range r.producers {
		if info.PeerID == peer.ID {
			continue
		}
		existing = append(existing, info)
	}
	summaries := make([]domain.PeerSummary, 0, len(r.peers))
	for _, p := range r.peers {
		if p.ID == peer.ID || p.Admission != domain.AdmissionAdmitted {
			continue
		}
		summaries = append(summaries, p.Summary())
	}

	result := &ports.JoinResult{
		PeerID:            peer.ID,
		Admission:         domain.AdmissionAdmitted,
		RoutingCapability: r.media.Capability(),
		ExistingProducers: existing,
		Peers:             summaries,
	}

	// The joiner gets the snapshot through its sink as well, so a
	// peer admitted out of the waiting room learns the room state
	// without another request.
	if peer.sink != nil {
		_ = peer.sink.Send(domain.Event{
			Type: domain.EventRoomJoined,
			Payload: domain.RoomJoinedPayload{
				PeerID:            peer.ID,
				RoutingCapability: result.RoutingCapability,
				ExistingProducers: existing,
				Peers:             summaries,
				PeerCount:         len(summaries) + 1,
			},
		})
	}

	c.broadcastLocked(r, domain.Event{
		Type: domain.EventNewPeer,
		Payload: domain.NewPeerPayload{
			PeerID:      peer.ID,
			DisplayName: peer.DisplayName,
			Role:        peer.Role,
		},
	}, peer.ID)

	// Hosts joining late need the current waiting list replayed.
	if peer.Role == domain.RoleHost {
		for _, p := range r.peers {
			if p.Admission != domain.AdmissionWaiting {
				continue
			}
			_ = peer.sink.Send(domain.Event{
				Type: domain.EventParticipantWaiting,
				Payload: domain.ParticipantWaitingPayload{
					PeerID:        p.ID,
					ParticipantID: p.ParticipantID,
					DisplayName:   p.DisplayName,
				},
			})
		}
	}

	c.logger.Infow("peer admitted",
		"meeting_id", r.id, "peer_id", peer.ID, "role", peer.Role, "peer_count", len(summaries)+1)
	return result
}

func (c *coordinator) Admit(ctx context.Context, meetingID domain.MeetingID, hostPeerID, waitingPeerID domain.PeerID) error {
	r, err := c.getRoom(meetingID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	host, ok := r.peers[hostPeerID]
	if !ok {
		return domain.ErrPeerNotFound
	}
	if host.Role != domain.RoleHost {
		return domain.ErrNotHost
	}
	peer, ok := r.peers[waitingPeerID]
	if !ok {
		return domain.ErrPeerNotFound
	}
	if peer.Admission != domain.AdmissionWaiting {
		return domain.ErrPeerNotWaiting
	}
	if c.admittedCountLocked(r) >= c.cfg.Capacity {
		return domain.ErrRoomFull
	}

	c.admitLocked(ctx, r, peer)
	if c.metrics != nil {
		c.metrics.RecordPeerAdmitted(meetingID)
	}
	return nil
}

func (c *coordinator) Leave(ctx context.Context, meetingID domain.MeetingID, peerID domain.PeerID) error {
	r, err := c.getRoom(meetingID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.peers[peerID]; !ok {
		return domain.ErrPeerNotFound
	}
	c.removePeerLocked(ctx, r, peerID, domain.AdmissionLeft, "left")
	return nil
}

func (c *coordinator) Kick(ctx context.Context, meetingID domain.MeetingID, hostPeerID, targetPeerID domain.PeerID) error {
	r, err := c.getRoom(meetingID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	host, ok := r.peers[hostPeerID]
	if !ok {
		return domain.ErrPeerNotFound
	}
	if host.Role != domain.RoleHost {
		return domain.ErrNotHost
	}
	target, ok := r.peers[targetPeerID]
	if !ok {
		return domain.ErrPeerNotFound
	}

	if target.sink != nil {
		_ = target.sink.Send(domain.Event{Type: domain.EventKicked})
	}
	c.removePeerLocked(ctx, r, targetPeerID, domain.AdmissionKicked, "kicked")
	c.logger.Infow("peer kicked",
		"meeting_id", meetingID, "peer_id", targetPeerID, "by", hostPeerID)
	return nil
}

// removePeerLocked performs the full teardown cascade for one peer:
// its media (transports, producers, and every remote consumer of
// those producers) goes first, then membership and fanout. Caller
// holds r.mu.
func (c *coordinator) removePeerLocked(ctx context.Context, r *room, peerID domain.PeerID, final domain.AdmissionState, reason string) {
	peer, ok := r.peers[peerID]
	if !ok {
		return
	}

	wasAdmitted := peer.Admission == domain.AdmissionAdmitted
	peer.Admission = final

	if err := r.media.ClosePeer(ctx, peerID); err != nil {
		c.logger.Warnw("media teardown failed",
			"meeting_id", r.id, "peer_id", peerID, "error", err)
	}

	for id, info := range r.producers {
		if info.PeerID != peerID {
			continue
		}
		delete(r.producers, id)
		delete(r.pausedTracks, id)
		closedEvent := domain.Event{
			Type:    domain.EventProducerClosed,
			Payload: domain.ProducerClosedPayload{ProducerID: id, PeerID: peerID},
		}
		c.broadcastLocked(r, closedEvent, peerID)
		c.publishRoomEvent(ctx, r.id, closedEvent)
		if c.metrics != nil {
			c.metrics.RecordProducerClosed(r.id, info.Kind)
		}
	}

	delete(r.peers, peerID)
	if r.byParticipant[peer.ParticipantID] == peerID {
		delete(r.byParticipant, peer.ParticipantID)
	}
	if peer.sink != nil {
		_ = peer.sink.Close()
	}

	if wasAdmitted {
		c.broadcastLocked(r, domain.Event{
			Type:    domain.EventPeerLeft,
			Payload: domain.PeerLeftPayload{PeerID: peerID, Reason: reason},
		}, peerID)
	}
	if c.metrics != nil {
		c.metrics.RecordPeerLeft(r.id)
	}
	c.logger.Infow("peer removed",
		"meeting_id", r.id, "peer_id", peerID, "reason", reason, "remaining", len(r.peers))

	if len(r.peers) == 0 {
		c.scheduleGraceLocked(r)
	}
}

// scheduleGraceLocked arms the empty-room timer. The room survives
// the grace window so reconnects land in the same room.
func (c *coordinator) scheduleGraceLocked(r *room) {
	if c.cfg.GraceTimeout <= 0 {
		go c.closeRoom(r.id)
		return
	}
	r.cancelGraceLocked()
	r.graceTimer = time.AfterFunc(c.cfg.GraceTimeout, func() {
		c.closeRoom(r.id)
	})
}

func (r *room) cancelGraceLocked() {
	if r.graceTimer != nil {
		r.graceTimer.Stop()
		r.graceTimer = nil
	}
}

// closeRoom tears a room down if it is still empty.
func (c *coordinator) closeRoom(meetingID domain.MeetingID) {
	c.mu.Lock()
	r, ok := c.rooms[meetingID]
	if !ok {
		c.mu.Unlock()
		return
	}
	r.mu.Lock()
	if len(r.peers) > 0 || r.closed {
		r.mu.Unlock()
		c.mu.Unlock()
		return
	}
	r.closed = true
	delete(c.rooms, meetingID)
	r.mu.Unlock()
	c.mu.Unlock()

	if err := r.media.Close(); err != nil {
		c.logger.Warnw("media close failed", "meeting_id", meetingID, "error", err)
	}
	if c.metrics != nil {
		c.metrics.RecordRoomClosed(meetingID)
	}
	c.logger.Infow("room closed", "meeting_id", meetingID, "lifetime", utils.Since(r.createdAt))
}

func (c *coordinator) AnnounceProducer(ctx context.Context, meetingID domain.MeetingID, info domain.ProducerInfo) error {
	r, err := c.getRoom(meetingID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	peer, ok := r.peers[info.PeerID]
	if !ok {
		return domain.ErrPeerNotFound
	}
	if peer.Admission != domain.AdmissionAdmitted {
		return domain.ErrPeerNotAdmitted
	}

	// Announcements are idempotent: a retried announce of a live
	// producer is a no-op, not a duplicate event.
	if _, exists := r.producers[info.ProducerID]; exists {
		return nil
	}
	r.producers[info.ProducerID] = info

	c.broadcastLocked(r, domain.Event{
		Type:    domain.EventNewProducer,
		Payload: info,
	}, info.PeerID)
	c.publishRoomEvent(ctx, meetingID, domain.Event{Type: domain.EventNewProducer, Payload: info})

	if c.metrics != nil {
		c.metrics.RecordProducerOpened(meetingID, info.Kind)
	}
	c.logger.Infow("producer announced",
		"meeting_id", meetingID, "peer_id", info.PeerID, "producer_id", info.ProducerID,
		"kind", info.Kind, "source", info.AppData.Source)
	return nil
}

func (c *coordinator) AnnounceProducerClosed(ctx context.Context, meetingID domain.MeetingID, producerID domain.ProducerID) error {
	r, err := c.getRoom(meetingID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	info, ok := r.producers[producerID]
	if !ok {
		// Already closed; closing twice is not an error.
		return nil
	}
	delete(r.producers, producerID)
	delete(r.pausedTracks, producerID)

	closedEvent := domain.Event{
		Type:    domain.EventProducerClosed,
		Payload: domain.ProducerClosedPayload{ProducerID: producerID, PeerID: info.PeerID},
	}
	c.broadcastLocked(r, closedEvent, info.PeerID)
	c.publishRoomEvent(ctx, meetingID, closedEvent)
	if c.metrics != nil {
		c.metrics.RecordProducerClosed(meetingID, info.Kind)
	}
	return nil
}

func (c *coordinator) SetProducerPaused(ctx context.Context, meetingID domain.MeetingID, peerID domain.PeerID, producerID domain.ProducerID, paused bool) error {
	r, err := c.getRoom(meetingID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	info, ok := r.producers[producerID]
	if !ok {
		return domain.ErrProducerNotFound
	}
	if info.PeerID != peerID {
		return domain.ErrProducerNotFound
	}
	if r.pausedTracks[producerID] == paused {
		return nil
	}
	r.pausedTracks[producerID] = paused

	eventType := domain.EventProducerResumed
	if paused {
		eventType = domain.EventProducerPaused
	}
	c.broadcastLocked(r, domain.Event{
		Type:    eventType,
		Payload: domain.ProducerStatePayload{ProducerID: producerID, PeerID: peerID, Paused: paused},
	}, peerID)
	return nil
}

func (c *coordinator) RaiseHand(ctx context.Context, meetingID domain.MeetingID, peerID domain.PeerID, raised bool) error {
	r, err := c.getRoom(meetingID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	peer, ok := r.peers[peerID]
	if !ok {
		return domain.ErrPeerNotFound
	}
	if peer.Admission != domain.AdmissionAdmitted {
		return domain.ErrPeerNotAdmitted
	}
	peer.HandRaised = raised

	c.broadcastLocked(r, domain.Event{
		Type:    domain.EventHandRaised,
		Payload: domain.HandRaisedPayload{PeerID: peerID, Raised: raised},
	}, peerID)
	return nil
}

func (c *coordinator) ChatMessage(ctx context.Context, meetingID domain.MeetingID, peerID domain.PeerID, content string) (*domain.ChatMessagePayload, error) {
	r, err := c.getRoom(meetingID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	peer, ok := r.peers[peerID]
	if !ok {
		return nil, domain.ErrPeerNotFound
	}
	if peer.Admission != domain.AdmissionAdmitted {
		return nil, domain.ErrPeerNotAdmitted
	}

	msg := &domain.ChatMessagePayload{
		ID:            utils.GenerateMessageID(),
		PeerID:        peerID,
		ParticipantID: peer.ParticipantID,
		DisplayName:   peer.DisplayName,
		Content:       content,
		CreatedAt:     utils.Now(),
	}
	c.broadcastLocked(r, domain.Event{Type: domain.EventChatMessage, Payload: msg}, peerID)
	if c.metrics != nil {
		c.metrics.RecordChatMessage(meetingID)
	}
	return msg, nil
}

func (c *coordinator) ReportNetworkQuality(ctx context.Context, meetingID domain.MeetingID, peerID domain.PeerID, quality int) error {
	r, err := c.getRoom(meetingID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	peer, ok := r.peers[peerID]
	if !ok {
		return domain.ErrPeerNotFound
	}
	peer.Quality = quality
	if quality == peer.reportedQuality {
		return nil
	}
	// Flapping links produce a report per sample; cap the fanout so
	// a bad link does not turn into a broadcast storm.
	if !peer.qualityLimiter.Allow() {
		return nil
	}
	peer.reportedQuality = quality

	c.broadcastLocked(r, domain.Event{
		Type:    domain.EventNetworkQuality,
		Payload: domain.NetworkQualityPayload{PeerID: peerID, Quality: quality},
	}, peerID)
	return nil
}

func (c *coordinator) ReportViolation(ctx context.Context, meetingID domain.MeetingID, peerID domain.PeerID, violation domain.ViolationRecord) error {
	r, err := c.getRoom(meetingID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	peer, ok := r.peers[peerID]
	if !ok {
		r.mu.Unlock()
		return domain.ErrPeerNotFound
	}
	participantID := peer.ParticipantID
	r.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordViolation(meetingID, violation.Type)
	}
	c.logger.Warnw("proctoring violation",
		"meeting_id", meetingID, "participant_id", participantID,
		"type", violation.Type, "at", violation.Timestamp)

	if c.store == nil {
		return nil
	}
	if err := c.store.Append(ctx, meetingID, participantID, violation); err != nil {
		return fmt.Errorf("failed to persist violation: %w", err)
	}
	return nil
}

// ApplyRemoteEvent fans an event published by a sibling instance out to
// this instance's admitted peers. It never republishes, so mirrored
// events cannot loop between instances.
func (c *coordinator) ApplyRemoteEvent(ctx context.Context, meetingID domain.MeetingID, event domain.Event) error {
	r, err := c.getRoom(meetingID)
	if err != nil {
		// The meeting is not hosted here; nothing to mirror.
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	c.broadcastLocked(r, event, "")
	c.logger.Debugw("remote event mirrored",
		"meeting_id", meetingID, "event", event.Type)
	return nil
}

func (c *coordinator) ResolvePeer(meetingID domain.MeetingID, participantID domain.ParticipantID) (domain.PeerID, error) {
	r, err := c.getRoom(meetingID)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	peerID, ok := r.byParticipant[participantID]
	if !ok {
		return "", domain.ErrPeerNotFound
	}
	return peerID, nil
}

func (c *coordinator) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	rooms := make([]*room, 0, len(c.rooms))
	for _, r := range c.rooms {
		rooms = append(rooms, r)
	}
	c.rooms = make(map[domain.MeetingID]*room)
	c.mu.Unlock()

	for _, r := range rooms {
		r.mu.Lock()
		r.closed = true
		r.cancelGraceLocked()
		for id, peer := range r.peers {
			if peer.sink != nil {
				_ = peer.sink.Send(domain.Event{Type: domain.EventRoomClosed})
				_ = peer.sink.Close()
			}
			delete(r.peers, id)
		}
		r.mu.Unlock()
		if err := r.media.Close(); err != nil {
			c.logger.Warnw("media close failed on shutdown", "meeting_id", r.id, "error", err)
		}
	}
	c.logger.Infow("coordinator shut down", "rooms_closed", len(rooms))
	return nil
}

// broadcastLocked fans an event out to every admitted peer except
// exclude. Send failures are logged; the websocket layer turns a dead
// connection into a Leave.
func (c *coordinator) broadcastLocked(r *room, event domain.Event, exclude domain.PeerID) {
	for id, peer := range r.peers {
		if id == exclude || peer.Admission != domain.AdmissionAdmitted || peer.sink == nil {
			continue
		}
		if err := peer.sink.Send(event); err != nil {
			c.logger.Debugw("event delivery failed",
				"meeting_id", r.id, "peer_id", id, "event", event.Type, "error", err)
		}
	}
}

func (c *coordinator) notifyHostsLocked(r *room, event domain.Event) {
	for _, peer := range r.peers {
		if peer.Role != domain.RoleHost || peer.Admission != domain.AdmissionAdmitted || peer.sink == nil {
			continue
		}
		_ = peer.sink.Send(event)
	}
}

func (c *coordinator) admittedCountLocked(r *room) int {
	n := 0
	for _, p := range r.peers {
		if p.Admission == domain.AdmissionAdmitted {
			n++
		}
	}
	return n
}

func (c *coordinator) publishRoomEvent(ctx context.Context, meetingID domain.MeetingID, event domain.Event) {
	if c.bus == nil {
		return
	}
	if err := c.bus.PublishRoomEvent(ctx, meetingID, event); err != nil {
		c.logger.Debugw("event bus publish failed", "meeting_id", meetingID, "error", err)
	}
}
