package webrtc

import (
	"context"
	"sync"
	"time"

	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"

	"meetrix/internal/core/domain"
	"meetrix/internal/core/ports"
	"meetrix/pkg/utils"
)

// TransportParameters is the payload returned from create_transport:
// the server-side handshake parameters the client answers.
type TransportParameters struct {
	TransportID domain.TransportID `json:"transport_id"`
	Direction   string             `json:"direction"`
	Offer       string             `json:"offer"`
}

// ConsumerParameters describes a freshly created consumer. Consumers
// always start paused; the client resumes once its decoder is wired.
type ConsumerParameters struct {
	ConsumerID domain.ConsumerID `json:"consumer_id"`
	ProducerID domain.ProducerID `json:"producer_id"`
	Kind       domain.MediaKind  `json:"kind"`
	MimeType   string            `json:"mime_type"`
	Paused     bool              `json:"paused"`
}

// Producer is one published track inside a room.
type Producer struct {
	ID      domain.ProducerID
	PeerID  domain.PeerID
	Kind    domain.MediaKind
	AppData domain.AppData
	Layers  []domain.SimulcastLayer

	mimeType string
	// seq orders producers by creation so tracks attach to the one
	// registered first, not by id comparison.
	seq uint64

	mu        sync.Mutex
	state     domain.ProducerState
	attached  bool
	consumers map[domain.ConsumerID]*Consumer
}

func (p *Producer) State() domain.ProducerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Producer) Info() domain.ProducerInfo {
	return domain.ProducerInfo{
		ProducerID: p.ID,
		PeerID:     p.PeerID,
		Kind:       p.Kind,
		AppData:    p.AppData,
	}
}

// deliver fans one RTP packet out to every active consumer. A paused
// producer delivers nothing; a paused consumer is skipped.
func (p *Producer) deliver(packet *rtp.Packet) {
	p.mu.Lock()
	if p.state != domain.ProducerActive {
		p.mu.Unlock()
		return
	}
	targets := make([]*Consumer, 0, len(p.consumers))
	for _, c := range p.consumers {
		targets = append(targets, c)
	}
	p.mu.Unlock()

	for _, c := range targets {
		c.write(packet)
	}
}

// Consumer is one peer's subscription to a producer.
type Consumer struct {
	ID         domain.ConsumerID
	PeerID     domain.PeerID
	ProducerID domain.ProducerID
	Kind       domain.MediaKind

	track  *webrtc.TrackLocalStaticRTP
	sender *webrtc.RTPSender

	mu      sync.Mutex
	paused  bool
	closed  bool
	packets uint64
}

func (c *Consumer) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

func (c *Consumer) write(packet *rtp.Packet) {
	c.mu.Lock()
	if c.paused || c.closed {
		c.mu.Unlock()
		return
	}
	c.packets++
	c.mu.Unlock()
	_ = c.track.WriteRTP(packet)
}

// PacketsWritten counts packets actually forwarded to this consumer.
func (c *Consumer) PacketsWritten() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.packets
}

type peerMedia struct {
	send *Transport
	recv *Transport

	producers map[domain.ProducerID]struct{}
	consumers map[domain.ConsumerID]struct{}

	statsMu       sync.Mutex
	bytesReceived uint64
	packetsRecv   uint64
	lastSample    time.Time
	lastBytes     uint64
	fractionLost  float64
	rtt           time.Duration
}

// Router is the per-room forwarding fabric: transports, producers and
// consumers for every peer, plus the parent/child index that drives
// the close cascade. All registry mutations go through r.mu; packet
// forwarding runs lock-free against per-producer state.
type Router struct {
	meetingID domain.MeetingID
	engine    *Engine
	logger    *zap.SugaredLogger
	metrics   ports.MetricsRecorder // optional

	// newTransport is an engine call in production and a fake in
	// tests.
	newTransport func(direction domain.TransportDirection) (*Transport, error)

	onClose     func()
	onPeerClose func(peerID domain.PeerID)

	mu          sync.RWMutex
	closed      bool
	producerSeq uint64
	peers       map[domain.PeerID]*peerMedia
	producers   map[domain.ProducerID]*Producer
	consumers   map[domain.ConsumerID]*Consumer
}

func NewRouter(meetingID domain.MeetingID, engine *Engine, logger *zap.SugaredLogger) *Router {
	r := &Router{
		meetingID: meetingID,
		engine:    engine,
		logger:    logger,
		peers:     make(map[domain.PeerID]*peerMedia),
		producers: make(map[domain.ProducerID]*Producer),
		consumers: make(map[domain.ConsumerID]*Consumer),
	}
	r.newTransport = engine.NewTransport
	return r
}

func (r *Router) Capability() domain.RoutingCapability {
	return r.engine.Capability()
}

func (r *Router) peerLocked(peerID domain.PeerID) *peerMedia {
	pm, ok := r.peers[peerID]
	if !ok {
		pm = &peerMedia{
			producers: make(map[domain.ProducerID]struct{}),
			consumers: make(map[domain.ConsumerID]struct{}),
		}
		r.peers[peerID] = pm
	}
	return pm
}

// CreateTransport builds the peer's channel for one direction. A peer
// holds at most one live transport per direction.
func (r *Router) CreateTransport(ctx context.Context, peerID domain.PeerID, direction domain.TransportDirection) (*TransportParameters, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, domain.ErrRoomClosed
	}
	pm := r.peerLocked(peerID)
	existing := pm.send
	if direction == domain.DirectionRecv {
		existing = pm.recv
	}
	if existing != nil && existing.State() != domain.TransportClosed {
		r.mu.Unlock()
		return nil, domain.ErrTransportExists
	}
	r.mu.Unlock()

	t, err := r.newTransport(direction)
	if err != nil {
		return nil, err
	}

	if direction == domain.DirectionSend {
		// The server receives published media on the send channel.
		if err := t.addReceiver(webrtc.RTPCodecTypeAudio); err != nil {
			_ = t.Close()
			return nil, err
		}
		if err := t.addReceiver(webrtc.RTPCodecTypeVideo); err != nil {
			_ = t.Close()
			return nil, err
		}
		t.onTrack(r.handleIncomingTrack(peerID))
	}

	offer, err := t.Offer()
	if err != nil {
		_ = t.Close()
		return nil, err
	}

	r.mu.Lock()
	pm = r.peerLocked(peerID)
	if direction == domain.DirectionSend {
		pm.send = t
	} else {
		pm.recv = t
	}
	r.mu.Unlock()

	r.logger.Infow("transport created",
		"meeting_id", r.meetingID, "peer_id", peerID,
		"transport_id", t.ID(), "direction", direction)
	return &TransportParameters{
		TransportID: t.ID(),
		Direction:   string(direction),
		Offer:       offer,
	}, nil
}

// ConnectTransport completes the handshake for one of the peer's
// channels.
func (r *Router) ConnectTransport(ctx context.Context, peerID domain.PeerID, transportID domain.TransportID, answerSDP string) error {
	r.mu.RLock()
	pm, ok := r.peers[peerID]
	if !ok {
		r.mu.RUnlock()
		return domain.ErrPeerNotFound
	}
	var t *Transport
	switch {
	case pm.send != nil && pm.send.ID() == transportID:
		t = pm.send
	case pm.recv != nil && pm.recv.ID() == transportID:
		t = pm.recv
	}
	r.mu.RUnlock()

	if t == nil {
		return domain.ErrTransportNotFound
	}
	started := time.Now()
	if err := t.Connect(ctx, answerSDP); err != nil {
		r.logger.Warnw("transport connect failed",
			"meeting_id", r.meetingID, "peer_id", peerID,
			"transport_id", transportID, "error", err)
		return err
	}
	if r.metrics != nil {
		r.metrics.RecordNegotiation(r.meetingID, time.Since(started))
	}
	return nil
}

// Produce registers a published track. The send transport must have
// finished its handshake; media arriving for an un-negotiated channel
// is a protocol error, not a queueing opportunity.
func (r *Router) Produce(ctx context.Context, peerID domain.PeerID, kind domain.MediaKind, appData domain.AppData, layers []domain.SimulcastLayer) (*Producer, error) {
	mimeType := webrtc.MimeTypeOpus
	if kind == domain.KindVideo {
		mimeType = webrtc.MimeTypeVP8
	}
	if !r.engine.Capability().CanConsume(kind, mimeType) {
		return nil, domain.ErrIncompatibleMedia
	}
	if kind == domain.KindAudio {
		// Simulcast applies to video only.
		layers = nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, domain.ErrRoomClosed
	}
	pm, ok := r.peers[peerID]
	if !ok || pm.send == nil {
		return nil, domain.ErrTransportNotFound
	}
	if !pm.send.Ready() {
		return nil, domain.ErrTransportNotReady
	}

	r.producerSeq++
	producer := &Producer{
		ID:        domain.ProducerID(utils.GenerateProducerID()),
		PeerID:    peerID,
		Kind:      kind,
		AppData:   appData,
		Layers:    layers,
		mimeType:  mimeType,
		seq:       r.producerSeq,
		state:     domain.ProducerActive,
		consumers: make(map[domain.ConsumerID]*Consumer),
	}
	r.producers[producer.ID] = producer
	pm.producers[producer.ID] = struct{}{}

	r.logger.Infow("producer created",
		"meeting_id", r.meetingID, "peer_id", peerID,
		"producer_id", producer.ID, "kind", kind, "source", appData.Source,
		"layers", len(layers))
	return producer, nil
}

// handleIncomingTrack attaches an arriving remote track to the oldest
// unattached producer of the same kind and starts forwarding.
func (r *Router) handleIncomingTrack(peerID domain.PeerID) func(*webrtc.TrackRemote, *webrtc.RTPReceiver) {
	return func(remote *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		kind := domain.KindAudio
		if remote.Kind() == webrtc.RTPCodecTypeVideo {
			kind = domain.KindVideo
		}

		producer := r.claimProducer(peerID, kind)
		if producer == nil {
			r.logger.Warnw("track arrived with no producer registered",
				"meeting_id", r.meetingID, "peer_id", peerID, "kind", kind)
			return
		}

		r.logger.Infow("track attached",
			"meeting_id", r.meetingID, "peer_id", peerID,
			"producer_id", producer.ID, "codec", remote.Codec().MimeType)

		go r.readRTCP(peerID, receiver)
		go r.forward(peerID, producer, remote)
	}
}

func (r *Router) claimProducer(peerID domain.PeerID, kind domain.MediaKind) *Producer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pm, ok := r.peers[peerID]
	if !ok {
		return nil
	}
	var oldest *Producer
	for id := range pm.producers {
		p := r.producers[id]
		if p == nil || p.Kind != kind {
			continue
		}
		p.mu.Lock()
		free := !p.attached && p.state != domain.ProducerClosed
		p.mu.Unlock()
		if free && (oldest == nil || p.seq < oldest.seq) {
			oldest = p
		}
	}
	if oldest != nil {
		oldest.mu.Lock()
		oldest.attached = true
		oldest.mu.Unlock()
	}
	return oldest
}

// forward pumps RTP from the remote track into the producer's fanout
// until the track ends or the producer closes.
func (r *Router) forward(peerID domain.PeerID, producer *Producer, remote *webrtc.TrackRemote) {
	buf := make([]byte, 1500)
	packet := &rtp.Packet{}

	for {
		if producer.State() == domain.ProducerClosed {
			return
		}
		n, _, err := remote.Read(buf)
		if err != nil {
			r.logger.Debugw("track read ended",
				"meeting_id", r.meetingID, "producer_id", producer.ID, "error", err)
			return
		}
		if err := packet.Unmarshal(buf[:n]); err != nil {
			continue
		}

		r.recordPacket(peerID, uint64(n))
		producer.deliver(packet)
	}
}

func (r *Router) recordPacket(peerID domain.PeerID, size uint64) {
	r.mu.RLock()
	pm, ok := r.peers[peerID]
	r.mu.RUnlock()
	if !ok {
		return
	}
	pm.statsMu.Lock()
	pm.bytesReceived += size
	pm.packetsRecv++
	pm.statsMu.Unlock()
}

// readRTCP folds receiver reports into the peer's loss and RTT sample.
func (r *Router) readRTCP(peerID domain.PeerID, receiver *webrtc.RTPReceiver) {
	for {
		packets, _, err := receiver.ReadRTCP()
		if err != nil {
			return
		}
		for _, packet := range packets {
			rr, ok := packet.(*rtcp.ReceiverReport)
			if !ok {
				continue
			}
			for _, report := range rr.Reports {
				r.mu.RLock()
				pm, exists := r.peers[peerID]
				r.mu.RUnlock()
				if !exists {
					return
				}
				pm.statsMu.Lock()
				pm.fractionLost = float64(report.FractionLost) / 255.0
				if report.Delay != 0 {
					pm.rtt = time.Duration(report.Delay) * time.Second / 65536
				}
				pm.statsMu.Unlock()
			}
		}
	}
}

// Consume subscribes one peer to another peer's producer. The consumer
// starts paused so the client never receives media before its decoder
// is ready.
func (r *Router) Consume(ctx context.Context, peerID domain.PeerID, producerID domain.ProducerID, localCap domain.RoutingCapability) (*ConsumerParameters, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, domain.ErrRoomClosed
	}
	pm, ok := r.peers[peerID]
	if !ok || pm.recv == nil {
		return nil, domain.ErrTransportNotFound
	}
	if !pm.recv.Ready() {
		return nil, domain.ErrTransportNotReady
	}
	producer, ok := r.producers[producerID]
	if !ok || producer.State() == domain.ProducerClosed {
		return nil, domain.ErrProducerNotFound
	}
	if !localCap.CanConsume(producer.Kind, producer.mimeType) {
		// Non-fatal: the caller reports it and the session
		// continues without this one track.
		return nil, domain.ErrIncompatibleMedia
	}

	consumerID := domain.ConsumerID(utils.GenerateConsumerID())
	track, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: producer.mimeType},
		string(producerID),
		string(producer.PeerID),
	)
	if err != nil {
		return nil, err
	}
	sender, err := pm.recv.addTrack(track)
	if err != nil {
		return nil, err
	}

	consumer := &Consumer{
		ID:         consumerID,
		PeerID:     peerID,
		ProducerID: producerID,
		Kind:       producer.Kind,
		track:      track,
		sender:     sender,
		paused:     true,
	}
	r.consumers[consumerID] = consumer
	pm.consumers[consumerID] = struct{}{}
	producer.mu.Lock()
	producer.consumers[consumerID] = consumer
	producer.mu.Unlock()

	if r.metrics != nil {
		r.metrics.RecordConsumerOpened(r.meetingID)
	}
	r.logger.Infow("consumer created",
		"meeting_id", r.meetingID, "peer_id", peerID,
		"consumer_id", consumerID, "producer_id", producerID, "kind", producer.Kind)
	return &ConsumerParameters{
		ConsumerID: consumerID,
		ProducerID: producerID,
		Kind:       producer.Kind,
		MimeType:   producer.mimeType,
		Paused:     true,
	}, nil
}

func (r *Router) setConsumerPaused(peerID domain.PeerID, consumerID domain.ConsumerID, paused bool) error {
	r.mu.RLock()
	consumer, ok := r.consumers[consumerID]
	r.mu.RUnlock()
	if !ok || consumer.PeerID != peerID {
		return domain.ErrConsumerNotFound
	}
	consumer.mu.Lock()
	consumer.paused = paused
	consumer.mu.Unlock()
	return nil
}

func (r *Router) ResumeConsumer(peerID domain.PeerID, consumerID domain.ConsumerID) error {
	return r.setConsumerPaused(peerID, consumerID, false)
}

func (r *Router) PauseConsumer(peerID domain.PeerID, consumerID domain.ConsumerID) error {
	return r.setConsumerPaused(peerID, consumerID, true)
}

func (r *Router) setProducerPaused(peerID domain.PeerID, producerID domain.ProducerID, paused bool) error {
	r.mu.RLock()
	producer, ok := r.producers[producerID]
	r.mu.RUnlock()
	if !ok || producer.PeerID != peerID {
		return domain.ErrProducerNotFound
	}
	producer.mu.Lock()
	defer producer.mu.Unlock()
	if producer.state == domain.ProducerClosed {
		return domain.ErrProducerNotFound
	}
	if paused {
		producer.state = domain.ProducerPaused
	} else {
		producer.state = domain.ProducerActive
	}
	return nil
}

func (r *Router) PauseProducer(peerID domain.PeerID, producerID domain.ProducerID) error {
	return r.setProducerPaused(peerID, producerID, true)
}

func (r *Router) ResumeProducer(peerID domain.PeerID, producerID domain.ProducerID) error {
	return r.setProducerPaused(peerID, producerID, false)
}

// CloseProducer tears down one producer and every consumer attached to
// it, wherever those consumers live. Closing twice is a no-op.
func (r *Router) CloseProducer(ctx context.Context, peerID domain.PeerID, producerID domain.ProducerID) error {
	r.mu.Lock()
	producer, ok := r.producers[producerID]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	if producer.PeerID != peerID {
		r.mu.Unlock()
		return domain.ErrProducerNotFound
	}
	r.closeProducerLocked(producer)
	r.mu.Unlock()
	return nil
}

// closeProducerLocked removes the producer and its consumers from
// every registry. Caller holds r.mu.
func (r *Router) closeProducerLocked(producer *Producer) {
	producer.mu.Lock()
	producer.state = domain.ProducerClosed
	attached := make([]*Consumer, 0, len(producer.consumers))
	for _, c := range producer.consumers {
		attached = append(attached, c)
	}
	producer.consumers = make(map[domain.ConsumerID]*Consumer)
	producer.mu.Unlock()

	for _, consumer := range attached {
		r.closeConsumerLocked(consumer)
	}

	if pm, ok := r.peers[producer.PeerID]; ok {
		delete(pm.producers, producer.ID)
	}
	delete(r.producers, producer.ID)
	r.logger.Infow("producer closed",
		"meeting_id", r.meetingID, "producer_id", producer.ID, "peer_id", producer.PeerID)
}

func (r *Router) closeConsumerLocked(consumer *Consumer) {
	consumer.mu.Lock()
	if consumer.closed {
		consumer.mu.Unlock()
		return
	}
	consumer.closed = true
	consumer.paused = true
	consumer.mu.Unlock()

	if pm, ok := r.peers[consumer.PeerID]; ok {
		delete(pm.consumers, consumer.ID)
		if pm.recv != nil && consumer.sender != nil {
			_ = pm.recv.removeTrack(consumer.sender)
		}
	}
	delete(r.consumers, consumer.ID)
	if r.metrics != nil {
		r.metrics.RecordConsumerClosed(r.meetingID)
	}
}

// ClosePeer runs the full cascade for one peer: its consumers, then
// its producers (which closes their consumers on other peers), then
// both transports. Nothing owned by the peer survives the call.
func (r *Router) ClosePeer(ctx context.Context, peerID domain.PeerID) error {
	r.mu.Lock()
	pm, ok := r.peers[peerID]
	if !ok {
		r.mu.Unlock()
		return nil
	}

	for id := range pm.consumers {
		if consumer, ok := r.consumers[id]; ok {
			// Detach from the producer's fanout first.
			if producer, ok := r.producers[consumer.ProducerID]; ok {
				producer.mu.Lock()
				delete(producer.consumers, id)
				producer.mu.Unlock()
			}
			r.closeConsumerLocked(consumer)
		}
	}
	for id := range pm.producers {
		if producer, ok := r.producers[id]; ok {
			r.closeProducerLocked(producer)
		}
	}

	send, recv := pm.send, pm.recv
	delete(r.peers, peerID)
	r.mu.Unlock()

	if send != nil {
		_ = send.Close()
	}
	if recv != nil {
		_ = recv.Close()
	}
	if r.onPeerClose != nil {
		r.onPeerClose(peerID)
	}
	r.logger.Infow("peer media closed", "meeting_id", r.meetingID, "peer_id", peerID)
	return nil
}

// Stats returns the current send-transport sample for one peer.
// Bitrate is computed over the window since the previous call.
func (r *Router) Stats(peerID domain.PeerID) (domain.TransportStats, error) {
	r.mu.RLock()
	pm, ok := r.peers[peerID]
	r.mu.RUnlock()
	if !ok {
		return domain.TransportStats{}, domain.ErrPeerNotFound
	}

	pm.statsMu.Lock()
	defer pm.statsMu.Unlock()

	now := time.Now()
	stats := domain.TransportStats{
		RTT:             pm.rtt,
		FractionLost:    pm.fractionLost,
		PacketsReceived: pm.packetsRecv,
		SampledAt:       now,
	}
	if !pm.lastSample.IsZero() {
		window := now.Sub(pm.lastSample).Seconds()
		if window > 0 {
			stats.BitrateBPS = int(float64(pm.bytesReceived-pm.lastBytes) * 8 / window)
		}
	}
	pm.lastSample = now
	pm.lastBytes = pm.bytesReceived
	return stats, nil
}

// AllStats samples every peer in the room.
func (r *Router) AllStats() map[domain.PeerID]domain.TransportStats {
	r.mu.RLock()
	ids := make([]domain.PeerID, 0, len(r.peers))
	for id := range r.peers {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	out := make(map[domain.PeerID]domain.TransportStats, len(ids))
	for _, id := range ids {
		if stats, err := r.Stats(id); err == nil {
			out[id] = stats
		}
	}
	return out
}

// Close tears down every peer and marks the router unusable.
func (r *Router) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	ids := make([]domain.PeerID, 0, len(r.peers))
	for id := range r.peers {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		_ = r.ClosePeer(context.Background(), id)
	}
	if r.onClose != nil {
		r.onClose()
	}
	r.logger.Infow("router closed", "meeting_id", r.meetingID)
	return nil
}
