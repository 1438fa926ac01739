package webrtc

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"meetrix/internal/core/domain"
	"meetrix/internal/core/ports"
)

// fakePC satisfies peerConnection without any networking. Connection
// state is driven by the test through fireState.
type fakePC struct {
	mu            sync.Mutex
	stateHandler  func(webrtc.PeerConnectionState)
	trackHandler  func(*webrtc.TrackRemote, *webrtc.RTPReceiver)
	connectOnSet  bool
	removedTracks int
	closed        bool
}

func (f *fakePC) CreateOffer(*webrtc.OfferOptions) (webrtc.SessionDescription, error) {
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0 test offer"}, nil
}

func (f *fakePC) SetLocalDescription(webrtc.SessionDescription) error { return nil }

func (f *fakePC) LocalDescription() *webrtc.SessionDescription {
	return &webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0 test offer"}
}

func (f *fakePC) SetRemoteDescription(webrtc.SessionDescription) error {
	f.mu.Lock()
	handler := f.stateHandler
	connect := f.connectOnSet
	f.mu.Unlock()
	if connect && handler != nil {
		handler(webrtc.PeerConnectionStateConnected)
	}
	return nil
}

func (f *fakePC) AddTrack(webrtc.TrackLocal) (*webrtc.RTPSender, error) {
	return &webrtc.RTPSender{}, nil
}

func (f *fakePC) RemoveTrack(*webrtc.RTPSender) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removedTracks++
	return nil
}

func (f *fakePC) AddTransceiverFromKind(webrtc.RTPCodecType, ...webrtc.RTPTransceiverInit) (*webrtc.RTPTransceiver, error) {
	return nil, nil
}

func (f *fakePC) OnConnectionStateChange(h func(webrtc.PeerConnectionState)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stateHandler = h
}

func (f *fakePC) OnTrack(h func(*webrtc.TrackRemote, *webrtc.RTPReceiver)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trackHandler = h
}

func (f *fakePC) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakePC) fireState(state webrtc.PeerConnectionState) {
	f.mu.Lock()
	handler := f.stateHandler
	f.mu.Unlock()
	if handler != nil {
		handler(state)
	}
}

func newTestRouter(t *testing.T) (*Router, map[domain.TransportID]*fakePC) {
	engine, err := NewEngine(Config{NegotiationTimeout: 50 * time.Millisecond})
	require.NoError(t, err)

	pcs := make(map[domain.TransportID]*fakePC)
	var mu sync.Mutex
	seq := 0
	r := NewRouter("m1", engine, zaptest.NewLogger(t).Sugar())
	r.newTransport = func(direction domain.TransportDirection) (*Transport, error) {
		pc := &fakePC{connectOnSet: true}
		mu.Lock()
		seq++
		id := domain.TransportID(fmt.Sprintf("t-%s-%d", direction, seq))
		mu.Unlock()
		tr := newTransport(id, direction, pc, 50*time.Millisecond)
		mu.Lock()
		pcs[tr.ID()] = pc
		mu.Unlock()
		return tr, nil
	}
	return r, pcs
}

func localCapability() domain.RoutingCapability {
	return domain.RoutingCapability{Codecs: []domain.CodecCapability{
		{MimeType: webrtc.MimeTypeOpus, Kind: domain.KindAudio, ClockRate: 48000, Channels: 2},
		{MimeType: webrtc.MimeTypeVP8, Kind: domain.KindVideo, ClockRate: 90000},
	}}
}

// connectPeer creates and connects transports for a peer in both
// directions.
func connectPeer(t *testing.T, r *Router, peerID domain.PeerID) {
	t.Helper()
	for _, dir := range []domain.TransportDirection{domain.DirectionSend, domain.DirectionRecv} {
		params, err := r.CreateTransport(context.Background(), peerID, dir)
		require.NoError(t, err)
		require.NotEmpty(t, params.Offer)
		require.NoError(t, r.ConnectTransport(context.Background(), peerID, params.TransportID, "v=0 answer"))
	}
}

func TestRouter_DuplicateTransportRejected(t *testing.T) {
	r, _ := newTestRouter(t)

	_, err := r.CreateTransport(context.Background(), "p1", domain.DirectionSend)
	require.NoError(t, err)
	_, err = r.CreateTransport(context.Background(), "p1", domain.DirectionSend)
	assert.ErrorIs(t, err, domain.ErrTransportExists)

	// Other direction is independent.
	_, err = r.CreateTransport(context.Background(), "p1", domain.DirectionRecv)
	assert.NoError(t, err)
}

func TestRouter_ProduceRequiresConnectedTransport(t *testing.T) {
	r, _ := newTestRouter(t)

	_, err := r.Produce(context.Background(), "p1", domain.KindAudio, domain.DefaultAppData(domain.KindAudio), nil)
	assert.ErrorIs(t, err, domain.ErrTransportNotFound)

	_, err = r.CreateTransport(context.Background(), "p1", domain.DirectionSend)
	require.NoError(t, err)

	// Created but not negotiated: fail fast, no queueing.
	_, err = r.Produce(context.Background(), "p1", domain.KindAudio, domain.DefaultAppData(domain.KindAudio), nil)
	assert.ErrorIs(t, err, domain.ErrTransportNotReady)
}

func TestRouter_NegotiationTimeout(t *testing.T) {
	r, pcs := newTestRouter(t)

	params, err := r.CreateTransport(context.Background(), "p1", domain.DirectionSend)
	require.NoError(t, err)

	// Never fire connected for this one.
	pcs[params.TransportID].mu.Lock()
	pcs[params.TransportID].connectOnSet = false
	pcs[params.TransportID].mu.Unlock()

	err = r.ConnectTransport(context.Background(), "p1", params.TransportID, "v=0 answer")
	assert.ErrorIs(t, err, domain.ErrNegotiationTimeout)
}

func TestRouter_ConsumerStartsPaused(t *testing.T) {
	r, _ := newTestRouter(t)
	connectPeer(t, r, "alice")
	connectPeer(t, r, "bob")

	producer, err := r.Produce(context.Background(), "alice", domain.KindVideo,
		domain.AppData{Source: domain.SourceCamera}, []domain.SimulcastLayer{{MaxBitrate: 300_000, ScaleDownBy: 2}})
	require.NoError(t, err)

	params, err := r.Consume(context.Background(), "bob", producer.ID, localCapability())
	require.NoError(t, err)
	assert.True(t, params.Paused)

	consumer := r.consumers[params.ConsumerID]
	require.NotNil(t, consumer)

	// Media delivered while paused never reaches the consumer.
	producer.deliver(&rtp.Packet{})
	assert.Zero(t, consumer.PacketsWritten())

	require.NoError(t, r.ResumeConsumer("bob", params.ConsumerID))
	producer.deliver(&rtp.Packet{})
	assert.Equal(t, uint64(1), consumer.PacketsWritten())
}

func TestRouter_PausedProducerDeliversNothing(t *testing.T) {
	r, _ := newTestRouter(t)
	connectPeer(t, r, "alice")
	connectPeer(t, r, "bob")

	producer, err := r.Produce(context.Background(), "alice", domain.KindAudio, domain.DefaultAppData(domain.KindAudio), nil)
	require.NoError(t, err)
	params, err := r.Consume(context.Background(), "bob", producer.ID, localCapability())
	require.NoError(t, err)
	require.NoError(t, r.ResumeConsumer("bob", params.ConsumerID))

	require.NoError(t, r.PauseProducer("alice", producer.ID))
	producer.deliver(&rtp.Packet{})
	assert.Zero(t, r.consumers[params.ConsumerID].PacketsWritten())

	require.NoError(t, r.ResumeProducer("alice", producer.ID))
	producer.deliver(&rtp.Packet{})
	assert.Equal(t, uint64(1), r.consumers[params.ConsumerID].PacketsWritten())
}

func TestRouter_IncompatibleCapabilityIsNonFatal(t *testing.T) {
	r, _ := newTestRouter(t)
	connectPeer(t, r, "alice")
	connectPeer(t, r, "bob")

	producer, err := r.Produce(context.Background(), "alice", domain.KindVideo, domain.DefaultAppData(domain.KindVideo), nil)
	require.NoError(t, err)

	audioOnly := domain.RoutingCapability{Codecs: []domain.CodecCapability{
		{MimeType: webrtc.MimeTypeOpus, Kind: domain.KindAudio, ClockRate: 48000},
	}}
	_, err = r.Consume(context.Background(), "bob", producer.ID, audioOnly)
	assert.ErrorIs(t, err, domain.ErrIncompatibleMedia)

	// The same peer can still consume a compatible producer.
	audioProducer, err := r.Produce(context.Background(), "alice", domain.KindAudio, domain.DefaultAppData(domain.KindAudio), nil)
	require.NoError(t, err)
	_, err = r.Consume(context.Background(), "bob", audioProducer.ID, audioOnly)
	assert.NoError(t, err)
}

func TestRouter_CloseProducerCascadesToConsumers(t *testing.T) {
	r, _ := newTestRouter(t)
	connectPeer(t, r, "alice")
	connectPeer(t, r, "bob")
	connectPeer(t, r, "carol")

	producer, err := r.Produce(context.Background(), "alice", domain.KindVideo, domain.DefaultAppData(domain.KindVideo), nil)
	require.NoError(t, err)

	bobParams, err := r.Consume(context.Background(), "bob", producer.ID, localCapability())
	require.NoError(t, err)
	carolParams, err := r.Consume(context.Background(), "carol", producer.ID, localCapability())
	require.NoError(t, err)

	require.NoError(t, r.CloseProducer(context.Background(), "alice", producer.ID))

	assert.Nil(t, r.consumers[bobParams.ConsumerID])
	assert.Nil(t, r.consumers[carolParams.ConsumerID])
	assert.Nil(t, r.producers[producer.ID])

	// Idempotent.
	assert.NoError(t, r.CloseProducer(context.Background(), "alice", producer.ID))
}

func TestRouter_ClosePeerCascade(t *testing.T) {
	r, pcs := newTestRouter(t)
	connectPeer(t, r, "alice")
	connectPeer(t, r, "bob")

	aliceProd, err := r.Produce(context.Background(), "alice", domain.KindVideo, domain.DefaultAppData(domain.KindVideo), nil)
	require.NoError(t, err)
	bobProd, err := r.Produce(context.Background(), "bob", domain.KindAudio, domain.DefaultAppData(domain.KindAudio), nil)
	require.NoError(t, err)

	// Cross subscriptions both ways.
	bobConsumes, err := r.Consume(context.Background(), "bob", aliceProd.ID, localCapability())
	require.NoError(t, err)
	aliceConsumes, err := r.Consume(context.Background(), "alice", bobProd.ID, localCapability())
	require.NoError(t, err)

	require.NoError(t, r.ClosePeer(context.Background(), "alice"))

	// Alice's producer, her consumer, and bob's consumer of her
	// track are all gone; bob's own producer survives.
	assert.Nil(t, r.producers[aliceProd.ID])
	assert.Nil(t, r.consumers[aliceConsumes.ConsumerID])
	assert.Nil(t, r.consumers[bobConsumes.ConsumerID])
	assert.NotNil(t, r.producers[bobProd.ID])
	assert.Nil(t, r.peers["alice"])

	// Both of alice's peer connections were closed.
	closedCount := 0
	for _, pc := range pcs {
		pc.mu.Lock()
		if pc.closed {
			closedCount++
		}
		pc.mu.Unlock()
	}
	assert.Equal(t, 2, closedCount)

	// Idempotent.
	assert.NoError(t, r.ClosePeer(context.Background(), "alice"))
}

func TestRouter_CloseTearsDownEverything(t *testing.T) {
	r, _ := newTestRouter(t)
	connectPeer(t, r, "alice")
	connectPeer(t, r, "bob")

	_, err := r.Produce(context.Background(), "alice", domain.KindAudio, domain.DefaultAppData(domain.KindAudio), nil)
	require.NoError(t, err)

	require.NoError(t, r.Close())
	assert.Empty(t, r.peers)
	assert.Empty(t, r.producers)
	assert.Empty(t, r.consumers)

	_, err = r.CreateTransport(context.Background(), "carol", domain.DirectionSend)
	assert.ErrorIs(t, err, domain.ErrRoomClosed)
}

func TestRouter_AudioLayersDropped(t *testing.T) {
	r, _ := newTestRouter(t)
	connectPeer(t, r, "alice")

	producer, err := r.Produce(context.Background(), "alice", domain.KindAudio,
		domain.DefaultAppData(domain.KindAudio), []domain.SimulcastLayer{{MaxBitrate: 100_000}})
	require.NoError(t, err)
	assert.Empty(t, producer.Layers)
}

func TestSession_PublishAnnouncesOnce(t *testing.T) {
	r, _ := newTestRouter(t)
	connectPeer(t, r, "alice")

	coord := &fakeCoordinator{}
	s := NewSession("m1", "alice", r, coord, zaptest.NewLogger(t).Sugar())
	require.NoError(t, s.LoadCapability(localCapability()))

	info, err := s.Publish(context.Background(), domain.KindVideo, domain.AppData{Source: domain.SourceScreen}, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceScreen, info.AppData.Source)
	assert.Len(t, coord.announced, 1)

	require.NoError(t, s.Unpublish(context.Background(), info.ProducerID))
	assert.Len(t, coord.closedProducers, 1)
	assert.Nil(t, r.producers[info.ProducerID])
}

func TestSession_ConsumeRequiresLoadedCapability(t *testing.T) {
	r, _ := newTestRouter(t)
	connectPeer(t, r, "alice")
	connectPeer(t, r, "bob")

	producer, err := r.Produce(context.Background(), "alice", domain.KindAudio, domain.DefaultAppData(domain.KindAudio), nil)
	require.NoError(t, err)

	coord := &fakeCoordinator{}
	s := NewSession("m1", "bob", r, coord, zaptest.NewLogger(t).Sugar())

	_, err = s.Consume(context.Background(), producer.ID)
	assert.ErrorIs(t, err, domain.ErrUnsupportedCapability)

	require.NoError(t, s.LoadCapability(localCapability()))
	params, err := s.Consume(context.Background(), producer.ID)
	require.NoError(t, err)
	assert.True(t, params.Paused)
}

func TestSession_LoadCapabilityRejectsNoOverlap(t *testing.T) {
	r, _ := newTestRouter(t)
	coord := &fakeCoordinator{}
	s := NewSession("m1", "alice", r, coord, zaptest.NewLogger(t).Sugar())

	err := s.LoadCapability(domain.RoutingCapability{Codecs: []domain.CodecCapability{
		{MimeType: "video/AV1", Kind: domain.KindVideo, ClockRate: 90000},
	}})
	assert.ErrorIs(t, err, domain.ErrUnsupportedCapability)
	assert.False(t, s.CapabilityLoaded())
}

// fakeCoordinator records announcements; everything else is a no-op.
type fakeCoordinator struct {
	mu              sync.Mutex
	announced       []domain.ProducerInfo
	closedProducers []domain.ProducerID
	pauseEvents     []bool
}

func (f *fakeCoordinator) Join(context.Context, ports.JoinRequest) (*ports.JoinResult, error) {
	return nil, nil
}

func (f *fakeCoordinator) Admit(context.Context, domain.MeetingID, domain.PeerID, domain.PeerID) error {
	return nil
}

func (f *fakeCoordinator) Leave(context.Context, domain.MeetingID, domain.PeerID) error { return nil }

func (f *fakeCoordinator) Kick(context.Context, domain.MeetingID, domain.PeerID, domain.PeerID) error {
	return nil
}

func (f *fakeCoordinator) AnnounceProducer(_ context.Context, _ domain.MeetingID, info domain.ProducerInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.announced = append(f.announced, info)
	return nil
}

func (f *fakeCoordinator) AnnounceProducerClosed(_ context.Context, _ domain.MeetingID, producerID domain.ProducerID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closedProducers = append(f.closedProducers, producerID)
	return nil
}

func (f *fakeCoordinator) SetProducerPaused(_ context.Context, _ domain.MeetingID, _ domain.PeerID, _ domain.ProducerID, paused bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauseEvents = append(f.pauseEvents, paused)
	return nil
}

func (f *fakeCoordinator) RaiseHand(context.Context, domain.MeetingID, domain.PeerID, bool) error {
	return nil
}

func (f *fakeCoordinator) ChatMessage(context.Context, domain.MeetingID, domain.PeerID, string) (*domain.ChatMessagePayload, error) {
	return nil, nil
}

func (f *fakeCoordinator) ReportNetworkQuality(context.Context, domain.MeetingID, domain.PeerID, int) error {
	return nil
}

func (f *fakeCoordinator) ReportViolation(context.Context, domain.MeetingID, domain.PeerID, domain.ViolationRecord) error {
	return nil
}

func (f *fakeCoordinator) ResolvePeer(domain.MeetingID, domain.ParticipantID) (domain.PeerID, error) {
	return "", nil
}

func (f *fakeCoordinator) ApplyRemoteEvent(context.Context, domain.MeetingID, domain.Event) error {
	return nil
}

func (f *fakeCoordinator) Shutdown(context.Context) error { return nil }

func TestRouter_TracksAttachInCreationOrder(t *testing.T) {
	r, _ := newTestRouter(t)
	connectPeer(t, r, "p1")

	camera, err := r.Produce(context.Background(), "p1", domain.KindVideo, domain.AppData{Source: domain.SourceCamera}, nil)
	require.NoError(t, err)
	screen, err := r.Produce(context.Background(), "p1", domain.KindVideo, domain.AppData{Source: domain.SourceScreen}, nil)
	require.NoError(t, err)

	first := r.claimProducer("p1", domain.KindVideo)
	require.NotNil(t, first)
	assert.Equal(t, camera.ID, first.ID, "first arriving track belongs to the first registered producer")

	second := r.claimProducer("p1", domain.KindVideo)
	require.NotNil(t, second)
	assert.Equal(t, screen.ID, second.ID)

	assert.Nil(t, r.claimProducer("p1", domain.KindVideo), "no unattached video producers remain")
}
