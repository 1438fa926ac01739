package webrtc

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"meetrix/internal/core/domain"
	"meetrix/internal/core/ports"
)

// Session is one peer's media-transport manager: it drives the
// router's primitives for that peer and keeps the coordinator's view
// of producers in sync with the routing fabric.
type Session struct {
	meetingID   domain.MeetingID
	peerID      domain.PeerID
	router      *Router
	coordinator ports.Coordinator
	logger      *zap.SugaredLogger

	mu        sync.Mutex
	remoteCap *domain.RoutingCapability
}

func NewSession(meetingID domain.MeetingID, peerID domain.PeerID, router *Router, coordinator ports.Coordinator, logger *zap.SugaredLogger) *Session {
	return &Session{
		meetingID:   meetingID,
		peerID:      peerID,
		router:      router,
		coordinator: coordinator,
		logger:      logger,
	}
}

// LoadCapability records the peer's device capability. Both media
// kinds must overlap with the room's routing capability; a device
// that can handle neither audio nor video cannot take part.
func (s *Session) LoadCapability(remote domain.RoutingCapability) error {
	routing := s.router.Capability()
	overlap := false
	for _, codec := range routing.Codecs {
		if remote.CanConsume(codec.Kind, codec.MimeType) {
			overlap = true
			break
		}
	}
	if !overlap {
		return domain.ErrUnsupportedCapability
	}

	s.mu.Lock()
	s.remoteCap = &remote
	s.mu.Unlock()
	return nil
}

func (s *Session) CapabilityLoaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remoteCap != nil
}

func (s *Session) CreateTransport(ctx context.Context, direction domain.TransportDirection) (*TransportParameters, error) {
	return s.router.CreateTransport(ctx, s.peerID, direction)
}

func (s *Session) ConnectTransport(ctx context.Context, transportID domain.TransportID, answerSDP string) error {
	return s.router.ConnectTransport(ctx, s.peerID, transportID, answerSDP)
}

// Publish creates a producer and announces it to the room. The
// announcement must follow creation so the producer id other peers
// consume is already routable.
func (s *Session) Publish(ctx context.Context, kind domain.MediaKind, appData domain.AppData, layers []domain.SimulcastLayer) (domain.ProducerInfo, error) {
	producer, err := s.router.Produce(ctx, s.peerID, kind, appData, layers)
	if err != nil {
		return domain.ProducerInfo{}, err
	}

	info := producer.Info()
	if err := s.coordinator.AnnounceProducer(ctx, s.meetingID, info); err != nil {
		// The room rejected the announcement; do not leave an
		// unannounced producer routing media.
		_ = s.router.CloseProducer(ctx, s.peerID, producer.ID)
		return domain.ProducerInfo{}, err
	}
	return info, nil
}

// Unpublish closes the producer and tells the room. Safe to call for a
// producer that is already gone.
func (s *Session) Unpublish(ctx context.Context, producerID domain.ProducerID) error {
	if err := s.router.CloseProducer(ctx, s.peerID, producerID); err != nil {
		return err
	}
	return s.coordinator.AnnounceProducerClosed(ctx, s.meetingID, producerID)
}

func (s *Session) PauseProducer(ctx context.Context, producerID domain.ProducerID) error {
	if err := s.router.PauseProducer(s.peerID, producerID); err != nil {
		return err
	}
	return s.coordinator.SetProducerPaused(ctx, s.meetingID, s.peerID, producerID, true)
}

func (s *Session) ResumeProducer(ctx context.Context, producerID domain.ProducerID) error {
	if err := s.router.ResumeProducer(s.peerID, producerID); err != nil {
		return err
	}
	return s.coordinator.SetProducerPaused(ctx, s.meetingID, s.peerID, producerID, false)
}

// Consume subscribes to a producer using the capability loaded
// earlier. The consumer comes back paused.
func (s *Session) Consume(ctx context.Context, producerID domain.ProducerID) (*ConsumerParameters, error) {
	s.mu.Lock()
	remote := s.remoteCap
	s.mu.Unlock()
	if remote == nil {
		return nil, domain.ErrUnsupportedCapability
	}
	return s.router.Consume(ctx, s.peerID, producerID, *remote)
}

func (s *Session) ResumeConsumer(ctx context.Context, consumerID domain.ConsumerID) error {
	return s.router.ResumeConsumer(s.peerID, consumerID)
}

func (s *Session) PauseConsumer(ctx context.Context, consumerID domain.ConsumerID) error {
	return s.router.PauseConsumer(s.peerID, consumerID)
}

// Stats samples the peer's send transport.
func (s *Session) Stats(ctx context.Context) (domain.TransportStats, error) {
	return s.router.Stats(s.peerID)
}
