package ports

import (
	"context"
	"time"

	"meetrix/internal/core/domain"
)

// EventSink delivers signaling events to one connected peer. The
// websocket layer implements it; tests substitute in-memory sinks.
type EventSink interface {
	Send(event domain.Event) error
	Close() error
}

// JoinRequest carries everything the coordinator needs to admit (or
// queue) a new connection.
type JoinRequest struct {
	MeetingID     domain.MeetingID
	ParticipantID domain.ParticipantID
	DisplayName   string
	Role          domain.Role
	Sink          EventSink
}

// JoinResult is returned synchronously from Join. When Admission is
// waiting the media fields are zero; the room_joined payload is
// delivered through the sink upon admission.
type JoinResult struct {
	PeerID            domain.PeerID
	Admission         domain.AdmissionState
	RoutingCapability domain.RoutingCapability
	ExistingProducers []domain.ProducerInfo
	Peers             []domain.PeerSummary
}

// Coordinator is the authoritative per-room membership state machine
// and event fanout. All room mutations are serialized per room; rooms
// never share a lock.
type Coordinator interface {
	Join(ctx context.Context, req JoinRequest) (*JoinResult, error)
	Admit(ctx context.Context, meetingID domain.MeetingID, hostPeerID, waitingPeerID domain.PeerID) error
	Leave(ctx context.Context, meetingID domain.MeetingID, peerID domain.PeerID) error
	Kick(ctx context.Context, meetingID domain.MeetingID, hostPeerID, targetPeerID domain.PeerID) error

	AnnounceProducer(ctx context.Context, meetingID domain.MeetingID, info domain.ProducerInfo) error
	AnnounceProducerClosed(ctx context.Context, meetingID domain.MeetingID, producerID domain.ProducerID) error
	SetProducerPaused(ctx context.Context, meetingID domain.MeetingID, peerID domain.PeerID, producerID domain.ProducerID, paused bool) error

	RaiseHand(ctx context.Context, meetingID domain.MeetingID, peerID domain.PeerID, raised bool) error
	ChatMessage(ctx context.Context, meetingID domain.MeetingID, peerID domain.PeerID, content string) (*domain.ChatMessagePayload, error)
	ReportNetworkQuality(ctx context.Context, meetingID domain.MeetingID, peerID domain.PeerID, quality int) error
	ReportViolation(ctx context.Context, meetingID domain.MeetingID, peerID domain.PeerID, violation domain.ViolationRecord) error

	// ResolvePeer maps a stable participant identity to its live peer.
	ResolvePeer(meetingID domain.MeetingID, participantID domain.ParticipantID) (domain.PeerID, error)

	// ApplyRemoteEvent mirrors a room event received from another
	// instance into the local fanout. Meetings not hosted here are
	// ignored.
	ApplyRemoteEvent(ctx context.Context, meetingID domain.MeetingID, event domain.Event) error

	// Shutdown closes every room, notifying remaining peers.
	Shutdown(ctx context.Context) error
}

// MediaRoom is the per-room media-routing capability the coordinator
// drives but does not implement.
type MediaRoom interface {
	Capability() domain.RoutingCapability
	ClosePeer(ctx context.Context, peerID domain.PeerID) error
	Close() error
}

// MediaRoomProvider creates or fetches the media routing for a room.
type MediaRoomProvider interface {
	GetOrCreate(ctx context.Context, meetingID domain.MeetingID) (MediaRoom, error)
}

// StatsSource samples send-transport stats for every peer in a room,
// feeding the network quality monitor.
type StatsSource interface {
	ActiveRooms() []domain.MeetingID
	RoomStats(ctx context.Context, meetingID domain.MeetingID) map[domain.PeerID]domain.TransportStats
}

// MetricsRecorder receives session-core counters. Implemented by the
// Prometheus collector and by the in-memory metrics service.
type MetricsRecorder interface {
	RecordRoomOpened(meetingID domain.MeetingID)
	RecordRoomClosed(meetingID domain.MeetingID)
	RecordPeerJoined(meetingID domain.MeetingID, waiting bool)
	RecordPeerAdmitted(meetingID domain.MeetingID)
	RecordPeerLeft(meetingID domain.MeetingID)
	RecordProducerOpened(meetingID domain.MeetingID, kind domain.MediaKind)
	RecordProducerClosed(meetingID domain.MeetingID, kind domain.MediaKind)
	RecordConsumerOpened(meetingID domain.MeetingID)
	RecordConsumerClosed(meetingID domain.MeetingID)
	RecordChatMessage(meetingID domain.MeetingID)
	RecordViolation(meetingID domain.MeetingID, violationType domain.ViolationType)
	RecordNegotiation(meetingID domain.MeetingID, duration time.Duration)
}

// EventPublisher mirrors room events to other signal instances.
type EventPublisher interface {
	PublishRoomEvent(ctx context.Context, meetingID domain.MeetingID, event domain.Event) error
}
