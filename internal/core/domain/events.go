package domain

import "time"

// EventType names the signaling events fanned out to room members.
type EventType string

const (
	EventRoomJoined         EventType = "room_joined"
	EventWaitingRoom        EventType = "waiting_room"
	EventParticipantWaiting EventType = "participant_waiting"
	EventNewPeer            EventType = "new_peer"
	EventPeerLeft           EventType = "peer_left"
	EventNewProducer        EventType = "new_producer"
	EventProducerClosed     EventType = "producer_closed"
	EventProducerPaused     EventType = "producer_paused"
	EventProducerResumed    EventType = "producer_resumed"
	EventHandRaised         EventType = "hand_raised"
	EventChatMessage        EventType = "chat_message"
	EventNetworkQuality     EventType = "network_quality"
	EventKicked             EventType = "kicked"
	EventSessionReplaced    EventType = "session_replaced"
	EventRoomClosed         EventType = "room_closed"
)

// Event is one fanout unit. Payload shapes are the structs below.
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

type RoomJoinedPayload struct {
	PeerID            PeerID            `json:"peer_id"`
	RoutingCapability RoutingCapability `json:"routing_capability"`
	ExistingProducers []ProducerInfo    `json:"existing_producers"`
	Peers             []PeerSummary     `json:"peers"`
	PeerCount         int               `json:"peer_count"`
}

type ParticipantWaitingPayload struct {
	ParticipantID ParticipantID `json:"participant_id"`
	DisplayName   string        `json:"display_name"`
	PeerID        PeerID        `json:"peer_id"`
}

type NewPeerPayload struct {
	PeerID      PeerID `json:"peer_id"`
	DisplayName string `json:"display_name"`
	Role        Role   `json:"role"`
}

type PeerLeftPayload struct {
	PeerID PeerID `json:"peer_id"`
	Reason string `json:"reason,omitempty"`
}

type ProducerClosedPayload struct {
	ProducerID ProducerID `json:"producer_id"`
	PeerID     PeerID     `json:"peer_id"`
}

type ProducerStatePayload struct {
	ProducerID ProducerID `json:"producer_id"`
	PeerID     PeerID     `json:"peer_id"`
	Paused     bool       `json:"paused"`
}

type HandRaisedPayload struct {
	PeerID PeerID `json:"peer_id"`
	Raised bool   `json:"raised"`
}

type ChatMessagePayload struct {
	ID            string        `json:"id"`
	PeerID        PeerID        `json:"peer_id"`
	ParticipantID ParticipantID `json:"participant_id"`
	DisplayName   string        `json:"display_name"`
	Content       string        `json:"content"`
	CreatedAt     time.Time     `json:"created_at"`
}

type NetworkQualityPayload struct {
	PeerID  PeerID `json:"peer_id"`
	Quality int    `json:"quality"`
}
