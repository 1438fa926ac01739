package domain

import "time"

type MeetingID string
type PeerID string
type ParticipantID string

// Role is assigned by the identity collaborator and carried in the
// session token.
type Role string

const (
	RoleHost        Role = "host"
	RoleParticipant Role = "participant"
	RoleObserver    Role = "observer"
)

// AdmissionState tracks a peer through the per-room membership state
// machine: connecting -> waiting -> admitted -> left|kicked, with the
// waiting step skipped when no waiting room is configured.
type AdmissionState string

const (
	AdmissionConnecting AdmissionState = "connecting"
	AdmissionWaiting    AdmissionState = "waiting"
	AdmissionAdmitted   AdmissionState = "admitted"
	AdmissionLeft       AdmissionState = "left"
	AdmissionKicked     AdmissionState = "kicked"
)

// Terminal reports whether the state machine can make no further moves.
func (s AdmissionState) Terminal() bool {
	return s == AdmissionLeft || s == AdmissionKicked
}

// Peer is one participant's live connection to a room. The peer id is
// ephemeral per connection; the participant id is stable across
// reconnects and drives the last-writer-wins identity policy.
type Peer struct {
	ID            PeerID
	ParticipantID ParticipantID
	DisplayName   string
	Role          Role
	Admission     AdmissionState
	HandRaised    bool
	Quality       int // last known network quality, 1..5, 0 = unknown
	JoinedAt      time.Time
}

// RoomInfo is a read-only snapshot of room membership returned to
// joining peers.
type RoomInfo struct {
	MeetingID MeetingID
	PeerCount int
	Peers     []PeerSummary
}

// Summary projects the peer fields other room members may see.
func (p *Peer) Summary() PeerSummary {
	return PeerSummary{
		PeerID:        p.ID,
		ParticipantID: p.ParticipantID,
		DisplayName:   p.DisplayName,
		Role:          p.Role,
		HandRaised:    p.HandRaised,
	}
}

type PeerSummary struct {
	PeerID        PeerID        `json:"peer_id"`
	ParticipantID ParticipantID `json:"participant_id"`
	DisplayName   string        `json:"display_name"`
	Role          Role          `json:"role"`
	HandRaised    bool          `json:"hand_raised"`
}
