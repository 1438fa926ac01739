package domain

import "time"

type TransportID string
type ProducerID string
type ConsumerID string

// TransportDirection is the single direction a negotiated channel
// carries media in. A peer owns at most one transport per direction.
type TransportDirection string

const (
	DirectionSend TransportDirection = "send"
	DirectionRecv TransportDirection = "recv"
)

// TransportState follows the ICE/DTLS handshake.
type TransportState string

const (
	TransportNew        TransportState = "new"
	TransportConnecting TransportState = "connecting"
	TransportConnected  TransportState = "connected"
	TransportClosed     TransportState = "closed"
)

// MediaKind is the track kind on the wire. Screen shares travel as
// kind=video tagged through AppData.
type MediaKind string

const (
	KindAudio MediaKind = "audio"
	KindVideo MediaKind = "video"
)

// ProducerState is the mutable lifecycle state of a published track.
type ProducerState string

const (
	ProducerActive ProducerState = "active"
	ProducerPaused ProducerState = "paused"
	ProducerClosed ProducerState = "closed"
)

// SimulcastLayer is one encoding tier of a video producer. Layers are
// fixed at producer creation and never renegotiated.
type SimulcastLayer struct {
	MaxBitrate  int     `json:"max_bitrate"`
	ScaleDownBy float64 `json:"scale_down_by"`
}

// ProducerInfo describes a producer to other peers (join snapshot and
// new_producer fanout).
type ProducerInfo struct {
	ProducerID ProducerID `json:"producer_id"`
	PeerID     PeerID     `json:"peer_id"`
	Kind       MediaKind  `json:"kind"`
	AppData    AppData    `json:"app_data"`
}

// TransportStats is the sample fed into quality scoring.
type TransportStats struct {
	RTT             time.Duration
	FractionLost    float64
	BitrateBPS      int
	PacketsReceived uint64
	SampledAt       time.Time
}
