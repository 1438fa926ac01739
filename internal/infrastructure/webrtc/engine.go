package webrtc

import (
	"fmt"
	"time"

	"github.com/pion/webrtc/v3"

	"meetrix/internal/core/domain"
	"meetrix/pkg/utils"
)

// Config carries the media engine settings shared by every room.
type Config struct {
	ICEServers []webrtc.ICEServer
	PortRange  struct {
		Min uint16
		Max uint16
	}
	NegotiationTimeout time.Duration
	SimulcastLayers    []domain.SimulcastLayer
}

// Engine owns the pion API instance and the codec set every room
// routes with. Rooms share one engine; each transport gets its own
// peer connection.
type Engine struct {
	api        *webrtc.API
	cfg        Config
	capability domain.RoutingCapability
}

func NewEngine(cfg Config) (*Engine, error) {
	if cfg.NegotiationTimeout <= 0 {
		cfg.NegotiationTimeout = 20 * time.Second
	}

	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("failed to register codecs: %w", err)
	}

	settingEngine := webrtc.SettingEngine{}
	if cfg.PortRange.Min > 0 && cfg.PortRange.Max > 0 {
		if err := settingEngine.SetEphemeralUDPPortRange(cfg.PortRange.Min, cfg.PortRange.Max); err != nil {
			return nil, fmt.Errorf("invalid port range: %w", err)
		}
	}

	api := webrtc.NewAPI(
		webrtc.WithMediaEngine(mediaEngine),
		webrtc.WithSettingEngine(settingEngine),
	)

	return &Engine{
		api: api,
		cfg: cfg,
		capability: domain.RoutingCapability{
			Codecs: []domain.CodecCapability{
				{MimeType: webrtc.MimeTypeOpus, Kind: domain.KindAudio, ClockRate: 48000, Channels: 2},
				{MimeType: webrtc.MimeTypeVP8, Kind: domain.KindVideo, ClockRate: 90000},
			},
		},
	}, nil
}

// Capability returns the codec set the engine routes. It never changes
// after construction, so rooms hand it out without copying.
func (e *Engine) Capability() domain.RoutingCapability {
	return e.capability
}

func (e *Engine) Layers() []domain.SimulcastLayer {
	return e.cfg.SimulcastLayers
}

// NewTransport builds one unidirectional channel backed by a fresh
// peer connection.
func (e *Engine) NewTransport(direction domain.TransportDirection) (*Transport, error) {
	pc, err := e.api.NewPeerConnection(webrtc.Configuration{
		ICEServers:   e.cfg.ICEServers,
		SDPSemantics: webrtc.SDPSemanticsUnifiedPlan,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create peer connection: %w", err)
	}
	return newTransport(domain.TransportID(utils.GenerateTransportID()), direction, pc, e.cfg.NegotiationTimeout), nil
}
