package webrtc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pion/webrtc/v3"

	"meetrix/internal/core/domain"
)

// peerConnection is the slice of *webrtc.PeerConnection the transport
// layer uses. Tests substitute a fake; production always passes the
// real thing.
type peerConnection interface {
	CreateOffer(options *webrtc.OfferOptions) (webrtc.SessionDescription, error)
	SetLocalDescription(desc webrtc.SessionDescription) error
	LocalDescription() *webrtc.SessionDescription
	SetRemoteDescription(desc webrtc.SessionDescription) error
	AddTrack(track webrtc.TrackLocal) (*webrtc.RTPSender, error)
	RemoveTrack(sender *webrtc.RTPSender) error
	AddTransceiverFromKind(kind webrtc.RTPCodecType, init ...webrtc.RTPTransceiverInit) (*webrtc.RTPTransceiver, error)
	OnConnectionStateChange(f func(webrtc.PeerConnectionState))
	OnTrack(f func(*webrtc.TrackRemote, *webrtc.RTPReceiver))
	Close() error
}

// Transport is one unidirectional media channel between a peer and the
// router: send carries the peer's published media in, recv carries
// consumed media out. The DTLS/ICE handshake parameters travel as SDP;
// Connect resolves once the channel reaches connected or fails after
// the negotiation timeout.
type Transport struct {
	id        domain.TransportID
	direction domain.TransportDirection
	pc        peerConnection
	timeout   time.Duration

	mu        sync.Mutex
	state     domain.TransportState
	connected chan struct{}
	connOnce  sync.Once
	closed    bool
}

func newTransport(id domain.TransportID, direction domain.TransportDirection, pc peerConnection, timeout time.Duration) *Transport {
	t := &Transport{
		id:        id,
		direction: direction,
		pc:        pc,
		timeout:   timeout,
		state:     domain.TransportNew,
		connected: make(chan struct{}),
	}
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		switch state {
		case webrtc.PeerConnectionStateConnected:
			t.mu.Lock()
			if !t.closed {
				t.state = domain.TransportConnected
			}
			t.mu.Unlock()
			t.connOnce.Do(func() { close(t.connected) })
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			t.mu.Lock()
			if !t.closed {
				t.state = domain.TransportClosed
			}
			t.mu.Unlock()
		}
	})
	return t
}

func (t *Transport) ID() domain.TransportID               { return t.id }
func (t *Transport) Direction() domain.TransportDirection { return t.direction }

func (t *Transport) State() domain.TransportState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Ready reports whether the channel finished its handshake and can
// carry media.
func (t *Transport) Ready() bool {
	return t.State() == domain.TransportConnected
}

// Offer produces the local handshake parameters for the client to
// answer.
func (t *Transport) Offer() (string, error) {
	offer, err := t.pc.CreateOffer(nil)
	if err != nil {
		return "", fmt.Errorf("failed to create offer: %w", err)
	}
	if err := t.pc.SetLocalDescription(offer); err != nil {
		return "", fmt.Errorf("failed to set local description: %w", err)
	}
	if local := t.pc.LocalDescription(); local != nil {
		return local.SDP, nil
	}
	return offer.SDP, nil
}

// Connect applies the client's answer and blocks until the channel is
// connected, the context is done, or the negotiation timeout fires.
// Connecting an already connected transport is a no-op.
func (t *Transport) Connect(ctx context.Context, answerSDP string) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return domain.ErrTransportNotFound
	}
	if t.state == domain.TransportConnected {
		t.mu.Unlock()
		return nil
	}
	t.state = domain.TransportConnecting
	t.mu.Unlock()

	answer := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: answerSDP}
	if err := t.pc.SetRemoteDescription(answer); err != nil {
		return fmt.Errorf("failed to apply answer: %w", err)
	}

	timer := time.NewTimer(t.timeout)
	defer timer.Stop()

	select {
	case <-t.connected:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return domain.ErrNegotiationTimeout
	}
}

func (t *Transport) addTrack(track webrtc.TrackLocal) (*webrtc.RTPSender, error) {
	return t.pc.AddTrack(track)
}

func (t *Transport) removeTrack(sender *webrtc.RTPSender) error {
	return t.pc.RemoveTrack(sender)
}

func (t *Transport) addReceiver(kind webrtc.RTPCodecType) error {
	_, err := t.pc.AddTransceiverFromKind(kind, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	})
	return err
}

func (t *Transport) onTrack(f func(*webrtc.TrackRemote, *webrtc.RTPReceiver)) {
	t.pc.OnTrack(f)
}

// Close is idempotent.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.state = domain.TransportClosed
	t.mu.Unlock()
	return t.pc.Close()
}
