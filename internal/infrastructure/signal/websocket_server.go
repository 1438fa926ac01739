package signal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"meetrix/internal/core/domain"
	"meetrix/internal/core/ports"
	"meetrix/internal/core/services"
	apperrors "meetrix/pkg/errors"
	"meetrix/pkg/validation"
)

// Config carries the connection-level knobs for the signaling channel.
type Config struct {
	PingInterval      time.Duration
	PongTimeout       time.Duration
	WriteTimeout      time.Duration
	MessagesPerSecond float64
	Burst             int
	MaxMessageSize    int64
	AllowedOrigins    []string
}

// Server is the websocket signaling endpoint. Each connection is one
// peer session: the token authenticates it, the coordinator owns its
// room membership, and the connection's sink carries room events back.
type Server struct {
	cfg         Config
	coordinator ports.Coordinator
	auth        services.AuthService
	upgrader    websocket.Upgrader
	logger      *zap.SugaredLogger
}

// ClientMessage is one inbound frame.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func NewServer(cfg Config, coordinator ports.Coordinator, auth services.AuthService, logger *zap.SugaredLogger) *Server {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.PongTimeout <= cfg.PingInterval {
		cfg.PongTimeout = 2 * cfg.PingInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.MessagesPerSecond <= 0 {
		cfg.MessagesPerSecond = 100
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 200
	}

	s := &Server{
		cfg:         cfg,
		coordinator: coordinator,
		auth:        auth,
		logger:      logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return false
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// sink pushes room events down one connection. Writes are serialized;
// a write error marks the sink dead and the reader loop tears the
// session down.
type sink struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	mu     sync.Mutex
	closed bool
}

func (w *sink) Send(event domain.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.New("connection closed")
	}
	_ = w.conn.SetWriteDeadline(time.Now().Add(w.writeTimeout))
	return w.conn.WriteJSON(event)
}

func (w *sink) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.conn.Close()
}

func (w *sink) writeControl(messageType int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.New("connection closed")
	}
	return w.conn.WriteControl(messageType, nil, time.Now().Add(w.writeTimeout))
}

func (w *sink) sendError(code apperrors.ErrorCode, message string) {
	_ = w.Send(domain.Event{
		Type: "error",
		Payload: map[string]interface{}{
			"code":    code,
			"message": message,
		},
	})
}

// HandleWebSocket upgrades the connection, joins the room named in the
// query and then relays client messages until disconnect.
// join failures are reported with a distinct code before closing so
// the client can tell full from closed from unauthorized.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	meetingID := domain.MeetingID(r.URL.Query().Get("meeting_id"))
	if err := validation.ValidateMeetingID(string(meetingID)); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	claims, err := s.auth.ValidateForMeeting(r.URL.Query().Get("token"), meetingID)
	if err != nil {
		http.Error(w, "invalid session token", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}
	if s.cfg.MaxMessageSize > 0 {
		conn.SetReadLimit(s.cfg.MaxMessageSize)
	}

	out := &sink{conn: conn, writeTimeout: s.cfg.WriteTimeout}

	result, err := s.coordinator.Join(r.Context(), ports.JoinRequest{
		MeetingID:     meetingID,
		ParticipantID: claims.ParticipantID,
		DisplayName:   claims.DisplayName,
		Role:          claims.Role,
		Sink:          out,
	})
	if err != nil {
		out.sendError(joinErrorCode(err), err.Error())
		_ = out.Close()
		return
	}

	if result.Admission == domain.AdmissionWaiting {
		_ = out.Send(domain.Event{Type: domain.EventWaitingRoom})
	}

	s.logger.Infow("peer connected",
		"meeting_id", meetingID, "peer_id", result.PeerID,
		"participant_id", claims.ParticipantID, "admission", result.Admission)

	s.serve(meetingID, result.PeerID, conn, out)
}

// serve runs the read loop plus keepalive until the connection dies,
// then removes the peer from its room.
func (s *Server) serve(meetingID domain.MeetingID, peerID domain.PeerID, conn *websocket.Conn, out *sink) {
	limiter := rate.NewLimiter(rate.Limit(s.cfg.MessagesPerSecond), s.cfg.Burst)

	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
	})

	messages := make(chan ClientMessage, 16)
	readErr := make(chan error, 1)
	// done releases the reader if serve exits on a ping failure while
	// the reader is blocked handing over a message.
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			var msg ClientMessage
			if err := conn.ReadJSON(&msg); err != nil {
				readErr <- err
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
			select {
			case messages <- msg:
			case <-done:
				return
			}
		}
	}()

	pingTicker := time.NewTicker(s.cfg.PingInterval)
	defer pingTicker.Stop()

loop:
	for {
		select {
		case msg := <-messages:
			if !limiter.Allow() {
				out.sendError(apperrors.ErrCodeRateLimit, "too many messages")
				continue
			}
			if err := s.handleMessage(context.Background(), meetingID, peerID, msg); err != nil {
				out.sendError(errorCode(err), err.Error())
			}

		case <-pingTicker.C:
			if err := out.writeControl(websocket.PingMessage); err != nil {
				break loop
			}

		case err := <-readErr:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debugw("read failed", "peer_id", peerID, "error", err)
			}
			break loop
		}
	}

	_ = out.Close()
	if err := s.coordinator.Leave(context.Background(), meetingID, peerID); err != nil &&
		!errors.Is(err, domain.ErrPeerNotFound) && !errors.Is(err, domain.ErrRoomNotFound) {
		s.logger.Warnw("leave on disconnect failed",
			"meeting_id", meetingID, "peer_id", peerID, "error", err)
	}
	s.logger.Infow("peer disconnected", "meeting_id", meetingID, "peer_id", peerID)
}

func (s *Server) handleMessage(ctx context.Context, meetingID domain.MeetingID, peerID domain.PeerID, msg ClientMessage) error {
	switch msg.Type {
	case "admit":
		var payload struct {
			PeerID domain.PeerID `json:"peer_id"`
		}
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("invalid admit payload: %w", err)
		}
		return s.coordinator.Admit(ctx, meetingID, peerID, payload.PeerID)

	case "kick":
		var payload struct {
			PeerID domain.PeerID `json:"peer_id"`
		}
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("invalid kick payload: %w", err)
		}
		return s.coordinator.Kick(ctx, meetingID, peerID, payload.PeerID)

	case "raise_hand":
		var payload struct {
			Raised bool `json:"raised"`
		}
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("invalid raise_hand payload: %w", err)
		}
		return s.coordinator.RaiseHand(ctx, meetingID, peerID, payload.Raised)

	case "chat_message":
		var payload struct {
			Content string `json:"content"`
		}
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("invalid chat_message payload: %w", err)
		}
		if err := validation.ValidateChatMessage(payload.Content); err != nil {
			return err
		}
		_, err := s.coordinator.ChatMessage(ctx, meetingID, peerID, validation.SanitizeString(payload.Content))
		return err

	case "report_quality":
		var payload struct {
			Quality int `json:"quality"`
		}
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("invalid report_quality payload: %w", err)
		}
		if err := validation.ValidateQuality(payload.Quality); err != nil {
			return err
		}
		return s.coordinator.ReportNetworkQuality(ctx, meetingID, peerID, payload.Quality)

	case "report_violation":
		var payload struct {
			Type      domain.ViolationType `json:"type"`
			Timestamp time.Time            `json:"timestamp"`
		}
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("invalid report_violation payload: %w", err)
		}
		if payload.Timestamp.IsZero() {
			payload.Timestamp = time.Now()
		}
		return s.coordinator.ReportViolation(ctx, meetingID, peerID, domain.ViolationRecord{
			Type:      payload.Type,
			Timestamp: payload.Timestamp,
		})

	case "leave_room":
		return s.coordinator.Leave(ctx, meetingID, peerID)

	default:
		return fmt.Errorf("unknown message type: %s", msg.Type)
	}
}

// joinErrorCode keeps join failures distinguishable on the wire.
func joinErrorCode(err error) apperrors.ErrorCode {
	switch {
	case errors.Is(err, domain.ErrRoomFull):
		return apperrors.ErrCodeRoomFull
	case errors.Is(err, domain.ErrRoomClosed):
		return apperrors.ErrCodeRoomClosed
	default:
		return apperrors.ErrCodeInternal
	}
}

func errorCode(err error) apperrors.ErrorCode {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound),
		errors.Is(err, domain.ErrPeerNotFound),
		errors.Is(err, domain.ErrProducerNotFound),
		errors.Is(err, domain.ErrConsumerNotFound),
		errors.Is(err, domain.ErrTransportNotFound):
		return apperrors.ErrCodeNotFound
	case errors.Is(err, domain.ErrRoomFull):
		return apperrors.ErrCodeRoomFull
	case errors.Is(err, domain.ErrRoomClosed):
		return apperrors.ErrCodeRoomClosed
	case errors.Is(err, domain.ErrNotHost),
		errors.Is(err, domain.ErrPeerNotWaiting),
		errors.Is(err, domain.ErrPeerNotAdmitted):
		return apperrors.ErrCodeForbidden
	case errors.Is(err, domain.ErrTransportNotReady):
		return apperrors.ErrCodeTransportNotReady
	case errors.Is(err, domain.ErrNegotiationTimeout):
		return apperrors.ErrCodeNegotiationTimeout
	case errors.Is(err, domain.ErrIncompatibleMedia):
		return apperrors.ErrCodeIncompatibleMedia
	case errors.Is(err, domain.ErrUnsupportedCapability):
		return apperrors.ErrCodeUnsupportedCapability
	case errors.Is(err, domain.ErrPermissionDenied):
		return apperrors.ErrCodePermissionDenied
	default:
		return apperrors.ErrCodeInvalidInput
	}
}
