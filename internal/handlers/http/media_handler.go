package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"meetrix/internal/core/domain"
	"meetrix/internal/core/ports"
	"meetrix/internal/infrastructure/webrtc"
	apperrors "meetrix/pkg/errors"
)

// MediaHandler exposes the media-transport operations over HTTP. The
// auth middleware resolves the caller's participant identity; the
// handler maps it to the live peer so clients never pass peer ids
// they could forge.
type MediaHandler struct {
	manager     *webrtc.Manager
	coordinator ports.Coordinator
}

func NewMediaHandler(manager *webrtc.Manager, coordinator ports.Coordinator) *MediaHandler {
	return &MediaHandler{
		manager:     manager,
		coordinator: coordinator,
	}
}

func (h *MediaHandler) SetupRoutes(api *gin.RouterGroup) {
	meetings := api.Group("/meetings/:id")
	{
		meetings.POST("/capability", h.LoadCapability)
		meetings.POST("/transports", h.CreateTransport)
		meetings.POST("/transports/:transportId/connect", h.ConnectTransport)
		meetings.POST("/producers", h.Produce)
		meetings.POST("/producers/:producerId/pause", h.PauseProducer)
		meetings.POST("/producers/:producerId/resume", h.ResumeProducer)
		meetings.DELETE("/producers/:producerId", h.CloseProducer)
		meetings.POST("/consumers", h.Consume)
		meetings.POST("/consumers/:consumerId/resume", h.ResumeConsumer)
		meetings.POST("/consumers/:consumerId/pause", h.PauseConsumer)
		meetings.GET("/stats", h.TransportStats)
	}
}

// session resolves the caller's media session from the authenticated
// participant id set by the auth middleware.
func (h *MediaHandler) session(c *gin.Context) (*webrtc.Session, bool) {
	meetingID := domain.MeetingID(c.Param("id"))
	participantID, ok := c.Get("participant_id")
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing session identity"})
		return nil, false
	}

	peerID, err := h.coordinator.ResolvePeer(meetingID, participantID.(domain.ParticipantID))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	s, err := h.manager.Session(meetingID, peerID, h.coordinator)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return s, true
}

func (h *MediaHandler) LoadCapability(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var req domain.RoutingCapability
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.LoadCapability(req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"loaded": true})
}

func (h *MediaHandler) CreateTransport(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var req struct {
		Direction domain.TransportDirection `json:"direction" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Direction != domain.DirectionSend && req.Direction != domain.DirectionRecv {
		c.JSON(http.StatusBadRequest, gin.H{"error": "direction must be send or recv"})
		return
	}

	params, err := s.CreateTransport(c.Request.Context(), req.Direction)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transport": params})
}

func (h *MediaHandler) ConnectTransport(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var req struct {
		Answer string `json:"answer" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	transportID := domain.TransportID(c.Param("transportId"))
	if err := s.ConnectTransport(c.Request.Context(), transportID, req.Answer); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": true})
}

func (h *MediaHandler) Produce(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var req struct {
		Kind    domain.MediaKind        `json:"kind" binding:"required"`
		AppData map[string]interface{}  `json:"app_data"`
		Layers  []domain.SimulcastLayer `json:"layers"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Kind != domain.KindAudio && req.Kind != domain.KindVideo {
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be audio or video"})
		return
	}

	appData := domain.ParseAppData(req.AppData)
	if appData.Source == domain.SourceUnknown && req.AppData == nil {
		appData = domain.DefaultAppData(req.Kind)
	}

	info, err := s.Publish(c.Request.Context(), req.Kind, appData, req.Layers)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"producer": info})
}

func (h *MediaHandler) PauseProducer(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.PauseProducer(c.Request.Context(), domain.ProducerID(c.Param("producerId"))); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"paused": true})
}

func (h *MediaHandler) ResumeProducer(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.ResumeProducer(c.Request.Context(), domain.ProducerID(c.Param("producerId"))); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"paused": false})
}

func (h *MediaHandler) CloseProducer(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.Unpublish(c.Request.Context(), domain.ProducerID(c.Param("producerId"))); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"closed": true})
}

func (h *MediaHandler) Consume(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var req struct {
		ProducerID domain.ProducerID `json:"producer_id" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	params, err := s.Consume(c.Request.Context(), req.ProducerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"consumer": params})
}

func (h *MediaHandler) ResumeConsumer(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.ResumeConsumer(c.Request.Context(), domain.ConsumerID(c.Param("consumerId"))); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"paused": false})
}

func (h *MediaHandler) PauseConsumer(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.PauseConsumer(c.Request.Context(), domain.ConsumerID(c.Param("consumerId"))); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"paused": true})
}

func (h *MediaHandler) TransportStats(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	stats, err := s.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"rtt_ms":           stats.RTT.Milliseconds(),
		"fraction_lost":    stats.FractionLost,
		"bitrate_bps":      stats.BitrateBPS,
		"packets_received": stats.PacketsReceived,
		"sampled_at":       stats.SampledAt,
	})
}

// respondError maps domain errors onto the client error codes.
func respondError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus, gin.H{"code": appErr.Code, "error": appErr.Message})
		return
	}

	switch {
	case errors.Is(err, domain.ErrRoomNotFound),
		errors.Is(err, domain.ErrPeerNotFound),
		errors.Is(err, domain.ErrProducerNotFound),
		errors.Is(err, domain.ErrConsumerNotFound),
		errors.Is(err, domain.ErrTransportNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": apperrors.ErrCodeNotFound, "error": err.Error()})
	case errors.Is(err, domain.ErrRoomFull):
		c.JSON(http.StatusConflict, gin.H{"code": apperrors.ErrCodeRoomFull, "error": err.Error()})
	case errors.Is(err, domain.ErrRoomClosed):
		c.JSON(http.StatusGone, gin.H{"code": apperrors.ErrCodeRoomClosed, "error": err.Error()})
	case errors.Is(err, domain.ErrTransportExists):
		c.JSON(http.StatusConflict, gin.H{"code": apperrors.ErrCodeInvalidInput, "error": err.Error()})
	case errors.Is(err, domain.ErrTransportNotReady):
		c.JSON(http.StatusPreconditionFailed, gin.H{"code": apperrors.ErrCodeTransportNotReady, "error": err.Error()})
	case errors.Is(err, domain.ErrNegotiationTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"code": apperrors.ErrCodeNegotiationTimeout, "error": err.Error()})
	case errors.Is(err, domain.ErrIncompatibleMedia):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"code": apperrors.ErrCodeIncompatibleMedia, "error": err.Error()})
	case errors.Is(err, domain.ErrUnsupportedCapability):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"code": apperrors.ErrCodeUnsupportedCapability, "error": err.Error()})
	case errors.Is(err, domain.ErrNotHost),
		errors.Is(err, domain.ErrPeerNotWaiting),
		errors.Is(err, domain.ErrPeerNotAdmitted):
		c.JSON(http.StatusForbidden, gin.H{"code": apperrors.ErrCodeForbidden, "error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"code": apperrors.ErrCodeInternal, "error": err.Error()})
	}
}
