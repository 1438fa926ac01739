package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"meetrix/internal/core/domain"
)

// PrometheusCollector exports session-core counters. It satisfies
// ports.MetricsRecorder so the coordinator records through it without
// knowing about Prometheus.
type PrometheusCollector struct {
	roomsActive     prometheus.Gauge
	roomsTotal      prometheus.Counter
	peersTotal      prometheus.Counter
	chatTotal       prometheus.Counter
	violationsTotal *prometheus.CounterVec

	roomPeers     *prometheus.GaugeVec
	roomWaiting   *prometheus.GaugeVec
	roomProducers *prometheus.GaugeVec
	roomConsumers *prometheus.GaugeVec

	negotiationSeconds prometheus.Histogram
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		roomsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "meetrix_rooms_active",
			Help: "Number of currently open rooms",
		}),

		roomsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "meetrix_rooms_opened_total",
			Help: "Total number of rooms opened since start",
		}),

		peersTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "meetrix_peers_joined_total",
			Help: "Total number of peer joins since start",
		}),

		chatTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "meetrix_chat_messages_total",
			Help: "Total number of chat messages relayed",
		}),

		violationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "meetrix_proctoring_violations_total",
			Help: "Total number of proctoring violations reported",
		}, []string{"type"}),

		roomPeers: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "meetrix_room_peers",
			Help: "Number of admitted peers per room",
		}, []string{"meeting_id"}),

		roomWaiting: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "meetrix_room_waiting_peers",
			Help: "Number of peers in the waiting room",
		}, []string{"meeting_id"}),

		roomProducers: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "meetrix_room_producers",
			Help: "Number of live producers per room",
		}, []string{"meeting_id", "kind"}),

		roomConsumers: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "meetrix_room_consumers",
			Help: "Number of live consumers per room",
		}, []string{"meeting_id"}),

		negotiationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "meetrix_transport_negotiation_seconds",
			Help:    "Transport handshake duration from connect request to connected",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		}),
	}
}

func (p *PrometheusCollector) RecordRoomOpened(meetingID domain.MeetingID) {
	p.roomsActive.Inc()
	p.roomsTotal.Inc()
}

func (p *PrometheusCollector) RecordRoomClosed(meetingID domain.MeetingID) {
	p.roomsActive.Dec()
	id := string(meetingID)
	p.roomPeers.DeleteLabelValues(id)
	p.roomWaiting.DeleteLabelValues(id)
	p.roomConsumers.DeleteLabelValues(id)
	p.roomProducers.DeleteLabelValues(id, string(domain.KindAudio))
	p.roomProducers.DeleteLabelValues(id, string(domain.KindVideo))
}

func (p *PrometheusCollector) RecordPeerJoined(meetingID domain.MeetingID, waiting bool) {
	p.peersTotal.Inc()
	if waiting {
		p.roomWaiting.WithLabelValues(string(meetingID)).Inc()
	} else {
		p.roomPeers.WithLabelValues(string(meetingID)).Inc()
	}
}

func (p *PrometheusCollector) RecordPeerAdmitted(meetingID domain.MeetingID) {
	p.roomWaiting.WithLabelValues(string(meetingID)).Dec()
	p.roomPeers.WithLabelValues(string(meetingID)).Inc()
}

func (p *PrometheusCollector) RecordPeerLeft(meetingID domain.MeetingID) {
	p.roomPeers.WithLabelValues(string(meetingID)).Dec()
}

func (p *PrometheusCollector) RecordProducerOpened(meetingID domain.MeetingID, kind domain.MediaKind) {
	p.roomProducers.WithLabelValues(string(meetingID), string(kind)).Inc()
}

func (p *PrometheusCollector) RecordProducerClosed(meetingID domain.MeetingID, kind domain.MediaKind) {
	p.roomProducers.WithLabelValues(string(meetingID), string(kind)).Dec()
}

func (p *PrometheusCollector) RecordConsumerOpened(meetingID domain.MeetingID) {
	p.roomConsumers.WithLabelValues(string(meetingID)).Inc()
}

func (p *PrometheusCollector) RecordConsumerClosed(meetingID domain.MeetingID) {
	p.roomConsumers.WithLabelValues(string(meetingID)).Dec()
}

func (p *PrometheusCollector) RecordChatMessage(meetingID domain.MeetingID) {
	p.chatTotal.Inc()
}

func (p *PrometheusCollector) RecordViolation(meetingID domain.MeetingID, violationType domain.ViolationType) {
	p.violationsTotal.WithLabelValues(string(violationType)).Inc()
}

func (p *PrometheusCollector) RecordNegotiation(meetingID domain.MeetingID, duration time.Duration) {
	p.negotiationSeconds.Observe(duration.Seconds())
}
