package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"meetrix/internal/core/ports"
)

// NetworkMonitor periodically samples send-transport stats for every
// active room, scores them and pushes the result through the
// coordinator's throttled quality fanout.
type NetworkMonitor struct {
	coordinator ports.Coordinator
	stats       ports.StatsSource
	quality     *QualityService
	interval    time.Duration
	logger      *zap.SugaredLogger

	stop    chan struct{}
	stopped sync.Once
}

func NewNetworkMonitor(
	coordinator ports.Coordinator,
	stats ports.StatsSource,
	quality *QualityService,
	interval time.Duration,
	logger *zap.SugaredLogger,
) *NetworkMonitor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &NetworkMonitor{
		coordinator: coordinator,
		stats:       stats,
		quality:     quality,
		interval:    interval,
		logger:      logger,
		stop:        make(chan struct{}),
	}
}

func (nm *NetworkMonitor) Start(ctx context.Context) {
	go nm.run(ctx)
	nm.logger.Infow("network monitor started", "interval", nm.interval)
}

func (nm *NetworkMonitor) Stop() {
	nm.stopped.Do(func() { close(nm.stop) })
}

func (nm *NetworkMonitor) run(ctx context.Context) {
	ticker := time.NewTicker(nm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-nm.stop:
			return
		case <-ticker.C:
			nm.poll(ctx)
		}
	}
}

func (nm *NetworkMonitor) poll(ctx context.Context) {
	for _, meetingID := range nm.stats.ActiveRooms() {
		samples := nm.stats.RoomStats(ctx, meetingID)
		for peerID, sample := range samples {
			score := nm.quality.Score(sample)
			if err := nm.coordinator.ReportNetworkQuality(ctx, meetingID, peerID, score); err != nil {
				nm.logger.Debugw("quality report failed",
					"meeting_id", meetingID, "peer_id", peerID, "error", err)
			}
		}
	}
}
