package services

import (
	"meetrix/internal/core/domain"
)

// QualityService maps raw send-transport samples onto the 1..5 network
// quality scale shown next to each participant tile.
type QualityService struct {
	severeLossThreshold   float64
	elevatedLossThreshold float64
	lowBitrateBPS         int
	fairBitrateBPS        int
	goodBitrateBPS        int
}

func NewQualityService() *QualityService {
	return &QualityService{
		severeLossThreshold:   0.10,
		elevatedLossThreshold: 0.05,
		lowBitrateBPS:         50_000,
		fairBitrateBPS:        150_000,
		goodBitrateBPS:        400_000,
	}
}

// Score folds packet loss and uplink bitrate into a single quality
// level. A silent transport (zero bitrate) is indistinguishable from a
// dead one and scores worst.
func (qs *QualityService) Score(stats domain.TransportStats) int {
	if stats.FractionLost > qs.severeLossThreshold || stats.BitrateBPS == 0 {
		return 1
	}
	if stats.FractionLost > qs.elevatedLossThreshold || stats.BitrateBPS < qs.lowBitrateBPS {
		return 2
	}
	if stats.BitrateBPS < qs.fairBitrateBPS {
		return 3
	}
	if stats.BitrateBPS < qs.goodBitrateBPS {
		return 4
	}
	return 5
}
