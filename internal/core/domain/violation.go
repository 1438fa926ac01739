package domain

import "time"

// ViolationType names a session-integrity policy breach.
type ViolationType string

const (
	ViolationTabSwitch        ViolationType = "tab_switch"
	ViolationFullscreenExit   ViolationType = "fullscreen_exit"
	ViolationScreenShareEnded ViolationType = "screen_share_ended"
)

// ViolationRecord is one append-only audit entry. Records are never
// mutated or deleted during a session; the count at session end must
// equal the true number of breaches.
type ViolationRecord struct {
	Type      ViolationType `json:"type"`
	Timestamp time.Time     `json:"timestamp"`
}
