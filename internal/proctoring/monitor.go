// Package proctoring gates session participation on device consent and
// keeps the integrity audit trail. It owns device acquisition while a
// session runs; transports only ever receive already-acquired tracks.
package proctoring

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"meetrix/internal/core/domain"
)

// SurfaceType describes what a screen capture grant actually covers.
type SurfaceType string

const (
	SurfaceMonitor SurfaceType = "monitor"
	SurfaceWindow  SurfaceType = "window"
	SurfaceBrowser SurfaceType = "browser"
)

// CaptureTrack is one live capture handle returned by the device layer.
type CaptureTrack interface {
	Kind() domain.MediaKind
	Stop()
}

// ScreenCapture is a screen-share grant together with its surface type.
// Surface is inspected before the grant is accepted.
type ScreenCapture struct {
	Track   CaptureTrack
	Surface SurfaceType
}

// Devices abstracts the capture layer so policy can be tested without
// real hardware. Denied access is reported via the error return.
type Devices interface {
	RequestCamera(ctx context.Context) (CaptureTrack, error)
	RequestMicrophone(ctx context.Context) (CaptureTrack, error)
	RequestScreenShare(ctx context.Context) (*ScreenCapture, error)
}

// Monitor is the per-participant proctoring policy gate. All state
// transitions go through its methods; violations accumulate as data and
// never abort the session.
type Monitor struct {
	devices Devices
	logger  *zap.SugaredLogger

	mu                 sync.Mutex
	cameraAllowed      bool
	micAllowed         bool
	screenShareActive  bool
	isEntireScreen     bool
	isFullscreen       bool
	fullscreenRequired bool
	violations         []domain.ViolationRecord

	cameraTrack CaptureTrack
	micTrack    CaptureTrack
	screenTrack CaptureTrack
}

func NewMonitor(devices Devices, fullscreenRequired bool, logger *zap.SugaredLogger) *Monitor {
	return &Monitor{
		devices:            devices,
		fullscreenRequired: fullscreenRequired,
		logger:             logger,
	}
}

// RequestCamera asks the device layer for camera access. Denial leaves
// state unchanged and returns false; it is never an error to the caller.
func (m *Monitor) RequestCamera(ctx context.Context) bool {
	track, err := m.devices.RequestCamera(ctx)
	if err != nil {
		m.logger.Warnw("camera access denied", "error", err)
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.cameraAllowed = true
	m.cameraTrack = track
	return true
}

// RequestMic asks the device layer for microphone access.
func (m *Monitor) RequestMic(ctx context.Context) bool {
	track, err := m.devices.RequestMicrophone(ctx)
	if err != nil {
		m.logger.Warnw("microphone access denied", "error", err)
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.micAllowed = true
	m.micTrack = track
	return true
}

// RequestScreenShare asks for a screen capture grant and accepts it only
// when the entire display was shared. A window or tab grant is stopped
// immediately and treated as non-compliant, not as partial success.
func (m *Monitor) RequestScreenShare(ctx context.Context) bool {
	capture, err := m.devices.RequestScreenShare(ctx)
	if err != nil {
		m.logger.Warnw("screen share denied", "error", err)
		return false
	}

	if capture.Surface != SurfaceMonitor {
		m.logger.Warnw("screen share rejected, partial surface",
			"surface", capture.Surface,
		)
		if capture.Track != nil {
			capture.Track.Stop()
		}
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.screenShareActive = true
	m.isEntireScreen = true
	m.screenTrack = capture.Track
	return true
}

// EnterFullscreen records fullscreen compliance.
func (m *Monitor) EnterFullscreen() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.isFullscreen = true
}

// ExitFullscreen records the exit and, when the session requires
// fullscreen, appends a fullscreen_exit violation.
func (m *Monitor) ExitFullscreen() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.isFullscreen = false
	if m.fullscreenRequired {
		m.appendLocked(domain.ViolationFullscreenExit)
	}
}

// OnScreenShareEnded handles the share track stopping outside an
// explicit teardown.
func (m *Monitor) OnScreenShareEnded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.screenShareActive {
		return
	}
	m.screenShareActive = false
	m.isEntireScreen = false
	m.screenTrack = nil
	m.appendLocked(domain.ViolationScreenShareEnded)
}

// OnVisibilityChanged handles the session surface being hidden. A tab
// switch while fullscreen is required is a violation; every occurrence
// is appended, never deduplicated.
func (m *Monitor) OnVisibilityChanged(hidden bool) {
	if !hidden {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fullscreenRequired {
		m.appendLocked(domain.ViolationTabSwitch)
	}
}

// AllRequirementsMet is the predicate that gates starting a proctored
// session: camera, mic and entire-screen share must all hold.
func (m *Monitor) AllRequirementsMet() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cameraAllowed && m.micAllowed && m.screenShareActive && m.isEntireScreen
}

// Violations returns a copy of the audit log in append order.
func (m *Monitor) Violations() []domain.ViolationRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ViolationRecord, len(m.violations))
	copy(out, m.violations)
	return out
}

// ResetViolations clears the log for reuse of the same instance between
// sessions. Nothing clears it implicitly.
func (m *Monitor) ResetViolations() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.violations = nil
}

// StopAll releases every held capture track.
func (m *Monitor) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, track := range []CaptureTrack{m.cameraTrack, m.micTrack, m.screenTrack} {
		if track != nil {
			track.Stop()
		}
	}
	m.cameraTrack = nil
	m.micTrack = nil
	m.screenTrack = nil
	m.cameraAllowed = false
	m.micAllowed = false
	m.screenShareActive = false
	m.isEntireScreen = false
	m.isFullscreen = false
}

func (m *Monitor) appendLocked(t domain.ViolationType) {
	record := domain.ViolationRecord{Type: t, Timestamp: time.Now()}
	m.violations = append(m.violations, record)
	m.logger.Warnw("proctoring violation",
		"type", t,
		"count", len(m.violations),
	)
}
