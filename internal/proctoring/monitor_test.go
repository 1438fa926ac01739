package proctoring

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"meetrix/internal/core/domain"
)

type fakeTrack struct {
	kind    domain.MediaKind
	stopped bool
}

func (t *fakeTrack) Kind() domain.MediaKind { return t.kind }
func (t *fakeTrack) Stop()                  { t.stopped = true }

type fakeDevices struct {
	cameraErr error
	micErr    error
	screenErr error
	surface   SurfaceType

	cameraTrack *fakeTrack
	micTrack    *fakeTrack
	screenTrack *fakeTrack
}

func (d *fakeDevices) RequestCamera(ctx context.Context) (CaptureTrack, error) {
	if d.cameraErr != nil {
		return nil, d.cameraErr
	}
	d.cameraTrack = &fakeTrack{kind: domain.KindVideo}
	return d.cameraTrack, nil
}

func (d *fakeDevices) RequestMicrophone(ctx context.Context) (CaptureTrack, error) {
	if d.micErr != nil {
		return nil, d.micErr
	}
	d.micTrack = &fakeTrack{kind: domain.KindAudio}
	return d.micTrack, nil
}

func (d *fakeDevices) RequestScreenShare(ctx context.Context) (*ScreenCapture, error) {
	if d.screenErr != nil {
		return nil, d.screenErr
	}
	d.screenTrack = &fakeTrack{kind: domain.KindVideo}
	return &ScreenCapture{Track: d.screenTrack, Surface: d.surface}, nil
}

func newTestMonitor(t *testing.T, devices *fakeDevices, fullscreenRequired bool) *Monitor {
	t.Helper()
	return NewMonitor(devices, fullscreenRequired, zaptest.NewLogger(t).Sugar())
}

func TestMonitor_DeniedCameraReturnsFalseWithoutPanic(t *testing.T) {
	devices := &fakeDevices{cameraErr: domain.ErrPermissionDenied, surface: SurfaceMonitor}
	monitor := newTestMonitor(t, devices, true)

	assert.False(t, monitor.RequestCamera(context.Background()))
	assert.False(t, monitor.AllRequirementsMet())
}

func TestMonitor_AllRequirementsMet(t *testing.T) {
	devices := &fakeDevices{surface: SurfaceMonitor}
	monitor := newTestMonitor(t, devices, true)

	require.True(t, monitor.RequestCamera(context.Background()))
	require.True(t, monitor.RequestMic(context.Background()))
	assert.False(t, monitor.AllRequirementsMet(), "screen share still missing")

	require.True(t, monitor.RequestScreenShare(context.Background()))
	assert.True(t, monitor.AllRequirementsMet())
}

func TestMonitor_WindowShareRejectedAndStopped(t *testing.T) {
	devices := &fakeDevices{surface: SurfaceWindow}
	monitor := newTestMonitor(t, devices, true)

	assert.False(t, monitor.RequestScreenShare(context.Background()))
	require.NotNil(t, devices.screenTrack)
	assert.True(t, devices.screenTrack.stopped, "non-monitor capture must be stopped")
	assert.False(t, monitor.AllRequirementsMet())
}

func TestMonitor_BrowserTabShareRejected(t *testing.T) {
	devices := &fakeDevices{surface: SurfaceBrowser}
	monitor := newTestMonitor(t, devices, false)

	assert.False(t, monitor.RequestScreenShare(context.Background()))
	assert.True(t, devices.screenTrack.stopped)
}

func TestMonitor_FullscreenExitViolation(t *testing.T) {
	monitor := newTestMonitor(t, &fakeDevices{surface: SurfaceMonitor}, true)

	monitor.EnterFullscreen()
	assert.Empty(t, monitor.Violations())

	monitor.ExitFullscreen()
	violations := monitor.Violations()
	require.Len(t, violations, 1)
	assert.Equal(t, domain.ViolationFullscreenExit, violations[0].Type)
	assert.False(t, violations[0].Timestamp.IsZero())
}

func TestMonitor_FullscreenExitNotRequiredNoViolation(t *testing.T) {
	monitor := newTestMonitor(t, &fakeDevices{surface: SurfaceMonitor}, false)

	monitor.EnterFullscreen()
	monitor.ExitFullscreen()
	assert.Empty(t, monitor.Violations())
}

func TestMonitor_TabSwitchNeverDeduplicated(t *testing.T) {
	monitor := newTestMonitor(t, &fakeDevices{surface: SurfaceMonitor}, true)

	monitor.OnVisibilityChanged(true)
	monitor.OnVisibilityChanged(false)
	monitor.OnVisibilityChanged(true)

	violations := monitor.Violations()
	require.Len(t, violations, 2)
	assert.Equal(t, domain.ViolationTabSwitch, violations[0].Type)
	assert.Equal(t, domain.ViolationTabSwitch, violations[1].Type)
}

func TestMonitor_ScreenShareEndedViolation(t *testing.T) {
	devices := &fakeDevices{surface: SurfaceMonitor}
	monitor := newTestMonitor(t, devices, true)

	require.True(t, monitor.RequestScreenShare(context.Background()))
	monitor.OnScreenShareEnded()

	violations := monitor.Violations()
	require.Len(t, violations, 1)
	assert.Equal(t, domain.ViolationScreenShareEnded, violations[0].Type)
	assert.False(t, monitor.AllRequirementsMet())

	// A second end without an active share records nothing.
	monitor.OnScreenShareEnded()
	assert.Len(t, monitor.Violations(), 1)
}

func TestMonitor_ResetViolationsIsExplicitOnly(t *testing.T) {
	monitor := newTestMonitor(t, &fakeDevices{surface: SurfaceMonitor}, true)

	monitor.OnVisibilityChanged(true)
	monitor.ExitFullscreen()
	require.Len(t, monitor.Violations(), 2)

	monitor.ResetViolations()
	assert.Empty(t, monitor.Violations())
}

func TestMonitor_StopAllReleasesTracks(t *testing.T) {
	devices := &fakeDevices{surface: SurfaceMonitor}
	monitor := newTestMonitor(t, devices, true)

	require.True(t, monitor.RequestCamera(context.Background()))
	require.True(t, monitor.RequestMic(context.Background()))
	require.True(t, monitor.RequestScreenShare(context.Background()))

	monitor.StopAll()

	assert.True(t, devices.cameraTrack.stopped)
	assert.True(t, devices.micTrack.stopped)
	assert.True(t, devices.screenTrack.stopped)
	assert.False(t, monitor.AllRequirementsMet())
}

func TestMonitor_DeniedMicKeepsOtherGrants(t *testing.T) {
	devices := &fakeDevices{micErr: errors.New("busy"), surface: SurfaceMonitor}
	monitor := newTestMonitor(t, devices, true)

	require.True(t, monitor.RequestCamera(context.Background()))
	assert.False(t, monitor.RequestMic(context.Background()))
	require.True(t, monitor.RequestScreenShare(context.Background()))
	assert.False(t, monitor.AllRequirementsMet())
}
