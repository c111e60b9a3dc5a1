package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"lectern/internal/domain"
	"lectern/internal/ports"
)

var (
	ErrNoActiveSession = errors.New("no active recording session")
	ErrSessionActive   = errors.New("a recording session is already active")
)

// RecordingController owns the microphone for one recording at a time.
type RecordingController struct {
	audio      ports.AudioCapture
	permission ports.MicrophonePermission
	settings   ports.SettingsStore
	events     ports.EventSink
	cfg        ports.AudioConfig
	log        zerolog.Logger

	now   func() time.Time
	limit func(domain.Settings) (time.Duration, bool)

	mu                sync.Mutex
	permissionChecked bool
	permissionGranted bool
	last              domain.SessionState
	current           *activeSession
	stops             sync.WaitGroup
}

func NewRecordingController(
	audio ports.AudioCapture,
	permission ports.MicrophonePermission,
	settings ports.SettingsStore,
	events ports.EventSink,
	cfg ports.AudioConfig,
	log zerolog.Logger,
) *RecordingController {
	return &RecordingController{
		audio:      audio,
		permission: permission,
		settings:   settings,
		events:     events,
		cfg:        cfg,
		log:        log.With().Str("component", "recorder").Logger(),
		now:        time.Now,
		limit:      domain.Settings.MaxRecordingDuration,
		last:       domain.SessionStateIdle,
	}
}

// Activate checks microphone permission. The answer is reused by every
// Start until the next Teardown.
func (c *RecordingController) Activate(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activateLocked(ctx)
}

func (c *RecordingController) activateLocked(ctx context.Context) (bool, error) {
	granted, err := c.permission.RequestPermission(ctx)
	c.permissionChecked = true
	c.permissionGranted = granted && err == nil
	if err != nil {
		c.log.Warn().Err(err).Msg("microphone permission check failed")
	}

	reason := domain.SessionReasonMicReady
	if !c.permissionGranted {
		reason = domain.SessionReasonPermissionMissing
	}
	c.events.SessionStateChanged(c.last, reason)
	return c.permissionGranted, err
}

// Start acquires the microphone.
func (c *RecordingController) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		c.events.SessionError(domain.ErrorCodeBusy, ErrSessionActive.Error())
		return ErrSessionActive
	}
	if !c.permissionChecked {
		_, _ = c.activateLocked(ctx)
	}
	if !c.permissionGranted {
		c.events.SessionError(domain.ErrorCodePermissionDenied, domain.ErrPermissionDenied.Error())
		return domain.ErrPermissionDenied
	}

	sessionCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	audioSession, err := c.audio.Start(sessionCtx, c.cfg)
	if err != nil {
		cancel()
		if !errors.Is(err, domain.ErrPermissionDenied) && !errors.Is(err, domain.ErrDeviceUnavailable) {
			err = fmt.Errorf("%w: %v", domain.ErrDeviceUnavailable, err)
		}
		if errors.Is(err, domain.ErrPermissionDenied) {
			c.permissionGranted = false
		}
		c.log.Error().Err(err).Msg("audio capture failed to start")
		c.events.SessionError(domain.CodeOf(err), err.Error())
		c.last = domain.SessionStateIdle
		c.events.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonDeviceError)
		return err
	}

	active := &activeSession{
		cancel:    cancel,
		audio:     audioSession,
		startedAt: c.now(),
	}
	if limit, ok := c.limit(c.settings.Load(ctx)); ok {
		active.timer = time.AfterFunc(limit, func() {
			if _, err := c.stopActive(active, domain.SessionReasonMaxDurationReached); err != nil {
				c.log.Warn().Err(err).Msg("auto-stop failed")
			}
		})
		c.log.Debug().Dur("limit", limit).Msg("recording limit armed")
	}

	c.current = active
	c.last = domain.SessionStateRecording
	c.events.SessionStateChanged(domain.SessionStateRecording, domain.SessionReasonRecordingStarted)
	return nil
}

// Stop releases the microphone and returns the recorded file.
func (c *RecordingController) Stop(_ context.Context) (domain.StopResult, error) {
	active, err := c.getCurrent()
	if err != nil {
		return domain.StopResult{}, err
	}
	return c.stopActive(active, domain.SessionReasonRecordingStopped)
}

// Teardown stops any in-flight capture before returning. The next Start
// checks permission again.
func (c *RecordingController) Teardown() {
	if active, err := c.getCurrent(); err == nil {
		if _, err := c.stopActive(active, domain.SessionReasonTornDown); err != nil {
			c.log.Warn().Err(err).Msg("teardown stop failed")
		}
	}
	// An auto-stop may still be releasing the device.
	c.stops.Wait()

	c.mu.Lock()
	c.permissionChecked = false
	c.permissionGranted = false
	c.last = domain.SessionStateIdle
	c.mu.Unlock()
}

// Status returns the current capture status.
func (c *RecordingController) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := domain.Status{
		State:             c.last,
		PermissionGranted: c.permissionGranted,
	}
	if c.current != nil {
		started := c.current.startedAt
		status.State = domain.SessionStateRecording
		status.Active = true
		status.StartedAt = &started
	}
	if c.permissionChecked && !c.permissionGranted {
		status.Message = "microphone permission missing"
	}
	return status
}

func (c *RecordingController) getCurrent() (*activeSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil, ErrNoActiveSession
	}
	return c.current, nil
}

// stopActive detaches active and releases it. Only the first caller for a
// given session does the work.
func (c *RecordingController) stopActive(active *activeSession, reason domain.SessionStateReason) (domain.StopResult, error) {
	c.mu.Lock()
	if c.current != active {
		c.mu.Unlock()
		return domain.StopResult{}, ErrNoActiveSession
	}
	c.current = nil
	c.stops.Add(1)
	c.mu.Unlock()
	defer c.stops.Done()

	active.release()
	location, err := active.audio.Stop()
	active.cancel()

	if err != nil {
		if !errors.Is(err, domain.ErrRecordingLost) {
			err = fmt.Errorf("%w: %v", domain.ErrRecordingLost, err)
		}
		c.log.Error().Err(err).Str("reason", string(reason)).Msg("recording lost")
		c.setLast(domain.SessionStateIdle)
		c.events.SessionError(domain.ErrorCodeRecordingLost, err.Error())
		c.events.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonRecordingLost)
		return domain.StopResult{}, err
	}

	result := domain.StopResult{
		AudioLocation: location,
		Reason:        reason,
		Duration:      c.now().Sub(active.startedAt),
	}
	c.log.Info().Str("location", location).Dur("duration", result.Duration).Str("reason", string(reason)).Msg("recording stopped")
	c.setLast(domain.SessionStateStopped)
	c.events.SessionStateChanged(domain.SessionStateStopped, reason)
	c.events.RecordingStopped(result)
	return result, nil
}

func (c *RecordingController) setLast(state domain.SessionState) {
	c.mu.Lock()
	c.last = state
	c.mu.Unlock()
}
