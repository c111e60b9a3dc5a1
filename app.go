package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"lectern/internal/bootstrap"
	"lectern/internal/config"
	"lectern/internal/domain"
	"lectern/internal/ports"
	"lectern/internal/recordings"
	"lectern/internal/usecase"
)

const (
	eventSession  = "lectern:session"
	eventStopped  = "lectern:stopped"
	eventProgress = "lectern:progress"
	eventError    = "lectern:error"
)

type recorder interface {
	Activate(ctx context.Context) (bool, error)
	Start(ctx context.Context) error
	Stop(ctx context.Context) (domain.StopResult, error)
	Teardown()
	Status() domain.Status
}

type processor interface {
	Run(ctx context.Context, location string) (domain.PipelineResult, error)
	Busy() bool
}

type testPrepLookup interface {
	Lookup(ctx context.Context, subject, level string) (domain.TestPrep, error)
}

// App is the Wails application root.
type App struct {
	ctx  context.Context
	emit func(ctx context.Context, name string, data ...interface{})

	recorder   recorder
	pipeline   processor
	settings   ports.SettingsStore
	recordings ports.RecordingStore
	testPrep   testPrepLookup
	closer     func() error

	cfg     config.Config
	bootErr error

	shutdownOnce sync.Once
}

func NewApp() *App {
	return &App{emit: runtime.EventsEmit}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a)
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.cfg = services.Config
	a.recorder = services.Controller
	a.pipeline = services.Pipeline
	a.settings = services.Settings
	a.recordings = services.Recordings
	a.testPrep = services.TestPrep
	a.closer = services.Close
	a.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonMicReady)
}

func (a *App) shutdown(_ context.Context) {
	a.shutdownOnce.Do(func() {
		if a.recorder != nil {
			a.recorder.Teardown()
		}
		if a.closer != nil {
			_ = a.closer()
		}
	})
}

// ActivateMicrophone checks capture permission for this activation.
func (a *App) ActivateMicrophone() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if _, err := a.recorder.Activate(a.ctx); err != nil {
		return a.recorder.Status(), err
	}
	return a.recorder.Status(), nil
}

// StartRecording begins capturing the microphone.
func (a *App) StartRecording() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.recorder.Start(a.ctx); err != nil {
		return a.recorder.Status(), err
	}
	return a.recorder.Status(), nil
}

// StopRecording releases the microphone and returns the recorded file.
func (a *App) StopRecording() (domain.StopResult, error) {
	if err := a.requireReady(); err != nil {
		return domain.StopResult{}, err
	}
	result, err := a.recorder.Stop(a.ctx)
	if err != nil {
		if errors.Is(err, usecase.ErrNoActiveSession) {
			return domain.StopResult{}, nil
		}
		return domain.StopResult{}, err
	}
	return result, nil
}

// ProcessRecording transcribes and enriches a recorded file. The result is
// not saved; the UI confirms a subject and calls SaveRecording.
func (a *App) ProcessRecording(location string) (domain.PipelineResult, error) {
	if err := a.requireReady(); err != nil {
		return domain.PipelineResult{}, err
	}
	return a.pipeline.Run(a.ctx, location)
}

// SaveRecording appends a processed result under subject and returns the
// updated list, newest first.
func (a *App) SaveRecording(subject string, result domain.PipelineResult) ([]domain.Recording, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	a.recordings.Append(a.ctx, domain.NewRecording(subject, result))
	return a.recordings.List(a.ctx), nil
}

// ListRecordings returns saved recordings, newest first.
func (a *App) ListRecordings() []domain.Recording {
	if a.requireReady() != nil {
		return []domain.Recording{}
	}
	return a.recordings.List(a.ctx)
}

// RecordingGroups returns saved recordings grouped by subject.
func (a *App) RecordingGroups() []recordings.Group {
	return recordings.Groups(a.ListRecordings())
}

// DeleteRecording removes the recording at a ListRecordings index.
func (a *App) DeleteRecording(index int) ([]domain.Recording, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	a.recordings.RemoveAt(a.ctx, index)
	return a.recordings.List(a.ctx), nil
}

func (a *App) GetSettings() domain.Settings {
	if a.requireReady() != nil {
		return domain.DefaultSettings()
	}
	return a.settings.Load(a.ctx)
}

func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	if err := a.requireReady(); err != nil {
		return domain.Settings{}, err
	}
	a.settings.Save(a.ctx, settings)
	return a.settings.Load(a.ctx), nil
}

func (a *App) AddSubject(name string) (domain.Settings, error) {
	if err := a.requireReady(); err != nil {
		return domain.Settings{}, err
	}
	return a.settings.AddSubject(a.ctx, name), nil
}

func (a *App) RemoveSubject(name string) (domain.Settings, error) {
	if err := a.requireReady(); err != nil {
		return domain.Settings{}, err
	}
	return a.settings.RemoveSubject(a.ctx, name), nil
}

func (a *App) SelectSubject(name string) (domain.Settings, error) {
	if err := a.requireReady(); err != nil {
		return domain.Settings{}, err
	}
	return a.settings.SelectSubject(a.ctx, name), nil
}

// GetTestPrep builds a study guide for subject at level.
func (a *App) GetTestPrep(subject, level string) (domain.TestPrep, error) {
	if err := a.requireReady(); err != nil {
		return domain.TestPrep{}, err
	}
	prep, err := a.testPrep.Lookup(a.ctx, subject, level)
	if err != nil {
		if !errors.Is(err, usecase.ErrSubjectRequired) {
			a.SessionError(domain.ErrorCodeEnrichmentFailed, err.Error())
		}
		return domain.TestPrep{}, err
	}
	return prep, nil
}

// GetStatus returns the current session status.
func (a *App) GetStatus() domain.Status {
	if a.recorder == nil {
		if a.bootErr != nil {
			return domain.Status{State: domain.SessionStateIdle, Active: false, Message: a.bootErr.Error()}
		}
		return domain.Status{State: domain.SessionStateIdle, Active: false}
	}
	status := a.recorder.Status()
	status.Processing = a.pipeline != nil && a.pipeline.Busy()
	return status
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	return map[string]string{
		"transcriptionProvider": "Lemonfox",
		"transcriptionLanguage": a.cfg.Lemonfox.Language,
		"insightsModel":         a.cfg.OpenAI.Model,
		"insightsBaseURL":       a.cfg.OpenAI.BaseURL,
		"audioInput":            a.cfg.Audio.InputDevice,
		"audioInputFormat":      a.cfg.Audio.InputFormat,
		"audioFormat":           a.cfg.Audio.Format,
		"recordingsDir":         a.cfg.Audio.Dir,
		"database":              a.cfg.Storage.Path,
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.recorder == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// SessionStateChanged emits session lifecycle updates to the frontend.
func (a *App) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	if a.ctx == nil {
		return
	}
	a.emit(a.ctx, eventSession, map[string]string{
		"state":   string(state),
		"reason":  string(reason),
		"message": sessionReasonMessage(reason),
	})
}

// RecordingStopped emits the finished capture so the UI can ask for a subject.
func (a *App) RecordingStopped(result domain.StopResult) {
	if a.ctx == nil {
		return
	}
	a.emit(a.ctx, eventStopped, map[string]interface{}{
		"recordingUri": result.AudioLocation,
		"reason":       string(result.Reason),
		"durationMs":   result.Duration.Milliseconds(),
	})
}

// PipelineProgress emits processing progress.
func (a *App) PipelineProgress(stage domain.PipelineStage, percent int) {
	if a.ctx == nil {
		return
	}
	a.emit(a.ctx, eventProgress, map[string]interface{}{
		"stage":   string(stage),
		"percent": percent,
	})
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	a.emit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func sessionReasonMessage(reason domain.SessionStateReason) string {
	switch reason {
	case domain.SessionReasonMicReady:
		return "Microphone ready"
	case domain.SessionReasonPermissionMissing:
		return "Microphone permission missing"
	case domain.SessionReasonRecordingStarted:
		return "Recording started"
	case domain.SessionReasonRecordingStopped:
		return "Recording stopped"
	case domain.SessionReasonMaxDurationReached:
		return "Maximum recording duration reached"
	case domain.SessionReasonRecordingLost:
		return "Recording was lost"
	case domain.SessionReasonTornDown:
		return "Recording stopped"
	case domain.SessionReasonDeviceError:
		return "Microphone unavailable"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodePermissionDenied:
		return "Permission to access microphone was denied"
	case domain.ErrorCodeDeviceError:
		return "Failed to start recording"
	case domain.ErrorCodeRecordingLost:
		return "Failed to stop recording"
	case domain.ErrorCodeTranscriptionFailed:
		return "Failed to transcribe recording"
	case domain.ErrorCodeEnrichmentFailed:
		return "Study insights unavailable"
	case domain.ErrorCodePersistence:
		return "Could not save changes"
	case domain.ErrorCodeBusy:
		return "Already in progress"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
