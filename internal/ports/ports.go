package ports

import (
	"context"

	"lectern/internal/domain"
)

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string

	// OutputDir receives the recorded file; Format is its extension.
	OutputDir string
	Format    string
}

// AudioSession is a live capture writing to a local file.
type AudioSession interface {
	// Stop releases the capture device and returns the recorded file
	// location. It is safe to call more than once.
	Stop() (string, error)
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// MicrophonePermission reports whether capture is allowed on this device.
type MicrophonePermission interface {
	RequestPermission(ctx context.Context) (bool, error)
}

// Transcriber turns an audio file into transcript text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// InsightGenerator derives study material from a transcript.
type InsightGenerator interface {
	GenerateInsights(ctx context.Context, transcript string) (domain.Insights, error)
}

// TestPrepGenerator produces a study guide for a subject and level.
type TestPrepGenerator interface {
	GenerateTestPrep(ctx context.Context, subject, level string) (domain.TestPrep, error)
}

// DocumentStore persists whole JSON documents by key.
type DocumentStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
}

// SettingsStore is the single source of truth for preferences.
type SettingsStore interface {
	Load(ctx context.Context) domain.Settings
	Save(ctx context.Context, settings domain.Settings)
	AddSubject(ctx context.Context, name string) domain.Settings
	RemoveSubject(ctx context.Context, name string) domain.Settings
	SelectSubject(ctx context.Context, name string) domain.Settings
}

// RecordingStore owns the saved recordings.
type RecordingStore interface {
	List(ctx context.Context) []domain.Recording
	Append(ctx context.Context, recording domain.Recording)
	RemoveAt(ctx context.Context, displayIndex int)
}

// EventSink emits backend state/events to the UI.
type EventSink interface {
	SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason)
	RecordingStopped(result domain.StopResult)
	PipelineProgress(stage domain.PipelineStage, percent int)
	SessionError(code domain.ErrorCode, detail string)
}
