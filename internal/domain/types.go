package domain

import (
	"time"
)

// SessionState models the recording lifecycle.
type SessionState string

const (
	SessionStateIdle      SessionState = "idle"
	SessionStateRecording SessionState = "recording"
	SessionStateStopped   SessionState = "stopped"
)

// SessionStateReason provides a structured reason for state transitions.
type SessionStateReason string

const (
	SessionReasonMicReady           SessionStateReason = "mic_ready"
	SessionReasonPermissionMissing  SessionStateReason = "permission_missing"
	SessionReasonRecordingStarted   SessionStateReason = "recording_started"
	SessionReasonRecordingStopped   SessionStateReason = "recording_stopped"
	SessionReasonMaxDurationReached SessionStateReason = "max_duration_reached"
	SessionReasonRecordingLost      SessionStateReason = "recording_lost"
	SessionReasonTornDown           SessionStateReason = "torn_down"
	SessionReasonDeviceError        SessionStateReason = "device_error"
)

// ErrorCode identifies the user-visible alert raised for a failure.
type ErrorCode string

const (
	ErrorCodeStartup             ErrorCode = "startup"
	ErrorCodePermissionDenied    ErrorCode = "permission_denied"
	ErrorCodeDeviceError         ErrorCode = "device_error"
	ErrorCodeRecordingLost       ErrorCode = "recording_lost"
	ErrorCodeTranscriptionFailed ErrorCode = "transcription_failed"
	ErrorCodeEnrichmentFailed    ErrorCode = "enrichment_failed"
	ErrorCodePersistence         ErrorCode = "persistence"
	ErrorCodeBusy                ErrorCode = "busy"
)

// PipelineStage names the step a pipeline run is in, for progress display.
type PipelineStage string

const (
	PipelineStageTranscribing PipelineStage = "transcribing"
	PipelineStageEnriching    PipelineStage = "enriching"
	PipelineStageAssembling   PipelineStage = "assembling"
	PipelineStageComplete     PipelineStage = "complete"
)

// StopResult is returned once a capture session has released the microphone.
type StopResult struct {
	AudioLocation string             `json:"recordingUri"`
	Reason        SessionStateReason `json:"reason"`
	Duration      time.Duration      `json:"duration"`
}

// PipelineResult is the assembled output of one pipeline run.
type PipelineResult struct {
	AudioLocation string   `json:"recordingUri"`
	Transcript    string   `json:"fullText"`
	Insights      Insights `json:"insights"`

	// InsightsUnavailable is set when enrichment failed and the run degraded
	// to transcript only.
	InsightsUnavailable bool   `json:"insightsUnavailable"`
	InsightsError       string `json:"insightsError,omitempty"`
}

// Status summarizes the current capture status.
type Status struct {
	State             SessionState `json:"state"`
	Active            bool         `json:"active"`
	PermissionGranted bool         `json:"permissionGranted"`
	Processing        bool         `json:"processing"`
	StartedAt         *time.Time   `json:"startedAt,omitempty"`
	Message           string       `json:"message,omitempty"`
}
