package domain

import (
	"errors"
	"fmt"
)

var (
	ErrPermissionDenied  = errors.New("microphone permission was not granted")
	ErrDeviceUnavailable = errors.New("audio capture device could not be acquired")
	ErrRecordingLost     = errors.New("recording produced no audio")
)

// TranscriptionFailedError is the single outcome for any failure of the
// upload+transcribe stage.
type TranscriptionFailedError struct {
	Reason string
	Err    error
}

func (e *TranscriptionFailedError) Error() string {
	if e.Err == nil {
		return "transcription failed: " + e.Reason
	}
	return fmt.Sprintf("transcription failed: %s: %v", e.Reason, e.Err)
}

func (e *TranscriptionFailedError) Unwrap() error { return e.Err }

// TranscriptionFailed builds a TranscriptionFailedError.
func TranscriptionFailed(reason string, err error) error {
	return &TranscriptionFailedError{Reason: reason, Err: err}
}

// EnrichmentFailedError is the single outcome for any failure of the
// insight-generation stage.
type EnrichmentFailedError struct {
	Reason string
	Err    error
}

func (e *EnrichmentFailedError) Error() string {
	if e.Err == nil {
		return "enrichment failed: " + e.Reason
	}
	return fmt.Sprintf("enrichment failed: %s: %v", e.Reason, e.Err)
}

func (e *EnrichmentFailedError) Unwrap() error { return e.Err }

// EnrichmentFailed builds an EnrichmentFailedError.
func EnrichmentFailed(reason string, err error) error {
	return &EnrichmentFailedError{Reason: reason, Err: err}
}

// PersistenceError describes a failed read or write of a local document.
// Stores log it and never hand it to callers.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// CodeOf maps an error to the alert code shown to the user.
func CodeOf(err error) ErrorCode {
	var (
		transcription *TranscriptionFailedError
		enrichment    *EnrichmentFailedError
		persistence   *PersistenceError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPermissionDenied):
		return ErrorCodePermissionDenied
	case errors.Is(err, ErrDeviceUnavailable):
		return ErrorCodeDeviceError
	case errors.Is(err, ErrRecordingLost):
		return ErrorCodeRecordingLost
	case errors.As(err, &transcription):
		return ErrorCodeTranscriptionFailed
	case errors.As(err, &enrichment):
		return ErrorCodeEnrichmentFailed
	case errors.As(err, &persistence):
		return ErrorCodePersistence
	default:
		return ""
	}
}
