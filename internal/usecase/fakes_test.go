package usecase

import (
	"context"
	"errors"
	"sync"

	"lectern/internal/domain"
	"lectern/internal/ports"
)

type fakeAudioCapture struct {
	mu       sync.Mutex
	sessions []*fakeAudioSession
	err      error
	calls    int
}

func (f *fakeAudioCapture) Start(_ context.Context, _ ports.AudioConfig) (ports.AudioSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.calls >= len(f.sessions) {
		return nil, errors.New("no audio session configured")
	}
	session := f.sessions[f.calls]
	f.calls++
	session.setStarted()
	return session, nil
}

// fakeAudioSession tracks whether the capture device is held.
type fakeAudioSession struct {
	mu        sync.Mutex
	location  string
	stopErr   error
	held      bool
	stopCalls int
}

func (f *fakeAudioSession) setStarted() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.held = true
}

func (f *fakeAudioSession) Stop() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
	f.held = false
	if f.stopErr != nil {
		return "", f.stopErr
	}
	return f.location, nil
}

func (f *fakeAudioSession) isHeld() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.held
}

func (f *fakeAudioSession) stops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopCalls
}

type fakePermission struct {
	mu      sync.Mutex
	granted bool
	err     error
	calls   int
}

func (f *fakePermission) RequestPermission(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.granted, f.err
}

type fakeSettings struct {
	settings domain.Settings
}

func (f *fakeSettings) Load(context.Context) domain.Settings { return f.settings }
func (f *fakeSettings) Save(_ context.Context, s domain.Settings) {
	f.settings = s
}
func (f *fakeSettings) AddSubject(context.Context, string) domain.Settings    { return f.settings }
func (f *fakeSettings) RemoveSubject(context.Context, string) domain.Settings { return f.settings }
func (f *fakeSettings) SelectSubject(context.Context, string) domain.Settings { return f.settings }

type fakeTranscriber struct {
	mu    sync.Mutex
	text  string
	err   error
	block chan struct{}
	calls int
	paths []string
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, path string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.paths = append(f.paths, path)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

type fakeInsights struct {
	mu          sync.Mutex
	insights    domain.Insights
	err         error
	calls       int
	transcripts []string
}

func (f *fakeInsights) GenerateInsights(_ context.Context, transcript string) (domain.Insights, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.transcripts = append(f.transcripts, transcript)
	return f.insights, f.err
}

type fakeTestPrep struct {
	prep    domain.TestPrep
	err     error
	subject string
	level   string
}

func (f *fakeTestPrep) GenerateTestPrep(_ context.Context, subject, level string) (domain.TestPrep, error) {
	f.subject = subject
	f.level = level
	return f.prep, f.err
}

type fakeEventSink struct {
	mu sync.Mutex

	states   []stateEvent
	stopped  []domain.StopResult
	progress []progressEvent
	errors   []errEvent
}

type stateEvent struct {
	state  domain.SessionState
	reason domain.SessionStateReason
}

type progressEvent struct {
	stage   domain.PipelineStage
	percent int
}

type errEvent struct {
	code   domain.ErrorCode
	detail string
}

func (f *fakeEventSink) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, stateEvent{state: state, reason: reason})
}

func (f *fakeEventSink) RecordingStopped(result domain.StopResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = append(f.stopped, result)
}

func (f *fakeEventSink) PipelineProgress(stage domain.PipelineStage, percent int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress = append(f.progress, progressEvent{stage: stage, percent: percent})
}

func (f *fakeEventSink) SessionError(code domain.ErrorCode, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, errEvent{code: code, detail: detail})
}

func (f *fakeEventSink) snapshotStates() []stateEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]stateEvent, len(f.states))
	copy(out, f.states)
	return out
}

func (f *fakeEventSink) snapshotErrors() []errEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]errEvent, len(f.errors))
	copy(out, f.errors)
	return out
}

func (f *fakeEventSink) snapshotStopped() []domain.StopResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.StopResult, len(f.stopped))
	copy(out, f.stopped)
	return out
}

func (f *fakeEventSink) snapshotProgress() []progressEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]progressEvent, len(f.progress))
	copy(out, f.progress)
	return out
}
