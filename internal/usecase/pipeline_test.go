package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lectern/internal/domain"
)

func writeAudio(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recording.m4a")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestPipelineRunPassesSummaryThrough(t *testing.T) {
	t.Parallel()

	transcript := "The mitochondria is the powerhouse of the cell."
	stub := domain.Insights{
		Summary:   "Mitochondria generate most of the cell's chemical energy.",
		KeyPoints: []string{"Mitochondria produce ATP"},
	}
	transcriber := &fakeTranscriber{text: transcript}
	insights := &fakeInsights{insights: stub}
	events := &fakeEventSink{}
	pipeline := NewPipeline(transcriber, insights, events, PipelineConfig{}, zerolog.Nop())

	location := writeAudio(t, "audio")
	result, err := pipeline.Run(context.Background(), location)
	require.NoError(t, err)

	assert.Equal(t, stub.Summary, result.Insights.Summary)
	assert.Equal(t, stub.KeyPoints, result.Insights.KeyPoints)
	assert.Equal(t, transcript, result.Transcript)
	assert.Equal(t, location, result.AudioLocation)
	assert.False(t, result.InsightsUnavailable)
	assert.Equal(t, []string{transcript}, insights.transcripts)
	assert.Empty(t, events.snapshotErrors())
}

func TestPipelineEmptyTranscriptSkipsEnrichment(t *testing.T) {
	t.Parallel()

	insights := &fakeInsights{insights: domain.Insights{Summary: "should not appear"}}
	pipeline := NewPipeline(&fakeTranscriber{text: "   "}, insights, nil, PipelineConfig{}, zerolog.Nop())

	result, err := pipeline.Run(context.Background(), writeAudio(t, "audio"))
	require.NoError(t, err)

	assert.Zero(t, insights.calls)
	assert.Equal(t, domain.Insights{}, result.Insights)
	assert.True(t, result.Insights.IsEmpty())
	assert.Empty(t, result.Transcript)
	assert.False(t, result.InsightsUnavailable)
}

func TestPipelineProgressIsMonotonic(t *testing.T) {
	t.Parallel()

	events := &fakeEventSink{}
	pipeline := NewPipeline(&fakeTranscriber{text: "hello"}, &fakeInsights{}, events, PipelineConfig{}, zerolog.Nop())

	_, err := pipeline.Run(context.Background(), writeAudio(t, "audio"))
	require.NoError(t, err)

	progress := events.snapshotProgress()
	require.NotEmpty(t, progress)
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i].percent, progress[i-1].percent)
	}
	last := progress[len(progress)-1]
	assert.Equal(t, progressEvent{domain.PipelineStageComplete, 100}, last)
}

func TestPipelineTranscriptionFailureIsTerminal(t *testing.T) {
	t.Parallel()

	events := &fakeEventSink{}
	insights := &fakeInsights{}
	pipeline := NewPipeline(&fakeTranscriber{err: errors.New("status 500")}, insights, events, PipelineConfig{}, zerolog.Nop())

	_, err := pipeline.Run(context.Background(), writeAudio(t, "audio"))

	var failed *domain.TranscriptionFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "provider request failed", failed.Reason)
	assert.Zero(t, insights.calls)

	errs := events.snapshotErrors()
	require.Len(t, errs, 1)
	assert.Equal(t, domain.ErrorCodeTranscriptionFailed, errs[0].code)
	assert.False(t, pipeline.Busy())
}

func TestPipelineRejectsMissingOrEmptyAudio(t *testing.T) {
	t.Parallel()

	transcriber := &fakeTranscriber{text: "x"}
	pipeline := NewPipeline(transcriber, &fakeInsights{}, nil, PipelineConfig{}, zerolog.Nop())

	_, err := pipeline.Transcribe(context.Background(), filepath.Join(t.TempDir(), "missing.m4a"))
	var failed *domain.TranscriptionFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "audio file is not readable", failed.Reason)

	_, err = pipeline.Transcribe(context.Background(), writeAudio(t, ""))
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "audio file is empty", failed.Reason)

	assert.Zero(t, transcriber.calls)
}

func TestPipelineAcceptsFileURI(t *testing.T) {
	t.Parallel()

	transcriber := &fakeTranscriber{text: "x"}
	pipeline := NewPipeline(transcriber, &fakeInsights{}, nil, PipelineConfig{}, zerolog.Nop())

	path := writeAudio(t, "audio")
	_, err := pipeline.Transcribe(context.Background(), "file://"+path)
	require.NoError(t, err)
	assert.Equal(t, []string{path}, transcriber.paths)
}

func TestPipelineTranscriptionTimeout(t *testing.T) {
	t.Parallel()

	transcriber := &fakeTranscriber{block: make(chan struct{})}
	pipeline := NewPipeline(transcriber, &fakeInsights{}, nil, PipelineConfig{StageTimeout: 20 * time.Millisecond}, zerolog.Nop())

	_, err := pipeline.Transcribe(context.Background(), writeAudio(t, "audio"))
	var failed *domain.TranscriptionFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "request timed out", failed.Reason)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPipelineEnrichmentFailureDegrades(t *testing.T) {
	t.Parallel()

	events := &fakeEventSink{}
	insights := &fakeInsights{err: errors.New("malformed JSON")}
	pipeline := NewPipeline(&fakeTranscriber{text: "cells divide"}, insights, events, PipelineConfig{}, zerolog.Nop())

	result, err := pipeline.Run(context.Background(), writeAudio(t, "audio"))
	require.NoError(t, err)

	assert.Equal(t, "cells divide", result.Transcript)
	assert.True(t, result.InsightsUnavailable)
	assert.Contains(t, result.InsightsError, "enrichment failed")
	assert.True(t, result.Insights.IsEmpty())

	errs := events.snapshotErrors()
	require.Len(t, errs, 1)
	assert.Equal(t, domain.ErrorCodeEnrichmentFailed, errs[0].code)
}

func TestPipelineEnrichKeepsTypedError(t *testing.T) {
	t.Parallel()

	typed := domain.EnrichmentFailed("response was not JSON", nil)
	pipeline := NewPipeline(&fakeTranscriber{}, &fakeInsights{err: typed}, nil, PipelineConfig{}, zerolog.Nop())

	_, err := pipeline.Enrich(context.Background(), "text")
	assert.Same(t, typed, err)
}

func TestPipelineRejectsReentrantRun(t *testing.T) {
	t.Parallel()

	transcriber := &fakeTranscriber{text: "hello", block: make(chan struct{})}
	events := &fakeEventSink{}
	pipeline := NewPipeline(transcriber, &fakeInsights{}, events, PipelineConfig{}, zerolog.Nop())
	location := writeAudio(t, "audio")

	done := make(chan error, 1)
	go func() {
		_, err := pipeline.Run(context.Background(), location)
		done <- err
	}()

	require.Eventually(t, pipeline.Busy, time.Second, time.Millisecond)
	_, err := pipeline.Run(context.Background(), location)
	require.ErrorIs(t, err, ErrPipelineBusy)

	close(transcriber.block)
	require.NoError(t, <-done)
	assert.False(t, pipeline.Busy())
}

func TestAssemble(t *testing.T) {
	t.Parallel()

	insights := domain.Insights{Summary: "s"}
	got := Assemble("loc", "text", insights, nil)
	assert.Equal(t, domain.PipelineResult{AudioLocation: "loc", Transcript: "text", Insights: insights}, got)

	degraded := Assemble("loc", "text", insights, errors.New("boom"))
	assert.True(t, degraded.InsightsUnavailable)
	assert.Equal(t, "boom", degraded.InsightsError)
	assert.True(t, degraded.Insights.IsEmpty())
}
