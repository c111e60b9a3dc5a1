package usecase

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"lectern/internal/domain"
	"lectern/internal/ports"
)

// DefaultStageTimeout bounds each provider call.
const DefaultStageTimeout = 30 * time.Second

var ErrPipelineBusy = errors.New("a pipeline run is already in progress")

type PipelineConfig struct {
	StageTimeout time.Duration
}

// Pipeline turns one recorded file into a transcript and insights.
type Pipeline struct {
	transcriber ports.Transcriber
	insights    ports.InsightGenerator
	events      ports.EventSink
	cfg         PipelineConfig
	log         zerolog.Logger

	running atomic.Bool
}

func NewPipeline(
	transcriber ports.Transcriber,
	insights ports.InsightGenerator,
	events ports.EventSink,
	cfg PipelineConfig,
	log zerolog.Logger,
) *Pipeline {
	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = DefaultStageTimeout
	}
	if events == nil {
		events = NopEventSink{}
	}
	return &Pipeline{
		transcriber: transcriber,
		insights:    insights,
		events:      events,
		cfg:         cfg,
		log:         log.With().Str("component", "pipeline").Logger(),
	}
}

// Run executes transcribe, enrich and assemble for one audio file. An
// enrichment failure degrades the result to transcript only; the returned
// error is non-nil only for transcription failures and busy rejections.
func (p *Pipeline) Run(ctx context.Context, location string) (domain.PipelineResult, error) {
	if !p.running.CompareAndSwap(false, true) {
		p.events.SessionError(domain.ErrorCodeBusy, ErrPipelineBusy.Error())
		return domain.PipelineResult{}, ErrPipelineBusy
	}
	defer p.running.Store(false)

	started := time.Now()
	progress := &progressReporter{events: p.events}
	log := p.log.With().Str("location", location).Logger()

	progress.report(domain.PipelineStageTranscribing, 10)
	transcript, err := p.Transcribe(ctx, location)
	if err != nil {
		log.Error().Err(err).Msg("transcription failed")
		p.events.SessionError(domain.ErrorCodeTranscriptionFailed, err.Error())
		return domain.PipelineResult{}, err
	}

	progress.report(domain.PipelineStageEnriching, 50)
	insights, enrichErr := p.Enrich(ctx, transcript)
	if enrichErr != nil {
		log.Warn().Err(enrichErr).Msg("enrichment failed, keeping transcript")
		p.events.SessionError(domain.ErrorCodeEnrichmentFailed, enrichErr.Error())
	}

	progress.report(domain.PipelineStageAssembling, 90)
	result := Assemble(location, transcript, insights, enrichErr)
	progress.report(domain.PipelineStageComplete, 100)

	log.Info().
		Int("transcript_chars", len(transcript)).
		Bool("insights_unavailable", result.InsightsUnavailable).
		Dur("elapsed", time.Since(started)).
		Msg("pipeline run complete")
	return result, nil
}

// Busy reports whether a run is in flight.
func (p *Pipeline) Busy() bool {
	return p.running.Load()
}

// Transcribe sends the file at location to the transcription provider. An
// empty transcript is a valid result.
func (p *Pipeline) Transcribe(ctx context.Context, location string) (string, error) {
	path := localPath(location)
	info, err := os.Stat(path)
	if err != nil {
		return "", domain.TranscriptionFailed("audio file is not readable", err)
	}
	if info.IsDir() || info.Size() == 0 {
		return "", domain.TranscriptionFailed("audio file is empty", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.StageTimeout)
	defer cancel()

	text, err := p.transcriber.Transcribe(ctx, path)
	if err != nil {
		var failed *domain.TranscriptionFailedError
		switch {
		case errors.As(err, &failed):
			return "", err
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return "", domain.TranscriptionFailed("request timed out", err)
		default:
			return "", domain.TranscriptionFailed("provider request failed", err)
		}
	}
	return strings.TrimSpace(text), nil
}

// Enrich asks the insight provider for study material. An empty transcript
// skips the provider and yields empty insights.
func (p *Pipeline) Enrich(ctx context.Context, transcript string) (domain.Insights, error) {
	if strings.TrimSpace(transcript) == "" {
		return domain.Insights{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.StageTimeout)
	defer cancel()

	insights, err := p.insights.GenerateInsights(ctx, transcript)
	if err != nil {
		var failed *domain.EnrichmentFailedError
		switch {
		case errors.As(err, &failed):
			return domain.Insights{}, err
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return domain.Insights{}, domain.EnrichmentFailed("request timed out", err)
		default:
			return domain.Insights{}, domain.EnrichmentFailed("provider request failed", err)
		}
	}
	return insights, nil
}

// Assemble combines the stage outputs into a result.
func Assemble(location, transcript string, insights domain.Insights, enrichErr error) domain.PipelineResult {
	result := domain.PipelineResult{
		AudioLocation: location,
		Transcript:    transcript,
		Insights:      insights,
	}
	if enrichErr != nil {
		result.Insights = domain.Insights{}
		result.InsightsUnavailable = true
		result.InsightsError = enrichErr.Error()
	}
	return result
}

func localPath(location string) string {
	return strings.TrimPrefix(location, "file://")
}

// progressReporter never lets the reported percentage go backwards.
type progressReporter struct {
	events ports.EventSink
	last   int
}

func (r *progressReporter) report(stage domain.PipelineStage, percent int) {
	if percent < r.last {
		percent = r.last
	}
	if percent > 100 {
		percent = 100
	}
	r.last = percent
	r.events.PipelineProgress(stage, percent)
}

// NopEventSink discards all events.
type NopEventSink struct{}

func (NopEventSink) SessionStateChanged(domain.SessionState, domain.SessionStateReason) {}
func (NopEventSink) RecordingStopped(domain.StopResult)                                 {}
func (NopEventSink) PipelineProgress(domain.PipelineStage, int)                         {}
func (NopEventSink) SessionError(domain.ErrorCode, string)                              {}
