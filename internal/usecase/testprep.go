package usecase

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"lectern/internal/domain"
	"lectern/internal/ports"
)

// DefaultLevel is used when a lookup names no level.
const DefaultLevel = "University"

var ErrSubjectRequired = errors.New("subject is required")

// TestPrepService builds a normalized study guide for a subject.
type TestPrepService struct {
	generator ports.TestPrepGenerator
	timeout   time.Duration
	log       zerolog.Logger
}

func NewTestPrepService(generator ports.TestPrepGenerator, timeout time.Duration, log zerolog.Logger) *TestPrepService {
	if timeout <= 0 {
		timeout = DefaultStageTimeout
	}
	return &TestPrepService{
		generator: generator,
		timeout:   timeout,
		log:       log.With().Str("component", "testprep").Logger(),
	}
}

func (s *TestPrepService) Lookup(ctx context.Context, subject, level string) (domain.TestPrep, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return domain.TestPrep{}, ErrSubjectRequired
	}
	level = strings.TrimSpace(level)
	if level == "" {
		level = DefaultLevel
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	prep, err := s.generator.GenerateTestPrep(ctx, subject, level)
	if err != nil {
		s.log.Error().Err(err).Str("subject", subject).Msg("test prep lookup failed")
		var failed *domain.EnrichmentFailedError
		if errors.As(err, &failed) {
			return domain.TestPrep{}, err
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.TestPrep{}, domain.EnrichmentFailed("request timed out", err)
		}
		return domain.TestPrep{}, domain.EnrichmentFailed("provider request failed", err)
	}

	return domain.TestPrep{
		Subject:         subject,
		Level:           level,
		KeyConcepts:     NormalizeItems(prep.KeyConcepts),
		Formulas:        NormalizeItems(prep.Formulas),
		StudyStrategies: NormalizeItems(prep.StudyStrategies),
		CommonQuestions: NormalizeItems(prep.CommonQuestions),
	}, nil
}

var listMarkers = regexp.MustCompile(`^(?:(?:[-*•]|\d+[.)])(?:\s+|$))+`)

// NormalizeItem strips emphasis and list markers, trims and capitalizes.
// The result is a fixed point: NormalizeItem(NormalizeItem(s)) == NormalizeItem(s).
func NormalizeItem(item string) string {
	// Every pass that changes item either shortens it or capitalizes it,
	// so the loop ends.
	for {
		next := normalizeOnce(item)
		if next == item {
			return item
		}
		item = next
	}
}

func normalizeOnce(item string) string {
	item = strings.ReplaceAll(item, "**", "")
	item = strings.TrimSpace(item)
	item = listMarkers.ReplaceAllString(item, "")
	item = strings.TrimSpace(item)

	first, size := utf8.DecodeRuneInString(item)
	if first == utf8.RuneError || unicode.IsUpper(first) {
		return item
	}
	return string(unicode.ToUpper(first)) + item[size:]
}

// NormalizeItems normalizes every item and drops the ones left empty.
func NormalizeItems(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if normalized := NormalizeItem(item); normalized != "" {
			out = append(out, normalized)
		}
	}
	return out
}
