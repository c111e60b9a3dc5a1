package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"lectern/internal/bootstrap"
	"lectern/internal/domain"
	"lectern/internal/ports"
)

const (
	outputText = "text"
	outputJSON = "json"
)

type rootOptions struct {
	deps   *Deps
	output string
}

// open wires services with an event sink that reports to the command's
// stderr. Callers must Close the services.
func (o *rootOptions) open(cmd *cobra.Command) (bootstrap.Services, *cliEvents, error) {
	events := newCLIEvents(cmd.ErrOrStderr())
	services, err := o.deps.Build(events)
	if err != nil {
		return bootstrap.Services{}, nil, err
	}
	return services, events, nil
}

// render writes v as JSON when -o json is set, otherwise calls text.
func (o *rootOptions) render(cmd *cobra.Command, v any, text func(w io.Writer)) error {
	out := cmd.OutOrStdout()
	if o.output == outputJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(out)
	return nil
}

// cliEvents prints session and pipeline events as they happen.
type cliEvents struct {
	mu      sync.Mutex
	out     io.Writer
	stopped chan domain.StopResult
	lost    chan string
}

var _ ports.EventSink = (*cliEvents)(nil)

func newCLIEvents(out io.Writer) *cliEvents {
	return &cliEvents{
		out:     out,
		stopped: make(chan domain.StopResult, 1),
		lost:    make(chan string, 1),
	}
}

func (e *cliEvents) printf(format string, args ...any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fmt.Fprintf(e.out, format, args...)
}

func (e *cliEvents) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	e.printf("session: %s (%s)\n", state, reason)
}

func (e *cliEvents) RecordingStopped(result domain.StopResult) {
	e.printf("recorded %s in %s\n", result.AudioLocation, result.Duration.Round(time.Millisecond))
	select {
	case e.stopped <- result:
	default:
	}
}

func (e *cliEvents) PipelineProgress(stage domain.PipelineStage, percent int) {
	e.printf("%-12s %3d%%\n", stage, percent)
}

func (e *cliEvents) SessionError(code domain.ErrorCode, detail string) {
	e.printf("error [%s]: %s\n", code, detail)
	if code == domain.ErrorCodeRecordingLost {
		select {
		case e.lost <- detail:
		default:
		}
	}
}

func printResult(w io.Writer, result domain.PipelineResult) {
	fmt.Fprintf(w, "Audio: %s\n\n", result.AudioLocation)
	fmt.Fprintf(w, "Transcript:\n%s\n", orNone(result.Transcript))
	if result.InsightsUnavailable {
		fmt.Fprintf(w, "\nInsights unavailable: %s\n", result.InsightsError)
		return
	}
	printInsights(w, result.Insights)
}

func printInsights(w io.Writer, insights domain.Insights) {
	if insights.IsEmpty() {
		return
	}
	if insights.Summary != "" {
		fmt.Fprintf(w, "\nSummary:\n%s\n", insights.Summary)
	}
	printList(w, "Key points", insights.KeyPoints)
	printList(w, "Lecture structure", insights.LectureStructure)
	printList(w, "Test questions", insights.TestQuestions)
	printList(w, "Action items", insights.ActionItems)
	if len(insights.Glossary) > 0 {
		fmt.Fprintln(w, "\nGlossary:")
		for _, entry := range insights.Glossary {
			fmt.Fprintf(w, "  %s: %s\n", entry.Term, entry.Definition)
		}
	}
	if len(insights.StudyPlan) > 0 {
		fmt.Fprintln(w, "\nStudy plan:")
		for _, day := range slices.Sorted(maps.Keys(insights.StudyPlan)) {
			fmt.Fprintf(w, "  %s: %s\n", day, insights.StudyPlan[day])
		}
	}
}

func printList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(w, "  - %s\n", item)
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
