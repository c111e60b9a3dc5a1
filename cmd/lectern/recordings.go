package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"lectern/internal/domain"
	"lectern/internal/recordings"
)

func newRecordingsCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "recordings",
		Aliases: []string{"library", "recs"},
		Short:   "Browse and delete saved recordings",
		Long: `Browse saved recordings. Indexes are positions in the newest-first list
printed by 'lectern recordings list' and are what show and delete accept.

JSON Output:
  lectern recordings list -o json

  Returns:
  [{"index": 0, "subject": "Biology", "recording": {...}}]`,
	}

	cmd.AddCommand(newRecordingsListCommand(root))
	cmd.AddCommand(newRecordingsShowCommand(root))
	cmd.AddCommand(newRecordingsDeleteCommand(root))
	return cmd
}

type recordingEntry struct {
	Index     int              `json:"index"`
	Subject   string           `json:"subject"`
	Recording domain.Recording `json:"recording"`
}

func indexed(recs []domain.Recording) []recordingEntry {
	entries := make([]recordingEntry, 0, len(recs))
	for i, rec := range recs {
		entries = append(entries, recordingEntry{Index: i, Subject: rec.Subject, Recording: rec})
	}
	return entries
}

func newRecordingsListCommand(root *rootOptions) *cobra.Command {
	var subject string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved recordings grouped by subject",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, _, err := root.open(cmd)
			if err != nil {
				return err
			}
			defer services.Close()

			entries := indexed(services.Recordings.List(cmd.Context()))
			if cmd.Flags().Changed("subject") {
				filtered := entries[:0]
				for _, e := range entries {
					if e.Subject == subject {
						filtered = append(filtered, e)
					}
				}
				entries = filtered
			}

			return root.render(cmd, entries, func(w io.Writer) {
				printRecordingGroups(w, entries)
			})
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "Only list recordings for this subject")
	return cmd
}

func printRecordingGroups(w io.Writer, entries []recordingEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No recordings saved.")
		return
	}

	recs := make([]domain.Recording, len(entries))
	indexes := make(map[string][]int)
	for i, e := range entries {
		recs[i] = e.Recording
		indexes[e.Subject] = append(indexes[e.Subject], e.Index)
	}

	// Groups keeps input order within a group, so the k-th recording of a
	// group is the k-th entry with that subject.
	for _, group := range recordings.Groups(recs) {
		name := group.Subject
		if name == "" {
			name = "(no subject)"
		}
		fmt.Fprintln(w, name)
		for k, rec := range group.Recordings {
			fmt.Fprintf(w, "  [%d] %s  %s\n", indexes[group.Subject][k], savedAt(rec), preview(rec.Transcript, 60))
		}
	}
}

func savedAt(rec domain.Recording) string {
	if rec.SavedAt.IsZero() {
		return "unknown date    "
	}
	return rec.SavedAt.Local().Format("2006-01-02 15:04")
}

func preview(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}

func parseIndex(arg string, count int) (int, error) {
	idx, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("index must be a number, got %q", arg)
	}
	if idx < 0 || idx >= count {
		return 0, fmt.Errorf("no recording at index %d (have %d)", idx, count)
	}
	return idx, nil
}

func newRecordingsShowCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <index>",
		Short: "Show one recording with its transcript and insights",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, _, err := root.open(cmd)
			if err != nil {
				return err
			}
			defer services.Close()

			ctx := cmd.Context()
			idx, err := parseIndex(args[0], len(services.Recordings.List(ctx)))
			if err != nil {
				return err
			}
			rec, ok := services.Recordings.At(ctx, idx)
			if !ok {
				return fmt.Errorf("no recording at index %d", idx)
			}

			return root.render(cmd, rec, func(w io.Writer) {
				fmt.Fprintf(w, "Subject: %s\nSaved: %s\n", orNone(rec.Subject), savedAt(rec))
				printResult(w, domain.PipelineResult{
					AudioLocation:       rec.AudioLocation,
					Transcript:          rec.Transcript,
					Insights:            rec.Insights,
					InsightsUnavailable: rec.InsightsUnavailable,
				})
			})
		},
	}
}

func newRecordingsDeleteCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <index>",
		Aliases: []string{"rm"},
		Short:   "Delete a recording (no undo)",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, _, err := root.open(cmd)
			if err != nil {
				return err
			}
			defer services.Close()

			ctx := cmd.Context()
			recs := services.Recordings.List(ctx)
			idx, err := parseIndex(args[0], len(recs))
			if err != nil {
				return err
			}
			services.Recordings.RemoveAt(ctx, idx)

			remaining := indexed(services.Recordings.List(ctx))
			return root.render(cmd, remaining, func(w io.Writer) {
				fmt.Fprintf(w, "Deleted recording %d. %d remaining.\n", idx, len(remaining))
			})
		},
	}
}
