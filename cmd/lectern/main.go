// Package main provides the lectern CLI: recording, processing, the local
// library and the backend HTTP service.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lectern/internal/bootstrap"
	"lectern/internal/ports"
)

func main() {
	if err := newRootCommand(DefaultDeps()).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCommand(deps *Deps) *cobra.Command {
	opts := &rootOptions{deps: deps}

	cmd := &cobra.Command{
		Use:   "lectern",
		Short: "Record lectures, transcribe them and build study material",
		Long: `lectern records a lecture from the microphone, transcribes it, turns the
transcript into study insights and keeps a local library grouped by subject.

JSON Output:
  Every listing command accepts -o json for structured output.

Examples:
  lectern subjects add Biology
  lectern subjects select Biology
  lectern record --process --save
  lectern testprep Physics --level "High School"
  lectern serve`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch opts.output {
			case "", outputText, outputJSON:
				return nil
			default:
				return fmt.Errorf("unsupported output format %q (want text or json)", opts.output)
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", outputText, "Output format: text, json")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newRecordCommand(opts))
	cmd.AddCommand(newProcessCommand(opts))
	cmd.AddCommand(newSubjectsCommand(opts))
	cmd.AddCommand(newRecordingsCommand(opts))
	cmd.AddCommand(newTestPrepCommand(opts))
	cmd.AddCommand(newSettingsCommand(opts))
	cmd.AddCommand(newInfoCommand(opts))

	return cmd
}

// Deps holds the dependencies for lectern commands.
type Deps struct {
	Build func(events ports.EventSink) (bootstrap.Services, error)
}

// DefaultDeps returns the dependencies for production use.
func DefaultDeps() *Deps {
	return &Deps{Build: bootstrap.Build}
}
