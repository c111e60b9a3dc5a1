package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"lectern/internal/bootstrap"
	"lectern/internal/domain"
	"lectern/internal/usecase"
)

type recordOptions struct {
	duration time.Duration
	process  bool
	save     bool
	subject  string
}

func newRecordCommand(root *rootOptions) *cobra.Command {
	opts := &recordOptions{}

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a lecture from the microphone",
		Long: `Record from the microphone until interrupted (Ctrl-C), until --duration
elapses, or until the configured maximum recording duration is reached.

With --process the recording is transcribed and enriched afterwards. With
--save the processed result is added to the library under --subject, or
under the currently selected subject.

Examples:
  lectern record
  lectern record --duration 50m --process --save
  lectern record --process --save --subject Chemistry`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRecord(cmd, root, opts)
		},
	}

	cmd.Flags().DurationVarP(&opts.duration, "duration", "d", 0, "Stop after this long (0 waits for Ctrl-C)")
	cmd.Flags().BoolVar(&opts.process, "process", false, "Transcribe and enrich the recording")
	cmd.Flags().BoolVar(&opts.save, "save", false, "Save the processed recording (implies --process)")
	cmd.Flags().StringVar(&opts.subject, "subject", "", "Subject to save under (default: selected subject)")

	return cmd
}

func runRecord(cmd *cobra.Command, root *rootOptions, opts *recordOptions) error {
	services, events, err := root.open(cmd)
	if err != nil {
		return err
	}
	defer services.Close()
	defer services.Controller.Teardown()

	ctx := cmd.Context()
	if err := services.Controller.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "Recording... press Ctrl-C to stop")

	stop, err := waitForStop(ctx, services, events, opts.duration)
	if err != nil {
		return err
	}

	if !opts.process && !opts.save {
		return root.render(cmd, stop, func(w io.Writer) {
			fmt.Fprintln(w, stop.AudioLocation)
		})
	}
	return processAndMaybeSave(cmd, root, services, stop.AudioLocation, opts.save, opts.subject)
}

// waitForStop blocks until the session ends and returns the stop result. A
// session that ends on its own, stopped or lost, returns without a signal.
// The first interrupt stops the recording; signal handling is released
// afterwards so a second interrupt terminates the process.
func waitForStop(ctx context.Context, services bootstrap.Services, events *cliEvents, limit time.Duration) (domain.StopResult, error) {
	sigCtx, release := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer release()

	var deadline <-chan time.Time
	if limit > 0 {
		timer := time.NewTimer(limit)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case result := <-events.stopped:
		return result, nil
	case detail := <-events.lost:
		return domain.StopResult{}, fmt.Errorf("%w: %s", domain.ErrRecordingLost, detail)
	case <-sigCtx.Done():
	case <-deadline:
	}

	result, err := services.Controller.Stop(context.WithoutCancel(ctx))
	if errors.Is(err, usecase.ErrNoActiveSession) {
		// Raced with the duration limit; wait for that stop to finish.
		services.Controller.Teardown()
		select {
		case result := <-events.stopped:
			return result, nil
		default:
			return domain.StopResult{}, domain.ErrRecordingLost
		}
	}
	return result, err
}

type processOptions struct {
	save    bool
	subject string
}

func newProcessCommand(root *rootOptions) *cobra.Command {
	opts := &processOptions{}

	cmd := &cobra.Command{
		Use:   "process <audio-file>",
		Short: "Transcribe and enrich an existing recording",
		Long: `Transcribe an audio file and generate study insights for it.

If the insight provider fails, the transcript is still shown and the result
is marked as having no insights.

Examples:
  lectern process lecture.m4a
  lectern process lecture.m4a --save --subject Biology -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			services, _, err := root.open(cmd)
			if err != nil {
				return err
			}
			defer services.Close()
			return processAndMaybeSave(cmd, root, services, path, opts.save, opts.subject)
		},
	}

	cmd.Flags().BoolVar(&opts.save, "save", false, "Save the result to the library")
	cmd.Flags().StringVar(&opts.subject, "subject", "", "Subject to save under (default: selected subject)")

	return cmd
}

func processAndMaybeSave(cmd *cobra.Command, root *rootOptions, services bootstrap.Services, location string, save bool, subject string) error {
	ctx := cmd.Context()
	result, err := services.Pipeline.Run(ctx, location)
	if err != nil {
		return err
	}

	if save {
		if subject == "" {
			subject = services.Settings.Load(ctx).CurrentSubject
		}
		services.Recordings.Append(ctx, domain.NewRecording(subject, result))
		fmt.Fprintf(cmd.ErrOrStderr(), "saved under %q\n", subject)
	}

	return root.render(cmd, result, func(w io.Writer) {
		printResult(w, result)
	})
}
