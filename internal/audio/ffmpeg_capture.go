package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"lectern/internal/domain"
	"lectern/internal/ports"
)

const (
	defaultWarmup    = 250 * time.Millisecond
	defaultStopGrace = 1200 * time.Millisecond
	waitDelay        = 500 * time.Millisecond
)

// FFMPEGCapture records the microphone to a local file using ffmpeg.
type FFMPEGCapture struct {
	command   string
	now       func() time.Time
	warmup    time.Duration
	stopGrace time.Duration
}

func NewFFMPEGCapture(command string) *FFMPEGCapture {
	if command == "" {
		command = "ffmpeg"
	}
	return &FFMPEGCapture{
		command:   command,
		now:       time.Now,
		warmup:    defaultWarmup,
		stopGrace: defaultStopGrace,
	}
}

func withDefaults(cfg ports.AudioConfig) ports.AudioConfig {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 44100
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = filepath.Join(os.TempDir(), "lectern")
	}
	cfg.Format = strings.TrimPrefix(strings.TrimSpace(cfg.Format), ".")
	if cfg.Format == "" {
		cfg.Format = "m4a"
	}
	return cfg
}

func inputArgs(cfg ports.AudioConfig) []string {
	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", cfg.InputFormat,
		"-i", cfg.InputDevice,
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
	}
}

func (c *FFMPEGCapture) Start(ctx context.Context, cfg ports.AudioConfig) (ports.AudioSession, error) {
	cfg = withDefaults(cfg)
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create recordings dir: %v", domain.ErrDeviceUnavailable, err)
	}

	name := fmt.Sprintf("recording-%s.%s", c.now().UTC().Format("20060102T150405.000"), cfg.Format)
	output := filepath.Join(cfg.OutputDir, name)
	args := append(inputArgs(cfg), "-y", output)

	cmd := exec.CommandContext(ctx, c.command, args...)
	// Cancellation interrupts so the container trailer is still written.
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = waitDelay
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start ffmpeg: %v", domain.ErrDeviceUnavailable, err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	select {
	case err := <-waitErr:
		detail := stringsTrimSpaceSafe(stderr.String())
		_ = os.Remove(output)
		if isPermissionFailure(detail) {
			return nil, fmt.Errorf("%w: %s", domain.ErrPermissionDenied, detail)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: ffmpeg exited before capture started: %v: %s", domain.ErrDeviceUnavailable, err, detail)
		}
		return nil, fmt.Errorf("%w: ffmpeg exited before capture started", domain.ErrDeviceUnavailable)
	case <-time.After(c.warmup):
	}

	return &ffmpegSession{
		output:    output,
		stderr:    &stderr,
		process:   cmd.Process,
		waitErr:   waitErr,
		stopGrace: c.stopGrace,
	}, nil
}

type ffmpegSession struct {
	output string
	stderr *bytes.Buffer

	process   *os.Process
	waitErr   <-chan error
	stopGrace time.Duration

	stopOnce sync.Once
	stopErr  error
}

// Stop interrupts ffmpeg, kills it after the grace period and verifies the
// recorded file. Later calls return the first result.
func (s *ffmpegSession) Stop() (string, error) {
	s.stopOnce.Do(func() {
		if s.process != nil {
			_ = s.process.Signal(os.Interrupt)
		}

		var err error
		select {
		case werr, ok := <-s.waitErr:
			if ok {
				err = normalizeStopErr(werr)
			}
		case <-time.After(s.stopGrace):
			if s.process != nil {
				_ = s.process.Kill()
			}
			if werr, ok := <-s.waitErr; ok {
				err = normalizeStopErr(werr)
			}
		}

		if err != nil && s.stderr.Len() > 0 {
			err = fmt.Errorf("%w: %s", err, stringsTrimSpaceSafe(s.stderr.String()))
		}
		if verr := verifyRecording(s.output); verr != nil {
			err = errors.Join(verr, err)
		}
		s.stopErr = err
	})

	if s.stopErr != nil {
		return "", s.stopErr
	}
	return s.output, nil
}

func verifyRecording(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRecordingLost, err)
	}
	if info.IsDir() || info.Size() == 0 {
		return fmt.Errorf("%w: %s is empty", domain.ErrRecordingLost, path)
	}
	return nil
}

func normalizeStopErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	if errors.Is(err, exec.ErrWaitDelay) {
		return nil
	}
	return err
}

func isPermissionFailure(stderr string) bool {
	lower := strings.ToLower(stderr)
	return strings.Contains(lower, "permission denied") || strings.Contains(lower, "not authorized")
}

func stringsTrimSpaceSafe(input string) string {
	if input == "" {
		return input
	}
	return string(bytes.TrimSpace([]byte(input)))
}
