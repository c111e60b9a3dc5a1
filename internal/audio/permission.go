package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"lectern/internal/ports"
)

const defaultProbeTimeout = 5 * time.Second

// PermissionProbe checks microphone access by capturing a fraction of a
// second into the null muxer.
type PermissionProbe struct {
	command string
	cfg     ports.AudioConfig
	timeout time.Duration
}

func NewPermissionProbe(command string, cfg ports.AudioConfig) *PermissionProbe {
	if command == "" {
		command = "ffmpeg"
	}
	return &PermissionProbe{command: command, cfg: withDefaults(cfg), timeout: defaultProbeTimeout}
}

// RequestPermission reports false only when the OS refused access. Other
// device failures report true and surface later when capture starts.
func (p *PermissionProbe) RequestPermission(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	args := append(inputArgs(p.cfg), "-t", "0.1", "-f", "null", "-")
	cmd := exec.CommandContext(ctx, p.command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	err := cmd.Run()
	if isPermissionFailure(stderr.String()) {
		return false, nil
	}
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true, nil
	}
	return false, fmt.Errorf("probe microphone: %w", err)
}
