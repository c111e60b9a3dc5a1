package audio

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lectern/internal/domain"
	"lectern/internal/ports"
)

var (
	_ ports.AudioCapture         = (*FFMPEGCapture)(nil)
	_ ports.MicrophonePermission = (*PermissionProbe)(nil)
)

const recordScript = `#!/usr/bin/env bash
out="${@: -1}"
printf '%s\n' "$@" > "$out.args"
printf 'audio' > "$out"
trap 'kill "$pid" 2>/dev/null; exit 0' INT TERM
sleep 5 >/dev/null 2>&1 &
pid=$!
wait "$pid"
`

func newTestCapture(script string) *FFMPEGCapture {
	capture := NewFFMPEGCapture(script)
	capture.now = func() time.Time { return time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC) }
	capture.stopGrace = 300 * time.Millisecond
	return capture
}

func TestFFMPEGCaptureRecordsToFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	capture := newTestCapture(writeScript(t, "record.sh", recordScript))

	session, err := capture.Start(context.Background(), ports.AudioConfig{OutputDir: dir})
	require.NoError(t, err)

	location, err := session.Stop()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "recording-20260504T103000.000.m4a"), location)

	data, err := os.ReadFile(location)
	require.NoError(t, err)
	assert.Equal(t, "audio", string(data))

	args, err := os.ReadFile(location + ".args")
	require.NoError(t, err)
	assert.Contains(t, string(args), "pulse\n")
	assert.Contains(t, string(args), "-ar\n44100\n")

	again, err := session.Stop()
	require.NoError(t, err)
	assert.Equal(t, location, again)
}

func TestFFMPEGCaptureHonoursFormat(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	capture := newTestCapture(writeScript(t, "record.sh", recordScript))

	session, err := capture.Start(context.Background(), ports.AudioConfig{OutputDir: dir, Format: ".wav"})
	require.NoError(t, err)
	location, err := session.Stop()
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(location, ".wav"), location)
}

func TestFFMPEGCaptureStopWithoutFileIsRecordingLost(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "silent.sh", "#!/usr/bin/env bash\ntrap 'exit 0' INT\nsleep 5 >/dev/null 2>&1 &\nwait $!\n")
	capture := newTestCapture(script)

	session, err := capture.Start(context.Background(), ports.AudioConfig{OutputDir: t.TempDir()})
	require.NoError(t, err)

	location, err := session.Stop()
	require.ErrorIs(t, err, domain.ErrRecordingLost)
	assert.Empty(t, location)

	_, again := session.Stop()
	require.ErrorIs(t, again, domain.ErrRecordingLost)
}

func TestFFMPEGCaptureEmptyFileIsRecordingLost(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "empty.sh", "#!/usr/bin/env bash\nout=\"${@: -1}\"\n: > \"$out\"\ntrap 'exit 0' INT\nsleep 5 >/dev/null 2>&1 &\nwait $!\n")
	capture := newTestCapture(script)

	session, err := capture.Start(context.Background(), ports.AudioConfig{OutputDir: t.TempDir()})
	require.NoError(t, err)

	_, err = session.Stop()
	require.ErrorIs(t, err, domain.ErrRecordingLost)
}

func TestFFMPEGCaptureKillsAfterGrace(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "stubborn.sh", "#!/usr/bin/env bash\nout=\"${@: -1}\"\nprintf 'x' > \"$out\"\ntrap '' INT\nsleep 5 >/dev/null 2>&1 &\nwait $!\n")
	capture := newTestCapture(script)

	session, err := capture.Start(context.Background(), ports.AudioConfig{OutputDir: t.TempDir()})
	require.NoError(t, err)

	started := time.Now()
	location, err := session.Stop()
	require.NoError(t, err)
	assert.NotEmpty(t, location)
	assert.Less(t, time.Since(started), 3*time.Second)
}

func TestFFMPEGCaptureStartEarlyExit(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "fail.sh", "#!/usr/bin/env bash\necho 'boom' 1>&2\nexit 1\n")
	capture := newTestCapture(script)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := capture.Start(ctx, ports.AudioConfig{OutputDir: t.TempDir()})
	require.ErrorIs(t, err, domain.ErrDeviceUnavailable)
	assert.Contains(t, err.Error(), "exited before capture started")
	assert.Contains(t, err.Error(), "boom")
}

func TestFFMPEGCaptureStartPermissionDenied(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "denied.sh", "#!/usr/bin/env bash\necho 'default: Permission denied' 1>&2\nexit 1\n")
	capture := newTestCapture(script)

	_, err := capture.Start(context.Background(), ports.AudioConfig{OutputDir: t.TempDir()})
	require.ErrorIs(t, err, domain.ErrPermissionDenied)
}

func TestFFMPEGCaptureMissingBinary(t *testing.T) {
	t.Parallel()

	capture := newTestCapture(filepath.Join(t.TempDir(), "does-not-exist"))
	_, err := capture.Start(context.Background(), ports.AudioConfig{OutputDir: t.TempDir()})
	require.ErrorIs(t, err, domain.ErrDeviceUnavailable)
}

func TestNormalizeStopErrExitErrorIsIgnored(t *testing.T) {
	t.Parallel()

	err := exec.Command("bash", "-c", "exit 1").Run()
	require.Error(t, err)
	assert.NoError(t, normalizeStopErr(err))
}

func TestStringsTrimSpaceSafe(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "hi", stringsTrimSpaceSafe("  hi\n"))
	assert.Equal(t, "", stringsTrimSpaceSafe(""))
}

func TestPermissionProbe(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		script  string
		granted bool
	}{
		{name: "granted", script: "#!/usr/bin/env bash\nexit 0\n", granted: true},
		{name: "denied", script: "#!/usr/bin/env bash\necho 'Permission denied' 1>&2\nexit 1\n", granted: false},
		{name: "not authorized", script: "#!/usr/bin/env bash\necho 'Device not authorized' 1>&2\nexit 1\n", granted: false},
		{name: "other device failure", script: "#!/usr/bin/env bash\necho 'No such device' 1>&2\nexit 1\n", granted: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			probe := NewPermissionProbe(writeScript(t, "probe.sh", tc.script), ports.AudioConfig{})
			granted, err := probe.RequestPermission(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tc.granted, granted)
		})
	}
}

func TestPermissionProbeMissingBinary(t *testing.T) {
	t.Parallel()

	probe := NewPermissionProbe(filepath.Join(t.TempDir(), "missing"), ports.AudioConfig{})
	granted, err := probe.RequestPermission(context.Background())
	require.Error(t, err)
	assert.False(t, granted)
}

func writeScript(t *testing.T, name string, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o700))
	return path
}
