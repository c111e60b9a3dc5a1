package server

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SweepUploads removes upload files older than maxAge every interval until
// ctx is cancelled. Uploads are normally removed by the handler; this only
// collects what a crashed process left behind.
func (s *Server) SweepUploads(ctx context.Context, interval, maxAge time.Duration) error {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if maxAge <= 0 {
		maxAge = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.sweepOnce(maxAge)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sweepOnce(maxAge)
		}
	}
}

func (s *Server) sweepOnce(maxAge time.Duration) int {
	entries, err := os.ReadDir(s.cfg.UploadDir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("dir", s.cfg.UploadDir).Msg("upload sweep failed")
		}
		return 0
	}

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), "upload-") {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.cfg.UploadDir, entry.Name())); err == nil {
			removed++
		}
	}
	if removed > 0 {
		s.log.Info().Int("removed", removed).Msg("swept stale uploads")
	}
	return removed
}
