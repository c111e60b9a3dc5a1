package usecase

import (
	"time"

	"lectern/internal/ports"
)

type activeSession struct {
	cancel    func()
	audio     ports.AudioSession
	startedAt time.Time
	timer     *time.Timer
}

// release disarms the auto-stop timer.
func (s *activeSession) release() {
	if s.timer != nil {
		s.timer.Stop()
	}
}
