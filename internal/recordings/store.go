// Package recordings owns the saved lecture recordings.
package recordings

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"lectern/internal/domain"
	"lectern/internal/ports"
)

// DocumentKey is the document the recordings live under. The document is a
// JSON array persisted oldest-first.
const DocumentKey = "audio"

// Store exposes recordings most-recent-first over an oldest-first document.
type Store struct {
	docs ports.DocumentStore
	log  zerolog.Logger
	now  func() time.Time
	id   func() string

	mu sync.Mutex
}

type Option func(*Store)

// WithClock overrides the SavedAt clock.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDs overrides recording ID generation.
func WithIDs(id func() string) Option {
	return func(s *Store) { s.id = id }
}

func NewStore(docs ports.DocumentStore, log zerolog.Logger, opts ...Option) *Store {
	s := &Store{
		docs: docs,
		log:  log.With().Str("component", "recordings").Logger(),
		now:  time.Now,
		id:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns all recordings, most recently saved first.
func (s *Store) List(ctx context.Context) []domain.Recording {
	s.mu.Lock()
	defer s.mu.Unlock()

	persisted, _ := s.read(ctx)
	slices.Reverse(persisted)
	return persisted
}

// At returns the recording at displayIndex in the List view.
func (s *Store) At(ctx context.Context, displayIndex int) (domain.Recording, bool) {
	list := s.List(ctx)
	if displayIndex < 0 || displayIndex >= len(list) {
		return domain.Recording{}, false
	}
	return list[displayIndex], true
}

// Append adds recording to the end of the persisted sequence. A missing ID
// or SavedAt is filled in. The write is dropped when the existing document
// cannot be read, so a transient failure never truncates history.
func (s *Store) Append(ctx context.Context, recording domain.Recording) {
	s.mu.Lock()
	defer s.mu.Unlock()

	persisted, ok := s.read(ctx)
	if !ok {
		s.log.Warn().Str("subject", recording.Subject).Msg("dropping recording append")
		return
	}
	if recording.ID == "" {
		recording.ID = s.id()
	}
	if recording.SavedAt.IsZero() {
		recording.SavedAt = s.now().UTC()
	}
	s.write(ctx, append(persisted, recording))
}

// RemoveAt removes the recording at displayIndex in the List view.
func (s *Store) RemoveAt(ctx context.Context, displayIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	persisted, ok := s.read(ctx)
	if !ok {
		return
	}
	index := len(persisted) - 1 - displayIndex
	if displayIndex < 0 || index < 0 {
		s.log.Warn().
			Int("display_index", displayIndex).
			Int("count", len(persisted)).
			Msg("recording index out of range")
		return
	}
	s.write(ctx, slices.Delete(persisted, index, index+1))
}

// read returns the persisted sequence and whether it is safe to write back.
func (s *Store) read(ctx context.Context) ([]domain.Recording, bool) {
	raw, found, err := s.docs.Get(ctx, DocumentKey)
	if err != nil {
		s.logFailure(&domain.PersistenceError{Op: "read", Key: DocumentKey, Err: err})
		return nil, false
	}
	if !found {
		return []domain.Recording{}, true
	}

	var persisted []domain.Recording
	if err := json.Unmarshal(raw, &persisted); err != nil {
		s.logFailure(&domain.PersistenceError{Op: "decode", Key: DocumentKey, Err: err})
		return nil, false
	}
	if persisted == nil {
		persisted = []domain.Recording{}
	}
	return persisted, true
}

func (s *Store) write(ctx context.Context, persisted []domain.Recording) {
	raw, err := json.Marshal(persisted)
	if err != nil {
		s.logFailure(&domain.PersistenceError{Op: "encode", Key: DocumentKey, Err: err})
		return
	}
	if err := s.docs.Put(ctx, DocumentKey, raw); err != nil {
		s.logFailure(&domain.PersistenceError{Op: "write", Key: DocumentKey, Err: err})
	}
}

func (s *Store) logFailure(err *domain.PersistenceError) {
	s.log.Warn().Err(err).Str("op", err.Op).Msg("recordings persistence failed")
}
