// Package settings owns the persisted preferences document.
package settings

import (
	"context"
	"encoding/json"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"lectern/internal/domain"
	"lectern/internal/ports"
)

// DocumentKey is the document the settings live under.
const DocumentKey = "settings"

// Store reads and writes Settings through a DocumentStore. Failures are
// logged and never returned; callers always get a usable document.
type Store struct {
	docs ports.DocumentStore
	log  zerolog.Logger

	mu sync.Mutex
}

func NewStore(docs ports.DocumentStore, log zerolog.Logger) *Store {
	return &Store{
		docs: docs,
		log:  log.With().Str("component", "settings").Logger(),
	}
}

// Load returns the persisted settings, or defaults when nothing valid is stored.
func (s *Store) Load(ctx context.Context) domain.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Save replaces the persisted document. A current subject that is not in
// Subjects is cleared.
func (s *Store) Save(ctx context.Context, settings domain.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings = settings.Clone()
	if settings.CurrentSubject != "" && !settings.HasSubject(settings.CurrentSubject) {
		s.log.Debug().Str("subject", settings.CurrentSubject).Msg("clearing unknown current subject")
		settings.CurrentSubject = ""
	}
	s.save(ctx, settings)
}

// AddSubject appends a trimmed, non-empty, not-yet-known subject.
func (s *Store) AddSubject(ctx context.Context, name string) domain.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.load(ctx)
	name = strings.TrimSpace(name)
	if name == "" || current.HasSubject(name) {
		return current
	}
	current.Subjects = append(current.Subjects, name)
	s.save(ctx, current)
	return current
}

// RemoveSubject removes every exact match of name and clears the current
// subject when it pointed at name.
func (s *Store) RemoveSubject(ctx context.Context, name string) domain.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.load(ctx)
	if !current.HasSubject(name) && current.CurrentSubject != name {
		return current
	}
	current.Subjects = slices.DeleteFunc(current.Subjects, func(subject string) bool {
		return subject == name
	})
	if current.CurrentSubject == name {
		current.CurrentSubject = ""
	}
	s.save(ctx, current)
	return current
}

// SelectSubject sets the current subject to a known subject, or clears it
// for "". Unknown names leave the document unchanged.
func (s *Store) SelectSubject(ctx context.Context, name string) domain.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.load(ctx)
	if name != "" && !current.HasSubject(name) {
		s.log.Debug().Str("subject", name).Msg("ignoring unknown subject")
		return current
	}
	if current.CurrentSubject == name {
		return current
	}
	current.CurrentSubject = name
	s.save(ctx, current)
	return current
}

func (s *Store) load(ctx context.Context) domain.Settings {
	raw, ok, err := s.docs.Get(ctx, DocumentKey)
	if err != nil {
		s.logFailure(&domain.PersistenceError{Op: "read", Key: DocumentKey, Err: err})
		return domain.DefaultSettings()
	}
	if !ok {
		return domain.DefaultSettings()
	}

	settings := domain.DefaultSettings()
	if err := json.Unmarshal(raw, &settings); err != nil {
		s.logFailure(&domain.PersistenceError{Op: "decode", Key: DocumentKey, Err: err})
		return domain.DefaultSettings()
	}
	return settings.Clone()
}

func (s *Store) save(ctx context.Context, settings domain.Settings) {
	raw, err := json.Marshal(settings.Clone())
	if err != nil {
		s.logFailure(&domain.PersistenceError{Op: "encode", Key: DocumentKey, Err: err})
		return
	}
	if err := s.docs.Put(ctx, DocumentKey, raw); err != nil {
		s.logFailure(&domain.PersistenceError{Op: "write", Key: DocumentKey, Err: err})
	}
}

func (s *Store) logFailure(err *domain.PersistenceError) {
	s.log.Warn().Err(err).Str("op", err.Op).Msg("settings persistence failed")
}
