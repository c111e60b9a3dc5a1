package domain

import (
	"encoding/json"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

// DefaultMaxRecordingDuration is the text stored for a fresh install.
const DefaultMaxRecordingDuration = "45"

// Settings is the singleton preferences document. JSON keys match the
// document written by earlier mobile builds.
type Settings struct {
	AutoSaveEnabled bool `json:"autoSave"`

	// MaxRecordingDurationMinutes is the text the user entered. Invalid text
	// is kept as entered and disables the limit.
	MaxRecordingDurationMinutes string `json:"maxRecordingDuration"`

	Subjects       []string `json:"classes"`
	CurrentSubject string   `json:"currentClass"`
}

// DefaultSettings returns the document used when nothing valid is persisted.
func DefaultSettings() Settings {
	return Settings{
		AutoSaveEnabled:             false,
		MaxRecordingDurationMinutes: DefaultMaxRecordingDuration,
		Subjects:                    []string{},
		CurrentSubject:              "",
	}
}

// maxLimitMinutes is the largest minute count a time.Duration can hold.
const maxLimitMinutes = math.MaxInt64 / int64(time.Minute)

// MaxRecordingDuration parses the configured limit. ok is false when the
// text is not a positive integer or is too large to be a duration.
func (s Settings) MaxRecordingDuration() (time.Duration, bool) {
	minutes, err := strconv.ParseInt(strings.TrimSpace(s.MaxRecordingDurationMinutes), 10, 64)
	if err != nil || minutes <= 0 || minutes > maxLimitMinutes {
		return 0, false
	}
	return time.Duration(minutes) * time.Minute, true
}

// HasSubject reports whether name is a known subject (exact match).
func (s Settings) HasSubject(name string) bool {
	return slices.Contains(s.Subjects, name)
}

// Clone returns a copy that shares no slice storage with s.
func (s Settings) Clone() Settings {
	out := s
	out.Subjects = slices.Clone(s.Subjects)
	if out.Subjects == nil {
		out.Subjects = []string{}
	}
	return out
}

// UnmarshalJSON accepts the duration as either a JSON string or number and
// leaves absent keys untouched, so decoding into DefaultSettings() keeps
// defaults for partial documents.
func (s *Settings) UnmarshalJSON(data []byte) error {
	type plain Settings
	aux := struct {
		*plain
		MaxRecordingDuration json.RawMessage `json:"maxRecordingDuration"`
	}{plain: (*plain)(s)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if !isNull(aux.MaxRecordingDuration) {
		if text, ok := decodeString(aux.MaxRecordingDuration); ok {
			s.MaxRecordingDurationMinutes = text
		}
	}
	return nil
}
