package domain

import (
	"encoding/json"
	"time"
)

// Recording is one saved lecture. JSON keys match the document written by
// earlier mobile builds; ID and SavedAt were added later and may be absent.
type Recording struct {
	ID                  string    `json:"id,omitempty"`
	Subject             string    `json:"subject"`
	AudioLocation       string    `json:"recordingUri"`
	Transcript          string    `json:"fullText"`
	Insights            Insights  `json:"insights"`
	InsightsUnavailable bool      `json:"insightsUnavailable,omitempty"`
	SavedAt             time.Time `json:"savedAt"`
}

// NewRecording builds a Recording from a pipeline result.
func NewRecording(subject string, result PipelineResult) Recording {
	return Recording{
		Subject:             subject,
		AudioLocation:       result.AudioLocation,
		Transcript:          result.Transcript,
		Insights:            result.Insights,
		InsightsUnavailable: result.InsightsUnavailable,
	}
}

// TestPrep is the study guide returned for one subject.
type TestPrep struct {
	Subject         string   `json:"subject"`
	Level           string   `json:"level"`
	KeyConcepts     []string `json:"keyConcepts"`
	Formulas        []string `json:"formulas"`
	StudyStrategies []string `json:"studyStrategies"`
	CommonQuestions []string `json:"commonQuestions"`
}

// UnmarshalJSON decodes each list leniently, like Insights.
func (p *TestPrep) UnmarshalJSON(data []byte) error {
	*p = TestPrep{}

	fields, ok := objectFields(data)
	if !ok {
		return nil
	}
	if raw, ok := lookup(fields, "subject"); ok {
		p.Subject, _ = decodeString(raw)
	}
	if raw, ok := lookup(fields, "level"); ok {
		p.Level, _ = decodeString(raw)
	}
	if raw, ok := lookup(fields, "keyConcepts", "key_concepts"); ok {
		p.KeyConcepts = decodeStrings(raw)
	}
	if raw, ok := lookup(fields, "formulas"); ok {
		p.Formulas = decodeStrings(raw)
	}
	if raw, ok := lookup(fields, "studyStrategies", "study_strategies"); ok {
		p.StudyStrategies = decodeStrings(raw)
	}
	if raw, ok := lookup(fields, "commonQuestions", "common_questions"); ok {
		p.CommonQuestions = decodeStrings(raw)
	}
	return nil
}

// ParseTestPrep decodes a provider document.
func ParseTestPrep(data []byte) (TestPrep, error) {
	var prep TestPrep
	if err := json.Unmarshal(data, &prep); err != nil {
		return TestPrep{}, err
	}
	return prep, nil
}
