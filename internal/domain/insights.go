package domain

import (
	"encoding/json"
)

// GlossaryEntry is one term defined by the lecture.
type GlossaryEntry struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

// Insights is the study material derived from a transcript. Every field is
// optional; consumers must treat nil and empty alike.
type Insights struct {
	Summary          string            `json:"summary,omitempty"`
	KeyPoints        []string          `json:"key_points,omitempty"`
	TestQuestions    []string          `json:"test_questions,omitempty"`
	Glossary         []GlossaryEntry   `json:"glossary,omitempty"`
	LectureStructure []string          `json:"lecture_structure,omitempty"`
	ActionItems      []string          `json:"action_items,omitempty"`
	StudyPlan        map[string]string `json:"study_plan,omitempty"`
}

// IsEmpty reports whether no field carries content.
func (i Insights) IsEmpty() bool {
	return i.Summary == "" &&
		len(i.KeyPoints) == 0 &&
		len(i.TestQuestions) == 0 &&
		len(i.Glossary) == 0 &&
		len(i.LectureStructure) == 0 &&
		len(i.ActionItems) == 0 &&
		len(i.StudyPlan) == 0
}

// UnmarshalJSON decodes field by field. Missing, null or wrongly typed
// fields are left absent; a non-object document yields empty Insights.
func (i *Insights) UnmarshalJSON(data []byte) error {
	*i = Insights{}

	fields, ok := objectFields(data)
	if !ok {
		return nil
	}

	if raw, ok := lookup(fields, "summary"); ok {
		i.Summary = flattenText(raw)
	}
	if raw, ok := lookup(fields, "key_points", "keyPoints"); ok {
		i.KeyPoints = decodeStrings(raw)
	}
	if raw, ok := lookup(fields, "test_questions", "testQuestions"); ok {
		i.TestQuestions = decodeStrings(raw)
	}
	if raw, ok := lookup(fields, "glossary"); ok {
		i.Glossary = decodeGlossary(raw)
	}
	if raw, ok := lookup(fields, "lecture_structure", "lectureStructure"); ok {
		i.LectureStructure = decodeStrings(raw)
	}
	if raw, ok := lookup(fields, "action_items", "actionItems"); ok {
		i.ActionItems = decodeStrings(raw)
	}
	if raw, ok := lookup(fields, "study_plan", "studyPlan"); ok {
		i.StudyPlan = decodeStudyPlan(raw)
	}
	return nil
}

// ParseInsights decodes a provider document.
func ParseInsights(data []byte) (Insights, error) {
	var insights Insights
	if err := json.Unmarshal(data, &insights); err != nil {
		return Insights{}, err
	}
	return insights, nil
}
