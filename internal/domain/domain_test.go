package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInsightsFullDocument(t *testing.T) {
	t.Parallel()

	doc := `{
		"summary": "Cells make energy.",
		"key_points": ["Mitochondria produce ATP"],
		"test_questions": ["What produces ATP?"],
		"glossary": [{"term": "ATP", "definition": "Energy currency"}],
		"lecture_structure": ["Intro", "Organelles"],
		"action_items": ["Read chapter 3"],
		"study_plan": {"Day 1": "Review notes", "Day 2": "Practice questions"}
	}`

	insights, err := ParseInsights([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, "Cells make energy.", insights.Summary)
	assert.Equal(t, []string{"Mitochondria produce ATP"}, insights.KeyPoints)
	assert.Equal(t, []string{"What produces ATP?"}, insights.TestQuestions)
	assert.Equal(t, []GlossaryEntry{{Term: "ATP", Definition: "Energy currency"}}, insights.Glossary)
	assert.Equal(t, []string{"Intro", "Organelles"}, insights.LectureStructure)
	assert.Equal(t, []string{"Read chapter 3"}, insights.ActionItems)
	assert.Equal(t, map[string]string{"Day 1": "Review notes", "Day 2": "Practice questions"}, insights.StudyPlan)
	assert.False(t, insights.IsEmpty())
}

func TestParseInsightsToleratesMissingAndMistypedFields(t *testing.T) {
	t.Parallel()

	doc := `{"summary": "Only a summary", "key_points": 42, "glossary": null, "study_plan": "tomorrow"}`

	insights, err := ParseInsights([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, "Only a summary", insights.Summary)
	assert.Nil(t, insights.KeyPoints)
	assert.Nil(t, insights.Glossary)
	assert.Equal(t, map[string]string{"Day 1": "tomorrow"}, insights.StudyPlan)
	assert.Nil(t, insights.TestQuestions)
}

func TestParseInsightsNonObjectIsEmpty(t *testing.T) {
	t.Parallel()

	for _, doc := range []string{`null`, `[]`, `"text"`, `{}`} {
		insights, err := ParseInsights([]byte(doc))
		require.NoError(t, err, doc)
		assert.True(t, insights.IsEmpty(), doc)
	}

	_, err := ParseInsights([]byte(`{not json`))
	require.Error(t, err)
}

func TestParseInsightsGlossaryShapes(t *testing.T) {
	t.Parallel()

	doc := `{"glossary": ["Osmosis: water movement", {"word": "Cell", "meaning": "Unit of life"}, {"Enzyme": "Catalyst"}, 7]}`
	insights, err := ParseInsights([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, []GlossaryEntry{
		{Term: "Osmosis", Definition: "water movement"},
		{Term: "Cell", Definition: "Unit of life"},
		{Term: "Enzyme", Definition: "Catalyst"},
	}, insights.Glossary)

	objectDoc := `{"glossary": {"Zeta": "last", "Alpha": "first"}}`
	insights, err = ParseInsights([]byte(objectDoc))
	require.NoError(t, err)
	assert.Equal(t, []GlossaryEntry{{Term: "Zeta", Definition: "last"}, {Term: "Alpha", Definition: "first"}}, insights.Glossary)
}

func TestParseInsightsStudyPlanListValues(t *testing.T) {
	t.Parallel()

	insights, err := ParseInsights([]byte(`{"studyPlan": {"Monday": ["Read", "Quiz"]}}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Monday": "Read; Quiz"}, insights.StudyPlan)
}

func TestInsightsMarshalOmitsAbsentFields(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(Insights{Summary: "s"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"summary":"s"}`, string(data))
}

func TestSettingsUnmarshalAcceptsNumericDuration(t *testing.T) {
	t.Parallel()

	settings := DefaultSettings()
	require.NoError(t, json.Unmarshal([]byte(`{"maxRecordingDuration": 90, "classes": ["Bio"]}`), &settings))

	assert.Equal(t, "90", settings.MaxRecordingDurationMinutes)
	assert.Equal(t, []string{"Bio"}, settings.Subjects)
	assert.False(t, settings.AutoSaveEnabled)
	assert.Equal(t, "", settings.CurrentSubject)
}

func TestSettingsUnmarshalKeepsDefaultsForMissingKeys(t *testing.T) {
	t.Parallel()

	settings := DefaultSettings()
	require.NoError(t, json.Unmarshal([]byte(`{"autoSave": true}`), &settings))

	assert.True(t, settings.AutoSaveEnabled)
	assert.Equal(t, DefaultMaxRecordingDuration, settings.MaxRecordingDurationMinutes)
	assert.Equal(t, []string{}, settings.Subjects)
}

func TestSettingsMaxRecordingDuration(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		want time.Duration
		ok   bool
	}{
		"45":   {want: 45 * time.Minute, ok: true},
		" 1 ":  {want: time.Minute, ok: true},
		"0":    {ok: false},
		"-5":   {ok: false},
		"abc":  {ok: false},
		"":     {ok: false},
		"1.5":  {ok: false},
		"9000": {want: 9000 * time.Minute, ok: true},

		"153722867280912930":   {want: 153722867280912930 * time.Minute, ok: true},
		"153722867280912931":   {ok: false},
		"200000000000000":      {ok: false},
		"9223372036854775807":  {ok: false},
		"99999999999999999999": {ok: false},
	}
	for text, tc := range cases {
		got, ok := Settings{MaxRecordingDurationMinutes: text}.MaxRecordingDuration()
		assert.Equal(t, tc.ok, ok, text)
		assert.Equal(t, tc.want, got, text)
	}
}

func TestSettingsCloneDoesNotShareSubjects(t *testing.T) {
	t.Parallel()

	original := Settings{Subjects: []string{"Bio"}}
	clone := original.Clone()
	clone.Subjects[0] = "Math"

	assert.Equal(t, "Bio", original.Subjects[0])
	assert.Equal(t, []string{}, Settings{}.Clone().Subjects)
}

func TestParseTestPrepLenient(t *testing.T) {
	t.Parallel()

	prep, err := ParseTestPrep([]byte(`{"keyConcepts": ["Force"], "formulas": "F = ma", "study_strategies": ["Practice"], "commonQuestions": {}}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"Force"}, prep.KeyConcepts)
	assert.Equal(t, []string{"F = ma"}, prep.Formulas)
	assert.Equal(t, []string{"Practice"}, prep.StudyStrategies)
	assert.Nil(t, prep.CommonQuestions)
}

func TestCodeOf(t *testing.T) {
	t.Parallel()

	cases := map[ErrorCode]error{
		ErrorCodePermissionDenied:    ErrPermissionDenied,
		ErrorCodeDeviceError:         fmt.Errorf("%w: ffmpeg missing", ErrDeviceUnavailable),
		ErrorCodeRecordingLost:       ErrRecordingLost,
		ErrorCodeTranscriptionFailed: TranscriptionFailed("status 500", nil),
		ErrorCodeEnrichmentFailed:    fmt.Errorf("run: %w", EnrichmentFailed("bad json", errors.New("eof"))),
		ErrorCodePersistence:         &PersistenceError{Op: "write", Key: "settings", Err: errors.New("disk full")},
	}
	for want, err := range cases {
		assert.Equal(t, want, CodeOf(err), err.Error())
	}

	assert.Equal(t, ErrorCode(""), CodeOf(nil))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("other")))
}

func TestStageErrorsUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	err := TranscriptionFailed("transport", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "transcription failed: transport: connection reset", err.Error())

	err = EnrichmentFailed("empty response", nil)
	assert.Equal(t, "enrichment failed: empty response", err.Error())
}
