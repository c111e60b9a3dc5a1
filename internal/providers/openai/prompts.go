package openai

import "fmt"

const tutorSystemPrompt = "You are an expert academic tutor."

func insightsPrompt(transcript string) string {
	return fmt.Sprintf(`You are an assistant helping a student understand a lecture. The lecture content is:

"""%s"""

Please return a JSON object with the following structure:
{
  "summary": "...",
  "key_points": [...],
  "test_questions": [...],
  "glossary": [...],
  "lecture_structure": [...],
  "action_items": [...],
  "study_plan": { ... }
}
Only return valid JSON. Do not include extra explanation.`, transcript)
}

func testPrepPrompt(subject, level string) string {
	return fmt.Sprintf(`Create a comprehensive test preparation guide for %s at the %s level.
Respond with a JSON object with:
{
  "keyConcepts": [...],
  "formulas": [...],
  "studyStrategies": [...],
  "commonQuestions": [...]
}`, subject, level)
}
