package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lectern/internal/domain"
	"lectern/internal/ports"
)

var (
	_ ports.InsightGenerator  = (*Client)(nil)
	_ ports.TestPrepGenerator = (*Client)(nil)
)

type capturedRequest struct {
	mu   sync.Mutex
	auth string
	body oaiChatRequest
}

func (c *capturedRequest) snapshot() (string, oaiChatRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.auth, c.body
}

func chatServer(t *testing.T, status int, content string) (*httptest.Server, *capturedRequest) {
	t.Helper()

	captured := &capturedRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		captured.mu.Lock()
		captured.auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&captured.body)
		captured.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status >= 400 {
			_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"message": content}})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
		})
	}))
	t.Cleanup(server.Close)
	return server, captured
}

func TestGenerateInsights(t *testing.T) {
	t.Parallel()

	content := "Here you go:\n```json\n" + `{"summary":"Mitochondria make ATP.","key_points":["ATP"],"study_plan":{"Day 1":"Review"}}` + "\n```"
	server, captured := chatServer(t, http.StatusOK, content)

	client := NewClient(Config{APIKey: "sk-test", BaseURL: server.URL + "/v1/", Temperature: DefaultTemperature})
	insights, err := client.GenerateInsights(context.Background(), "The mitochondria is the powerhouse of the cell.")
	require.NoError(t, err)

	assert.Equal(t, "Mitochondria make ATP.", insights.Summary)
	assert.Equal(t, []string{"ATP"}, insights.KeyPoints)
	assert.Equal(t, map[string]string{"Day 1": "Review"}, insights.StudyPlan)

	auth, body := captured.snapshot()
	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, DefaultModel, body.Model)
	assert.InDelta(t, 0.5, body.Temperature, 1e-9)
	assert.Equal(t, 800, body.MaxTokens)
	require.Len(t, body.Messages, 1)
	assert.Equal(t, "user", body.Messages[0].Role)
	assert.Contains(t, body.Messages[0].Content, `"""The mitochondria is the powerhouse of the cell."""`)
}

func TestNewClientTemperature(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   float64
		want float64
	}{
		{name: "zero kept", in: 0, want: 0},
		{name: "explicit", in: 1.2, want: 1.2},
		{name: "negative defaults", in: -1, want: DefaultTemperature},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			server, captured := chatServer(t, http.StatusOK, `{"summary":"ok"}`)
			client := NewClient(Config{APIKey: "sk-test", BaseURL: server.URL + "/v1", Temperature: tc.in})

			_, err := client.GenerateInsights(context.Background(), "transcript")
			require.NoError(t, err)

			_, body := captured.snapshot()
			assert.InDelta(t, tc.want, body.Temperature, 1e-9)
		})
	}
}

func TestGenerateInsightsMalformed(t *testing.T) {
	t.Parallel()

	server, _ := chatServer(t, http.StatusOK, "I cannot help with that.")
	_, err := NewClient(Config{APIKey: "k", BaseURL: server.URL + "/v1"}).GenerateInsights(context.Background(), "text")

	var failed *domain.EnrichmentFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "response was not JSON", failed.Reason)
}

func TestGenerateInsightsBrokenObject(t *testing.T) {
	t.Parallel()

	server, _ := chatServer(t, http.StatusOK, `{"summary": "unterminated}`)
	_, err := NewClient(Config{APIKey: "k", BaseURL: server.URL + "/v1"}).GenerateInsights(context.Background(), "text")

	var failed *domain.EnrichmentFailedError
	require.ErrorAs(t, err, &failed)
}

func TestGenerateInsightsAPIError(t *testing.T) {
	t.Parallel()

	server, _ := chatServer(t, http.StatusTooManyRequests, "rate limited")
	_, err := NewClient(Config{APIKey: "k", BaseURL: server.URL + "/v1"}).GenerateInsights(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestGenerateInsightsEmptyChoice(t *testing.T) {
	t.Parallel()

	server, _ := chatServer(t, http.StatusOK, "   ")
	_, err := NewClient(Config{APIKey: "k", BaseURL: server.URL + "/v1"}).GenerateInsights(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")
}

func TestGenerateTestPrep(t *testing.T) {
	t.Parallel()

	content := `{"keyConcepts":["- **Inertia**"],"formulas":["F = ma"],"study_strategies":["practice"],"commonQuestions":[]}`
	server, captured := chatServer(t, http.StatusOK, content)

	prep, err := NewClient(Config{APIKey: "k", BaseURL: server.URL + "/v1"}).GenerateTestPrep(context.Background(), "Physics", "University")
	require.NoError(t, err)

	assert.Equal(t, []string{"- **Inertia**"}, prep.KeyConcepts)
	assert.Equal(t, []string{"F = ma"}, prep.Formulas)
	assert.Equal(t, []string{"practice"}, prep.StudyStrategies)
	assert.Empty(t, prep.CommonQuestions)

	_, body := captured.snapshot()
	require.Len(t, body.Messages, 2)
	assert.Equal(t, oaiMessage{Role: "system", Content: "You are an expert academic tutor."}, body.Messages[0])
	assert.Contains(t, body.Messages[1].Content, "for Physics at the University level")
	assert.Zero(t, body.MaxTokens)
}

func TestClientRequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{}).GenerateInsights(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	got, err := extractJSON("noise {\"a\":{\"b\":1}} trailing")
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"b":1}}`, got)

	_, err = extractJSON("no braces")
	require.Error(t, err)

	_, err = extractJSON("} backwards {")
	require.Error(t, err)
}
