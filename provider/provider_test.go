package provider

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		input   string
		want    Kind
		wantErr bool
	}{
		{"openai", KindOpenAI, false},
		{" Gemini ", KindGemini, false},
		{"OPENAI", KindOpenAI, false},
		{"claude", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseKind(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLookup(t *testing.T) {
	info, ok := Lookup(KindOpenAI)
	require.True(t, ok)
	assert.Equal(t, "OpenAI (GPT)", info.DisplayName)
	assert.Equal(t, "gpt-4-turbo", info.Model)
	assert.Equal(t, "🤖", info.Icon)
	assert.Equal(t, "OpenAI", info.Label)

	info, ok = Lookup(KindGemini)
	require.True(t, ok)
	assert.Equal(t, "Google Gemini", info.DisplayName)
	assert.Equal(t, "gemini-1.5-flash", info.Model)
	assert.Equal(t, "✨", info.Icon)
	assert.Equal(t, "✨ Google Gemini", info.String())

	_, ok = Lookup("other")
	assert.False(t, ok)

	for _, k := range Kinds() {
		assert.True(t, k.Valid(), k.String())
	}
}

func TestAnalysisPrompt(t *testing.T) {
	got := AnalysisPrompt("print(1)", "python")
	assert.Equal(t, "Please analyze this python code:\n\n```python\nprint(1)\n```", got)

	got = AnalysisPrompt("console.log(1)", "")
	assert.Equal(t, "Please analyze this javascript code:\n\n```javascript\nconsole.log(1)\n```", got)
}

func TestAnalysisRequest(t *testing.T) {
	req := AnalysisRequest("x := 1", "go")
	assert.Equal(t, AnalysisInstructions, req.Instructions)
	assert.Contains(t, req.Instructions, "**Learning Points**")
	assert.Contains(t, req.Prompt, "```go\nx := 1\n```")
	assert.Equal(t, 2000, req.MaxTokens)
	require.NotNil(t, req.Temperature)
	assert.InDelta(t, 0.7, *req.Temperature, 1e-9)
	assert.True(t, req.Moderated)

	assert.False(t, InsightsRequest(nil).Moderated)
	assert.False(t, ProbeRequest().Moderated)
}

func TestInsightsPrompt(t *testing.T) {
	history := []HistoryEntry{
		{Language: "go", Topic: "channels"},
		{Language: "python"},
		{Language: "go", Topic: "generics"},
	}

	got := InsightsPrompt(history)
	assert.Contains(t, got, "- Total code analysis sessions: 3\n")
	assert.Contains(t, got, "- Languages used: go, python\n")
	assert.Contains(t, got, "- Recent coding patterns: go, python, go\n")
	assert.Contains(t, got, "1. go: channels\n2. python: General analysis\n3. go: generics\n\nProvide:")
	assert.True(t, strings.HasSuffix(got, "Keep it encouraging and actionable."))
}

func TestInsightsPrompt_LimitsRecentEntries(t *testing.T) {
	history := make([]HistoryEntry, 0, 15)
	for i := range 15 {
		history = append(history, HistoryEntry{Language: fmt.Sprintf("lang%02d", i)})
	}

	got := InsightsPrompt(history)
	assert.Contains(t, got, "- Total code analysis sessions: 15\n")
	assert.Contains(t, got, "1. lang05: General analysis\n")
	assert.Contains(t, got, "10. lang14: General analysis\n")
	assert.NotContains(t, got, "11. ")
	assert.NotContains(t, got, "lang04: General")

	req := InsightsRequest(history)
	assert.Equal(t, InsightsInstructions, req.Instructions)
	assert.Equal(t, 1500, req.MaxTokens)
	assert.InDelta(t, 0.8, *req.Temperature, 1e-9)
}

func TestProbeRequest(t *testing.T) {
	req := ProbeRequest()
	assert.Empty(t, req.Instructions)
	assert.Equal(t, ConnectionProbe, req.Prompt)
	assert.Equal(t, 20, req.MaxTokens)
}

func TestError(t *testing.T) {
	cause := errors.New("401 Unauthorized")
	err := NewError(KindOpenAI, ErrInvalidCredential, cause)

	assert.ErrorIs(t, err, ErrInvalidCredential)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, "openai: invalid API key: 401 Unauthorized", err.Error())

	wrapped := fmt.Errorf("analyze: %w", err)
	var pe *Error
	require.ErrorAs(t, wrapped, &pe)
	assert.Equal(t, KindOpenAI, pe.Provider)

	bare := NewError("", ErrNotReady, nil)
	assert.ErrorIs(t, bare, ErrNotReady)
	assert.Equal(t, ErrNotReady.Error(), bare.Error())
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"not ready", NewError("", ErrNotReady, nil), "AI service not initialized. Please configure your API key."},
		{"credential", NewError(KindGemini, ErrInvalidCredential, errors.New("API_KEY_INVALID")), "Invalid API key. Please check your API key configuration."},
		{"rate", NewError(KindOpenAI, ErrRateLimited, errors.New("429")), "Rate limit or quota exceeded. Please wait a moment and try again."},
		{"filtered", NewError(KindGemini, ErrContentFiltered, errors.New("SAFETY")), "Content blocked by safety filters. Please try rephrasing your request."},
		{"transport", NewError(KindOpenAI, ErrTransport, errors.New("dial tcp")), "Network error. Please check your internet connection."},
		{"unknown keeps message", NewError(KindOpenAI, ErrUnknownProvider, errors.New("model overloaded")), "model overloaded"},
		{"plain", errors.New("boom"), "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Describe(tt.err))
		})
	}
}

func TestValidateCredential(t *testing.T) {
	openAIKey := "sk-" + strings.Repeat("a", 48)
	tests := []struct {
		name    string
		kind    Kind
		key     string
		wantErr string
	}{
		{"openai ok", KindOpenAI, openAIKey, ""},
		{"openai prefix", KindOpenAI, strings.Repeat("a", 51), "start with"},
		{"openai short", KindOpenAI, "sk-abc", "too short"},
		{"gemini AIza", KindGemini, "AIzaSyShort", ""},
		{"gemini legacy ok", KindGemini, strings.Repeat("g", 30), ""},
		{"gemini legacy short", KindGemini, strings.Repeat("g", 29), "too short"},
		{"empty", KindOpenAI, "  ", "required"},
		{"too long", KindGemini, "AIza" + strings.Repeat("x", 200), "too long"},
		{"unknown kind", Kind("other"), "whatever", "unknown provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCredential(tt.kind, tt.key)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
