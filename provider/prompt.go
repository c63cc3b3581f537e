package provider

import (
	"slices"
	"strings"
	"text/template"
)

// DefaultLanguage is used when a submission carries no language tag.
const DefaultLanguage = "javascript"

const defaultTopic = "General analysis"

const (
	analysisMaxTokens    = 2000
	analysisTemperature  = 0.7
	insightsMaxTokens    = 1500
	insightsTemperature  = 0.8
	probeMaxTokens       = 20
	probeTemperature     = 0.1
	recentInsightEntries = 10
)

// AnalysisInstructions is the fixed system instruction for code analysis.
const AnalysisInstructions = `You are an expert code analyzer and educator. Analyze the provided code and explain it in a clear, educational manner. Focus on:

1. **Code Structure**: Explain the overall structure and organization
2. **Key Concepts**: Identify and explain programming concepts used
3. **Functionality**: Describe what the code does step by step
4. **Best Practices**: Point out good practices and potential improvements
5. **Learning Points**: Highlight important concepts for learning

Make your explanation beginner-friendly but thorough. Use clear headings and bullet points for better readability.`

// InsightsInstructions is the system instruction for coding insights.
const InsightsInstructions = "You are a supportive coding mentor who provides personalized learning insights."

// ConnectionProbe is the prompt sent by connection tests.
const ConnectionProbe = `Hello, this is a connection test. Please respond with "Connection successful".`

var analysisTemplate = template.Must(template.New("analysis").Parse(
	"Please analyze this {{.Language}} code:\n\n```{{.Language}}\n{{.Code}}\n```",
))

var insightsTemplate = template.Must(template.New("insights").Funcs(template.FuncMap{
	"join": strings.Join,
	"inc":  func(i int) int { return i + 1 },
	"topic": func(t string) string {
		if strings.TrimSpace(t) == "" {
			return defaultTopic
		}
		return t
	},
}).Parse(`Based on the user's coding history, provide personalized insights:

**Coding Statistics:**
- Total code analysis sessions: {{.Total}}
- Languages used: {{join .Languages ", "}}
- Recent coding patterns: {{join .RecentLanguages ", "}}

**Recent Code Topics:**
{{range $i, $e := .Recent}}{{inc $i}}. {{$e.Language}}: {{topic $e.Topic}}
{{end}}
Provide:
1. **Learning Progress**: What concepts the user seems to be working on
2. **Skill Assessment**: Areas of strength and improvement
3. **Recommendations**: Next steps for learning
4. **Practice Suggestions**: Specific coding exercises or projects

Keep it encouraging and actionable.`))

func renderTemplate(tmpl *template.Template, data any) string {
	var buf strings.Builder
	// the templates are fixed and the data types are ours, execution cannot fail
	_ = tmpl.Execute(&buf, data)
	return buf.String()
}

// AnalysisPrompt renders the user turn for an analysis request: the code fenced
// by its language tag.
func AnalysisPrompt(code, language string) string {
	if strings.TrimSpace(language) == "" {
		language = DefaultLanguage
	}
	return renderTemplate(analysisTemplate, struct {
		Language string
		Code     string
	}{language, code})
}

// AnalysisRequest builds the request used by both single and streaming analysis.
func AnalysisRequest(code, language string) Request {
	return Request{
		Instructions: AnalysisInstructions,
		Prompt:       AnalysisPrompt(code, language),
		MaxTokens:    analysisMaxTokens,
		Temperature:  Float(analysisTemperature),
		Moderated:    true,
	}
}

// InsightsPrompt summarizes the history: total sessions, distinct languages in
// first-seen order and the most recent entries.
func InsightsPrompt(history []HistoryEntry) string {
	languages := make([]string, 0, len(history))
	for _, h := range history {
		if !slices.Contains(languages, h.Language) {
			languages = append(languages, h.Language)
		}
	}

	recent := history
	if len(recent) > recentInsightEntries {
		recent = recent[len(recent)-recentInsightEntries:]
	}
	recentLanguages := make([]string, len(recent))
	for i, h := range recent {
		recentLanguages[i] = h.Language
	}

	return renderTemplate(insightsTemplate, struct {
		Total           int
		Languages       []string
		RecentLanguages []string
		Recent          []HistoryEntry
	}{len(history), languages, recentLanguages, recent})
}

// InsightsRequest builds the mentoring request for a coding history.
func InsightsRequest(history []HistoryEntry) Request {
	return Request{
		Instructions: InsightsInstructions,
		Prompt:       InsightsPrompt(history),
		MaxTokens:    insightsMaxTokens,
		Temperature:  Float(insightsTemperature),
	}
}

// ProbeRequest builds the minimal round trip used to verify a credential.
func ProbeRequest() Request {
	return Request{
		Prompt:      ConnectionProbe,
		MaxTokens:   probeMaxTokens,
		Temperature: Float(probeTemperature),
	}
}
