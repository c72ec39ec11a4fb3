package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// planningModel is the model used for task decomposition, matching the
// teacher's pinned-model convention (internal/planning/planner.go).
const planningModel = anthropic.Model("claude-sonnet-4-5-20250929")

// Timeout bounds a single planning call (spec.md §5: "LLM calls get 180s").
const Timeout = 180 * time.Second

// maxContextFileBytes truncates each context snippet before it reaches the
// prompt (spec.md §4.G: "context file snippets (each truncated)").
const maxContextFileBytes = 4000

// PromptTemplate is the YAML-fronted template the planning prompt is
// rendered from, grounded on the teacher's own prompt-loader convention
// for templated system prompts (internal/session/prompts.go), adapted
// from Poindexter's per-feature template set to a single planning prompt.
type PromptTemplate struct {
	System string `yaml:"system"`
}

// LoadPromptTemplate reads a YAML prompt template from disk. If path is
// empty or unreadable, DefaultPromptTemplate is used instead — the
// planner never fails to start for lack of a customised prompt.
func LoadPromptTemplate(path string) (*PromptTemplate, error) {
	if path == "" {
		return DefaultPromptTemplate(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultPromptTemplate(), nil
	}
	var tpl PromptTemplate
	if err := yaml.Unmarshal(data, &tpl); err != nil {
		return nil, fmt.Errorf("planner: parsing prompt template %s: %w", path, err)
	}
	if tpl.System == "" {
		return DefaultPromptTemplate(), nil
	}
	return &tpl, nil
}

// DefaultPromptTemplate is the fallback system prompt used when no
// template file is configured.
func DefaultPromptTemplate() *PromptTemplate {
	return &PromptTemplate{
		System: "You decompose a software change request into small, independently " +
			"reviewable tasks. Reply with a single JSON object: " +
			`{"tasks":[{"id":"...","title":"...","description":"...",` +
			`"estimated_lines":N,"depends_on":["..."]}],"summary":"..."}. ` +
			"Each task should be small enough to review in one sitting. " +
			"Use the other tasks' ids (not store identities) in depends_on.",
	}
}

// responseSchema is the JSON shape the model is asked to reply with; it
// maps directly onto RawResult.
type responseSchema = RawResult

// AnthropicTransport implements Transport over a single non-streaming
// anthropic-sdk-go call (SPEC_FULL.md domain stack: replaces the teacher's
// hand-rolled SSE AnthropicClient since prompt content/parsing is out of
// scope and only one blocking call is needed).
type AnthropicTransport struct {
	client   anthropic.Client
	template *PromptTemplate
	logger   *zap.SugaredLogger
}

// NewAnthropicTransport builds a transport from an API key (spec.md §6:
// ANTHROPIC_API_KEY) and an optional prompt template.
func NewAnthropicTransport(apiKey string, template *PromptTemplate, logger *zap.SugaredLogger) *AnthropicTransport {
	if template == nil {
		template = DefaultPromptTemplate()
	}
	return &AnthropicTransport{
		client:   anthropic.NewClient(option.WithAPIKey(apiKey)),
		template: template,
		logger:   logger,
	}
}

// Generate sends the prompt, digest and context snippets to the model and
// parses its reply into a RawResult. Parsing failures surface as
// ParseError/SchemaError; they never mutate planner state.
func (t *AnthropicTransport) Generate(ctx context.Context, input Input) (*RawResult, error) {
	ctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	userMsg := buildUserMessage(input)

	msg, err := t.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     planningModel,
		MaxTokens: 4096,
		System: []anthropic.TextBlockParam{
			{Text: t.template.System},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userMsg)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("planner: anthropic request failed: %w", err)
	}

	text := extractText(msg)
	if t.logger != nil {
		t.logger.Infow("planner reply received", "bytes", len(text))
	}

	var raw RawResult
	if err := json.Unmarshal([]byte(extractJSONObject(text)), &raw); err != nil {
		return nil, &ParseError{Err: err}
	}
	if len(raw.Tasks) == 0 {
		return nil, &SchemaError{Reason: "response JSON has an empty or missing tasks array"}
	}
	return &raw, nil
}

func buildUserMessage(input Input) string {
	var b strings.Builder
	b.WriteString(input.Prompt)
	if input.ProjectDigest != "" {
		b.WriteString("\n\nProject structure:\n")
		b.WriteString(input.ProjectDigest)
	}
	if input.MaxLinesPerTask > 0 {
		fmt.Fprintf(&b, "\n\nTarget at most %d lines per task.", input.MaxLinesPerTask)
	}
	for _, f := range input.ContextFiles {
		content := f.Content
		if len(content) > maxContextFileBytes {
			content = content[:maxContextFileBytes] + "\n... (truncated)"
		}
		fmt.Fprintf(&b, "\n\n--- %s ---\n%s", f.Path, content)
	}
	return b.String()
}

// extractText concatenates every text block in the model's reply.
func extractText(msg *anthropic.Message) string {
	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}

// extractJSONObject trims any prose surrounding the model's JSON object,
// tolerating a reply wrapped in a markdown fence.
func extractJSONObject(text string) string {
	trimmed := strings.TrimSpace(text)
	start := strings.IndexByte(trimmed, '{')
	end := strings.LastIndexByte(trimmed, '}')
	if start < 0 || end < 0 || end < start {
		return trimmed
	}
	return trimmed[start : end+1]
}
