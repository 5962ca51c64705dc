package matcher

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/agentstation/refdata/internal/storage"
	"github.com/agentstation/refdata/internal/transport"
	"github.com/agentstation/refdata/pkg/errors"
)

// Default endpoints and models for the LLM backend.
const (
	DefaultOllamaBase   = "http://localhost:11434"
	DefaultOpenAIBase   = "https://api.openai.com/v1"
	DefaultOfflineModel = "llama3"
)

const systemPrompt = "You respond only with JSON and never with additional text."

// Generator produces a text completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, model, system, prompt string) (string, error)
}

// LLMScore is one entry of an LLM ranking reply.
type LLMScore struct {
	ID    int64
	Score float64
}

func (m *Matcher) rankWithLLM(ctx context.Context, raw string) []Match {
	if len(m.candidates) == 0 {
		return nil
	}

	prompt, err := buildPrompt(raw, m.candidates)
	if err != nil {
		m.log(ctx).Warn().Err(err).Msg("Failed to build LLM prompt; falling back to embeddings")
		return nil
	}

	var content string
	switch {
	case m.cfg.LLMMode == ModeOffline:
		content, err = m.completeOllama(ctx, prompt)
	case isGeminiModel(m.cfg.LLMModel) && (m.cfg.LLMAPIKey != "" || vertexProject() != ""):
		content, err = m.completeGemini(ctx, prompt)
	case m.cfg.LLMAPIKey == "":
		m.log(ctx).Warn().Msg("LLM backend configured without API credentials; falling back to embeddings")
		return nil
	default:
		content, err = m.completeOpenAI(ctx, prompt)
	}
	if err != nil {
		m.log(ctx).Warn().Err(err).Str("mode", m.cfg.LLMMode).Msg("LLM ranking failed; falling back to embeddings")
		return nil
	}

	scores, err := ParseLLMJSON(content)
	if err != nil {
		m.log(ctx).Warn().Err(err).Msg("LLM reply was not valid JSON; falling back to embeddings")
		return nil
	}

	byID := make(map[int64]int, len(m.candidates))
	for i, c := range m.candidates {
		byID[c.ID] = i
	}
	matches := make([]Match, 0, len(scores))
	for _, s := range scores {
		idx, ok := byID[s.ID]
		if !ok {
			continue
		}
		matches = append(matches, newMatch(m.candidates[idx], s.Score))
	}
	return m.finish(matches)
}

func buildPrompt(raw string, candidates []storage.CanonicalValue) (string, error) {
	type option struct {
		ID          int64  `json:"id"`
		Label       string `json:"label"`
		Dimension   string `json:"dimension"`
		Description string `json:"description"`
	}
	options := make([]option, len(candidates))
	for i, c := range candidates {
		options[i] = option{ID: c.ID, Label: c.CanonicalLabel, Dimension: c.Dimension, Description: deref(c.Description)}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(options); err != nil {
		return "", err
	}

	return "You are assisting with semantic data harmonization. Given a raw value, " +
		"rank the following canonical options from best to worst match. " +
		"Respond with a JSON array of objects containing 'id' and 'score' (0-1).\n\n" +
		"Raw value: " + raw + "\n\n" +
		"Canonical options: " + strings.TrimSpace(buf.String()), nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func messages(prompt string) []chatMessage {
	return []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: prompt},
	}
}

func (m *Matcher) completeOllama(ctx context.Context, prompt string) (string, error) {
	base := m.cfg.LLMAPIBase
	if base == "" {
		base = DefaultOllamaBase
	}
	model := m.cfg.LLMModel
	if model == "" {
		model = DefaultOfflineModel
	}

	body := map[string]any{
		"model":    model,
		"messages": messages(prompt),
		"stream":   false,
		"options":  map[string]any{"temperature": 0},
	}
	var reply struct {
		Message chatMessage `json:"message"`
	}
	if err := m.transport(transport.None).PostJSON(ctx, strings.TrimRight(base, "/")+"/api/chat", body, &reply); err != nil {
		return "", err
	}
	return reply.Message.Content, nil
}

func (m *Matcher) completeOpenAI(ctx context.Context, prompt string) (string, error) {
	base := m.cfg.LLMAPIBase
	if base == "" {
		base = DefaultOpenAIBase
	}

	body := map[string]any{
		"model":       m.cfg.LLMModel,
		"messages":    messages(prompt),
		"temperature": 0,
	}
	var reply struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
	auth := transport.Bearer
	if strings.Contains(base, ".openai.azure.com") {
		auth = transport.Header("api-key")
	}
	if err := m.transport(auth).PostJSON(ctx, strings.TrimRight(base, "/")+"/chat/completions", body, &reply); err != nil {
		return "", err
	}
	if len(reply.Choices) == 0 {
		return "", errors.NewAPIError("openai", 0, "reply has no choices")
	}
	return reply.Choices[0].Message.Content, nil
}

func (m *Matcher) transport(auth transport.Auth) *transport.Client {
	var opts []transport.Option
	if m.httpClient != nil {
		opts = append(opts, transport.WithHTTPClient(m.httpClient))
	}
	return transport.New(auth, m.cfg.LLMAPIKey, opts...)
}

func (m *Matcher) completeGemini(ctx context.Context, prompt string) (string, error) {
	generator := m.generator
	if generator == nil {
		generator = newGeminiGenerator(m.cfg.LLMAPIKey, m.cfg.LLMAPIBase)
	}
	return generator.Generate(ctx, m.cfg.LLMModel, systemPrompt, prompt)
}

// ParseLLMJSON extracts the score list from an LLM reply. The reply may be
// wrapped in a Markdown code fence or surrounded by prose.
func ParseLLMJSON(content string) ([]LLMScore, error) {
	text := strings.TrimSpace(content)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			text = text[nl+1:]
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	start := strings.IndexByte(text, '[')
	end := strings.LastIndexByte(text, ']')
	if start < 0 || end < start {
		return nil, errors.NewParseError("json", "llm reply", "no JSON array found", nil)
	}

	var items []map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &items); err != nil {
		return nil, errors.WrapParse("json", "llm reply", err)
	}

	scores := make([]LLMScore, 0, len(items))
	for _, item := range items {
		id, ok := toInt64(item["id"])
		if !ok {
			continue
		}
		score, _ := toFloat(item["score"])
		scores = append(scores, LLMScore{ID: id, Score: score})
	}
	return scores, nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), n == float64(int64(n))
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return id, err == nil
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}
