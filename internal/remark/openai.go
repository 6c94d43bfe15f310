package remark

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const maxTokens = 512

const systemPrompt = `You are a reconciliation analyst. Given a resolved
reconciliation state, the rule that decided it, and field-level evidence
comparing the internal record against the MIS record, write one concise
operator-facing remark explaining the outcome and what to do about it.
Respond as a JSON object: {"suggested_art_remarks": "<remark>"}.`

// OpenAIProvider generates remarks through a chat-completion model.
// Strictly best-effort: callers compose it with WithFallback so a
// timeout or malformed response degrades to the template remark.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates a provider against the given API key and
// model. baseURL overrides the endpoint for local or proxied
// deployments; empty means the default.
func NewOpenAIProvider(apiKey, model, baseURL string) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{client: openai.NewClientWithConfig(cfg), model: model}
}

// Remark implements Provider.
func (p *OpenAIProvider) Remark(ctx context.Context, req Request) (string, error) {
	model := p.model
	if model == "" {
		model = openai.GPT4oMini
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     model,
		MaxTokens: maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(req)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("remark completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("remark completion: empty response")
	}

	text := extractRemark(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("remark completion: no remark in response")
	}
	return text, nil
}

// buildPrompt lays out the resolved outcome for the model. The model
// only ever explains; the state and confidence are already decided.
func buildPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Resolved state: %s\n", req.StateName)
	if req.RuleText != "" {
		fmt.Fprintf(&b, "Deciding rule: %s\n", req.RuleText)
	}
	if req.RemarkTemplate != "" {
		fmt.Fprintf(&b, "Configured remark template: %s\n", req.RemarkTemplate)
	}
	b.WriteString("Field evidence:\n")
	for _, ev := range req.Evidence {
		status := "matched"
		if !ev.Matched {
			status = "MISMATCH"
			if s := ev.Absent.String(); s != "" {
				status = s + " side absent"
			}
		}
		fmt.Fprintf(&b, "- %s (internal=%s, mis=%s): %s\n",
			ev.Expr, ev.Internal.Display(), ev.MIS.Display(), status)
	}
	return b.String()
}

var remarkJSONPattern = regexp.MustCompile(`"suggested_art_remarks"\s*:\s*"((?:[^"\\]|\\.)*)"`)

// extractRemark pulls the remark out of a model response, tolerating
// prose wrapped around the JSON object.
func extractRemark(content string) string {
	content = strings.TrimSpace(content)

	var parsed struct {
		Remark string `json:"suggested_art_remarks"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err == nil && parsed.Remark != "" {
		return strings.TrimSpace(parsed.Remark)
	}

	if m := remarkJSONPattern.FindStringSubmatch(content); m != nil {
		var unquoted string
		if err := json.Unmarshal([]byte(`"`+m[1]+`"`), &unquoted); err == nil {
			return strings.TrimSpace(unquoted)
		}
		return strings.TrimSpace(m[1])
	}

	return ""
}
