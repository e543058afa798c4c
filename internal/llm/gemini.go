package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// GeminiProvider talks to the Gemini API through the genai SDK.
type GeminiProvider struct {
	apiKey  string
	model   string
	timeout time.Duration
}

var ErrNoAPIKey = fmt.Errorf("gemini: api key not configured")

// NewGeminiProvider returns a provider for the given model. The timeout
// bounds each outbound call; zero means 8s.
func NewGeminiProvider(apiKey, model string, timeout time.Duration) *GeminiProvider {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &GeminiProvider{
		apiKey:  strings.TrimSpace(apiKey),
		model:   strings.TrimSpace(model),
		timeout: timeout,
	}
}

func (p *GeminiProvider) Interpret(ctx context.Context, req InterpretRequest) (InterpretResponse, error) {
	if p.apiKey == "" {
		return InterpretResponse{}, ErrNoAPIKey
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return InterpretResponse{}, fmt.Errorf("gemini: create client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: systemPrompt(req)},
				{Text: "User command:\n" + req.Command},
			},
		},
	}

	model := p.model
	if model == "" {
		model = "gemini-1.5-pro-latest"
	}
	resp, err := client.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return InterpretResponse{}, fmt.Errorf("gemini: generate content: %w", err)
	}
	raw := resp.Text()
	if raw == "" {
		return InterpretResponse{}, fmt.Errorf("gemini: empty response")
	}

	var out InterpretResponse
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &out); err != nil {
		return InterpretResponse{}, fmt.Errorf("gemini: parse response: %w", err)
	}
	return out, nil
}

// systemPrompt advertises the closed operation schema. The model must answer
// with a single JSON object; anything else is rejected downstream.
func systemPrompt(req InterpretRequest) string {
	var b strings.Builder
	b.WriteString("You are a budget assistant that converts user commands about personal expenses into structured operations.\n\n")
	b.WriteString("Respond with STRICT JSON only - a single object, no code fences, no extra text.\n\n")
	b.WriteString("When the user wants to act on expenses or budgets, respond with:\n")
	b.WriteString(`{"type":"operation","operation":"<tag>","arguments":{...}}` + "\n")
	b.WriteString("Allowed operation tags and their arguments:\n")
	b.WriteString(`- "create_expense": {"amount": <number or string like "$50">, "category": "<string>", "description": "<string>", "date": "YYYY-MM-DD", "currency": "<ISO code, optional>"}` + "\n")
	b.WriteString(`- "query_expenses": {"category": "<string, optional>", "from": "YYYY-MM-DD, optional", "to": "YYYY-MM-DD, optional", "search": "<description substring, optional>"}` + "\n")
	b.WriteString(`- "delete_expense": {"expense_id": <integer>}` + "\n")
	b.WriteString(`- "update_expense": {"expense_id": <integer>, "fields": {"amount"?, "category"?, "description"?, "date"?}}` + "\n")
	b.WriteString(`- "set_budget": {"category": "<string>", "limit": <number>, "period": "YYYY-MM, optional"}` + "\n\n")
	b.WriteString("When the user is only chatting, respond with:\n")
	b.WriteString(`{"type":"reply","reply":"<your answer>"}` + "\n\n")
	fmt.Fprintf(&b, "Known categories: %s\n", strings.Join(req.Categories, ", "))
	fmt.Fprintf(&b, "Default currency when none is given: %s\n", req.HomeCurrency)
	fmt.Fprintf(&b, "Today's date: %s (use it when no date is specified)\n", req.Today)
	return b.String()
}

// cleanModelJSON strips Markdown fences if the model ignored instructions.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
