package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"reward-tracker/core/reconcile"
)

const systemPrompt = `You are a financial terms analyst. The user gives you the markdown of a credit card's reward terms page. Extract the reward rules into a single JSON object. Use snake_case field names such as "cashback_rate", "bonus_categories", "cap", "eligibility", "valid_from", "valid_until". Answer with the JSON object only, no prose.`

// Extractor calls an OpenAI-compatible chat-completions endpoint.
// It implements reconcile.Extractor.
type Extractor struct {
	client *http.Client
	cfg    Config
}

// New creates an Extractor based on the configuration.
func New(cfg Config) *Extractor {
	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 120
	}
	if cfg.MaxContentChars <= 0 {
		cfg.MaxContentChars = 60000
	}
	return &Extractor{
		client: &http.Client{Timeout: time.Duration(timeout) * time.Second},
		cfg:    cfg,
	}
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Extract sends the page content to the model and parses its answer as a
// reward-rule payload. All failures are *reconcile.ExtractionError.
func (e *Extractor) Extract(ctx context.Context, content string) (reconcile.Payload, error) {
	if strings.TrimSpace(content) == "" {
		return nil, &reconcile.ExtractionError{Detail: "empty content"}
	}
	if len(content) > e.cfg.MaxContentChars {
		content = content[:e.cfg.MaxContentChars]
	}

	body, err := json.Marshal(chatRequest{
		Model: e.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: content},
		},
		Temperature:    0,
		ResponseFormat: &respFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, &reconcile.ExtractionError{Detail: fmt.Sprintf("marshal request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &reconcile.ExtractionError{Detail: fmt.Sprintf("new request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if e.cfg.ApiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.ApiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &reconcile.ExtractionError{
			Detail:  fmt.Sprintf("http post: %v", err),
			Timeout: isTimeout(err),
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return nil, &reconcile.ExtractionError{Detail: fmt.Sprintf("read response: %v", err)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &reconcile.ExtractionError{Detail: fmt.Sprintf("malformed response: %v", err)}
	}
	if parsed.Error != nil {
		return nil, &reconcile.ExtractionError{Detail: "upstream error: " + parsed.Error.Message}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &reconcile.ExtractionError{Detail: fmt.Sprintf("http %d", resp.StatusCode)}
	}
	if len(parsed.Choices) == 0 {
		return nil, &reconcile.ExtractionError{Detail: "malformed response: no choices"}
	}

	answer := strings.TrimSpace(parsed.Choices[0].Message.Content)
	answer = stripCodeFence(answer)

	var payload reconcile.Payload
	if err := json.Unmarshal([]byte(answer), &payload); err != nil {
		return nil, &reconcile.ExtractionError{Detail: fmt.Sprintf("malformed response: not a JSON object: %v", err)}
	}
	if len(payload) == 0 {
		return nil, &reconcile.ExtractionError{Detail: "malformed response: empty object"}
	}

	return payload, nil
}

// stripCodeFence removes a ```json ... ``` wrapper some models emit even
// when asked for bare JSON.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
