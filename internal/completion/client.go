package completion

import (
	"context"
	_ "embed"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/pardnchiu/mcp-pyrevit/internal/utils"
)

//go:embed prompt/systemPrompt.md
var systemPrompt string

// maxDiagnostic bounds the error text lifted from a response body.
const maxDiagnostic = 300

type Client struct {
	httpClient *http.Client
	endpoint   string
	model      string
}

func New(endpoint, model string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   endpoint,
		model:      model,
	}
}

// SystemPrompt is the fixed instruction sent ahead of every prompt.
func SystemPrompt() string {
	return strings.TrimSpace(systemPrompt)
}

// Complete makes exactly one request; there is no retry.
func (c *Client) Complete(ctx context.Context, prompt, apiKey string) (*Result, error) {
	body, status, err := utils.POST(ctx, c.httpClient, c.endpoint, map[string]string{
		"Authorization": "Bearer " + apiKey,
	}, Request{
		Model: c.model,
		Messages: []Message{
			{Role: "system", Content: SystemPrompt()},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return nil, &TransportError{
			Status:  status,
			Message: err.Error(),
			Err:     err,
		}
	}

	if status < 200 || status > 299 {
		return nil, &TransportError{
			Status:  status,
			Message: describe(string(body)),
		}
	}

	return &Result{
		Status: status,
		Body:   string(body),
	}, nil
}

// describe turns an error body into one readable line.
func describe(body string) string {
	body = strings.TrimSpace(body)
	if body == "" {
		return "empty response body"
	}

	var payload struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err == nil && len(payload.Error) > 0 {
		var detail struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(payload.Error, &detail); err == nil && detail.Message != "" {
			return truncate(detail.Message)
		}
		var text string
		if err := json.Unmarshal(payload.Error, &text); err == nil && text != "" {
			return truncate(text)
		}
	}

	if utils.LooksLikeHTML(body) {
		return truncate(utils.HTMLText(body))
	}
	return truncate(strings.Join(strings.Fields(body), " "))
}

func truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= maxDiagnostic {
		return s
	}
	return string(runes[:maxDiagnostic-3]) + "..."
}
