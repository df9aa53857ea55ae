// Package directive decodes the {tool, file_path} pair a model answers with.
package directive

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type Directive struct {
	Tool     string `json:"tool"`
	FilePath string `json:"file_path"`
}

// Actionable reports whether both fields are set; dispatch needs both.
func (d Directive) Actionable() bool {
	return d.Tool != "" && d.FilePath != ""
}

// ParseError carries the raw response body for diagnostics.
type ParseError struct {
	Body string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("directive parse: %v (body: %s)", e.Err, e.Body)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var (
	ErrNoChoices      = errors.New("response has no choices")
	ErrNoContent      = errors.New("choices[0].message.content is missing")
	ErrContentNotText = errors.New("choices[0].message.content is not a string")
)

type output struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Parse extracts choices[0].message.content from body and decodes it.
// On error the returned Directive is always the zero value.
func Parse(body string) (Directive, error) {
	var out output
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return Directive{}, &ParseError{Body: body, Err: fmt.Errorf("json.Unmarshal: %w", err)}
	}
	if len(out.Choices) == 0 {
		return Directive{}, &ParseError{Body: body, Err: ErrNoChoices}
	}

	raw := out.Choices[0].Message.Content
	if len(raw) == 0 || string(raw) == "null" {
		return Directive{}, &ParseError{Body: body, Err: ErrNoContent}
	}
	var content string
	if err := json.Unmarshal(raw, &content); err != nil {
		return Directive{}, &ParseError{Body: body, Err: ErrContentNotText}
	}

	var d Directive
	if err := json.Unmarshal([]byte(unfence(content)), &d); err != nil {
		return Directive{}, &ParseError{Body: body, Err: fmt.Errorf("json.Unmarshal content: %w", err)}
	}
	return d, nil
}

// unfence strips a surrounding ``` or ```json fence.
func unfence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	if nl := strings.IndexByte(s, '\n'); nl != -1 && !strings.Contains(s[:nl], "{") {
		s = s[nl+1:]
	}
	return strings.TrimSpace(s)
}
