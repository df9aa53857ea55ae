package completion

import (
	"fmt"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Request struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

// Result is one raw completion exchange.
type Result struct {
	Status int
	Body   string
}

// TransportError covers network failures and non-2xx answers.
// Status is 0 when no response arrived.
type TransportError struct {
	Status  int
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("completion transport: %s", e.Message)
	}
	return fmt.Sprintf("completion transport: HTTP %d: %s", e.Status, e.Message)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
