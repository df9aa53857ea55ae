package types

type EventType int

const (
	EventText EventType = iota
	EventCompletion
	EventDirective
	EventToolCall
	EventToolResult
	EventError
	EventDone
)

type Event struct {
	Type       EventType `json:"type"`
	RunID      string    `json:"run_id,omitempty"`
	Text       string    `json:"text,omitempty"`
	ToolName   string    `json:"tool_name,omitempty"`
	ToolArgs   string    `json:"tool_args,omitempty"`
	Result     string    `json:"result,omitempty"`
	Stderr     string    `json:"stderr,omitempty"`
	ExitStatus int       `json:"exit_status,omitempty"`
	Err        error     `json:"-"`
}
