// Package models defines the shared data model for the chatcore service:
// conversation messages, tool calls, threads, and the inbound chat contract.
package models

import (
	"fmt"
	"time"
)

// Message roles. A thread transcript is a sequence of these, always
// starting with user (the system prompt is supplied by the executor
// per request and never persisted).
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is a model-issued request to invoke a registered tool.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Message is a single turn in a conversation.
//
// ToolCalls is set only on assistant messages that request tool
// invocations; ToolCallID is set only on tool-result messages and
// correlates back to the originating ToolCall.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// UserMessage builds a user-role message.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// ToolMessage builds a tool-result message carrying an observation.
func ToolMessage(toolCallID, observation string) Message {
	return Message{Role: RoleTool, Content: observation, ToolCallID: toolCallID}
}

// Thread is a persisted conversation, keyed by an opaque id.
// Messages are append-only: within a turn the executor appends to a
// working copy and writes the whole thread back at turn end.
type Thread struct {
	ID        string    `json:"id"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Append adds messages to the thread.
func (t *Thread) Append(msgs ...Message) {
	t.Messages = append(t.Messages, msgs...)
}

// ValidateTranscript checks the alternation invariant on a message log:
// every assistant message with tool calls is immediately followed by
// exactly one tool message per issued call, in issue order, and tool
// messages never appear without a matching pending call.
func ValidateTranscript(msgs []Message) error {
	// Pending tool-call ids from the most recent assistant message,
	// consumed in order by the tool messages that follow.
	var pending []string

	for i, m := range msgs {
		switch m.Role {
		case RoleTool:
			if len(pending) == 0 {
				return fmt.Errorf("message %d: tool result %q without a pending tool call", i, m.ToolCallID)
			}
			if m.ToolCallID != pending[0] {
				return fmt.Errorf("message %d: tool result %q out of order, want %q", i, m.ToolCallID, pending[0])
			}
			pending = pending[1:]

		case RoleSystem, RoleUser, RoleAssistant:
			if len(pending) > 0 {
				return fmt.Errorf("message %d: %s message while %d tool calls still unanswered", i, m.Role, len(pending))
			}
			if m.Role == RoleAssistant {
				for _, tc := range m.ToolCalls {
					pending = append(pending, tc.ID)
				}
			}

		default:
			return fmt.Errorf("message %d: unknown role %q", i, m.Role)
		}
	}

	if len(pending) > 0 {
		return fmt.Errorf("transcript ends with %d unanswered tool calls", len(pending))
	}
	return nil
}

// ── Inbound contract ────────────────────────────────────────

// ChatRequest is the body of POST /api/v1/chat.
type ChatRequest struct {
	Text     string `json:"text"`
	ThreadID string `json:"thread_id,omitempty"`
}

// ChatResponse is the success payload: the final answer plus the
// thread id (generated when the request carried none) for follow-ups.
type ChatResponse struct {
	Text     string `json:"text"`
	ThreadID string `json:"thread_id"`
}
