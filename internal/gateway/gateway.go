// Package gateway adapts the accumulated conversation plus the tool
// catalog into a single chat-completion call against a model provider.
//
// The gateway is stateless: it sends messages, receives either a final
// text answer or a list of requested tool invocations, and reports any
// provider fault as an *UpstreamError. Retry policy, if any, is the
// provider's own; the executor treats an upstream failure as fatal to
// the current turn.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/chatcore/chatcore/internal/config"
	"github.com/chatcore/chatcore/internal/tools"
	"github.com/chatcore/chatcore/pkg/models"
)

// ToolSpec is a tool descriptor presented to the model for selection.
type ToolSpec struct {
	Name        string
	Description string
	Schema      *tools.InputSchema
}

// Specs builds the tool catalog from a registry.
func Specs(reg *tools.Registry) []ToolSpec {
	list := reg.List()
	specs := make([]ToolSpec, 0, len(list))
	for _, t := range list {
		specs = append(specs, ToolSpec{Name: t.Name(), Description: t.Description(), Schema: t.Schema()})
	}
	return specs
}

// Result is the outcome of one model call. ToolCalls non-empty means the
// model requested tool invocations; otherwise Text is the final answer.
type Result struct {
	Text      string
	ToolCalls []models.ToolCall
}

// Gateway is the model-provider boundary used by the executor.
type Gateway interface {
	Complete(ctx context.Context, system string, msgs []models.Message, catalog []ToolSpec) (*Result, error)
}

// UpstreamError wraps a model-provider failure (network, auth, decode).
type UpstreamError struct {
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// New selects the gateway driver for the configured provider kind.
// Unknown kinds fall back to the OpenAI-compatible driver, which also
// serves Ollama and other compatible endpoints.
func New(cfg config.ModelConfig) Gateway {
	switch cfg.Kind {
	case "anthropic":
		return NewAnthropic(cfg)
	default:
		return NewOpenAI(cfg)
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
