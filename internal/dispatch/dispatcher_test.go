package dispatch_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/chatcore/chatcore/internal/dispatch"
	"github.com/chatcore/chatcore/internal/tools"
	"github.com/chatcore/chatcore/pkg/models"
)

// slowEcho is a tool that waits before echoing its input, used to prove
// concurrent execution cannot reorder results.
type slowEcho struct {
	name  string
	delay time.Duration
}

func (s *slowEcho) Name() string        { return s.name }
func (s *slowEcho) Description() string { return "echo after delay" }
func (s *slowEcho) Schema() *tools.InputSchema {
	return &tools.InputSchema{
		Type:       "object",
		Properties: map[string]tools.Property{"text": {Type: "string"}},
		Required:   []string{"text"},
	}
}
func (s *slowEcho) Invoke(_ context.Context, args map[string]any) (string, error) {
	time.Sleep(s.delay)
	return args["text"].(string), nil
}

// failing always errors.
type failing struct{}

func (*failing) Name() string               { return "failing" }
func (*failing) Description() string        { return "always fails" }
func (*failing) Schema() *tools.InputSchema { return &tools.InputSchema{Type: "object"} }
func (*failing) Invoke(context.Context, map[string]any) (string, error) {
	return "", fmt.Errorf("downstream provider unreachable")
}

func newTestDispatcher(t *testing.T, ts ...tools.Tool) *dispatch.Dispatcher {
	t.Helper()
	reg := tools.NewRegistry()
	for _, tool := range ts {
		if err := reg.Register(tool); err != nil {
			t.Fatalf("Register(%s) error = %v", tool.Name(), err)
		}
	}
	return dispatch.NewDispatcher(reg, 5*time.Second)
}

func TestDispatchPreservesOrder(t *testing.T) {
	d := newTestDispatcher(t,
		&slowEcho{name: "slow", delay: 50 * time.Millisecond},
		&slowEcho{name: "fast"},
	)

	calls := []models.ToolCall{
		{ID: "call_0", Name: "slow", Arguments: map[string]any{"text": "first"}},
		{ID: "call_1", Name: "fast", Arguments: map[string]any{"text": "second"}},
		{ID: "call_2", Name: "fast", Arguments: map[string]any{"text": "third"}},
	}

	results := d.Dispatch(context.Background(), calls)
	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	for i, want := range []string{"first", "second", "third"} {
		if results[i].Content != want {
			t.Errorf("results[%d].Content = %q, want %q", i, results[i].Content, want)
		}
		if results[i].ToolCallID != calls[i].ID {
			t.Errorf("results[%d].ToolCallID = %q, want %q", i, results[i].ToolCallID, calls[i].ID)
		}
		if results[i].Role != models.RoleTool {
			t.Errorf("results[%d].Role = %q, want tool", i, results[i].Role)
		}
	}
}

func TestDispatchUnknownTool(t *testing.T) {
	d := newTestDispatcher(t)

	results := d.Dispatch(context.Background(), []models.ToolCall{
		{ID: "call_0", Name: "nonexistent"},
	})
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if !strings.Contains(results[0].Content, "nonexistent") {
		t.Errorf("observation %q does not name the unknown tool", results[0].Content)
	}
}

func TestDispatchHandlerFailureBecomesObservation(t *testing.T) {
	d := newTestDispatcher(t, &failing{})

	results := d.Dispatch(context.Background(), []models.ToolCall{
		{ID: "call_0", Name: "failing"},
	})
	if !strings.Contains(results[0].Content, "downstream provider unreachable") {
		t.Errorf("observation %q does not carry the handler error", results[0].Content)
	}
}

func TestDispatchValidationFailureBecomesObservation(t *testing.T) {
	d := newTestDispatcher(t, &slowEcho{name: "echo"})

	results := d.Dispatch(context.Background(), []models.ToolCall{
		{ID: "call_0", Name: "echo", Arguments: map[string]any{}},
	})
	if !strings.Contains(results[0].Content, "Invalid arguments") {
		t.Errorf("observation = %q, want invalid-arguments text", results[0].Content)
	}
}

func TestDispatchIsIdempotentPerName(t *testing.T) {
	d := newTestDispatcher(t, &slowEcho{name: "echo"})
	call := models.ToolCall{ID: "call_0", Name: "echo", Arguments: map[string]any{"text": "same"}}

	for i := 0; i < 3; i++ {
		results := d.Dispatch(context.Background(), []models.ToolCall{call})
		if results[0].Content != "same" {
			t.Fatalf("run %d: Content = %q, want %q", i, results[0].Content, "same")
		}
	}
}
