package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chatcore/chatcore/internal/config"
	"github.com/chatcore/chatcore/internal/gateway"
	"github.com/chatcore/chatcore/internal/tools"
	"github.com/chatcore/chatcore/pkg/models"
)

func catalog() []gateway.ToolSpec {
	return []gateway.ToolSpec{{
		Name:        "multiply",
		Description: "Takes 'a' and 'b' as numbers and returns their product.",
		Schema: &tools.InputSchema{
			Type: "object",
			Properties: map[string]tools.Property{
				"a": {Type: "number"},
				"b": {Type: "number"},
			},
			Required: []string{"a", "b"},
		},
	}}
}

func TestOpenAIToolRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}

		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if catalog, ok := req["tools"].([]any); !ok || len(catalog) != 1 {
			t.Errorf("request carries %v tools, want 1", req["tools"])
		}

		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"choices": [{
				"finish_reason": "tool_calls",
				"message": {
					"role": "assistant",
					"content": "",
					"tool_calls": [{
						"id": "call_abc",
						"type": "function",
						"function": {"name": "multiply", "arguments": "{\"a\": 6, \"b\": 7}"}
					}]
				}
			}]
		}`))
	}))
	defer srv.Close()

	gw := gateway.NewOpenAI(config.ModelConfig{Endpoint: srv.URL, Model: "test-model", APIKey: "test-key"})
	result, err := gw.Complete(context.Background(), "system", []models.Message{models.UserMessage("6*7?")}, catalog())
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if len(result.ToolCalls) != 1 {
		t.Fatalf("len(ToolCalls) = %d, want 1", len(result.ToolCalls))
	}
	tc := result.ToolCalls[0]
	if tc.ID != "call_abc" || tc.Name != "multiply" {
		t.Errorf("ToolCall = %+v", tc)
	}
	if tc.Arguments["a"] != 6.0 || tc.Arguments["b"] != 7.0 {
		t.Errorf("Arguments = %v, want a=6 b=7", tc.Arguments)
	}
}

func TestOpenAIFinalAnswer(t *testing.T) {
	var gotBody struct {
		Messages []map[string]any `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"id":"chatcmpl-2","choices":[{"finish_reason":"stop","message":{"role":"assistant","content":"6 times 7 is 42."}}]}`))
	}))
	defer srv.Close()

	gw := gateway.NewOpenAI(config.ModelConfig{Endpoint: srv.URL, Model: "test-model"})
	msgs := []models.Message{
		models.UserMessage("6*7?"),
		{Role: models.RoleAssistant, ToolCalls: []models.ToolCall{
			{ID: "call_abc", Name: "multiply", Arguments: map[string]any{"a": 6.0, "b": 7.0}},
		}},
		models.ToolMessage("call_abc", "42"),
	}
	result, err := gw.Complete(context.Background(), "system", msgs, catalog())
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if len(result.ToolCalls) != 0 {
		t.Errorf("ToolCalls = %v, want none", result.ToolCalls)
	}
	if result.Text != "6 times 7 is 42." {
		t.Errorf("Text = %q", result.Text)
	}

	// system + user + assistant(tool_calls) + tool
	if len(gotBody.Messages) != 4 {
		t.Fatalf("wire messages = %d, want 4", len(gotBody.Messages))
	}
	toolMsg := gotBody.Messages[3]
	if toolMsg["role"] != "tool" || toolMsg["tool_call_id"] != "call_abc" {
		t.Errorf("tool wire message = %v", toolMsg)
	}
}

func TestOpenAIUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	gw := gateway.NewOpenAI(config.ModelConfig{Endpoint: srv.URL, Model: "test-model"})
	_, err := gw.Complete(context.Background(), "", []models.Message{models.UserMessage("hi")}, nil)
	if err == nil {
		t.Fatal("Complete() = nil error, want upstream failure")
	}
	var ue *gateway.UpstreamError
	if !errors.As(err, &ue) {
		t.Errorf("error %T is not *UpstreamError", err)
	}
}

func TestAnthropicToolRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("x-api-key = %q", got)
		}
		if got := r.Header.Get("anthropic-version"); got == "" {
			t.Error("anthropic-version header missing")
		}

		w.Write([]byte(`{
			"id": "msg_1",
			"content": [
				{"type": "text", "text": "Let me compute that."},
				{"type": "tool_use", "id": "toolu_1", "name": "multiply", "input": {"a": 6, "b": 7}}
			],
			"stop_reason": "tool_use"
		}`))
	}))
	defer srv.Close()

	gw := gateway.NewAnthropic(config.ModelConfig{Endpoint: srv.URL, Model: "test-model", APIKey: "test-key"})
	result, err := gw.Complete(context.Background(), "system", []models.Message{models.UserMessage("6*7?")}, catalog())
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if len(result.ToolCalls) != 1 {
		t.Fatalf("len(ToolCalls) = %d, want 1", len(result.ToolCalls))
	}
	if result.ToolCalls[0].ID != "toolu_1" || result.ToolCalls[0].Name != "multiply" {
		t.Errorf("ToolCall = %+v", result.ToolCalls[0])
	}
	if result.Text != "Let me compute that." {
		t.Errorf("Text = %q", result.Text)
	}
}

func TestAnthropicToolResultsTravelAsUserBlocks(t *testing.T) {
	var gotBody struct {
		System   string `json:"system"`
		Messages []struct {
			Role    string `json:"role"`
			Content []struct {
				Type      string `json:"type"`
				ToolUseID string `json:"tool_use_id"`
			} `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"id":"msg_2","content":[{"type":"text","text":"42"}],"stop_reason":"end_turn"}`))
	}))
	defer srv.Close()

	gw := gateway.NewAnthropic(config.ModelConfig{Endpoint: srv.URL, Model: "test-model", APIKey: "k"})
	msgs := []models.Message{
		models.UserMessage("6*7?"),
		{Role: models.RoleAssistant, ToolCalls: []models.ToolCall{{ID: "toolu_1", Name: "multiply"}}},
		models.ToolMessage("toolu_1", "42"),
	}
	if _, err := gw.Complete(context.Background(), "persona", msgs, nil); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	if gotBody.System != "persona" {
		t.Errorf("system = %q, want persona", gotBody.System)
	}
	last := gotBody.Messages[len(gotBody.Messages)-1]
	if last.Role != "user" || last.Content[0].Type != "tool_result" || last.Content[0].ToolUseID != "toolu_1" {
		t.Errorf("tool result wire message = %+v", last)
	}
}

func TestNewSelectsDriverByKind(t *testing.T) {
	if _, ok := gateway.New(config.ModelConfig{Kind: "anthropic"}).(*gateway.Anthropic); !ok {
		t.Error("New(anthropic) did not return the Anthropic driver")
	}
	if _, ok := gateway.New(config.ModelConfig{Kind: "openai"}).(*gateway.OpenAI); !ok {
		t.Error("New(openai) did not return the OpenAI driver")
	}
	if _, ok := gateway.New(config.ModelConfig{Kind: "something-else"}).(*gateway.OpenAI); !ok {
		t.Error("New(unknown) did not fall back to the OpenAI driver")
	}
}
