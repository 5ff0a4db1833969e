package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/chatcore/chatcore/internal/config"
	"github.com/chatcore/chatcore/pkg/models"
	"github.com/rs/zerolog/log"
)

// OpenAI talks to an OpenAI-compatible /chat/completions endpoint with
// function-calling tools. Works against api.openai.com, Azure-style
// proxies, and Ollama's compatibility endpoint.
type OpenAI struct {
	endpoint string
	model    string
	apiKey   string
	client   *http.Client
}

// NewOpenAI creates the OpenAI-compatible driver.
func NewOpenAI(cfg config.ModelConfig) *OpenAI {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1"
	}
	return &OpenAI{
		endpoint: endpoint,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		client:   newHTTPClient(cfg.Timeout),
	}
}

// ── Wire types ──────────────────────────────────────────────

type oaiMessage struct {
	Role       string        `json:"role"`
	Content    string        `json:"content"`
	ToolCalls  []oaiToolCall `json:"tool_calls,omitempty"`
	ToolCallID string        `json:"tool_call_id,omitempty"`
}

type oaiToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name string `json:"name"`
		// Arguments is a JSON object serialized as a string, per the
		// OpenAI function-calling contract.
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type oaiTool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
		Parameters  any    `json:"parameters,omitempty"`
	} `json:"function"`
}

type oaiRequest struct {
	Model    string       `json:"model"`
	Messages []oaiMessage `json:"messages"`
	Tools    []oaiTool    `json:"tools,omitempty"`
}

type oaiResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message      oaiMessage `json:"message"`
		FinishReason string     `json:"finish_reason"`
	} `json:"choices"`
}

// Complete sends the conversation and tool catalog in one request.
func (g *OpenAI) Complete(ctx context.Context, system string, msgs []models.Message, catalog []ToolSpec) (*Result, error) {
	wire := make([]oaiMessage, 0, len(msgs)+1)
	if system != "" {
		wire = append(wire, oaiMessage{Role: models.RoleSystem, Content: system})
	}
	for _, m := range msgs {
		wire = append(wire, toWire(m))
	}

	req := oaiRequest{Model: g.model, Messages: wire, Tools: toOAITools(catalog)}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &UpstreamError{Provider: "openai", Err: fmt.Errorf("encode request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, &UpstreamError{Provider: "openai", Err: fmt.Errorf("create request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	httpResp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, &UpstreamError{Provider: "openai", Err: fmt.Errorf("request failed: %w", err)}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(httpResp.Body)
		return nil, &UpstreamError{Provider: "openai", Err: fmt.Errorf("status %d: %s", httpResp.StatusCode, string(respBody))}
	}

	var oaiResp oaiResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&oaiResp); err != nil {
		return nil, &UpstreamError{Provider: "openai", Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(oaiResp.Choices) == 0 {
		return nil, &UpstreamError{Provider: "openai", Err: fmt.Errorf("empty choices in response %s", oaiResp.ID)}
	}

	choice := oaiResp.Choices[0].Message
	result := &Result{Text: choice.Content}
	for i, tc := range choice.ToolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				log.Warn().Str("tool", tc.Function.Name).Err(err).Msg("Unparseable tool arguments")
			}
		}
		id := tc.ID
		if id == "" {
			id = fmt.Sprintf("call_%d", i)
		}
		result.ToolCalls = append(result.ToolCalls, models.ToolCall{
			ID:        id,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	return result, nil
}

func toWire(m models.Message) oaiMessage {
	wm := oaiMessage{Role: m.Role, Content: m.Content, ToolCallID: m.ToolCallID}
	for _, tc := range m.ToolCalls {
		args, _ := json.Marshal(tc.Arguments)
		otc := oaiToolCall{ID: tc.ID, Type: "function"}
		otc.Function.Name = tc.Name
		otc.Function.Arguments = string(args)
		wm.ToolCalls = append(wm.ToolCalls, otc)
	}
	return wm
}

func toOAITools(catalog []ToolSpec) []oaiTool {
	out := make([]oaiTool, 0, len(catalog))
	for _, spec := range catalog {
		t := oaiTool{Type: "function"}
		t.Function.Name = spec.Name
		t.Function.Description = spec.Description
		t.Function.Parameters = spec.Schema
		out = append(out, t)
	}
	return out
}
