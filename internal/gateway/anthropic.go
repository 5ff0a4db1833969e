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
)

const anthropicVersion = "2023-06-01"

// Anthropic talks to the Anthropic Messages API. Tool calls travel as
// tool_use content blocks and results go back as tool_result blocks.
type Anthropic struct {
	endpoint string
	model    string
	apiKey   string
	client   *http.Client
}

// NewAnthropic creates the Anthropic driver.
func NewAnthropic(cfg config.ModelConfig) *Anthropic {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://api.anthropic.com"
	}
	return &Anthropic{
		endpoint: endpoint,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		client:   newHTTPClient(cfg.Timeout),
	}
}

// ── Wire types ──────────────────────────────────────────────

type anthContentBlock struct {
	Type      string         `json:"type"`
	Text      string         `json:"text,omitempty"`
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name,omitempty"`
	Input     map[string]any `json:"input,omitempty"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
	Content   string         `json:"content,omitempty"`
}

type anthMessage struct {
	Role    string             `json:"role"`
	Content []anthContentBlock `json:"content"`
}

type anthTool struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	InputSchema any    `json:"input_schema"`
}

type anthRequest struct {
	Model     string        `json:"model"`
	System    string        `json:"system,omitempty"`
	Messages  []anthMessage `json:"messages"`
	Tools     []anthTool    `json:"tools,omitempty"`
	MaxTokens int           `json:"max_tokens"`
}

type anthResponse struct {
	ID         string             `json:"id"`
	Content    []anthContentBlock `json:"content"`
	StopReason string             `json:"stop_reason"`
}

// Complete sends the conversation and tool catalog in one request.
func (g *Anthropic) Complete(ctx context.Context, system string, msgs []models.Message, catalog []ToolSpec) (*Result, error) {
	req := anthRequest{
		Model:     g.model,
		System:    system,
		Messages:  toAnthMessages(msgs),
		Tools:     toAnthTools(catalog),
		MaxTokens: 4096,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, &UpstreamError{Provider: "anthropic", Err: fmt.Errorf("encode request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, &UpstreamError{Provider: "anthropic", Err: fmt.Errorf("create request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", g.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	httpResp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, &UpstreamError{Provider: "anthropic", Err: fmt.Errorf("request failed: %w", err)}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(httpResp.Body)
		return nil, &UpstreamError{Provider: "anthropic", Err: fmt.Errorf("status %d: %s", httpResp.StatusCode, string(respBody))}
	}

	var anthResp anthResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&anthResp); err != nil {
		return nil, &UpstreamError{Provider: "anthropic", Err: fmt.Errorf("decode response: %w", err)}
	}

	result := &Result{}
	for _, block := range anthResp.Content {
		switch block.Type {
		case "text":
			result.Text += block.Text
		case "tool_use":
			result.ToolCalls = append(result.ToolCalls, models.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: block.Input,
			})
		}
	}
	return result, nil
}

// toAnthMessages converts the flat transcript into Anthropic's
// content-block shape. Tool results become tool_result blocks on a
// user-role message, per the Messages API contract.
func toAnthMessages(msgs []models.Message) []anthMessage {
	out := make([]anthMessage, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case models.RoleTool:
			out = append(out, anthMessage{
				Role: models.RoleUser,
				Content: []anthContentBlock{{
					Type:      "tool_result",
					ToolUseID: m.ToolCallID,
					Content:   m.Content,
				}},
			})
		case models.RoleAssistant:
			var blocks []anthContentBlock
			if m.Content != "" {
				blocks = append(blocks, anthContentBlock{Type: "text", Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, anthContentBlock{
					Type:  "tool_use",
					ID:    tc.ID,
					Name:  tc.Name,
					Input: tc.Arguments,
				})
			}
			out = append(out, anthMessage{Role: models.RoleAssistant, Content: blocks})
		default:
			out = append(out, anthMessage{
				Role:    m.Role,
				Content: []anthContentBlock{{Type: "text", Text: m.Content}},
			})
		}
	}
	return out
}

func toAnthTools(catalog []ToolSpec) []anthTool {
	out := make([]anthTool, 0, len(catalog))
	for _, spec := range catalog {
		out = append(out, anthTool{
			Name:        spec.Name,
			Description: spec.Description,
			InputSchema: spec.Schema,
		})
	}
	return out
}
