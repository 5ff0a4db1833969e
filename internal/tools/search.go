package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
)

// SearchTool queries the Google Custom Search API and returns the ranked
// result items as JSON text for the model to summarize.
type SearchTool struct {
	endpoint string
	apiKey   string
	engineID string
	client   *http.Client
}

// NewSearchTool creates the web-search tool. apiKey and engineID come
// from GOOGLE_API_KEY / CX_ID; when either is missing the tool degrades
// to a configuration-error observation instead of failing the turn.
func NewSearchTool(endpoint, apiKey, engineID string, timeout time.Duration) *SearchTool {
	return &SearchTool{
		endpoint: endpoint,
		apiKey:   apiKey,
		engineID: engineID,
		client:   &http.Client{Timeout: timeout},
	}
}

func (t *SearchTool) Name() string { return "webSearch" }

func (t *SearchTool) Description() string {
	return "Take query as an input and return the relevant web search results to the user. " +
		"Explain the results according to the user's query like Google search, in markdown format with source links."
}

func (t *SearchTool) Schema() *InputSchema {
	return &InputSchema{
		Type: "object",
		Properties: map[string]Property{
			"query": {Type: "string", Description: "User query for web search"},
		},
		Required: []string{"query"},
	}
}

// searchResponse is the slice of the Custom Search payload we care about.
type searchResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
}

func (t *SearchTool) Invoke(ctx context.Context, args map[string]any) (string, error) {
	query, err := stringArg(args, "query")
	if err != nil {
		return "", err
	}

	if t.apiKey == "" || t.engineID == "" {
		log.Error().Msg("Google API key or CX ID is missing")
		return "Search configuration error: API key or CX ID is missing.", nil
	}

	params := url.Values{}
	params.Set("key", t.apiKey)
	params.Set("cx", t.engineID)
	params.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("search: create request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		log.Warn().Str("query", query).Err(err).Msg("Web search failed")
		return "", fmt.Errorf("failed to perform web search for %q: %w", query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn().Str("query", query).Int("status", resp.StatusCode).Msg("Web search failed")
		return "", fmt.Errorf("failed to perform web search for %q: status %d", query, resp.StatusCode)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("failed to perform web search for %q: decode response: %w", query, err)
	}

	items, err := json.Marshal(sr.Items)
	if err != nil {
		return "", fmt.Errorf("failed to perform web search for %q: %w", query, err)
	}
	return string(items), nil
}
