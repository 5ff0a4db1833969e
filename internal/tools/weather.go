package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// WeatherTool fetches the current weather for a city from a wttr.in-style
// text endpoint. Provider failures become error observations, not faults.
type WeatherTool struct {
	endpoint string
	client   *http.Client
}

// NewWeatherTool creates the weather tool against the given endpoint
// (e.g. https://wttr.in).
func NewWeatherTool(endpoint string, timeout time.Duration) *WeatherTool {
	return &WeatherTool{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
	}
}

func (t *WeatherTool) Name() string { return "getWeather" }

func (t *WeatherTool) Description() string {
	return "Take city as input and return the current weather."
}

func (t *WeatherTool) Schema() *InputSchema {
	return &InputSchema{
		Type: "object",
		Properties: map[string]Property{
			"city": {Type: "string", Description: "City"},
		},
		Required: []string{"city"},
	}
}

func (t *WeatherTool) Invoke(ctx context.Context, args map[string]any) (string, error) {
	city, err := stringArg(args, "city")
	if err != nil {
		return "", err
	}

	// wttr.in one-line format: condition + temperature.
	reqURL := fmt.Sprintf("%s/%s?format=%%C+%%t", t.endpoint, url.PathEscape(city))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("weather: create request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		log.Warn().Str("city", city).Err(err).Msg("Weather lookup failed")
		return "", fmt.Errorf("failed to get weather for %s", city)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn().Str("city", city).Int("status", resp.StatusCode).Msg("Weather lookup failed")
		return "", fmt.Errorf("failed to get weather for %s", city)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to get weather for %s", city)
	}
	return strings.TrimSpace(string(body)), nil
}
