// Package genai talks to the generative text completion backend that does
// all route, price and geocode computation for the service.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/deliverymaster/service-quote/internal/config"
	"github.com/deliverymaster/service-quote/internal/domain/delivery"
	"go.uber.org/zap"
)

// Client implements delivery.QuotePlanner and delivery.Geocoder against a
// generateContent-style REST endpoint. The model's answers are trusted as-is;
// the client only enforces the JSON response contracts.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	logger     *zap.Logger
}

// NewClient creates a Client from the service configuration.
func NewClient(cfg config.GenAIConfig, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		logger:     logger,
	}
}

// --- wire types of the generateContent endpoint ---

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMIMEType string `json:"responseMimeType"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Quote requests a priced route for the given stops. Any transport error,
// empty response or contract violation is returned as a single failure; the
// request is not retried.
func (c *Client) Quote(ctx context.Context, addresses []delivery.Address, opts delivery.QuoteOptions) (delivery.CalculationResult, error) {
	text, err := c.generate(ctx, pricingPrompt(addresses, opts))
	if err != nil {
		return delivery.CalculationResult{}, err
	}

	// All four fields are required; a partial answer is a total failure.
	var parsed struct {
		DistanceKm      *float64 `json:"distancia_km"`
		DurationMinutes *float64 `json:"tempo_minutos"`
		EstimatedPrice  *float64 `json:"preco_estimado"`
		RouteMapURL     *string  `json:"rota_mapa_url"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return delivery.CalculationResult{}, fmt.Errorf("parse pricing response: %w", err)
	}
	if parsed.DistanceKm == nil || parsed.DurationMinutes == nil || parsed.EstimatedPrice == nil || parsed.RouteMapURL == nil {
		return delivery.CalculationResult{}, fmt.Errorf("pricing response is missing required fields")
	}

	return delivery.CalculationResult{
		DistanceKm:      *parsed.DistanceKm,
		DurationMinutes: *parsed.DurationMinutes,
		EstimatedPrice:  *parsed.EstimatedPrice,
		RouteMapURL:     *parsed.RouteMapURL,
	}, nil
}

// Geocode resolves a batch of address texts. The response must be a JSON
// array of the same length and order as the input; anything else fails the
// whole batch.
func (c *Client) Geocode(ctx context.Context, texts []string) ([]*delivery.Coordinates, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	text, err := c.generate(ctx, geocodePrompt(texts))
	if err != nil {
		return nil, err
	}

	var parsed []*delivery.Coordinates
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("parse geocode response: %w", err)
	}
	if len(parsed) != len(texts) {
		return nil, fmt.Errorf("geocode response has %d entries, want %d", len(parsed), len(texts))
	}
	return parsed, nil
}

// generate sends one prompt and returns the model's text answer.
func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			ResponseMIMEType: "application/json",
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty completion response")
	}

	text := stripCodeFence(decoded.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return "", fmt.Errorf("empty completion response")
	}
	return text, nil
}

// stripCodeFence removes a surrounding markdown code fence the model
// sometimes emits despite the JSON mime type.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
