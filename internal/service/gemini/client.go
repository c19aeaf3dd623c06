package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chanlytics/channel-analysis-go/internal/analysis"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// Client is a client for the Gemini generateContent REST API. It implements
// analysis.TextGenerator.
type Client struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client

	temperature     float64
	maxOutputTokens int
}

// Config holds the configuration for the Gemini client.
type Config struct {
	BaseURL         string        // defaults to the public Gemini endpoint
	Model           string        // e.g., "gemini-2.5-flash"
	APIKey          string        // required
	Timeout         time.Duration // request timeout (default: 30 seconds)
	Temperature     float64
	MaxOutputTokens int
}

// NewClient creates a new Gemini client.
func NewClient(config Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Model == "" {
		config.Model = "gemini-2.5-flash"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxOutputTokens == 0 {
		config.MaxOutputTokens = 1000
	}

	return &Client{
		baseURL: strings.TrimSuffix(config.BaseURL, "/"),
		model:   config.Model,
		apiKey:  config.APIKey,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		temperature:     config.Temperature,
		maxOutputTokens: config.MaxOutputTokens,
	}, nil
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	ModelVersion string `json:"modelVersion"`
	Error        *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// GenerateContent sends a prompt to the model and returns the generated text
// and the model version reported by the API.
func (c *Client) GenerateContent(ctx context.Context, prompt string) (string, string, error) {
	reqPayload := generateRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: prompt}}},
		},
		GenerationConfig: &generationConfig{
			Temperature:      c.temperature,
			MaxOutputTokens:  c.maxOutputTokens,
			ResponseMimeType: "application/json",
		},
	}

	reqBody, err := json.Marshal(reqPayload)
	if err != nil {
		return "", "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(reqBody))
	if err != nil {
		return "", "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", "", fmt.Errorf("gemini request: %w", analysis.ErrProviderTimeout)
		}
		return "", "", fmt.Errorf("send request to Gemini: %v: %w", err, analysis.ErrProvider)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("read response body: %v: %w", err, analysis.ErrProvider)
	}

	if resp.StatusCode != http.StatusOK {
		return "", "", mapStatusError(resp.StatusCode, respBody)
	}

	var genResp generateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return "", "", fmt.Errorf("parse Gemini response: %v: %w", err, analysis.ErrProvider)
	}
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return "", "", fmt.Errorf("gemini returned no candidates: %w", analysis.ErrProvider)
	}

	var b strings.Builder
	for _, p := range genResp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}

	modelVersion := genResp.ModelVersion
	if modelVersion == "" {
		modelVersion = c.model
	}
	return strings.TrimSpace(b.String()), modelVersion, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// mapStatusError translates non-200 responses. 429 and 5xx are retryable
// provider errors; other 4xx responses (bad key, malformed request) are
// terminal and carry no retryable sentinel.
func mapStatusError(statusCode int, body []byte) error {
	msg := string(body)
	if len(msg) > 512 {
		msg = msg[:512]
	}

	switch {
	case statusCode == http.StatusTooManyRequests, statusCode >= 500:
		return fmt.Errorf("gemini API returned status %d: %s: %w", statusCode, msg, analysis.ErrProvider)
	case statusCode == http.StatusRequestTimeout:
		return fmt.Errorf("gemini API returned status %d: %w", statusCode, analysis.ErrProviderTimeout)
	default:
		return fmt.Errorf("gemini API returned status %d: %s", statusCode, msg)
	}
}
