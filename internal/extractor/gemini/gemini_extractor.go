package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"fakturio/internal/config"
	"fakturio/internal/domain"
	"fakturio/internal/extractor"
)

const (
	apiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"
)

// Extractor implements port.InvoiceExtractor using Google's Gemini API.
type Extractor struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// New creates a Gemini-based invoice extractor.
func New(cfg *config.ExtractorConfig) *Extractor {
	return newExtractor(cfg, "")
}

// NewWithEndpoint creates an extractor pointing at a custom API endpoint (for testing).
func NewWithEndpoint(cfg *config.ExtractorConfig, endpoint string) *Extractor {
	return newExtractor(cfg, endpoint)
}

func newExtractor(cfg *config.ExtractorConfig, endpoint string) *Extractor {
	model := cfg.DefaultModel
	if model == "" {
		model = "gemini-2.0-flash"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	if endpoint == "" {
		endpoint = fmt.Sprintf("%s/%s:generateContent", apiBaseURL, model)
	}
	return &Extractor{
		apiKey:   cfg.APIKey,
		model:    model,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Extract sends the document to Gemini and decodes the structured invoice
// from the model output.
func (e *Extractor) Extract(ctx context.Context, data []byte, contentType string) (*domain.CanonicalInvoice, error) {
	prompt := extractor.BuildInvoicePrompt()

	var parts []map[string]interface{}
	switch contentType {
	case "text/plain":
		parts = append(parts, map[string]interface{}{
			"text": fmt.Sprintf("Document text:\n%s", string(data)),
		})
	case "application/pdf", "image/jpeg", "image/png":
		parts = append(parts, map[string]interface{}{
			"inline_data": map[string]interface{}{
				"mime_type": contentType,
				"data":      base64.StdEncoding.EncodeToString(data),
			},
		})
	default:
		return nil, &extractor.ExtractionError{
			Provider: "gemini",
			Message:  fmt.Sprintf("unsupported content type %q", contentType),
		}
	}
	parts = append(parts, map[string]interface{}{"text": prompt})

	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"role":  "user",
				"parts": parts,
			},
		},
		"generationConfig": map[string]interface{}{
			"responseMimeType": "application/json",
			"maxOutputTokens":  8192,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &extractor.ExtractionError{Provider: "gemini", Message: "calling API", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &extractor.ExtractionError{
			Provider: "gemini",
			Message:  fmt.Sprintf("API error (status %d): %s", resp.StatusCode, truncate(string(respBody), 200)),
		}
	}

	return parseResponse(respBody)
}

// geminiResponse models the Gemini API response.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

// jsonObjectRe pulls the first JSON object out of model output that ignored
// the no-prose instruction.
var jsonObjectRe = regexp.MustCompile(`\{[\s\S]*\}`)

func parseResponse(body []byte) (*domain.CanonicalInvoice, error) {
	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, &extractor.ExtractionError{Provider: "gemini", Message: "empty response from API"}
	}

	text := resp.Candidates[0].Content.Parts[0].Text
	match := jsonObjectRe.FindString(text)
	if match == "" {
		return nil, &extractor.ExtractionError{
			Provider: "gemini",
			Message:  fmt.Sprintf("no JSON object in model output: %s", truncate(text, 200)),
		}
	}

	var inv domain.CanonicalInvoice
	if err := json.Unmarshal([]byte(match), &inv); err != nil {
		return nil, &extractor.ExtractionError{Provider: "gemini", Message: "decoding model JSON", Err: err}
	}
	return &inv, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
