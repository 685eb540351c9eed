// Package ai implements the Gemini-backed classification oracle.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/akanksha05Singh/gemini-email-agent/internal/model"
)

const (
	defaultModel     = "gemini-2.5-flash"
	defaultMaxTokens = 1024
	apiURLFormat     = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"
)

// defaultSystemInstruction is used when no prompt file is configured or
// the configured file cannot be read.
const defaultSystemInstruction = `You classify emails. Respond with a single JSON object with the keys
"intent" (one of Meeting, Urgent, Newsletter, Spam, Question, Other),
"priority" (one of High, Medium, Low), "confidence_score" (number in [0,1]),
"suggested_response" (string, may be empty), "entities" (object of strings),
and "reasoning" (string). Output JSON only.`

// Oracle classifies an email into a structured result. Implementations
// must never surface a bare failure: on any error the returned
// ClassificationResult is a usable low-confidence fallback and the
// error is context for logging only.
type Oracle interface {
	Classify(ctx context.Context, body, sender, subject string) (model.ClassificationResult, error)
}

// GeminiClient is the oracle implementation backed by the Gemini
// generateContent API with JSON response mode.
type GeminiClient struct {
	apiKey            string
	modelName         string
	temperature       float64
	maxOutputTokens   int
	systemInstruction string
	client            *http.Client
	logger            *zap.Logger

	// baseURL overrides the API endpoint in tests.
	baseURL string
}

// NewGeminiClient creates a Gemini oracle from the agent settings. The
// system instruction is read once from the configured prompt file; a
// missing file falls back to the built-in instruction.
func NewGeminiClient(
	apiKey string,
	settings model.AgentSettingsConfig,
	logger *zap.Logger,
) *GeminiClient {
	modelName := settings.ModelName
	if modelName == "" {
		modelName = defaultModel
	}
	maxTokens := settings.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	instruction := defaultSystemInstruction
	if settings.SystemPromptPath != "" {
		data, err := os.ReadFile(settings.SystemPromptPath)
		if err != nil {
			logger.Warn("system prompt file not readable, using built-in instruction",
				zap.String("path", settings.SystemPromptPath),
				zap.Error(err),
			)
		} else {
			instruction = string(data)
		}
	}

	return &GeminiClient{
		apiKey:            apiKey,
		modelName:         modelName,
		temperature:       settings.Temperature,
		maxOutputTokens:   maxTokens,
		systemInstruction: instruction,
		client:            &http.Client{},
		logger:            logger,
	}
}

// Classify sends the email to Gemini and parses the structured result.
// On any transport, HTTP, or parse failure it returns the fallback
// classification together with the error; callers always receive a
// well-formed value and may log the error.
func (g *GeminiClient) Classify(
	ctx context.Context,
	body, sender, subject string,
) (model.ClassificationResult, error) {
	userPrompt := fmt.Sprintf(
		"Input Email:\n[Sender]: %s\n[Subject]: %s\n[Body]:\n%s\n",
		sender, subject, body,
	)

	resp, err := g.callAPI(ctx, userPrompt)
	if err != nil {
		return model.FallbackClassification("oracle error"), err
	}

	text := extractText(resp)
	if text == "" {
		return model.FallbackClassification("oracle error"),
			fmt.Errorf("empty response from model %s", g.modelName)
	}

	var result model.ClassificationResult
	if err := json.Unmarshal([]byte(stripFences(text)), &result); err != nil {
		return model.FallbackClassification("oracle error"),
			fmt.Errorf("decoding classification: %w", err)
	}

	if result.Intent == "" {
		result.Intent = model.IntentOther
	}
	if result.Priority == "" {
		result.Priority = model.PriorityLow
	}

	return result, nil
}

// callAPI makes a single request to the generateContent endpoint.
func (g *GeminiClient) callAPI(ctx context.Context, userPrompt string) (*apiResponse, error) {
	reqBody := apiRequest{
		SystemInstruction: &apiContent{
			Parts: []apiPart{{Text: g.systemInstruction}},
		},
		Contents: []apiContent{
			{Role: "user", Parts: []apiPart{{Text: userPrompt}}},
		},
		GenerationConfig: apiGenerationConfig{
			Temperature:      g.temperature,
			MaxOutputTokens:  g.maxOutputTokens,
			ResponseMIMEType: "application/json",
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := g.baseURL
	if url == "" {
		url = fmt.Sprintf(apiURLFormat, g.modelName)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, url, bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling Gemini API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result apiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &result, nil
}

// extractText concatenates the text parts of the first candidate.
func extractText(resp *apiResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String()
}

// stripFences removes a surrounding markdown code fence if the model
// wrapped its JSON despite the response MIME type.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
	} else {
		return s
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// --- Gemini API types ---

type apiRequest struct {
	SystemInstruction *apiContent         `json:"system_instruction,omitempty"`
	Contents          []apiContent        `json:"contents"`
	GenerationConfig  apiGenerationConfig `json:"generationConfig"`
}

type apiContent struct {
	Role  string    `json:"role,omitempty"`
	Parts []apiPart `json:"parts"`
}

type apiPart struct {
	Text string `json:"text"`
}

type apiGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMIMEType string  `json:"responseMimeType"`
}

type apiResponse struct {
	Candidates []apiCandidate `json:"candidates"`
}

type apiCandidate struct {
	Content      apiContent `json:"content"`
	FinishReason string     `json:"finishReason"`
}

type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
