// Package openai implements the analysis service adapter over the
// OpenAI Files and Responses HTTP APIs.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/partitura-ai/internal/core"
)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://api.openai.com/v1"

// Config configures the client.
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to the OpenAI API. It implements core.Uploader and
// core.ScoreAnalyzer.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a client for the given configuration.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-5"
	}
	return &Client{
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: baseURL,
		http:    httpClient,
		logger:  logger,
	}
}

// Upload transfers a document to the Files API and returns its file ID.
func (c *Client) Upload(ctx context.Context, name string, data []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("purpose", "assistants"); err != nil {
		return "", fmt.Errorf("building upload form: %w", err)
	}
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("building upload form: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return "", fmt.Errorf("building upload form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("building upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files", &body)
	if err != nil {
		return "", fmt.Errorf("building upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", transportError("uploading file", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", core.ErrNetwork("reading upload response").WithCause(err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp.StatusCode, respBody, "uploading file")
	}

	var uploaded struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &uploaded); err != nil || uploaded.ID == "" {
		return "", core.ErrParse("upload response missing file ID").WithCause(err)
	}

	c.logger.Debug("file uploaded", "name", name, "file_id", uploaded.ID, "size", len(data))
	return uploaded.ID, nil
}

// AnalyzeScore asks the model for the instrument parts of a score book.
func (c *Client) AnalyzeScore(ctx context.Context, ref core.FileRef) (core.ScoreAnalysis, error) {
	text, err := c.respond(ctx, ref, scorePrompt)
	if err != nil {
		return core.ScoreAnalysis{}, err
	}

	var analysis core.ScoreAnalysis
	if err := json.Unmarshal([]byte(stripJSONFence(text)), &analysis); err != nil {
		return core.ScoreAnalysis{}, core.ErrParse("decoding score analysis").WithCause(err)
	}
	return analysis, nil
}

// IdentifyPart asks the model for the instrument of a single-part PDF.
// Page bounds are not set; the document-local page count belongs to the
// caller.
func (c *Client) IdentifyPart(ctx context.Context, ref core.FileRef) (core.PartIdentity, error) {
	text, err := c.respond(ctx, ref, singlePartPrompt)
	if err != nil {
		return core.PartIdentity{}, err
	}

	var identity core.PartIdentity
	if err := json.Unmarshal([]byte(stripJSONFence(text)), &identity); err != nil {
		return core.PartIdentity{}, core.ErrParse("decoding part identity").WithCause(err)
	}
	return identity, nil
}

type contentItem struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	FileID  string `json:"file_id,omitempty"`
	FileURL string `json:"file_url,omitempty"`
}

type inputMessage struct {
	Role    string        `json:"role"`
	Content []contentItem `json:"content"`
}

type responsesRequest struct {
	Model     string         `json:"model"`
	Input     []inputMessage `json:"input"`
	Reasoning *reasoning     `json:"reasoning,omitempty"`
}

type reasoning struct {
	Effort string `json:"effort"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

func (c *Client) respond(ctx context.Context, ref core.FileRef, prompt string) (string, error) {
	file := contentItem{Type: "input_file", FileID: ref.FileID, FileURL: ref.URL}

	payload, err := json.Marshal(responsesRequest{
		Model: c.model,
		Input: []inputMessage{{
			Role:    "user",
			Content: []contentItem{file, {Type: "input_text", Text: prompt}},
		}},
		Reasoning: &reasoning{Effort: "high"},
	})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", transportError("calling analysis service", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", core.ErrNetwork("reading analysis response").WithCause(err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp.StatusCode, respBody, "calling analysis service")
	}

	var parsed responsesResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", core.ErrParse("decoding analysis response envelope").WithCause(err)
	}

	var sb strings.Builder
	for _, item := range parsed.Output {
		for _, content := range item.Content {
			if content.Type == "output_text" {
				sb.WriteString(content.Text)
			}
		}
	}
	if sb.Len() == 0 {
		return "", core.ErrParse("analysis response contains no output text")
	}
	return sb.String(), nil
}

func transportError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return core.ErrTimeout(op).WithCause(err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return core.ErrNetwork(op).WithCause(err)
}

func statusError(status int, body []byte, op string) error {
	msg := op
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Error.Message != "" {
		msg = fmt.Sprintf("%s: %s", op, envelope.Error.Message)
	}

	switch {
	case status == http.StatusTooManyRequests:
		return core.ErrRateLimit(msg)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return core.ErrAuth(msg)
	case status >= 500:
		return core.ErrNetwork(fmt.Sprintf("%s: status %d", msg, status))
	default:
		return core.ErrAnalysis(core.CodeAnalysisFailed, fmt.Sprintf("%s: status %d", msg, status))
	}
}

// stripJSONFence removes a Markdown code fence around a JSON payload.
// Models occasionally wrap their output despite the JSON-only
// instruction.
func stripJSONFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		// Drop the info string ("json") on the opening fence line.
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
