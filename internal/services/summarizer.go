package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	notes_errors "studynotes/pkg/errors"
	"studynotes/pkg/logger"
)

const msgSummaryFailed = "Failed to process file with AI. Please check your file content and try again."

// Summarizer turns an attached document into descriptive text.
type Summarizer interface {
	Summarize(ctx context.Context, contentType string, data []byte) (string, error)
}

type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// GeminiClient calls the Gemini generateContent REST endpoint.
type GeminiClient struct {
	cfg        GeminiConfig
	httpClient *http.Client
}

func NewGeminiClient(cfg GeminiConfig) *GeminiClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &GeminiClient{cfg: cfg, httpClient: &http.Client{Timeout: cfg.Timeout}}
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		Temperature float64 `json:"temperature"`
		TopP        float64 `json:"topP"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type geminiHTTPError struct {
	StatusCode int
	Body       string
}

func (e *geminiHTTPError) Error() string {
	return fmt.Sprintf("gemini http %d: %s", e.StatusCode, e.Body)
}

func summaryPrompt(contentType string) string {
	kind := "image"
	if strings.Contains(contentType, "pdf") {
		kind = "PDF document"
	}
	return `You are an expert academic teaching assistant.
Analyze the attached ` + kind + `.
Provide a detailed yet concise summary of its contents.
Focus on:
1. The core subject matter.
2. Key concepts or formulas mentioned.
3. Any specific dates, deadlines, or important announcements if visible.

Format the output as a professional description suitable for a student note-sharing feed.
Do not use introductory phrases like "The document says". Start directly with the information.
Keep it within 3-4 paragraphs.`
}

func (g *GeminiClient) Summarize(ctx context.Context, contentType string, data []byte) (string, error) {
	var reqBody geminiRequest
	reqBody.Contents = []geminiContent{{Parts: []geminiPart{
		{InlineData: &geminiInlineData{MimeType: contentType, Data: base64.StdEncoding.EncodeToString(data)}},
		{Text: summaryPrompt(contentType)},
	}}}
	reqBody.GenerationConfig.Temperature = 0.7
	reqBody.GenerationConfig.TopP = 0.9

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(reqBody); err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.cfg.BaseURL, g.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.cfg.APIKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return "", readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &geminiHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out geminiResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("gemini decode error: %w", err)
	}
	var text strings.Builder
	for _, cand := range out.Candidates {
		for _, part := range cand.Content.Parts {
			text.WriteString(part.Text)
		}
		if text.Len() > 0 {
			break
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", fmt.Errorf("gemini returned no text")
	}
	return strings.TrimSpace(text.String()), nil
}

// SummaryService pre-fills an item description from its attachment. It is
// called by the client before submitting and never by the upload saga.
type SummaryService struct {
	summarizer Summarizer
	log        *logger.Logger
}

func NewSummaryService(summarizer Summarizer, log *logger.Logger) *SummaryService {
	return &SummaryService{summarizer: summarizer, log: log}
}

func (s *SummaryService) Summarize(ctx context.Context, contentType string, size int64, body io.Reader) (string, error) {
	if s.summarizer == nil {
		return "", notes_errors.New(notes_errors.ErrUnavailable, "AI summaries are not configured.")
	}
	ct, err := ValidateAttachment(contentType, size)
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(io.LimitReader(body, MaxAttachmentBytes+1))
	if err != nil {
		return "", notes_errors.Wrap(notes_errors.ErrValidation, msgFileRequired, err)
	}
	if len(data) > MaxAttachmentBytes {
		return "", notes_errors.New(notes_errors.ErrValidation, msgFileTooLarge)
	}

	text, err := s.summarizer.Summarize(ctx, ct, data)
	if err != nil {
		s.log.WithContext(ctx).Error("summarization failed", "content_type", ct, "bytes", len(data), "error", err)
		return "", notes_errors.Wrap(notes_errors.ErrUnavailable, msgSummaryFailed, err)
	}
	return text, nil
}
