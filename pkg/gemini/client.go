// Package gemini adapts the Gemini API to video analysis and streaming
// text completion.
package gemini

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/iconidentify/buzzteacher/internal/config"
	"github.com/iconidentify/buzzteacher/internal/domain"
)

const defaultMIMEType = "video/mp4"

// ErrProcessingFailed is returned when an uploaded video never becomes active.
var ErrProcessingFailed = errors.New("video processing failed")

// Client wraps the Gemini API client.
type Client struct {
	client            *genai.Client
	model             string
	pollInterval      time.Duration
	processingTimeout time.Duration
	logger            *slog.Logger
	now               func() time.Time
}

// NewClient creates a new Gemini client.
func NewClient(ctx context.Context, cfg config.GeminiConfig, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	logger.Info("gemini client initialized", "model", cfg.Model)

	return &Client{
		client:            client,
		model:             cfg.Model,
		pollInterval:      cfg.PollInterval,
		processingTimeout: cfg.ProcessingTimeout,
		logger:            logger,
		now:               time.Now,
	}, nil
}

// Close closes the Gemini client.
func (c *Client) Close() error {
	return c.client.Close()
}

// Analyze describes a video. Raw bytes are uploaded, analyzed against the
// file reference and deleted afterwards; a URL-only source is analyzed from
// the URL alone.
func (c *Client) Analyze(ctx context.Context, src domain.MediaSource) (string, error) {
	switch {
	case len(src.Data) > 0:
		return c.analyzeUpload(ctx, src)
	case src.URL != "":
		return c.generate(ctx, genai.Text(urlPrompt(src.URL)))
	default:
		return "", domain.ErrUnavailable
	}
}

func (c *Client) analyzeUpload(ctx context.Context, src domain.MediaSource) (string, error) {
	mimeType := src.MIMEType
	if mimeType == "" {
		mimeType = defaultMIMEType
	}

	file, err := c.client.UploadFile(ctx, "", bytes.NewReader(src.Data), &genai.UploadFileOptions{
		DisplayName: fmt.Sprintf("video-%d", c.now().UnixMilli()),
		MIMEType:    mimeType,
	})
	if err != nil {
		return "", fmt.Errorf("upload video: %w", err)
	}
	defer func() {
		// The request context may already be gone.
		if err := c.client.DeleteFile(context.Background(), file.Name); err != nil {
			c.logger.Warn("failed to delete uploaded video", "file", file.Name, "error", err)
		}
	}()

	c.logger.Debug("video uploaded", "file", file.Name, "bytes", len(src.Data))

	waitCtx := ctx
	if c.processingTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, c.processingTimeout)
		defer cancel()
	}

	file, err = waitForActive(waitCtx, c.client.GetFile, file, c.pollInterval)
	if err != nil {
		return "", err
	}

	return c.generate(ctx,
		genai.FileData{MIMEType: mimeType, URI: file.URI},
		genai.Text(analysisPrompt),
	)
}

func (c *Client) generate(ctx context.Context, parts ...genai.Part) (string, error) {
	resp, err := c.client.GenerativeModel(c.model).GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}

	text := strings.TrimSpace(responseText(resp))
	if text == "" {
		return "", domain.ErrAnalysisFailed
	}
	return text, nil
}

type fileGetter func(ctx context.Context, name string) (*genai.File, error)

// waitForActive polls the file until it leaves the processing state.
func waitForActive(ctx context.Context, get fileGetter, file *genai.File, interval time.Duration) (*genai.File, error) {
	for file.State == genai.FileStateProcessing {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for processing: %w", ctx.Err())
		case <-time.After(interval):
		}

		next, err := get(ctx, file.Name)
		if err != nil {
			return nil, fmt.Errorf("get file: %w", err)
		}
		file = next
	}

	if file.State == genai.FileStateFailed {
		return nil, fmt.Errorf("%s: %w", file.Name, ErrProcessingFailed)
	}
	return file, nil
}

// Stream runs one chat turn with the system prompt as instruction and
// forwards every streamed text chunk.
func (c *Client) Stream(ctx context.Context, req domain.CompletionRequest, onFragment func(string) error) error {
	model := c.client.GenerativeModel(c.model)
	if req.SystemPrompt != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.SystemPrompt)}}
	}

	cs := model.StartChat()
	cs.History = buildHistory(req.History)

	iter := cs.SendMessageStream(ctx, genai.Text(req.UserMessage))
	for {
		resp, err := iter.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return fmt.Errorf("gemini stream: %w", err)
		}

		if text := responseText(resp); text != "" {
			if err := onFragment(text); err != nil {
				return err
			}
		}
	}
}

// Complete generates a single reply for prompt.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.GenerativeModel(c.model).GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}

	text := strings.TrimSpace(responseText(resp))
	if text == "" {
		return "", fmt.Errorf("empty response from gemini")
	}
	return text, nil
}

// buildHistory converts chat messages into Gemini contents. Gemini requires
// the history to open with a user turn, so leading assistant turns are
// dropped.
func buildHistory(msgs []domain.ChatMessage) []*genai.Content {
	start := 0
	for start < len(msgs) && msgs[start].Role != domain.RoleUser {
		start++
	}

	history := make([]*genai.Content, 0, len(msgs)-start)
	for _, m := range msgs[start:] {
		role := "user"
		if m.Role == domain.RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}
	return history
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}
