// Package gemini generates bot store descriptions with Google's Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/edgard/chatbots/internal/chatbot"
	"github.com/edgard/chatbots/internal/config"
	"github.com/edgard/chatbots/internal/resilience"
	"github.com/edgard/chatbots/internal/sanitize"
)

const (
	sampleWords     = 40
	sampleResponses = 10
	maxDescription  = 300
)

// Client defines the AI operations used by the application.
type Client interface {
	// DescribeBot returns a short store description of b.
	DescribeBot(ctx context.Context, b *chatbot.Bot) (string, error)
}

type sdkClient struct {
	genaiClient   *genai.Client
	breaker       *resilience.Breaker
	log           *slog.Logger
	contentConfig *genai.GenerateContentConfig
	modelName     string
	maxRetries    int
	retryDelay    time.Duration
}

// NewClient creates a Gemini client from cfg.
func NewClient(ctx context.Context, cfg config.GeminiConfig, log *slog.Logger) (Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}

	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	baseCfg := &genai.GenerateContentConfig{Temperature: &cfg.Temperature}
	if cfg.SystemInstruction != "" {
		baseCfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: cfg.SystemInstruction}}}
	}

	logger := log.With("component", "gemini_client")
	logger.Info("Gemini client initialized", "model", cfg.ModelName)
	return &sdkClient{
		genaiClient:   gi,
		breaker:       resilience.NewBreaker(resilience.BreakerConfig{Name: "gemini", MaxFailures: 3, OpenTimeout: 10 * time.Minute}, logger),
		log:           logger,
		contentConfig: baseCfg,
		modelName:     cfg.ModelName,
		maxRetries:    cfg.MaxRetries,
		retryDelay:    time.Duration(cfg.RetryDelaySeconds) * time.Second,
	}, nil
}

func (c *sdkClient) DescribeBot(ctx context.Context, b *chatbot.Bot) (string, error) {
	c.log.DebugContext(ctx, "Generating bot description", "bot", b.Title, "words", len(b.Words), "responses", len(b.Responses))

	prompt := BuildDescribePrompt(b)
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	copyCfg := *c.contentConfig
	var resp *genai.GenerateContentResponse
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		resp, err = c.generateContentWithRetries(ctx, contents, &copyCfg)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to describe bot %s: %w", b.Title, err)
	}

	text, err := c.extractText(ctx, resp)
	if err != nil {
		return "", err
	}
	return CleanDescription(text), nil
}

// BuildDescribePrompt fills DescribeBotInstruction with samples of b's data.
func BuildDescribePrompt(b *chatbot.Bot) string {
	words := b.Words
	if len(words) > sampleWords {
		words = words[:sampleWords]
	}
	replies := make([]string, 0, sampleResponses)
	for _, r := range b.Responses {
		if len(replies) == sampleResponses {
			break
		}
		for _, v := range r {
			if v != "" {
				replies = append(replies, v)
				break
			}
		}
	}
	return fmt.Sprintf(DescribeBotInstruction, b.Title, strings.Join(words, ", "), strings.Join(replies, " | "))
}

// CleanDescription strips markup, quotes and extra whitespace and caps the
// length in runes.
func CleanDescription(text string) string {
	text = sanitize.PlainText(text)
	text = strings.Trim(text, "\"'`")
	text = strings.Join(strings.Fields(text), " ")
	if runes := []rune(text); len(runes) > maxDescription {
		text = strings.TrimSpace(string(runes[:maxDescription-3])) + "..."
	}
	return text
}

func (c *sdkClient) generateContentWithRetries(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		resp, err := c.genaiClient.Models.GenerateContent(ctx, c.modelName, contents, cfg)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var apiErr *genai.APIError
		if !errors.As(err, &apiErr) || (apiErr.Code != 500 && apiErr.Code != 503) {
			c.log.ErrorContext(ctx, "Gemini API call failed with non-retriable error", "error", err)
			return nil, fmt.Errorf("gemini API call failed: %w", err)
		}
		if i == c.maxRetries {
			break
		}

		c.log.WarnContext(ctx, "Retrying Gemini API call", "attempt", i+1, "max_retries", c.maxRetries, "code", apiErr.Code, "delay", c.retryDelay)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.retryDelay):
		}
	}
	c.log.ErrorContext(ctx, "Gemini API call failed after retries", "error", lastErr)
	return nil, fmt.Errorf("gemini API call failed after %d retries: %w", c.maxRetries, lastErr)
}

func (c *sdkClient) extractText(ctx context.Context, resp *genai.GenerateContentResponse) (string, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		reason := fmt.Sprintf("%v", resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reason = resp.PromptFeedback.BlockReasonMessage
		}
		c.log.ErrorContext(ctx, "Gemini request blocked", "reason", reason)
		return "", fmt.Errorf("description blocked by safety filter: %s", reason)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		finishReason := "unknown"
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonUnspecified {
			finishReason = fmt.Sprintf("%v", resp.Candidates[0].FinishReason)
		}
		c.log.WarnContext(ctx, "Gemini response missing content", "finish_reason", finishReason)
		return "", fmt.Errorf("gemini returned no content, finish reason: %s", finishReason)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("gemini returned empty text")
	}
	return text, nil
}
