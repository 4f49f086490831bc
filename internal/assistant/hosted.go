package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Hosted defaults.
const (
	DefaultBaseURL     = "https://api.groq.com/openai/v1"
	DefaultModel       = "llama-3.1-8b-instant"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 500
	DefaultTimeout     = 30 * time.Second

	// maxHistory bounds the prior messages sent with each request.
	maxHistory = 10
)

const systemPrompt = "You are a smart and friendly shopping assistant for an e-commerce platform. " +
	"Suggest relevant product categories, price ranges, or items based on user queries like " +
	`"I need sports shoes" or "show me something under ₹500".`

// HostedConfig configures the hosted completion client.
type HostedConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

func (c *HostedConfig) setDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Temperature == 0 {
		c.Temperature = DefaultTemperature
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
}

// Hosted asks an OpenAI-compatible chat-completion endpoint.
type Hosted struct {
	llm llms.Model
	cfg HostedConfig
}

// NewHosted creates the client. An API key is required.
func NewHosted(cfg HostedConfig) (*Hosted, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("assistant: hosted completion requires an api key")
	}
	cfg.setDefaults()

	llm, err := openai.New(
		openai.WithToken(cfg.APIKey),
		openai.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")),
		openai.WithModel(cfg.Model),
		openai.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("create completion client: %w", err)
	}
	return &Hosted{llm: llm, cfg: cfg}, nil
}

// Complete implements Completer.
func (h *Hosted) Complete(ctx context.Context, history []Message, input string) (string, error) {
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}

	msgs := make([]llms.MessageContent, 0, len(history)+2)
	msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt))
	for _, m := range history {
		role := llms.ChatMessageTypeAI
		if m.Sender == SenderUser {
			role = llms.ChatMessageTypeHuman
		}
		msgs = append(msgs, llms.TextParts(role, m.Text))
	}
	msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeHuman, input))

	resp, err := h.llm.GenerateContent(ctx, msgs,
		llms.WithTemperature(h.cfg.Temperature),
		llms.WithMaxTokens(h.cfg.MaxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty response from completion endpoint")
	}
	text := strings.TrimSpace(resp.Choices[0].Content)
	if text == "" {
		return "", errors.New("empty response from completion endpoint")
	}
	return text, nil
}
