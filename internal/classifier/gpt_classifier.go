package classifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// GPTConfig configures the chat-completion oracle. BaseURL may point at any
// OpenAI-compatible endpoint.
type GPTConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

type GPTClassifier struct {
	client      *openai.Client
	taxonomy    *Taxonomy
	model       string
	maxTokens   int
	temperature float64
	available   bool
	logger      *zap.Logger
}

func NewGPTClassifier(cfg GPTConfig, taxonomy *Taxonomy, logger *zap.Logger) *GPTClassifier {
	c := &GPTClassifier{
		taxonomy:    taxonomy,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		available:   cfg.APIKey != "",
		logger:      logger,
	}
	if !c.available {
		logger.Warn("Oracle API key not configured, classification disabled")
		return c
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	c.client = openai.NewClientWithConfig(clientConfig)
	return c
}

func (c *GPTClassifier) Available() bool {
	return c.available
}

func (c *GPTClassifier) Classify(ctx context.Context, text string) (string, error) {
	if !c.available {
		return "", &OracleError{Kind: KindTransport, Err: errors.New("oracle not configured")}
	}

	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: c.taxonomy.Prompt(text),
				},
			},
			MaxTokens:   c.maxTokens,
			Temperature: float32(c.temperature),
		},
	)
	if err != nil {
		c.logger.Error("Failed to get oracle response", zap.Error(err))
		return "", &OracleError{Kind: kindOf(err), Err: err}
	}

	if len(resp.Choices) == 0 {
		return "", &OracleError{Kind: KindMalformed, Err: errors.New("response has no choices")}
	}
	result := strings.TrimSpace(resp.Choices[0].Message.Content)
	if result == "" {
		return "", &OracleError{
			Kind: KindMalformed,
			Err:  fmt.Errorf("empty response (finish reason %q)", resp.Choices[0].FinishReason),
		}
	}

	c.logger.Debug("Oracle response", zap.String("result", result), zap.String("model", resp.Model))
	return result, nil
}

func kindOf(err error) ErrorKind {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return KindQuota
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return KindQuota
	}
	return KindTransport
}
