package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"k21/internal/services"
)

const defaultTimeout = 60 * time.Second

// Config captures the runtime settings required to talk to the endpoint.
type Config struct {
	// BaseURL is the API root, e.g. https://api.openai.com/v1. A full
	// .../chat/completions URL is accepted and trimmed.
	BaseURL string
	APIKey  string
	Model   string
	Prompt  string
	Timeout time.Duration
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// Client wraps go-openai for single-image transcription.
type Client struct {
	cfg        Config
	httpClient *http.Client
	api        *openai.Client
}

// NewClient constructs a vision client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.BaseURL = NormalizeBaseURL(cfg.BaseURL)
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	client := &Client{cfg: cfg, httpClient: &http.Client{}}
	for _, opt := range opts {
		opt(client)
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	apiCfg.HTTPClient = client.httpClient
	client.api = openai.NewClientWithConfig(apiCfg)
	return client
}

// NormalizeBaseURL trims whitespace, trailing slashes and a trailing
// /chat/completions path so go-openai can append its own route.
func NormalizeBaseURL(raw string) string {
	base := strings.TrimRight(strings.TrimSpace(raw), "/")
	base = strings.TrimSuffix(base, "/chat/completions")
	return strings.TrimRight(base, "/")
}

// Describe sends png to the model and returns the transcribed text.
func (c *Client) Describe(ctx context.Context, png []byte) (string, error) {
	if len(png) == 0 {
		return "", services.Wrap(services.ErrFrameProcess, "process", "vision", "Empty image", nil)
	}
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
	req := openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: c.cfg.Prompt},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: openai.ImageURLDetailAuto,
						},
					},
				},
			},
		},
	}

	resp, err := c.api.CreateChatCompletion(reqCtx, req)
	if err != nil {
		return "", c.classify(ctx, reqCtx, err)
	}
	if len(resp.Choices) == 0 {
		return "", services.Wrap(services.ErrFrameProcess, "process", "vision", "Malformed response: no choices", nil)
	}
	choice := resp.Choices[0]
	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		detail := "Malformed response: empty content"
		if choice.FinishReason != "" {
			detail = fmt.Sprintf("%s (finish_reason=%s)", detail, choice.FinishReason)
		}
		return "", services.Wrap(services.ErrFrameProcess, "process", "vision", detail, nil)
	}
	return content, nil
}

// HealthCheck lists models to confirm the endpoint is reachable and the key
// is accepted.
func (c *Client) HealthCheck(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	if _, err := c.api.ListModels(checkCtx); err != nil {
		return c.classify(ctx, checkCtx, err)
	}
	return nil
}

func (c *Client) classify(parent, reqCtx context.Context, err error) error {
	if parentErr := parent.Err(); parentErr != nil {
		return parentErr
	}
	if errors.Is(reqCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "process", "vision", fmt.Sprintf("Request exceeded %s", c.cfg.Timeout), err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return services.Wrap(services.ErrTimeout, "process", "vision", "Request timed out", err)
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return services.Wrap(services.ErrConfiguration, "process", "vision", fmt.Sprintf("Endpoint rejected credentials (HTTP %d)", status), err)
	case status == http.StatusTooManyRequests || status >= 500:
		return services.Wrap(services.ErrTransient, "process", "vision", fmt.Sprintf("Endpoint unavailable (HTTP %d)", status), err)
	case status >= 400:
		return services.Wrap(services.ErrFrameProcess, "process", "vision", fmt.Sprintf("Request rejected (HTTP %d)", status), err)
	}
	return services.Wrap(services.ErrTransient, "process", "vision", "Request failed", err)
}
