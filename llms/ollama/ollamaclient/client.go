// Package ollamaclient wraps the Ollama API client with host parsing,
// logging and non-streaming chat aggregation.
package ollamaclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

const (
	DefaultOllamaURL = "http://127.0.0.1:11434"
	DefaultTimeout   = 10 * time.Minute
)

type Client struct {
	api     *api.Client
	baseURL *url.URL
	logger  *slog.Logger
}

// NewClient creates a client. A nil baseURL is read from OLLAMA_HOST,
// falling back to DefaultOllamaURL.
func NewClient(baseURL *url.URL, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	if baseURL == nil {
		var err error
		baseURL, err = ParseHost(os.Getenv("OLLAMA_HOST"))
		if err != nil {
			return nil, err
		}
	}

	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: DefaultTimeout,
			Transport: &http.Transport{
				MaxIdleConns:      100,
				IdleConnTimeout:   90 * time.Second,
				MaxConnsPerHost:   100,
				ForceAttemptHTTP2: true,
			},
		}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		api:     api.NewClient(baseURL, httpClient),
		baseURL: baseURL,
		logger:  logger.With("component", "ollama_client", "url", baseURL.String()),
	}, nil
}

// ParseHost accepts the same forms as OLLAMA_HOST: a full URL or a bare host[:port].
func ParseHost(host string) (*url.URL, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		host = DefaultOllamaURL
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}

	baseURL, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ollama host %q: %w", host, err)
	}
	if baseURL.Port() == "" && baseURL.Scheme == "http" {
		baseURL.Host += ":11434"
	}
	return baseURL, nil
}

// Chat sends a chat request. With streaming disabled the chunks are merged
// and fn is called once with the full message.
func (c *Client) Chat(ctx context.Context, req *api.ChatRequest, fn api.ChatResponseFunc) error {
	if req.Stream != nil && *req.Stream {
		return c.api.Chat(ctx, req, fn)
	}

	var finalResp api.ChatResponse
	var accumulatedContent strings.Builder

	err := c.api.Chat(ctx, req, func(resp api.ChatResponse) error {
		accumulatedContent.WriteString(resp.Message.Content)
		if resp.Done {
			finalResp = resp
		}
		return nil
	})
	if err != nil {
		c.logger.DebugContext(ctx, "Chat request failed", "model", req.Model, "error", err)
		return err
	}

	finalResp.Message.Content = accumulatedContent.String()
	return fn(finalResp)
}

func (c *Client) Embed(ctx context.Context, req *api.EmbedRequest) (*api.EmbedResponse, error) {
	resp, err := c.api.Embed(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("embed request failed: %w", err)
	}
	return resp, nil
}

func (c *Client) Show(ctx context.Context, req *api.ShowRequest) (*api.ShowResponse, error) {
	resp, err := c.api.Show(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("show model request failed: %w", err)
	}
	return resp, nil
}

func (c *Client) Pull(ctx context.Context, req *api.PullRequest, fn api.PullProgressFunc) error {
	if err := c.api.Pull(ctx, req, fn); err != nil {
		return fmt.Errorf("pull request failed: %w", err)
	}
	return nil
}

func (c *Client) GetBaseURL() *url.URL {
	return c.baseURL
}

// IsNotFound reports whether err is a 404 from the Ollama API.
func IsNotFound(err error) bool {
	var statusErr api.StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}
