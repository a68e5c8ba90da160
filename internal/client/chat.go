package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/markis/chatstream/internal/config"
)

const maxErrorBody = 4096

// ErrStatus is returned when the server answers with a non-200 status.
var ErrStatus = errors.New("unexpected response status")

// Client opens chat event streams against the configured backend.
type Client struct {
	endpoint    string
	chatPath    string
	welcomePath string
	token       string
	http        *http.Client
	logger      *zap.Logger
}

// New builds a Client. cfg.Timeout bounds connecting and waiting for
// response headers only; a body may stream for as long as the server keeps
// it open.
func New(cfg config.Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: timeout,
		DisableCompression:    false,
		DisableKeepAlives:     false,
		ForceAttemptHTTP2:     true,
	}

	// Add context-aware dial options
	transport.DialContext = (&net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}).DialContext

	return &Client{
		endpoint:    strings.TrimRight(cfg.Endpoint, "/"),
		chatPath:    cfg.ChatPath,
		welcomePath: cfg.WelcomePath,
		token:       cfg.Token,
		http:        &http.Client{Transport: transport},
		logger:      logger,
	}
}

// OpenChat sends prompt and returns the streaming response body.
func (c *Client) OpenChat(ctx context.Context, prompt string) (io.ReadCloser, error) {
	data, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+c.chatPath, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.open(req)
}

// OpenWelcome requests the streaming welcome message of a new chat.
func (c *Client) OpenWelcome(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+c.welcomePath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.open(req)
}

func (c *Client) open(req *http.Request) (io.ReadCloser, error) {
	req.Header.Set("Accept", "text/event-stream")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Debug("opening event stream",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer func() {
			if err := resp.Body.Close(); err != nil {
				c.logger.Warn("failed to close response body", zap.Error(err))
			}
		}()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w %d: %s", ErrStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return resp.Body, nil
}
