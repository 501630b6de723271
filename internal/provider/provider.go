// Package provider talks to the SMS transport provider: outbound sends and the
// request signature used on its callbacks.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aniladanir/review-messenger-service/internal/domain"
	"github.com/google/uuid"
)

// Sender hands a message to the provider and returns the provider message id.
type Sender interface {
	Send(ctx context.Context, to, body, callbackURL string) (string, error)
}

type Config struct {
	BaseURL    string
	AccountSID string
	AuthToken  string
	From       string
	Timeout    time.Duration
}

// Configured reports whether credentials are present. Without them the
// service runs in offline mode.
func (c Config) Configured() bool {
	return c.AccountSID != "" && c.AuthToken != ""
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

type sendResponse struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.twilio.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// Send posts one message. It is never retried here: a timed out request may
// still have been accepted, and a retry would text the recipient twice.
func (c *Client) Send(ctx context.Context, to, body, callbackURL string) (string, error) {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.cfg.From)
	form.Set("Body", body)
	if callbackURL != "" {
		form.Set("StatusCallback", callbackURL)
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json",
		strings.TrimRight(c.cfg.BaseURL, "/"), url.PathEscape(c.cfg.AccountSID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Request-ID", requestID)
	req.SetBasicAuth(c.cfg.AccountSID, c.cfg.AuthToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrProvider, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", domain.ErrProvider, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var perr errorResponse
		_ = json.Unmarshal(raw, &perr)
		c.logger.Error("provider rejected message",
			"requestId", requestID,
			"statusCode", resp.StatusCode,
			"providerCode", perr.Code)
		if perr.Message == "" {
			perr.Message = http.StatusText(resp.StatusCode)
		}
		return "", fmt.Errorf("%w: %d %s", domain.ErrProvider, perr.Code, perr.Message)
	}

	var result sendResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", domain.ErrProvider, err)
	}
	if result.SID == "" {
		return "", fmt.Errorf("%w: response without message sid", domain.ErrProvider)
	}

	c.logger.Debug("provider accepted message", "requestId", requestID, "providerMessageId", result.SID)
	return result.SID, nil
}

// Offline stands in for the provider when no credentials are configured.
// Messages are logged and given a synthetic id; nothing leaves the process.
type Offline struct {
	logger *slog.Logger
}

func NewOffline(logger *slog.Logger) *Offline {
	return &Offline{logger: logger}
}

func (o *Offline) Send(_ context.Context, to, body, callbackURL string) (string, error) {
	sid := NewMessageSID()
	o.logger.Info("offline send", "to", to, "providerMessageId", sid, "bodyLength", len(body))
	return sid, nil
}

// NewMessageSID returns an id shaped like a provider message sid.
func NewMessageSID() string {
	return "SM" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
