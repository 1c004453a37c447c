// Package chatapi talks to the chat service's login endpoint.
package chatapi

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"pkt.systems/oxycord/internal/logx"
	"pkt.systems/oxycord/schema"
	"pkt.systems/pslog"
)

const (
	// DefaultBaseURL is the API root used when none is configured.
	DefaultBaseURL = "https://discord.com/api/v9"
	// DefaultUserAgent is sent when none is configured.
	DefaultUserAgent = "oxycord"

	loginPath = "/auth/login"
)

// Options configures a Client.
type Options struct {
	BaseURL   string
	UserAgent string
	// Timeout bounds a single request. Zero means no timeout.
	Timeout time.Duration
	Logger  pslog.Logger
}

// Client posts login attempts.
type Client struct {
	http *resty.Client
	log  pslog.Logger
}

type loginRequest struct {
	Email         string  `json:"email"`
	Password      string  `json:"password"`
	Undelete      bool    `json:"undelete"`
	CaptchaKey    *string `json:"captcha_key"`
	LoginSource   *string `json:"login_source"`
	GiftCodeSKUID *string `json:"gift_code_sku_id"`
}

// New builds a client.
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("api base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("api base url must be http or https: %q", base)
	}
	agent := strings.TrimSpace(opts.UserAgent)
	if agent == "" {
		agent = DefaultUserAgent
	}
	client := resty.New().
		SetBaseURL(base).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", agent)
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	logger := opts.Logger
	if logger != nil {
		logger = logger.With("api", base)
	}
	return &Client{http: client, log: logger}, nil
}

// Login submits attempt and returns the raw response body regardless of
// the HTTP status. Only transport failures are errors.
func (c *Client) Login(ctx context.Context, attempt schema.LoginAttempt) ([]byte, error) {
	log := c.log
	if log != nil {
		if id := logx.AttemptFromContext(ctx); id != "" {
			log = log.With("attempt", id)
		}
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(loginRequest{Email: attempt.Email, Password: attempt.Password}).
		Post(loginPath)
	if err != nil {
		if log != nil {
			log.Warn("login request failed", "err", err)
		}
		return nil, fmt.Errorf("%w: %w", schema.ErrTransport, err)
	}
	if log != nil {
		log.Debug("login request ok", "status", resp.StatusCode(), "bytes", len(resp.Body()))
	}
	return resp.Body(), nil
}
