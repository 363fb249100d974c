package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"tgminer/internal/app/ports"

	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	DefaultTimeout  = 10 * time.Second
	requestIDHeader = "X-Request-ID"
)

var ErrInvalidConfig = errors.New("invalid api client config")

// TokenSource supplies the bearer token and is told when the backend rejects it.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	ClearToken(ctx context.Context) error
}

type Options struct {
	BaseURL  string
	Timeout  time.Duration
	Paths    Paths
	SeasonID int64
	Tokens   TokenSource
	Logger   zerolog.Logger
}

// Client talks to the game backend over REST. Every response is wrapped in
// a {data, success, message} envelope.
type Client struct {
	base     string
	timeout  time.Duration
	paths    Paths
	seasonID int64
	tokens   TokenSource
	logger   zerolog.Logger
	hc       *client.Client
}

func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("%w: base url required", ErrInvalidConfig)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	hc, err := client.NewClient(
		client.WithDialTimeout(timeout),
		client.WithClientReadTimeout(timeout),
	)
	if err != nil {
		return nil, err
	}
	seasonID := opts.SeasonID
	if seasonID <= 0 {
		seasonID = 1
	}
	return &Client{
		base:     base,
		timeout:  timeout,
		paths:    opts.Paths.WithDefaults(),
		seasonID: seasonID,
		tokens:   opts.Tokens,
		logger:   opts.Logger,
		hc:       hc,
	}, nil
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Success *bool           `json:"success,omitempty"`
	Message string          `json:"message,omitempty"`
}

func (c *Client) get(ctx context.Context, op, path string, out any) error {
	return c.do(ctx, op, consts.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, op, path string, body, out any) error {
	return c.do(ctx, op, consts.MethodPost, path, body, out)
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()
	defer protocol.ReleaseRequest(req)
	defer protocol.ReleaseResponse(resp)

	req.SetMethod(method)
	req.SetRequestURI(c.base + path)
	req.Header.Set("Accept", "application/json")
	reqID := uuid.NewString()
	req.Header.Set(requestIDHeader, reqID)
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &ports.RemoteCallError{Op: op, Cause: fmt.Errorf("encode request: %w", err)}
		}
		req.Header.SetContentTypeBytes([]byte("application/json"))
		req.SetBody(b)
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return &ports.RemoteCallError{Op: op, Cause: err}
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	if err := c.hc.DoTimeout(ctx, req, resp, c.timeout); err != nil {
		c.logger.Warn().Err(err).Str("op", op).Str("request_id", reqID).Msg("backend request failed")
		return &ports.RemoteCallError{Op: op, Cause: err}
	}
	status := resp.StatusCode()
	raw := resp.Body()
	c.logger.Debug().
		Str("op", op).
		Str("method", method).
		Str("path", path).
		Int("status", status).
		Str("request_id", reqID).
		Dur("took", time.Since(start)).
		Msg("backend call")

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if status == consts.StatusUnauthorized {
		if c.tokens != nil {
			if err := c.tokens.ClearToken(ctx); err != nil {
				c.logger.Warn().Err(err).Msg("clear rejected token failed")
			}
		}
		return &ports.RemoteCallError{Op: op, Status: status, Message: env.Message, Cause: ports.ErrUnauthorized}
	}
	if status < 200 || status >= 300 {
		msg := env.Message
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return &ports.RemoteCallError{Op: op, Status: status, Message: msg}
	}
	if len(raw) == 0 {
		return nil
	}
	if decodeErr != nil {
		return &ports.RemoteCallError{Op: op, Status: status, Cause: fmt.Errorf("decode envelope: %w", decodeErr)}
	}
	if env.Success != nil && !*env.Success {
		return &ports.RemoteCallError{Op: op, Status: status, Message: env.Message}
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &ports.RemoteCallError{Op: op, Status: status, Cause: fmt.Errorf("decode data: %w", err)}
	}
	return nil
}
