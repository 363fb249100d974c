package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"tgminer/internal/domain/game"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	TypeUserUpdate = "user:update"
	SourceRealtime = "realtime"

	minBackoff = 200 * time.Millisecond
	maxBackoff = 5 * time.Second
)

// Reconciler receives server-pushed snapshots.
type Reconciler interface {
	Reconcile(source string, u game.UserSnapshot)
}

type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type userUpdate struct {
	User *game.UserSnapshot `json:"user"`
}

type Config struct {
	URL         string
	Tokens      TokenSource
	ReadTimeout time.Duration
	Logger      zerolog.Logger
}

// Client keeps a websocket open to the backend and forwards user:update
// frames. It reconnects with capped exponential backoff until closed.
type Client struct {
	cfg  Config
	sink Reconciler

	startOnce sync.Once
	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool
	lastErr   string
	received  uint64
}

type Status struct {
	Connected bool   `json:"connected"`
	LastError string `json:"last_error,omitempty"`
	Received  uint64 `json:"received"`
}

func New(cfg Config, sink Reconciler) *Client {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 60 * time.Second
	}
	return &Client{
		cfg:  cfg,
		sink: sink,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (c *Client) Start() {
	c.startOnce.Do(func() {
		go c.run()
	})
}

// Close stops the reconnect loop and waits for it to exit.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.stop)
		c.disconnect()
		c.startOnce.Do(func() { close(c.done) })
		<-c.done
	})
}

func (c *Client) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Status{Connected: c.connected, LastError: c.lastErr, Received: c.received}
}

func (c *Client) disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.connected = false
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

func (c *Client) run() {
	defer close(c.done)

	backoff := minBackoff
	for {
		select {
		case <-c.stop:
			return
		default:
		}

		err := c.connectAndRead()
		select {
		case <-c.stop:
			return
		default:
		}
		if err != nil {
			c.mu.Lock()
			c.connected = false
			c.lastErr = err.Error()
			c.mu.Unlock()
			c.cfg.Logger.Warn().Err(err).Dur("backoff", backoff).Msg("realtime connection lost")
		}
		select {
		case <-c.stop:
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

func (c *Client) connectAndRead() error {
	if strings.TrimSpace(c.cfg.URL) == "" {
		return errors.New("realtime url not configured")
	}
	header := http.Header{}
	if c.cfg.Tokens != nil {
		token, err := c.cfg.Tokens.Token(context.Background())
		if err != nil {
			return err
		}
		if token != "" {
			header.Set("Authorization", "Bearer "+token)
		}
	}

	d := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, resp, err := d.Dial(c.cfg.URL, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return err
	}

	c.mu.Lock()
	select {
	case <-c.stop:
		c.mu.Unlock()
		_ = conn.Close()
		return nil
	default:
	}
	c.conn = conn
	c.connected = true
	c.lastErr = ""
	c.mu.Unlock()
	c.cfg.Logger.Info().Str("url", c.cfg.URL).Msg("realtime connected")

	for {
		_ = conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			c.disconnect()
			return err
		}
		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg []byte) {
	var f Frame
	if err := json.Unmarshal(msg, &f); err != nil {
		c.cfg.Logger.Debug().Err(err).Msg("drop malformed frame")
		return
	}
	switch f.Type {
	case TypeUserUpdate:
		var upd userUpdate
		if err := json.Unmarshal(f.Data, &upd); err != nil || upd.User == nil {
			c.cfg.Logger.Debug().Msg("drop user update without user")
			return
		}
		c.mu.Lock()
		c.received++
		c.mu.Unlock()
		c.sink.Reconcile(SourceRealtime, *upd.User)
	default:
		c.cfg.Logger.Debug().Str("type", f.Type).Msg("ignore frame")
	}
}
