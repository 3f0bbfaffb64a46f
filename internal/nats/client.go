// Package nats stores run artifacts in a NATS JetStream stream.
package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/capitalize-ai/journey-analytics/pkg/logger"
)

const defaultConnectTimeout = 5 * time.Second

// Config holds NATS connection configuration. TLS is enabled only when all
// three certificate files are set.
type Config struct {
	URL            string
	CAFile         string
	CertFile       string
	KeyFile        string
	Token          string
	ConnectTimeout time.Duration
}

func (c Config) options(log *logger.Logger) []nats.Option {
	timeout := c.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	opts := []nats.Option{
		nats.Name("journey-analytics-artifacts"),
		nats.Timeout(timeout),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("artifact store disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("artifact store reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Error("artifact store error", zap.Error(err))
		}),
	}
	if c.CAFile != "" && c.CertFile != "" && c.KeyFile != "" {
		opts = append(opts,
			nats.RootCAs(c.CAFile),
			nats.ClientCert(c.CertFile, c.KeyFile),
		)
	}
	if c.Token != "" {
		opts = append(opts, nats.Token(c.Token))
	}
	return opts
}

// Client owns the connection backing the JetStream artifact store.
type Client struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	logger *logger.Logger
}

// Connect dials the server and opens a JetStream context.
func Connect(ctx context.Context, cfg Config, log *logger.Logger) (*Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	nc, err := nats.Connect(cfg.URL, cfg.options(log)...)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.URL, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	log.Info("artifact store connected", zap.String("url", nc.ConnectedUrl()))
	return &Client{conn: nc, js: js, logger: log}, nil
}

// JetStream returns the JetStream context.
func (c *Client) JetStream() jetstream.JetStream {
	return c.js
}

// IsConnected reports whether the connection is currently usable.
func (c *Client) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}

// Status returns the connection state, e.g. "CONNECTED" or "RECONNECTING".
func (c *Client) Status() string {
	if c.conn == nil {
		return "CLOSED"
	}
	return c.conn.Status().String()
}

// Close drains pending publishes before closing the connection.
func (c *Client) Close() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Drain(); err != nil {
		c.logger.Warn("artifact store drain failed", zap.Error(err))
		c.conn.Close()
	}
}
