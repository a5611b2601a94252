// Package broker wraps RabbitMQ access for the saga services: a connection
// client with automatic reconnect, a confirming publisher and a manual-ack
// consumer. All saga messages flow through this package; nothing else in the
// codebase touches AMQP directly.
package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"landregistry/pkg/logger"
)

// DefaultReconnectDelay is the fixed backoff between reconnection attempts.
const DefaultReconnectDelay = 10 * time.Second

// ErrClosed is returned when the client has been shut down.
var ErrClosed = errors.New("broker client closed")

// Config holds broker connection configuration.
type Config struct {
	URL            string
	ReconnectDelay time.Duration
}

// DefaultConfig returns production defaults for the given AMQP URL.
func DefaultConfig(url string) Config {
	return Config{
		URL:            url,
		ReconnectDelay: DefaultReconnectDelay,
	}
}

// Client manages one AMQP connection with automatic reconnect. Connection
// loss triggers unbounded retry with a fixed delay rather than failing the
// process. Lifecycle is explicit: Connect once at startup, Close at shutdown.
type Client struct {
	cfg Config
	log *logger.Logger

	mu     sync.RWMutex
	conn   *amqp.Connection
	closed bool
}

// NewClient creates an unconnected client.
func NewClient(cfg Config, log *logger.Logger) *Client {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	return &Client{
		cfg: cfg,
		log: log.WithComponent("broker"),
	}
}

// Connect dials the broker and starts the reconnect monitor.
func (c *Client) Connect(ctx context.Context) error {
	conn, err := amqp.Dial(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.monitor(ctx, conn)

	c.log.Info("broker connection established")
	return nil
}

// monitor watches for connection loss and reconnects with fixed backoff until
// it succeeds or the client is closed.
func (c *Client) monitor(ctx context.Context, conn *amqp.Connection) {
	closeCh := conn.NotifyClose(make(chan *amqp.Error, 1))

	select {
	case <-ctx.Done():
		return
	case amqpErr, ok := <-closeCh:
		if !ok || c.isClosed() {
			return
		}
		c.log.Warnw("broker connection lost, reconnecting", "error", amqpErr)
	}

	for {
		if c.isClosed() || ctx.Err() != nil {
			return
		}

		newConn, err := amqp.Dial(c.cfg.URL)
		if err != nil {
			c.log.Errorw("broker reconnect failed, retrying",
				"delay", c.cfg.ReconnectDelay.String(),
				"error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.cfg.ReconnectDelay):
			}
			continue
		}

		c.mu.Lock()
		c.conn = newConn
		c.mu.Unlock()

		c.log.Info("broker connection re-established")
		go c.monitor(ctx, newConn)
		return
	}
}

// Channel opens a fresh channel on the current connection, waiting through
// reconnects. It blocks until a channel is available, the context is done, or
// the client is closed.
func (c *Client) Channel(ctx context.Context) (*amqp.Channel, error) {
	for {
		c.mu.RLock()
		conn := c.conn
		closed := c.closed
		c.mu.RUnlock()

		if closed {
			return nil, ErrClosed
		}

		if conn != nil && !conn.IsClosed() {
			ch, err := conn.Channel()
			if err == nil {
				return ch, nil
			}
			c.log.Warnw("open channel failed, waiting for reconnect", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.cfg.ReconnectDelay):
		}
	}
}

// DeclareQueue ensures a durable queue exists. Safe to call repeatedly.
func (c *Client) DeclareQueue(ctx context.Context, queue string) error {
	ch, err := c.Channel(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	_, err = ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return nil
}

// Close shuts down the connection permanently.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.conn != nil && !c.conn.IsClosed() {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}
