package broker

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"landregistry/pkg/logger"
)

// channelAPI is the slice of *amqp.Channel the consumer needs; narrowed for
// testability.
type channelAPI interface {
	Close() error
	Qos(prefetchCount, prefetchSize int, global bool) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// Handler processes one delivery. A nil return acknowledges the message; an
// error negative-acknowledges it with requeue. Because the ack happens only
// after the handler returns, every handler must tolerate redelivery.
type Handler func(ctx context.Context, body []byte) error

// Consumer pulls messages from one queue, one at a time (prefetch 1), and
// drives the handler. It survives connection loss by re-entering the consume
// loop once the client has reconnected.
type Consumer struct {
	client *Client
	log    *logger.Logger
}

// NewConsumer creates a consumer on the given client.
func NewConsumer(client *Client, log *logger.Logger) *Consumer {
	return &Consumer{
		client: client,
		log:    log.WithComponent("consumer"),
	}
}

// Consume blocks, delivering messages from queue to handler until ctx is
// cancelled or the client is closed.
func (c *Consumer) Consume(ctx context.Context, queue string, handler Handler) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		ch, err := c.client.Channel(ctx)
		if err != nil {
			if err == ErrClosed {
				return err
			}
			continue
		}

		if err := c.consumeOnce(ctx, ch, queue, handler); err != nil {
			return err
		}

		// Channel died; wait out the reconnect delay before retrying.
		c.log.Warnw("consume channel closed, re-subscribing", "queue", queue)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.client.cfg.ReconnectDelay):
		}
	}
}

// consumeOnce runs one subscription until the channel closes. A nil return
// means the channel died and the caller should re-subscribe; a non-nil return
// is terminal.
func (c *Consumer) consumeOnce(ctx context.Context, ch channelAPI, queue string, handler Handler) error {
	defer func() { _ = ch.Close() }()

	// One unacknowledged message at a time per subscription.
	if err := ch.Qos(1, 0, false); err != nil {
		c.log.Errorw("set qos failed", "queue", queue, "error", err)
		return nil
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		c.log.Errorw("declare queue failed", "queue", queue, "error", err)
		return nil
	}

	deliveries, err := ch.Consume(queue,
		"",    // generated consumer tag
		false, // manual ack
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil)
	if err != nil {
		c.log.Errorw("start consume failed", "queue", queue, "error", err)
		return nil
	}

	c.log.Infow("consuming", "queue", queue)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return nil // channel closed, re-subscribe
			}

			if err := handler(ctx, d.Body); err != nil {
				c.log.Errorw("handler failed, requeueing message",
					"queue", queue,
					"message_id", d.MessageId,
					"error", err)
				if nackErr := d.Nack(false, true); nackErr != nil {
					c.log.Errorw("nack failed", "queue", queue, "error", nackErr)
				}
				continue
			}

			if ackErr := d.Ack(false); ackErr != nil {
				c.log.Errorw("ack failed", "queue", queue, "error", ackErr)
			}
		}
	}
}
