package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudresty/ulid"
	amqp "github.com/rabbitmq/amqp091-go"

	"landregistry/pkg/logger"
)

// Publisher publishes persistent messages with publisher confirms: Publish
// returns only after the broker acknowledges receipt, so a returned nil means
// the message is durably queued.
type Publisher struct {
	client *Client
	log    *logger.Logger
}

// NewPublisher creates a publisher on the given client.
func NewPublisher(client *Client, log *logger.Logger) *Publisher {
	return &Publisher{
		client: client,
		log:    log.WithComponent("publisher"),
	}
}

// Publish sends body to queue via the default exchange. The message is marked
// persistent and the call blocks on the broker confirm.
func (p *Publisher) Publish(ctx context.Context, queue string, body []byte) error {
	ch, err := p.client.Channel(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Confirm(false); err != nil {
		return fmt.Errorf("enable publisher confirms: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}

	messageID, err := ulid.New()
	if err != nil {
		return fmt.Errorf("generate message id: %w", err)
	}

	confirmation, err := ch.PublishWithDeferredConfirmWithContext(ctx,
		"",    // default exchange
		queue, // routing key = queue name
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", queue, err)
	}

	acked, err := confirmation.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("await confirm for %s: %w", queue, err)
	}
	if !acked {
		return fmt.Errorf("broker nacked publish to %s", queue)
	}

	p.log.Debugw("message published", "queue", queue, "message_id", messageID)
	return nil
}
