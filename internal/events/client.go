package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sethvargo/go-retry"
)

// Publisher is what the HTTP layer needs. A nil Publisher is allowed
// wherever one is accepted; see Publish.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Publish sends e if p is set and only logs failures: events are
// notifications and never fail the request that caused them.
func Publish(ctx context.Context, p Publisher, e Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, e); err != nil {
		slog.WarnContext(ctx, "Event not published", "type", e.Type, "household_id", e.HouseholdID, "error", err)
	}
}

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
	retry        RetryPolicy
}

// RetryPolicy bounds how long a failing handler is retried before its
// message is given up on.
type RetryPolicy struct {
	Retries uint64
	Base    time.Duration
	Max     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Retries: 5, Base: time.Second, Max: 30 * time.Second}
}

// handle runs handler with exponential backoff between attempts.
func (p RetryPolicy) handle(ctx context.Context, handler func(context.Context, Event) error, e Event) error {
	b := retry.WithMaxRetries(p.Retries, retry.WithCappedDuration(p.Max, retry.NewExponential(p.Base)))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		if err := handler(ctx, e); err != nil {
			slog.WarnContext(ctx, "Event handler failed, will retry", "type", e.Type, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	c := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
		retry:        DefaultRetryPolicy(),
	}
	if err := c.setup(); err != nil {
		c.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	return c, nil
}

func (c *Client) setup() error {
	if err := c.channel.ExchangeDeclare(c.exchangeName, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := c.channel.QueueDeclare(c.queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	// routing key == queue name for the direct exchange
	if err := c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

func (c *Client) Publish(ctx context.Context, e Event) error {
	body, err := e.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.channel.PublishWithContext(ctx, c.exchangeName, c.queueName, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    e.Timestamp,
		Type:         string(e.Type),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	slog.InfoContext(ctx, "Published event", "type", e.Type, "household_id", e.HouseholdID, "exchange", c.exchangeName)
	return nil
}

// Consume runs handler for each event until ctx is done. Malformed messages
// are dropped. A failing handler is retried with backoff; after the last
// retry the message is rejected without requeue, so it goes to the queue's
// dead-letter exchange if one is configured.
func (c *Client) Consume(ctx context.Context, handler func(context.Context, Event) error) error {
	msgs, err := c.channel.Consume(c.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	slog.InfoContext(ctx, "Started consuming events", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping event consumption", "reason", ctx.Err())
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			e, err := FromJSON(d.Body)
			if err != nil {
				slog.ErrorContext(ctx, "Dropping malformed event", "error", err)
				_ = d.Nack(false, false)
				continue
			}
			if err := c.retry.handle(ctx, handler, e); err != nil {
				if ctx.Err() != nil {
					// остановка: вернуть сообщение в очередь
					_ = d.Nack(false, true)
					return ctx.Err()
				}
				slog.ErrorContext(ctx, "Giving up on event", "type", e.Type, "household_id", e.HouseholdID, "error", err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
