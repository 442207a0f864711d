package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"netcost/internal/core"
)

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
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

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	// Declare exchange
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	// Declare queue
	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Bind queue to exchange
	err = c.channel.QueueBind(
		c.queueName,    // queue name
		c.queueName,    // routing key (same as queue name for direct exchange)
		c.exchangeName, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishCircuitUpsert publishes a circuit upsert event.
func (c *Client) PublishCircuitUpsert(ctx context.Context, circuit core.Circuit) error {
	msg := CircuitUpsertMessage{
		CircuitID:        circuit.ID,
		LocationID:       circuit.LocationID,
		ProposalID:       circuit.ProposalID,
		Set:              circuit.Set.String(),
		Type:             circuit.Type,
		MonthlyCostCents: circuit.MonthlyCost.Cents,
		ContractStart:    circuit.ContractStart.String(),
		ContractEnd:      circuit.ContractEnd.String(),
	}
	return c.publish(ctx, KindCircuitUpsert, msg, "circuit_id", circuit.ID)
}

// PublishCircuitDelete publishes a circuit delete event.
func (c *Client) PublishCircuitDelete(ctx context.Context, circuitID string) error {
	return c.publish(ctx, KindCircuitDelete, CircuitDeleteMessage{CircuitID: circuitID},
		"circuit_id", circuitID)
}

func (c *Client) publish(ctx context.Context, kind string, payload any, logAttrs ...any) error {
	env, err := NewEnvelope(kind, payload)
	if err != nil {
		return err
	}
	body, err := env.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	slog.InfoContext(ctx, "Published circuit event",
		append([]any{"kind", kind, "exchange", c.exchangeName, "queue", c.queueName}, logAttrs...)...)

	return nil
}

// ConsumeCircuitEvents consumes circuit events and dispatches them by kind.
// Handlers return an error to nack-and-requeue; malformed envelopes are
// rejected without requeue.
func (c *Client) ConsumeCircuitEvents(ctx context.Context,
	upsertHandler func(context.Context, *CircuitUpsertMessage) error,
	deleteHandler func(context.Context, *CircuitDeleteMessage) error) error {

	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming circuit events", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			env, err := EnvelopeFromJSON(delivery.Body)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to unmarshal envelope", "error", err)
				delivery.Nack(false, false) // reject and don't requeue
				continue
			}

			if err := c.dispatch(ctx, env, upsertHandler, deleteHandler); err != nil {
				slog.ErrorContext(ctx, "Failed to handle circuit event",
					"error", err, "kind", env.Kind)
				requeue := !isPermanentError(err)
				delivery.Nack(false, requeue)
				continue
			}

			delivery.Ack(false)
			slog.DebugContext(ctx, "Processed circuit event", "kind", env.Kind)
		}
	}
}

func (c *Client) dispatch(ctx context.Context, env *Envelope,
	upsertHandler func(context.Context, *CircuitUpsertMessage) error,
	deleteHandler func(context.Context, *CircuitDeleteMessage) error) error {

	switch env.Kind {
	case KindCircuitUpsert:
		msg, err := env.DecodeUpsert()
		if err != nil {
			return permanentError{err}
		}
		return upsertHandler(ctx, msg)
	case KindCircuitDelete:
		msg, err := env.DecodeDelete()
		if err != nil {
			return permanentError{err}
		}
		return deleteHandler(ctx, msg)
	default:
		return permanentError{fmt.Errorf("unknown event kind: %s", env.Kind)}
	}
}

// permanentError marks failures that redelivery cannot fix, so the message is
// dropped instead of requeued.
type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

func isPermanentError(err error) bool {
	_, ok := err.(permanentError)
	return ok
}

// exponentialBackoff returns the wait before reconnect attempt n, doubling
// from one second and capped at 30 seconds.
func exponentialBackoff(attempt int) time.Duration {
	d := time.Second << uint(attempt)
	if d > 30*time.Second || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// isConnectionError reports whether an error looks like a broken AMQP
// connection worth a reconnect.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"connection refused", "connection closed", "connection reset", "eof", "broken pipe"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// ConsumeWithReconnect runs ConsumeCircuitEvents and re-dials on connection
// failures with exponential backoff, until the context is cancelled.
func ConsumeWithReconnect(ctx context.Context, url, exchange, queue string,
	upsertHandler func(context.Context, *CircuitUpsertMessage) error,
	deleteHandler func(context.Context, *CircuitDeleteMessage) error) error {

	attempt := 0
	for {
		client, err := NewClient(url, exchange, queue)
		if err == nil {
			attempt = 0
			err = client.ConsumeCircuitEvents(ctx, upsertHandler, deleteHandler)
			client.Close()
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil && !isConnectionError(err) && err != context.Canceled {
			slog.ErrorContext(ctx, "Consume failed with non-connection error", "error", err)
		}

		wait := exponentialBackoff(attempt)
		attempt++
		slog.WarnContext(ctx, "Reconnecting to AMQP", "attempt", attempt, "wait", wait, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
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
