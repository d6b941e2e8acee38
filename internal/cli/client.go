package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Foreman/internal/mq"
)

// ErrJobFailed — задание завершилось work fail.
var ErrJobFailed = errors.New("job failed")

// JobEvent — результат work.*, полученный клиентом.
type JobEvent struct {
	Type    mq.MessageType       `json:"type"`
	Payload mq.WorkResultPayload `json:"payload"`
}

// Broker — операции CLI над брокером. Реализуется Client.
type Broker interface {
	Submit(ctx context.Context, function, unique string, data []byte) (string, error)
	SubmitAndWait(ctx context.Context, function, unique string, data []byte, onEvent func(JobEvent)) (string, error)
	DeclareTopology(ctx context.Context) error
	Close() error
}

// Client — подключение CLI к RabbitMQ. Подключается лениво при первой операции.
type Client struct {
	url    string
	logger *slog.Logger

	mu   sync.Mutex
	conn *mq.Connection
}

var _ Broker = (*Client)(nil)

// NewClient создаёт клиента для брокера по URL.
func NewClient(url string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{url: url, logger: logger}
}

func (c *Client) connection(ctx context.Context) (*mq.Connection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		c.conn = mq.NewConnection(c.url, c.logger)
	}
	if !c.conn.IsConnected() {
		if err := c.conn.Connect(ctx); err != nil {
			return nil, err
		}
	}
	return c.conn, nil
}

// Submit публикует задание и возвращает его handle.
func (c *Client) Submit(ctx context.Context, function, unique string, data []byte) (string, error) {
	conn, err := c.connection(ctx)
	if err != nil {
		return "", err
	}

	if err := mq.SetupTopology(ctx, conn); err != nil {
		return "", err
	}
	return mq.NewPublisher(conn, c.logger).SubmitJob(ctx, function, unique, data)
}

// SubmitAndWait публикует задание и ждёт work complete или work fail.
//
// Очередь результатов объявляется до публикации, поэтому быстрый
// результат не теряется. Промежуточные события (status, data, warning,
// exception) передаются в onEvent. work fail возвращает ErrJobFailed.
func (c *Client) SubmitAndWait(ctx context.Context, function, unique string, data []byte, onEvent func(JobEvent)) (string, error) {
	conn, err := c.connection(ctx)
	if err != nil {
		return "", err
	}

	if err := mq.SetupTopology(ctx, conn); err != nil {
		return "", err
	}

	var handle string
	err = conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		// Временная эксклюзивная очередь результатов функции
		q, err := ch.QueueDeclare("", false, true, true, false, nil)
		if err != nil {
			return fmt.Errorf("declare result queue: %w", err)
		}
		if err := ch.QueueBind(q.Name, string(mq.ResultPattern(function)), string(mq.ExchangeResults), false, nil); err != nil {
			return fmt.Errorf("bind result queue: %w", err)
		}

		deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
		if err != nil {
			return fmt.Errorf("consume results: %w", err)
		}

		handle, err = mq.NewPublisher(conn, c.logger).SubmitJob(ctx, function, unique, data)
		if err != nil {
			return err
		}

		return waitResult(ctx, deliveries, handle, onEvent)
	})
	return handle, err
}

// waitResult читает результаты до завершения задания handle.
func waitResult(ctx context.Context, deliveries <-chan amqp.Delivery, handle string, onEvent func(JobEvent)) error {
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for %s: %w", handle, ctx.Err())
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("wait for %s: result stream closed", handle)
			}

			event, ok := decodeEvent(d.Body, handle)
			if !ok {
				continue
			}
			if onEvent != nil {
				onEvent(event)
			}

			switch event.Type {
			case mq.MessageTypeWorkComplete:
				return nil
			case mq.MessageTypeWorkFail:
				return fmt.Errorf("%w: %s", ErrJobFailed, handle)
			}
		}
	}
}

// decodeEvent разбирает результат и отбрасывает чужие задания.
func decodeEvent(body []byte, handle string) (JobEvent, bool) {
	msg, err := mq.DecodeMessage(body)
	if err != nil {
		return JobEvent{}, false
	}
	payload, err := mq.ParsePayload[mq.WorkResultPayload](msg)
	if err != nil || payload.Handle != handle {
		return JobEvent{}, false
	}
	return JobEvent{Type: msg.Type, Payload: payload}, true
}

// DeclareTopology объявляет exchanges и общие очереди.
func (c *Client) DeclareTopology(ctx context.Context) error {
	conn, err := c.connection(ctx)
	if err != nil {
		return err
	}
	return mq.SetupTopology(ctx, conn)
}

// Close закрывает соединение, если оно было открыто.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
