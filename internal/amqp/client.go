package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Circuit breaker states
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	maxAttempts    = 3
	maxBackoff     = 30 * time.Second
	publishTimeout = 5 * time.Second
)

type (
	brokerConnection interface {
		Close() error
	}

	brokerChannel interface {
		PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
		IsClosed() bool
		Close() error
	}

	// dialFunc opens a connection and a channel ready for publishing.
	dialFunc func() (brokerConnection, brokerChannel, error)
)

// Client publishes missed-transfer events on a direct exchange. It redials
// on connection errors and stops trying for a while after repeated failures.
// It is safe for concurrent use.
type Client struct {
	url          string
	exchangeName string
	queueName    string
	dial         dialFunc

	// reconnectMu serializes redials; mu guards conn and channel.
	reconnectMu sync.Mutex
	mu          sync.Mutex
	conn        brokerConnection
	channel     brokerChannel

	state        int32
	failureCount int64
	lastFailure  time.Time
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	client := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
	}
	client.dial = client.dialBroker

	if err := client.connect(); err != nil {
		return nil, err
	}
	return client, nil
}

func (c *Client) dialBroker() (brokerConnection, brokerChannel, error) {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}

	if err := c.setup(channel); err != nil {
		channel.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	return conn, channel, nil
}

// connect dials and installs a fresh connection, closing the one it replaces.
func (c *Client) connect() error {
	if c.dial == nil {
		return errors.New("dial AMQP: no dialer configured")
	}
	conn, channel, err := c.dial()
	if err != nil {
		return err
	}

	c.mu.Lock()
	oldConn, oldChannel := c.conn, c.channel
	c.conn, c.channel = conn, channel
	c.mu.Unlock()

	if oldChannel != nil {
		oldChannel.Close()
	}
	if oldConn != nil {
		oldConn.Close()
	}
	return nil
}

func (c *Client) setup(channel *amqp091.Channel) error {
	err := channel.ExchangeDeclare(
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

	_, err = channel.QueueDeclare(
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

	// Routing key equals the queue name on a direct exchange.
	if err := channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// PublishMissedTransfer publishes msg, retrying with backoff on connection
// errors.
func (c *Client) PublishMissedTransfer(ctx context.Context, msg *MissedTransferMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return fmt.Errorf("publish missed transfer %s: circuit breaker is open", msg.DedupKey())
	}

	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	var (
		lastErr error
		used    brokerChannel
	)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(exponentialBackoff(attempt - 1)):
			}
			if err := c.reconnect(used); err != nil {
				c.recordFailure()
				lastErr = err
				continue
			}
		}

		used, lastErr = c.publish(ctx, msg.MessageID, body)
		if lastErr == nil {
			c.recordSuccess()
			slog.InfoContext(ctx, "Published missed transfer message",
				"component", "amqp",
				"schedule_id", msg.ScheduleID,
				"occurrence_date", msg.OccurrenceDate.Format("2006-01-02"),
				"message_id", msg.MessageID,
				"exchange", c.exchangeName,
				"queue", c.queueName)
			return nil
		}

		c.recordFailure()
		if !isConnectionError(lastErr) {
			break
		}
		slog.WarnContext(ctx, "AMQP publish failed, retrying",
			"component", "amqp", "attempt", attempt+1, "error", lastErr)
	}
	return fmt.Errorf("publish missed transfer %s: %w", msg.DedupKey(), lastErr)
}

// publish sends body on the current channel and returns that channel so a
// failed attempt can tell reconnect which channel went bad.
func (c *Client) publish(ctx context.Context, messageID string, body []byte) (brokerChannel, error) {
	c.mu.Lock()
	channel := c.channel
	c.mu.Unlock()
	if channel == nil || channel.IsClosed() {
		return channel, amqp091.ErrClosed
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return channel, channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    messageID,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// reconnect redials unless another caller already replaced failed with a
// channel that is still open.
func (c *Client) reconnect(failed brokerChannel) error {
	c.reconnectMu.Lock()
	defer c.reconnectMu.Unlock()

	c.mu.Lock()
	current := c.channel
	c.mu.Unlock()
	if current != nil && current != failed && !current.IsClosed() {
		return nil
	}
	return c.connect()
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.mu.Lock()
	last := c.lastFailure
	c.mu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	failures := atomic.AddInt64(&c.failureCount, 1)
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()
	if failures >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

// exponentialBackoff returns 1s, 2s, 4s... capped at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"connection", "eof", "broken pipe"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
