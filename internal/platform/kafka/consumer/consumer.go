package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var consumed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "xs2acms_kafka_consumed_total",
	Help: "Records read from Kafka, by topic and outcome",
}, []string{"topic", "outcome"})

// Message is a record read from Kafka.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// Handler processes consumed messages. A non-nil error asks for the message
// to be handled again.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

type Config struct {
	Brokers         string
	GroupID         string
	Topics          []string
	AutoOffsetReset string
	// MaxAttempts bounds how often one message is handed to the handler.
	// Once exhausted the offset is committed and the message dropped.
	MaxAttempts  int
	RetryBackoff time.Duration
}

// Consumer reads with manual commits: an offset is committed only after the
// handler accepted the message or its attempts ran out.
type Consumer struct {
	consumer *kafka.Consumer
	handler  Handler
	logger   *slog.Logger
	cfg      Config

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

func New(cfg Config, handler Handler, logger *slog.Logger) (*Consumer, error) {
	if cfg.Brokers == "" {
		return nil, fmt.Errorf("kafka brokers not configured")
	}
	if cfg.GroupID == "" {
		return nil, fmt.Errorf("kafka consumer group ID not configured")
	}
	if len(cfg.Topics) == 0 {
		return nil, fmt.Errorf("kafka consumer topics not configured")
	}
	if handler == nil {
		return nil, fmt.Errorf("kafka consumer handler is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.AutoOffsetReset == "" {
		cfg.AutoOffsetReset = "earliest"
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 200 * time.Millisecond
	}

	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":  cfg.Brokers,
		"group.id":           cfg.GroupID,
		"auto.offset.reset":  cfg.AutoOffsetReset,
		"enable.auto.commit": false,
	})
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	if err := consumer.SubscribeTopics(cfg.Topics, nil); err != nil {
		consumer.Close() //nolint:errcheck // best-effort cleanup on init failure
		return nil, fmt.Errorf("subscribe to %v: %w", cfg.Topics, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Consumer{
		consumer: consumer,
		handler:  handler,
		logger:   logger,
		cfg:      cfg,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start runs the poll loop in the background until Stop.
func (c *Consumer) Start() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for c.ctx.Err() == nil {
			c.poll()
		}
	}()
}

func (c *Consumer) poll() {
	switch e := c.consumer.Poll(100).(type) {
	case *kafka.Message:
		c.handleMessage(e)
	case kafka.Error:
		if e.Code() != kafka.ErrTimedOut {
			c.logger.Error("kafka consumer error", "code", e.Code(), "error", e.Error())
		}
	}
}

func (c *Consumer) handleMessage(km *kafka.Message) {
	headers := make(map[string]string, len(km.Headers))
	for _, h := range km.Headers {
		headers[h.Key] = string(h.Value)
	}
	msg := &Message{
		Topic:     *km.TopicPartition.Topic,
		Partition: km.TopicPartition.Partition,
		Offset:    int64(km.TopicPartition.Offset),
		Key:       km.Key,
		Value:     km.Value,
		Headers:   headers,
		Timestamp: km.Timestamp,
	}

	outcome := "ok"
	if err := c.deliver(msg); err != nil {
		if c.ctx.Err() != nil {
			// Shutting down: leave the offset for the next member of the group.
			return
		}
		outcome = "dropped"
		c.logger.Error("dropping kafka message after retries",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
	}
	consumed.WithLabelValues(msg.Topic, outcome).Inc()

	if _, err := c.consumer.CommitMessage(km); err != nil {
		c.logger.Error("failed to commit offset",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
	}
}

// deliver hands msg to the handler until it succeeds, attempts run out or the
// consumer stops.
func (c *Consumer) deliver(msg *Message) error {
	var err error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if err = c.handler.Handle(c.ctx, msg); err == nil {
			return nil
		}
		c.logger.Warn("kafka message handling failed",
			"topic", msg.Topic,
			"offset", msg.Offset,
			"attempt", attempt,
			"error", err,
		)
		if attempt == c.cfg.MaxAttempts {
			break
		}
		select {
		case <-c.ctx.Done():
			return errors.Join(err, c.ctx.Err())
		case <-time.After(c.cfg.RetryBackoff * time.Duration(attempt)):
		}
	}
	return err
}

// Stop ends the poll loop and closes the consumer, waiting at most until ctx is done.
func (c *Consumer) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return c.consumer.Close()
	case <-ctx.Done():
		c.consumer.Close() //nolint:errcheck // already returning the timeout
		return ctx.Err()
	}
}

// Health reports whether the consumer holds partition assignments.
func (c *Consumer) Health(context.Context) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return fmt.Errorf("consumer is closed")
	}
	assignment, err := c.consumer.Assignment()
	if err != nil {
		return fmt.Errorf("read assignment: %w", err)
	}
	if len(assignment) == 0 {
		return fmt.Errorf("no partitions assigned")
	}
	return nil
}
