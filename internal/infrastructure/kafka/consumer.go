package kafka

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/routeledger/backend/domain"
	"github.com/routeledger/backend/internal/config"
)

// Handler processes one broker message. A domain error with code INVALID
// tells the consumer the message can never succeed and must be discarded;
// any other error requests redelivery.
type Handler interface {
	Handle(ctx context.Context, eventType string, payload []byte) error
}

// Consumer is the long-running worker subscribed to catalog lifecycle
// events. One consuming session handles messages sequentially, which bounds
// throughput but preserves per-partition delivery order.
type Consumer struct {
	consumerGroup sarama.ConsumerGroup
	handler       Handler
	logger        *zap.Logger
	topics        []string
	maxRetries    int
	retryBackoff  time.Duration
}

// NewConsumer creates a Kafka consumer group subscribed to the products topic.
func NewConsumer(cfg config.KafkaConfig, handler Handler, logger *zap.Logger) (*Consumer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	saramaConfig := sarama.NewConfig()
	saramaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.Net.DialTimeout = 10 * time.Second
	saramaConfig.Net.ReadTimeout = 10 * time.Second
	saramaConfig.Net.WriteTimeout = 10 * time.Second

	consumerGroup, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	logger.Info("kafka consumer group created",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("group_id", cfg.GroupID),
		zap.String("topic", cfg.TopicProducts),
	)

	return &Consumer{
		consumerGroup: consumerGroup,
		handler:       handler,
		logger:        logger,
		topics:        []string{cfg.TopicProducts},
		maxRetries:    cfg.MaxRetries,
		retryBackoff:  cfg.RetryBackoff,
	}, nil
}

// Start blocks consuming messages until the context is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	handler := &groupHandler{
		handler:      c.handler,
		logger:       c.logger,
		maxRetries:   c.maxRetries,
		retryBackoff: c.retryBackoff,
	}

	wg := &sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			if err := c.consumerGroup.Consume(ctx, c.topics, handler); err != nil {
				c.logger.Error("consumer session ended with error", zap.Error(err))
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	go func() {
		for err := range c.consumerGroup.Errors() {
			c.logger.Error("consumer error", zap.Error(err))
		}
	}()

	c.logger.Info("kafka consumer started", zap.Strings("topics", c.topics))
	wg.Wait()
	return nil
}

// Close closes the consumer group.
func (c *Consumer) Close() error {
	return c.consumerGroup.Close()
}

type groupHandler struct {
	handler      Handler
	logger       *zap.Logger
	maxRetries   int
	retryBackoff time.Duration
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim processes messages one at a time. A message is marked only
// after the ledger write succeeds; validation failures are marked and
// discarded since redelivering a malformed message can never succeed, and
// every other failure aborts the session so the broker redelivers.
func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}

			eventType := extractEventType(message.Headers)
			if eventType == "" {
				h.logger.Warn("message without event type, skipping",
					zap.String("topic", message.Topic),
					zap.Int32("partition", message.Partition),
					zap.Int64("offset", message.Offset),
				)
				session.MarkMessage(message, "")
				continue
			}

			if err := h.processWithRetry(session.Context(), eventType, message.Value); err != nil {
				if domain.IsDomainError(err, domain.ErrCodeInvalid) {
					h.logger.Warn("discarding malformed message",
						zap.String("event_type", eventType),
						zap.Int64("offset", message.Offset),
						zap.Error(err),
					)
					session.MarkMessage(message, "")
					continue
				}
				h.logger.Error("message processing failed, requesting redelivery",
					zap.String("event_type", eventType),
					zap.Int64("offset", message.Offset),
					zap.Error(err),
				)
				return err
			}

			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

func (h *groupHandler) processWithRetry(ctx context.Context, eventType string, payload []byte) error {
	var lastErr error
	for attempt := 0; attempt <= h.maxRetries; attempt++ {
		if attempt > 0 {
			delay := h.retryBackoff * time.Duration(attempt)
			h.logger.Info("retrying event processing",
				zap.String("event_type", eventType),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := h.handler.Handle(ctx, eventType, payload)
		if err == nil {
			return nil
		}
		if domain.IsDomainError(err, domain.ErrCodeInvalid) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("failed after %d attempts: %w", h.maxRetries+1, lastErr)
}

func extractEventType(headers []*sarama.RecordHeader) string {
	for _, header := range headers {
		if string(header.Key) == HeaderEventType {
			return string(header.Value)
		}
	}
	return ""
}
