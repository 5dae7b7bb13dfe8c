package directory

import (
	"context"
	"errors"
	"time"

	"github.com/fracto-health/fracto/libs/kafkax"
	otelx "github.com/fracto-health/fracto/libs/otel"
	"github.com/fracto-health/fracto/services/booking-service/internal/apperr"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Handler applies one event. It reports false when the event id had already
// been applied.
type Handler func(ctx context.Context, meta kafkax.EventMeta, msg kafka.Message) (bool, error)

type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader  MessageReader
	logger  *zap.Logger
	handler Handler
	backoff time.Duration
}

type Config struct {
	Brokers []string
	GroupID string
	Topic   string
}

func NewConsumer(logger *zap.Logger, cfg Config, handler Handler) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return newConsumer(reader, logger, handler)
}

func newConsumer(reader MessageReader, logger *zap.Logger, handler Handler) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{reader: reader, logger: logger, handler: handler, backoff: time.Second}
}

// Run consumes until ctx is done. An offset is committed only once its
// message was applied, found to be a duplicate, or rejected as invalid;
// other failures are retried.
func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka fetch error", zap.Error(err))
			if !c.wait(ctx) {
				return
			}
			continue
		}
		if !c.apply(ctx, msg) {
			return
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka commit error", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
	}
}

// apply retries msg until it is settled. It returns false when ctx ends first.
func (c *Consumer) apply(ctx context.Context, msg kafka.Message) bool {
	for {
		err := c.process(ctx, msg)
		if err == nil || errors.Is(err, apperr.ErrValidation) {
			return true
		}
		if !c.wait(ctx) {
			return false
		}
	}
}

func (c *Consumer) wait(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(c.backoff):
		return true
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) error {
	meta := kafkax.ExtractEventMeta(msg)
	ctxSpan, span := otelx.Start(kafkax.ExtractTraceContext(ctx, msg), "kafka", "kafka.consume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
			attribute.String("messaging.message_id", meta.EventID),
		),
	)

	log := c.logger.With(zap.String("event_id", meta.EventID), zap.String("event_type", meta.EventType))

	applied, err := c.handler(ctxSpan, meta, msg)
	switch {
	case errors.Is(err, apperr.ErrValidation):
		log.Warn("invalid event dropped", zap.Error(err))
	case err != nil:
		log.Error("handler error", zap.Error(err))
	case !applied:
		log.Info("duplicate event ignored")
	}
	otelx.End(span, err)
	return err
}
