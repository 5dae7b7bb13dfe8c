package directory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fracto-health/fracto/libs/kafkax"
	"github.com/fracto-health/fracto/services/booking-service/internal/model"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher emits doctor events. It backs the directory publish command used
// to seed or correct the directory.
type Publisher struct {
	writer MessageWriter
	newID  func() string
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return newPublisher(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	})
}

func newPublisher(w MessageWriter) *Publisher {
	return &Publisher{writer: w, newID: uuid.NewString}
}

// PublishDoctor writes an upsert event for d keyed by the doctor id.
func (p *Publisher) PublishDoctor(ctx context.Context, d model.Doctor) (string, error) {
	e := FromDoctor(d)
	if _, err := e.Doctor(); err != nil {
		return "", err
	}
	value, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("encode doctor event: %w", err)
	}
	eventID := p.newID()
	headers := kafkax.EventMeta{EventID: eventID, EventType: EventTypeDoctorUpserted}.Headers()
	msg := kafka.Message{
		Key:     []byte(d.ID),
		Value:   value,
		Headers: kafkax.InjectTraceHeaders(ctx, headers),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return "", fmt.Errorf("publish doctor %q: %w", d.ID, err)
	}
	return eventID, nil
}

func (p *Publisher) Close() error { return p.writer.Close() }
