package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/example/roombooking/internal/application"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher emits notifications as booking events keyed by booking ID so
// every event of one booking lands on the same partition.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	now    func() time.Time
}

type bookingEvent struct {
	Event      string    `json:"event"`
	BookingID  string    `json:"booking_id"`
	To         string    `json:"to"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewKafkaPublisher returns a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(writer, topic, time.Now)
}

func newKafkaPublisher(writer messageWriter, topic string, now func() time.Time) *KafkaPublisher {
	if topic == "" {
		topic = application.EventBookingConfirmed
	}
	if now == nil {
		now = time.Now
	}
	return &KafkaPublisher{writer: writer, topic: topic, now: now}
}

// Notify implements application.Notifier.
func (p *KafkaPublisher) Notify(ctx context.Context, n application.Notification) error {
	event := n.Event
	if event == "" {
		event = application.EventBookingConfirmed
	}
	occurred := p.now().UTC()
	payload, err := json.Marshal(bookingEvent{
		Event:      event,
		BookingID:  n.BookingID,
		To:         n.To,
		Subject:    n.Subject,
		Body:       n.Body,
		OccurredAt: occurred,
	})
	if err != nil {
		return fmt.Errorf("encode booking event: %w", err)
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(n.BookingID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(n.BookingID + ":" + event)},
			{Key: "event_type", Value: []byte(event)},
		},
		Time: occurred,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish booking event: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// HeaderValue returns the value of the named header, or "".
func HeaderValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
