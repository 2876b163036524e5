package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/Freeeeeet/venue_booking/internal/model"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer used for publishing.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// BookingEvent is the JSON payload published for every notification.
type BookingEvent struct {
	Kind            model.NotificationKind `json:"kind"`
	BookingID       int64                  `json:"booking_id"`
	ReferenceCode   string                 `json:"reference_code"`
	VenueID         int64                  `json:"venue_id"`
	RequesterID     int64                  `json:"requester_id"`
	RecipientID     int64                  `json:"recipient_id"`
	Status          model.BookingStatus    `json:"status"`
	StartTime       time.Time              `json:"start_time"`
	EndTime         time.Time              `json:"end_time"`
	RejectionReason string                 `json:"rejection_reason,omitempty"`
	TotalCostCents  *int64                 `json:"total_cost_cents,omitempty"`
	OccurredAt      time.Time              `json:"occurred_at"`
}

// Kafka publishes notifications to a topic keyed by booking id, so all
// events of one booking land on the same partition in order.
type Kafka struct {
	writer MessageWriter
	now    func() time.Time
}

func NewKafka(writer MessageWriter) *Kafka {
	return &Kafka{writer: writer, now: time.Now}
}

// KafkaBatchTimeout bounds how long a synchronous WriteMessages waits for a
// batch to fill. Events are written one at a time after each transition.
const KafkaBatchTimeout = 10 * time.Millisecond

// NewKafkaWriter builds the writer used in production.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           KafkaBatchTimeout,
		AllowAutoTopicCreation: true,
	}
}

func (k *Kafka) Notify(ctx context.Context, n model.Notification) error {
	b := n.Booking
	event := BookingEvent{
		Kind:            n.Kind,
		BookingID:       b.ID,
		ReferenceCode:   b.ReferenceCode,
		VenueID:         b.VenueID,
		RequesterID:     b.RequesterID,
		Status:          b.Status,
		StartTime:       b.StartTime,
		EndTime:         b.EndTime,
		RejectionReason: b.RejectionReason,
		TotalCostCents:  b.TotalCostCents,
		OccurredAt:      k.now().UTC(),
	}
	if n.Recipient != nil {
		event.RecipientID = n.Recipient.ID
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal booking event: %w", err)
	}

	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(b.ID, 10)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(n.Kind)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish %s for booking %d: %w", n.Kind, b.ID, err)
	}
	return nil
}
