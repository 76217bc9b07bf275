package fulfillment

import (
	"context"
	"errors"
	"log"
	"time"

	kafkax "github.com/adisurya/moto-store/internal/kafka"
	"github.com/adisurya/moto-store/internal/orders"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

// OrderCompleter is the slice of the orders repo this worker needs.
type OrderCompleter interface {
	CompleteOrder(ctx context.Context, orderID string) error
}

type Cache interface {
	SeenEvent(ctx context.Context, eventID string) bool
	MarkEvent(ctx context.Context, eventID string)
	InvalidateOrder(ctx context.Context, orderID string)
}

type Publisher interface {
	Publish(topic string, key, value []byte, headers ...kafkago.Header)
}

// Service owns the pending -> completed transition. It consumes
// order.placed, completes the order and publishes order.completed.
// Stock is never touched here, placement already consumed it.
type Service struct {
	Repo        OrderCompleter
	Cache       Cache
	Producer    Publisher // publish order.completed
	ServiceName string
}

func (s *Service) HandleOrderPlaced(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := kafkax.UnmarshalEnvelope(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventOrderPlaced {
		return nil
	}

	if s.Cache.SeenEvent(ctx, env.EventID) {
		return nil
	}

	p, err := kafkax.UnwrapPayload[orders.OrderPlacedPayload](env.Payload)
	if err != nil {
		return err
	}

	if err := s.Repo.CompleteOrder(ctx, p.OrderID); err != nil {
		var illegal orders.IllegalTransitionError
		switch {
		case errors.As(err, &illegal):
			// already completed or cancelled, redelivery is fine
			return nil
		case errors.Is(err, orders.ErrOrderNotFound):
			log.Printf("order.placed for unknown order %s, skipping", p.OrderID)
			return nil
		default:
			return err
		}
	}

	// mark only after the transition stuck, a failed attempt may be redelivered
	s.Cache.MarkEvent(ctx, env.EventID)
	s.Cache.InvalidateOrder(ctx, p.OrderID)
	s.publishCompleted(p.OrderID, env.TraceID)
	return nil
}

func (s *Service) publishCompleted(orderID, trace string) {
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderCompleted,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		TraceID:       trace,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(orders.OrderCompletedPayload{OrderID: orderID}),
	}
	s.Producer.Publish(orders.TopicOrderCompleted, orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderCompleted)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
