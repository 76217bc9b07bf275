package orders

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderPlaced    = "OrderPlaced"
	EventOrderCompleted = "OrderCompleted"
	EventOrderCancelled = "OrderCancelled"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

type LinePrice struct {
	MotorbikeID int64           `json:"motorbike_id"`
	Quantity    int             `json:"quantity"`
	PriceAtTime decimal.Decimal `json:"price_at_time"`
}

type OrderPlacedPayload struct {
	OrderID     string          `json:"order_id"`
	Lines       []LinePrice     `json:"lines"`
	TotalAmount decimal.Decimal `json:"total_amount"`

	// TotalMismatch marks a placement whose client-supplied total disagreed
	// with the computed one; downstream can route it to fraud review.
	TotalMismatch bool `json:"total_mismatch,omitempty"`
}

type OrderCompletedPayload struct {
	OrderID string `json:"order_id"`
}

type OrderCancelledPayload struct {
	OrderID   string     `json:"order_id"`
	Restocked []CartLine `json:"restocked,omitempty"`
}
