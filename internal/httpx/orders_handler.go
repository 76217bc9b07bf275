package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	kafkax "github.com/adisurya/moto-store/internal/kafka"
	"github.com/adisurya/moto-store/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

// OrderStore is the slice of the orders repo the boundary needs.
type OrderStore interface {
	PlaceOrder(ctx context.Context, lines []orders.CartLine, clientTotal *decimal.Decimal) (orders.PlacedOrder, error)
	CancelOrder(ctx context.Context, orderID string) ([]orders.CartLine, error)
	GetOrder(ctx context.Context, orderID string) (orders.OrderDetail, error)
	ListOrders(ctx context.Context) ([]orders.OrderSummary, error)
}

type OrderCache interface {
	GetOrder(ctx context.Context, orderID string) ([]byte, bool)
	SetOrder(ctx context.Context, orderID string, body []byte)
	InvalidateOrder(ctx context.Context, orderID string)
}

type Publisher interface {
	Publish(topic string, key, value []byte, headers ...kafkago.Header)
}

type OrdersHandler struct {
	Store    OrderStore
	Cache    OrderCache
	Producer Publisher
	Service  string
}

type CreateOrderReq struct {
	Items []orders.CartLine `json:"items"`

	// TotalAmount is what the client believes it is paying. Never trusted,
	// only compared against the server-computed total.
	TotalAmount *decimal.Decimal `json:"total_amount"`
}

type CreateOrderResp struct {
	OrderID     string          `json:"order_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

type errorResp struct {
	Code        string `json:"code"`
	Error       string `json:"error"`
	MotorbikeID int64  `json:"motorbike_id,omitempty"`
	Available   *int   `json:"available,omitempty"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/api/orders", h.createOrder)
	r.Get("/api/orders", h.listOrders)
	r.Get("/api/orders/{id}", h.getOrder)
	r.Post("/api/orders/{id}/cancel", h.cancelOrder)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp{Code: "invalid_json", Error: "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	placed, err := h.Store.PlaceOrder(ctx, req.Items, req.TotalAmount)
	if err != nil {
		writePlacementError(w, err)
		return
	}

	if placed.TotalMismatch {
		log.Printf("order %s: client total %s != computed total %s, flagged for review",
			placed.OrderID, req.TotalAmount, placed.TotalAmount)
	}

	h.publishPlaced(placed, r.Header.Get("X-Request-Id"))

	writeJSON(w, http.StatusCreated, CreateOrderResp{
		OrderID:     placed.OrderID,
		TotalAmount: placed.TotalAmount,
	})
}

func writePlacementError(w http.ResponseWriter, err error) {
	var (
		notFound     orders.ItemNotFoundError
		insufficient orders.InsufficientStockError
		invalidQty   orders.InvalidQuantityError
		storage      *orders.StorageError
	)
	switch {
	case errors.Is(err, orders.ErrEmptyCart):
		writeJSON(w, http.StatusBadRequest, errorResp{Code: "empty_cart", Error: err.Error()})
	case errors.As(err, &invalidQty):
		writeJSON(w, http.StatusBadRequest, errorResp{
			Code: "invalid_quantity", Error: err.Error(), MotorbikeID: invalidQty.MotorbikeID,
		})
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, errorResp{
			Code: "item_not_found", Error: err.Error(), MotorbikeID: notFound.MotorbikeID,
		})
	case errors.As(err, &insufficient):
		writeJSON(w, http.StatusBadRequest, errorResp{
			Code: "insufficient_stock", Error: err.Error(),
			MotorbikeID: insufficient.MotorbikeID, Available: &insufficient.Available,
		})
	case errors.As(err, &storage):
		code := "storage_unavailable"
		if storage.Ambiguous {
			code = "commit_outcome_unknown"
		}
		writeJSON(w, http.StatusServiceUnavailable, errorResp{Code: code, Error: "storage unavailable"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResp{Code: "internal", Error: "internal error"})
	}
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(orderID); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp{Code: "invalid_id", Error: "invalid order id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if b, ok := h.Cache.GetOrder(ctx, orderID); ok {
		writeJSON(w, http.StatusOK, json.RawMessage(b))
		return
	}

	detail, err := h.Store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			writeJSON(w, http.StatusNotFound, errorResp{Code: "order_not_found", Error: "Order not found"})
			return
		}
		writeJSON(w, http.StatusServiceUnavailable, errorResp{Code: "storage_unavailable", Error: "storage unavailable"})
		return
	}

	if b, err := json.Marshal(detail); err == nil {
		h.Cache.SetOrder(ctx, orderID, b)
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Store.ListOrders(ctx)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResp{Code: "storage_unavailable", Error: "storage unavailable"})
		return
	}
	if out == nil {
		out = []orders.OrderSummary{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(orderID); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp{Code: "invalid_id", Error: "invalid order id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	restocked, err := h.Store.CancelOrder(ctx, orderID)
	if err != nil {
		var illegal orders.IllegalTransitionError
		switch {
		case errors.Is(err, orders.ErrOrderNotFound):
			writeJSON(w, http.StatusNotFound, errorResp{Code: "order_not_found", Error: "Order not found"})
		case errors.As(err, &illegal):
			writeJSON(w, http.StatusConflict, errorResp{Code: "not_cancellable", Error: err.Error()})
		default:
			writeJSON(w, http.StatusServiceUnavailable, errorResp{Code: "storage_unavailable", Error: "storage unavailable"})
		}
		return
	}

	h.Cache.InvalidateOrder(ctx, orderID)
	h.publishCancelled(orderID, restocked, r.Header.Get("X-Request-Id"))

	writeJSON(w, http.StatusOK, map[string]string{"order_id": orderID, "status": string(orders.StatusCancelled)})
}

func (h *OrdersHandler) publishPlaced(placed orders.PlacedOrder, trace string) {
	lines := make([]orders.LinePrice, 0, len(placed.Lines))
	for _, l := range placed.Lines {
		lines = append(lines, orders.LinePrice{
			MotorbikeID: l.MotorbikeID,
			Quantity:    l.Quantity,
			PriceAtTime: l.PriceAtTime,
		})
	}

	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderPlaced,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       trace,
		CorrelationID: placed.OrderID,
		Payload: kafkax.MustMarshal(orders.OrderPlacedPayload{
			OrderID:       placed.OrderID,
			Lines:         lines,
			TotalAmount:   placed.TotalAmount,
			TotalMismatch: placed.TotalMismatch,
		}),
	}
	h.Producer.Publish(orders.TopicOrderPlaced, orders.PartitionKey(placed.OrderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderPlaced)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *OrdersHandler) publishCancelled(orderID string, restocked []orders.CartLine, trace string) {
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderCancelled,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       trace,
		CorrelationID: orderID,
		Payload: kafkax.MustMarshal(orders.OrderCancelledPayload{
			OrderID:   orderID,
			Restocked: restocked,
		}),
	}
	h.Producer.Publish(orders.TopicOrderCancelled, orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderCancelled)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
