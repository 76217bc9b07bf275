package httpx_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/adisurya/moto-store/internal/httpx"
	kafkax "github.com/adisurya/moto-store/internal/kafka"
	"github.com/adisurya/moto-store/internal/orders"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	placed    orders.PlacedOrder
	placeErr  error
	restocked []orders.CartLine
	cancelErr error
	detail    orders.OrderDetail
	getErr    error
	summaries []orders.OrderSummary
	listErr   error

	placeCalls int
	getCalls   int
}

func (s *stubStore) PlaceOrder(_ context.Context, _ []orders.CartLine, _ *decimal.Decimal) (orders.PlacedOrder, error) {
	s.placeCalls++
	return s.placed, s.placeErr
}

func (s *stubStore) CancelOrder(_ context.Context, _ string) ([]orders.CartLine, error) {
	return s.restocked, s.cancelErr
}

func (s *stubStore) GetOrder(_ context.Context, _ string) (orders.OrderDetail, error) {
	s.getCalls++
	return s.detail, s.getErr
}

func (s *stubStore) ListOrders(_ context.Context) ([]orders.OrderSummary, error) {
	return s.summaries, s.listErr
}

type stubCache struct {
	entries     map[string][]byte
	invalidated []string
}

func newStubCache() *stubCache { return &stubCache{entries: map[string][]byte{}} }

func (c *stubCache) GetOrder(_ context.Context, orderID string) ([]byte, bool) {
	b, ok := c.entries[orderID]
	return b, ok
}

func (c *stubCache) SetOrder(_ context.Context, orderID string, body []byte) {
	c.entries[orderID] = body
}

func (c *stubCache) InvalidateOrder(_ context.Context, orderID string) {
	delete(c.entries, orderID)
	c.invalidated = append(c.invalidated, orderID)
}

type stubProducer struct {
	messages []kafkago.Message
}

func (p *stubProducer) Publish(topic string, key, value []byte, headers ...kafkago.Header) {
	p.messages = append(p.messages, kafkago.Message{Topic: topic, Key: key, Value: value, Headers: headers})
}

func newServer(store *stubStore) (*httptest.Server, *stubCache, *stubProducer) {
	cache := newStubCache()
	producer := &stubProducer{}
	router := httpx.NewRouter()
	h := &httpx.OrdersHandler{Store: store, Cache: cache, Producer: producer, Service: "moto-api-test"}
	h.Register(router)
	return httptest.NewServer(router), cache, producer
}

func TestCreateOrder(t *testing.T) {
	placed := orders.PlacedOrder{
		OrderID:     uuid.NewString(),
		TotalAmount: decimal.NewFromInt(2000),
		Lines: []orders.OrderLine{
			{MotorbikeID: 1, Quantity: 2, PriceAtTime: decimal.NewFromInt(1000)},
		},
	}

	tests := []struct {
		name       string
		body       string
		store      *stubStore
		wantStatus int
		wantCode   string
	}{
		{
			name:       "created",
			body:       `{"items":[{"motorbike_id":1,"quantity":2}],"total_amount":2000}`,
			store:      &stubStore{placed: placed},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "invalid json",
			body:       `{"items":`,
			store:      &stubStore{},
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_json",
		},
		{
			name:       "empty cart",
			body:       `{"items":[]}`,
			store:      &stubStore{placeErr: orders.ErrEmptyCart},
			wantStatus: http.StatusBadRequest,
			wantCode:   "empty_cart",
		},
		{
			name:       "invalid quantity",
			body:       `{"items":[{"motorbike_id":1,"quantity":0}]}`,
			store:      &stubStore{placeErr: orders.InvalidQuantityError{MotorbikeID: 1, Quantity: 0}},
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_quantity",
		},
		{
			name:       "item not found",
			body:       `{"items":[{"motorbike_id":42,"quantity":1}]}`,
			store:      &stubStore{placeErr: orders.ItemNotFoundError{MotorbikeID: 42}},
			wantStatus: http.StatusNotFound,
			wantCode:   "item_not_found",
		},
		{
			name:       "insufficient stock",
			body:       `{"items":[{"motorbike_id":1,"quantity":10}]}`,
			store:      &stubStore{placeErr: orders.InsufficientStockError{MotorbikeID: 1, Requested: 10, Available: 5}},
			wantStatus: http.StatusBadRequest,
			wantCode:   "insufficient_stock",
		},
		{
			name:       "storage unavailable",
			body:       `{"items":[{"motorbike_id":1,"quantity":1}]}`,
			store:      &stubStore{placeErr: &orders.StorageError{Err: context.DeadlineExceeded}},
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "storage_unavailable",
		},
		{
			name:       "ambiguous commit",
			body:       `{"items":[{"motorbike_id":1,"quantity":1}]}`,
			store:      &stubStore{placeErr: &orders.StorageError{Ambiguous: true, Err: context.DeadlineExceeded}},
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "commit_outcome_unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, producer := newServer(tt.store)
			defer srv.Close()

			resp, err := http.Post(srv.URL+"/api/orders", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantStatus == http.StatusCreated {
				var got httpx.CreateOrderResp
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
				assert.Equal(t, placed.OrderID, got.OrderID)
				assert.True(t, placed.TotalAmount.Equal(got.TotalAmount))

				// a successful placement publishes exactly one order.placed event
				require.Len(t, producer.messages, 1)
				assert.Equal(t, orders.TopicOrderPlaced, producer.messages[0].Topic)
				var env orders.Envelope
				require.NoError(t, kafkax.UnmarshalEnvelope(producer.messages[0].Value, &env))
				assert.Equal(t, orders.EventOrderPlaced, env.EventType)
				assert.Equal(t, placed.OrderID, env.CorrelationID)
				return
			}

			var got map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
			assert.Equal(t, tt.wantCode, got["code"])
			assert.Empty(t, producer.messages)
		})
	}
}

func TestGetOrder(t *testing.T) {
	orderID := uuid.NewString()
	detail := orders.OrderDetail{
		Order: orders.Order{ID: orderID, TotalAmount: decimal.NewFromInt(500), Status: orders.StatusPending},
		Lines: []orders.LineDetail{
			{MotorbikeID: 7, Brand: "Honda", Model: "CB500F", Quantity: 1, PriceAtTime: decimal.NewFromInt(500)},
		},
	}

	t.Run("miss populates cache", func(t *testing.T) {
		store := &stubStore{detail: detail}
		srv, cache, _ := newServer(store)
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/api/orders/" + orderID)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, 1, store.getCalls)
		_, ok := cache.entries[orderID]
		assert.True(t, ok)
	})

	t.Run("hit skips store", func(t *testing.T) {
		store := &stubStore{detail: detail}
		srv, cache, _ := newServer(store)
		defer srv.Close()

		cached, err := json.Marshal(detail)
		require.NoError(t, err)
		cache.entries[orderID] = cached

		resp, err := http.Get(srv.URL + "/api/orders/" + orderID)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, 0, store.getCalls)
	})

	t.Run("not found", func(t *testing.T) {
		srv, _, _ := newServer(&stubStore{getErr: orders.ErrOrderNotFound})
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/api/orders/" + uuid.NewString())
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("invalid id", func(t *testing.T) {
		srv, _, _ := newServer(&stubStore{})
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/api/orders/not-a-uuid")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestListOrders(t *testing.T) {
	srv, _, _ := newServer(&stubStore{summaries: nil})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/orders")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var got []orders.OrderSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.NotNil(t, got) // empty list, not null
}

func TestCancelOrder(t *testing.T) {
	orderID := uuid.NewString()

	t.Run("cancelled", func(t *testing.T) {
		store := &stubStore{restocked: []orders.CartLine{{MotorbikeID: 1, Quantity: 2}}}
		srv, cache, producer := newServer(store)
		defer srv.Close()

		cache.entries[orderID] = []byte(`{}`)

		resp, err := http.Post(srv.URL+"/api/orders/"+orderID+"/cancel", "application/json", nil)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, cache.invalidated, orderID)

		require.Len(t, producer.messages, 1)
		assert.Equal(t, orders.TopicOrderCancelled, producer.messages[0].Topic)
		var env orders.Envelope
		require.NoError(t, kafkax.UnmarshalEnvelope(producer.messages[0].Value, &env))
		assert.Equal(t, orders.EventOrderCancelled, env.EventType)

		p, err := kafkax.UnwrapPayload[orders.OrderCancelledPayload](env.Payload)
		require.NoError(t, err)
		assert.Equal(t, store.restocked, p.Restocked)
	})

	t.Run("not cancellable", func(t *testing.T) {
		store := &stubStore{cancelErr: orders.IllegalTransitionError{
			OrderID: orderID, From: orders.StatusCompleted, To: orders.StatusCancelled,
		}}
		srv, _, producer := newServer(store)
		defer srv.Close()

		resp, err := http.Post(srv.URL+"/api/orders/"+orderID+"/cancel", "application/json", nil)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Empty(t, producer.messages)
	})

	t.Run("not found", func(t *testing.T) {
		srv, _, _ := newServer(&stubStore{cancelErr: orders.ErrOrderNotFound})
		defer srv.Close()

		resp, err := http.Post(srv.URL+"/api/orders/"+uuid.NewString()+"/cancel", "application/json", nil)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestHealth(t *testing.T) {
	srv, _, _ := newServer(&stubStore{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var got map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "ok", got["status"])
}
