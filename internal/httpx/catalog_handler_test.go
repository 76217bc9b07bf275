package httpx_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/adisurya/moto-store/internal/catalog"
	"github.com/adisurya/moto-store/internal/httpx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCatalog struct {
	bikes map[int64]catalog.Motorbike
}

func (s *stubCatalog) GetMotorbike(_ context.Context, id int64) (catalog.Motorbike, error) {
	m, ok := s.bikes[id]
	if !ok {
		return catalog.Motorbike{}, catalog.ErrNotFound
	}
	return m, nil
}

func (s *stubCatalog) ListMotorbikes(_ context.Context) ([]catalog.Motorbike, error) {
	var out []catalog.Motorbike
	for _, m := range s.bikes {
		out = append(out, m)
	}
	return out, nil
}

func newCatalogServer(bikes map[int64]catalog.Motorbike) *httptest.Server {
	router := httpx.NewRouter()
	h := &httpx.CatalogHandler{Catalog: &stubCatalog{bikes: bikes}}
	h.Register(router)
	return httptest.NewServer(router)
}

func TestGetMotorbike(t *testing.T) {
	bike := catalog.Motorbike{ID: 3, Brand: "Suzuki", Model: "SV650", Year: 2023, Price: decimal.NewFromInt(7999), Stock: 4}
	srv := newCatalogServer(map[int64]catalog.Motorbike{3: bike})
	defer srv.Close()

	t.Run("found", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/motorbikes/3")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var got catalog.Motorbike
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, bike.Brand, got.Brand)
		assert.Equal(t, bike.Model, got.Model)
		assert.True(t, bike.Price.Equal(got.Price))
	})

	t.Run("not found", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/motorbikes/99")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("invalid id", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/motorbikes/abc")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestListMotorbikes(t *testing.T) {
	t.Run("empty catalog is an empty list", func(t *testing.T) {
		srv := newCatalogServer(nil)
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/api/motorbikes")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var got []catalog.Motorbike
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.NotNil(t, got)
	})
}
