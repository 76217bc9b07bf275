package httpx

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/adisurya/moto-store/internal/catalog"
	"github.com/go-chi/chi/v5"
)

type CatalogReader interface {
	GetMotorbike(ctx context.Context, id int64) (catalog.Motorbike, error)
	ListMotorbikes(ctx context.Context) ([]catalog.Motorbike, error)
}

type CatalogHandler struct {
	Catalog CatalogReader
}

func (h *CatalogHandler) Register(r *chi.Mux) {
	r.Get("/api/motorbikes", h.list)
	r.Get("/api/motorbikes/{id}", h.get)
}

func (h *CatalogHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	bikes, err := h.Catalog.ListMotorbikes(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list motorbikes"})
		return
	}
	if bikes == nil {
		bikes = []catalog.Motorbike{}
	}
	writeJSON(w, http.StatusOK, bikes)
}

func (h *CatalogHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	bike, err := h.Catalog.GetMotorbike(ctx, id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Motorbike not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load motorbike"})
		return
	}
	writeJSON(w, http.StatusOK, bike)
}
