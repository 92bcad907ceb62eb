// Package api serves the order and inventory endpoints polled by clients.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"order-fulfillment/fulfillment/query"
	"order-fulfillment/fulfillment/types"
)

// InventoryLister returns the current inventory table items.
type InventoryLister interface {
	Get(ctx context.Context) (map[string]types.InventoryItem, error)
}

type Handler struct {
	log       *slog.Logger
	submitter query.Submitter
	source    query.Source
	inventory InventoryLister
	tracer    trace.Tracer
}

func NewHandler(log *slog.Logger, submitter query.Submitter, source query.Source, inventory InventoryLister) *Handler {
	if submitter == nil || source == nil || inventory == nil {
		panic("api.NewHandler: nil dependency")
	}
	return &Handler{
		log:       log,
		submitter: submitter,
		source:    source,
		inventory: inventory,
		tracer:    otel.Tracer("order-http"),
	}
}

type submitOrderReq struct {
	Item string `json:"item"`
}

type submitOrderResp struct {
	OrderID string `json:"orderId"`
}

type inventoryResp struct {
	Items map[string]types.InventoryItem `json:"items"`
}

type errorResp struct {
	Error string `json:"error"`
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/orders", h.submitOrder)
		r.Get("/orders/{id}", h.getOrder)
		r.Get("/inventory", h.listInventory)
	})
	return r
}

func (h *Handler) submitOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SubmitOrder")
	defer span.End()

	// An unreadable body is treated as a missing item.
	var req submitOrderReq
	_ = json.NewDecoder(r.Body).Decode(&req)

	id, err := h.submitter.Submit(ctx, req.Item)
	if err != nil {
		h.writeError(w, err)
		return
	}
	span.SetAttributes(attribute.String("order.id", id))
	writeJSON(w, http.StatusOK, submitOrderResp{OrderID: id})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetOrder")
	defer span.End()

	id := chi.URLParam(r, "id")
	span.SetAttributes(attribute.String("order.id", id))

	order, err := h.source.GetOrder(ctx, id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) listInventory(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListInventory")
	defer span.End()

	items, err := h.inventory.Get(ctx)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inventoryResp{Items: items})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := httpStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "err", err)
	}
	writeJSON(w, status, errorResp{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
