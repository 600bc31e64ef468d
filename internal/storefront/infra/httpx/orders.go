package httpx

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jcmexdev/storefront/internal/pkg/requestmeta"
	"github.com/jcmexdev/storefront/internal/storefront/core/domain"
	"github.com/jcmexdev/storefront/internal/storefront/core/ports"
)

// PlaceOrder creates an order from the body items or, when none are sent,
// from the caller's cart. A repeated payment id returns the original order
// with 200 instead of 201.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	in := req.toInput(requestmeta.IdempotencyKey(r.Context()))
	order, created, err := h.svc.Checkout.PlaceOrder(r.Context(), identity(r).UserID, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if !created {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Order already exists with this payment ID.",
			"order":   mapOrderToResponse(order),
		})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"order":   mapOrderToResponse(order),
	})
}

func (h *Handler) MyOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.Orders.ListMine(r.Context(), identity(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"orders":  mapOrdersToResponse(orders),
	})
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.svc.Orders.Get(r.Context(), identity(r), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"order":   mapOrderToResponse(order),
	})
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page := ports.NewPage(queryInt(r, "page"), queryInt(r, "limit"))
	res, err := h.svc.Orders.ListAll(r.Context(), page)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	orders := make([]AdminOrderResponse, 0, len(res.Orders))
	for _, o := range res.Orders {
		orders = append(orders, mapAdminOrder(o, res.Products))
	}
	writeJSON(w, http.StatusOK, AdminOrdersResponse{
		Success:     true,
		TotalOrders: res.TotalOrders,
		TotalPages:  res.TotalPages,
		CurrentPage: res.CurrentPage,
		TotalAmount: money(res.TotalAmount),
		Orders:      orders,
	})
}

func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	res, err := h.svc.Orders.UpdateStatus(r.Context(), identity(r), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	body := map[string]any{
		"success": true,
		"order":   mapOrderToResponse(res.Order),
	}
	if res.Notification != nil {
		body["notification"] = mapNotificationsToResponse([]domain.Notification{*res.Notification})[0]
	}
	writeJSON(w, http.StatusOK, body)
}

// UpdateOrders applies one status to many orders. Orders that cannot move are
// reported under "skipped" without failing the request.
func (h *Handler) UpdateOrders(w http.ResponseWriter, r *http.Request) {
	var req BulkStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	res, err := h.svc.Orders.UpdateStatuses(r.Context(), identity(r), req.OrderIDs, req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	skipped := make([]SkippedOrderResponse, 0, len(res.Skipped))
	for _, s := range res.Skipped {
		_, code := classify(s.Err)
		skipped = append(skipped, SkippedOrderResponse{OrderID: s.OrderID, Error: code})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"message":       fmt.Sprintf("%d orders updated successfully", len(res.Updated)),
		"updatedOrders": mapOrdersToResponse(res.Updated),
		"notifications": mapNotificationsToResponse(res.Notifications),
		"skipped":       skipped,
	})
}

func (h *Handler) DeleteOrders(w http.ResponseWriter, r *http.Request) {
	var req DeleteOrdersRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	res, err := h.svc.Orders.Delete(r.Context(), req.OrderIDs)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"message":       fmt.Sprintf("%d orders deleted successfully", res.DeletedCount),
		"deletedCount":  res.DeletedCount,
		"deletedOrders": res.DeletedOrders,
	})
}

func (h *Handler) OrderHistory(w http.ResponseWriter, r *http.Request) {
	changes, err := h.svc.Orders.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"history": mapHistoryToResponse(changes),
	})
}

// queryInt returns 0 for a missing or malformed parameter.
func queryInt(r *http.Request, name string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return v
}
