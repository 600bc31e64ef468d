package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jcmexdev/storefront/internal/storefront/core/service"
)

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	lines, err := h.svc.Carts.Get(r.Context(), identity(r).UserID)
	h.writeCart(w, r, lines, err)
}

func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req CartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	lines, err := h.svc.Carts.AddItem(r.Context(), identity(r).UserID, req.ProductID, req.Quantity)
	h.writeCart(w, r, lines, err)
}

func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req CartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	lines, err := h.svc.Carts.SetQuantity(r.Context(), identity(r).UserID, req.ProductID, req.Quantity)
	h.writeCart(w, r, lines, err)
}

func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	lines, err := h.svc.Carts.RemoveItem(r.Context(), identity(r).UserID, chi.URLParam(r, "productId"))
	h.writeCart(w, r, lines, err)
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Carts.Clear(r.Context(), identity(r).UserID); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "items": []CartItemResponse{}})
}

func (h *Handler) writeCart(w http.ResponseWriter, r *http.Request, lines []service.CartLine, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "items": mapCartToResponse(lines)})
}
