package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/jcmexdev/storefront/internal/storefront/core/domain"
	"github.com/jcmexdev/storefront/internal/storefront/core/service"
	"github.com/jcmexdev/storefront/internal/storefront/infra/httpx/middlewares"
)

const maxBodyBytes = 1 << 20

// SocketServer upgrades an authenticated request to the real-time channel.
type SocketServer interface {
	Serve(w http.ResponseWriter, r *http.Request, identity domain.Identity)
}

type Services struct {
	Orders        *service.OrderService
	Checkout      *service.CheckoutService
	Carts         *service.CartService
	Products      *service.ProductService
	Notifications *service.Notifier
	// Health reports whether the backing store is reachable. Optional.
	Health func(ctx context.Context) error
}

// Handler serves the storefront JSON API.
type Handler struct {
	svc    Services
	socket SocketServer
	logger *slog.Logger
}

func NewHandler(svc Services, socket SocketServer, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, socket: socket, logger: logger}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.svc.Health != nil {
		if err := h.svc.Health(r.Context()); err != nil {
			h.logger.ErrorContext(r.Context(), "health check failed", slog.Any("error", err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ServeWS hands the connection to the real-time hub.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	id, ok := middlewares.IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "login first to access this resource")
		return
	}
	h.socket.Serve(w, r, id)
}

// identity is only called behind RequireIdentity.
func identity(r *http.Request) domain.Identity {
	id, _ := middlewares.IdentityFrom(r.Context())
	return id
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

// fail maps a service error onto a status code. Unclassified errors are
// logged and reported with a generic message.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		writeError(w, status, code, "internal server error")
		return
	}
	writeError(w, status, code, err.Error())
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidID):
		return http.StatusBadRequest, "invalid_id"
	case errors.Is(err, domain.ErrInvalidStatus):
		return http.StatusBadRequest, "invalid_status"
	case errors.Is(err, domain.ErrInvalidQuantity):
		return http.StatusBadRequest, "invalid_quantity"
	case errors.Is(err, domain.ErrInvalidProduct):
		return http.StatusBadRequest, "invalid_product"
	case errors.Is(err, domain.ErrNoOrderItems):
		return http.StatusBadRequest, "no_order_items"
	case errors.Is(err, domain.ErrNoOrderIDs):
		return http.StatusBadRequest, "no_order_ids"
	case errors.Is(err, domain.ErrMissingPayment):
		return http.StatusBadRequest, "missing_payment"
	case errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound, "order_not_found"
	case errors.Is(err, domain.ErrProductNotFound):
		return http.StatusNotFound, "product_not_found"
	case errors.Is(err, domain.ErrNotificationNotFound):
		return http.StatusNotFound, "notification_not_found"
	case errors.Is(err, domain.ErrCartItemNotFound):
		return http.StatusNotFound, "cart_item_not_found"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrTerminalStatus):
		return http.StatusConflict, "order_terminal"
	case errors.Is(err, domain.ErrStatusConflict):
		return http.StatusConflict, "status_conflict"
	case errors.Is(err, domain.ErrDuplicatePayment):
		return http.StatusConflict, "duplicate_payment"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Success: false, Error: code, Message: msg})
}
