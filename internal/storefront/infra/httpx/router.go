package httpx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jcmexdev/storefront/internal/storefront/infra/httpx/middlewares"
)

func NewRouter(handler *Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middlewares.AttachRequestMeta)
	r.Use(middlewares.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewares.Identity)

	r.Get("/healthz", handler.Health)
	r.Get("/ws", handler.ServeWS)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", handler.ListProducts)
		r.Get("/product/{id}", handler.GetProduct)

		r.Group(func(r chi.Router) {
			r.Use(middlewares.RequireIdentity(writeError))

			r.Post("/order/new", handler.PlaceOrder)
			r.Get("/orders/me", handler.MyOrders)
			r.Get("/order/{id}", handler.GetOrder)

			r.Get("/cart", handler.GetCart)
			r.Post("/cart", handler.AddToCart)
			r.Put("/cart", handler.UpdateCartItem)
			r.Delete("/cart", handler.ClearCart)
			r.Delete("/cart/{productId}", handler.RemoveFromCart)

			r.Get("/notifications", handler.ListNotifications)
			r.Delete("/notifications", handler.ClearNotifications)
			r.Put("/notifications/{id}/read", handler.MarkNotificationRead)
			r.Delete("/notifications/{id}", handler.DeleteNotification)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middlewares.RequireAdmin(writeError))

			r.Get("/orders", handler.ListOrders)
			r.Put("/orders", handler.UpdateOrders)
			r.Delete("/orders", handler.DeleteOrders)
			r.Put("/order/{id}", handler.UpdateOrder)
			r.Get("/order/{id}/history", handler.OrderHistory)

			r.Post("/product/new", handler.CreateProduct)
			r.Delete("/product/{id}", handler.DeleteProduct)
		})
	})

	return otelhttp.NewHandler(r, "storefront",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}
