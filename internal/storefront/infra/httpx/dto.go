package httpx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/storefront/internal/storefront/core/domain"
	"github.com/jcmexdev/storefront/internal/storefront/core/ports"
	"github.com/jcmexdev/storefront/internal/storefront/core/service"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// IDList decodes either a single id string or an array of ids.
type IDList []string

func (l *IDList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*l = nil
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var one string
		if err := json.Unmarshal(b, &one); err != nil {
			return err
		}
		*l = IDList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return fmt.Errorf("ids must be a string or an array of strings: %w", err)
	}
	*l = many
	return nil
}

// money renders an amount as a bare JSON number.
func money(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

type ShippingInfoDTO struct {
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
	PinCode string `json:"pinCode"`
	PhoneNo string `json:"phoneNo"`
}

type PaymentInfoDTO struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// OrderItemRequest names the product with "product", as stored orders do, or
// with "productId". Client supplied prices are ignored.
type OrderItemRequest struct {
	Product   string `json:"product"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type PlaceOrderRequest struct {
	ShippingInfo ShippingInfoDTO    `json:"shippingInfo"`
	OrderItems   []OrderItemRequest `json:"orderItems"`
	PaymentInfo  PaymentInfoDTO     `json:"paymentInfo"`
}

func (r PlaceOrderRequest) toInput(idempotencyKey string) service.PlaceOrderInput {
	items := make([]service.ItemInput, 0, len(r.OrderItems))
	for _, it := range r.OrderItems {
		id := it.Product
		if id == "" {
			id = it.ProductID
		}
		items = append(items, service.ItemInput{ProductID: id, Quantity: it.Quantity})
	}

	paymentID := r.PaymentInfo.ID
	if paymentID == "" {
		paymentID = idempotencyKey
	}

	return service.PlaceOrderInput{
		ShippingInfo: domain.ShippingInfo(r.ShippingInfo),
		Items:        items,
		PaymentInfo:  domain.PaymentInfo{ID: paymentID, Status: r.PaymentInfo.Status},
	}
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type BulkStatusRequest struct {
	OrderIDs IDList `json:"orderIds"`
	Status   string `json:"status"`
}

type DeleteOrdersRequest struct {
	OrderIDs IDList `json:"orderIds"`
}

type CartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type ProductRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
}

func (r ProductRequest) toInput() service.ProductInput {
	return service.ProductInput(r)
}

type OrderItemResponse struct {
	Product  string      `json:"product"`
	Name     string      `json:"name"`
	Image    string      `json:"image"`
	Price    json.Number `json:"price"`
	Quantity int         `json:"quantity"`
}

type OrderResponse struct {
	ID            string              `json:"_id"`
	User          string              `json:"user"`
	OrderItems    []OrderItemResponse `json:"orderItems"`
	ShippingInfo  ShippingInfoDTO     `json:"shippingInfo"`
	PaymentInfo   PaymentInfoDTO      `json:"paymentInfo"`
	ItemsPrice    json.Number         `json:"itemsPrice"`
	TaxPrice      json.Number         `json:"taxPrice"`
	ShippingPrice json.Number         `json:"shippingPrice"`
	TotalPrice    json.Number         `json:"totalPrice"`
	Currency      string              `json:"currency"`
	OrderStatus   string              `json:"orderStatus"`
	PaidAt        time.Time           `json:"paidAt"`
	DeliveredAt   *time.Time          `json:"deliveredAt,omitempty"`
	CancelledAt   *time.Time          `json:"cancelledAt,omitempty"`
	SoonAt        *time.Time          `json:"soonAt,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

func mapOrderToResponse(o domain.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemResponse{
			Product:  it.ProductID,
			Name:     it.Name,
			Image:    it.Image,
			Price:    money(it.Price),
			Quantity: it.Quantity,
		})
	}
	return OrderResponse{
		ID:            o.ID,
		User:          o.UserID,
		OrderItems:    items,
		ShippingInfo:  ShippingInfoDTO(o.ShippingInfo),
		PaymentInfo:   PaymentInfoDTO(o.PaymentInfo),
		ItemsPrice:    money(o.ItemsPrice),
		TaxPrice:      money(o.TaxPrice),
		ShippingPrice: money(o.ShippingPrice),
		TotalPrice:    money(o.TotalPrice),
		Currency:      o.Currency.String(),
		OrderStatus:   o.Status.String(),
		PaidAt:        o.PaidAt,
		DeliveredAt:   o.DeliveredAt,
		CancelledAt:   o.CancelledAt,
		SoonAt:        o.SoonAt,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

func mapOrdersToResponse(orders []domain.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, mapOrderToResponse(o))
	}
	return out
}

// AdminOrderItemResponse shows the snapshot alongside live stock. Name falls
// back to "Deleted Product" once the product is gone.
type AdminOrderItemResponse struct {
	OrderItemResponse
	CurrentStock *int `json:"currentStock"`
}

type AdminOrderResponse struct {
	OrderResponse
	OrderItems []AdminOrderItemResponse `json:"orderItems"`
}

func mapAdminOrder(o domain.Order, products map[string]domain.Product) AdminOrderResponse {
	base := mapOrderToResponse(o)
	items := make([]AdminOrderItemResponse, 0, len(base.OrderItems))
	for _, it := range base.OrderItems {
		item := AdminOrderItemResponse{OrderItemResponse: it}
		if p, ok := products[it.Product]; ok {
			stock := p.Stock
			item.CurrentStock = &stock
		} else {
			item.Name = "Deleted Product"
		}
		items = append(items, item)
	}
	return AdminOrderResponse{OrderResponse: base, OrderItems: items}
}

type AdminOrdersResponse struct {
	Success     bool                 `json:"success"`
	TotalOrders int                  `json:"totalOrders"`
	TotalPages  int                  `json:"totalPages"`
	CurrentPage int                  `json:"currentPage"`
	TotalAmount json.Number          `json:"totalAmount"`
	Orders      []AdminOrderResponse `json:"orders"`
}

type SkippedOrderResponse struct {
	OrderID string `json:"orderId"`
	Error   string `json:"error"`
}

type ProductResponse struct {
	ID          string      `json:"_id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Price       json.Number `json:"price"`
	Stock       int         `json:"stock"`
	Category    string      `json:"category"`
	Image       string      `json:"image"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

func mapProductToResponse(p domain.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       money(p.Price),
		Stock:       p.Stock,
		Category:    p.Category,
		Image:       p.Image,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// CartItemResponse carries a nil product when it was deleted after being added.
type CartItemResponse struct {
	ProductID string           `json:"productId"`
	Quantity  int              `json:"quantity"`
	Product   *ProductResponse `json:"product"`
}

func mapCartToResponse(lines []service.CartLine) []CartItemResponse {
	out := make([]CartItemResponse, 0, len(lines))
	for _, l := range lines {
		item := CartItemResponse{ProductID: l.ProductID, Quantity: l.Quantity}
		if l.Product != nil {
			p := mapProductToResponse(*l.Product)
			item.Product = &p
		}
		out = append(out, item)
	}
	return out
}

func mapNotificationsToResponse(ns []domain.Notification) []ports.NotificationEvent {
	out := make([]ports.NotificationEvent, 0, len(ns))
	for _, n := range ns {
		out = append(out, service.NotificationEvent(n))
	}
	return out
}

type StatusChangeResponse struct {
	From    string    `json:"from"`
	To      string    `json:"to"`
	Actor   string    `json:"actor"`
	TraceID string    `json:"traceId,omitempty"`
	At      time.Time `json:"at"`
}

func mapHistoryToResponse(changes []domain.StatusChange) []StatusChangeResponse {
	out := make([]StatusChangeResponse, 0, len(changes))
	for _, c := range changes {
		out = append(out, StatusChangeResponse{
			From:    c.From.String(),
			To:      c.To.String(),
			Actor:   c.Actor,
			TraceID: c.TraceID,
			At:      c.At,
		})
	}
	return out
}
