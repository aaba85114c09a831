package backend

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/aduboahen/juicekart/pkg/errors"
)

// OrderLine is the normalized line item shape sent with an order.
type OrderLine struct {
	CartItemID string          `json:"cart_item_id"`
	ProductID  string          `json:"product_id"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity"`
	PackSize   string          `json:"pack_size,omitempty"`
	ImageRef   string          `json:"image_ref,omitempty"`
}

// OrderPayload is the full pay-on-delivery order submission.
type OrderPayload struct {
	Reference     string          `json:"reference"`
	Items         []OrderLine     `json:"items"`
	FullName      string          `json:"full_name"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone,omitempty"`
	Address       string          `json:"address"`
	Zone          string          `json:"zone"`
	DeliveryDate  string          `json:"delivery_date,omitempty"`
	DeliveryTime  string          `json:"delivery_time,omitempty"`
	PaymentMethod string          `json:"payment_method"`
	ShippingFee   decimal.Decimal `json:"shipping_fee"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Currency      string          `json:"currency"`
}

// Order is one entry of the identity's order history.
type Order struct {
	ID          string          `json:"id"`
	Reference   string          `json:"reference"`
	Status      string          `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	PlacedAt    time.Time       `json:"placed_at"`
}

// PlaceOrder submits a pay-on-delivery order and returns the created order id.
func (c *Client) PlaceOrder(ctx context.Context, payload OrderPayload) (string, error) {
	if len(payload.Items) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/orders", payload, &resp); err != nil {
		return "", err
	}
	return resp.Data.ID, nil
}

// ListMyOrders returns the order history for the current identity.
func (c *Client) ListMyOrders(ctx context.Context) ([]Order, error) {
	var resp struct {
		Data []Order `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/orders/my-orders", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// CancelOrder asks the backend to cancel the given order.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	if orderID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	return c.do(ctx, http.MethodPut, "/orders/"+url.PathEscape(orderID)+"/cancel", nil, nil)
}
