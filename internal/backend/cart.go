package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/aduboahen/juicekart/pkg/errors"
	"github.com/aduboahen/juicekart/pkg/types"
)

type apiProduct struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	ImageRef string          `json:"image,omitempty"`
	PackSize string          `json:"pack_size,omitempty"`
}

type apiCartItem struct {
	ID       string     `json:"id"`
	Quantity int        `json:"quantity"`
	Product  apiProduct `json:"product"`
}

func (i apiCartItem) toLine() types.CartLine {
	return types.CartLine{
		CartItemID: i.ID,
		ProductID:  i.Product.ID,
		Name:       i.Product.Name,
		UnitPrice:  i.Product.Price,
		ImageRef:   i.Product.ImageRef,
		PackSize:   i.Product.PackSize,
		Quantity:   i.Quantity,
	}
}

// GetCart loads the authenticated user's server-side cart.
func (c *Client) GetCart(ctx context.Context) ([]types.CartLine, error) {
	var resp struct {
		Data []apiCartItem `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/cart", nil, &resp); err != nil {
		return nil, err
	}
	lines := make([]types.CartLine, 0, len(resp.Data))
	for _, item := range resp.Data {
		lines = append(lines, item.toLine())
	}
	return lines, nil
}

// AddCartItem adds or increments a line on the server cart and returns the
// canonical merged line.
func (c *Client) AddCartItem(ctx context.Context, productID, packSize string, quantity int) (*types.CartLine, error) {
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	body := map[string]any{
		"product_id": productID,
		"quantity":   quantity,
	}
	if packSize != "" {
		body["pack_size"] = packSize
	}
	var resp struct {
		Data apiCartItem `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/cart", body, &resp); err != nil {
		return nil, err
	}
	line := resp.Data.toLine()
	return &line, nil
}

// UpdateCartItem sets the quantity of an existing server-side line.
func (c *Client) UpdateCartItem(ctx context.Context, cartItemID string, quantity int) (*types.CartLine, error) {
	if cartItemID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart item id is required")
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	var resp struct {
		Data apiCartItem `json:"data"`
	}
	path := "/cart/" + url.PathEscape(cartItemID)
	if err := c.do(ctx, http.MethodPut, path, map[string]any{"quantity": quantity}, &resp); err != nil {
		return nil, err
	}
	line := resp.Data.toLine()
	return &line, nil
}

// RemoveCartItem deletes a server-side line.
func (c *Client) RemoveCartItem(ctx context.Context, cartItemID string) error {
	if cartItemID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart item id is required")
	}
	return c.do(ctx, http.MethodDelete, "/cart/"+url.PathEscape(cartItemID), nil, nil)
}
