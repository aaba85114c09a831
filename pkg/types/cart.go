package types

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ProductSnapshot is the denormalized view of a catalog item captured at
// add-to-cart time. The catalog itself is owned by the backend.
type ProductSnapshot struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	ImageRef  string          `json:"image_ref,omitempty"`
	PackSize  string          `json:"pack_size,omitempty"`
}

// CartLine is one line of the active cart.
type CartLine struct {
	CartItemID string          `json:"cart_item_id"`
	ProductID  string          `json:"product_id"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	ImageRef   string          `json:"image_ref,omitempty"`
	PackSize   string          `json:"pack_size,omitempty"`
	Quantity   int             `json:"quantity"`
}

// Key identifies the dedupe bucket for a line: one line per product and
// pack size combination.
func (l CartLine) Key() string {
	return LineKey(l.ProductID, l.PackSize)
}

// Subtotal derives unit price times quantity. Never cached.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LineKey builds the dedupe key for a product and pack size combination.
func LineKey(productID, packSize string) string {
	return productID + "|" + strings.ToLower(strings.TrimSpace(packSize))
}

// SnapshotFromLine recovers the product snapshot embedded in a line.
func SnapshotFromLine(l CartLine) ProductSnapshot {
	return ProductSnapshot{
		ProductID: l.ProductID,
		Name:      l.Name,
		UnitPrice: l.UnitPrice,
		ImageRef:  l.ImageRef,
		PackSize:  l.PackSize,
	}
}
