package state

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/aduboahen/juicekart/pkg/types"
)

// CartLineRecord persists one cart line for an identity scope.
type CartLineRecord struct {
	ID        uint   `gorm:"column:id;primaryKey;autoIncrement"`
	Scope     string `gorm:"column:scope;not null;uniqueIndex:idx_scope_line_key,priority:1;index"`
	LineKey   string `gorm:"column:line_key;not null;uniqueIndex:idx_scope_line_key,priority:2"`
	LineID    string `gorm:"column:line_id;not null"`
	ProductID string `gorm:"column:product_id;not null"`
	Name      string `gorm:"column:name;not null"`
	UnitPrice string `gorm:"column:unit_price;not null"`
	ImageRef  string `gorm:"column:image_ref"`
	PackSize  string `gorm:"column:pack_size"`
	Quantity  int    `gorm:"column:quantity;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (CartLineRecord) TableName() string { return "cart_lines" }

// KVRecord persists one opaque blob under a storage key. Session and
// pending-intent records live here.
type KVRecord struct {
	Key       string    `gorm:"column:key;primaryKey"`
	Value     string    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (KVRecord) TableName() string { return "kv_records" }

func recordFromLine(scope string, line types.CartLine) CartLineRecord {
	return CartLineRecord{
		Scope:     scope,
		LineKey:   line.Key(),
		LineID:    line.CartItemID,
		ProductID: line.ProductID,
		Name:      line.Name,
		UnitPrice: line.UnitPrice.String(),
		ImageRef:  line.ImageRef,
		PackSize:  line.PackSize,
		Quantity:  line.Quantity,
	}
}

func (r CartLineRecord) toLine() types.CartLine {
	price, err := decimal.NewFromString(r.UnitPrice)
	if err != nil {
		price = decimal.Zero
	}
	return types.CartLine{
		CartItemID: r.LineID,
		ProductID:  r.ProductID,
		Name:       r.Name,
		UnitPrice:  price,
		ImageRef:   r.ImageRef,
		PackSize:   r.PackSize,
		Quantity:   r.Quantity,
	}
}
