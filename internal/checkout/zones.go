package checkout

import (
	"strings"

	"github.com/shopspring/decimal"
)

// zoneFees maps Accra delivery zones to flat shipping fees in cedis. Keys
// are stored lowercase; lookup is case-insensitive. A zone missing from the
// table ships free.
var zoneFees = map[string]decimal.Decimal{
	"osu":            decimal.NewFromInt(15),
	"east legon":     decimal.NewFromInt(20),
	"labone":         decimal.NewFromInt(15),
	"cantonments":    decimal.NewFromInt(15),
	"airport":        decimal.NewFromInt(20),
	"dansoman":       decimal.NewFromInt(25),
	"tema":           decimal.NewFromInt(35),
	"spintex":        decimal.NewFromInt(30),
	"madina":         decimal.NewFromInt(25),
	"achimota":       decimal.NewFromInt(25),
	"dzorwulu":       decimal.NewFromInt(20),
	"north kaneshie": decimal.NewFromInt(25),
}

// ShippingFee resolves the flat delivery fee for a zone name. Unknown zones
// return zero rather than an error so the form never blocks on the table.
func ShippingFee(zone string) decimal.Decimal {
	if fee, ok := zoneFees[strings.ToLower(strings.TrimSpace(zone))]; ok {
		return fee
	}
	return decimal.Zero
}
