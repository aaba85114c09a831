package backend

import (
	"context"
	"net/http"
	"strings"

	pkgerrors "github.com/aduboahen/juicekart/pkg/errors"
)

// PaymentMetadata embeds the full order payload in the payment-initialize
// request so the gateway callback can reconstruct the order without a second
// round trip.
type PaymentMetadata struct {
	UserID       string      `json:"user_id"`
	Items        []OrderLine `json:"items"`
	DeliveryDate string      `json:"delivery_date,omitempty"`
	DeliveryTime string      `json:"delivery_time,omitempty"`
	Zone         string      `json:"zone"`
	Address      string      `json:"address"`
}

// PaymentInitRequest starts a hosted card payment.
type PaymentInitRequest struct {
	Reference   string          `json:"reference"`
	AmountMinor int64           `json:"amount"`
	Currency    string          `json:"currency"`
	Email       string          `json:"email"`
	FullName    string          `json:"full_name"`
	CallbackURL string          `json:"callback_url,omitempty"`
	Metadata    PaymentMetadata `json:"metadata"`
}

// PaymentInit is the gateway handoff returned on success.
type PaymentInit struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code,omitempty"`
	Reference        string `json:"reference,omitempty"`
}

// InitializePayment starts a hosted payment and returns the gateway
// authorization URL the browser must be sent to.
func (c *Client) InitializePayment(ctx context.Context, req PaymentInitRequest) (*PaymentInit, error) {
	if req.AmountMinor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	if strings.TrimSpace(req.Email) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment email is required")
	}
	var resp struct {
		Data PaymentInit `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/payments/initialize", req, &resp); err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.Data.AuthorizationURL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gateway returned no authorization url")
	}
	return &resp.Data, nil
}
