package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/aduboahen/juicekart/api/responses"
	"github.com/aduboahen/juicekart/internal/checkout"
	pkgerrors "github.com/aduboahen/juicekart/pkg/errors"
	"github.com/aduboahen/juicekart/pkg/logger"
)

// PaymentConfirmer finalizes a hosted card payment by reference.
type PaymentConfirmer interface {
	ConfirmPayment(ctx context.Context, reference string) (*checkout.Confirmation, error)
}

// PaymentReturn serves the route the payment gateway redirects the browser
// back to. The gateway appends the reference as a query parameter; some
// gateways use trxref instead.
func PaymentReturn(logg *logger.Logger, confirmer PaymentConfirmer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reference := strings.TrimSpace(r.URL.Query().Get("reference"))
		if reference == "" {
			reference = strings.TrimSpace(r.URL.Query().Get("trxref"))
		}
		if reference == "" {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required"))
			return
		}

		confirmation, err := confirmer.ConfirmPayment(r.Context(), reference)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, confirmation)
	}
}
