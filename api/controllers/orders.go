package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aduboahen/juicekart/api/responses"
	"github.com/aduboahen/juicekart/internal/backend"
	pkgerrors "github.com/aduboahen/juicekart/pkg/errors"
	"github.com/aduboahen/juicekart/pkg/logger"
)

// OrderService backs the order-history endpoints.
type OrderService interface {
	ListMine(ctx context.Context) ([]backend.Order, error)
	Cancel(ctx context.Context, orderID string) error
}

func ListOrders(logg *logger.Logger, svc OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orders, err := svc.ListMine(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders)
	}
}

func CancelOrder(logg *logger.Logger, svc OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID := chi.URLParam(r, "orderID")
		if orderID == "" {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "order id is required"))
			return
		}
		if err := svc.Cancel(r.Context(), orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cancelled"})
	}
}
