// Package orders is the thin client-side service behind the order-history
// page: listing the identity's orders and requesting cancellations.
package orders

import (
	"context"
	"fmt"

	"github.com/aduboahen/juicekart/internal/backend"
	pkgerrors "github.com/aduboahen/juicekart/pkg/errors"
	"github.com/aduboahen/juicekart/pkg/logger"
)

type orderClient interface {
	ListMyOrders(ctx context.Context) ([]backend.Order, error)
	CancelOrder(ctx context.Context, orderID string) error
}

// Notifier is the toast-equivalent outcome channel.
type Notifier interface {
	Success(ctx context.Context, msg string)
	Failure(ctx context.Context, msg string)
}

type noopNotifier struct{}

func (noopNotifier) Success(context.Context, string) {}
func (noopNotifier) Failure(context.Context, string) {}

// Service exposes the order-history operations.
type Service struct {
	remote   orderClient
	notifier Notifier
	logger   *logger.Logger
}

// New builds the service.
func New(remote orderClient, notifier Notifier, logg *logger.Logger) (*Service, error) {
	if remote == nil {
		return nil, fmt.Errorf("order client required")
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Service{remote: remote, notifier: notifier, logger: logg}, nil
}

// ListMine returns the current identity's order history.
func (s *Service) ListMine(ctx context.Context) ([]backend.Order, error) {
	orders, err := s.remote.ListMyOrders(ctx)
	if err != nil {
		s.warn(ctx, "failed to load orders: "+err.Error())
		return nil, err
	}
	return orders, nil
}

// Cancel asks the backend to cancel an order and reports the outcome.
func (s *Service) Cancel(ctx context.Context, orderID string) error {
	if orderID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if err := s.remote.CancelOrder(ctx, orderID); err != nil {
		s.notifier.Failure(ctx, "order could not be cancelled")
		return err
	}
	s.notifier.Success(ctx, "order cancelled")
	return nil
}

func (s *Service) warn(ctx context.Context, msg string) {
	if s.logger == nil {
		return
	}
	s.logger.Warn(s.logger.WithComponent(ctx, "orders"), msg)
}
