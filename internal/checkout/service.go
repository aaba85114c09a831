// Package checkout validates a checkout draft, computes the final charge,
// and dispatches exactly one of the two fulfillment paths: a pay-on-delivery
// order submission, or a hosted card payment redirect whose confirmation
// arrives later through the payment-return route.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aduboahen/juicekart/internal/backend"
	"github.com/aduboahen/juicekart/internal/state"
	"github.com/aduboahen/juicekart/pkg/config"
	pkgerrors "github.com/aduboahen/juicekart/pkg/errors"
	"github.com/aduboahen/juicekart/pkg/logger"
	"github.com/aduboahen/juicekart/pkg/metrics"
	"github.com/aduboahen/juicekart/pkg/types"
)

// Payment method selections accepted on a draft.
const (
	MethodCard          = "card"
	MethodPayOnDelivery = "pay_on_delivery"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// Draft is the checkout form as submitted. It is never persisted; a failed
// submission leaves it with the caller for correction and resubmission.
type Draft struct {
	FullName      string `json:"full_name" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone,omitempty"`
	Address       string `json:"address" validate:"required"`
	Zone          string `json:"zone" validate:"required"`
	DeliveryDate  string `json:"delivery_date,omitempty"`
	DeliveryTime  string `json:"delivery_time,omitempty"`
	PaymentMethod string `json:"payment_method" validate:"required,oneof=card pay_on_delivery"`
}

// Confirmation describes a resolved submission. For card payments the
// confirmation is only final once ConfirmPayment runs.
type Confirmation struct {
	Reference   string          `json:"reference"`
	OrderID     string          `json:"order_id,omitempty"`
	Method      string          `json:"method"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Currency    string          `json:"currency"`
	ConfirmedAt time.Time       `json:"confirmed_at,omitempty"`
	Redirected  bool            `json:"redirected,omitempty"`
}

type cartAccess interface {
	Identity() types.Identity
	Lines() []types.CartLine
	TotalPrice() decimal.Decimal
	Clear(ctx context.Context) error
}

type fulfillmentClient interface {
	PlaceOrder(ctx context.Context, payload backend.OrderPayload) (string, error)
	InitializePayment(ctx context.Context, req backend.PaymentInitRequest) (*backend.PaymentInit, error)
}

// Navigator receives the gateway URL the browser must be handed to.
type Navigator interface {
	Browse(url string)
}

// Notifier is the toast-equivalent outcome channel.
type Notifier interface {
	Success(ctx context.Context, msg string)
	Failure(ctx context.Context, msg string)
}

type noopNotifier struct{}

func (noopNotifier) Success(context.Context, string) {}
func (noopNotifier) Failure(context.Context, string) {}

type kvStore interface {
	GetValue(ctx context.Context, key string) (string, error)
	PutValue(ctx context.Context, key, value string) error
	DeleteValue(ctx context.Context, key string) error
}

// pendingPayment is the record written when a hosted payment is handed to
// the gateway. The return route must present its reference before the cart
// may clear.
type pendingPayment struct {
	Reference   string          `json:"reference"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Currency    string          `json:"currency"`
	InitiatedAt time.Time       `json:"initiated_at"`
}

// Service is the checkout orchestrator.
type Service struct {
	cart     cartAccess
	remote   fulfillmentClient
	nav      Navigator
	store    kvStore
	notifier Notifier
	metrics  *metrics.StorefrontMetrics
	logger   *logger.Logger
	cfg      config.CheckoutConfig
	payments config.PaymentConfig

	busy atomic.Bool
	now  func() time.Time
}

// Params wires the orchestrator's collaborators.
type Params struct {
	Cart     cartAccess
	Remote   fulfillmentClient
	Nav      Navigator
	Store    kvStore
	Notifier Notifier
	Metrics  *metrics.StorefrontMetrics
	Logger   *logger.Logger
	Config   config.CheckoutConfig
	Payments config.PaymentConfig
}

// New builds the orchestrator.
func New(params Params) (*Service, error) {
	if params.Cart == nil {
		return nil, fmt.Errorf("cart access required")
	}
	if params.Remote == nil {
		return nil, fmt.Errorf("fulfillment client required")
	}
	if params.Nav == nil {
		return nil, fmt.Errorf("navigator required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("state store required")
	}
	notifier := params.Notifier
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if params.Config.Currency == "" {
		params.Config.Currency = "GHS"
	}
	return &Service{
		cart:     params.Cart,
		remote:   params.Remote,
		nav:      params.Nav,
		store:    params.Store,
		notifier: notifier,
		metrics:  params.Metrics,
		logger:   params.Logger,
		cfg:      params.Config,
		payments: params.Payments,
		now:      time.Now,
	}, nil
}

// Submit runs validation and dispatches one fulfillment path. A second call
// while one is in flight returns a conflict without touching the network.
func (s *Service) Submit(ctx context.Context, draft Draft) (*Confirmation, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "a checkout submission is already in progress")
	}
	defer s.busy.Store(false)

	started := s.now()
	defer func() {
		s.metrics.ObserveSubmitDuration(draft.PaymentMethod, s.now().Sub(started))
	}()

	if err := s.validateDraft(draft); err != nil {
		s.metrics.IncSubmission(draft.PaymentMethod, "rejected")
		return nil, err
	}

	fee := ShippingFee(draft.Zone)
	total := s.cart.TotalPrice().Add(fee)
	reference := s.newReference()

	switch draft.PaymentMethod {
	case MethodPayOnDelivery:
		return s.submitPayOnDelivery(ctx, draft, reference, fee, total)
	default:
		return s.submitCard(ctx, draft, reference, total)
	}
}

func (s *Service) validateDraft(draft Draft) error {
	if err := validate.Struct(draft); err != nil {
		return formatValidationErrors(err)
	}
	if len(s.cart.Lines()) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if draft.PaymentMethod == MethodCard && !s.cart.Identity().IsUser() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to pay by card")
	}
	return nil
}

func (s *Service) submitPayOnDelivery(ctx context.Context, draft Draft, reference string, fee, total decimal.Decimal) (*Confirmation, error) {
	payload := backend.OrderPayload{
		Reference:     reference,
		Items:         orderLines(s.cart.Lines()),
		FullName:      draft.FullName,
		Email:         draft.Email,
		Phone:         draft.Phone,
		Address:       draft.Address,
		Zone:          draft.Zone,
		DeliveryDate:  draft.DeliveryDate,
		DeliveryTime:  draft.DeliveryTime,
		PaymentMethod: MethodPayOnDelivery,
		ShippingFee:   fee,
		TotalAmount:   total,
		Currency:      s.cfg.Currency,
	}

	orderID, err := s.remote.PlaceOrder(ctx, payload)
	if err != nil {
		s.metrics.IncSubmission(MethodPayOnDelivery, "failure")
		s.notifier.Failure(ctx, "order could not be placed")
		return nil, err
	}

	confirmation := Confirmation{
		Reference:   reference,
		OrderID:     orderID,
		Method:      MethodPayOnDelivery,
		TotalAmount: total,
		Currency:    s.cfg.Currency,
		ConfirmedAt: s.now(),
	}
	s.finalize(ctx, confirmation)
	s.metrics.IncSubmission(MethodPayOnDelivery, "success")
	s.notifier.Success(ctx, "order placed")
	return &confirmation, nil
}

func (s *Service) submitCard(ctx context.Context, draft Draft, reference string, total decimal.Decimal) (*Confirmation, error) {
	req := backend.PaymentInitRequest{
		Reference:   reference,
		AmountMinor: amountMinor(total),
		Currency:    s.cfg.Currency,
		Email:       draft.Email,
		FullName:    draft.FullName,
		CallbackURL: s.payments.ReturnURL,
		Metadata: backend.PaymentMetadata{
			UserID:       s.cart.Identity().UserID(),
			Items:        orderLines(s.cart.Lines()),
			DeliveryDate: draft.DeliveryDate,
			DeliveryTime: draft.DeliveryTime,
			Zone:         draft.Zone,
			Address:      draft.Address,
		},
	}

	init, err := s.remote.InitializePayment(ctx, req)
	if err != nil {
		s.metrics.IncSubmission(MethodCard, "failure")
		s.notifier.Failure(ctx, "payment could not be started")
		return nil, err
	}

	pending := pendingPayment{
		Reference:   reference,
		TotalAmount: total,
		Currency:    s.cfg.Currency,
		InitiatedAt: s.now(),
	}
	if raw, err := json.Marshal(pending); err == nil {
		if err := s.store.PutValue(ctx, state.KeyPendingPayment, string(raw)); err != nil {
			s.warn(ctx, "failed to record initiated payment: "+err.Error())
		}
	}

	// the cart stays intact until the gateway redirects back and
	// ConfirmPayment runs
	s.nav.Browse(init.AuthorizationURL)
	s.metrics.IncSubmission(MethodCard, "redirected")
	return &Confirmation{
		Reference:   reference,
		Method:      MethodCard,
		TotalAmount: total,
		Currency:    s.cfg.Currency,
		Redirected:  true,
	}, nil
}

// ConfirmPayment finalizes a card checkout once the gateway redirects back.
// The reference must match the payment this service initiated; a stray hit
// on the return route cannot clear the cart.
func (s *Service) ConfirmPayment(ctx context.Context, reference string) (*Confirmation, error) {
	if strings.TrimSpace(reference) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}

	raw, err := s.store.GetValue(ctx, state.KeyPendingPayment)
	if errors.Is(err, state.ErrKeyNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no payment awaiting confirmation")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load initiated payment")
	}

	var pending pendingPayment
	if err := json.Unmarshal([]byte(raw), &pending); err != nil {
		_ = s.store.DeleteValue(ctx, state.KeyPendingPayment)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "malformed initiated payment record")
	}
	if pending.Reference != reference {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unknown payment reference")
	}
	if err := s.store.DeleteValue(ctx, state.KeyPendingPayment); err != nil {
		s.warn(ctx, "failed to consume initiated payment record: "+err.Error())
	}

	confirmation := Confirmation{
		Reference:   pending.Reference,
		Method:      MethodCard,
		Currency:    pending.Currency,
		TotalAmount: pending.TotalAmount,
		ConfirmedAt: s.now(),
	}
	s.finalize(ctx, confirmation)
	s.metrics.IncSubmission(MethodCard, "success")
	s.notifier.Success(ctx, "payment confirmed")
	return &confirmation, nil
}

// finalize clears the cart and records the confirmation. Neither failure is
// fatal at this point: the order exists remotely.
func (s *Service) finalize(ctx context.Context, confirmation Confirmation) {
	if err := s.cart.Clear(ctx); err != nil {
		s.warn(ctx, "failed to clear cart after checkout: "+err.Error())
	}
	raw, err := json.Marshal(confirmation)
	if err == nil {
		err = s.store.PutValue(ctx, state.KeyLastConfirmation, string(raw))
	}
	if err != nil {
		s.warn(ctx, "failed to record confirmation: "+err.Error())
	}
}

func (s *Service) newReference() string {
	return fmt.Sprintf("JK-%s-%s", s.now().Format("20060102"), uuid.NewString()[:8])
}

func (s *Service) warn(ctx context.Context, msg string) {
	if s.logger == nil {
		return
	}
	s.logger.Warn(s.logger.WithComponent(ctx, "checkout"), msg)
}

// amountMinor converts a major-unit charge to the smallest currency unit.
func amountMinor(total decimal.Decimal) int64 {
	return total.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func orderLines(lines []types.CartLine) []backend.OrderLine {
	out := make([]backend.OrderLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, backend.OrderLine{
			CartItemID: line.CartItemID,
			ProductID:  line.ProductID,
			Name:       line.Name,
			UnitPrice:  line.UnitPrice,
			Quantity:   line.Quantity,
			PackSize:   line.PackSize,
			ImageRef:   line.ImageRef,
		})
	}
	return out
}

func formatValidationErrors(err error) error {
	if errs, ok := err.(validator.ValidationErrors); ok {
		details := map[string]string{}
		for _, fieldErr := range errs {
			details[fieldErr.Field()] = validationMessage(fieldErr)
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout validation failed").WithDetails(details)
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "checkout validation failed")
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "oneof":
		return "must be one of " + fe.Param()
	}
	return "is invalid"
}
