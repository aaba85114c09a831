// Package pending bridges an add-to-cart action across a forced
// authentication redirect. The captured intent survives a full navigation
// through durable local storage and is consumed at most once.
package pending

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aduboahen/juicekart/internal/state"
	pkgerrors "github.com/aduboahen/juicekart/pkg/errors"
	"github.com/aduboahen/juicekart/pkg/logger"
	"github.com/aduboahen/juicekart/pkg/metrics"
	"github.com/aduboahen/juicekart/pkg/types"
)

const (
	// DefaultReturnPath is where a replayed add lands when the intent
	// carries no explicit return path.
	DefaultReturnPath = "/cart"
	// SignInPath is the authentication entry point users are routed to when
	// identity resolution fails.
	SignInPath = "/auth/signin"
)

// Intent is the persisted deferred add-to-cart action.
type Intent struct {
	Product  types.ProductSnapshot `json:"product"`
	Quantity int                   `json:"quantity"`
	From     string                `json:"from"`
}

type kvStore interface {
	GetValue(ctx context.Context, key string) (string, error)
	PutValue(ctx context.Context, key, value string) error
	DeleteValue(ctx context.Context, key string) error
}

type itemAdder interface {
	AddItem(ctx context.Context, product types.ProductSnapshot, quantity int) (types.CartLine, error)
}

// Navigator receives route changes after a replay resolves.
type Navigator interface {
	GoTo(route string)
}

// Relay captures and replays deferred add-to-cart intents.
type Relay struct {
	store   kvStore
	cart    itemAdder
	nav     Navigator
	metrics *metrics.StorefrontMetrics
	logger  *logger.Logger
}

// Params wires the relay's collaborators.
type Params struct {
	Store     kvStore
	Cart      itemAdder
	Navigator Navigator
	Metrics   *metrics.StorefrontMetrics
	Logger    *logger.Logger
}

// New builds the relay.
func New(params Params) (*Relay, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("state store required")
	}
	if params.Cart == nil {
		return nil, fmt.Errorf("cart adder required")
	}
	if params.Navigator == nil {
		return nil, fmt.Errorf("navigator required")
	}
	return &Relay{
		store:   params.Store,
		cart:    params.Cart,
		nav:     params.Navigator,
		metrics: params.Metrics,
		logger:  params.Logger,
	}, nil
}

// Capture persists the deferred add so it survives the redirect to the
// authentication page and back.
func (r *Relay) Capture(ctx context.Context, product types.ProductSnapshot, quantity int, returnPath string) error {
	if product.ProductID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product is required")
	}
	if quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if returnPath == "" {
		returnPath = DefaultReturnPath
	}

	payload, err := json.Marshal(Intent{Product: product, Quantity: quantity, From: returnPath})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal pending intent")
	}
	if err := r.store.PutValue(ctx, state.KeyPendingIntent, string(payload)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist pending intent")
	}
	return nil
}

// TryReplay consumes a captured intent after an identity resolution. The
// stored record is deleted before the add executes, so a crash or failure in
// between can drop the intent but never replay it twice. When no identity
// resolved, the intent is discarded and the user is routed to sign-in.
func (r *Relay) TryReplay(ctx context.Context, identity types.Identity) error {
	raw, err := r.store.GetValue(ctx, state.KeyPendingIntent)
	if errors.Is(err, state.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load pending intent")
	}

	if err := r.store.DeleteValue(ctx, state.KeyPendingIntent); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete pending intent")
	}

	var intent Intent
	if err := json.Unmarshal([]byte(raw), &intent); err != nil || intent.Product.ProductID == "" || intent.Quantity < 1 {
		r.metrics.IncReplay("malformed")
		r.warn(ctx, "discarding malformed pending intent")
		return nil
	}

	if identity.IsZero() {
		r.metrics.IncReplay("dropped")
		r.nav.GoTo(SignInPath)
		return nil
	}

	if _, err := r.cart.AddItem(ctx, intent.Product, intent.Quantity); err != nil {
		r.metrics.IncReplay("failure")
		return err
	}

	r.metrics.IncReplay("replayed")
	returnPath := intent.From
	if returnPath == "" {
		returnPath = DefaultReturnPath
	}
	r.nav.GoTo(returnPath)
	return nil
}

func (r *Relay) warn(ctx context.Context, msg string) {
	if r.logger == nil {
		return
	}
	r.logger.Warn(r.logger.WithComponent(ctx, "pending"), msg)
}
