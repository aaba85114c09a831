// Package identity keeps the cart store consistent as the browsing identity
// moves between guest and authenticated user. Transitions are explicit calls
// from the session subsystem, never ambient reactions, so the merge, load,
// and replay sequence is strictly ordered and testable.
package identity

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/aduboahen/juicekart/internal/state"
	pkgerrors "github.com/aduboahen/juicekart/pkg/errors"
	"github.com/aduboahen/juicekart/pkg/logger"
	"github.com/aduboahen/juicekart/pkg/types"
)

type cartStore interface {
	Identity() types.Identity
	Lines() []types.CartLine
	SwitchIdentity(ctx context.Context, identity types.Identity) error
	ReplaceAllLines(ctx context.Context, lines []types.CartLine) error
	Clear(ctx context.Context) error
}

type remoteCart interface {
	GetCart(ctx context.Context) ([]types.CartLine, error)
	AddCartItem(ctx context.Context, productID, packSize string, quantity int) (*types.CartLine, error)
}

type intentReplayer interface {
	TryReplay(ctx context.Context, identity types.Identity) error
}

type sessionRestorer interface {
	SilentRefresh(ctx context.Context) (types.Identity, error)
}

type kvStore interface {
	GetValue(ctx context.Context, key string) (string, error)
	PutValue(ctx context.Context, key, value string) error
}

type guestScopeClearer interface {
	ClearScope(ctx context.Context, scope string) error
}

// Handler runs the identity transition state machine.
type Handler struct {
	cart     cartStore
	remote   remoteCart
	relay    intentReplayer
	sessions sessionRestorer
	store    kvStore
	scopes   guestScopeClearer
	logger   *logger.Logger

	inFlight atomic.Bool
}

// Params wires the handler's collaborators.
type Params struct {
	Cart     cartStore
	Remote   remoteCart
	Relay    intentReplayer
	Sessions sessionRestorer
	Store    kvStore
	Scopes   guestScopeClearer
	Logger   *logger.Logger
}

// New builds the handler.
func New(params Params) (*Handler, error) {
	if params.Cart == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if params.Remote == nil {
		return nil, fmt.Errorf("remote cart client required")
	}
	if params.Relay == nil {
		return nil, fmt.Errorf("intent relay required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("state store required")
	}
	if params.Scopes == nil {
		return nil, fmt.Errorf("scope clearer required")
	}
	return &Handler{
		cart:     params.Cart,
		remote:   params.Remote,
		relay:    params.Relay,
		sessions: params.Sessions,
		store:    params.Store,
		scopes:   params.Scopes,
		logger:   params.Logger,
	}, nil
}

// Bootstrap resolves the identity at application start: silent refresh into
// the login sequence, or a guest scope when no session can be restored.
// Either way the pending-intent relay runs exactly once afterwards.
func (h *Handler) Bootstrap(ctx context.Context) error {
	if h.sessions == nil {
		return fmt.Errorf("session restorer required for bootstrap")
	}

	identity, err := h.sessions.SilentRefresh(ctx)
	if err != nil {
		if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
			h.warn(ctx, "silent refresh failed: "+err.Error())
		}
		if err := h.switchToGuest(ctx); err != nil {
			return err
		}
		// no resolved identity: the relay discards any captured intent and
		// routes the user to sign-in
		return h.relay.TryReplay(ctx, types.Identity{})
	}

	// load the persisted guest scope first so its lines take part in the
	// login merge
	if err := h.switchToGuest(ctx); err != nil {
		h.warn(ctx, "guest scope load failed before login: "+err.Error())
	}
	return h.OnLogin(ctx, identity.UserID())
}

// OnLogin merges the guest cart into the user's server cart, reloads the
// store from the canonical server state, then replays any pending intent.
func (h *Handler) OnLogin(ctx context.Context, userID string) error {
	if userID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !h.inFlight.CompareAndSwap(false, true) {
		return pkgerrors.New(pkgerrors.CodeConflict, "identity transition already in progress")
	}
	defer h.inFlight.Store(false)

	var guestLines []types.CartLine
	var guestScope string
	if current := h.cart.Identity(); !current.IsZero() && !current.IsUser() {
		guestLines = h.cart.Lines()
		guestScope = current.Scope()
	}

	user := types.User(userID)
	if err := h.cart.SwitchIdentity(ctx, user); err != nil {
		return err
	}

	mergeErr := h.mergeGuestLines(ctx, guestLines)
	if mergeErr != nil {
		// non-fatal: the user's existing server cart still loads below
		h.warn(ctx, "guest cart merge failed: "+mergeErr.Error())
	} else if guestScope != "" {
		if err := h.scopes.ClearScope(ctx, guestScope); err != nil {
			h.warn(ctx, "failed to discard merged guest scope: "+err.Error())
		}
	}

	serverLines, err := h.remote.GetCart(ctx)
	if err != nil {
		h.warn(ctx, "failed to load server cart: "+err.Error())
	} else if err := h.cart.ReplaceAllLines(ctx, serverLines); err != nil {
		h.warn(ctx, "failed to apply server cart: "+err.Error())
	}

	return h.relay.TryReplay(ctx, user)
}

func (h *Handler) mergeGuestLines(ctx context.Context, lines []types.CartLine) error {
	var errs []error
	for _, line := range lines {
		if _, err := h.remote.AddCartItem(ctx, line.ProductID, line.PackSize, line.Quantity); err != nil {
			errs = append(errs, fmt.Errorf("merge %s: %w", line.ProductID, err))
		}
	}
	return multierr.Combine(errs...)
}

// OnLogout switches the store to a fresh guest identity. If that switch
// fails, the store is cleared unconditionally: a logout must never leave
// another user's cart items visible.
func (h *Handler) OnLogout(ctx context.Context) error {
	if !h.inFlight.CompareAndSwap(false, true) {
		return pkgerrors.New(pkgerrors.CodeConflict, "identity transition already in progress")
	}
	defer h.inFlight.Store(false)

	if err := h.switchToFreshGuest(ctx); err != nil {
		clearErr := h.cart.Clear(ctx)
		if clearErr != nil {
			return multierr.Append(err, clearErr)
		}
		h.warn(ctx, "guest switch failed, cart hard-cleared: "+err.Error())
		return nil
	}
	return nil
}

// switchToGuest restores the persisted guest scope, creating one on first run.
func (h *Handler) switchToGuest(ctx context.Context) error {
	guestID, err := h.loadOrCreateGuestID(ctx)
	if err != nil {
		return err
	}
	return h.cart.SwitchIdentity(ctx, types.Guest(guestID))
}

// switchToFreshGuest always allocates a new guest scope so nothing from the
// previous identity can show through.
func (h *Handler) switchToFreshGuest(ctx context.Context) error {
	guestID := uuid.NewString()
	if err := h.store.PutValue(ctx, state.KeyGuestID, guestID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist guest id")
	}
	return h.cart.SwitchIdentity(ctx, types.Guest(guestID))
}

func (h *Handler) loadOrCreateGuestID(ctx context.Context) (string, error) {
	guestID, err := h.store.GetValue(ctx, state.KeyGuestID)
	if err == nil && guestID != "" {
		return guestID, nil
	}
	if err != nil && !errors.Is(err, state.ErrKeyNotFound) {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load guest id")
	}
	guestID = uuid.NewString()
	if err := h.store.PutValue(ctx, state.KeyGuestID, guestID); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist guest id")
	}
	return guestID, nil
}

func (h *Handler) warn(ctx context.Context, msg string) {
	if h.logger == nil {
		return
	}
	h.logger.Warn(h.logger.WithComponent(ctx, "identity"), msg)
}
