// Package cart owns the canonical "what is in the cart right now" state for
// the active browsing identity. Every mutation is applied locally, persisted
// to the local state store, and reported to the notifier, so callers always
// learn whether a mutation stuck before they proceed.
package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/aduboahen/juicekart/pkg/errors"
	"github.com/aduboahen/juicekart/pkg/logger"
	"github.com/aduboahen/juicekart/pkg/metrics"
	"github.com/aduboahen/juicekart/pkg/types"
)

type remoteCart interface {
	AddCartItem(ctx context.Context, productID, packSize string, quantity int) (*types.CartLine, error)
	UpdateCartItem(ctx context.Context, cartItemID string, quantity int) (*types.CartLine, error)
	RemoveCartItem(ctx context.Context, cartItemID string) error
}

type lineStore interface {
	LoadLines(ctx context.Context, scope string) ([]types.CartLine, error)
	ReplaceLines(ctx context.Context, scope string, lines []types.CartLine) error
	UpsertLine(ctx context.Context, scope string, line types.CartLine) error
	DeleteLine(ctx context.Context, scope, lineID string) error
	ClearScope(ctx context.Context, scope string) error
}

// Notifier is the toast-equivalent outcome channel for cart mutations.
type Notifier interface {
	Success(ctx context.Context, msg string)
	Failure(ctx context.Context, msg string)
}

type noopNotifier struct{}

func (noopNotifier) Success(context.Context, string) {}
func (noopNotifier) Failure(context.Context, string) {}

// Store is the persisted cart store. Create one per client instance; it is
// never a package-level singleton.
type Store struct {
	mu       sync.Mutex
	keyLocks keyedMutex

	identity types.Identity
	lines    map[string]types.CartLine // keyed by line dedupe key
	order    []string                  // insertion order of keys

	remote   remoteCart
	state    lineStore
	notifier Notifier
	metrics  *metrics.StorefrontMetrics
	logger   *logger.Logger
}

// Params wires the store's collaborators.
type Params struct {
	Remote   remoteCart
	State    lineStore
	Notifier Notifier
	Metrics  *metrics.StorefrontMetrics
	Logger   *logger.Logger
}

// New builds an empty store. Call SwitchIdentity before mutating.
func New(params Params) (*Store, error) {
	if params.Remote == nil {
		return nil, fmt.Errorf("remote cart client required")
	}
	if params.State == nil {
		return nil, fmt.Errorf("line store required")
	}
	notifier := params.Notifier
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Store{
		lines:    map[string]types.CartLine{},
		remote:   params.Remote,
		state:    params.State,
		notifier: notifier,
		metrics:  params.Metrics,
		logger:   params.Logger,
	}, nil
}

// Identity returns the identity whose lines the store currently holds.
func (s *Store) Identity() types.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// Lines returns a snapshot of the current lines in insertion order.
func (s *Store) Lines() []types.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() []types.CartLine {
	out := make([]types.CartLine, 0, len(s.order))
	for _, key := range s.order {
		if line, ok := s.lines[key]; ok {
			out = append(out, line)
		}
	}
	return out
}

// TotalQuantity sums all line quantities.
func (s *Store) TotalQuantity() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, line := range s.lines {
		total += line.Quantity
	}
	return total
}

// TotalPrice derives the cart total on every call. Never cached.
func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, line := range s.lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

// SwitchIdentity atomically swaps the active identity and loads that
// identity's persisted lines. Nothing from the previous scope carries over.
func (s *Store) SwitchIdentity(ctx context.Context, identity types.Identity) error {
	if identity.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "identity is required")
	}
	lines, err := s.state.LoadLines(ctx, identity.Scope())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load persisted cart")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = identity
	s.resetLocked(lines)
	return nil
}

// ReplaceAllLines overwrites the store with the canonical server cart and
// persists it for the active identity.
func (s *Store) ReplaceAllLines(ctx context.Context, lines []types.CartLine) error {
	s.mu.Lock()
	scope := s.identity.Scope()
	s.resetLocked(lines)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if err := s.state.ReplaceLines(ctx, scope, snapshot); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist cart lines")
	}
	return nil
}

func (s *Store) resetLocked(lines []types.CartLine) {
	s.lines = map[string]types.CartLine{}
	s.order = s.order[:0]
	for _, line := range lines {
		key := line.Key()
		if existing, ok := s.lines[key]; ok {
			// duplicate keys collapse into one line
			existing.Quantity += line.Quantity
			s.lines[key] = existing
			continue
		}
		s.lines[key] = line
		s.order = append(s.order, key)
	}
}

// AddItem adds the product to the cart, merging into any existing line with
// the same product and pack size. Authenticated identities go through the
// backend first and keep the canonical returned line.
func (s *Store) AddItem(ctx context.Context, product types.ProductSnapshot, quantity int) (types.CartLine, error) {
	if product.ProductID == "" {
		return types.CartLine{}, s.fail(ctx, "add_item", pkgerrors.New(pkgerrors.CodeValidation, "product is required"))
	}
	if quantity < 1 {
		return types.CartLine{}, s.fail(ctx, "add_item", pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1"))
	}

	key := types.LineKey(product.ProductID, product.PackSize)
	unlock := s.keyLocks.lock(key)
	defer unlock()

	s.mu.Lock()
	identity := s.identity
	s.mu.Unlock()

	if identity.IsUser() {
		canonical, err := s.remote.AddCartItem(ctx, product.ProductID, product.PackSize, quantity)
		if err != nil {
			return types.CartLine{}, s.fail(ctx, "add_item", err)
		}
		line := s.mergeCanonical(key, *canonical)
		if err := s.state.UpsertLine(ctx, identity.Scope(), line); err != nil {
			s.logPersistFailure(ctx, "add_item", err)
		}
		s.success(ctx, "add_item", product.Name+" added to cart")
		return line, nil
	}

	line := s.mergeLocal(key, product, quantity)
	if err := s.state.UpsertLine(ctx, identity.Scope(), line); err != nil {
		return types.CartLine{}, s.fail(ctx, "add_item", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist cart line"))
	}
	s.success(ctx, "add_item", product.Name+" added to cart")
	return line, nil
}

// mergeCanonical replaces any local line with the same key by the canonical
// server line.
func (s *Store) mergeCanonical(key string, canonical types.CartLine) types.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lines[key]; !ok {
		s.order = append(s.order, key)
	}
	s.lines[key] = canonical
	return canonical
}

// mergeLocal increments a guest line or creates one with a client id.
func (s *Store) mergeLocal(key string, product types.ProductSnapshot, quantity int) types.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.lines[key]; ok {
		existing.Quantity += quantity
		s.lines[key] = existing
		return existing
	}
	line := types.CartLine{
		CartItemID: uuid.NewString(),
		ProductID:  product.ProductID,
		Name:       product.Name,
		UnitPrice:  product.UnitPrice,
		ImageRef:   product.ImageRef,
		PackSize:   product.PackSize,
		Quantity:   quantity,
	}
	s.lines[key] = line
	s.order = append(s.order, key)
	return line
}

// RemoveItem removes the line locally and issues the remote delete for
// authenticated identities. The local removal is not rolled back when the
// remote delete fails; the failure is still surfaced.
func (s *Store) RemoveItem(ctx context.Context, cartItemID string) error {
	if cartItemID == "" {
		return s.fail(ctx, "remove_item", pkgerrors.New(pkgerrors.CodeValidation, "cart item id is required"))
	}

	s.mu.Lock()
	var key string
	var found bool
	for k, line := range s.lines {
		if line.CartItemID == cartItemID {
			key = k
			found = true
			break
		}
	}
	s.mu.Unlock()

	if !found {
		return s.fail(ctx, "remove_item", pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found"))
	}

	unlock := s.keyLocks.lock(key)
	defer unlock()

	s.mu.Lock()
	identity := s.identity
	var removed *types.CartLine
	if line, ok := s.lines[key]; ok && line.CartItemID == cartItemID {
		l := line
		removed = &l
		delete(s.lines, key)
		s.dropFromOrderLocked(key)
	}
	s.mu.Unlock()

	if removed == nil {
		return s.fail(ctx, "remove_item", pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found"))
	}

	if err := s.state.DeleteLine(ctx, identity.Scope(), cartItemID); err != nil {
		s.logPersistFailure(ctx, "remove_item", err)
	}

	if identity.IsUser() {
		if err := s.remote.RemoveCartItem(ctx, cartItemID); err != nil {
			// optimistic: local removal stands, caller still learns
			return s.fail(ctx, "remove_item", err)
		}
	}

	s.success(ctx, "remove_item", removed.Name+" removed from cart")
	return nil
}

// UpdateQuantity sets a line's quantity. Non-positive quantities are
// rejected outright with no remote call.
func (s *Store) UpdateQuantity(ctx context.Context, cartItemID string, quantity int) error {
	if quantity <= 0 {
		return s.fail(ctx, "update_quantity", pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive"))
	}

	s.mu.Lock()
	identity := s.identity
	var key string
	var found bool
	for k, line := range s.lines {
		if line.CartItemID == cartItemID {
			key = k
			found = true
			break
		}
	}
	s.mu.Unlock()

	if !found {
		return s.fail(ctx, "update_quantity", pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found"))
	}

	unlock := s.keyLocks.lock(key)
	defer unlock()

	if identity.IsUser() {
		updated, err := s.remote.UpdateCartItem(ctx, cartItemID, quantity)
		if err != nil {
			return s.fail(ctx, "update_quantity", err)
		}
		line := s.mergeCanonical(key, *updated)
		if err := s.state.UpsertLine(ctx, identity.Scope(), line); err != nil {
			s.logPersistFailure(ctx, "update_quantity", err)
		}
		s.success(ctx, "update_quantity", "cart updated")
		return nil
	}

	s.mu.Lock()
	line, ok := s.lines[key]
	if ok {
		line.Quantity = quantity
		s.lines[key] = line
	}
	s.mu.Unlock()
	if !ok {
		return s.fail(ctx, "update_quantity", pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found"))
	}

	if err := s.state.UpsertLine(ctx, identity.Scope(), line); err != nil {
		return s.fail(ctx, "update_quantity", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist cart line"))
	}
	s.success(ctx, "update_quantity", "cart updated")
	return nil
}

// Clear empties all local lines unconditionally. It never calls the backend;
// it is the local reset used after order placement and logout.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	scope := s.identity.Scope()
	s.lines = map[string]types.CartLine{}
	s.order = s.order[:0]
	s.mu.Unlock()

	if err := s.state.ClearScope(ctx, scope); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear persisted cart")
	}
	return nil
}

func (s *Store) dropFromOrderLocked(key string) {
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

func (s *Store) success(ctx context.Context, operation, msg string) {
	s.metrics.IncCartMutation(operation, "success")
	s.notifier.Success(ctx, msg)
}

func (s *Store) fail(ctx context.Context, operation string, err error) error {
	s.metrics.IncCartMutation(operation, "failure")
	s.notifier.Failure(ctx, err.Error())
	return err
}

func (s *Store) logPersistFailure(ctx context.Context, operation string, err error) {
	if s.logger == nil {
		return
	}
	ctx = s.logger.WithOperation(ctx, operation)
	s.logger.Warn(ctx, "failed to persist cart state: "+err.Error())
}
