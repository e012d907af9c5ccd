package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/tabletap/orderkit/internal/domain"
)

var (
	// ErrOrderInvalidStatus rejects an unknown target status before any
	// request is issued.
	ErrOrderInvalidStatus = errors.New("order: invalid status")
	// ErrOrderInvalidState rejects a transition the state machine forbids,
	// including any transition out of a terminal state.
	ErrOrderInvalidState = errors.New("order: invalid status transition")
	// ErrOrderUnknown indicates the order is not present on the board.
	ErrOrderUnknown = errors.New("order: unknown order")
	// ErrOrderInFlight rejects a second transition for an order while one is
	// outstanding.
	ErrOrderInFlight = errors.New("order: transition already in flight")
)

// OrderBoard drives a single shop's active orders through the status state
// machine. Transitions apply optimistically to the local list and reconcile
// against server truth when the request fails. The board is a cache of
// server-owned state; it never holds a lock over server resources, and the
// only mutual exclusion is the per-order in-flight flag.
type OrderBoard struct {
	gateway OrderGateway
	shopID  string
	logger  *zap.Logger

	mu      sync.Mutex
	active  []domain.Order
	history []domain.Order
	loaded  bool

	inflight map[string]bool

	refetch singleflight.Group
}

// OrderBoardDeps bundles collaborators required to construct an order board.
type OrderBoardDeps struct {
	Gateway OrderGateway
	ShopID  string
	Logger  *zap.Logger
}

// NewOrderBoard wires dependencies into an OrderBoard.
func NewOrderBoard(deps OrderBoardDeps) (*OrderBoard, error) {
	if deps.Gateway == nil {
		return nil, errors.New("order board: gateway is required")
	}
	shopID := strings.TrimSpace(deps.ShopID)
	if shopID == "" {
		return nil, errors.New("order board: shop id is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderBoard{
		gateway:  deps.Gateway,
		shopID:   shopID,
		logger:   logger,
		inflight: map[string]bool{},
	}, nil
}

// Active returns the current active order list, fetching it on first use.
func (b *OrderBoard) Active(ctx context.Context) ([]domain.Order, error) {
	b.mu.Lock()
	if b.loaded {
		orders := append([]domain.Order(nil), b.active...)
		b.mu.Unlock()
		return orders, nil
	}
	b.mu.Unlock()
	return b.Refresh(ctx)
}

// Refresh reloads the active order list from the server. Concurrent callers
// share a single fetch.
func (b *OrderBoard) Refresh(ctx context.Context) ([]domain.Order, error) {
	result, err, _ := b.refetch.Do("active", func() (any, error) {
		orders, err := b.gateway.ShopOrders(ctx, b.shopID, "")
		if err != nil {
			return nil, err
		}
		b.auditTotals(orders)

		b.mu.Lock()
		b.active = orders
		b.loaded = true
		b.mu.Unlock()
		return orders, nil
	})
	if err != nil {
		return nil, err
	}
	orders := result.([]domain.Order)
	return append([]domain.Order(nil), orders...), nil
}

// History returns the shop's archived orders. Deployments that never
// provisioned the history collection answer 404, which the gateway absorbs to
// an empty list; in that case completed orders are recovered from the active
// collection's status filter.
func (b *OrderBoard) History(ctx context.Context) ([]domain.Order, error) {
	orders, err := b.gateway.ShopHistory(ctx, b.shopID)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		orders, err = b.gateway.ShopOrders(ctx, b.shopID, domain.StatusCompleted)
		if err != nil {
			return nil, err
		}
	}
	b.auditTotals(orders)

	b.mu.Lock()
	b.history = append([]domain.Order(nil), orders...)
	b.mu.Unlock()
	return orders, nil
}

// Advance moves an order to the target status.
//
// The transition applies to the local list before the request is issued so
// callers see the change immediately. On success a completed order leaves the
// active list and the history is refreshed from the server, since archival may
// move or reshape the record. On failure the board refetches the authoritative
// list; it never stays in the optimistic-but-unconfirmed state after a
// confirmed failure.
func (b *OrderBoard) Advance(ctx context.Context, orderID string, target domain.Status) error {
	if !domain.KnownStatus(target) || target == domain.StatusPrepare {
		return fmt.Errorf("%w: %q", ErrOrderInvalidStatus, target)
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return fmt.Errorf("%w: order id is required", ErrOrderInvalidStatus)
	}

	if _, err := b.Active(ctx); err != nil {
		return fmt.Errorf("order: advance: %w", err)
	}

	b.mu.Lock()
	current, ok := b.findLocked(orderID)
	if !ok {
		b.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrOrderUnknown, orderID)
	}
	if !current.CanTransition(target) {
		b.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrOrderInvalidState, current, target)
	}
	if b.inflight[orderID] {
		b.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrOrderInFlight, orderID)
	}
	b.inflight[orderID] = true
	b.setStatusLocked(orderID, target)
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.inflight, orderID)
		b.mu.Unlock()
	}()

	if err := b.gateway.UpdateOrderStatus(ctx, b.shopID, orderID, target); err != nil {
		b.logger.Warn("status update failed, reloading server truth",
			zap.String("orderId", orderID),
			zap.String("from", string(current)),
			zap.String("to", string(target)),
			zap.Error(err),
		)
		if _, refreshErr := b.Refresh(ctx); refreshErr != nil {
			b.logger.Error("rollback refetch failed",
				zap.String("orderId", orderID),
				zap.Error(refreshErr),
			)
			b.mu.Lock()
			b.loaded = false
			b.mu.Unlock()
		}
		return fmt.Errorf("order: advance %s: %w", orderID, err)
	}

	b.logger.Info("order status advanced",
		zap.String("orderId", orderID),
		zap.String("from", string(current)),
		zap.String("to", string(target)),
	)

	if target.Terminal() {
		b.mu.Lock()
		b.removeLocked(orderID)
		b.mu.Unlock()
	}
	if target == domain.StatusCompleted {
		// Completion may trigger server-side archival; the history view is
		// refreshed rather than assumed in sync.
		if _, err := b.History(ctx); err != nil {
			b.logger.Warn("history refresh after completion failed",
				zap.String("orderId", orderID),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (b *OrderBoard) findLocked(orderID string) (domain.Status, bool) {
	for _, order := range b.active {
		if order.ID == orderID {
			return order.Status, true
		}
	}
	return "", false
}

func (b *OrderBoard) setStatusLocked(orderID string, status domain.Status) {
	for i := range b.active {
		if b.active[i].ID == orderID {
			b.active[i].Status = status
			return
		}
	}
}

func (b *OrderBoard) removeLocked(orderID string) {
	for i := range b.active {
		if b.active[i].ID == orderID {
			b.active = append(b.active[:i], b.active[i+1:]...)
			return
		}
	}
}

// auditTotals flags records whose server total disagrees with the line sum.
// The mismatch is a data-integrity defect to surface, never to silently
// repair.
func (b *OrderBoard) auditTotals(orders []domain.Order) {
	for _, order := range orders {
		if len(order.Items) == 0 {
			continue
		}
		if lineTotal := order.LineTotal(); lineTotal != order.Total {
			b.logger.Warn("order total does not match line sum",
				zap.String("orderId", order.ID),
				zap.Float64("total", order.Total),
				zap.Float64("lineTotal", lineTotal),
			)
		}
	}
}
