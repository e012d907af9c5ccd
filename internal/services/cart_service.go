package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/tabletap/orderkit/internal/domain"
	"github.com/tabletap/orderkit/internal/gateway"
	"github.com/tabletap/orderkit/internal/platform/httpx"
)

var (
	// ErrCartInvalidInput signals the caller provided invalid data; no request
	// is sent.
	ErrCartInvalidInput = errors.New("cart: invalid input")
	// ErrCartEmpty rejects checkout on a cart with no items.
	ErrCartEmpty = errors.New("cart: empty")
	// ErrCartIdentity rejects cart operations when no customer identity
	// resolves.
	ErrCartIdentity = errors.New("cart: customer identity not resolved")
	// ErrCartShopConflict signals the server-side cart is bound to a different
	// shop. The previous cart is never cleared implicitly; callers decide.
	ErrCartShopConflict = errors.New("cart: bound to another shop")
)

// CartService maintains the process-local mirror of the customer's server-side
// cart. Quantity changes apply optimistically and reconcile against server
// truth on failure; the local copy is a cache, never the source of record.
type CartService struct {
	gateway  CartGateway
	identity IdentitySource
	logger   *zap.Logger

	mu     sync.Mutex
	cart   domain.Cart
	loaded bool

	// itemMu serializes quantity mutations per menu id so a rapid double-tap
	// cannot interleave two requests for the same line.
	itemMuMu sync.Mutex
	itemMu   map[string]*sync.Mutex

	refetch singleflight.Group
}

// CartServiceDeps bundles collaborators required to construct the cart service.
type CartServiceDeps struct {
	Gateway  CartGateway
	Identity IdentitySource
	Logger   *zap.Logger
}

// NewCartService wires dependencies into a CartService.
func NewCartService(deps CartServiceDeps) (*CartService, error) {
	if deps.Gateway == nil {
		return nil, errors.New("cart service: gateway is required")
	}
	if deps.Identity == nil {
		return nil, errors.New("cart service: identity source is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartService{
		gateway:  deps.Gateway,
		identity: deps.Identity,
		logger:   logger,
		itemMu:   map[string]*sync.Mutex{},
	}, nil
}

// Cart returns the local cart, fetching it on first use.
func (s *CartService) Cart(ctx context.Context) (domain.Cart, error) {
	s.mu.Lock()
	if s.loaded {
		cart := s.snapshotLocked()
		s.mu.Unlock()
		return cart, nil
	}
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// Refresh discards the local cart and reloads it from the server. Concurrent
// callers share a single fetch.
func (s *CartService) Refresh(ctx context.Context) (domain.Cart, error) {
	customerID, err := s.customerID()
	if err != nil {
		return domain.Cart{}, err
	}

	result, err, _ := s.refetch.Do("cart", func() (any, error) {
		cart, err := s.gateway.Cart(ctx, customerID)
		if err != nil {
			return domain.Cart{}, err
		}
		s.store(cart)
		return cart, nil
	})
	if err != nil {
		return domain.Cart{}, err
	}
	return result.(domain.Cart), nil
}

// SetQuantity changes one cart line. A quantity of zero or less removes the
// line. The change applies locally first; on a failed persistence call the
// cart is reconciled by refetching server truth, never by reversing the local
// delta, since another device may have mutated the cart concurrently.
func (s *CartService) SetQuantity(ctx context.Context, menuID string, qty int) (domain.Cart, error) {
	menuID = strings.TrimSpace(menuID)
	if menuID == "" {
		return domain.Cart{}, fmt.Errorf("%w: menu id is required", ErrCartInvalidInput)
	}
	customerID, err := s.customerID()
	if err != nil {
		return domain.Cart{}, err
	}
	if qty < 0 {
		qty = 0
	}

	lock := s.itemLock(menuID)
	lock.Lock()
	defer lock.Unlock()

	inserted := s.applyQuantity(menuID, qty)

	if err := s.gateway.UpdateCartQuantity(ctx, customerID, menuID, qty); err != nil {
		s.logger.Warn("cart quantity update failed, reloading server truth",
			zap.String("menuId", menuID),
			zap.Int("qty", qty),
			zap.Error(err),
		)
		if cart, refreshErr := s.Refresh(ctx); refreshErr == nil {
			return cart, fmt.Errorf("cart: set quantity: %w", err)
		}
		s.invalidate()
		return domain.Cart{}, fmt.Errorf("cart: set quantity: %w", err)
	}

	// A line created by this call carries only what the caller knew; reload so
	// the local copy matches the server-enriched record.
	if inserted {
		if cart, err := s.Refresh(ctx); err == nil {
			return cart, nil
		}
	}

	s.mu.Lock()
	cart := s.snapshotLocked()
	s.mu.Unlock()
	return cart, nil
}

// AddItem appends a menu item to the cart. A server-side 409 means the cart
// already belongs to a different shop; the previous cart is left intact and
// the caller chooses whether to ClearCart and retry.
func (s *CartService) AddItem(ctx context.Context, shop domain.Shop, item domain.MenuItem, qty int) (domain.Cart, error) {
	if strings.TrimSpace(item.ID) == "" {
		return domain.Cart{}, fmt.Errorf("%w: menu item id is required", ErrCartInvalidInput)
	}
	if qty <= 0 {
		return domain.Cart{}, fmt.Errorf("%w: quantity must be positive", ErrCartInvalidInput)
	}
	customerID, err := s.customerID()
	if err != nil {
		return domain.Cart{}, err
	}

	cart, err := s.gateway.AddCartItem(ctx, gateway.AddCartItemRequest{
		CustomerID: customerID,
		ShopID:     shop.ID,
		ShopName:   shop.Name,
		Quantity:   qty,
		Item: gateway.CartItemPayload{
			MenuID:      item.ID,
			Name:        item.Name,
			Price:       item.Price,
			ImageRef:    item.ImageRef,
			Description: item.Description,
		},
	})
	if err != nil {
		var httpErr *httpx.Error
		if errors.As(err, &httpErr) && httpErr.Status == http.StatusConflict {
			return domain.Cart{}, fmt.Errorf("%w: %s", ErrCartShopConflict, httpErr.Message)
		}
		return domain.Cart{}, fmt.Errorf("cart: add item: %w", err)
	}

	s.store(cart)
	return cart, nil
}

// Checkout converts the server-side cart into an order and returns the
// history correlation id. Preconditions are checked locally; an empty cart or
// unresolved identity never reaches the network. On success the local cart is
// cleared immediately; on failure it is left untouched.
func (s *CartService) Checkout(ctx context.Context) (string, error) {
	customerID, err := s.customerID()
	if err != nil {
		return "", err
	}

	cart, err := s.Cart(ctx)
	if err != nil {
		return "", fmt.Errorf("cart: checkout: %w", err)
	}
	if cart.Empty() {
		return "", fmt.Errorf("%w: nothing to check out", ErrCartEmpty)
	}

	historyID, err := s.gateway.Checkout(ctx, customerID, customerID)
	if err != nil {
		return "", fmt.Errorf("cart: checkout: %w", err)
	}

	s.store(domain.Cart{})
	s.logger.Info("checkout completed",
		zap.String("historyId", historyID),
		zap.String("shopId", cart.ShopID),
	)
	return historyID, nil
}

// ClearCart empties every line through the server's quantity-zero semantics,
// then drops the local copy. Used before switching shops after a
// ErrCartShopConflict.
func (s *CartService) ClearCart(ctx context.Context) error {
	customerID, err := s.customerID()
	if err != nil {
		return err
	}

	cart, err := s.Cart(ctx)
	if err != nil {
		return fmt.Errorf("cart: clear: %w", err)
	}

	for _, item := range cart.Items {
		if err := s.gateway.UpdateCartQuantity(ctx, customerID, item.MenuID, 0); err != nil {
			if _, refreshErr := s.Refresh(ctx); refreshErr != nil {
				s.invalidate()
			}
			return fmt.Errorf("cart: clear: %w", err)
		}
	}

	s.store(domain.Cart{})
	return nil
}

func (s *CartService) customerID() (string, error) {
	customerID := strings.TrimSpace(s.identity.CustomerID())
	if customerID == "" {
		return "", ErrCartIdentity
	}
	return customerID, nil
}

// applyQuantity mutates the local cart and reports whether a new line was
// created.
func (s *CartService) applyQuantity(menuID string, qty int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, item := range s.cart.Items {
		if item.MenuID != menuID {
			continue
		}
		if qty <= 0 {
			s.cart.Items = append(s.cart.Items[:i], s.cart.Items[i+1:]...)
		} else {
			s.cart.Items[i].Quantity = qty
		}
		return false
	}
	if qty > 0 {
		s.cart.Items = append(s.cart.Items, domain.CartItem{MenuID: menuID, Quantity: qty})
		return true
	}
	return false
}

func (s *CartService) store(cart domain.Cart) {
	s.mu.Lock()
	s.cart = cart
	s.loaded = true
	s.mu.Unlock()
}

func (s *CartService) invalidate() {
	s.mu.Lock()
	s.cart = domain.Cart{}
	s.loaded = false
	s.mu.Unlock()
}

func (s *CartService) snapshotLocked() domain.Cart {
	cart := s.cart
	cart.Items = append([]domain.CartItem(nil), s.cart.Items...)
	return cart
}

func (s *CartService) itemLock(menuID string) *sync.Mutex {
	s.itemMuMu.Lock()
	defer s.itemMuMu.Unlock()
	lock, ok := s.itemMu[menuID]
	if !ok {
		lock = &sync.Mutex{}
		s.itemMu[menuID] = lock
	}
	return lock
}
