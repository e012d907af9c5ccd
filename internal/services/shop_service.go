package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/tabletap/orderkit/internal/domain"
	"github.com/tabletap/orderkit/internal/gateway"
)

var (
	// ErrShopInvalidInput signals the caller provided invalid data; no request
	// is sent.
	ErrShopInvalidInput = errors.New("shop: invalid input")
)

// ShopService exposes the catalogue and the vendor-side shop and menu
// management operations. Shop names are memoized so order-list backfills do
// not refetch the same shop repeatedly.
type ShopService struct {
	gateway ShopGateway
	logger  *zap.Logger

	nameMu    sync.Mutex
	names     map[string]string
	nameFetch singleflight.Group
}

// ShopServiceDeps bundles collaborators required to construct the shop
// service.
type ShopServiceDeps struct {
	Gateway ShopGateway
	Logger  *zap.Logger
}

// NewShopService wires dependencies into a ShopService.
func NewShopService(deps ShopServiceDeps) (*ShopService, error) {
	if deps.Gateway == nil {
		return nil, errors.New("shop service: gateway is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShopService{
		gateway: deps.Gateway,
		logger:  logger,
		names:   map[string]string{},
	}, nil
}

// ListShops returns the shop catalogue.
func (s *ShopService) ListShops(ctx context.Context) ([]domain.Shop, error) {
	shops, err := s.gateway.ListShops(ctx)
	if err != nil {
		return nil, fmt.Errorf("shop: list: %w", err)
	}

	s.nameMu.Lock()
	for _, shop := range shops {
		if shop.ID != "" && shop.Name != "" {
			s.names[shop.ID] = shop.Name
		}
	}
	s.nameMu.Unlock()
	return shops, nil
}

// GetShop returns one shop by id.
func (s *ShopService) GetShop(ctx context.Context, shopID string) (domain.Shop, error) {
	shopID = strings.TrimSpace(shopID)
	if shopID == "" {
		return domain.Shop{}, fmt.Errorf("%w: shop id is required", ErrShopInvalidInput)
	}

	shop, err := s.gateway.GetShop(ctx, shopID)
	if err != nil {
		return domain.Shop{}, fmt.Errorf("shop: get %s: %w", shopID, err)
	}
	s.remember(shop)
	return shop, nil
}

// ShopByOwner returns the shop owned by a vendor account.
func (s *ShopService) ShopByOwner(ctx context.Context, ownerID string) (domain.Shop, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return domain.Shop{}, fmt.Errorf("%w: owner id is required", ErrShopInvalidInput)
	}

	shop, err := s.gateway.ShopByOwner(ctx, ownerID)
	if err != nil {
		return domain.Shop{}, fmt.Errorf("shop: by owner %s: %w", ownerID, err)
	}
	s.remember(shop)
	return shop, nil
}

// ShopName resolves a shop's display name through a memoized lookup.
// Concurrent misses for the same shop share one fetch.
func (s *ShopService) ShopName(ctx context.Context, shopID string) (string, error) {
	shopID = strings.TrimSpace(shopID)
	if shopID == "" {
		return "", fmt.Errorf("%w: shop id is required", ErrShopInvalidInput)
	}

	s.nameMu.Lock()
	if name, ok := s.names[shopID]; ok {
		s.nameMu.Unlock()
		return name, nil
	}
	s.nameMu.Unlock()

	result, err, _ := s.nameFetch.Do(shopID, func() (any, error) {
		s.nameMu.Lock()
		if name, ok := s.names[shopID]; ok {
			s.nameMu.Unlock()
			return name, nil
		}
		s.nameMu.Unlock()

		shop, err := s.gateway.GetShop(ctx, shopID)
		if err != nil {
			return "", err
		}
		s.remember(shop)
		return shop.Name, nil
	})
	if err != nil {
		return "", fmt.Errorf("shop: name %s: %w", shopID, err)
	}
	return result.(string), nil
}

// Menu returns a shop's menu.
func (s *ShopService) Menu(ctx context.Context, shopID string) ([]domain.MenuItem, error) {
	shopID = strings.TrimSpace(shopID)
	if shopID == "" {
		return nil, fmt.Errorf("%w: shop id is required", ErrShopInvalidInput)
	}

	menu, err := s.gateway.Menu(ctx, shopID)
	if err != nil {
		return nil, fmt.Errorf("shop: menu %s: %w", shopID, err)
	}
	return menu, nil
}

// CreateShop registers a new shop for a vendor.
func (s *ShopService) CreateShop(ctx context.Context, shop domain.Shop) (domain.Shop, error) {
	if strings.TrimSpace(shop.Name) == "" {
		return domain.Shop{}, fmt.Errorf("%w: shop name is required", ErrShopInvalidInput)
	}
	if strings.TrimSpace(shop.OwnerID) == "" {
		return domain.Shop{}, fmt.Errorf("%w: owner id is required", ErrShopInvalidInput)
	}

	created, err := s.gateway.CreateShop(ctx, shopRequest(shop))
	if err != nil {
		return domain.Shop{}, fmt.Errorf("shop: create: %w", err)
	}
	s.remember(created)
	s.logger.Info("shop created",
		zap.String("shopId", created.ID),
		zap.String("ownerId", created.OwnerID),
	)
	return created, nil
}

// UpdateShop overwrites a shop's profile fields.
func (s *ShopService) UpdateShop(ctx context.Context, shop domain.Shop) error {
	if strings.TrimSpace(shop.ID) == "" {
		return fmt.Errorf("%w: shop id is required", ErrShopInvalidInput)
	}
	if strings.TrimSpace(shop.Name) == "" {
		return fmt.Errorf("%w: shop name is required", ErrShopInvalidInput)
	}

	if err := s.gateway.UpdateShop(ctx, shop.ID, shopRequest(shop)); err != nil {
		return fmt.Errorf("shop: update %s: %w", shop.ID, err)
	}
	s.remember(shop)
	return nil
}

// CreateMenuItem adds an entry to a shop's menu.
func (s *ShopService) CreateMenuItem(ctx context.Context, shopID string, item domain.MenuItem) (domain.MenuItem, error) {
	if err := validateMenuItem(shopID, item); err != nil {
		return domain.MenuItem{}, err
	}

	created, err := s.gateway.CreateMenuItem(ctx, strings.TrimSpace(shopID), menuItemRequest(item))
	if err != nil {
		return domain.MenuItem{}, fmt.Errorf("shop: create menu item: %w", err)
	}
	return created, nil
}

// UpdateMenuItem overwrites an existing menu entry.
func (s *ShopService) UpdateMenuItem(ctx context.Context, shopID string, item domain.MenuItem) error {
	if err := validateMenuItem(shopID, item); err != nil {
		return err
	}
	if strings.TrimSpace(item.ID) == "" {
		return fmt.Errorf("%w: menu item id is required", ErrShopInvalidInput)
	}

	if err := s.gateway.UpdateMenuItem(ctx, strings.TrimSpace(shopID), item.ID, menuItemRequest(item)); err != nil {
		return fmt.Errorf("shop: update menu item %s: %w", item.ID, err)
	}
	return nil
}

// DeleteMenuItem removes a menu entry.
func (s *ShopService) DeleteMenuItem(ctx context.Context, shopID, menuID string) error {
	shopID = strings.TrimSpace(shopID)
	menuID = strings.TrimSpace(menuID)
	if shopID == "" || menuID == "" {
		return fmt.Errorf("%w: shop id and menu item id are required", ErrShopInvalidInput)
	}

	if err := s.gateway.DeleteMenuItem(ctx, shopID, menuID); err != nil {
		return fmt.Errorf("shop: delete menu item %s: %w", menuID, err)
	}
	return nil
}

// Reservations returns a shop's table bookings.
func (s *ShopService) Reservations(ctx context.Context, shopID string) ([]domain.Reservation, error) {
	shopID = strings.TrimSpace(shopID)
	if shopID == "" {
		return nil, fmt.Errorf("%w: shop id is required", ErrShopInvalidInput)
	}

	reservations, err := s.gateway.ShopReservations(ctx, shopID)
	if err != nil {
		return nil, fmt.Errorf("shop: reservations %s: %w", shopID, err)
	}
	return reservations, nil
}

// Reserve books a table at a shop. A missing party size defaults to one.
func (s *ShopService) Reserve(ctx context.Context, reservation domain.Reservation) (domain.Reservation, error) {
	shopID := strings.TrimSpace(reservation.ShopID)
	if shopID == "" {
		return domain.Reservation{}, fmt.Errorf("%w: shop id is required", ErrShopInvalidInput)
	}
	if strings.TrimSpace(reservation.Phone) == "" {
		return domain.Reservation{}, fmt.Errorf("%w: contact phone is required", ErrShopInvalidInput)
	}
	people := reservation.People
	if people <= 0 {
		people = 1
	}

	req := gateway.ReservationRequest{
		UserID: strings.TrimSpace(reservation.UserID),
		Phone:  strings.TrimSpace(reservation.Phone),
		People: people,
		Note:   strings.TrimSpace(reservation.Note),
	}
	if !reservation.StartAt.IsZero() {
		req.StartAt = reservation.StartAt.UTC().Format(time.RFC3339)
	}

	created, err := s.gateway.CreateReservation(ctx, shopID, req)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("shop: reserve: %w", err)
	}
	return created, nil
}

func (s *ShopService) remember(shop domain.Shop) {
	if shop.ID == "" || shop.Name == "" {
		return
	}
	s.nameMu.Lock()
	s.names[shop.ID] = shop.Name
	s.nameMu.Unlock()
}

func validateMenuItem(shopID string, item domain.MenuItem) error {
	if strings.TrimSpace(shopID) == "" {
		return fmt.Errorf("%w: shop id is required", ErrShopInvalidInput)
	}
	if strings.TrimSpace(item.Name) == "" {
		return fmt.Errorf("%w: menu item name is required", ErrShopInvalidInput)
	}
	if item.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrShopInvalidInput)
	}
	return nil
}

func shopRequest(shop domain.Shop) gateway.ShopRequest {
	return gateway.ShopRequest{
		OwnerID:     strings.TrimSpace(shop.OwnerID),
		Name:        strings.TrimSpace(shop.Name),
		Description: strings.TrimSpace(shop.Description),
		Address:     strings.TrimSpace(shop.Address),
		Phone:       strings.TrimSpace(shop.Phone),
		ImageRef:    strings.TrimSpace(shop.ImageRef),
		OpenTime:    strings.TrimSpace(shop.OpenTime),
		CloseTime:   strings.TrimSpace(shop.CloseTime),
	}
}

func menuItemRequest(item domain.MenuItem) gateway.MenuItemRequest {
	return gateway.MenuItemRequest{
		Name:        strings.TrimSpace(item.Name),
		Price:       item.Price,
		ImageRef:    strings.TrimSpace(item.ImageRef),
		Description: strings.TrimSpace(item.Description),
		Available:   item.Available,
	}
}
