package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/tabletap/orderkit/internal/domain"
	"github.com/tabletap/orderkit/internal/gateway"
)

type stubShopGateway struct {
	listFunc        func(ctx context.Context) ([]domain.Shop, error)
	getFunc         func(ctx context.Context, shopID string) (domain.Shop, error)
	byOwnerFunc     func(ctx context.Context, ownerID string) (domain.Shop, error)
	menuFunc        func(ctx context.Context, shopID string) ([]domain.MenuItem, error)
	createFunc      func(ctx context.Context, req gateway.ShopRequest) (domain.Shop, error)
	updateFunc      func(ctx context.Context, shopID string, req gateway.ShopRequest) error
	createMenuFunc  func(ctx context.Context, shopID string, req gateway.MenuItemRequest) (domain.MenuItem, error)
	updateMenuFunc  func(ctx context.Context, shopID, menuID string, req gateway.MenuItemRequest) error
	deleteMenuFunc  func(ctx context.Context, shopID, menuID string) error
	reservationsFn  func(ctx context.Context, shopID string) ([]domain.Reservation, error)
	createReserveFn func(ctx context.Context, shopID string, req gateway.ReservationRequest) (domain.Reservation, error)

	getCalls atomic.Int32
}

func (s *stubShopGateway) ListShops(ctx context.Context) ([]domain.Shop, error) {
	if s.listFunc == nil {
		return nil, nil
	}
	return s.listFunc(ctx)
}

func (s *stubShopGateway) GetShop(ctx context.Context, shopID string) (domain.Shop, error) {
	s.getCalls.Add(1)
	if s.getFunc == nil {
		return domain.Shop{}, nil
	}
	return s.getFunc(ctx, shopID)
}

func (s *stubShopGateway) ShopByOwner(ctx context.Context, ownerID string) (domain.Shop, error) {
	if s.byOwnerFunc == nil {
		return domain.Shop{}, nil
	}
	return s.byOwnerFunc(ctx, ownerID)
}

func (s *stubShopGateway) Menu(ctx context.Context, shopID string) ([]domain.MenuItem, error) {
	if s.menuFunc == nil {
		return nil, nil
	}
	return s.menuFunc(ctx, shopID)
}

func (s *stubShopGateway) CreateShop(ctx context.Context, req gateway.ShopRequest) (domain.Shop, error) {
	if s.createFunc == nil {
		return domain.Shop{}, nil
	}
	return s.createFunc(ctx, req)
}

func (s *stubShopGateway) UpdateShop(ctx context.Context, shopID string, req gateway.ShopRequest) error {
	if s.updateFunc == nil {
		return nil
	}
	return s.updateFunc(ctx, shopID, req)
}

func (s *stubShopGateway) CreateMenuItem(ctx context.Context, shopID string, req gateway.MenuItemRequest) (domain.MenuItem, error) {
	if s.createMenuFunc == nil {
		return domain.MenuItem{}, nil
	}
	return s.createMenuFunc(ctx, shopID, req)
}

func (s *stubShopGateway) UpdateMenuItem(ctx context.Context, shopID, menuID string, req gateway.MenuItemRequest) error {
	if s.updateMenuFunc == nil {
		return nil
	}
	return s.updateMenuFunc(ctx, shopID, menuID, req)
}

func (s *stubShopGateway) DeleteMenuItem(ctx context.Context, shopID, menuID string) error {
	if s.deleteMenuFunc == nil {
		return nil
	}
	return s.deleteMenuFunc(ctx, shopID, menuID)
}

func (s *stubShopGateway) ShopReservations(ctx context.Context, shopID string) ([]domain.Reservation, error) {
	if s.reservationsFn == nil {
		return nil, nil
	}
	return s.reservationsFn(ctx, shopID)
}

func (s *stubShopGateway) CreateReservation(ctx context.Context, shopID string, req gateway.ReservationRequest) (domain.Reservation, error) {
	if s.createReserveFn == nil {
		return domain.Reservation{}, nil
	}
	return s.createReserveFn(ctx, shopID, req)
}

func newShopService(t *testing.T, gw ShopGateway) *ShopService {
	t.Helper()
	service, err := NewShopService(ShopServiceDeps{Gateway: gw})
	if err != nil {
		t.Fatalf("unexpected error constructing shop service: %v", err)
	}
	return service
}

func TestShopNameMemoized(t *testing.T) {
	gw := &stubShopGateway{
		getFunc: func(ctx context.Context, shopID string) (domain.Shop, error) {
			return domain.Shop{ID: shopID, Name: "Krua Thai"}, nil
		},
	}
	service := newShopService(t, gw)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name, err := service.ShopName(context.Background(), "s1")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if name != "Krua Thai" {
				t.Errorf("unexpected name %q", name)
			}
		}()
	}
	wg.Wait()

	if _, err := service.ShopName(context.Background(), "s1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls := gw.getCalls.Load(); calls != 1 {
		t.Fatalf("expected a single shop fetch, got %d", calls)
	}
}

func TestListShopsPrimesNameCache(t *testing.T) {
	gw := &stubShopGateway{
		listFunc: func(ctx context.Context) ([]domain.Shop, error) {
			return []domain.Shop{{ID: "s1", Name: "Krua Thai"}, {ID: "s2", Name: "Noodle House"}}, nil
		},
	}
	service := newShopService(t, gw)

	if _, err := service.ListShops(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	name, err := service.ShopName(context.Background(), "s2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "Noodle House" {
		t.Fatalf("unexpected name %q", name)
	}
	if calls := gw.getCalls.Load(); calls != 0 {
		t.Fatalf("expected the list to prime the cache, got %d fetches", calls)
	}
}

func TestCreateShopValidation(t *testing.T) {
	service := newShopService(t, &stubShopGateway{})

	if _, err := service.CreateShop(context.Background(), domain.Shop{OwnerID: "v1"}); !errors.Is(err, ErrShopInvalidInput) {
		t.Fatalf("expected ErrShopInvalidInput for missing name, got %v", err)
	}
	if _, err := service.CreateShop(context.Background(), domain.Shop{Name: "Krua Thai"}); !errors.Is(err, ErrShopInvalidInput) {
		t.Fatalf("expected ErrShopInvalidInput for missing owner, got %v", err)
	}
}

func TestMenuItemValidation(t *testing.T) {
	service := newShopService(t, &stubShopGateway{})

	if _, err := service.CreateMenuItem(context.Background(), "s1", domain.MenuItem{Price: 10}); !errors.Is(err, ErrShopInvalidInput) {
		t.Fatalf("expected ErrShopInvalidInput for missing name, got %v", err)
	}
	if _, err := service.CreateMenuItem(context.Background(), "s1", domain.MenuItem{Name: "Soup", Price: -1}); !errors.Is(err, ErrShopInvalidInput) {
		t.Fatalf("expected ErrShopInvalidInput for negative price, got %v", err)
	}
	if err := service.UpdateMenuItem(context.Background(), "s1", domain.MenuItem{Name: "Soup", Price: 10}); !errors.Is(err, ErrShopInvalidInput) {
		t.Fatalf("expected ErrShopInvalidInput for missing id, got %v", err)
	}
}

func TestReserveDefaultsPartySize(t *testing.T) {
	gw := &stubShopGateway{
		createReserveFn: func(ctx context.Context, shopID string, req gateway.ReservationRequest) (domain.Reservation, error) {
			if req.People != 1 {
				t.Fatalf("expected party of one, got %d", req.People)
			}
			return domain.Reservation{ID: "r1", ShopID: shopID, People: req.People}, nil
		},
	}
	service := newShopService(t, gw)

	reservation, err := service.Reserve(context.Background(), domain.Reservation{ShopID: "s1", Phone: "0812345678"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reservation.ID != "r1" {
		t.Fatalf("unexpected reservation %+v", reservation)
	}
}

func TestReserveRequiresPhone(t *testing.T) {
	service := newShopService(t, &stubShopGateway{})

	if _, err := service.Reserve(context.Background(), domain.Reservation{ShopID: "s1"}); !errors.Is(err, ErrShopInvalidInput) {
		t.Fatalf("expected ErrShopInvalidInput, got %v", err)
	}
}
