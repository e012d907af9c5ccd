package services

import (
	"context"
	"errors"
	"testing"

	"github.com/tabletap/orderkit/internal/domain"
)

type stubHistoryGateway struct {
	historyFunc func(ctx context.Context, customerID string) ([]domain.Order, error)
	detailFunc  func(ctx context.Context, customerID, historyID string) (domain.Order, error)
}

func (s *stubHistoryGateway) UserHistory(ctx context.Context, customerID string) ([]domain.Order, error) {
	if s.historyFunc == nil {
		return nil, nil
	}
	return s.historyFunc(ctx, customerID)
}

func (s *stubHistoryGateway) HistoryDetail(ctx context.Context, customerID, historyID string) (domain.Order, error) {
	if s.detailFunc == nil {
		return domain.Order{}, nil
	}
	return s.detailFunc(ctx, customerID, historyID)
}

type stubShopNamer struct {
	names map[string]string
}

func (s *stubShopNamer) ShopName(ctx context.Context, shopID string) (string, error) {
	name, ok := s.names[shopID]
	if !ok {
		return "", errors.New("unknown shop")
	}
	return name, nil
}

func TestHistoryBackfillsShopNames(t *testing.T) {
	gw := &stubHistoryGateway{
		historyFunc: func(ctx context.Context, customerID string) ([]domain.Order, error) {
			if customerID != "u1" {
				t.Fatalf("unexpected customer id %q", customerID)
			}
			return []domain.Order{
				{ID: "h1", ShopID: "s1"},
				{ID: "h2", ShopID: "s2", ShopName: "Already Named"},
				{ID: "h3", ShopID: "ghost"},
			}, nil
		},
	}
	service, err := NewHistoryService(HistoryServiceDeps{
		Gateway:  gw,
		Identity: staticIdentity("u1"),
		Shops:    &stubShopNamer{names: map[string]string{"s1": "Krua Thai"}},
	})
	if err != nil {
		t.Fatalf("unexpected error constructing history service: %v", err)
	}

	orders, err := service.History(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if orders[0].ShopName != "Krua Thai" {
		t.Fatalf("expected backfilled name, got %q", orders[0].ShopName)
	}
	if orders[1].ShopName != "Already Named" {
		t.Fatalf("existing name must not be overwritten, got %q", orders[1].ShopName)
	}
	if orders[2].ShopName != "" {
		t.Fatalf("failed lookup must leave the record as-is, got %q", orders[2].ShopName)
	}
}

func TestHistoryRequiresIdentity(t *testing.T) {
	service, err := NewHistoryService(HistoryServiceDeps{
		Gateway:  &stubHistoryGateway{},
		Identity: staticIdentity(""),
	})
	if err != nil {
		t.Fatalf("unexpected error constructing history service: %v", err)
	}

	if _, err := service.History(context.Background()); !errors.Is(err, ErrCartIdentity) {
		t.Fatalf("expected ErrCartIdentity, got %v", err)
	}
}

func TestHistoryDetailBackfill(t *testing.T) {
	gw := &stubHistoryGateway{
		detailFunc: func(ctx context.Context, customerID, historyID string) (domain.Order, error) {
			return domain.Order{ID: historyID, ShopID: "s1", Status: domain.StatusCompleted}, nil
		},
	}
	service, err := NewHistoryService(HistoryServiceDeps{
		Gateway:  gw,
		Identity: staticIdentity("u1"),
		Shops:    &stubShopNamer{names: map[string]string{"s1": "Krua Thai"}},
	})
	if err != nil {
		t.Fatalf("unexpected error constructing history service: %v", err)
	}

	order, err := service.Detail(context.Background(), "h7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.ID != "h7" || order.ShopName != "Krua Thai" {
		t.Fatalf("unexpected order %+v", order)
	}
}
