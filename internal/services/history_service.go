package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tabletap/orderkit/internal/domain"
)

// HistoryService reads a customer's archived orders. Records frequently
// arrive without a shop name; when a ShopNamer is configured the service
// backfills them from the catalogue.
type HistoryService struct {
	gateway  HistoryGateway
	identity IdentitySource
	shops    ShopNamer
	logger   *zap.Logger
}

// HistoryServiceDeps bundles collaborators required to construct the history
// service. Shops is optional; without it records are returned as received.
type HistoryServiceDeps struct {
	Gateway  HistoryGateway
	Identity IdentitySource
	Shops    ShopNamer
	Logger   *zap.Logger
}

// NewHistoryService wires dependencies into a HistoryService.
func NewHistoryService(deps HistoryServiceDeps) (*HistoryService, error) {
	if deps.Gateway == nil {
		return nil, errors.New("history service: gateway is required")
	}
	if deps.Identity == nil {
		return nil, errors.New("history service: identity source is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryService{
		gateway:  deps.Gateway,
		identity: deps.Identity,
		shops:    deps.Shops,
		logger:   logger,
	}, nil
}

// History returns the signed-in customer's archived orders.
func (s *HistoryService) History(ctx context.Context) ([]domain.Order, error) {
	customerID := s.identity.CustomerID()
	if customerID == "" {
		return nil, ErrCartIdentity
	}

	orders, err := s.gateway.UserHistory(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	s.backfillShopNames(ctx, orders)
	return orders, nil
}

// Detail returns one archived order by its history id.
func (s *HistoryService) Detail(ctx context.Context, historyID string) (domain.Order, error) {
	customerID := s.identity.CustomerID()
	if customerID == "" {
		return domain.Order{}, ErrCartIdentity
	}

	order, err := s.gateway.HistoryDetail(ctx, customerID, historyID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("history: detail %s: %w", historyID, err)
	}
	if order.ShopName == "" && s.shops != nil && order.ShopID != "" {
		if name, err := s.shops.ShopName(ctx, order.ShopID); err == nil {
			order.ShopName = name
		}
	}
	return order, nil
}

func (s *HistoryService) backfillShopNames(ctx context.Context, orders []domain.Order) {
	if s.shops == nil {
		return
	}
	for i := range orders {
		if orders[i].ShopName != "" || orders[i].ShopID == "" {
			continue
		}
		name, err := s.shops.ShopName(ctx, orders[i].ShopID)
		if err != nil {
			s.logger.Debug("shop name backfill failed",
				zap.String("shopId", orders[i].ShopID),
				zap.Error(err),
			)
			continue
		}
		orders[i].ShopName = name
	}
}
