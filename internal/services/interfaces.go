package services

import (
	"context"

	"github.com/tabletap/orderkit/internal/domain"
	"github.com/tabletap/orderkit/internal/gateway"
)

// CartGateway is the slice of the REST client consumed by the cart service.
type CartGateway interface {
	Cart(ctx context.Context, customerID string) (domain.Cart, error)
	AddCartItem(ctx context.Context, req gateway.AddCartItemRequest) (domain.Cart, error)
	UpdateCartQuantity(ctx context.Context, customerID, menuID string, qty int) error
	Checkout(ctx context.Context, userID, customerID string) (string, error)
}

// OrderGateway is the slice of the REST client consumed by the order board.
type OrderGateway interface {
	ShopOrders(ctx context.Context, shopID string, status domain.Status) ([]domain.Order, error)
	UpdateOrderStatus(ctx context.Context, shopID, orderID string, status domain.Status) error
	ShopHistory(ctx context.Context, shopID string) ([]domain.Order, error)
}

// HistoryGateway is the slice of the REST client consumed by the customer
// history service.
type HistoryGateway interface {
	UserHistory(ctx context.Context, customerID string) ([]domain.Order, error)
	HistoryDetail(ctx context.Context, customerID, historyID string) (domain.Order, error)
}

// ShopGateway is the slice of the REST client consumed by the shop service.
type ShopGateway interface {
	ListShops(ctx context.Context) ([]domain.Shop, error)
	GetShop(ctx context.Context, shopID string) (domain.Shop, error)
	ShopByOwner(ctx context.Context, ownerID string) (domain.Shop, error)
	Menu(ctx context.Context, shopID string) ([]domain.MenuItem, error)
	CreateShop(ctx context.Context, req gateway.ShopRequest) (domain.Shop, error)
	UpdateShop(ctx context.Context, shopID string, req gateway.ShopRequest) error
	CreateMenuItem(ctx context.Context, shopID string, req gateway.MenuItemRequest) (domain.MenuItem, error)
	UpdateMenuItem(ctx context.Context, shopID, menuID string, req gateway.MenuItemRequest) error
	DeleteMenuItem(ctx context.Context, shopID, menuID string) error
	ShopReservations(ctx context.Context, shopID string) ([]domain.Reservation, error)
	CreateReservation(ctx context.Context, shopID string, req gateway.ReservationRequest) (domain.Reservation, error)
}

// IdentitySource resolves the signed-in customer's identifier. An empty
// string means no identity is available; mutating cart operations refuse to
// run without one.
type IdentitySource interface {
	CustomerID() string
}

// ShopNamer resolves a shop's display name; used to backfill order records
// whose payload omits it.
type ShopNamer interface {
	ShopName(ctx context.Context, shopID string) (string, error)
}
