package gateway

import (
	"context"
	"fmt"
	"net/url"

	"github.com/tabletap/orderkit/internal/domain"
)

// MenuItemRequest is the wire payload for creating or updating a menu entry.
type MenuItemRequest struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	ImageRef    string  `json:"image,omitempty"`
	Description string  `json:"description,omitempty"`
	Available   bool    `json:"available"`
}

// ShopRequest is the wire payload for creating or updating a shop.
type ShopRequest struct {
	OwnerID     string `json:"owner_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Address     string `json:"address,omitempty"`
	Phone       string `json:"phone,omitempty"`
	ImageRef    string `json:"image,omitempty"`
	OpenTime    string `json:"open_time,omitempty"`
	CloseTime   string `json:"close_time,omitempty"`
}

// ReservationRequest is the wire payload for booking a table.
type ReservationRequest struct {
	UserID  string `json:"user_id"`
	Phone   string `json:"phone"`
	People  int    `json:"people"`
	Note    string `json:"note,omitempty"`
	StartAt string `json:"startAt,omitempty"`
}

// ListShops fetches the shop catalogue.
func (c *Client) ListShops(ctx context.Context) ([]domain.Shop, error) {
	payload, err := c.execute(ctx, "list_shops", []candidate{
		get("/shops"),
		get("/shop"),
	}, nil, nil, nil)
	if err != nil {
		return nil, emptyOnNotFound(err)
	}
	return decodeShops(payload), nil
}

// GetShop fetches a single shop by id.
func (c *Client) GetShop(ctx context.Context, shopID string) (domain.Shop, error) {
	id := url.PathEscape(shopID)

	payload, err := c.execute(ctx, "get_shop", []candidate{
		get("/shop/" + id),
		get("/shops/" + id),
	}, nil, nil, nil)
	if err != nil {
		return domain.Shop{}, err
	}

	shop := decodeShop(payload)
	if shop.ID == "" {
		shop.ID = shopID
	}
	return shop, nil
}

// ShopByOwner fetches the shop owned by the given vendor account.
func (c *Client) ShopByOwner(ctx context.Context, ownerID string) (domain.Shop, error) {
	uid := url.PathEscape(ownerID)

	payload, err := c.execute(ctx, "shop_by_owner", []candidate{
		get("/shop/by-id/" + uid),
		get("/shops/by-id/" + uid),
	}, nil, nil, nil)
	if err != nil {
		return domain.Shop{}, err
	}

	shop := decodeShop(payload)
	if shop.ID == "" {
		return domain.Shop{}, fmt.Errorf("%w: shop for owner %s", ErrNotFound, ownerID)
	}
	return shop, nil
}

// Menu fetches a shop's menu. A 404 from every candidate means the shop has
// not published a menu yet and yields an empty list.
func (c *Client) Menu(ctx context.Context, shopID string) ([]domain.MenuItem, error) {
	id := url.PathEscape(shopID)

	payload, err := c.execute(ctx, "shop_menu", []candidate{
		get("/shop/" + id + "/menu"),
		get("/shops/" + id + "/menu"),
	}, nil, nil, nil)
	if err != nil {
		return nil, emptyOnNotFound(err)
	}
	return decodeMenu(payload), nil
}

// CreateShop registers a new shop and returns the persisted record.
func (c *Client) CreateShop(ctx context.Context, req ShopRequest) (domain.Shop, error) {
	payload, err := c.execute(ctx, "create_shop", []candidate{
		post("/shop/create"),
		post("/shops"),
	}, nil, req, nil)
	if err != nil {
		return domain.Shop{}, err
	}
	return decodeShop(payload), nil
}

// UpdateShop overwrites a shop's profile fields.
func (c *Client) UpdateShop(ctx context.Context, shopID string, req ShopRequest) error {
	id := url.PathEscape(shopID)

	_, err := c.execute(ctx, "update_shop", []candidate{
		put("/shop/" + id + "/update"),
		put("/shops/" + id + "/update"),
	}, nil, req, nil)
	return err
}

// CreateMenuItem adds an entry to a shop's menu.
func (c *Client) CreateMenuItem(ctx context.Context, shopID string, req MenuItemRequest) (domain.MenuItem, error) {
	id := url.PathEscape(shopID)

	payload, err := c.execute(ctx, "create_menu_item", []candidate{
		post("/shop/" + id + "/menu"),
		post("/shops/" + id + "/menu"),
	}, nil, req, nil)
	if err != nil {
		return domain.MenuItem{}, err
	}

	records := Normalize(payload, KindMenu)
	if len(records) == 0 {
		return domain.MenuItem{}, fmt.Errorf("gateway: create menu item: empty response")
	}
	item := decodeMenuItem(records[0])
	if item.ShopID == "" {
		item.ShopID = shopID
	}
	return item, nil
}

// UpdateMenuItem overwrites an existing menu entry.
func (c *Client) UpdateMenuItem(ctx context.Context, shopID, menuID string, req MenuItemRequest) error {
	shop := url.PathEscape(shopID)
	menu := url.PathEscape(menuID)

	_, err := c.execute(ctx, "update_menu_item", []candidate{
		put("/shop/" + shop + "/menu/" + menu),
		put("/shops/" + shop + "/menu/" + menu),
	}, nil, req, nil)
	return err
}

// DeleteMenuItem removes a menu entry.
func (c *Client) DeleteMenuItem(ctx context.Context, shopID, menuID string) error {
	shop := url.PathEscape(shopID)
	menu := url.PathEscape(menuID)

	_, err := c.execute(ctx, "delete_menu_item", []candidate{
		del("/shop/" + shop + "/menu/" + menu),
		del("/shops/" + shop + "/menu/" + menu),
	}, nil, nil, nil)
	return err
}

// ShopReservations fetches a shop's table bookings. Missing collection means
// no bookings yet.
func (c *Client) ShopReservations(ctx context.Context, shopID string) ([]domain.Reservation, error) {
	id := url.PathEscape(shopID)

	payload, err := c.execute(ctx, "shop_reservations", []candidate{
		get("/shops/" + id + "/reservations"),
		get("/shop/" + id + "/reservations"),
	}, nil, nil, nil)
	if err != nil {
		return nil, emptyOnNotFound(err)
	}
	return decodeReservations(payload), nil
}

// CreateReservation books a table at a shop.
func (c *Client) CreateReservation(ctx context.Context, shopID string, req ReservationRequest) (domain.Reservation, error) {
	id := url.PathEscape(shopID)

	payload, err := c.execute(ctx, "create_reservation", []candidate{
		post("/shops/" + id + "/reservations"),
		post("/shop/" + id + "/reservations"),
	}, nil, req, nil)
	if err != nil {
		return domain.Reservation{}, err
	}

	records := Normalize(payload, KindReservations)
	if len(records) == 0 {
		return domain.Reservation{}, fmt.Errorf("gateway: create reservation: empty response")
	}
	reservation := decodeReservation(records[0])
	if reservation.ShopID == "" {
		reservation.ShopID = shopID
	}
	return reservation, nil
}
