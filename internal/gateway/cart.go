package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/oklog/ulid/v2"

	"github.com/tabletap/orderkit/internal/domain"
)

// AddCartItemRequest is the wire payload for appending a menu item to the
// server-side cart. Field spellings follow the backend contract.
type AddCartItemRequest struct {
	CustomerID string          `json:"customerId"`
	ShopID     string          `json:"shopId"`
	ShopName   string          `json:"shop_name"`
	Quantity   int             `json:"qty"`
	Item       CartItemPayload `json:"item"`
}

// CartItemPayload is the wire shape of one cart line.
type CartItemPayload struct {
	MenuID      string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	ImageRef    string  `json:"image,omitempty"`
	Description string  `json:"description,omitempty"`
}

// Cart fetches the customer's current cart. A missing cart is not an error;
// the customer simply has not selected anything yet.
func (c *Client) Cart(ctx context.Context, customerID string) (domain.Cart, error) {
	query := url.Values{"customerId": {customerID}}

	payload, err := c.execute(ctx, "fetch_cart", []candidate{
		get("/cart"),
	}, query, nil, nil)
	if err != nil {
		if absorbed := emptyOnNotFound(err); absorbed == nil {
			return domain.Cart{}, nil
		}
		return domain.Cart{}, err
	}
	return decodeCart(payload), nil
}

// AddCartItem appends a menu item to the server-side cart. A 409 response
// means the cart is bound to a different shop; the services layer maps it to
// its conflict sentinel.
func (c *Client) AddCartItem(ctx context.Context, req AddCartItemRequest) (domain.Cart, error) {
	payload, err := c.execute(ctx, "add_cart_item", []candidate{
		post("/cart/add"),
	}, nil, req, nil)
	if err != nil {
		return domain.Cart{}, err
	}
	return decodeCart(payload), nil
}

// UpdateCartQuantity persists a quantity change for one cart line. A quantity
// of zero removes the line on the server.
func (c *Client) UpdateCartQuantity(ctx context.Context, customerID, menuID string, qty int) error {
	body := map[string]any{
		"customerId": customerID,
		"menuId":     menuID,
		"qty":        qty,
	}
	_, err := c.execute(ctx, "update_cart_qty", []candidate{
		patch("/cart/qty"),
	}, nil, body, nil)
	return err
}

// Checkout converts the server-side cart into a persisted order and returns
// the history correlation id. The item list is deliberately absent from the
// payload: the server's cart is authoritative at checkout time. Every attempt
// carries a fresh Idempotency-Key so a backend that honors it can dedupe a
// retry after a lost response.
func (c *Client) Checkout(ctx context.Context, userID, customerID string) (string, error) {
	body := map[string]any{
		"userId":     userID,
		"customerId": customerID,
	}
	headers := http.Header{}
	headers.Set(idempotencyKeyHeader, ulid.Make().String())

	payload, err := c.execute(ctx, "checkout", []candidate{
		post("/cart/checkout"),
	}, nil, body, headers)
	if err != nil {
		return "", err
	}

	obj, ok := payload.(map[string]any)
	if !ok {
		return "", fmt.Errorf("gateway: checkout response carries no history id")
	}
	for _, key := range []string{"historyId", "history_id", "orderId", "order_id", "id"} {
		if id := identifier(obj[key]); id != "" {
			return id, nil
		}
	}
	return "", fmt.Errorf("gateway: checkout response carries no history id")
}
