package gateway

import (
	"context"
	"fmt"
	"net/url"

	"github.com/tabletap/orderkit/internal/domain"
)

// ShopOrders fetches a shop's active orders, optionally filtered by status.
// A 404 from every candidate means the shop has no order collection yet and
// yields an empty list.
func (c *Client) ShopOrders(ctx context.Context, shopID string, status domain.Status) ([]domain.Order, error) {
	query := url.Values{}
	if status != "" {
		query.Set("status", string(status))
	}

	payload, err := c.execute(ctx, "shop_orders", []candidate{
		get("/shop/" + url.PathEscape(shopID) + "/orders"),
		get("/shops/" + url.PathEscape(shopID) + "/orders"),
	}, query, nil, nil)
	if err != nil {
		return nil, emptyOnNotFound(err)
	}
	return decodeOrders(payload), nil
}

// UpdateOrderStatus asks the backend to move an order to the given status.
// The flat /orders path is primary; the shop-scoped spellings cover older
// deployments.
func (c *Client) UpdateOrderStatus(ctx context.Context, shopID, orderID string, status domain.Status) error {
	shop := url.PathEscape(shopID)
	order := url.PathEscape(orderID)

	_, err := c.execute(ctx, "update_order_status", []candidate{
		put("/orders/" + order + "/status"),
		put("/shop/" + shop + "/orders/" + order + "/status"),
		put("/shops/" + shop + "/orders/" + order + "/status"),
	}, nil, map[string]any{"status": string(status)}, nil)
	return err
}

// ShopHistory fetches a shop's archived (completed) orders.
func (c *Client) ShopHistory(ctx context.Context, shopID string) ([]domain.Order, error) {
	payload, err := c.execute(ctx, "shop_history", []candidate{
		get("/shop/" + url.PathEscape(shopID) + "/history"),
		get("/shops/" + url.PathEscape(shopID) + "/history"),
	}, nil, nil, nil)
	if err != nil {
		return nil, emptyOnNotFound(err)
	}
	return decodeOrders(payload), nil
}

// UserHistory fetches a customer's archived orders.
func (c *Client) UserHistory(ctx context.Context, customerID string) ([]domain.Order, error) {
	uid := url.PathEscape(customerID)

	payload, err := c.execute(ctx, "user_history", []candidate{
		get("/" + uid + "/history"),
		get("/users/" + uid + "/history"),
	}, nil, nil, nil)
	if err != nil {
		return nil, emptyOnNotFound(err)
	}
	return decodeOrders(payload), nil
}

// HistoryDetail fetches a single archived order. Unlike the list reads, a 404
// here is surfaced: the caller asked for a specific record.
func (c *Client) HistoryDetail(ctx context.Context, customerID, historyID string) (domain.Order, error) {
	uid := url.PathEscape(customerID)
	id := url.PathEscape(historyID)

	payload, err := c.execute(ctx, "history_detail", []candidate{
		get("/" + uid + "/history/" + id),
		get("/users/" + uid + "/history/" + id),
	}, nil, nil, nil)
	if err != nil {
		return domain.Order{}, err
	}

	records := Normalize(payload, KindOrders)
	if len(records) == 0 {
		return domain.Order{}, fmt.Errorf("%w: history record %s", ErrNotFound, historyID)
	}
	return decodeOrder(records[0]), nil
}
