package gateway

import (
	"github.com/tabletap/orderkit/internal/domain"
)

// Decoders turn normalized records into domain values. Field fallbacks encode
// the spellings observed across backend deployments; the priority order is
// fixed so two fetches of the same payload always decode identically.

func decodeOrder(r Record) domain.Order {
	order := domain.Order{
		ID:           r.String("id"),
		ShopID:       r.String("shopId", "shop_id"),
		ShopName:     r.String("shop_name", "shopName"),
		CustomerID:   r.String("customerId", "customer_id", "userId", "user_id"),
		CustomerName: r.String("customerName", "customer_name", "user_name", "buyer"),
		Status:       domain.ParseStatus(r.String("status", "state", "order_status")),
		Note:         r.String("note"),
		CreatedAt:    r.Time("createdAt", "created_at", "time", "timestamp", "orderedAt"),
		UpdatedAt:    r.Time("updatedAt", "updated_at"),
	}
	if order.CustomerName == "" {
		if raw, ok := r["raw"].(map[string]any); ok {
			if customer, ok := raw["customer"].(map[string]any); ok {
				order.CustomerName = Record(customer).String("name")
			}
		}
	}

	for _, entry := range r.List("items") {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		line := Record(obj)
		qty := line.Int("qty", "quantity")
		if qty <= 0 {
			qty = 1
		}
		order.Items = append(order.Items, domain.OrderLineItem{
			MenuID:    line.String("menuId", "menu_id", "id"),
			Name:      line.String("name"),
			UnitPrice: line.Number("price", "unitPrice", "subtotal"),
			Quantity:  qty,
		})
	}

	order.Total = r.Number("total", "amount")
	if order.Total == 0 {
		order.Total = order.LineTotal()
	}
	return order
}

func decodeOrders(payload any) []domain.Order {
	records := Normalize(payload, KindOrders)
	if len(records) == 0 {
		return nil
	}
	orders := make([]domain.Order, 0, len(records))
	for _, record := range records {
		orders = append(orders, decodeOrder(record))
	}
	return orders
}

func decodeMenuItem(r Record) domain.MenuItem {
	available := true
	if flag, ok := r["available"].(bool); ok {
		available = flag
	}
	return domain.MenuItem{
		ID:          r.String("id"),
		ShopID:      r.String("shopId", "shop_id"),
		Name:        r.String("name"),
		Price:       r.Number("price"),
		ImageRef:    r.String("image", "imageRef", "image_url"),
		Description: r.String("description"),
		Available:   available,
	}
}

func decodeMenu(payload any) []domain.MenuItem {
	records := Normalize(payload, KindMenu)
	if len(records) == 0 {
		return nil
	}
	items := make([]domain.MenuItem, 0, len(records))
	for _, record := range records {
		items = append(items, decodeMenuItem(record))
	}
	return items
}

func decodeReservation(r Record) domain.Reservation {
	people := r.Int("people", "guests", "count", "pax")
	if people <= 0 {
		people = 1
	}
	return domain.Reservation{
		ID:        r.String("id"),
		ShopID:    r.String("shopId", "shop_id"),
		UserID:    r.String("user_id", "userId", "customer_id"),
		Phone:     r.String("phone", "customerPhone", "customer_phone"),
		People:    people,
		Note:      r.String("note", "notes", "remark"),
		StartAt:   r.Time("startAt", "start_at", "date"),
		CreatedAt: r.Time("createdAt", "created_at", "timestamp"),
	}
}

func decodeReservations(payload any) []domain.Reservation {
	records := Normalize(payload, KindReservations)
	if len(records) == 0 {
		return nil
	}
	reservations := make([]domain.Reservation, 0, len(records))
	for _, record := range records {
		reservations = append(reservations, decodeReservation(record))
	}
	return reservations
}

func decodeShop(payload any) domain.Shop {
	obj, ok := payload.(map[string]any)
	if !ok {
		return domain.Shop{}
	}
	// Some endpoints wrap the shop under a "shop" key.
	if nested, ok := obj["shop"].(map[string]any); ok {
		obj = nested
	}
	r := Record(obj)
	return domain.Shop{
		ID:          r.String("id", "ID", "shop_id", "shopId"),
		OwnerID:     r.String("owner_id", "ownerId", "vendorId", "user_id"),
		Name:        r.String("name", "shop_name", "shopName"),
		Description: r.String("description"),
		Address:     r.String("address", "location"),
		Phone:       r.String("phone", "tel"),
		ImageRef:    r.String("image", "imageRef", "image_url"),
		OpenTime:    r.String("open_time", "openTime"),
		CloseTime:   r.String("close_time", "closeTime"),
		CreatedAt:   r.Time("createdAt", "created_at"),
		UpdatedAt:   r.Time("updatedAt", "updated_at"),
	}
}

func decodeShops(payload any) []domain.Shop {
	rows, ok := payload.([]any)
	if !ok {
		if obj, isMap := payload.(map[string]any); isMap {
			for _, key := range []string{"shops", "items", "data"} {
				if list, isList := obj[key].([]any); isList {
					rows = list
					break
				}
			}
		}
	}
	if len(rows) == 0 {
		return nil
	}
	shops := make([]domain.Shop, 0, len(rows))
	for _, row := range rows {
		if obj, ok := row.(map[string]any); ok {
			shops = append(shops, decodeShop(obj))
		}
	}
	return shops
}

func decodeCart(payload any) domain.Cart {
	obj, ok := payload.(map[string]any)
	if !ok {
		return domain.Cart{}
	}
	r := Record(obj)
	cart := domain.Cart{
		ShopID:       r.String("shopId", "shop_id"),
		ShopName:     r.String("shop_name", "shopName"),
		LastSyncedAt: r.Time("updatedAt", "updated_at"),
	}
	for _, entry := range r.List("items") {
		line, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		item := Record(line)
		cart.Items = append(cart.Items, domain.CartItem{
			MenuID:      item.String("id", "menuId", "menu_id"),
			Name:        item.String("name"),
			UnitPrice:   item.Number("price"),
			Quantity:    item.Int("qty", "quantity"),
			ImageRef:    item.String("image"),
			Description: item.String("description"),
		})
	}
	return cart
}
