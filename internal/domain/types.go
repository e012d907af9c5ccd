package domain

import "time"

// Shop is a vendor storefront owning a menu and receiving orders.
type Shop struct {
	ID          string
	OwnerID     string
	Name        string
	Description string
	Address     string
	Phone       string
	ImageRef    string
	OpenTime    string
	CloseTime   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MenuItem is a single orderable entry on a shop's menu.
type MenuItem struct {
	ID          string
	ShopID      string
	Name        string
	Price       float64
	ImageRef    string
	Description string
	Available   bool
}

// CartItem is one pending selection inside a cart. Items are unique by
// MenuID; an item whose quantity drops to zero is removed from the cart.
type CartItem struct {
	MenuID      string
	Name        string
	UnitPrice   float64
	Quantity    int
	ImageRef    string
	Description string
}

// Cart is the customer-side pending selection for a single shop. Every item
// references the same shop; switching shops requires clearing the cart first.
type Cart struct {
	ShopID       string
	ShopName     string
	Items        []CartItem
	LastSyncedAt time.Time
}

// Empty reports whether the cart holds no items.
func (c Cart) Empty() bool { return len(c.Items) == 0 }

// Item returns the cart line for the given menu id, if present.
func (c Cart) Item(menuID string) (CartItem, bool) {
	for _, it := range c.Items {
		if it.MenuID == menuID {
			return it, true
		}
	}
	return CartItem{}, false
}

// Total sums quantity × unit price over all items.
func (c Cart) Total() float64 {
	var sum float64
	for _, it := range c.Items {
		sum += float64(it.Quantity) * it.UnitPrice
	}
	return sum
}

// OrderLineItem mirrors a cart item with the unit price captured at the time
// the order was placed. Menu price changes never alter historical orders.
type OrderLineItem struct {
	MenuID    string
	Name      string
	UnitPrice float64
	Quantity  int
}

// Order is a persisted, checked-out cart instance with a lifecycle status.
// Orders are immutable once they reach a terminal status and are retained
// indefinitely as history after completion.
type Order struct {
	ID           string
	ShopID       string
	ShopName     string
	CustomerID   string
	CustomerName string
	Status       Status
	Items        []OrderLineItem
	Total        float64
	Note         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ItemsCount sums line quantities, counting unspecified quantities as one.
func (o Order) ItemsCount() int {
	count := 0
	for _, it := range o.Items {
		if it.Quantity <= 0 {
			count++
			continue
		}
		count += it.Quantity
	}
	return count
}

// LineTotal computes the sum of quantity × captured unit price. The server
// remains authoritative for Order.Total; a mismatch between the two is a
// data-integrity defect that callers log rather than silently repair.
func (o Order) LineTotal() float64 {
	var sum float64
	for _, it := range o.Items {
		qty := it.Quantity
		if qty <= 0 {
			qty = 1
		}
		sum += float64(qty) * it.UnitPrice
	}
	return sum
}

// Reservation is a table booking attached to a shop.
type Reservation struct {
	ID        string
	ShopID    string
	UserID    string
	Phone     string
	People    int
	Note      string
	StartAt   time.Time
	CreatedAt time.Time
}
