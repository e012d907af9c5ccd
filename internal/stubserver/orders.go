package stubserver

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tabletap/orderkit/internal/domain"
	"github.com/tabletap/orderkit/internal/platform/httpx"
	"github.com/tabletap/orderkit/internal/platform/observability"
)

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	customerID := strings.TrimSpace(r.URL.Query().Get("customerId"))
	if customerID == "" {
		httpx.WriteError(w, httpx.NewError("invalid_request", "customerId is required", http.StatusBadRequest))
		return
	}

	s.mu.Lock()
	cart, ok := s.carts[customerID]
	var payload map[string]any
	if ok {
		payload = cartJSON(cart, s.clock())
	}
	s.mu.Unlock()

	if !ok {
		httpx.WriteError(w, httpx.NewError("not_found", "no cart for customer", http.StatusNotFound))
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CustomerID string `json:"customerId"`
		ShopID     string `json:"shopId"`
		ShopName   string `json:"shop_name"`
		Quantity   int    `json:"qty"`
		Item       struct {
			ID          string  `json:"id"`
			Name        string  `json:"name"`
			Price       float64 `json:"price"`
			Image       string  `json:"image"`
			Description string  `json:"description"`
		} `json:"item"`
	}
	if err := decodeBody(r, &req); err != nil {
		httpx.WriteError(w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	if req.CustomerID == "" || req.ShopID == "" || req.Item.ID == "" {
		httpx.WriteError(w, httpx.NewError("invalid_request", "customerId, shopId and item id are required", http.StatusBadRequest))
		return
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.carts[req.CustomerID]
	if ok && len(cart.Items) > 0 && cart.ShopID != req.ShopID {
		httpx.WriteError(w, httpx.NewError("cart_shop_conflict", "cart already belongs to another shop", http.StatusConflict))
		return
	}
	if !ok {
		cart = &cartState{}
		s.carts[req.CustomerID] = cart
	}
	cart.ShopID = req.ShopID
	cart.ShopName = req.ShopName

	found := false
	for i := range cart.Items {
		if cart.Items[i].MenuID == req.Item.ID {
			cart.Items[i].Quantity += req.Quantity
			found = true
			break
		}
	}
	if !found {
		cart.Items = append(cart.Items, domain.CartItem{
			MenuID:      req.Item.ID,
			Name:        req.Item.Name,
			UnitPrice:   req.Item.Price,
			Quantity:    req.Quantity,
			ImageRef:    req.Item.Image,
			Description: req.Item.Description,
		})
	}
	writeJSON(w, http.StatusOK, cartJSON(cart, s.clock()))
}

func (s *Server) updateCartQuantity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CustomerID string `json:"customerId"`
		MenuID     string `json:"menuId"`
		Quantity   int    `json:"qty"`
	}
	if err := decodeBody(r, &req); err != nil {
		httpx.WriteError(w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	if req.CustomerID == "" || req.MenuID == "" {
		httpx.WriteError(w, httpx.NewError("invalid_request", "customerId and menuId are required", http.StatusBadRequest))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.carts[req.CustomerID]
	if !ok {
		httpx.WriteError(w, httpx.NewError("not_found", "no cart for customer", http.StatusNotFound))
		return
	}
	for i := range cart.Items {
		if cart.Items[i].MenuID != req.MenuID {
			continue
		}
		if req.Quantity <= 0 {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
		} else {
			cart.Items[i].Quantity = req.Quantity
		}
		writeJSON(w, http.StatusOK, cartJSON(cart, s.clock()))
		return
	}
	// An upsert for a line the server never saw still needs a menu record.
	if req.Quantity > 0 {
		for _, item := range s.menus[cart.ShopID] {
			if item.ID == req.MenuID {
				cart.Items = append(cart.Items, domain.CartItem{
					MenuID:      item.ID,
					Name:        item.Name,
					UnitPrice:   item.Price,
					Quantity:    req.Quantity,
					ImageRef:    item.ImageRef,
					Description: item.Description,
				})
				writeJSON(w, http.StatusOK, cartJSON(cart, s.clock()))
				return
			}
		}
	}
	httpx.WriteError(w, httpx.NewError("not_found", "menu item not in cart", http.StatusNotFound))
}

func (s *Server) checkout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID     string `json:"userId"`
		CustomerID string `json:"customerId"`
	}
	if err := decodeBody(r, &req); err != nil {
		httpx.WriteError(w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	customerID := req.CustomerID
	if customerID == "" {
		customerID = req.UserID
	}
	if customerID == "" {
		httpx.WriteError(w, httpx.NewError("invalid_request", "customerId is required", http.StatusBadRequest))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.carts[customerID]
	if !ok || len(cart.Items) == 0 {
		httpx.WriteError(w, httpx.NewError("cart_empty", "nothing to check out", http.StatusUnprocessableEntity))
		return
	}

	now := s.clock()
	order := domain.Order{
		ID:         s.newID(),
		ShopID:     cart.ShopID,
		ShopName:   cart.ShopName,
		CustomerID: customerID,
		Status:     domain.StatusPrepare,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, item := range cart.Items {
		order.Items = append(order.Items, domain.OrderLineItem{
			MenuID:    item.MenuID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}
	order.Total = order.LineTotal()

	s.orders[order.ID] = order
	delete(s.carts, customerID)

	observability.FromContext(r.Context()).Info("checkout accepted",
		zap.String("historyId", order.ID),
		zap.String("customerId", observability.SanitizeUserID(customerID)),
		zap.String("idempotencyKey", r.Header.Get("Idempotency-Key")),
	)
	writeJSON(w, http.StatusCreated, map[string]any{"historyId": order.ID})
}

func (s *Server) shopOrders(w http.ResponseWriter, r *http.Request) {
	shopID := chi.URLParam(r, "shopID")
	filter := strings.TrimSpace(r.URL.Query().Get("status"))

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.shops[shopID]; !ok {
		httpx.WriteError(w, httpx.NewError("not_found", "shop not found", http.StatusNotFound))
		return
	}

	var rows []map[string]any
	for _, order := range s.sortedOrdersLocked() {
		if order.ShopID != shopID {
			continue
		}
		if filter == "" {
			// The active view excludes archived orders.
			if order.Status.Terminal() {
				continue
			}
		} else if order.Status != domain.ParseStatus(filter) {
			continue
		}
		rows = append(rows, orderJSON(order))
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": rows})
}

func (s *Server) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	var req struct {
		Status string `json:"status"`
	}
	if err := decodeBody(r, &req); err != nil {
		httpx.WriteError(w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	target := domain.Status(strings.ToLower(strings.TrimSpace(req.Status)))
	if !domain.KnownStatus(target) {
		httpx.WriteError(w, httpx.NewError("invalid_status", "unknown status", http.StatusUnprocessableEntity))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		httpx.WriteError(w, httpx.NewError("not_found", "order not found", http.StatusNotFound))
		return
	}
	if shopID := chi.URLParam(r, "shopID"); shopID != "" && order.ShopID != shopID {
		httpx.WriteError(w, httpx.NewError("forbidden", "order belongs to another shop", http.StatusForbidden))
		return
	}
	if !order.Status.CanTransition(target) {
		httpx.WriteError(w, httpx.NewError("invalid_transition", "transition not allowed from "+string(order.Status), http.StatusUnprocessableEntity))
		return
	}

	order.Status = target
	order.UpdatedAt = s.clock()
	s.orders[orderID] = order
	writeJSON(w, http.StatusOK, orderJSON(order))
}

func (s *Server) shopHistory(w http.ResponseWriter, r *http.Request) {
	shopID := chi.URLParam(r, "shopID")

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.shops[shopID]; !ok {
		httpx.WriteError(w, httpx.NewError("not_found", "shop not found", http.StatusNotFound))
		return
	}

	var rows []map[string]any
	for _, order := range s.sortedOrdersLocked() {
		if order.ShopID == shopID && order.Status == domain.StatusCompleted {
			rows = append(rows, orderJSON(order))
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": rows})
}

func (s *Server) userHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []map[string]any
	for _, order := range s.sortedOrdersLocked() {
		if order.CustomerID == userID {
			rows = append(rows, orderJSON(order))
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": rows})
}

func (s *Server) historyDetail(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	historyID := chi.URLParam(r, "historyID")

	s.mu.Lock()
	order, ok := s.orders[historyID]
	s.mu.Unlock()

	if !ok || order.CustomerID != userID {
		httpx.WriteError(w, httpx.NewError("not_found", "history record not found", http.StatusNotFound))
		return
	}
	writeJSON(w, http.StatusOK, orderJSON(order))
}

func (s *Server) listReservations(w http.ResponseWriter, r *http.Request) {
	shopID := chi.URLParam(r, "shopID")

	s.mu.Lock()
	reservations, ok := s.reservations[shopID]
	rows := make([]map[string]any, 0, len(reservations))
	for _, reservation := range reservations {
		rows = append(rows, reservationJSON(reservation))
	}
	s.mu.Unlock()

	if !ok {
		httpx.WriteError(w, httpx.NewError("not_found", "reservations not provisioned", http.StatusNotFound))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reservations": rows})
}

func (s *Server) createReservation(w http.ResponseWriter, r *http.Request) {
	shopID := chi.URLParam(r, "shopID")
	var req struct {
		UserID  string `json:"user_id"`
		Phone   string `json:"phone"`
		People  int    `json:"people"`
		Note    string `json:"note"`
		StartAt string `json:"startAt"`
	}
	if err := decodeBody(r, &req); err != nil {
		httpx.WriteError(w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	if strings.TrimSpace(req.Phone) == "" {
		httpx.WriteError(w, httpx.NewError("invalid_request", "phone is required", http.StatusBadRequest))
		return
	}
	if req.People <= 0 {
		req.People = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.shops[shopID]; !ok {
		httpx.WriteError(w, httpx.NewError("not_found", "shop not found", http.StatusNotFound))
		return
	}

	reservation := domain.Reservation{
		ID:        s.newID(),
		ShopID:    shopID,
		UserID:    req.UserID,
		Phone:     req.Phone,
		People:    req.People,
		Note:      req.Note,
		CreatedAt: s.clock(),
	}
	s.reservations[shopID] = append(s.reservations[shopID], reservation)
	writeJSON(w, http.StatusCreated, reservationJSON(reservation))
}

// sortedOrdersLocked returns orders oldest-first for stable list responses.
func (s *Server) sortedOrdersLocked() []domain.Order {
	orders := make([]domain.Order, 0, len(s.orders))
	for _, order := range s.orders {
		orders = append(orders, order)
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
	return orders
}

func cartJSON(cart *cartState, now time.Time) map[string]any {
	items := make([]map[string]any, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, map[string]any{
			"id":          item.MenuID,
			"name":        item.Name,
			"price":       item.UnitPrice,
			"qty":         item.Quantity,
			"image":       item.ImageRef,
			"description": item.Description,
		})
	}
	return map[string]any{
		"shopId":    cart.ShopID,
		"shop_name": cart.ShopName,
		"items":     items,
		"updatedAt": now.UTC().Format(time.RFC3339),
	}
}

func orderJSON(order domain.Order) map[string]any {
	items := make([]map[string]any, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, map[string]any{
			"menuId": item.MenuID,
			"name":   item.Name,
			"price":  item.UnitPrice,
			"qty":    item.Quantity,
		})
	}
	return map[string]any{
		"id":         order.ID,
		"shopId":     order.ShopID,
		"shop_name":  order.ShopName,
		"customerId": order.CustomerID,
		"status":     string(order.Status),
		"items":      items,
		"total":      order.Total,
		"note":       order.Note,
		"createdAt":  timeJSON(order.CreatedAt),
		"updatedAt":  timeJSON(order.UpdatedAt),
	}
}

func reservationJSON(reservation domain.Reservation) map[string]any {
	return map[string]any{
		"id":        reservation.ID,
		"shopId":    reservation.ShopID,
		"user_id":   reservation.UserID,
		"phone":     reservation.Phone,
		"people":    reservation.People,
		"note":      reservation.Note,
		"createdAt": timeJSON(reservation.CreatedAt),
	}
}
