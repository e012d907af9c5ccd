package stubserver

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/tabletap/orderkit/internal/domain"
	"github.com/tabletap/orderkit/internal/platform/httpx"
	"github.com/tabletap/orderkit/internal/platform/observability"
)

const maxRequestBody = 256 * 1024

// Server is an in-memory backend speaking the ordering REST surface. Every
// collection is served under both the /shop and /shops path spellings, which
// is what makes it a useful exercise rig for the gateway's candidate
// fallback. State lives in process memory and is lost on restart.
type Server struct {
	logger *zap.Logger
	clock  func() time.Time
	newID  func() string

	mu           sync.Mutex
	shops        map[string]domain.Shop
	menus        map[string][]domain.MenuItem
	carts        map[string]*cartState
	orders       map[string]domain.Order
	reservations map[string][]domain.Reservation
}

type cartState struct {
	ShopID   string
	ShopName string
	Items    []domain.CartItem
}

// ServerDeps bundles collaborators required to construct the stub server.
type ServerDeps struct {
	Logger *zap.Logger
	Clock  func() time.Time
	IDGen  func() string
}

// NewServer wires dependencies into a Server.
func NewServer(deps ServerDeps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := deps.IDGen
	if newID == nil {
		newID = func() string { return ulid.Make().String() }
	}
	return &Server{
		logger:       logger,
		clock:        func() time.Time { return clock().UTC() },
		newID:        newID,
		shops:        map[string]domain.Shop{},
		menus:        map[string][]domain.MenuItem{},
		carts:        map[string]*cartState{},
		orders:       map[string]domain.Order{},
		reservations: map[string][]domain.Reservation{},
	}
}

// Handler builds the chi router for the whole surface.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.logRequests)

	r.Get("/shops", s.listShops)
	r.Get("/shop", s.listShops)
	r.Post("/shop/create", s.createShop)
	r.Post("/shops", s.createShop)

	for _, prefix := range []string{"/shop", "/shops"} {
		r.Get(prefix+"/by-id/{ownerID}", s.shopByOwner)
		r.Route(prefix+"/{shopID}", func(rt chi.Router) {
			rt.Get("/", s.getShop)
			rt.Put("/update", s.updateShop)
			rt.Get("/menu", s.listMenu)
			rt.Post("/menu", s.createMenuItem)
			rt.Put("/menu/{menuID}", s.updateMenuItem)
			rt.Delete("/menu/{menuID}", s.deleteMenuItem)
			rt.Get("/orders", s.shopOrders)
			rt.Put("/orders/{orderID}/status", s.updateOrderStatus)
			rt.Get("/history", s.shopHistory)
			rt.Get("/reservations", s.listReservations)
			rt.Post("/reservations", s.createReservation)
		})
	}

	r.Put("/orders/{orderID}/status", s.updateOrderStatus)

	r.Get("/cart", s.getCart)
	r.Post("/cart/add", s.addCartItem)
	r.Patch("/cart/qty", s.updateCartQuantity)
	r.Post("/cart/checkout", s.checkout)

	r.Get("/users/{userID}/history", s.userHistory)
	r.Get("/users/{userID}/history/{historyID}", s.historyDetail)
	r.Get("/{userID}/history", s.userHistory)
	r.Get("/{userID}/history/{historyID}", s.historyDetail)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteError(w, httpx.NewError("not_found", "no such route", http.StatusNotFound))
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.clock()
		ctx := observability.WithLogger(r.Context(), s.logger)
		next.ServeHTTP(w, r.WithContext(ctx))
		s.logger.Debug("request served",
			zap.String("method", observability.SanitizeMethod(r.Method)),
			zap.String("path", observability.SanitizeRoute(r.URL.Path)),
			zap.Duration("elapsed", s.clock().Sub(start)),
		)
	})
}

// SeedShop installs a shop with its menu; used by tests and the dev loop.
func (s *Server) SeedShop(shop domain.Shop, menu []domain.MenuItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if shop.ID == "" {
		shop.ID = s.newID()
	}
	s.shops[shop.ID] = shop
	for i := range menu {
		if menu[i].ID == "" {
			menu[i].ID = s.newID()
		}
		menu[i].ShopID = shop.ID
	}
	s.menus[shop.ID] = menu
}

// SeedOrder installs an order; used by tests.
func (s *Server) SeedOrder(order domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if order.ID == "" {
		order.ID = s.newID()
	}
	if order.Status == "" {
		order.Status = domain.StatusPrepare
	}
	s.orders[order.ID] = order
}

func (s *Server) listShops(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	shops := make([]map[string]any, 0, len(s.shops))
	for _, shop := range s.shops {
		shops = append(shops, shopJSON(shop))
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"shops": shops})
}

func (s *Server) getShop(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	shop, ok := s.shops[chi.URLParam(r, "shopID")]
	s.mu.Unlock()
	if !ok {
		httpx.WriteError(w, httpx.NewError("not_found", "shop not found", http.StatusNotFound))
		return
	}
	writeJSON(w, http.StatusOK, shopJSON(shop))
}

func (s *Server) shopByOwner(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerID")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, shop := range s.shops {
		if shop.OwnerID == ownerID {
			writeJSON(w, http.StatusOK, shopJSON(shop))
			return
		}
	}
	httpx.WriteError(w, httpx.NewError("not_found", "no shop for owner", http.StatusNotFound))
}

func (s *Server) createShop(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OwnerID     string `json:"owner_id"`
		Name        string `json:"name"`
		Description string `json:"description"`
		Address     string `json:"address"`
		Phone       string `json:"phone"`
		Image       string `json:"image"`
		OpenTime    string `json:"open_time"`
		CloseTime   string `json:"close_time"`
	}
	if err := decodeBody(r, &req); err != nil {
		httpx.WriteError(w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		httpx.WriteError(w, httpx.NewError("invalid_request", "shop name is required", http.StatusBadRequest))
		return
	}

	now := s.clock()
	shop := domain.Shop{
		ID:          s.newID(),
		OwnerID:     req.OwnerID,
		Name:        req.Name,
		Description: req.Description,
		Address:     req.Address,
		Phone:       req.Phone,
		ImageRef:    req.Image,
		OpenTime:    req.OpenTime,
		CloseTime:   req.CloseTime,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.mu.Lock()
	s.shops[shop.ID] = shop
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, shopJSON(shop))
}

func (s *Server) updateShop(w http.ResponseWriter, r *http.Request) {
	shopID := chi.URLParam(r, "shopID")
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Address     string `json:"address"`
		Phone       string `json:"phone"`
		Image       string `json:"image"`
		OpenTime    string `json:"open_time"`
		CloseTime   string `json:"close_time"`
	}
	if err := decodeBody(r, &req); err != nil {
		httpx.WriteError(w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	s.mu.Lock()
	shop, ok := s.shops[shopID]
	if ok {
		if req.Name != "" {
			shop.Name = req.Name
		}
		shop.Description = req.Description
		shop.Address = req.Address
		shop.Phone = req.Phone
		shop.ImageRef = req.Image
		shop.OpenTime = req.OpenTime
		shop.CloseTime = req.CloseTime
		shop.UpdatedAt = s.clock()
		s.shops[shopID] = shop
	}
	s.mu.Unlock()

	if !ok {
		httpx.WriteError(w, httpx.NewError("not_found", "shop not found", http.StatusNotFound))
		return
	}
	writeJSON(w, http.StatusOK, shopJSON(shop))
}

func (s *Server) listMenu(w http.ResponseWriter, r *http.Request) {
	shopID := chi.URLParam(r, "shopID")
	s.mu.Lock()
	menu, ok := s.menus[shopID]
	items := make([]map[string]any, 0, len(menu))
	for _, item := range menu {
		items = append(items, menuItemJSON(item))
	}
	s.mu.Unlock()

	if !ok {
		httpx.WriteError(w, httpx.NewError("not_found", "menu not provisioned", http.StatusNotFound))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"menu": items})
}

func (s *Server) createMenuItem(w http.ResponseWriter, r *http.Request) {
	shopID := chi.URLParam(r, "shopID")
	var req struct {
		Name        string  `json:"name"`
		Price       float64 `json:"price"`
		Image       string  `json:"image"`
		Description string  `json:"description"`
		Available   bool    `json:"available"`
	}
	if err := decodeBody(r, &req); err != nil {
		httpx.WriteError(w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		httpx.WriteError(w, httpx.NewError("invalid_request", "menu item name is required", http.StatusBadRequest))
		return
	}

	s.mu.Lock()
	_, ok := s.shops[shopID]
	var item domain.MenuItem
	if ok {
		item = domain.MenuItem{
			ID:          s.newID(),
			ShopID:      shopID,
			Name:        req.Name,
			Price:       req.Price,
			ImageRef:    req.Image,
			Description: req.Description,
			Available:   req.Available,
		}
		s.menus[shopID] = append(s.menus[shopID], item)
	}
	s.mu.Unlock()

	if !ok {
		httpx.WriteError(w, httpx.NewError("not_found", "shop not found", http.StatusNotFound))
		return
	}
	writeJSON(w, http.StatusCreated, menuItemJSON(item))
}

func (s *Server) updateMenuItem(w http.ResponseWriter, r *http.Request) {
	shopID := chi.URLParam(r, "shopID")
	menuID := chi.URLParam(r, "menuID")
	var req struct {
		Name        string  `json:"name"`
		Price       float64 `json:"price"`
		Image       string  `json:"image"`
		Description string  `json:"description"`
		Available   bool    `json:"available"`
	}
	if err := decodeBody(r, &req); err != nil {
		httpx.WriteError(w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, item := range s.menus[shopID] {
		if item.ID != menuID {
			continue
		}
		item.Name = req.Name
		item.Price = req.Price
		item.ImageRef = req.Image
		item.Description = req.Description
		item.Available = req.Available
		s.menus[shopID][i] = item
		writeJSON(w, http.StatusOK, menuItemJSON(item))
		return
	}
	httpx.WriteError(w, httpx.NewError("not_found", "menu item not found", http.StatusNotFound))
}

func (s *Server) deleteMenuItem(w http.ResponseWriter, r *http.Request) {
	shopID := chi.URLParam(r, "shopID")
	menuID := chi.URLParam(r, "menuID")

	s.mu.Lock()
	defer s.mu.Unlock()
	menu := s.menus[shopID]
	for i, item := range menu {
		if item.ID != menuID {
			continue
		}
		s.menus[shopID] = append(menu[:i], menu[i+1:]...)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	httpx.WriteError(w, httpx.NewError("not_found", "menu item not found", http.StatusNotFound))
}

func decodeBody(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func shopJSON(shop domain.Shop) map[string]any {
	return map[string]any{
		"id":          shop.ID,
		"owner_id":    shop.OwnerID,
		"name":        shop.Name,
		"description": shop.Description,
		"address":     shop.Address,
		"phone":       shop.Phone,
		"image":       shop.ImageRef,
		"open_time":   shop.OpenTime,
		"close_time":  shop.CloseTime,
		"createdAt":   timeJSON(shop.CreatedAt),
		"updatedAt":   timeJSON(shop.UpdatedAt),
	}
}

func menuItemJSON(item domain.MenuItem) map[string]any {
	return map[string]any{
		"id":          item.ID,
		"shopId":      item.ShopID,
		"name":        item.Name,
		"price":       item.Price,
		"image":       item.ImageRef,
		"description": item.Description,
		"available":   item.Available,
	}
}

func timeJSON(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
