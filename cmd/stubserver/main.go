package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tabletap/orderkit/internal/domain"
	"github.com/tabletap/orderkit/internal/platform/config"
	"github.com/tabletap/orderkit/internal/platform/observability"
	"github.com/tabletap/orderkit/internal/stubserver"
)

func main() {
	var (
		addr = flag.String("addr", "", "listen address (defaults to ORDERKIT_STUB_ADDR)")
		seed = flag.Bool("seed", true, "seed a demo shop with a small menu")
	)
	flag.Parse()

	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()
	logger = logger.Named("stubserver")

	// The stub never talks to a remote API; only its own listen address is
	// needed, so the base-URL requirement is satisfied locally.
	cfg, err := config.Load(config.WithEnvMap(map[string]string{
		"ORDERKIT_API_BASE": "http://localhost",
	}))
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	listenAddr := *addr
	if listenAddr == "" {
		listenAddr = cfg.Stub.Addr
	}

	stub := stubserver.NewServer(stubserver.ServerDeps{Logger: logger})
	if *seed {
		seedDemoData(stub, logger)
	}

	server := &http.Server{
		Addr:              listenAddr,
		Handler:           stub.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("stub backend listening", zap.String("addr", listenAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server stopped unexpectedly", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
	logger.Info("stub backend stopped")
}

func seedDemoData(stub *stubserver.Server, logger *zap.Logger) {
	shop := domain.Shop{
		ID:      "demo-shop",
		OwnerID: "demo-vendor",
		Name:    "Krua Thai",
		Address: "12 Sukhumvit Soi 4",
		Phone:   "0812345678",
	}
	stub.SeedShop(shop, []domain.MenuItem{
		{ID: "pad-thai", Name: "Pad Thai", Price: 60, Available: true},
		{ID: "green-curry", Name: "Green Curry", Price: 80, Available: true},
		{ID: "thai-tea", Name: "Thai Tea", Price: 25, Available: true},
	})
	stub.SeedOrder(domain.Order{
		ID:         "demo-order",
		ShopID:     shop.ID,
		ShopName:   shop.Name,
		CustomerID: "demo-user",
		Status:     domain.StatusPrepare,
		Items: []domain.OrderLineItem{
			{MenuID: "pad-thai", Name: "Pad Thai", UnitPrice: 60, Quantity: 1},
		},
		Total: 60,
	})
	logger.Info("seeded demo data",
		zap.String("shopId", shop.ID),
		zap.String("orderId", "demo-order"),
	)
}
