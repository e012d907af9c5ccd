package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/tabletap/orderkit/internal/domain"
	"github.com/tabletap/orderkit/internal/gateway"
	"github.com/tabletap/orderkit/internal/platform/auth"
	"github.com/tabletap/orderkit/internal/platform/config"
	"github.com/tabletap/orderkit/internal/platform/observability"
	"github.com/tabletap/orderkit/internal/services"
)

const usage = `orderkit <command> [flags]

Commands:
  shops                          list the shop catalogue
  menu      -shop <id>           list a shop's menu
  cart      -user <id>           show the customer's cart
  add       -user <id> -shop <id> -item <menuId> [-qty N]
  qty       -user <id> -item <menuId> -n <qty>
  checkout  -user <id>
  orders    -shop <id>           list a shop's active orders
  advance   -shop <id> -order <id> -to <status>
  history   -shop <id> | -user <id>
`

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()
	logger = logger.Named("orderkit")

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]

	flags := flag.NewFlagSet(command, flag.ExitOnError)
	var (
		userID  = flags.String("user", "", "customer id")
		shopID  = flags.String("shop", "", "shop id")
		itemID  = flags.String("item", "", "menu item id")
		orderID = flags.String("order", "", "order id")
		target  = flags.String("to", "", "target status")
		qty     = flags.Int("qty", 1, "quantity")
		n       = flags.Int("n", 0, "new quantity")
	)
	_ = flags.Parse(os.Args[2:])

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	session := auth.NewSession(cfg.API.Token, map[string]any{"uid": *userID})
	client, err := gateway.NewClient(gateway.ClientDeps{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Tokens:  session,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal("failed to construct gateway client", zap.Error(err))
	}

	ctx := observability.WithLogger(context.Background(), logger)
	if err := run(ctx, command, client, logger, runArgs{
		userID:  *userID,
		shopID:  *shopID,
		itemID:  *itemID,
		orderID: *orderID,
		target:  *target,
		qty:     *qty,
		n:       *n,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type runArgs struct {
	userID  string
	shopID  string
	itemID  string
	orderID string
	target  string
	qty     int
	n       int
}

func run(ctx context.Context, command string, client *gateway.Client, logger *zap.Logger, args runArgs) error {
	shopSvc, err := services.NewShopService(services.ShopServiceDeps{Gateway: client, Logger: logger})
	if err != nil {
		return err
	}

	out := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer out.Flush()

	switch command {
	case "shops":
		shops, err := shopSvc.ListShops(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "ID\tNAME\tADDRESS")
		for _, shop := range shops {
			fmt.Fprintf(out, "%s\t%s\t%s\n", shop.ID, shop.Name, shop.Address)
		}
		return nil

	case "menu":
		if args.shopID == "" {
			return fmt.Errorf("menu: -shop is required")
		}
		menu, err := shopSvc.Menu(ctx, args.shopID)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "ID\tNAME\tPRICE\tAVAILABLE")
		for _, item := range menu {
			fmt.Fprintf(out, "%s\t%s\t%.2f\t%t\n", item.ID, item.Name, item.Price, item.Available)
		}
		return nil

	case "cart", "add", "qty", "checkout":
		return runCartCommand(ctx, command, client, logger, shopSvc, args)

	case "orders", "advance":
		return runBoardCommand(ctx, command, client, logger, out, args)

	case "history":
		return runHistoryCommand(ctx, client, shopSvc, logger, out, args)

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func runCartCommand(ctx context.Context, command string, client *gateway.Client, logger *zap.Logger, shopSvc *services.ShopService, args runArgs) error {
	if args.userID == "" {
		return fmt.Errorf("%s: -user is required", command)
	}
	cartSvc, err := services.NewCartService(services.CartServiceDeps{
		Gateway:  client,
		Identity: staticIdentity(args.userID),
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	switch command {
	case "cart":
		cart, err := cartSvc.Cart(ctx)
		if err != nil {
			return err
		}
		printCart(cart)
		return nil

	case "add":
		if args.shopID == "" || args.itemID == "" {
			return fmt.Errorf("add: -shop and -item are required")
		}
		shop, err := shopSvc.GetShop(ctx, args.shopID)
		if err != nil {
			return err
		}
		menu, err := shopSvc.Menu(ctx, args.shopID)
		if err != nil {
			return err
		}
		var item domain.MenuItem
		for _, candidate := range menu {
			if candidate.ID == args.itemID {
				item = candidate
				break
			}
		}
		if item.ID == "" {
			return fmt.Errorf("add: menu item %q not found in shop %q", args.itemID, args.shopID)
		}
		cart, err := cartSvc.AddItem(ctx, shop, item, args.qty)
		if err != nil {
			return err
		}
		printCart(cart)
		return nil

	case "qty":
		if args.itemID == "" {
			return fmt.Errorf("qty: -item is required")
		}
		cart, err := cartSvc.SetQuantity(ctx, args.itemID, args.n)
		if err != nil {
			return err
		}
		printCart(cart)
		return nil

	case "checkout":
		historyID, err := cartSvc.Checkout(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("checked out, history id %s\n", historyID)
		return nil
	}
	return nil
}

func runBoardCommand(ctx context.Context, command string, client *gateway.Client, logger *zap.Logger, out *tabwriter.Writer, args runArgs) error {
	if args.shopID == "" {
		return fmt.Errorf("%s: -shop is required", command)
	}
	board, err := services.NewOrderBoard(services.OrderBoardDeps{
		Gateway: client,
		ShopID:  args.shopID,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	switch command {
	case "orders":
		orders, err := board.Active(ctx)
		if err != nil {
			return err
		}
		printOrders(out, orders)
		return nil

	case "advance":
		if args.orderID == "" || args.target == "" {
			return fmt.Errorf("advance: -order and -to are required")
		}
		// The board validates; typos fail loudly instead of aliasing away.
		target := domain.Status(strings.ToLower(strings.TrimSpace(args.target)))
		if err := board.Advance(ctx, args.orderID, target); err != nil {
			return err
		}
		fmt.Printf("order %s advanced to %s\n", args.orderID, target)
		return nil
	}
	return nil
}

func runHistoryCommand(ctx context.Context, client *gateway.Client, shopSvc *services.ShopService, logger *zap.Logger, out *tabwriter.Writer, args runArgs) error {
	switch {
	case args.shopID != "":
		board, err := services.NewOrderBoard(services.OrderBoardDeps{
			Gateway: client,
			ShopID:  args.shopID,
			Logger:  logger,
		})
		if err != nil {
			return err
		}
		orders, err := board.History(ctx)
		if err != nil {
			return err
		}
		printOrders(out, orders)
		return nil

	case args.userID != "":
		historySvc, err := services.NewHistoryService(services.HistoryServiceDeps{
			Gateway:  client,
			Identity: staticIdentity(args.userID),
			Shops:    shopSvc,
			Logger:   logger,
		})
		if err != nil {
			return err
		}
		orders, err := historySvc.History(ctx)
		if err != nil {
			return err
		}
		printOrders(out, orders)
		return nil

	default:
		return fmt.Errorf("history: -shop or -user is required")
	}
}

type staticIdentity string

func (s staticIdentity) CustomerID() string { return string(s) }

func printCart(cart domain.Cart) {
	if cart.Empty() {
		fmt.Println("cart is empty")
		return
	}
	fmt.Printf("cart for %s (%s)\n", cart.ShopName, cart.ShopID)
	for _, item := range cart.Items {
		fmt.Printf("  %s x%d @ %.2f\n", item.Name, item.Quantity, item.UnitPrice)
	}
	fmt.Printf("total %.2f\n", cart.Total())
}

func printOrders(out *tabwriter.Writer, orders []domain.Order) {
	fmt.Fprintln(out, "ID\tSTATUS\tCUSTOMER\tITEMS\tTOTAL")
	for _, order := range orders {
		fmt.Fprintf(out, "%s\t%s\t%s\t%d\t%.2f\n", order.ID, order.Status, order.CustomerID, order.ItemsCount(), order.Total)
	}
}
