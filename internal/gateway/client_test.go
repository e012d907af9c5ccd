package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tabletap/orderkit/internal/domain"
	"github.com/tabletap/orderkit/internal/platform/httpx"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newTestClient(t *testing.T, handler http.Handler, tokens TokenSource) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientDeps{
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		Tokens:     tokens,
	})
	require.NoError(t, err)
	return client, server
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(ClientDeps{})
	require.Error(t, err)

	_, err = NewClient(ClientDeps{BaseURL: "/relative"})
	require.Error(t, err)

	_, err = NewClient(ClientDeps{BaseURL: "http://localhost:8090"})
	require.NoError(t, err)
}

func TestBaseURLPathPrefixPreserved(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path != "/api/shops" {
			httpx.WriteError(w, httpx.NewError("not_found", "no route", http.StatusNotFound))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"shops": []any{map[string]any{"id": "s1", "name": "Krua Thai"}},
		})
	}))
	t.Cleanup(server.Close)

	for _, base := range []string{server.URL + "/api", server.URL + "/api/"} {
		paths = nil
		client, err := NewClient(ClientDeps{
			BaseURL:    base,
			HTTPClient: server.Client(),
		})
		require.NoError(t, err)

		shops, err := client.ListShops(context.Background())
		require.NoError(t, err)
		require.Len(t, shops, 1, "base %q", base)
		require.Equal(t, []string{"/api/shops"}, paths, "base %q", base)
	}
}

func TestShopOrdersFallsBackAcrossSpellings(t *testing.T) {
	var paths []string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/shop/s1/orders" {
			httpx.WriteError(w, httpx.NewError("not_found", "no route", http.StatusNotFound))
			return
		}
		require.Equal(t, "/shops/s1/orders", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"orders": []any{map[string]any{"id": "o1", "status": "prepare"}},
		})
	}), nil)

	orders, err := client.ShopOrders(context.Background(), "s1", "")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Equal(t, "o1", orders[0].ID)
	require.Equal(t, []string{"/shop/s1/orders", "/shops/s1/orders"}, paths)
}

func TestShopOrdersAllNotFoundYieldsEmpty(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteError(w, httpx.NewError("not_found", "no route", http.StatusNotFound))
	}), nil)

	orders, err := client.ShopOrders(context.Background(), "s1", "")
	require.NoError(t, err)
	require.Empty(t, orders)
}

func TestExecuteStopsOnTerminalClientError(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		httpx.WriteError(w, httpx.NewError("invalid_status", "unknown status", http.StatusUnprocessableEntity))
	}), nil)

	err := client.UpdateOrderStatus(context.Background(), "s1", "o1", domain.StatusReady)
	require.Error(t, err)

	var httpErr *httpx.Error
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusUnprocessableEntity, httpErr.Status)
	require.Equal(t, int32(1), calls.Load(), "a non-404 client error must not trigger fallback")
}

func TestExecuteFallsThroughServerErrors(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			httpx.WriteError(w, httpx.NewError("internal", "boom", http.StatusInternalServerError))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}), nil)

	err := client.UpdateOrderStatus(context.Background(), "s1", "o1", domain.StatusReady)
	require.NoError(t, err)
	require.Equal(t, int32(3), calls.Load())
}

func TestExecuteSurfacesLastServerErrorOnExhaustion(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteError(w, httpx.NewError("internal", "boom", http.StatusInternalServerError))
	}), nil)

	err := client.UpdateOrderStatus(context.Background(), "s1", "o1", domain.StatusReady)
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrNotFound), "server errors must not masquerade as not-found")

	var httpErr *httpx.Error
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusInternalServerError, httpErr.Status)
}

func TestExecuteWrapsTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client, err := NewClient(ClientDeps{
		BaseURL: server.URL,
		Timeout: 250 * time.Millisecond,
	})
	require.NoError(t, err)

	_, err = client.Cart(context.Background(), "u1")
	require.ErrorIs(t, err, ErrUnreachable)
}

func TestBearerAndContentTypeHeaders(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		json.NewEncoder(w).Encode(map[string]any{"items": []any{}})
	}), staticToken("tok-1"))

	_, err := client.Cart(context.Background(), "u1")
	require.NoError(t, err)
}

func TestAuthorizationOmittedWithoutSession(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{"items": []any{}})
	}), staticToken("   "))

	_, err := client.Cart(context.Background(), "u1")
	require.NoError(t, err)
}

func TestCheckoutCarriesIdempotencyKeyAndReturnsHistoryID(t *testing.T) {
	keys := map[string]bool{}
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/cart/checkout", r.URL.Path)

		key := r.Header.Get("Idempotency-Key")
		require.NotEmpty(t, key)
		keys[key] = true

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "u1", body["userId"])
		require.Equal(t, "u1", body["customerId"])

		json.NewEncoder(w).Encode(map[string]any{"historyId": "h-77"})
	}), nil)

	for i := 0; i < 2; i++ {
		historyID, err := client.Checkout(context.Background(), "u1", "u1")
		require.NoError(t, err)
		require.Equal(t, "h-77", historyID)
	}
	require.Len(t, keys, 2, "each attempt mints its own key")
}

func TestCheckoutNumericHistoryID(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"historyId": 9001})
	}), nil)

	historyID, err := client.Checkout(context.Background(), "u1", "u1")
	require.NoError(t, err)
	require.Equal(t, "9001", historyID)
}

func TestUpdateCartQuantityPayload(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/cart/qty", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "u1", body["customerId"])
		require.Equal(t, "m1", body["menuId"])
		require.Equal(t, float64(0), body["qty"])
		w.WriteHeader(http.StatusNoContent)
	}), nil)

	require.NoError(t, client.UpdateCartQuantity(context.Background(), "u1", "m1", 0))
}

func TestCartMissingIsEmptyNotError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteError(w, httpx.NewError("not_found", "no cart", http.StatusNotFound))
	}), nil)

	cart, err := client.Cart(context.Background(), "u1")
	require.NoError(t, err)
	require.True(t, cart.Empty())
}

func TestHistoryDetailSurfacesNotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteError(w, httpx.NewError("not_found", "no record", http.StatusNotFound))
	}), nil)

	_, err := client.HistoryDetail(context.Background(), "u1", "h1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestContextCancellationStopsFallback(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		cancel()
		httpx.WriteError(w, httpx.NewError("internal", "boom", http.StatusInternalServerError))
	}), nil)

	err := client.UpdateOrderStatus(ctx, "s1", "o1", domain.StatusReady)
	require.Error(t, err)
	require.Equal(t, int32(1), calls.Load(), "a canceled context must not burn remaining candidates")
}
