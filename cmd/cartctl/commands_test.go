package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const cartBody = `{"items":[{"id":1,"productId":4,"variantId":null,"quantity":2,"unitPrice":30,"product":{"id":4,"name":"Lamp","price":30}}]}`

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/cart", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, cartBody)
	})
	mux.HandleFunc("POST /api/cart/items", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, cartBody)
	})
	mux.HandleFunc("GET /api/wishlist", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"wishlist":[{"id":9,"product":{"id":7,"name":"Rug","price":80,"stock_quantity":1}}]}`)
	})
	mux.HandleFunc("GET /api/wishlist/shared/{userId}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("userId") != "42" {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"success":false,"message":"Failed to retrieve shared wishlist"}`)
			return
		}
		_, _ = io.WriteString(w, `{"success":true,"wishlist":[{"id":3,"product":{"id":5,"name":"Vase","price":25,"stock_quantity":4,"is_active":1},"created_at":"2024-03-01 10:00:00"}],"count":1}`)
	})
	mux.HandleFunc("POST /api/cart/promo-code", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"success":false,"message":"Invalid promo code"}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, baseURL string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CART_STORAGE_DRIVER", "memory")
	return executeWithStorage(t, baseURL, args...)
}

// executeWithStorage runs the command with whatever CART_STORAGE_* variables
// the caller has set.
func executeWithStorage(t *testing.T, baseURL string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CART_STOREFRONT_BASE_URL", baseURL)

	var out bytes.Buffer
	root := newRootCommand(zaptest.NewLogger(t), nil, &out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCartCommand(t *testing.T) {
	srv := newBackend(t)

	out, err := execute(t, srv.URL, "cart")
	require.NoError(t, err)

	var st struct {
		Items         []map[string]any `json:"items"`
		ItemCount     int              `json:"itemCount"`
		WishlistCount int              `json:"wishlistCount"`
		Subtotal      string           `json:"subtotal"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Len(t, st.Items, 1)
	assert.Equal(t, 2, st.ItemCount)
	assert.Equal(t, 1, st.WishlistCount)
	assert.Equal(t, "60", st.Subtotal)
}

func TestAddCommand(t *testing.T) {
	srv := newBackend(t)

	out, err := execute(t, srv.URL, "add", "4", "--qty", "2")
	require.NoError(t, err)
	assert.Contains(t, out, `"itemCount": 2`)

	_, err = execute(t, srv.URL, "add", "4", "--qty", "100")
	require.Error(t, err)
}

func TestUpdateCommand_RejectsBadQuantity(t *testing.T) {
	_, err := execute(t, "http://127.0.0.1:1", "update", "1", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "between 1 and 99")

	_, err = execute(t, "http://127.0.0.1:1", "update", "1", "many")
	require.Error(t, err)
}

func TestWishlistSharedCommand(t *testing.T) {
	srv := newBackend(t)
	path := filepath.Join(t.TempDir(), "cart.json")
	t.Setenv("CART_STORAGE_DRIVER", "file")
	t.Setenv("CART_STORAGE_PATH", path)

	out, err := executeWithStorage(t, srv.URL, "wishlist", "shared", "42")
	require.NoError(t, err)

	var got struct {
		Wishlist []struct {
			Product struct {
				ID   int    `json:"id"`
				Name string `json:"name"`
			} `json:"product"`
		} `json:"wishlist"`
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 1, got.Count)
	require.Len(t, got.Wishlist, 1)
	assert.Equal(t, "Vase", got.Wishlist[0].Product.Name)

	// Reading someone else's wishlist never writes the local snapshot.
	_, err = os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = executeWithStorage(t, srv.URL, "wishlist", "shared", "7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to retrieve shared wishlist")
}

func TestPromoApply_ServerMessage(t *testing.T) {
	srv := newBackend(t)

	_, err := execute(t, srv.URL, "promo", "apply", "bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid promo code")
}

func TestTotalsCommand(t *testing.T) {
	srv := newBackend(t)

	out, err := execute(t, srv.URL, "totals", "--shipping", "express")
	require.NoError(t, err)

	var got struct {
		Local struct {
			Total string `json:"total"`
		} `json:"local"`
		Server any `json:"server"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	// Memory storage starts empty: nothing to price, nothing to ship.
	assert.Equal(t, "0", got.Local.Total)
	assert.Nil(t, got.Server)

	_, err = execute(t, srv.URL, "totals", "--shipping", "teleport")
	require.Error(t, err)
}

func TestStatusCommand(t *testing.T) {
	srv := newBackend(t)

	out, err := execute(t, srv.URL, "status")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "ok"`)

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(down.Close)

	out, err = execute(t, down.URL, "status")
	require.Error(t, err)
	assert.Contains(t, out, `"status": "unhealthy"`)
}

func TestStatusCommand_ReportsStoredSnapshot(t *testing.T) {
	srv := newBackend(t)
	t.Setenv("CART_STORAGE_DRIVER", "file")
	t.Setenv("CART_STORAGE_PATH", filepath.Join(t.TempDir(), "cart.json"))

	out, err := executeWithStorage(t, srv.URL, "status")
	require.NoError(t, err)
	assert.Contains(t, out, `"storage": null`)

	_, err = executeWithStorage(t, srv.URL, "add", "4", "--qty", "2")
	require.NoError(t, err)

	out, err = executeWithStorage(t, srv.URL, "status")
	require.NoError(t, err)

	var got struct {
		Status  string            `json:"status"`
		Checks  map[string]string `json:"checks"`
		Storage struct {
			Driver    string `json:"driver"`
			ItemCount int    `json:"itemCount"`
			Subtotal  string `json:"subtotal"`
		} `json:"storage"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "ok", got.Status)
	assert.Equal(t, "ok", got.Checks["snapshot_file"])
	assert.Equal(t, "file", got.Storage.Driver)
	assert.Equal(t, 2, got.Storage.ItemCount)
	assert.Equal(t, "60", got.Storage.Subtotal)
}
