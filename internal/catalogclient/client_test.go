package catalogclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"ShopCatalog/internal/auth"
	"ShopCatalog/internal/catalog"
	"ShopCatalog/internal/format"
	"ShopCatalog/internal/snapshot"
)

func newCatalogTS(t *testing.T) *httptest.Server {
	t.Helper()

	locales, err := format.NewRegistry(format.DefaultLocale, nil)
	require.NoError(t, err)
	hash, err := bcrypt.GenerateFromPassword([]byte("letmein"), bcrypt.MinCost)
	require.NoError(t, err)
	tokens := auth.NewTokenMaker("0123456789abcdef0123456789abcdef")

	s := &catalog.Server{
		Store:   catalog.NewMemStore(catalog.WithSnapshots(snapshot.NewFileStore(t.TempDir(), nil))),
		Locales: locales,
		Admin:   auth.NewAdmin(string(hash), tokens),
		Tokens:  tokens,
	}
	ts := httptest.NewServer(catalog.NewHandler(s, catalog.HandlerOptions{Log: zap.NewNop(), Service: "catalog"}))
	t.Cleanup(ts.Close)
	return ts
}

func TestClient_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := New(newCatalogTS(t).URL+"/", nil)

	bb := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	p, created, err := c.CreateProduct(ctx, 103, "Cake", decimal.RequireFromString("3.99"), catalog.NotRated, &bb)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, catalog.KindFood, p.Kind())

	_, created, err = c.CreateProduct(ctx, 103, "Cake", decimal.RequireFromString("3.99"), catalog.NotRated, &bb)
	require.NoError(t, err)
	assert.False(t, created)

	rated, err := c.Review(ctx, 103, catalog.FiveStar, "Very nice")
	require.NoError(t, err)
	assert.Equal(t, catalog.FiveStar, rated.Rating())

	e, err := c.GetEntry(ctx, 103)
	require.NoError(t, err)
	assert.Len(t, e.Reviews, 1)

	list, err := c.ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	report, err := c.ProductReport(ctx, 103, "ru-RU")
	require.NoError(t, err)
	assert.Contains(t, report, "01.12.2026")

	_, err = c.Discounts(ctx, "fr-FR")
	require.NoError(t, err)

	_, err = c.GetEntry(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_AdminDumpRestore(t *testing.T) {
	ctx := context.Background()
	c := New(newCatalogTS(t).URL, nil)

	_, _, err := c.CreateProduct(ctx, 1, "Tea", decimal.RequireFromString("1.99"), catalog.NotRated, nil)
	require.NoError(t, err)

	_, err = c.Dump(ctx)
	assert.Error(t, err)

	_, err = c.Token(ctx, "wrong")
	assert.ErrorIs(t, err, ErrBadStatus)

	admin, err := c.Token(ctx, "letmein")
	require.NoError(t, err)

	handle, err := admin.Dump(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, handle)

	list, err := c.ListProducts(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, admin.Restore(ctx))
	list, err = c.ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestClient_BreakerOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(ts.Close)

	c := New(ts.URL, nil)
	for i := 0; i < 5; i++ {
		_, err := c.ListProducts(context.Background())
		assert.ErrorIs(t, err, ErrBadStatus)
	}

	_, err := c.ListProducts(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(5), hits.Load())
}

func TestClient_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	_, err := New(url, nil).ListProducts(context.Background())
	assert.True(t, errors.Is(err, ErrUnavailable), "err=%v", err)
}
