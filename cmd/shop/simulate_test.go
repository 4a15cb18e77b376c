package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ShopCatalog/internal/catalog"
	"ShopCatalog/internal/format"
	"ShopCatalog/internal/report"
)

func TestSimulate_KeepsReviewCountConsistent(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewMemStore()
	for id := 1; id <= 3; id++ {
		_, _, err := store.CreateProduct(ctx, catalog.ProductSpec{ID: id, Name: "p", Price: decimal.RequireFromString("1")})
		require.NoError(t, err)
	}
	_, err := store.ReviewProduct(ctx, 1, catalog.FourStar, "seed")
	require.NoError(t, err)

	locales, err := format.NewRegistry(format.DefaultLocale, nil)
	require.NoError(t, err)
	dir := t.TempDir()

	res, err := simulate(ctx, localShop{store: store, reports: report.NewWriter(dir, store, locales, nil)}, 32, "en-GB", zap.NewNop())
	require.NoError(t, err)

	_, reviews, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(32), res.Reviews)
	assert.Equal(t, 1+int(res.Reviews), reviews)

	files, err := filepath.Glob(filepath.Join(dir, "product*_*.txt"))
	require.NoError(t, err)
	assert.Len(t, files, 32)

	raw, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Review: ")
}

func TestSimulate_EmptyCatalog(t *testing.T) {
	locales, err := format.NewRegistry(format.DefaultLocale, nil)
	require.NoError(t, err)
	store := catalog.NewMemStore()

	res, err := simulate(context.Background(), localShop{store: store, reports: report.NewWriter(t.TempDir(), store, locales, nil)}, 4, "en-GB", zap.NewNop())
	require.NoError(t, err)
	assert.Zero(t, res.Reviews)
}
