package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ShopCatalog/internal/catalog"
	"ShopCatalog/internal/catalogclient"
	"ShopCatalog/internal/report"
)

// shop is what one simulated client can do against a catalog.
type shop interface {
	List(ctx context.Context) ([]catalog.Product, error)
	Review(ctx context.Context, id int, rating catalog.Rating, comments string) (catalog.Product, error)
	Report(ctx context.Context, id int, locale, client string) error
}

type localShop struct {
	store   *catalog.MemStore
	reports *report.Writer
}

func (s localShop) List(ctx context.Context) ([]catalog.Product, error) { return s.store.List(ctx) }

func (s localShop) Review(ctx context.Context, id int, rating catalog.Rating, comments string) (catalog.Product, error) {
	return s.store.ReviewProduct(ctx, id, rating, comments)
}

func (s localShop) Report(ctx context.Context, id int, locale, client string) error {
	_, err := s.reports.ProductReport(ctx, id, locale, client)
	return err
}

type remoteShop struct {
	c   *catalogclient.Client
	dir string
}

func (s remoteShop) List(ctx context.Context) ([]catalog.Product, error) { return s.c.ListProducts(ctx) }

func (s remoteShop) Review(ctx context.Context, id int, rating catalog.Rating, comments string) (catalog.Product, error) {
	return s.c.Review(ctx, id, rating, comments)
}

func (s remoteShop) Report(ctx context.Context, id int, locale, client string) error {
	text, err := s.c.ProductReport(ctx, id, locale)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, report.FileName(id, client)), []byte(text), 0o644)
}

type simResult struct {
	Reviews int64
	Reports int64
	Misses  int64
}

// simulate runs n clients concurrently. Each picks a product, reviews it with
// a random rating and writes a report of it for itself. Missing products
// are counted, not fatal.
func simulate(ctx context.Context, s shop, n int, locale string, log *zap.Logger) (simResult, error) {
	var res simResult
	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < n; i++ {
		g.Go(func() error {
			client := uuid.NewString()

			products, err := s.List(ctx)
			if err != nil {
				return fmt.Errorf("client %s: list: %w", client, err)
			}
			if len(products) == 0 {
				return nil
			}
			p := products[rand.IntN(len(products))]
			rating := catalog.RatingFromStars(rand.IntN(5) + 1)

			if _, err := s.Review(ctx, p.ID(), rating, "review from "+client[:8]); err != nil {
				if isNotFound(err) {
					atomic.AddInt64(&res.Misses, 1)
					return nil
				}
				return fmt.Errorf("client %s: review %d: %w", client, p.ID(), err)
			}
			atomic.AddInt64(&res.Reviews, 1)

			if err := s.Report(ctx, p.ID(), locale, client); err != nil {
				if isNotFound(err) {
					atomic.AddInt64(&res.Misses, 1)
					return nil
				}
				return fmt.Errorf("client %s: report %d: %w", client, p.ID(), err)
			}
			atomic.AddInt64(&res.Reports, 1)

			log.Debug("client done",
				zap.String("client", client),
				zap.Int("product_id", p.ID()),
				zap.Stringer("rating", rating),
			)
			return nil
		})
	}

	err := g.Wait()
	return res, err
}

func isNotFound(err error) bool {
	return errors.Is(err, catalog.ErrNotFound) || errors.Is(err, catalogclient.ErrNotFound)
}
