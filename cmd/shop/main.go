// Command shop exercises a catalog: it seeds products, runs concurrent
// reviewing clients, prints reports and discounts and round-trips a
// snapshot. With -remote it drives a running catalog service instead.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ShopCatalog/internal/catalog"
	"ShopCatalog/internal/catalogclient"
	"ShopCatalog/internal/config"
	"ShopCatalog/internal/format"
	"ShopCatalog/internal/records"
	"ShopCatalog/internal/report"
	"ShopCatalog/internal/snapshot"
	"ShopCatalog/pkg/kit"
)

type seedProduct struct {
	id         int
	name       string
	price      string
	rating     catalog.Rating
	bestBefore int // days from today; negative means drink
}

var seed = []seedProduct{
	{101, "Tea", "1.99", catalog.ThreeStar, -1},
	{102, "Coffee", "1.99", catalog.FourStar, -1},
	{103, "Cake", "1.99", catalog.ThreeStar, 2},
	{104, "Chocolate", "2.99", catalog.FiveStar, 0},
	{105, "Cookie", "3.99", catalog.TwoStar, 0},
}

func main() {
	var (
		clients   = flag.Int("clients", 5, "concurrent simulated clients")
		locale    = flag.String("locale", "", "report locale (default from config)")
		remote    = flag.String("remote", "", "catalog service base URL; empty runs in-process")
		adminPass = flag.String("admin-password", "", "admin password for remote dump/restore")
		writeData = flag.Bool("write-data", false, "store the seeded catalog in the data directory")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	log := kit.NewLogger("shop", cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	if *locale == "" {
		*locale = cfg.DefaultLocale
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *remote != "" {
		err = runRemote(ctx, *remote, *adminPass, *clients, *locale, cfg, log)
	} else {
		err = runLocal(ctx, *clients, *locale, *writeData, cfg, log)
	}
	if err != nil {
		log.Error("shop failed", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

func runLocal(ctx context.Context, clients int, locale string, writeData bool, cfg *config.Config, log *zap.Logger) error {
	store := catalog.NewMemStore(
		catalog.WithLogger(log),
		catalog.WithSnapshots(snapshot.NewFileStore(cfg.TempDir, log)),
	)
	if err := store.LoadAll(ctx, records.NewDirLoader(cfg.DataDir, log)); err != nil {
		return err
	}

	today := time.Now()
	for _, sp := range seed {
		spec := catalog.ProductSpec{ID: sp.id, Name: sp.name, Price: decimal.RequireFromString(sp.price), Rating: sp.rating}
		if sp.bestBefore >= 0 {
			bb := today.AddDate(0, 0, sp.bestBefore)
			spec.BestBefore = &bb
		}
		if _, _, err := store.CreateProduct(ctx, spec); err != nil {
			return err
		}
	}

	if writeData {
		products, err := store.List(ctx)
		if err != nil {
			return err
		}
		for _, p := range products {
			e, err := store.Entry(ctx, p.ID())
			if err != nil {
				return err
			}
			if err := records.WriteEntry(cfg.DataDir, e); err != nil {
				return err
			}
		}
	}

	locales, err := format.NewRegistry(cfg.DefaultLocale, nil)
	if err != nil {
		return err
	}
	f := locales.For(locale)

	_, before, err := store.Stats(ctx)
	if err != nil {
		return err
	}

	res, err := simulate(ctx, localShop{store: store, reports: report.NewWriter(cfg.ReportsDir, store, locales, log)}, clients, locale, log)
	if err != nil {
		return err
	}

	_, after, err := store.Stats(ctx)
	if err != nil {
		return err
	}
	if int64(after) != int64(before)+res.Reviews {
		return fmt.Errorf("review count %d after simulation, want %d", after, int64(before)+res.Reviews)
	}
	log.Info("simulation finished",
		zap.Int64("reviews", res.Reviews),
		zap.Int64("reports", res.Reports),
		zap.Int("total_reviews", after),
	)

	fmt.Println("Products by rating:")
	if err := store.PrintProducts(ctx, catalog.All, catalog.ByRating, f, os.Stdout); err != nil {
		return err
	}

	discounts, err := store.Discounts(ctx, f)
	if err != nil {
		return err
	}
	fmt.Println("Discounts:")
	for label, total := range discounts {
		fmt.Printf("  %-5s %s\n", label, total)
	}

	handle, err := store.Dump(ctx)
	if err != nil {
		return err
	}
	if err := store.Restore(ctx); err != nil {
		return err
	}
	_, restored, err := store.Stats(ctx)
	if err != nil {
		return err
	}
	log.Info("snapshot round trip", zap.String("snapshot", handle), zap.Int("reviews", restored))
	return nil
}

func runRemote(ctx context.Context, baseURL, adminPass string, clients int, locale string, cfg *config.Config, log *zap.Logger) error {
	c := catalogclient.New(baseURL, log)

	today := time.Now()
	for _, sp := range seed {
		var bb *time.Time
		if sp.bestBefore >= 0 {
			d := today.AddDate(0, 0, sp.bestBefore)
			bb = &d
		}
		if _, _, err := c.CreateProduct(ctx, sp.id, sp.name, decimal.RequireFromString(sp.price), sp.rating, bb); err != nil {
			return err
		}
	}

	res, err := simulate(ctx, remoteShop{c: c, dir: cfg.ReportsDir}, clients, locale, log)
	if err != nil {
		return err
	}
	log.Info("remote simulation finished", zap.Int64("reviews", res.Reviews), zap.Int64("reports", res.Reports))

	discounts, err := c.Discounts(ctx, locale)
	if err != nil {
		return err
	}
	fmt.Println("Discounts:")
	for label, total := range discounts {
		fmt.Printf("  %-5s %s\n", label, total)
	}

	if adminPass == "" {
		return nil
	}
	admin, err := c.Token(ctx, adminPass)
	if err != nil {
		return err
	}
	handle, err := admin.Dump(ctx)
	if err != nil {
		return err
	}
	if err := admin.Restore(ctx); err != nil {
		return err
	}
	log.Info("remote snapshot round trip", zap.String("snapshot", handle))
	return nil
}
