// Package report writes per-client product reports to the reports directory.
package report

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"ShopCatalog/internal/catalog"
	"ShopCatalog/internal/format"
)

type Writer struct {
	dir     string
	store   catalog.Store
	locales *format.Registry
	log     *zap.Logger
}

func NewWriter(dir string, store catalog.Store, locales *format.Registry, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{dir: dir, store: store, locales: locales, log: log}
}

// FileName is the report name for product id requested by client.
func FileName(id int, client string) string {
	return fmt.Sprintf("product%d_%s.txt", id, client)
}

// ProductReport renders product id in locale and writes it for client. It
// returns the written path. Nothing is written when the product is unknown.
func (w *Writer) ProductReport(ctx context.Context, id int, locale, client string) (string, error) {
	var buf bytes.Buffer
	if err := w.store.PrintProductReport(ctx, id, w.locales.For(locale), &buf); err != nil {
		return "", err
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		w.log.Error("create reports dir failed", zap.String("dir", w.dir), zap.Error(err))
		return "", fmt.Errorf("create reports dir: %w", err)
	}

	path := filepath.Join(w.dir, FileName(id, client))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		w.log.Error("write report failed", zap.String("path", path), zap.Error(err))
		return "", fmt.Errorf("write report: %w", err)
	}

	w.log.Debug("report written", zap.Int("product_id", id), zap.String("client", client), zap.String("path", path))
	return path, nil
}
