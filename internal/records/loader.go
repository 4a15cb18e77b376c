package records

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"

	"ShopCatalog/internal/catalog"
)

const productPrefix = "product"

func reviewsFile(id int) string { return fmt.Sprintf("reviews%d.txt", id) }
func productFile(id int) string { return fmt.Sprintf("product%d.txt", id) }

// Loader reads one product per "product*" file (first line only) and the
// reviews of product N from "reviewsN.txt". Malformed records are skipped.
type Loader struct {
	fsys fs.FS
	log  *zap.Logger
}

func NewLoader(fsys fs.FS, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{fsys: fsys, log: log}
}

// NewDirLoader reads from a directory on disk.
func NewDirLoader(dir string, log *zap.Logger) *Loader {
	return NewLoader(os.DirFS(dir), log)
}

func (l *Loader) LoadAll(ctx context.Context) ([]catalog.Entry, error) {
	names, err := fs.Glob(l.fsys, productPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("list product files: %w", err)
	}
	slices.Sort(names)

	out := make([]catalog.Entry, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p, err := l.loadProduct(name)
		if err != nil {
			l.log.Warn("skip product file", zap.String("file", name), zap.Error(err))
			continue
		}
		reviews, err := l.loadReviews(p.ID())
		if err != nil {
			return nil, err
		}
		out = append(out, catalog.Entry{Product: p, Reviews: reviews})
	}
	return out, nil
}

func (l *Loader) loadProduct(name string) (catalog.Product, error) {
	f, err := l.fsys.Open(name)
	if err != nil {
		return catalog.Product{}, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return catalog.Product{}, err
		}
		return catalog.Product{}, fmt.Errorf("%w: empty file", ErrParse)
	}
	return ParseProduct(sc.Text())
}

func (l *Loader) loadReviews(id int) ([]catalog.Review, error) {
	reviews := []catalog.Review{}

	f, err := l.fsys.Open(reviewsFile(id))
	if errors.Is(err, fs.ErrNotExist) {
		return reviews, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open reviews of product %d: %w", id, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		r, err := ParseReview(line)
		if err != nil {
			l.log.Warn("skip review", zap.Int("product_id", id), zap.Error(err))
			continue
		}
		reviews = append(reviews, r)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read reviews of product %d: %w", id, err)
	}
	return reviews, nil
}

// WriteEntry stores e in dir in the format LoadAll reads back.
func WriteEntry(dir string, e catalog.Entry) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	id := e.Product.ID()
	if err := os.WriteFile(filepath.Join(dir, productFile(id)), []byte(FormatProduct(e.Product)+"\n"), 0o644); err != nil {
		return fmt.Errorf("write product %d: %w", id, err)
	}
	if len(e.Reviews) == 0 {
		return nil
	}

	var sb strings.Builder
	for _, r := range e.Reviews {
		sb.WriteString(FormatReview(r))
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(filepath.Join(dir, reviewsFile(id)), []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("write reviews of product %d: %w", id, err)
	}
	return nil
}
