package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type entry struct {
	product Product
	reviews []Review
}

// MemStore is the in-memory catalog. One RWMutex guards the whole
// product→reviews mapping: queries share the read lock, every mutation and
// both snapshot operations hold the write lock for their full duration.
type MemStore struct {
	mu sync.RWMutex
	m  map[int]*entry

	log       *zap.Logger
	snapshots SnapshotStore
	metrics   *StoreMetrics
	now       func() time.Time
}

type Option func(*MemStore)

func WithLogger(log *zap.Logger) Option {
	return func(s *MemStore) {
		if log != nil {
			s.log = log
		}
	}
}

func WithSnapshots(ss SnapshotStore) Option {
	return func(s *MemStore) { s.snapshots = ss }
}

func WithMetrics(m *StoreMetrics) Option {
	return func(s *MemStore) { s.metrics = m }
}

// WithClock overrides the time source used for discounts.
func WithClock(now func() time.Time) Option {
	return func(s *MemStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewMemStore(opts ...Option) *MemStore {
	s := &MemStore{
		m:   map[int]*entry{},
		log: zap.NewNop(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemStore) Ping(ctx context.Context) error { return ctx.Err() }

// Load replaces the catalog with entries and returns the number of products
// kept. Later duplicates of an id are skipped.
func (s *MemStore) Load(entries []Entry) int {
	m := make(map[int]*entry, len(entries))
	for _, e := range entries {
		id := e.Product.ID()
		if _, dup := m[id]; dup {
			s.log.Warn("duplicate product in source skipped", zap.Int("product_id", id))
			continue
		}
		m[id] = &entry{product: e.Product, reviews: slices.Clone(e.Reviews)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.m = m
	s.metrics.setProducts(len(m))
	return len(m)
}

// LoadAll bootstraps the catalog from src. It runs before the store is
// shared; on error the catalog is left as it was.
func (s *MemStore) LoadAll(ctx context.Context, src Source) error {
	entries, err := src.LoadAll(ctx)
	if err != nil {
		s.log.Error("load catalog data failed", zap.Error(err))
		return fmt.Errorf("load catalog: %w", err)
	}
	n := s.Load(entries)
	s.log.Info("catalog loaded", zap.Int("products", n))
	return nil
}

func (s *MemStore) List(ctx context.Context) ([]Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]Product, 0, len(s.m))
	for _, e := range s.m {
		out = append(out, e.product)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, ByID)
	return out, nil
}

func (s *MemStore) FindProduct(ctx context.Context, id int) (Product, error) {
	if err := ctx.Err(); err != nil {
		return Product{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.m[id]
	if !ok {
		s.log.Info("product not found", zap.Int("product_id", id))
		return Product{}, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	return e.product, nil
}

// Entry returns the product with a copy of its reviews in insertion order.
func (s *MemStore) Entry(ctx context.Context, id int) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.m[id]
	if !ok {
		s.log.Info("product not found", zap.Int("product_id", id))
		return Entry{}, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	return Entry{Product: e.product, Reviews: append([]Review{}, e.reviews...)}, nil
}

// Stats reports the number of products and the total number of reviews.
func (s *MemStore) Stats(ctx context.Context) (products, reviews int, err error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.m {
		reviews += len(e.reviews)
	}
	return len(s.m), reviews, nil
}

// CreateProduct inserts the product described by the given ProductSpec unless
// an entry with the same id already exists. The built product is returned
// either way; created reports whether it was inserted.
func (s *MemStore) CreateProduct(ctx context.Context, spec ProductSpec) (Product, bool, error) {
	if err := ctx.Err(); err != nil {
		return Product{}, false, err
	}
	if spec.Price.IsNegative() {
		return Product{}, false, fmt.Errorf("%w: negative price %s", ErrInvalidProduct, spec.Price)
	}
	if !spec.Rating.Valid() {
		return Product{}, false, fmt.Errorf("%w: rating %d", ErrInvalidProduct, spec.Rating)
	}

	p := spec.Build()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.m[p.id]; exists {
		s.log.Debug("product already exists", zap.Int("product_id", p.id))
		return p, false, nil
	}

	s.m[p.id] = &entry{product: p, reviews: []Review{}}
	s.metrics.setProducts(len(s.m))
	return p, true, nil
}

// ReviewProduct appends a review and re-rates the product as one write
// transaction. The rated product replaces the old one and keeps its review
// list.
func (s *MemStore) ReviewProduct(ctx context.Context, id int, rating Rating, comments string) (Product, error) {
	if err := ctx.Err(); err != nil {
		return Product{}, err
	}
	if !rating.Valid() {
		return Product{}, fmt.Errorf("%w: rating %d", ErrInvalidProduct, rating)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.m[id]
	if !ok {
		s.log.Info("review for unknown product", zap.Int("product_id", id))
		return Product{}, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}

	reviews := append(old.reviews, Review{Rating: rating, Comments: comments})
	rated := old.product.WithRating(AggregateRating(reviews))

	s.m[id] = &entry{product: rated, reviews: reviews}
	s.metrics.reviewed()
	return rated, nil
}

// Discounts sums the current discount of every product grouped by rating
// glyph, formatted with money.
func (s *MemStore) Discounts(ctx context.Context, money MoneyFormatter) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := s.now()
	totals := map[string]decimal.Decimal{}

	s.mu.RLock()
	for _, e := range s.m {
		label := e.product.rating.Stars()
		totals[label] = totals[label].Add(e.product.Discount(now))
	}
	s.mu.RUnlock()

	out := make(map[string]string, len(totals))
	for label, total := range totals {
		out[label] = money.FormatMoney(total)
	}
	return out, nil
}

// PrintProductReport renders the product followed by its reviews, best
// first. The report is built under the read lock and written after it is
// released.
func (s *MemStore) PrintProductReport(ctx context.Context, id int, f Formatter, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer

	s.mu.RLock()
	e, ok := s.m[id]
	if ok {
		buf.WriteString(f.FormatProduct(e.product))
		buf.WriteByte('\n')

		reviews := SortedReviews(e.reviews)
		if len(reviews) == 0 {
			buf.WriteString(f.Text(TextNoReviews))
			buf.WriteByte('\n')
		}
		for _, r := range reviews {
			buf.WriteString(f.FormatReview(r))
			buf.WriteByte('\n')
		}
	}
	s.mu.RUnlock()

	if !ok {
		s.log.Info("cannot find product for report", zap.Int("product_id", id))
		return fmt.Errorf("product %d: %w", id, ErrNotFound)
	}

	if _, err := buf.WriteTo(w); err != nil {
		s.log.Error("write product report failed", zap.Int("product_id", id), zap.Error(err))
		return fmt.Errorf("write report for product %d: %w", id, err)
	}
	return nil
}

// PrintProducts renders one line per product accepted by filter, in sorter
// order.
func (s *MemStore) PrintProducts(ctx context.Context, filter Filter, sorter Sorter, f Formatter, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if filter == nil {
		filter = All
	}
	if sorter == nil {
		sorter = ByID
	}

	var sb strings.Builder

	s.mu.RLock()
	products := make([]Product, 0, len(s.m))
	for _, e := range s.m {
		if filter(e.product) {
			products = append(products, e.product)
		}
	}
	slices.SortFunc(products, sorter)
	for _, p := range products {
		sb.WriteString(f.FormatProduct(p))
		sb.WriteByte('\n')
	}
	s.mu.RUnlock()

	if _, err := io.WriteString(w, sb.String()); err != nil {
		s.log.Error("write products failed", zap.Error(err))
		return fmt.Errorf("write products: %w", err)
	}
	return nil
}

// Dump persists the whole catalog and then empties it. On failure the
// catalog is left untouched.
func (s *MemStore) Dump(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.snapshots == nil {
		return "", fmt.Errorf("%w: no snapshot store configured", ErrPersistence)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	handle, err := s.snapshots.Dump(ctx, s.entriesLocked())
	s.metrics.snapshot("dump", err)
	if err != nil {
		s.log.Error("dump catalog failed", zap.Error(err))
		return "", fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	s.log.Info("catalog dumped", zap.String("snapshot", handle), zap.Int("products", len(s.m)))
	s.m = map[int]*entry{}
	s.metrics.setProducts(0)
	return handle, nil
}

// Restore replaces the catalog with the most recent snapshot. When there is
// no snapshot, or it cannot be read, the catalog is left untouched.
func (s *MemStore) Restore(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.snapshots == nil {
		return fmt.Errorf("%w: no snapshot store configured", ErrPersistence)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.snapshots.Restore(ctx)
	s.metrics.snapshot("restore", err)
	if err != nil {
		if errors.Is(err, ErrNoSnapshot) {
			s.log.Warn("no catalog snapshot to restore")
			return err
		}
		s.log.Error("restore catalog failed", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	m := make(map[int]*entry, len(entries))
	for _, e := range entries {
		id := e.Product.ID()
		if _, dup := m[id]; dup {
			s.log.Error("restore catalog failed: duplicate product", zap.Int("product_id", id))
			return fmt.Errorf("%w: duplicate product %d in snapshot", ErrPersistence, id)
		}
		reviews := e.Reviews
		if reviews == nil {
			reviews = []Review{}
		}
		m[id] = &entry{product: e.Product, reviews: reviews}
	}

	s.m = m
	s.metrics.setProducts(len(m))
	s.log.Info("catalog restored", zap.Int("products", len(m)))
	return nil
}

func (s *MemStore) entriesLocked() []Entry {
	out := make([]Entry, 0, len(s.m))
	for _, e := range s.m {
		out = append(out, Entry{Product: e.product, Reviews: slices.Clone(e.reviews)})
	}
	slices.SortFunc(out, func(a, b Entry) int { return ByID(a.Product, b.Product) })
	return out
}
