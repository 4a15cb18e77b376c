package catalog

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound       = errors.New("product not found")
	ErrInvalidProduct = errors.New("invalid product")
	ErrPersistence    = errors.New("snapshot persistence failed")
	ErrNoSnapshot     = errors.New("no snapshot available")
)

// TextNoReviews is the formatter key rendered for a product without reviews.
const TextNoReviews = "no.reviews"

// ProductSpec describes a product to create. A non-nil BestBefore makes it Food.
type ProductSpec struct {
	ID         int
	Name       string
	Price      decimal.Decimal
	Rating     Rating
	BestBefore *time.Time
}

func (s ProductSpec) Build() Product {
	if s.BestBefore != nil {
		return NewFood(s.ID, s.Name, s.Price, s.Rating, *s.BestBefore)
	}
	return NewDrink(s.ID, s.Name, s.Price, s.Rating)
}

type Store interface {
	Ping(ctx context.Context) error
	List(ctx context.Context) ([]Product, error)
	FindProduct(ctx context.Context, id int) (Product, error)
	Entry(ctx context.Context, id int) (Entry, error)
	CreateProduct(ctx context.Context, spec ProductSpec) (Product, bool, error)
	ReviewProduct(ctx context.Context, id int, rating Rating, comments string) (Product, error)
	Discounts(ctx context.Context, money MoneyFormatter) (map[string]string, error)
	PrintProductReport(ctx context.Context, id int, f Formatter, w io.Writer) error
	PrintProducts(ctx context.Context, filter Filter, sorter Sorter, f Formatter, w io.Writer) error
	Dump(ctx context.Context) (string, error)
	Restore(ctx context.Context) error
}

// SnapshotStore persists whole-catalog snapshots. Restore returns the most
// recent snapshot and removes it; ErrNoSnapshot when none exist.
type SnapshotStore interface {
	Dump(ctx context.Context, entries []Entry) (string, error)
	Restore(ctx context.Context) ([]Entry, error)
}

// Source yields the initial catalog contents.
type Source interface {
	LoadAll(ctx context.Context) ([]Entry, error)
}

type MoneyFormatter interface {
	FormatMoney(amount decimal.Decimal) string
}

// Formatter renders catalog values for one locale.
type Formatter interface {
	MoneyFormatter
	FormatProduct(p Product) string
	FormatReview(r Review) string
	Text(key string) string
}
