package catalog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// DiscountRate is applied to the price whenever a product's discount policy allows it.
var DiscountRate = decimal.RequireFromString("0.1")

type Kind uint8

const (
	KindDrink Kind = iota + 1
	KindFood
)

func (k Kind) String() string {
	switch k {
	case KindDrink:
		return "drink"
	case KindFood:
		return "food"
	default:
		return "unknown"
	}
}

func ParseKind(s string) (Kind, error) {
	switch s {
	case "drink":
		return KindDrink, nil
	case "food":
		return KindFood, nil
	default:
		return 0, fmt.Errorf("unknown product kind %q", s)
	}
}

// discountPolicies decides, per variant, whether the discount is available at now.
var discountPolicies = map[Kind]func(p Product, now time.Time) bool{
	KindDrink: happyHour,
	KindFood:  pastBestBefore,
}

// happyHour is open strictly between 17:30 and 19:30 local time.
func happyHour(_ Product, now time.Time) bool {
	minutes := now.Hour()*60 + now.Minute()
	after := minutes > 17*60+30 || (minutes == 17*60+30 && (now.Second() > 0 || now.Nanosecond() > 0))
	before := minutes < 19*60+30
	return after && before
}

func pastBestBefore(p Product, now time.Time) bool {
	return civilDate(p.bestBefore).Before(civilDate(now))
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Product is an immutable catalog value. Drink and Food share one struct,
// distinguished by Kind; Food additionally carries a best-before date.
// Two products are the same product iff their IDs match.
type Product struct {
	id         int
	name       string
	price      decimal.Decimal
	rating     Rating
	kind       Kind
	bestBefore time.Time
}

func NewDrink(id int, name string, price decimal.Decimal, rating Rating) Product {
	return Product{id: id, name: name, price: price, rating: rating, kind: KindDrink}
}

func NewFood(id int, name string, price decimal.Decimal, rating Rating, bestBefore time.Time) Product {
	return Product{id: id, name: name, price: price, rating: rating, kind: KindFood, bestBefore: civilDate(bestBefore)}
}

func (p Product) ID() int                { return p.id }
func (p Product) Name() string           { return p.name }
func (p Product) Price() decimal.Decimal { return p.price }
func (p Product) Rating() Rating         { return p.rating }
func (p Product) Kind() Kind             { return p.kind }

// BestBefore returns the food's best-before date. Drinks have none and
// report today's date.
func (p Product) BestBefore(now time.Time) time.Time {
	if p.kind == KindFood {
		return p.bestBefore
	}
	return civilDate(now)
}

// Discount returns the amount currently taken off the price.
func (p Product) Discount(now time.Time) decimal.Decimal {
	policy, ok := discountPolicies[p.kind]
	if !ok || !policy(p, now) {
		return decimal.Zero
	}
	// Round is half away from zero, which is half-up for non-negative prices.
	return p.price.Mul(DiscountRate).Round(2)
}

// WithRating returns a copy of p with the rating replaced.
func (p Product) WithRating(r Rating) Product {
	p.rating = r
	return p
}

func (p Product) Equal(o Product) bool { return p.id == o.id }

func (p Product) String() string {
	if p.kind == KindFood {
		return fmt.Sprintf("Food{id=%d, name=%q, price=%s, rating=%s, bestBefore=%s}",
			p.id, p.name, p.price.StringFixed(2), p.rating.Stars(), p.bestBefore.Format(dateLayout))
	}
	return fmt.Sprintf("Drink{id=%d, name=%q, price=%s, rating=%s}",
		p.id, p.name, p.price.StringFixed(2), p.rating.Stars())
}

type productJSON struct {
	ID         int             `json:"id"`
	Kind       string          `json:"kind"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Rating     Rating          `json:"rating"`
	BestBefore string          `json:"best_before,omitempty"`
}

func (p Product) MarshalJSON() ([]byte, error) {
	out := productJSON{
		ID:     p.id,
		Kind:   p.kind.String(),
		Name:   p.name,
		Price:  p.price,
		Rating: p.rating,
	}
	if p.kind == KindFood {
		out.BestBefore = p.bestBefore.Format(dateLayout)
	}
	return json.Marshal(out)
}

func (p *Product) UnmarshalJSON(b []byte) error {
	var in productJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	kind, err := ParseKind(in.Kind)
	if err != nil {
		return err
	}

	switch kind {
	case KindFood:
		bb, err := time.Parse(dateLayout, in.BestBefore)
		if err != nil {
			return fmt.Errorf("product %d best_before: %w", in.ID, err)
		}
		*p = NewFood(in.ID, in.Name, in.Price, in.Rating, bb)
	default:
		*p = NewDrink(in.ID, in.Name, in.Price, in.Rating)
	}
	return nil
}
