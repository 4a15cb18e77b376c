// Package records reads the catalog's line-oriented data files.
//
// A product line is "D|F,id,name,price,stars[,best-before]" where the
// best-before date (YYYY-MM-DD) is required for food. A review line is
// "stars,comments"; the comments may contain commas.
package records

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ShopCatalog/internal/catalog"
)

var ErrParse = errors.New("malformed record")

const (
	kindDrink  = "D"
	kindFood   = "F"
	dateLayout = "2006-01-02"
)

func ParseReview(line string) (catalog.Review, error) {
	stars, comments, ok := strings.Cut(strings.TrimRight(line, "\r\n"), ",")
	if !ok {
		return catalog.Review{}, fmt.Errorf("%w: review %q: missing comments", ErrParse, line)
	}
	n, err := strconv.Atoi(strings.TrimSpace(stars))
	if err != nil {
		return catalog.Review{}, fmt.Errorf("%w: review %q: %w", ErrParse, line, err)
	}
	return catalog.Review{Rating: catalog.RatingFromStars(n), Comments: comments}, nil
}

func ParseProduct(line string) (catalog.Product, error) {
	fields := strings.SplitN(strings.TrimRight(line, "\r\n"), ",", 6)
	if len(fields) < 5 {
		return catalog.Product{}, fmt.Errorf("%w: product %q: want at least 5 fields, got %d", ErrParse, line, len(fields))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	id, err := strconv.Atoi(fields[1])
	if err != nil {
		return catalog.Product{}, fmt.Errorf("%w: product %q: id: %w", ErrParse, line, err)
	}
	name := fields[2]
	price, err := decimal.NewFromString(fields[3])
	if err != nil {
		return catalog.Product{}, fmt.Errorf("%w: product %q: price: %w", ErrParse, line, err)
	}
	if price.IsNegative() {
		return catalog.Product{}, fmt.Errorf("%w: product %q: negative price", ErrParse, line)
	}
	stars, err := strconv.Atoi(fields[4])
	if err != nil {
		return catalog.Product{}, fmt.Errorf("%w: product %q: rating: %w", ErrParse, line, err)
	}
	rating := catalog.RatingFromStars(stars)

	switch fields[0] {
	case kindDrink:
		return catalog.NewDrink(id, name, price, rating), nil
	case kindFood:
		if len(fields) < 6 {
			return catalog.Product{}, fmt.Errorf("%w: product %q: food needs a best-before date", ErrParse, line)
		}
		bb, err := time.Parse(dateLayout, fields[5])
		if err != nil {
			return catalog.Product{}, fmt.Errorf("%w: product %q: best before: %w", ErrParse, line, err)
		}
		return catalog.NewFood(id, name, price, rating, bb), nil
	default:
		return catalog.Product{}, fmt.Errorf("%w: product %q: unknown kind %q", ErrParse, line, fields[0])
	}
}

// FormatProduct renders p in the line format read by ParseProduct.
func FormatProduct(p catalog.Product) string {
	kind := kindDrink
	if p.Kind() == catalog.KindFood {
		kind = kindFood
	}
	line := fmt.Sprintf("%s,%d,%s,%s,%d", kind, p.ID(), p.Name(), p.Price().String(), p.Rating().Ordinal())
	if p.Kind() == catalog.KindFood {
		line += "," + p.BestBefore(time.Now()).Format(dateLayout)
	}
	return line
}

func FormatReview(r catalog.Review) string {
	return fmt.Sprintf("%d,%s", r.Rating.Ordinal(), r.Comments)
}
