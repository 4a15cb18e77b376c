// Package format renders catalog values as locale-specific text.
package format

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"golang.org/x/text/number"

	shop "ShopCatalog/internal/catalog"
)

const DefaultLocale = "en-GB"

//go:embed locales/*.json
var bundles embed.FS

type bundle struct {
	Currency string            `json:"currency"`
	Money    string            `json:"money"`
	Date     string            `json:"date"`
	Messages map[string]string `json:"messages"`
}

// Formatter renders products, reviews and money for one locale.
type Formatter struct {
	tag      language.Tag
	printer  *message.Printer
	currency currency.Unit
	symbol   string
	money    string
	date     string
	now      func() time.Time
}

func (f *Formatter) Locale() string { return f.tag.String() }

// Symbol is the narrow CLDR symbol of the locale's currency.
func (f *Formatter) Symbol() string { return f.symbol }

// FormatMoney places the localized amount and currency symbol into the
// bundle's money pattern (%[1]s amount, %[2]s symbol).
func (f *Formatter) FormatMoney(amount decimal.Decimal) string {
	n := f.printer.Sprint(number.Decimal(amount.InexactFloat64(), number.Scale(2)))
	return fmt.Sprintf(f.money, n, f.symbol)
}

func (f *Formatter) FormatDate(t time.Time) string { return t.Format(f.date) }

func (f *Formatter) FormatProduct(p shop.Product) string {
	return f.printer.Sprintf("product",
		p.Name(), f.FormatMoney(p.Price()), p.Rating().Stars(), f.FormatDate(p.BestBefore(f.now())))
}

func (f *Formatter) FormatReview(r shop.Review) string {
	return f.printer.Sprintf("review", r.Rating.Stars(), r.Comments)
}

// Text resolves a fixed UI string; unknown keys render as themselves.
func (f *Formatter) Text(key string) string {
	return f.printer.Sprintf(key)
}

// Registry holds the supported locales and picks one per request.
type Registry struct {
	formatters map[language.Tag]*Formatter
	tags       []language.Tag
	matcher    language.Matcher
	fallback   *Formatter
}

// NewRegistry loads every embedded locale. defaultLocale is used whenever a
// requested locale is not supported.
func NewRegistry(defaultLocale string, now func() time.Time) (*Registry, error) {
	if now == nil {
		now = time.Now
	}
	files, err := bundles.ReadDir("locales")
	if err != nil {
		return nil, err
	}

	b := catalog.NewBuilder(catalog.Fallback(language.MustParse(DefaultLocale)))
	r := &Registry{formatters: map[language.Tag]*Formatter{}}

	for _, file := range files {
		name := strings.TrimSuffix(file.Name(), path.Ext(file.Name()))
		tag, err := language.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("locale %q: %w", name, err)
		}
		raw, err := bundles.ReadFile(path.Join("locales", file.Name()))
		if err != nil {
			return nil, err
		}
		var bu bundle
		if err := json.Unmarshal(raw, &bu); err != nil {
			return nil, fmt.Errorf("locale %q: %w", name, err)
		}
		cur, err := currency.ParseISO(bu.Currency)
		if err != nil {
			return nil, fmt.Errorf("locale %q: %w", name, err)
		}
		for key, msg := range bu.Messages {
			if err := b.SetString(tag, key, msg); err != nil {
				return nil, fmt.Errorf("locale %q key %q: %w", name, key, err)
			}
		}

		r.tags = append(r.tags, tag)
		r.formatters[tag] = &Formatter{
			tag:      tag,
			currency: cur,
			money:    bu.Money,
			date:     bu.Date,
			now:      now,
		}
	}

	for tag, f := range r.formatters {
		f.printer = message.NewPrinter(tag, message.Catalog(b))
		f.symbol = f.printer.Sprint(currency.NarrowSymbol(f.currency))
	}
	r.matcher = language.NewMatcher(r.tags)

	def, err := language.Parse(defaultLocale)
	if err != nil {
		def = language.MustParse(DefaultLocale)
	}
	fb, ok := r.formatters[def]
	if !ok {
		fb = r.formatters[language.MustParse(DefaultLocale)]
	}
	if fb == nil {
		return nil, fmt.Errorf("default locale %q not bundled", defaultLocale)
	}
	r.fallback = fb
	return r, nil
}

// Supported lists the bundled locale tags.
func (r *Registry) Supported() []string {
	out := make([]string, 0, len(r.tags))
	for _, t := range r.tags {
		out = append(out, t.String())
	}
	return out
}

// For returns the formatter registered under exactly locale, or the default.
func (r *Registry) For(locale string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		return r.fallback
	}
	if f, ok := r.formatters[tag]; ok {
		return f
	}
	return r.fallback
}

// Match picks a formatter for an Accept-Language header value.
func (r *Registry) Match(acceptLanguage string) *Formatter {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return r.fallback
	}
	_, idx, conf := r.matcher.Match(tags...)
	if conf == language.No {
		return r.fallback
	}
	return r.formatters[r.tags[idx]]
}

// Select prefers an explicit locale over the Accept-Language header.
func (r *Registry) Select(locale, acceptLanguage string) shop.Formatter {
	if locale != "" {
		return r.For(locale)
	}
	return r.Match(acceptLanguage)
}
