// Package event publishes catalog domain events.
package event

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"

	"ShopCatalog/internal/catalog"
)

const (
	TypeProductCreated  = "product.created"
	TypeProductReviewed = "product.reviewed"

	source = "catalog"
)

// Event is the envelope written to the bus.
type Event struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	AggregateID string          `json:"aggregate_id"`
	Source      string          `json:"source"`
	Timestamp   time.Time       `json:"timestamp"`
	Data        json.RawMessage `json:"data"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

func newEvent(typ string, productID int, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:          uuid.NewString(),
		Type:        typ,
		AggregateID: strconv.Itoa(productID),
		Source:      source,
		Timestamp:   time.Now().UTC(),
		Data:        raw,
	}, nil
}

func ProductCreated(p catalog.Product) (Event, error) {
	return newEvent(TypeProductCreated, p.ID(), struct {
		Product catalog.Product `json:"product"`
	}{p})
}

func ProductReviewed(p catalog.Product, r catalog.Review) (Event, error) {
	return newEvent(TypeProductReviewed, p.ID(), struct {
		Product catalog.Product `json:"product"`
		Review  catalog.Review  `json:"review"`
	}{p, r})
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// Notifier turns catalog changes into published events.
type Notifier struct {
	pub Publisher
}

func NewNotifier(pub Publisher) *Notifier {
	return &Notifier{pub: pub}
}

func (n *Notifier) ProductCreated(ctx context.Context, p catalog.Product) error {
	e, err := ProductCreated(p)
	if err != nil {
		return err
	}
	return n.pub.Publish(ctx, e)
}

func (n *Notifier) ProductReviewed(ctx context.Context, p catalog.Product, r catalog.Review) error {
	e, err := ProductReviewed(p, r)
	if err != nil {
		return err
	}
	return n.pub.Publish(ctx, e)
}
