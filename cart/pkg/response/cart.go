package response

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ACTION_REMOVED = "removed"
	ACTION_UPDATED = "updated"
)

// Cart is the document persisted per owner. Items are snapshots taken when
// they were added and are never re-synced from the catalog.
type Cart struct {
	OwnerID   string     `json:"userId"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updatedAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

type CartItem struct {
	ProductID   string          `json:"id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug,omitempty"`
	Category    string          `json:"category,omitempty"`
	Description string          `json:"description,omitempty"`
	Images      []string        `json:"images,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Variant     string          `json:"variant,omitempty"`
	Quantity    int             `json:"quantity"`
	AddedAt     time.Time       `json:"addedAt"`
}

func NewCart(ownerId string) Cart {
	return Cart{OwnerID: ownerId, Items: []CartItem{}}
}

// Expired reports whether the document outlived its expiresAt. A zero
// expiresAt never expires.
func (c Cart) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && c.ExpiresAt.Before(now)
}

// ItemCount is the number of distinct lines.
func (c Cart) ItemCount() int {
	return len(c.Items)
}

// Quantity sums the quantity of every line.
func (c Cart) Quantity() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// QuantityFor sums the quantity of the lines whose product id or slug is key.
func (c Cart) QuantityFor(key string) int {
	total := 0
	for _, item := range c.Items {
		if item.ProductID == key || (item.Slug != "" && item.Slug == key) {
			total += item.Quantity
		}
	}
	return total
}

// IndexOf returns the position of the line addressed by the exact
// (productId, variant) pair, or -1.
func (c Cart) IndexOf(productId, variant string) int {
	for i, item := range c.Items {
		if item.ProductID == productId && item.Variant == variant {
			return i
		}
	}
	return -1
}

func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

func (i CartItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Count struct {
	Count int `json:"count"`
}

type Total struct {
	Total           decimal.Decimal `json:"total"`
	TotalMinorUnits int64           `json:"totalMinorUnits"`
	Currency        string          `json:"currency"`
}
