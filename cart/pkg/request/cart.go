package request

import (
	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string          `validate:"required" json:"id"`
	Name        string          `validate:"max=512"  json:"name"`
	Slug        string          `validate:"max=512"  json:"slug"`
	Category    string          `validate:"max=256"  json:"category"`
	Description string          `json:"description"`
	Images      []string        `json:"images"`
	Price       decimal.Decimal `validate:"gte=0"    json:"price"`
	Variant     string          `validate:"max=256"  json:"variant"`
}

type AddItem struct {
	Product  Product `validate:"required"        json:"product"`
	Quantity *int    `validate:"omitempty,gte=1" json:"quantity"`
}

type UpdateQuantity struct {
	ProductID string `validate:"required"       json:"itemId"`
	Variant   string `validate:"max=256"        json:"variant"`
	Quantity  *int   `validate:"required,gte=0" json:"quantity"`
}

type RemoveItem struct {
	ProductID string `validate:"required" json:"itemId"`
	Variant   string `validate:"max=256"  json:"variant"`
}
