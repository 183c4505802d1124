package model

import "time"

type OrderType string

const (
	OrderTypeFirst   OrderType = "first"
	OrderTypeReorder OrderType = "reorder"
)

func (t OrderType) Valid() bool {
	return t == OrderTypeFirst || t == OrderTypeReorder
}

type Order struct {
	ID              int64                  `json:"-"`
	OrderID         string                 `json:"order_id"`
	StoreID         string                 `json:"store_id"`
	BrandName       string                 `json:"brand_name"`
	Category        string                 `json:"category"`
	OrderDate       time.Time              `json:"order_date"`
	Cases           int                    `json:"cases"`
	OrderType       OrderType              `json:"order_type"`
	NextReorderDate *time.Time             `json:"next_reorder_date,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	MetaData        map[string]interface{} `json:"meta_data,omitempty"`
}

// After reports whether o was placed after other. Ties on the order date fall back to
// creation time and then the order ID so the result is total.
func (o Order) After(other Order) bool {
	if !o.OrderDate.Equal(other.OrderDate) {
		return o.OrderDate.After(other.OrderDate)
	}
	if !o.CreatedAt.Equal(other.CreatedAt) {
		return o.CreatedAt.After(other.CreatedAt)
	}
	return o.OrderID > other.OrderID
}
