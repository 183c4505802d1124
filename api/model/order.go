package model

type RecordOrder struct {
	OrderID   string                 `json:"order_id"`
	StoreID   string                 `json:"store_id"`
	BrandName string                 `json:"brand_name"`
	Category  string                 `json:"category"`
	OrderDate string                 `json:"order_date"`
	Cases     int                    `json:"cases"`
	OrderType string                 `json:"order_type"`
	MetaData  map[string]interface{} `json:"meta_data"`
}

// ActivityOrder carries the order placed during an activity with outcome "ordered".
// Store and date default to the activity's.
type ActivityOrder struct {
	OrderID   string                 `json:"order_id"`
	BrandName string                 `json:"brand_name"`
	Category  string                 `json:"category"`
	OrderDate string                 `json:"order_date"`
	Cases     int                    `json:"cases"`
	OrderType string                 `json:"order_type"`
	MetaData  map[string]interface{} `json:"meta_data"`
}
