package model

type CreateStore struct {
	StoreID  string                 `json:"store_id"`
	Name     string                 `json:"name"`
	City     string                 `json:"city"`
	Category string                 `json:"category"`
	Status   string                 `json:"status"`
	MetaData map[string]interface{} `json:"meta_data"`
}
