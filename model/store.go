package model

import "time"

type StoreStatus string

const (
	StoreStatusNew       StoreStatus = "new"
	StoreStatusContacted StoreStatus = "contacted"
	StoreStatusQualified StoreStatus = "qualified"
	StoreStatusCustomer  StoreStatus = "customer"
	StoreStatusInactive  StoreStatus = "inactive"
)

// statusRank orders the non-terminal statuses. inactive is terminal and has no rank.
var statusRank = map[StoreStatus]int{
	StoreStatusNew:       0,
	StoreStatusContacted: 1,
	StoreStatusQualified: 2,
	StoreStatusCustomer:  3,
}

func (s StoreStatus) Valid() bool {
	if s == StoreStatusInactive {
		return true
	}
	_, ok := statusRank[s]
	return ok
}

// Rank returns the position of the status in the pipeline and false for inactive or unknown statuses.
func (s StoreStatus) Rank() (int, bool) {
	r, ok := statusRank[s]
	return r, ok
}

type Store struct {
	ID              int64                  `json:"-"`
	StoreID         string                 `json:"store_id"`
	Name            string                 `json:"name"`
	City            string                 `json:"city"`
	Category        string                 `json:"category"`
	Status          StoreStatus            `json:"status"`
	LastContactAt   *time.Time             `json:"last_contact_at,omitempty"`
	NextActionDate  *time.Time             `json:"next_action_date,omitempty"`
	FirstCustomerAt *time.Time             `json:"first_customer_at,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	MetaData        map[string]interface{} `json:"meta_data,omitempty"`
}

func (s Store) IsInactive() bool {
	return s.Status == StoreStatusInactive
}
