package model

type LogActivity struct {
	ActivityID   string         `json:"activity_id"`
	StoreID      string         `json:"store_id"`
	Type         string         `json:"type"`
	Date         string         `json:"date"`
	Outcome      string         `json:"outcome"`
	NextStep     string         `json:"next_step"`
	NextStepDate string         `json:"next_step_date"`
	OrderID      string         `json:"order_id"`
	Order        *ActivityOrder `json:"order"`
	Notes        string         `json:"notes"`
}
