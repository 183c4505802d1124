package model

import "time"

type ActivityType string

const (
	ActivityTypeCall  ActivityType = "call"
	ActivityTypeVisit ActivityType = "visit"
	ActivityTypeEmail ActivityType = "email"
	ActivityTypeText  ActivityType = "text"
)

func (t ActivityType) Valid() bool {
	switch t {
	case ActivityTypeCall, ActivityTypeVisit, ActivityTypeEmail, ActivityTypeText:
		return true
	}
	return false
}

type ActivityOutcome string

const (
	OutcomeInterested ActivityOutcome = "interested"
	OutcomeMaybeLater ActivityOutcome = "maybe later"
	OutcomeNotAFit    ActivityOutcome = "not a fit"
	OutcomeOrdered    ActivityOutcome = "ordered"
)

func (o ActivityOutcome) Valid() bool {
	switch o {
	case OutcomeInterested, OutcomeMaybeLater, OutcomeNotAFit, OutcomeOrdered:
		return true
	}
	return false
}

// Terminal reports whether the outcome closes the current conversation with the store.
func (o ActivityOutcome) Terminal() bool {
	return o == OutcomeNotAFit || o == OutcomeOrdered
}

type Activity struct {
	ID           int64           `json:"-"`
	ActivityID   string          `json:"activity_id"`
	StoreID      string          `json:"store_id"`
	Type         ActivityType    `json:"type"`
	Date         time.Time       `json:"date"`
	Outcome      ActivityOutcome `json:"outcome"`
	NextStep     string          `json:"next_step,omitempty"`
	NextStepDate *time.Time      `json:"next_step_date,omitempty"`
	OrderID      string          `json:"order_id,omitempty"`
	Notes        string          `json:"notes,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// After reports whether a was logged after other, using the same tie-breaks as Order.After.
func (a Activity) After(other Activity) bool {
	if !a.Date.Equal(other.Date) {
		return a.Date.After(other.Date)
	}
	if !a.CreatedAt.Equal(other.CreatedAt) {
		return a.CreatedAt.After(other.CreatedAt)
	}
	return a.ActivityID > other.ActivityID
}
