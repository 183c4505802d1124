package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cadencehq/cadence/model"
)

const (
	weeklyWindowDays = 7
	ratePrecision    = 4
	unknownBrand     = "Unknown"
)

// WeeklyMetrics is the flat record handed to the reporting collaborator.
// Rates are null when their denominator is zero.
type WeeklyMetrics struct {
	WindowStart      time.Time           `json:"window_start"`
	WindowEnd        time.Time           `json:"window_end"`
	NewStores        int                 `json:"new_stores"`
	TotalStores      int                 `json:"total_stores"`
	TotalOrders      int                 `json:"total_orders"`
	FirstOrders      int                 `json:"first_orders"`
	Reorders         int                 `json:"reorders"`
	TotalCases       int                 `json:"total_cases"`
	OrdersByBrand    map[string]int      `json:"orders_by_brand"`
	TotalActivities  int                 `json:"total_activities"`
	Calls            int                 `json:"calls"`
	Visits           int                 `json:"visits"`
	Emails           int                 `json:"emails"`
	Texts            int                 `json:"texts"`
	StoresContacted  int                 `json:"stores_contacted"`
	StoresConverted  int                 `json:"stores_converted"`
	ConversionRate   decimal.NullDecimal `json:"conversion_rate"`
	EligibleReorders int                 `json:"eligible_reorders"`
	ReorderRate      decimal.NullDecimal `json:"reorder_rate"`
	Orphans          []OrphanRecord      `json:"orphans,omitempty"`
}

// WeeklyWindow returns the trailing seven-day window that ends (exclusive) on end's day.
func WeeklyWindow(end time.Time) (time.Time, time.Time) {
	stop := model.DateOf(end)
	return stop.AddDate(0, 0, -weeklyWindowDays), stop
}

// Rate divides n by d, returning an invalid NullDecimal when d is zero.
func Rate(n, d int) decimal.NullDecimal {
	if d == 0 {
		return decimal.NullDecimal{}
	}
	r := decimal.NewFromInt(int64(n)).Div(decimal.NewFromInt(int64(d))).Round(ratePrecision)
	return decimal.NullDecimal{Decimal: r, Valid: true}
}

// AggregateWeekly computes the weekly metrics for the window ending at end.
func (p *Planner) AggregateWeekly(snap Snapshot, end time.Time) WeeklyMetrics {
	start, stop := WeeklyWindow(end)
	in := func(t time.Time) bool {
		return !t.Before(start) && t.Before(stop)
	}

	m := WeeklyMetrics{WindowStart: start, WindowEnd: stop, OrdersByBrand: map[string]int{}}
	idx := newIndex(snap)
	m.Orphans = idx.orphans

	for _, s := range idx.stores {
		if !s.IsInactive() {
			m.TotalStores++
		}
		if in(s.CreatedAt) {
			m.NewStores++
		}
		if s.FirstCustomerAt != nil && in(*s.FirstCustomerAt) {
			m.StoresConverted++
		}
	}

	for _, o := range idx.orders {
		if !in(o.OrderDate) {
			continue
		}
		m.TotalOrders++
		m.TotalCases += o.Cases
		if o.OrderType == model.OrderTypeReorder {
			m.Reorders++
		} else {
			m.FirstOrders++
		}
		brand := o.BrandName
		if brand == "" {
			brand = unknownBrand
		}
		m.OrdersByBrand[brand]++
	}

	contacted := make(map[string]struct{})
	for _, a := range idx.activities {
		if !in(a.Date) {
			continue
		}
		m.TotalActivities++
		contacted[a.StoreID] = struct{}{}
		switch a.Type {
		case model.ActivityTypeCall:
			m.Calls++
		case model.ActivityTypeVisit:
			m.Visits++
		case model.ActivityTypeEmail:
			m.Emails++
		case model.ActivityTypeText:
			m.Texts++
		}
	}
	m.StoresContacted = len(contacted)

	m.EligibleReorders = p.eligibleReorders(idx, start, stop)
	m.ConversionRate = Rate(m.StoresConverted, m.StoresContacted)
	m.ReorderRate = Rate(m.Reorders, m.EligibleReorders)
	return m
}

// eligibleReorders counts active stores whose latest order placed before the window
// came due for reorder on or before the last day of the window.
func (p *Planner) eligibleReorders(idx index, start, stop time.Time) int {
	latest := make(map[string]model.Order)
	for _, o := range idx.orders {
		if !o.OrderDate.Before(start) {
			continue
		}
		cur, ok := latest[o.StoreID]
		if !ok || o.After(cur) {
			latest[o.StoreID] = o
		}
	}

	eligible := 0
	for storeID, o := range latest {
		if idx.stores[storeID].IsInactive() {
			continue
		}
		due, err := p.reorder.reorderDueDate(o)
		if err != nil {
			continue
		}
		if due.Before(stop) {
			eligible++
		}
	}
	return eligible
}
