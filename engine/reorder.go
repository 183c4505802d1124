package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/cadencehq/cadence/model"
)

const (
	DefaultWindowMin = 21
	DefaultWindowMax = 35
)

// Window is an inclusive range of days after an order in which the store is expected to reorder.
type Window struct {
	Min int `json:"min" yaml:"min"`
	Max int `json:"max" yaml:"max"`
}

func (w Window) Validate() error {
	if w.Min < 1 {
		return fmt.Errorf("%w: window lower bound %d must be at least 1 day", ErrInvalidPolicy, w.Min)
	}
	if w.Max < w.Min {
		return fmt.Errorf("%w: window upper bound %d is below lower bound %d", ErrInvalidPolicy, w.Max, w.Min)
	}
	return nil
}

// Strategy picks the single target day inside a window.
type Strategy string

const (
	// StrategyMidpoint always lands on (Min+Max)/2, 28 days for the default window.
	StrategyMidpoint Strategy = "midpoint"
	// StrategyCaseVolume gives larger orders more time to sell through.
	StrategyCaseVolume Strategy = "case_volume"
)

// ReorderPolicy resolves the window for an order: brand first, then product category,
// then the default.
type ReorderPolicy struct {
	Default    Window            `json:"default" yaml:"default"`
	Brands     map[string]Window `json:"brands,omitempty" yaml:"brands"`
	Categories map[string]Window `json:"categories,omitempty" yaml:"categories"`
	Strategy   Strategy          `json:"strategy" yaml:"strategy"`
}

func DefaultReorderPolicy() ReorderPolicy {
	return ReorderPolicy{
		Default:  Window{Min: DefaultWindowMin, Max: DefaultWindowMax},
		Strategy: StrategyMidpoint,
	}
}

// Validate checks every window in the policy and the strategy name.
func (p ReorderPolicy) Validate() error {
	if err := p.Default.Validate(); err != nil {
		return fmt.Errorf("default window: %w", err)
	}
	for brand, w := range p.Brands {
		if err := w.Validate(); err != nil {
			return fmt.Errorf("brand %q: %w", brand, err)
		}
	}
	for category, w := range p.Categories {
		if err := w.Validate(); err != nil {
			return fmt.Errorf("category %q: %w", category, err)
		}
	}
	switch p.Strategy {
	case "", StrategyMidpoint, StrategyCaseVolume:
	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidPolicy, p.Strategy)
	}
	return nil
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// WindowFor returns the window that applies to a brand and product category.
// Lookups are case-insensitive.
func (p ReorderPolicy) WindowFor(brand, category string) Window {
	if brand != "" {
		for name, w := range p.Brands {
			if normalizeKey(name) == normalizeKey(brand) {
				return w
			}
		}
	}
	if category != "" {
		for name, w := range p.Categories {
			if normalizeKey(name) == normalizeKey(category) {
				return w
			}
		}
	}
	return p.Default
}

// ReorderDate returns the target reorder day for an order placed on orderDate.
// Order dates in the future are accepted; reps backfill.
func ReorderDate(orderDate time.Time, w Window, strategy Strategy, cases int) (time.Time, error) {
	if err := w.Validate(); err != nil {
		return time.Time{}, err
	}

	days := (w.Min + w.Max) / 2
	if strategy == StrategyCaseVolume {
		switch {
		case cases >= 10:
			days = w.Max
		case cases >= 5:
			days = (w.Min + w.Max) / 2
		default:
			days = w.Min
		}
	}
	return model.DateOf(orderDate).AddDate(0, 0, days), nil
}

// NextReorderDate computes the reorder date for an order from the policy.
func (p ReorderPolicy) NextReorderDate(order model.Order) (time.Time, error) {
	return ReorderDate(order.OrderDate, p.WindowFor(order.BrandName, order.Category), p.Strategy, order.Cases)
}

// reorderDueDate prefers the stored next-reorder-date and falls back to the policy.
func (p ReorderPolicy) reorderDueDate(order model.Order) (time.Time, error) {
	if order.NextReorderDate != nil && !order.NextReorderDate.IsZero() {
		return model.DateOf(*order.NextReorderDate), nil
	}
	return p.NextReorderDate(order)
}
