package engine

import (
	"time"

	"github.com/cadencehq/cadence/model"
)

type EventKind string

const (
	EventOrderCreated   EventKind = "order.created"
	EventActivityLogged EventKind = "activity.logged"
)

// Event is a business event that may move a store through the pipeline.
type Event struct {
	Kind      EventKind             `json:"kind"`
	OrderType model.OrderType       `json:"order_type,omitempty"`
	Outcome   model.ActivityOutcome `json:"outcome,omitempty"`
}

func OrderCreated(orderType model.OrderType) Event {
	return Event{Kind: EventOrderCreated, OrderType: orderType}
}

func ActivityLogged(outcome model.ActivityOutcome) Event {
	return Event{Kind: EventActivityLogged, Outcome: outcome}
}

// Transition is the result of resolving an event against a store.
type Transition struct {
	From    model.StoreStatus `json:"from"`
	To      model.StoreStatus `json:"to"`
	Changed bool              `json:"changed"`
	// Anomaly is set when an event arrives for an inactive store.
	Anomaly bool `json:"anomaly"`
	// StampFirstCustomer is set only the first time a store becomes a customer.
	StampFirstCustomer bool `json:"stamp_first_customer"`
	// CancelTasks is set when the store leaves the pipeline.
	CancelTasks bool `json:"cancel_tasks"`
}

// ResolveTransition applies the status table to store for ev. It never demotes a store:
// targets ranked below the current status leave it unchanged.
func ResolveTransition(store model.Store, ev Event) Transition {
	from := store.Status
	if from == "" {
		from = model.StoreStatusNew
	}
	t := Transition{From: from, To: from}

	if from == model.StoreStatusInactive {
		t.Anomaly = true
		return t
	}

	target, ok := targetStatus(ev)
	if !ok {
		return t
	}

	if target == model.StoreStatusInactive {
		t.To = model.StoreStatusInactive
		t.Changed = true
		t.CancelTasks = true
		return t
	}

	current, _ := from.Rank()
	next, _ := target.Rank()
	if next > current {
		t.To = target
		t.Changed = true
	}
	if t.To == model.StoreStatusCustomer && store.FirstCustomerAt == nil {
		t.StampFirstCustomer = true
	}
	return t
}

func targetStatus(ev Event) (model.StoreStatus, bool) {
	switch ev.Kind {
	case EventOrderCreated:
		return model.StoreStatusCustomer, true
	case EventActivityLogged:
		switch ev.Outcome {
		case model.OutcomeOrdered:
			return model.StoreStatusCustomer, true
		case model.OutcomeNotAFit:
			return model.StoreStatusInactive, true
		case model.OutcomeInterested:
			return model.StoreStatusQualified, true
		case model.OutcomeMaybeLater:
			return model.StoreStatusContacted, true
		}
	}
	return "", false
}

// Apply writes the transition onto a copy of store. at stamps the first customer date.
func (t Transition) Apply(store model.Store, at time.Time) model.Store {
	store.Status = t.To
	if t.StampFirstCustomer && store.FirstCustomerAt == nil {
		stamp := at
		store.FirstCustomerAt = &stamp
	}
	if t.CancelTasks {
		store.NextActionDate = nil
	}
	return store
}
