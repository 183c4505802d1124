/*
Copyright 2024 Cadence Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cadence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cadencehq/cadence/engine"
	"github.com/cadencehq/cadence/internal/apierror"
	redlock "github.com/cadencehq/cadence/internal/lock"
	"github.com/cadencehq/cadence/internal/notification"
	"github.com/cadencehq/cadence/model"
)

var eventTracer = otel.Tracer("cadence.events")

// StoreEvent is the webhook payload for status changes, cancellations and anomalies.
type StoreEvent struct {
	StoreID    string            `json:"store_id"`
	From       model.StoreStatus `json:"from"`
	To         model.StoreStatus `json:"to"`
	Event      engine.Event      `json:"event"`
	OccurredAt time.Time         `json:"occurred_at"`
}

func (c *Cadence) postWebhook(ctx context.Context, event string, payload interface{}) {
	go func() {
		err := c.queue.SendWebhook(context.WithoutCancel(ctx), NewWebhook{Event: event, Payload: payload})
		if err != nil {
			notification.NotifyError(err)
		}
	}()
}

// applyEvent resolves ev, raised by the record recordID, against the store and writes the result
// while holding the store lock, so concurrent orders and activities on the same store cannot lose
// each other's status write.
func (c *Cadence) applyEvent(ctx context.Context, storeID, recordID string, ev engine.Event, at time.Time) (engine.Transition, error) {
	ctx, span := eventTracer.Start(ctx, "ApplyEvent")
	defer span.End()
	span.SetAttributes(attribute.String("store.id", storeID), attribute.String("event.kind", string(ev.Kind)))

	var t engine.Transition
	var replay bool
	locker := redlock.NewStoreLocker(c.redis, storeID)
	err := locker.WithLock(ctx, storeLockTTL, storeLockWait, func(ctx context.Context) error {
		store, err := c.datasource.GetStoreByID(ctx, storeID)
		if err != nil {
			return err
		}

		t = engine.ResolveTransition(*store, ev)
		if t.Anomaly && ev.Outcome == model.OutcomeNotAFit {
			if replay, err = c.deactivatedBy(ctx, storeID, recordID); err != nil {
				return err
			}
			if replay {
				t.Anomaly = false
				t.CancelTasks = true
				return nil
			}
		}
		if t.Anomaly || (!t.Changed && !t.StampFirstCustomer) {
			return nil
		}

		updated := t.Apply(*store, at)
		if err := c.datasource.UpdateStoreStatus(ctx, storeID, updated.Status, updated.FirstCustomerAt); err != nil {
			return err
		}
		if t.CancelTasks {
			return c.datasource.UpdateStoreNextAction(ctx, storeID, nil)
		}
		return nil
	})
	if errors.Is(err, redlock.ErrLockHeld) {
		err = apierror.NewAPIError(apierror.ErrLocked, fmt.Sprintf("store %s is being updated, retry shortly", storeID), err)
	}
	if err != nil {
		span.RecordError(err)
		return engine.Transition{}, err
	}

	if replay {
		span.AddEvent("Store already left the pipeline through this record")
		return t, nil
	}

	payload := StoreEvent{StoreID: storeID, From: t.From, To: t.To, Event: ev, OccurredAt: at}
	switch {
	case t.Anomaly:
		span.AddEvent("Event on inactive store")
		logrus.WithFields(logrus.Fields{"store_id": storeID, "event": ev.Kind, "outcome": ev.Outcome}).Warn("event received for inactive store")
		c.postWebhook(ctx, EventStoreAnomaly, payload)
	case t.CancelTasks:
		span.AddEvent("Store left the pipeline", trace.WithAttributes(attribute.String("status", string(t.To))))
		c.postWebhook(ctx, EventStoreStatusChanged, payload)
		c.postWebhook(ctx, EventStoreTasksCancelled, payload)
	case t.Changed:
		span.AddEvent("Status changed", trace.WithAttributes(attribute.String("status", string(t.To))))
		c.postWebhook(ctx, EventStoreStatusChanged, payload)
	}
	return t, nil
}

// deactivatedBy reports whether activityID is the earliest "not a fit" activity of the store,
// i.e. the record that made it inactive. Seeing it again is a second delivery, not an anomaly.
func (c *Cadence) deactivatedBy(ctx context.Context, storeID, activityID string) (bool, error) {
	if activityID == "" {
		return false, nil
	}
	activities, err := c.datasource.GetActivitiesByStore(ctx, storeID)
	if err != nil {
		return false, err
	}
	var first *model.Activity
	for i := range activities {
		a := activities[i]
		if a.Outcome != model.OutcomeNotAFit {
			continue
		}
		if first == nil || first.After(a) {
			first = &activities[i]
		}
	}
	return first != nil && first.ActivityID == activityID, nil
}

// storeSnapshot reads everything the engine needs to plan a single store.
func (c *Cadence) storeSnapshot(ctx context.Context, storeID string) (engine.Snapshot, error) {
	store, err := c.datasource.GetStoreByID(ctx, storeID)
	if err != nil {
		return engine.Snapshot{}, err
	}
	orders, err := c.datasource.GetOrdersByStore(ctx, storeID)
	if err != nil {
		return engine.Snapshot{}, err
	}
	activities, err := c.datasource.GetActivitiesByStore(ctx, storeID)
	if err != nil {
		return engine.Snapshot{}, err
	}
	return engine.Snapshot{Stores: []model.Store{*store}, Orders: orders, Activities: activities}, nil
}

// refreshNextAction stores the earliest pending due date for the store, or clears it.
func (c *Cadence) refreshNextAction(ctx context.Context, storeID string) (*time.Time, error) {
	snap, err := c.storeSnapshot(ctx, storeID)
	if err != nil {
		return nil, err
	}
	var next *time.Time
	if due, ok := c.Planner().NextActionDate(snap, storeID); ok {
		next = &due
	}
	if err := c.datasource.UpdateStoreNextAction(ctx, storeID, next); err != nil {
		return nil, err
	}
	return next, nil
}

// EventResult reports what a record-created trigger changed.
type EventResult struct {
	Event          RecordEvent       `json:"event"`
	StoreID        string            `json:"store_id"`
	Transition     engine.Transition `json:"transition"`
	NextActionDate *time.Time        `json:"next_action_date,omitempty"`
}

// ProcessRecordEvent handles an inserted row: it fills in a missing reorder date on orders,
// applies the status transition and refreshes the store's next action date. Activity next-step
// dates are not written back; the planner derives them from the outcome on every read.
// Replaying the same event leaves the store unchanged and raises no anomaly.
func (c *Cadence) ProcessRecordEvent(ctx context.Context, ev RecordEvent) (EventResult, error) {
	ctx, span := eventTracer.Start(ctx, "ProcessRecordEvent")
	defer span.End()
	span.SetAttributes(attribute.String("table", ev.Table), attribute.String("record.id", ev.RecordID))

	if err := ev.Validate(); err != nil {
		return EventResult{}, apierror.NewAPIError(apierror.ErrInvalidInput, err.Error(), nil)
	}

	result := EventResult{Event: ev}
	var err error
	switch ev.Table {
	case TableStores:
		result.StoreID = ev.RecordID
	case TableOrders:
		result.StoreID, result.Transition, err = c.processOrderEvent(ctx, ev.RecordID)
	case TableActivities:
		result.StoreID, result.Transition, err = c.processActivityEvent(ctx, ev.RecordID)
	}
	if err != nil {
		span.RecordError(err)
		return EventResult{}, err
	}

	if result.Transition.Anomaly || result.Transition.CancelTasks {
		return result, nil
	}
	result.NextActionDate, err = c.refreshNextAction(ctx, result.StoreID)
	if err != nil {
		span.RecordError(err)
		return EventResult{}, err
	}
	return result, nil
}

func (c *Cadence) processOrderEvent(ctx context.Context, orderID string) (string, engine.Transition, error) {
	order, err := c.datasource.GetOrderByID(ctx, orderID)
	if err != nil {
		return "", engine.Transition{}, err
	}
	if err := c.requireStore(ctx, engine.RecordKindOrder, order.OrderID, order.StoreID); err != nil {
		return "", engine.Transition{}, err
	}

	if order.NextReorderDate == nil {
		due, err := c.Planner().ReorderPolicy().NextReorderDate(*order)
		if err != nil {
			return "", engine.Transition{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to compute reorder date", err)
		}
		if err := c.datasource.UpdateOrderNextReorderDate(ctx, order.OrderID, due); err != nil {
			return "", engine.Transition{}, err
		}
	}
	if err := c.datasource.TouchStoreContact(ctx, order.StoreID, order.OrderDate); err != nil {
		return "", engine.Transition{}, err
	}

	t, err := c.applyEvent(ctx, order.StoreID, order.OrderID, engine.OrderCreated(order.OrderType), order.OrderDate)
	return order.StoreID, t, err
}

func (c *Cadence) processActivityEvent(ctx context.Context, activityID string) (string, engine.Transition, error) {
	activity, err := c.datasource.GetActivityByID(ctx, activityID)
	if err != nil {
		return "", engine.Transition{}, err
	}
	if err := c.requireStore(ctx, engine.RecordKindActivity, activity.ActivityID, activity.StoreID); err != nil {
		return "", engine.Transition{}, err
	}
	if activity.Outcome == model.OutcomeOrdered && activity.OrderID == "" {
		logrus.WithFields(logrus.Fields{"activity_id": activity.ActivityID, "store_id": activity.StoreID}).
			Warn("ordered activity has no linked order; reorder reminder starts when the order row arrives")
	}
	if err := c.datasource.TouchStoreContact(ctx, activity.StoreID, activity.Date); err != nil {
		return "", engine.Transition{}, err
	}

	t, err := c.applyEvent(ctx, activity.StoreID, activity.ActivityID, engine.ActivityLogged(activity.Outcome), activity.Date)
	return activity.StoreID, t, err
}
