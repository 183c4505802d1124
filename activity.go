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
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/cadencehq/cadence/engine"
	"github.com/cadencehq/cadence/internal/apierror"
	"github.com/cadencehq/cadence/model"
)

var activityTracer = otel.Tracer("cadence.activities")

type ActivityResult struct {
	Activity       model.Activity    `json:"activity"`
	Order          *model.Order      `json:"order,omitempty"`
	Transition     engine.Transition `json:"transition"`
	NextActionDate *time.Time        `json:"next_action_date,omitempty"`
}

// LogActivity records an interaction with a store. A missing next-step date is derived from the
// outcome. An "ordered" outcome must either reference an existing order through OrderID or carry
// the order to create; the store becomes a customer either way.
func (c *Cadence) LogActivity(ctx context.Context, activity model.Activity, order *model.Order) (ActivityResult, error) {
	ctx, span := activityTracer.Start(ctx, "LogActivity")
	defer span.End()
	span.SetAttributes(attribute.String("store.id", activity.StoreID), attribute.String("outcome", string(activity.Outcome)))

	if err := c.requireStore(ctx, engine.RecordKindActivity, activity.ActivityID, activity.StoreID); err != nil {
		span.RecordError(err)
		return ActivityResult{}, err
	}

	result := ActivityResult{}
	if activity.Outcome == model.OutcomeOrdered {
		linked, err := c.linkOrder(ctx, activity, order)
		if err != nil {
			span.RecordError(err)
			return ActivityResult{}, err
		}
		activity.OrderID = linked.OrderID
		result.Order = linked
	}

	if due, ok := c.Planner().FollowUpPolicy().NextStepDate(activity); ok {
		activity.NextStepDate = &due
	}

	activity, err := c.datasource.RecordActivity(ctx, activity)
	if err != nil {
		span.RecordError(err)
		return ActivityResult{}, err
	}
	result.Activity = activity

	if err := c.datasource.TouchStoreContact(ctx, activity.StoreID, activity.Date); err != nil {
		return ActivityResult{}, err
	}

	result.Transition, err = c.applyEvent(ctx, activity.StoreID, activity.ActivityID, engine.ActivityLogged(activity.Outcome), activity.Date)
	if err != nil {
		return ActivityResult{}, err
	}
	if !result.Transition.Anomaly && !result.Transition.CancelTasks {
		result.NextActionDate, err = c.refreshNextAction(ctx, activity.StoreID)
		if err != nil {
			return ActivityResult{}, err
		}
	}

	c.postWebhook(ctx, EventActivityLogged, result)
	return result, nil
}

func (c *Cadence) linkOrder(ctx context.Context, activity model.Activity, order *model.Order) (*model.Order, error) {
	if activity.OrderID != "" {
		existing, err := c.datasource.GetOrderByID(ctx, activity.OrderID)
		if err != nil {
			return nil, err
		}
		if existing.StoreID != activity.StoreID {
			return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "order_id belongs to a different store", nil)
		}
		return existing, nil
	}

	if order == nil {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "an ordered activity needs an order_id or the order details", nil)
	}
	o := *order
	o.StoreID = activity.StoreID
	if o.OrderDate.IsZero() {
		o.OrderDate = activity.Date
	}
	recorded, err := c.RecordOrder(ctx, o)
	if err != nil {
		return nil, err
	}
	return &recorded.Order, nil
}

func (c *Cadence) GetActivityByID(ctx context.Context, id string) (*model.Activity, error) {
	return c.datasource.GetActivityByID(ctx, id)
}

func (c *Cadence) GetActivitiesByStore(ctx context.Context, storeID string) ([]model.Activity, error) {
	return c.datasource.GetActivitiesByStore(ctx, storeID)
}
