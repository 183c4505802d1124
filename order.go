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

var orderTracer = otel.Tracer("cadence.orders")

// OrderResult is a recorded order with the store state it produced.
type OrderResult struct {
	Order          model.Order       `json:"order"`
	Transition     engine.Transition `json:"transition"`
	NextActionDate *time.Time        `json:"next_action_date,omitempty"`
}

// RecordOrder stores a new order, stamps its next reorder date from the current policy,
// promotes the store to customer and refreshes its next action date. The order type is
// inferred from the store's history when it is not given.
func (c *Cadence) RecordOrder(ctx context.Context, order model.Order) (OrderResult, error) {
	ctx, span := orderTracer.Start(ctx, "RecordOrder")
	defer span.End()
	span.SetAttributes(attribute.String("store.id", order.StoreID))

	if err := c.requireStore(ctx, engine.RecordKindOrder, order.OrderID, order.StoreID); err != nil {
		span.RecordError(err)
		return OrderResult{}, err
	}

	if order.OrderType == "" {
		previous, err := c.datasource.GetOrdersByStore(ctx, order.StoreID)
		if err != nil {
			return OrderResult{}, err
		}
		order.OrderType = model.OrderTypeFirst
		if len(previous) > 0 {
			order.OrderType = model.OrderTypeReorder
		}
	}

	due, err := c.Planner().ReorderPolicy().NextReorderDate(order)
	if err != nil {
		span.RecordError(err)
		return OrderResult{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to compute reorder date", err)
	}
	order.NextReorderDate = &due

	order, err = c.datasource.RecordOrder(ctx, order)
	if err != nil {
		span.RecordError(err)
		return OrderResult{}, err
	}
	span.SetAttributes(attribute.String("order.id", order.OrderID))

	if err := c.datasource.TouchStoreContact(ctx, order.StoreID, order.OrderDate); err != nil {
		return OrderResult{}, err
	}

	t, err := c.applyEvent(ctx, order.StoreID, order.OrderID, engine.OrderCreated(order.OrderType), order.OrderDate)
	if err != nil {
		return OrderResult{}, err
	}
	result := OrderResult{Order: order, Transition: t}
	if !t.Anomaly {
		result.NextActionDate, err = c.refreshNextAction(ctx, order.StoreID)
		if err != nil {
			return OrderResult{}, err
		}
	}

	c.postWebhook(ctx, EventOrderCreated, result)
	return result, nil
}

func (c *Cadence) GetOrderByID(ctx context.Context, id string) (*model.Order, error) {
	return c.datasource.GetOrderByID(ctx, id)
}

func (c *Cadence) GetOrdersByStore(ctx context.Context, storeID string) ([]model.Order, error) {
	return c.datasource.GetOrdersByStore(ctx, storeID)
}
