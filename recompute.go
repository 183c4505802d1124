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
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/cadencehq/cadence/config"
	"github.com/cadencehq/cadence/model"
)

// RecomputeResult summarises a reorder-date recomputation.
type RecomputeResult struct {
	OrdersScanned int      `json:"orders_scanned"`
	OrdersUpdated int      `json:"orders_updated"`
	StoresUpdated []string `json:"stores_updated"`
}

// ReloadPolicy re-reads the reorder and follow-up policies from configuration. A policy that
// fails validation leaves the current one in force.
func (c *Cadence) ReloadPolicy() error {
	cnf, err := config.Fetch()
	if err != nil {
		return err
	}
	planner, err := newPlanner(cnf)
	if err != nil {
		return err
	}
	c.planner.Store(planner)
	return nil
}

// RecomputeReorderDates reloads the policy and rewrites next_reorder_date on every order whose
// stored date no longer matches it. Stores with changed orders get their next action refreshed.
// Orphan orders are skipped.
func (c *Cadence) RecomputeReorderDates(ctx context.Context) (RecomputeResult, error) {
	ctx, span := orderTracer.Start(ctx, "RecomputeReorderDates")
	defer span.End()

	if err := c.ReloadPolicy(); err != nil {
		span.RecordError(err)
		return RecomputeResult{}, err
	}
	policy := c.Planner().ReorderPolicy()

	snap, err := c.loadSnapshot(ctx)
	if err != nil {
		span.RecordError(err)
		return RecomputeResult{}, err
	}

	known := make(map[string]bool, len(snap.Stores))
	for _, s := range snap.Stores {
		known[s.StoreID] = true
	}

	result := RecomputeResult{StoresUpdated: []string{}}
	touched := make(map[string]bool)
	for _, order := range snap.Orders {
		if !known[order.StoreID] {
			continue
		}
		result.OrdersScanned++

		due, err := policy.NextReorderDate(order)
		if err != nil {
			return RecomputeResult{}, err
		}
		if order.NextReorderDate != nil && model.DateOf(*order.NextReorderDate).Equal(due) {
			continue
		}
		if err := c.datasource.UpdateOrderNextReorderDate(ctx, order.OrderID, due); err != nil {
			span.RecordError(err)
			return RecomputeResult{}, err
		}
		result.OrdersUpdated++
		touched[order.StoreID] = true
	}

	for storeID := range touched {
		result.StoresUpdated = append(result.StoresUpdated, storeID)
	}
	sort.Strings(result.StoresUpdated)
	for _, storeID := range result.StoresUpdated {
		if _, err := c.refreshNextAction(ctx, storeID); err != nil {
			span.RecordError(err)
			return RecomputeResult{}, err
		}
	}

	logrus.WithFields(logrus.Fields{"scanned": result.OrdersScanned, "updated": result.OrdersUpdated}).Info("reorder dates recomputed")
	return result, nil
}
