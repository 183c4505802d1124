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
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cadencehq/cadence/config"
	"github.com/cadencehq/cadence/engine"
	"github.com/cadencehq/cadence/internal/cache"
	"github.com/cadencehq/cadence/model"
)

func reportCacheKey(end time.Time) string {
	return fmt.Sprintf("report:weekly:%s", model.DateOf(end).Format(model.DateLayout))
}

func reportCacheTTL() time.Duration {
	cnf, err := config.Fetch()
	if err != nil || cnf.Report.CacheTTLSec <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(cnf.Report.CacheTTLSec) * time.Second
}

// WeeklyReport aggregates the trailing seven days ending (exclusive) on end's day.
// Results are cached briefly so repeated dashboard reads do not reload the snapshot.
func (c *Cadence) WeeklyReport(ctx context.Context, end time.Time) (engine.WeeklyMetrics, error) {
	ctx, span := planTracer.Start(ctx, "WeeklyReport")
	defer span.End()

	key := reportCacheKey(end)
	var metrics engine.WeeklyMetrics
	if c.cache != nil {
		// stored as JSON so null rates survive the round trip
		var cached []byte
		err := c.cache.Get(ctx, key, &cached)
		if err == nil && json.Unmarshal(cached, &metrics) == nil {
			span.AddEvent("Report served from cache")
			return metrics, nil
		}
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			logrus.Warnf("report cache read failed: %v", err)
		}
	}

	return c.aggregateReport(ctx, end)
}

// aggregateReport computes the weekly metrics from a fresh snapshot and replaces the cached copy.
func (c *Cadence) aggregateReport(ctx context.Context, end time.Time) (engine.WeeklyMetrics, error) {
	ctx, span := planTracer.Start(ctx, "AggregateReport")
	defer span.End()

	snap, err := c.loadSnapshot(ctx)
	if err != nil {
		span.RecordError(err)
		return engine.WeeklyMetrics{}, err
	}
	metrics := c.Planner().AggregateWeekly(snap, end)
	metrics.Orphans = annotateOrphans(metrics.Orphans, storeIDs(snap.Stores))

	if c.cache != nil {
		if data, err := json.Marshal(metrics); err == nil {
			if err := c.cache.Set(ctx, reportCacheKey(end), data, reportCacheTTL()); err != nil {
				logrus.Warnf("report cache write failed: %v", err)
			}
		}
	}
	return metrics, nil
}
