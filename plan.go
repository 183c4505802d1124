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
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/cadencehq/cadence/engine"
	"github.com/cadencehq/cadence/internal/apierror"
	"github.com/cadencehq/cadence/internal/digest"
	"github.com/cadencehq/cadence/internal/email"
)

var planTracer = otel.Tracer("cadence.plans")

func (c *Cadence) loadSnapshot(ctx context.Context) (engine.Snapshot, error) {
	snap, err := c.datasource.LoadSnapshot(ctx)
	if err != nil {
		return engine.Snapshot{}, errors.Wrap(err, "load snapshot")
	}
	return snap, nil
}

// BuildPlan derives the prioritized task list for the horizon of mode as seen at now.
// An empty pipeline yields an empty plan.
func (c *Cadence) BuildPlan(ctx context.Context, mode engine.Mode, now time.Time) (engine.Plan, error) {
	ctx, span := planTracer.Start(ctx, "BuildPlan")
	defer span.End()
	span.SetAttributes(attribute.String("mode", string(mode)))

	if !mode.Valid() {
		return engine.Plan{}, apierror.NewAPIError(apierror.ErrInvalidInput, fmt.Sprintf("unknown mode %q, expected daily or weekly", mode), nil)
	}

	snap, err := c.loadSnapshot(ctx)
	if err != nil {
		span.RecordError(err)
		return engine.Plan{}, err
	}

	plan, err := c.Planner().Derive(snap, now, mode)
	if err != nil {
		span.RecordError(err)
		return engine.Plan{}, err
	}
	plan.Orphans = annotateOrphans(plan.Orphans, storeIDs(snap.Stores))
	span.SetAttributes(attribute.Int("tasks", len(plan.Tasks)), attribute.Int("orphans", len(plan.Orphans)))
	return plan, nil
}

// TickResult is what a clock-driven run produced and delivered.
type TickResult struct {
	Plan   engine.Plan           `json:"plan"`
	Report *engine.WeeklyMetrics `json:"report,omitempty"`
}

// RunTick builds the plan for mode and delivers it to the webhook and email sinks. Weekly
// ticks also deliver the metrics for the week that ended at now, computed from a fresh snapshot
// rather than a cached report.
func (c *Cadence) RunTick(ctx context.Context, mode engine.Mode, now time.Time) (TickResult, error) {
	ctx, span := planTracer.Start(ctx, "RunTick")
	defer span.End()

	plan, err := c.BuildPlan(ctx, mode, now)
	if err != nil {
		return TickResult{}, err
	}
	result := TickResult{Plan: plan}

	event := EventTasksDaily
	if mode == engine.ModeWeekly {
		event = EventTasksWeekly
	}
	if err := c.queue.SendWebhook(ctx, NewWebhook{Event: event, Payload: plan}); err != nil {
		span.RecordError(err)
		return TickResult{}, err
	}
	c.sendDigest(ctx, digest.PlanSubject(plan), digest.Plan(plan))

	if mode == engine.ModeWeekly {
		report, err := c.aggregateReport(ctx, now)
		if err != nil {
			span.RecordError(err)
			return TickResult{}, err
		}
		result.Report = &report
		if err := c.queue.SendWebhook(ctx, NewWebhook{Event: EventReportWeekly, Payload: report}); err != nil {
			span.RecordError(err)
			return TickResult{}, err
		}
		c.sendDigest(ctx, digest.ReportSubject(report), digest.WeeklyReport(report))
	}

	logrus.WithFields(logrus.Fields{"mode": mode, "tasks": len(plan.Tasks), "orphans": len(plan.Orphans)}).Info("tick delivered")
	return result, nil
}

// sendDigest emails a rendered digest. Email is best-effort: failures are reported, not returned.
func (c *Cadence) sendDigest(ctx context.Context, subject, markdown string) {
	if len(c.recipients) == 0 {
		return
	}
	html, err := digest.ToHTML(markdown)
	if err != nil {
		logrus.Errorf("render digest: %v", err)
		return
	}
	if _, err := c.mailer.Send(ctx, email.Message{To: c.recipients, Subject: subject, HTML: html}); err != nil {
		logrus.WithField("subject", subject).Errorf("digest email failed: %v", err)
	}
}
