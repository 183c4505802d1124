package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cadencehq/cadence/model"
)

type Mode string

const (
	ModeDaily  Mode = "daily"
	ModeWeekly Mode = "weekly"
)

func (m Mode) Valid() bool {
	return m == ModeDaily || m == ModeWeekly
}

type TaskKind string

const (
	TaskReorderDue  TaskKind = "reorder-due"
	TaskFollowUpDue TaskKind = "follow-up-due"
)

// kindPriority breaks ties between equally overdue tasks; revenue comes first.
var kindPriority = map[TaskKind]int{
	TaskReorderDue:  0,
	TaskFollowUpDue: 1,
}

type PriorityBand string

const (
	PriorityHigh   PriorityBand = "high"
	PriorityMedium PriorityBand = "medium"
	PriorityLow    PriorityBand = "low"
)

type Task struct {
	Rank        int          `json:"rank"`
	StoreID     string       `json:"store_id"`
	StoreName   string       `json:"store_name"`
	Kind        TaskKind     `json:"kind"`
	DueDate     time.Time    `json:"due_date"`
	DaysOverdue int          `json:"days_overdue"`
	Priority    PriorityBand `json:"priority"`
	SourceID    string       `json:"source_id"`
	Action      string       `json:"action"`
}

type Plan struct {
	Mode    Mode           `json:"mode"`
	Now     time.Time      `json:"now"`
	Horizon time.Time      `json:"horizon"`
	Tasks   []Task         `json:"tasks"`
	Orphans []OrphanRecord `json:"orphans,omitempty"`
}

// FollowUpPolicy derives a next-step date for activities that were logged without one.
type FollowUpPolicy struct {
	InterestedDays int `json:"interested_days"`
	MaybeLaterDays int `json:"maybe_later_days"`
}

func DefaultFollowUpPolicy() FollowUpPolicy {
	return FollowUpPolicy{InterestedDays: 3, MaybeLaterDays: 14}
}

// NextStepDate returns the supplied next-step date or one derived from the outcome.
// Terminal outcomes without a supplied date have no next step.
func (f FollowUpPolicy) NextStepDate(a model.Activity) (time.Time, bool) {
	if a.NextStepDate != nil && !a.NextStepDate.IsZero() {
		return model.DateOf(*a.NextStepDate), true
	}
	var days int
	switch a.Outcome {
	case model.OutcomeInterested:
		days = f.InterestedDays
	case model.OutcomeMaybeLater:
		days = f.MaybeLaterDays
	}
	if days <= 0 {
		return time.Time{}, false
	}
	return model.DateOf(a.Date).AddDate(0, 0, days), true
}

// Planner turns snapshots into plans and metrics. It holds only validated policy.
type Planner struct {
	reorder  ReorderPolicy
	followUp FollowUpPolicy
}

func NewPlanner(reorder ReorderPolicy, followUp FollowUpPolicy) (*Planner, error) {
	if err := reorder.Validate(); err != nil {
		return nil, err
	}
	return &Planner{reorder: reorder, followUp: followUp}, nil
}

func (p *Planner) ReorderPolicy() ReorderPolicy {
	return p.reorder
}

func (p *Planner) FollowUpPolicy() FollowUpPolicy {
	return p.followUp
}

// Horizon returns the last calendar day covered by a run. Daily runs cover the day of now,
// weekly runs cover through the Sunday ending now's ISO week.
func Horizon(now time.Time, mode Mode) (time.Time, error) {
	today := model.DateOf(now)
	switch mode {
	case ModeDaily:
		return today, nil
	case ModeWeekly:
		toSunday := (7 - int(today.Weekday())) % 7
		return today.AddDate(0, 0, toSunday), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
}

type taskKey struct {
	storeID string
	kind    TaskKind
}

// Derive builds the prioritized task list for everything due on or before the horizon.
// The result depends only on snap, now and mode.
func (p *Planner) Derive(snap Snapshot, now time.Time, mode Mode) (Plan, error) {
	horizon, err := Horizon(now, mode)
	if err != nil {
		return Plan{}, err
	}
	plan := Plan{Mode: mode, Now: now, Horizon: horizon, Tasks: []Task{}}
	if snap.Empty() {
		return plan, nil
	}

	idx := newIndex(snap)
	plan.Orphans = idx.orphans

	candidates := p.candidates(idx, horizon)
	plan.Tasks = prioritize(candidates, model.DateOf(now))
	return plan, nil
}

// NextActionDate returns the earliest pending due date for a store regardless of horizon.
func (p *Planner) NextActionDate(snap Snapshot, storeID string) (time.Time, bool) {
	idx := newIndex(snap)
	store, ok := idx.stores[storeID]
	if !ok || store.IsInactive() {
		return time.Time{}, false
	}
	far := time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	var earliest time.Time
	found := false
	for key, t := range p.candidates(idx, far) {
		if key.storeID != storeID {
			continue
		}
		if !found || t.DueDate.Before(earliest) {
			earliest = t.DueDate
			found = true
		}
	}
	return earliest, found
}

func (p *Planner) candidates(idx index, horizon time.Time) map[taskKey]Task {
	candidates := make(map[taskKey]Task)
	offer := func(t Task) {
		key := taskKey{storeID: t.StoreID, kind: t.Kind}
		cur, ok := candidates[key]
		// earliest due wins; equal dates keep the lower source ID so the choice is stable
		if !ok || t.DueDate.Before(cur.DueDate) || (t.DueDate.Equal(cur.DueDate) && t.SourceID < cur.SourceID) {
			candidates[key] = t
		}
	}

	for storeID, order := range idx.latestOrders() {
		store := idx.stores[storeID]
		if store.IsInactive() {
			continue
		}
		due, err := p.reorder.reorderDueDate(order)
		if err != nil || due.After(horizon) {
			continue
		}
		offer(Task{
			StoreID:   storeID,
			StoreName: store.Name,
			Kind:      TaskReorderDue,
			DueDate:   due,
			SourceID:  order.OrderID,
			Action:    reorderAction(order),
		})
	}

	for storeID, acts := range idx.activitiesByStore() {
		store := idx.stores[storeID]
		if store.IsInactive() {
			continue
		}
		for _, a := range acts {
			due, ok := p.followUp.NextStepDate(a)
			if !ok || due.After(horizon) {
				continue
			}
			if p.resolved(a, due, acts) {
				continue
			}
			offer(Task{
				StoreID:   storeID,
				StoreName: store.Name,
				Kind:      TaskFollowUpDue,
				DueDate:   due,
				SourceID:  a.ActivityID,
				Action:    followUpAction(a),
			})
		}
	}
	return candidates
}

// resolved reports whether a newer activity for the same store settles a's step: it happened
// on or after the due date, re-planned the next step, or closed the conversation.
func (p *Planner) resolved(a model.Activity, due time.Time, storeActivities []model.Activity) bool {
	for _, b := range storeActivities {
		if b.ActivityID == a.ActivityID || !b.After(a) {
			continue
		}
		if !model.DateOf(b.Date).Before(due) || b.Outcome.Terminal() {
			return true
		}
		if _, ok := p.followUp.NextStepDate(b); ok {
			return true
		}
	}
	return false
}

func prioritize(candidates map[taskKey]Task, today time.Time) []Task {
	tasks := make([]Task, 0, len(candidates))
	for _, t := range candidates {
		t.DaysOverdue = model.DaysBetween(t.DueDate, today)
		t.Priority = band(t.DaysOverdue)
		tasks = append(tasks, t)
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if a.DaysOverdue != b.DaysOverdue {
			return a.DaysOverdue > b.DaysOverdue
		}
		if kindPriority[a.Kind] != kindPriority[b.Kind] {
			return kindPriority[a.Kind] < kindPriority[b.Kind]
		}
		return a.StoreID < b.StoreID
	})
	for i := range tasks {
		tasks[i].Rank = i + 1
	}
	return tasks
}

func band(daysOverdue int) PriorityBand {
	switch {
	case daysOverdue > 0:
		return PriorityHigh
	case daysOverdue == 0:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

func reorderAction(o model.Order) string {
	if o.BrandName == "" {
		return "Reorder check-in"
	}
	return fmt.Sprintf("Reorder check-in: %s (last order %d cases on %s)",
		o.BrandName, o.Cases, o.OrderDate.Format(model.DateLayout))
}

func followUpAction(a model.Activity) string {
	if step := strings.TrimSpace(a.NextStep); step != "" {
		return step
	}
	return "Follow up"
}
