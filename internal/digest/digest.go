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

// Package digest renders plans and weekly metrics as Markdown for the rep and converts
// them to HTML for email delivery.
package digest

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"github.com/cadencehq/cadence/engine"
	"github.com/cadencehq/cadence/model"
)

// Raw HTML in rendered digests is dropped; store names and actions are rep input.
var mdRenderer = goldmark.New(
	goldmark.WithExtensions(extension.Table),
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// ToHTML converts a rendered digest to HTML.
func ToHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render digest html: %w", err)
	}
	return buf.String(), nil
}

func PlanSubject(plan engine.Plan) string {
	title := "Daily tasks"
	if plan.Mode == engine.ModeWeekly {
		title = "Weekly tasks"
	}
	return fmt.Sprintf("%s for %s: %d due", title, plan.Horizon.Format(model.DateLayout), len(plan.Tasks))
}

// Plan renders the task list grouped by priority band, keeping rank order inside each band.
func Plan(plan engine.Plan) string {
	var b strings.Builder

	title := "Daily Task List"
	if plan.Mode == engine.ModeWeekly {
		title = "Weekly Task List"
	}
	fmt.Fprintf(&b, "# %s - %s\n\n", title, plan.Now.Format(model.DateLayout))
	if plan.Mode == engine.ModeWeekly {
		fmt.Fprintf(&b, "Covers everything due through **%s**.\n\n", plan.Horizon.Format(model.DateLayout))
	}

	if len(plan.Tasks) == 0 {
		b.WriteString("*Nothing due. Use the time to prospect new stores.*\n")
	}

	bands := []struct {
		band  engine.PriorityBand
		title string
	}{
		{engine.PriorityHigh, "Overdue"},
		{engine.PriorityMedium, "Due Today"},
		{engine.PriorityLow, "Coming Up"},
	}
	for _, band := range bands {
		var tasks []engine.Task
		for _, t := range plan.Tasks {
			if t.Priority == band.band {
				tasks = append(tasks, t)
			}
		}
		if len(tasks) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s (%d)\n\n", band.title, len(tasks))
		for _, t := range tasks {
			fmt.Fprintf(&b, "%d. **%s** - %s  \n   %s, due %s%s\n", t.Rank, storeLabel(t), t.Action,
				t.Kind, t.DueDate.Format(model.DateLayout), overdueSuffix(t.DaysOverdue))
		}
		b.WriteString("\n")
	}

	if len(plan.Orphans) > 0 {
		b.WriteString("## Records Needing Cleanup\n\n")
		for _, o := range plan.Orphans {
			fmt.Fprintf(&b, "- %s\n", o.Error())
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "---\n\nTotal tasks: %d\n", len(plan.Tasks))
	return b.String()
}

func storeLabel(t engine.Task) string {
	if t.StoreName != "" {
		return t.StoreName
	}
	return t.StoreID
}

func overdueSuffix(days int) string {
	switch {
	case days == 1:
		return " (1 day overdue)"
	case days > 1:
		return fmt.Sprintf(" (%d days overdue)", days)
	}
	return ""
}

func ReportSubject(m engine.WeeklyMetrics) string {
	return fmt.Sprintf("Weekly report %s to %s: %d orders, %d cases",
		m.WindowStart.Format(model.DateLayout), lastDay(m).Format(model.DateLayout), m.TotalOrders, m.TotalCases)
}

// WeeklyReport renders the weekly metrics with the focus areas for next week.
func WeeklyReport(m engine.WeeklyMetrics) string {
	var b strings.Builder

	b.WriteString("# Weekly Sales Report\n\n")
	fmt.Fprintf(&b, "**Period:** %s to %s\n\n---\n\n",
		m.WindowStart.Format(model.DateLayout), lastDay(m).Format(model.DateLayout))

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "This week you added **%d new stores**, closed **%d orders** (%d first-time, %d reorders) and sold **%d cases**. Conversion rate was **%s**.\n\n",
		m.NewStores, m.TotalOrders, m.FirstOrders, m.Reorders, m.TotalCases, Percent(m.ConversionRate))

	b.WriteString("## Sales Performance\n\n| Metric | Value |\n|--------|-------|\n")
	fmt.Fprintf(&b, "| Total Orders | %d |\n| First Orders | %d |\n| Reorders | %d |\n| Total Cases | %d |\n",
		m.TotalOrders, m.FirstOrders, m.Reorders, m.TotalCases)
	fmt.Fprintf(&b, "| Conversion Rate | %s |\n| Reorder Rate | %s |\n\n", Percent(m.ConversionRate), Percent(m.ReorderRate))

	b.WriteString("## Store Pipeline\n\n| Metric | Value |\n|--------|-------|\n")
	fmt.Fprintf(&b, "| New Stores | %d |\n| Active Stores | %d |\n| Stores Contacted | %d |\n| Stores Converted | %d |\n| Due For Reorder | %d |\n\n",
		m.NewStores, m.TotalStores, m.StoresContacted, m.StoresConverted, m.EligibleReorders)

	b.WriteString("## Activity\n\n| Type | Count |\n|------|-------|\n")
	fmt.Fprintf(&b, "| Calls | %d |\n| Visits | %d |\n| Emails | %d |\n| Texts | %d |\n| Total | %d |\n\n",
		m.Calls, m.Visits, m.Emails, m.Texts, m.TotalActivities)

	b.WriteString("## Orders by Brand\n\n")
	if len(m.OrdersByBrand) == 0 {
		b.WriteString("*No orders this week*\n\n")
	} else {
		b.WriteString("| Brand | Orders |\n|-------|--------|\n")
		for _, brand := range brandsByOrders(m.OrdersByBrand) {
			fmt.Fprintf(&b, "| %s | %d |\n", brand, m.OrdersByBrand[brand])
		}
		b.WriteString("\n")
	}

	if focus := FocusAreas(m); len(focus) > 0 {
		b.WriteString("## Next Week Focus\n\n")
		for _, f := range focus {
			fmt.Fprintf(&b, "- %s\n", f)
		}
		b.WriteString("\n")
	}
	return b.String()
}

var (
	lowConversion = decimal.NewFromFloat(0.2)
	minVisits     = 5
)

// FocusAreas suggests where the rep should spend next week.
func FocusAreas(m engine.WeeklyMetrics) []string {
	var focus []string
	if m.Reorders < m.FirstOrders {
		focus = append(focus, "**Reorder follow-ups**: more first orders than reorders this week. Check in with recent customers.")
	}
	if m.ConversionRate.Valid && m.ConversionRate.Decimal.LessThan(lowConversion) {
		focus = append(focus, "**Qualification**: conversion is below 20%. Qualify leads before outreach.")
	}
	if m.Visits < minVisits {
		focus = append(focus, "**In-person visits**: fewer than 5 visits. Face time builds the relationship.")
	}
	return focus
}

// Percent formats a rate with one decimal, or n/a when the rate is undefined.
func Percent(rate decimal.NullDecimal) string {
	if !rate.Valid {
		return "n/a"
	}
	return rate.Decimal.Mul(decimal.NewFromInt(100)).StringFixed(1) + "%"
}

func brandsByOrders(byBrand map[string]int) []string {
	brands := make([]string, 0, len(byBrand))
	for brand := range byBrand {
		brands = append(brands, brand)
	}
	sort.Slice(brands, func(i, j int) bool {
		if byBrand[brands[i]] != byBrand[brands[j]] {
			return byBrand[brands[i]] > byBrand[brands[j]]
		}
		return brands[i] < brands[j]
	})
	return brands
}

// lastDay is the final calendar day inside the exclusive window.
func lastDay(m engine.WeeklyMetrics) time.Time {
	return m.WindowEnd.AddDate(0, 0, -1)
}
