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
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cadencehq/cadence"
	apimodel "github.com/cadencehq/cadence/api/model"
	"github.com/cadencehq/cadence/engine"
	"github.com/cadencehq/cadence/internal/digest"
	"github.com/cadencehq/cadence/model"
)

const (
	formatText     = "text"
	formatMarkdown = "markdown"
	formatJSON     = "json"
)

// parseNow reads an optional --now/--end flag value, defaulting to the current time in the
// schedule timezone.
func parseNow(value string) (time.Time, error) {
	if value == "" {
		return cadence.LocalNow(), nil
	}
	return apimodel.ParseDate(value)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(v)
}

func priorityLabel(p engine.PriorityBand) string {
	switch p {
	case engine.PriorityHigh:
		return color.New(color.FgRed, color.Bold).Sprint("OVERDUE ")
	case engine.PriorityMedium:
		return color.New(color.FgYellow).Sprint("TODAY   ")
	default:
		return color.New(color.FgGreen).Sprint("UPCOMING")
	}
}

// printPlan writes a terminal view of plan: one line per task in rank order, then orphans.
func printPlan(w io.Writer, plan engine.Plan) {
	bold := color.New(color.Bold)
	bold.Fprintf(w, "%s tasks through %s\n", plan.Mode, plan.Horizon.Format(model.DateLayout))

	if len(plan.Tasks) == 0 {
		color.New(color.FgGreen).Fprintln(w, "Nothing due.")
	}
	for _, t := range plan.Tasks {
		fmt.Fprintf(w, "%3d. %s %-22s %s\n", t.Rank, priorityLabel(t.Priority), t.StoreName, t.Action)
		due := t.DueDate.Format(model.DateLayout)
		if t.DaysOverdue > 0 {
			due = fmt.Sprintf("%s, %d days overdue", due, t.DaysOverdue)
		}
		fmt.Fprintf(w, "     %s %s (%s)\n", t.Kind, t.StoreID, due)
	}

	if len(plan.Orphans) > 0 {
		warn := color.New(color.FgYellow)
		warn.Fprintf(w, "\n%d records need cleanup:\n", len(plan.Orphans))
		for _, o := range plan.Orphans {
			warn.Fprintf(w, "  - %s\n", o.Error())
		}
	}
}

// planCommands defines "plan": build the task list for a horizon and print it. With --deliver the
// run behaves like a scheduled tick and sends the webhooks and digest emails too.
func planCommands(c *cadenceInstance) *cobra.Command {
	var mode, now, format string
	var deliver bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "print the prioritized task list",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			at, err := parseNow(now)
			if err != nil {
				log.Fatal(err)
			}

			var plan engine.Plan
			if deliver {
				result, err := c.cadence.RunTick(ctx, engine.Mode(mode), at)
				if err != nil {
					log.Fatal(err)
				}
				plan = result.Plan
			} else {
				plan, err = c.cadence.BuildPlan(ctx, engine.Mode(mode), at)
				if err != nil {
					log.Fatal(err)
				}
			}

			switch format {
			case formatJSON:
				err = writeJSON(os.Stdout, plan)
			case formatMarkdown:
				_, err = fmt.Fprint(os.Stdout, digest.Plan(plan))
			default:
				printPlan(os.Stdout, plan)
			}
			if err != nil {
				log.Fatal(err)
			}
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(engine.ModeDaily), "planning horizon: daily or weekly")
	cmd.Flags().StringVar(&now, "now", "", "plan as of this date (YYYY-MM-DD or RFC 3339); defaults to now")
	cmd.Flags().StringVar(&format, "format", formatText, "output format: text, markdown or json")
	cmd.Flags().BoolVar(&deliver, "deliver", false, "also send the webhook and digest email")

	return cmd
}

// reportCommands defines "report": print the weekly metrics for the seven days before --end.
func reportCommands(c *cadenceInstance) *cobra.Command {
	var end, format string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "print the weekly sales report",
		Run: func(cmd *cobra.Command, args []string) {
			at, err := parseNow(end)
			if err != nil {
				log.Fatal(err)
			}

			report, err := c.cadence.WeeklyReport(context.Background(), at)
			if err != nil {
				log.Fatal(err)
			}

			if format == formatJSON {
				err = writeJSON(os.Stdout, report)
			} else {
				_, err = fmt.Fprint(os.Stdout, digest.WeeklyReport(report))
			}
			if err != nil {
				log.Fatal(err)
			}
		},
	}
	cmd.Flags().StringVar(&end, "end", "", "report on the week ending before this date; defaults to now")
	cmd.Flags().StringVar(&format, "format", formatMarkdown, "output format: markdown or json")

	return cmd
}
