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
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cadencehq/cadence/engine"
	"github.com/cadencehq/cadence/internal/digest"
)

const markdownContentType = "text/markdown; charset=utf-8"

// GetTasks returns the task list for ?mode=daily|weekly as seen at ?now (default: now).
// ?format=markdown returns the rendered digest instead of JSON.
func (a Api) GetTasks(c *gin.Context) {
	mode := engine.Mode(c.DefaultQuery("mode", string(engine.ModeDaily)))
	now, err := queryTime(c, "now")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	plan, err := a.cadence.BuildPlan(c.Request.Context(), mode, now)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if c.Query("format") == "markdown" {
		c.Data(http.StatusOK, markdownContentType, []byte(digest.Plan(plan)))
		return
	}
	c.JSON(http.StatusOK, plan)
}

// GetWeeklyReport returns the metrics for the seven days before ?end (default: now).
func (a Api) GetWeeklyReport(c *gin.Context) {
	end, err := queryTime(c, "end")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := a.cadence.WeeklyReport(c.Request.Context(), end)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if c.Query("format") == "markdown" {
		c.Data(http.StatusOK, markdownContentType, []byte(digest.WeeklyReport(report)))
		return
	}
	c.JSON(http.StatusOK, report)
}

// RecomputePolicies reloads the reorder policy and rewrites stale reorder dates.
func (a Api) RecomputePolicies(c *gin.Context) {
	resp, err := a.cadence.RecomputeReorderDates(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
