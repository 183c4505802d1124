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
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cadencehq/cadence"
	model2 "github.com/cadencehq/cadence/api/model"
	"github.com/cadencehq/cadence/config"
	"github.com/cadencehq/cadence/engine"
	"github.com/cadencehq/cadence/model"
)

func pipelineSnapshot() engine.Snapshot {
	reorderDue := day(2024, time.November, 29)
	followUp := day(2024, time.November, 27)
	converted := day(2024, time.November, 20)
	customer := testStore("str_1", model.StoreStatusCustomer)
	customer.Name = "Green Leaf Market"
	customer.FirstCustomerAt = &converted
	prospect := testStore("str_2", model.StoreStatusQualified)
	prospect.Name = "Corner Co-op"

	return engine.Snapshot{
		Stores: []model.Store{*customer, *prospect},
		Orders: []model.Order{
			{OrderID: "ord_1", StoreID: "str_1", BrandName: "Bodhi Bubbles", OrderDate: converted, Cases: 4, OrderType: model.OrderTypeFirst, NextReorderDate: &reorderDue},
		},
		Activities: []model.Activity{
			{ActivityID: "act_1", StoreID: "str_2", Type: model.ActivityTypeVisit, Date: day(2024, time.November, 19), Outcome: model.OutcomeInterested, NextStepDate: &followUp},
			{ActivityID: "act_2", StoreID: "str_3", Type: model.ActivityTypeCall, Date: day(2024, time.November, 18), Outcome: model.OutcomeInterested},
		},
	}
}

func TestGetTasks(t *testing.T) {
	router, ds, _ := setupRouter(t, nil)
	ds.On("LoadSnapshot").Return(pipelineSnapshot(), nil)

	var plan engine.Plan
	resp, err := SetUpTestRequest(TestRequest{Method: http.MethodGet, Route: "/tasks?mode=daily&now=2024-11-29T08:00:00Z", Router: router, Response: &plan})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)

	require.Len(t, plan.Tasks, 2)
	assert.Equal(t, "str_2", plan.Tasks[0].StoreID)
	assert.Equal(t, engine.PriorityHigh, plan.Tasks[0].Priority)
	assert.Equal(t, engine.TaskReorderDue, plan.Tasks[1].Kind)
	assert.Equal(t, engine.PriorityMedium, plan.Tasks[1].Priority)
}

func TestGetTasks_Markdown(t *testing.T) {
	router, ds, _ := setupRouter(t, nil)
	ds.On("LoadSnapshot").Return(pipelineSnapshot(), nil)

	resp, err := SetUpTestRequest(TestRequest{Method: http.MethodGet, Route: "/tasks?mode=weekly&now=2024-11-29&format=markdown", Router: router})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, strings.HasPrefix(resp.Header().Get("Content-Type"), "text/markdown"))
	assert.Contains(t, resp.Body.String(), "# Weekly Task List")
	assert.Contains(t, resp.Body.String(), "Green Leaf Market")
}

func TestGetTasks_BadInput(t *testing.T) {
	router, ds, _ := setupRouter(t, nil)

	resp, err := SetUpTestRequest(TestRequest{Method: http.MethodGet, Route: "/tasks?mode=monthly&now=2024-11-29", Router: router})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp, err = SetUpTestRequest(TestRequest{Method: http.MethodGet, Route: "/tasks?now=tomorrow", Router: router})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	ds.AssertNotCalled(t, "LoadSnapshot")
}

func TestGetTasks_SnapshotFailure(t *testing.T) {
	router, ds, _ := setupRouter(t, nil)
	ds.On("LoadSnapshot").Return(engine.Snapshot{}, errors.New("connection refused"))

	resp, err := SetUpTestRequest(TestRequest{Method: http.MethodGet, Route: "/tasks", Router: router})
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}

func TestGetWeeklyReport(t *testing.T) {
	router, ds, _ := setupRouter(t, nil)
	ds.On("LoadSnapshot").Return(pipelineSnapshot(), nil).Once()

	var report engine.WeeklyMetrics
	resp, err := SetUpTestRequest(TestRequest{Method: http.MethodGet, Route: "/reports/weekly?end=2024-11-25", Router: router, Response: &report})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 1, report.TotalOrders)
	assert.Equal(t, 1, report.OrdersByBrand["Bodhi Bubbles"])

	// second read is served from the report cache
	resp, err = SetUpTestRequest(TestRequest{Method: http.MethodGet, Route: "/reports/weekly?end=2024-11-25&format=markdown", Router: router})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "# Weekly Sales Report")
	ds.AssertNumberOfCalls(t, "LoadSnapshot", 1)
}

func TestRecomputePolicies(t *testing.T) {
	cnf := testConfig("")
	cnf.Reorder = config.ReorderConfig{WindowMin: 14, WindowMax: 14}
	router, ds, _ := setupRouter(t, cnf)

	snap := pipelineSnapshot()
	newDue := day(2024, time.December, 4)
	recomputed := snap.Orders[0]
	recomputed.NextReorderDate = &newDue

	ds.On("LoadSnapshot").Return(snap, nil)
	ds.On("UpdateOrderNextReorderDate", "ord_1", newDue).Return(nil)
	ds.On("GetStoreByID", "str_1").Return(&snap.Stores[0], nil)
	ds.On("GetOrdersByStore", "str_1").Return([]model.Order{recomputed}, nil)
	ds.On("GetActivitiesByStore", "str_1").Return([]model.Activity{}, nil)
	ds.On("UpdateStoreNextAction", "str_1", mock.MatchedBy(func(got *time.Time) bool {
		return got != nil && got.Equal(newDue)
	})).Return(nil)

	var result cadence.RecomputeResult
	resp, err := SetUpTestRequest(TestRequest{Method: http.MethodPost, Route: "/policies/recompute", Router: router, Response: &result})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 1, result.OrdersScanned)
	assert.Equal(t, 1, result.OrdersUpdated)
	assert.Equal(t, []string{"str_1"}, result.StoresUpdated)
	ds.AssertExpectations(t)
}

func TestQueueRecordEvent(t *testing.T) {
	router, _, mr := setupRouter(t, nil)

	var event cadence.RecordEvent
	resp, err := SetUpTestRequest(TestRequest{
		Method:   http.MethodPost,
		Route:    "/events",
		Router:   router,
		Response: &event,
		Payload:  jsonBody(t, model2.RecordEvent{Table: "activities", RecordID: "act_7"}),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.Code)
	assert.Equal(t, "act_7", event.RecordID)
	assert.True(t, mr.Exists("asynq:{cadence:events}:t:activities:act_7"))

	resp, err = SetUpTestRequest(TestRequest{
		Method:  http.MethodPost,
		Route:   "/events",
		Router:  router,
		Payload: jsonBody(t, model2.RecordEvent{Table: "ledgers", RecordID: "x"}),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestQueueTick(t *testing.T) {
	router, _, mr := setupRouter(t, nil)

	resp, err := SetUpTestRequest(TestRequest{
		Method:  http.MethodPost,
		Route:   "/ticks",
		Router:  router,
		Payload: jsonBody(t, model2.Tick{Mode: "weekly", Now: "2024-11-25T09:00:00Z"}),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.Code)
	assert.True(t, mr.Exists("asynq:{cadence:ticks}:t:tick:weekly:2024-11-25"))

	resp, err = SetUpTestRequest(TestRequest{
		Method:  http.MethodPost,
		Route:   "/ticks",
		Router:  router,
		Payload: jsonBody(t, model2.Tick{Mode: "hourly"}),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
