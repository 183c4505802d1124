package cadence

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cadencehq/cadence/internal/apierror"
	"github.com/cadencehq/cadence/model"
)

func TestLogActivity_InterestedDerivesFollowUp(t *testing.T) {
	c, ds, _ := newTestCadence(t)
	visited := day(2024, time.November, 18)
	followUp := day(2024, time.November, 21)

	recorded := model.Activity{
		ActivityID:   "act_1",
		StoreID:      "str_1",
		Type:         model.ActivityTypeVisit,
		Date:         visited,
		Outcome:      model.OutcomeInterested,
		NextStep:     "Drop off samples",
		NextStepDate: &followUp,
	}

	ds.On("GetStoreByID", "str_1").Return(testStore("str_1", model.StoreStatusNew), nil)
	ds.On("RecordActivity", mock.MatchedBy(func(a model.Activity) bool {
		return a.NextStepDate != nil && a.NextStepDate.Equal(followUp)
	})).Return(recorded, nil)
	ds.On("TouchStoreContact", "str_1", visited).Return(nil)
	ds.On("UpdateStoreStatus", "str_1", model.StoreStatusQualified, (*time.Time)(nil)).Return(nil)
	ds.On("GetOrdersByStore", "str_1").Return([]model.Order{}, nil)
	ds.On("GetActivitiesByStore", "str_1").Return([]model.Activity{recorded}, nil)
	ds.On("UpdateStoreNextAction", "str_1", sameDay(followUp)).Return(nil)

	result, err := c.LogActivity(context.Background(), model.Activity{
		StoreID:  "str_1",
		Type:     model.ActivityTypeVisit,
		Date:     visited,
		Outcome:  model.OutcomeInterested,
		NextStep: "Drop off samples",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, model.StoreStatusQualified, result.Transition.To)
	require.NotNil(t, result.NextActionDate)
	assert.True(t, result.NextActionDate.Equal(followUp))
	ds.AssertExpectations(t)
}

func TestLogActivity_NotAFitCancelsTasks(t *testing.T) {
	c, ds, _ := newTestCadence(t)
	called := day(2024, time.November, 18)
	firstCustomer := day(2024, time.October, 1)
	store := testStore("str_1", model.StoreStatusCustomer)
	store.FirstCustomerAt = &firstCustomer

	ds.On("GetStoreByID", "str_1").Return(store, nil)
	ds.On("RecordActivity", mock.MatchedBy(func(a model.Activity) bool {
		return a.NextStepDate == nil
	})).Return(model.Activity{ActivityID: "act_1", StoreID: "str_1", Date: called, Outcome: model.OutcomeNotAFit}, nil)
	ds.On("TouchStoreContact", "str_1", called).Return(nil)
	ds.On("UpdateStoreStatus", "str_1", model.StoreStatusInactive, sameDay(firstCustomer)).Return(nil)
	ds.On("UpdateStoreNextAction", "str_1", (*time.Time)(nil)).Return(nil)

	result, err := c.LogActivity(context.Background(), model.Activity{
		StoreID: "str_1",
		Type:    model.ActivityTypeCall,
		Date:    called,
		Outcome: model.OutcomeNotAFit,
	}, nil)
	require.NoError(t, err)

	assert.True(t, result.Transition.CancelTasks)
	assert.Equal(t, model.StoreStatusInactive, result.Transition.To)
	assert.Nil(t, result.NextActionDate)
	ds.AssertNotCalled(t, "GetOrdersByStore", mock.Anything)
	ds.AssertExpectations(t)
}

func TestLogActivity_NotAFitAfterInsertListenerRan(t *testing.T) {
	c, ds, _ := newTestCadence(t)
	called := day(2024, time.November, 18)
	recorded := model.Activity{ActivityID: "act_1", StoreID: "str_1", Type: model.ActivityTypeCall, Date: called, Outcome: model.OutcomeNotAFit}

	// the first GetStoreByID is the existence check; by the time the lock is held a worker has
	// already applied act_1
	ds.On("GetStoreByID", "str_1").Return(testStore("str_1", model.StoreStatusCustomer), nil).Once()
	ds.On("GetStoreByID", "str_1").Return(testStore("str_1", model.StoreStatusInactive), nil)
	ds.On("RecordActivity", mock.Anything).Return(recorded, nil)
	ds.On("TouchStoreContact", "str_1", called).Return(nil)
	ds.On("GetActivitiesByStore", "str_1").Return([]model.Activity{recorded}, nil)

	result, err := c.LogActivity(context.Background(), model.Activity{
		StoreID: "str_1",
		Type:    model.ActivityTypeCall,
		Date:    called,
		Outcome: model.OutcomeNotAFit,
	}, nil)
	require.NoError(t, err)

	assert.False(t, result.Transition.Anomaly)
	assert.True(t, result.Transition.CancelTasks)
	assert.Nil(t, result.NextActionDate)
	ds.AssertNotCalled(t, "UpdateStoreStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestLogActivity_OrderedNeedsOrder(t *testing.T) {
	c, ds, _ := newTestCadence(t)
	ds.On("GetStoreByID", "str_1").Return(testStore("str_1", model.StoreStatusQualified), nil)

	_, err := c.LogActivity(context.Background(), model.Activity{
		StoreID: "str_1",
		Type:    model.ActivityTypeVisit,
		Date:    day(2024, time.November, 18),
		Outcome: model.OutcomeOrdered,
	}, nil)
	require.Error(t, err)

	assert.Equal(t, http.StatusBadRequest, apierror.MapErrorToHTTPStatus(err))
	ds.AssertNotCalled(t, "RecordActivity", mock.Anything)
}

func TestLogActivity_OrderedLinksExistingOrder(t *testing.T) {
	c, ds, _ := newTestCadence(t)
	visited := day(2024, time.November, 18)
	reorderDue := day(2024, time.December, 16)
	existing := &model.Order{OrderID: "ord_1", StoreID: "str_1", OrderDate: visited, Cases: 3, OrderType: model.OrderTypeFirst, NextReorderDate: &reorderDue}

	ds.On("GetStoreByID", "str_1").Return(testStore("str_1", model.StoreStatusQualified), nil)
	ds.On("GetOrderByID", "ord_1").Return(existing, nil)
	ds.On("RecordActivity", mock.MatchedBy(func(a model.Activity) bool {
		return a.OrderID == "ord_1" && a.NextStepDate == nil
	})).Return(model.Activity{ActivityID: "act_1", StoreID: "str_1", Date: visited, Outcome: model.OutcomeOrdered, OrderID: "ord_1"}, nil)
	ds.On("TouchStoreContact", "str_1", visited).Return(nil)
	ds.On("UpdateStoreStatus", "str_1", model.StoreStatusCustomer, sameDay(visited)).Return(nil)
	ds.On("GetOrdersByStore", "str_1").Return([]model.Order{*existing}, nil)
	ds.On("GetActivitiesByStore", "str_1").Return([]model.Activity{}, nil)
	ds.On("UpdateStoreNextAction", "str_1", sameDay(reorderDue)).Return(nil)

	result, err := c.LogActivity(context.Background(), model.Activity{
		StoreID: "str_1",
		Type:    model.ActivityTypeVisit,
		Date:    visited,
		Outcome: model.OutcomeOrdered,
		OrderID: "ord_1",
	}, nil)
	require.NoError(t, err)

	require.NotNil(t, result.Order)
	assert.Equal(t, "ord_1", result.Order.OrderID)
	assert.Equal(t, model.StoreStatusCustomer, result.Transition.To)
	ds.AssertExpectations(t)
}

func TestLogActivity_OrderFromAnotherStore(t *testing.T) {
	c, ds, _ := newTestCadence(t)

	ds.On("GetStoreByID", "str_1").Return(testStore("str_1", model.StoreStatusQualified), nil)
	ds.On("GetOrderByID", "ord_9").Return(&model.Order{OrderID: "ord_9", StoreID: "str_9"}, nil)

	_, err := c.LogActivity(context.Background(), model.Activity{
		StoreID: "str_1",
		Date:    day(2024, time.November, 18),
		Outcome: model.OutcomeOrdered,
		OrderID: "ord_9",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, apierror.MapErrorToHTTPStatus(err))
}
