package cadence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cadencehq/cadence/config"
	"github.com/cadencehq/cadence/engine"
	"github.com/cadencehq/cadence/model"
)

func TestRecomputeReorderDates(t *testing.T) {
	c, ds, mr := newTestCadence(t)

	cnf := testConfig(mr.Addr())
	cnf.Reorder = config.ReorderConfig{WindowMin: 14, WindowMax: 14}
	config.MockConfig(cnf)

	oldDue := day(2024, time.November, 29)
	newDue := day(2024, time.November, 15)
	alreadyCurrent := day(2024, time.November, 24)
	snap := engine.Snapshot{
		Stores: []model.Store{*testStore("str_1", model.StoreStatusCustomer), *testStore("str_2", model.StoreStatusCustomer)},
		Orders: []model.Order{
			{OrderID: "ord_1", StoreID: "str_1", OrderDate: day(2024, time.November, 1), Cases: 3, OrderType: model.OrderTypeFirst, NextReorderDate: &oldDue},
			{OrderID: "ord_2", StoreID: "str_2", OrderDate: day(2024, time.November, 10), Cases: 3, OrderType: model.OrderTypeFirst, NextReorderDate: &alreadyCurrent},
			{OrderID: "ord_9", StoreID: "str_9", OrderDate: day(2024, time.November, 1), Cases: 3, OrderType: model.OrderTypeFirst},
		},
	}
	recomputed := snap.Orders[0]
	recomputed.NextReorderDate = &newDue

	ds.On("LoadSnapshot").Return(snap, nil)
	ds.On("UpdateOrderNextReorderDate", "ord_1", newDue).Return(nil)
	ds.On("GetStoreByID", "str_1").Return(testStore("str_1", model.StoreStatusCustomer), nil)
	ds.On("GetOrdersByStore", "str_1").Return([]model.Order{recomputed}, nil)
	ds.On("GetActivitiesByStore", "str_1").Return([]model.Activity{}, nil)
	ds.On("UpdateStoreNextAction", "str_1", sameDay(newDue)).Return(nil)

	result, err := c.RecomputeReorderDates(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.OrdersScanned)
	assert.Equal(t, 1, result.OrdersUpdated)
	assert.Equal(t, []string{"str_1"}, result.StoresUpdated)
	assert.Equal(t, engine.Window{Min: 14, Max: 14}, c.Planner().ReorderPolicy().Default)
	ds.AssertNotCalled(t, "UpdateOrderNextReorderDate", "ord_9", mock.Anything)
	ds.AssertExpectations(t)
}

func TestRecomputeReorderDates_InvalidPolicyKeepsCurrent(t *testing.T) {
	c, ds, mr := newTestCadence(t)

	cnf := testConfig(mr.Addr())
	cnf.Reorder = config.ReorderConfig{WindowMin: 0, WindowMax: -3}
	config.MockConfig(cnf)

	_, err := c.RecomputeReorderDates(context.Background())
	require.Error(t, err)

	assert.Equal(t, engine.Window{Min: 21, Max: 35}, c.Planner().ReorderPolicy().Default)
	ds.AssertNotCalled(t, "LoadSnapshot")
}
