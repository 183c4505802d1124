/*
Copyright 2024 Blnk Finance Authors.

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
package mocks

import (
	"context"
	"time"

	"github.com/cadencehq/cadence/engine"
	"github.com/cadencehq/cadence/model"
	"github.com/stretchr/testify/mock"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

// Store methods

func (m *MockDataSource) CreateStore(ctx context.Context, store model.Store) (model.Store, error) {
	args := m.Called(store)
	return args.Get(0).(model.Store), args.Error(1)
}

func (m *MockDataSource) GetStoreByID(ctx context.Context, id string) (*model.Store, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Store), args.Error(1)
}

func (m *MockDataSource) GetAllStores(ctx context.Context, limit, offset int) ([]model.Store, error) {
	args := m.Called(limit, offset)
	return args.Get(0).([]model.Store), args.Error(1)
}

func (m *MockDataSource) GetStoreIDs(ctx context.Context) ([]string, error) {
	args := m.Called()
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockDataSource) UpdateStoreStatus(ctx context.Context, id string, status model.StoreStatus, firstCustomerAt *time.Time) error {
	args := m.Called(id, status, firstCustomerAt)
	return args.Error(0)
}

func (m *MockDataSource) UpdateStoreNextAction(ctx context.Context, id string, nextActionDate *time.Time) error {
	args := m.Called(id, nextActionDate)
	return args.Error(0)
}

func (m *MockDataSource) TouchStoreContact(ctx context.Context, id string, at time.Time) error {
	args := m.Called(id, at)
	return args.Error(0)
}

// Order methods

func (m *MockDataSource) RecordOrder(ctx context.Context, order model.Order) (model.Order, error) {
	args := m.Called(order)
	return args.Get(0).(model.Order), args.Error(1)
}

func (m *MockDataSource) GetOrderByID(ctx context.Context, id string) (*model.Order, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockDataSource) GetOrdersByStore(ctx context.Context, storeID string) ([]model.Order, error) {
	args := m.Called(storeID)
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockDataSource) UpdateOrderNextReorderDate(ctx context.Context, id string, nextReorderDate time.Time) error {
	args := m.Called(id, nextReorderDate)
	return args.Error(0)
}

// Activity methods

func (m *MockDataSource) RecordActivity(ctx context.Context, activity model.Activity) (model.Activity, error) {
	args := m.Called(activity)
	return args.Get(0).(model.Activity), args.Error(1)
}

func (m *MockDataSource) GetActivityByID(ctx context.Context, id string) (*model.Activity, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Activity), args.Error(1)
}

func (m *MockDataSource) GetActivitiesByStore(ctx context.Context, storeID string) ([]model.Activity, error) {
	args := m.Called(storeID)
	return args.Get(0).([]model.Activity), args.Error(1)
}

// Snapshot methods

func (m *MockDataSource) LoadSnapshot(ctx context.Context) (engine.Snapshot, error) {
	args := m.Called()
	return args.Get(0).(engine.Snapshot), args.Error(1)
}
