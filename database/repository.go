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

package database

import (
	"context"
	"time"

	"github.com/cadencehq/cadence/engine"
	"github.com/cadencehq/cadence/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	store    // Interface for store-related operations
	order    // Interface for order-related operations
	activity // Interface for activity-related operations
	snapshot // Interface for reading the whole pipeline at once
}

// store defines methods for handling stores. Stores are never deleted; status and
// date fields are updated column by column.
type store interface {
	CreateStore(ctx context.Context, store model.Store) (model.Store, error)
	GetStoreByID(ctx context.Context, id string) (*model.Store, error)
	GetAllStores(ctx context.Context, limit, offset int) ([]model.Store, error)
	GetStoreIDs(ctx context.Context) ([]string, error)
	UpdateStoreStatus(ctx context.Context, id string, status model.StoreStatus, firstCustomerAt *time.Time) error
	UpdateStoreNextAction(ctx context.Context, id string, nextActionDate *time.Time) error
	TouchStoreContact(ctx context.Context, id string, at time.Time) error
}

// order defines methods for handling orders.
type order interface {
	RecordOrder(ctx context.Context, order model.Order) (model.Order, error)
	GetOrderByID(ctx context.Context, id string) (*model.Order, error)
	GetOrdersByStore(ctx context.Context, storeID string) ([]model.Order, error)
	UpdateOrderNextReorderDate(ctx context.Context, id string, nextReorderDate time.Time) error
}

// activity defines methods for handling activities. Activities are append-only.
type activity interface {
	RecordActivity(ctx context.Context, activity model.Activity) (model.Activity, error)
	GetActivityByID(ctx context.Context, id string) (*model.Activity, error)
	GetActivitiesByStore(ctx context.Context, storeID string) ([]model.Activity, error)
}

type snapshot interface {
	LoadSnapshot(ctx context.Context) (engine.Snapshot, error)
}
