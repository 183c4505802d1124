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

	"github.com/cadencehq/cadence/model"
)

func (c *Cadence) CreateStore(ctx context.Context, store model.Store) (model.Store, error) {
	store, err := c.datasource.CreateStore(ctx, store)
	if err != nil {
		return model.Store{}, err
	}
	c.postWebhook(ctx, EventStoreCreated, store)
	return store, nil
}

func (c *Cadence) GetStoreByID(ctx context.Context, id string) (*model.Store, error) {
	return c.datasource.GetStoreByID(ctx, id)
}

func (c *Cadence) GetAllStores(ctx context.Context, limit, offset int) ([]model.Store, error) {
	return c.datasource.GetAllStores(ctx, limit, offset)
}
