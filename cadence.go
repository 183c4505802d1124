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

package cadence

import (
	"context"
	"embed"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cadencehq/cadence/config"
	"github.com/cadencehq/cadence/database"
	"github.com/cadencehq/cadence/engine"
	"github.com/cadencehq/cadence/internal/cache"
	"github.com/cadencehq/cadence/internal/email"
	"github.com/cadencehq/cadence/internal/notification"
	redis_db "github.com/cadencehq/cadence/internal/redis-db"
)

// Cadence ties the datasource, the scheduling engine and the delivery sinks together.
type Cadence struct {
	queue      *Queue
	redis      redis.UniversalClient
	datasource database.IDataSource
	planner    atomic.Pointer[engine.Planner]
	cache      cache.Cache
	mailer     email.Sender
	recipients []string
}

const (
	storeLockTTL  = 10 * time.Second
	storeLockWait = 5 * time.Second
)

//go:embed sql/*.sql
var SQLFiles embed.FS

// NewCadence builds a Cadence instance from the current configuration. The reorder and
// follow-up policies are loaded and validated here so a malformed policy fails at startup.
func NewCadence(db database.IDataSource) (*Cadence, error) {
	cnf, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	planner, err := newPlanner(cnf)
	if err != nil {
		return nil, err
	}

	redisClient, err := redis_db.NewRedisClient([]string{cnf.Redis.Dns}, cnf.Redis.SkipTLSVerify)
	if err != nil {
		return nil, err
	}

	queue, err := NewQueue(cnf)
	if err != nil {
		return nil, err
	}

	c := &Cadence{
		queue:      queue,
		redis:      redisClient.Client(),
		datasource: db,
		cache:      cache.New(redisClient.Client()),
		mailer:     email.NewSender(cnf.Notification.Email),
		recipients: cnf.Notification.Email.To,
	}
	c.planner.Store(planner)

	notification.RegisterWebhookSender(func(event string, payload interface{}) error {
		return c.queue.SendWebhook(context.Background(), NewWebhook{Event: event, Payload: payload})
	})
	return c, nil
}

func newPlanner(cnf *config.Configuration) (*engine.Planner, error) {
	reorder, err := cnf.ReorderPolicy()
	if err != nil {
		return nil, err
	}
	return engine.NewPlanner(reorder, cnf.FollowUpPolicy())
}

// Planner exposes the engine with the policies currently in force.
func (c *Cadence) Planner() *engine.Planner {
	return c.planner.Load()
}

func (c *Cadence) Queue() *Queue {
	return c.queue
}

func (c *Cadence) Close() error {
	if err := c.queue.Close(); err != nil {
		return err
	}
	return c.redis.Close()
}

// LocalNow is the current time in the schedule timezone, falling back to the process
// timezone when the configuration is missing or invalid.
func LocalNow() time.Time {
	now := time.Now()
	cnf, err := config.Fetch()
	if err != nil {
		return now
	}
	loc, err := cnf.Schedule.Location()
	if err != nil {
		return now
	}
	return now.In(loc)
}
