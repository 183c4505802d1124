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
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/cadencehq/cadence/config"
	"github.com/cadencehq/cadence/engine"
	redis_db "github.com/cadencehq/cadence/internal/redis-db"
	"github.com/cadencehq/cadence/model"
)

var queueTracer = otel.Tracer("cadence.queue")

// Tables a record-created trigger can point at.
const (
	TableStores     = "stores"
	TableOrders     = "orders"
	TableActivities = "activities"
)

// RecordEvent is the record-created trigger: a row was inserted into one of the source tables.
type RecordEvent struct {
	Table    string `json:"table"`
	RecordID string `json:"record_id"`
}

func (e RecordEvent) Validate() error {
	switch e.Table {
	case TableStores, TableOrders, TableActivities:
	default:
		return fmt.Errorf("unknown table %q", e.Table)
	}
	if e.RecordID == "" {
		return errors.New("record_id is required")
	}
	return nil
}

// Tick is the clock trigger for a daily or weekly run.
type Tick struct {
	Mode engine.Mode `json:"mode"`
	Now  time.Time   `json:"now"`
}

// Queue wraps the asynq client used for events, ticks and webhooks.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
	conf      config.QueueConfig
}

func NewQueue(conf *config.Configuration) (*Queue, error) {
	opt, err := redis_db.AsynqOpt(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		return nil, fmt.Errorf("error parsing redis url: %w", err)
	}
	return &Queue{
		Client:    asynq.NewClient(opt),
		Inspector: asynq.NewInspector(opt),
		conf:      conf.Queue,
	}, nil
}

func (q *Queue) Close() error {
	if err := q.Inspector.Close(); err != nil {
		return err
	}
	return q.Client.Close()
}

// enqueue submits payload under taskID. A task that is already queued with the same ID is
// not an error: triggers are at-least-once and the handlers are idempotent.
func (q *Queue) enqueue(ctx context.Context, queue, taskID string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	opts := []asynq.Option{asynq.Queue(queue), asynq.MaxRetry(q.conf.MaxRetry)}
	if taskID != "" {
		opts = append(opts, asynq.TaskID(taskID))
	}

	info, err := q.Client.EnqueueContext(ctx, asynq.NewTask(queue, data), opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		logrus.WithFields(logrus.Fields{"queue": queue, "task_id": taskID}).Info("task already queued")
		return nil
	}
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"queue": info.Queue, "task_id": info.ID}).Debug("task enqueued")
	return nil
}

// EnqueueEvent queues a record-created trigger.
func (q *Queue) EnqueueEvent(ctx context.Context, event RecordEvent) error {
	ctx, span := queueTracer.Start(ctx, "EnqueueEvent")
	defer span.End()
	span.SetAttributes(attribute.String("table", event.Table), attribute.String("record.id", event.RecordID))

	if err := event.Validate(); err != nil {
		return err
	}
	err := q.enqueue(ctx, q.conf.EventQueue, fmt.Sprintf("%s:%s", event.Table, event.RecordID), event)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// EnqueueTick queues a clock trigger. Ticks for the same mode and day collapse into one task.
func (q *Queue) EnqueueTick(ctx context.Context, tick Tick) error {
	ctx, span := queueTracer.Start(ctx, "EnqueueTick")
	defer span.End()

	if !tick.Mode.Valid() {
		return fmt.Errorf("%w: %q", engine.ErrUnknownMode, tick.Mode)
	}
	if tick.Now.IsZero() {
		tick.Now = LocalNow()
	}
	taskID := fmt.Sprintf("tick:%s:%s", tick.Mode, tick.Now.Format(model.DateLayout))
	err := q.enqueue(ctx, q.conf.TickQueue, taskID, tick)
	if err != nil {
		span.RecordError(err)
	}
	return err
}
