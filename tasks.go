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
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/cadencehq/cadence/internal/apierror"
	"github.com/cadencehq/cadence/internal/notification"
)

// retryable reports whether a failed task should go back to the queue. Missing records and
// bad input will not fix themselves.
func retryable(err error) bool {
	var apiErr apierror.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code != apierror.ErrNotFound && apiErr.Code != apierror.ErrInvalidInput
	}
	return true
}

// ProcessEventTask handles a queued record-created trigger.
func (c *Cadence) ProcessEventTask(ctx context.Context, task *asynq.Task) error {
	var ev RecordEvent
	if err := json.Unmarshal(task.Payload(), &ev); err != nil {
		return fmt.Errorf("decode record event: %v: %w", err, asynq.SkipRetry)
	}

	result, err := c.ProcessRecordEvent(ctx, ev)
	if err != nil {
		if !retryable(err) {
			logrus.WithFields(logrus.Fields{"table": ev.Table, "record_id": ev.RecordID}).Warnf("record event dropped: %v", err)
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	logrus.WithFields(logrus.Fields{
		"table":     ev.Table,
		"record_id": ev.RecordID,
		"store_id":  result.StoreID,
		"status":    result.Transition.To,
	}).Info("record event processed")
	return nil
}

// ProcessTickTask handles a queued clock trigger. Ticks registered with the scheduler carry
// no time; they run at the current time in the configured timezone.
func (c *Cadence) ProcessTickTask(ctx context.Context, task *asynq.Task) error {
	var tick Tick
	if err := json.Unmarshal(task.Payload(), &tick); err != nil {
		return fmt.Errorf("decode tick: %v: %w", err, asynq.SkipRetry)
	}
	if tick.Now.IsZero() {
		tick.Now = LocalNow()
	}

	if _, err := c.RunTick(ctx, tick.Mode, tick.Now); err != nil {
		notification.NotifyError(fmt.Errorf("%s tick failed: %w", tick.Mode, err))
		if !retryable(err) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}
	return nil
}
