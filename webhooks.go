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
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/cadencehq/cadence/config"
	"github.com/cadencehq/cadence/internal/request"
)

// Webhook events.
const (
	EventTasksDaily          = "tasks.daily"
	EventTasksWeekly         = "tasks.weekly"
	EventReportWeekly        = "report.weekly"
	EventStoreCreated        = "store.created"
	EventOrderCreated        = "order.created"
	EventActivityLogged      = "activity.logged"
	EventStoreStatusChanged  = "store.status_changed"
	EventStoreTasksCancelled = "store.tasks_cancelled"
	EventStoreAnomaly        = "store.anomaly"
	EventOrphanRecord        = "record.orphaned"
)

// NewWebhook is the envelope posted to the configured webhook URL.
type NewWebhook struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"data"`
}

// webhookMaxElapsed bounds the in-process retries of one delivery attempt; asynq retries
// the task after that.
const webhookMaxElapsed = 30 * time.Second

// SendWebhook queues a webhook for delivery. It is a no-op when no webhook URL is configured.
func (q *Queue) SendWebhook(ctx context.Context, hook NewWebhook) error {
	conf, err := config.Fetch()
	if err != nil {
		return err
	}
	if conf.Notification.Webhook.Url == "" {
		return nil
	}
	return q.enqueue(ctx, q.conf.WebhookQueue, "", hook)
}

// ProcessWebhook delivers a queued webhook.
func ProcessWebhook(ctx context.Context, task *asynq.Task) error {
	conf, err := config.Fetch()
	if err != nil {
		return err
	}
	if conf.Notification.Webhook.Url == "" {
		return nil
	}

	var hook NewWebhook
	if err := json.Unmarshal(task.Payload(), &hook); err != nil {
		logrus.Errorf("error unmarshaling webhook payload: %v", err)
		return err
	}
	return deliverWebhook(ctx, conf.Notification.Webhook, hook, webhookMaxElapsed)
}

// deliverWebhook posts hook with exponential backoff. Client errors other than 429 are not retried.
func deliverWebhook(ctx context.Context, conf config.WebhookConfig, hook NewWebhook, maxElapsed time.Duration) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxElapsed

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		_, err := request.PostJSON(ctx, conf.Url, conf.Headers, hook, nil)
		if err == nil {
			return nil
		}
		var statusErr *request.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode < 500 && statusErr.StatusCode != http.StatusTooManyRequests {
			return backoff.Permanent(err)
		}
		logrus.WithFields(logrus.Fields{"event": hook.Event, "attempt": attempt}).Warnf("webhook delivery failed: %v", err)
		return err
	}, backoff.WithContext(b, ctx))
	if err != nil {
		return err
	}

	logrus.WithField("event", hook.Event).Info("webhook delivered")
	return nil
}
