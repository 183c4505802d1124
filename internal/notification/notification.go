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

package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cadencehq/cadence/config"
	"github.com/cadencehq/cadence/internal/request"
)

// SystemErrorEvent is the webhook event emitted for errors passed to NotifyError.
const SystemErrorEvent = "system.error"

var (
	senderMu      sync.RWMutex
	webhookSender func(event string, payload interface{}) error
)

// RegisterWebhookSender installs the function used to emit system.error webhooks.
// The root package registers its queue-backed sender at startup; this avoids an import cycle.
func RegisterWebhookSender(sender func(event string, payload interface{}) error) {
	senderMu.Lock()
	defer senderMu.Unlock()
	webhookSender = sender
}

func registeredSender() func(event string, payload interface{}) error {
	senderMu.RLock()
	defer senderMu.RUnlock()
	return webhookSender
}

type slackText struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

type slackBlock struct {
	Type   string      `json:"type"`
	Text   *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

type slackMessage struct {
	Blocks []slackBlock `json:"blocks"`
}

func slackPayload(projectName string, err error, at time.Time) slackMessage {
	return slackMessage{Blocks: []slackBlock{
		{Type: "header", Text: &slackText{Type: "plain_text", Text: fmt.Sprintf("Error From %s", projectName), Emoji: true}},
		{Type: "section", Fields: []slackText{{Type: "mrkdwn", Text: fmt.Sprintf("*Error:*\n%v", err)}}},
		{Type: "section", Fields: []slackText{{Type: "mrkdwn", Text: fmt.Sprintf("*Time:*\n%v", at.Format(time.RFC822))}}},
	}}
}

// SlackNotification posts err to the configured Slack incoming webhook.
func SlackNotification(err error) error {
	conf, cErr := config.Fetch()
	if cErr != nil {
		return cErr
	}
	_, pErr := request.PostJSON(context.Background(), conf.Notification.Slack.WebhookUrl, nil,
		slackPayload(conf.ProjectName, err, time.Now()), nil)
	return pErr
}

// NotifyError logs systemError and fans it out to Slack and the system.error webhook
// when they are configured. It does not block the caller.
func NotifyError(systemError error) {
	go notify(systemError)
}

func notify(systemError error) {
	logrus.Error(systemError)

	conf, err := config.Fetch()
	if err != nil {
		logrus.Errorf("notification: %v", err)
		return
	}

	if conf.Notification.Slack.WebhookUrl != "" {
		if err := SlackNotification(systemError); err != nil {
			logrus.Errorf("slack notification failed: %v", err)
		}
	}

	if sender := registeredSender(); sender != nil {
		payload := map[string]interface{}{
			"error": systemError.Error(),
			"time":  time.Now().UTC(),
		}
		if err := sender(SystemErrorEvent, payload); err != nil {
			logrus.Errorf("system error webhook failed: %v", err)
		}
	}
}
