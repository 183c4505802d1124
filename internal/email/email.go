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

package email

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/sirupsen/logrus"

	"github.com/cadencehq/cadence/config"
)

var ErrNoRecipients = errors.New("email has no recipients")

// Message is a rendered digest ready for delivery.
type Message struct {
	To      []string
	Subject string
	HTML    string
}

type Receipt struct {
	MessageID string
	SentAt    time.Time
}

type Sender interface {
	Send(ctx context.Context, msg Message) (Receipt, error)
}

// emailsAPI is the slice of the Resend emails service this package calls.
type emailsAPI interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

type ResendSender struct {
	emails emailsAPI
	from   string
}

func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{
		emails: resend.NewClient(apiKey).Emails,
		from:   from,
	}
}

// Send delivers msg through Resend and returns the provider message ID.
func (s *ResendSender) Send(ctx context.Context, msg Message) (Receipt, error) {
	if len(msg.To) == 0 {
		return Receipt{}, ErrNoRecipients
	}

	sent, err := s.emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{"to": msg.To, "subject": msg.Subject}).Errorf("resend send failed: %v", err)
		return Receipt{}, fmt.Errorf("resend send failed: %w", err)
	}

	logrus.WithFields(logrus.Fields{"message_id": sent.Id, "subject": msg.Subject}).Info("digest email sent")
	return Receipt{MessageID: sent.Id, SentAt: time.Now()}, nil
}

// NoopSender logs digests instead of sending them. Used when no Resend key is configured.
type NoopSender struct{}

func (NoopSender) Send(_ context.Context, msg Message) (Receipt, error) {
	logrus.WithFields(logrus.Fields{"to": msg.To, "subject": msg.Subject}).Info("email delivery disabled, digest not sent")
	return Receipt{MessageID: fmt.Sprintf("noop-%d", time.Now().UnixNano()), SentAt: time.Now()}, nil
}

// NewSender picks the Resend sender when an API key is configured.
func NewSender(cnf config.EmailConfig) Sender {
	if cnf.ResendAPIKey == "" {
		return NoopSender{}
	}
	return NewResendSender(cnf.ResendAPIKey, cnf.From)
}
