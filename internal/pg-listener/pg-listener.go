package pg_listener

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// RecordChannel is the channel the insert triggers notify on.
const RecordChannel = "cadence_records"

type NotificationHandler interface {
	HandleNotification(ctx context.Context, table, recordID string) error
}

type ListenerConfig struct {
	PgConnStr    string
	Channel      string
	MinReconnect time.Duration
	MaxReconnect time.Duration
	PingInterval time.Duration
}

type DBListener struct {
	config  ListenerConfig
	handler NotificationHandler
}

type NotificationPayload struct {
	Table    string `json:"table"`
	RecordID string `json:"record_id"`
}

func NewDBListener(config ListenerConfig, handler NotificationHandler) *DBListener {
	if config.Channel == "" {
		config.Channel = RecordChannel
	}
	if config.MinReconnect <= 0 {
		config.MinReconnect = 10 * time.Second
	}
	if config.MaxReconnect <= 0 {
		config.MaxReconnect = time.Minute
	}
	if config.PingInterval <= 0 {
		config.PingInterval = 90 * time.Second
	}
	return &DBListener{
		config:  config,
		handler: handler,
	}
}

// Start listens until ctx is cancelled. Notifications sent while the connection was down are
// lost; the caller is expected to have another path (the API or a manual event) for those.
func (d *DBListener) Start(ctx context.Context) error {
	listener := pq.NewListener(d.config.PgConnStr, d.config.MinReconnect, d.config.MaxReconnect, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logrus.Errorf("listener error: %v", err)
		}
		if ev == pq.ListenerEventReconnected {
			logrus.Warn("listener reconnected, inserts made while disconnected were not announced")
		}
	})
	defer listener.Close()

	if err := listener.Listen(d.config.Channel); err != nil {
		return err
	}
	logrus.Infof("listening for inserts on channel '%s'", d.config.Channel)

	ticker := time.NewTicker(d.config.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case notification := <-listener.Notify:
			if notification == nil {
				continue
			}
			if err := d.handleNotification(ctx, notification.Extra); err != nil {
				logrus.WithField("payload", notification.Extra).Errorf("error handling notification: %v", err)
			}
		case <-ticker.C:
			go func() {
				if err := listener.Ping(); err != nil {
					logrus.Warnf("listener ping failed: %v", err)
				}
			}()
		}
	}
}

func (d *DBListener) handleNotification(ctx context.Context, extra string) error {
	var payload NotificationPayload
	if err := json.Unmarshal([]byte(extra), &payload); err != nil {
		return err
	}
	if payload.Table == "" || payload.RecordID == "" {
		return errors.New("notification is missing table or record_id")
	}
	return d.handler.HandleNotification(ctx, payload.Table, payload.RecordID)
}
