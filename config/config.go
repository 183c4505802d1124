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

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT          = "5001"
	DEFAULT_DAILY_CRON    = "0 7 * * *"
	DEFAULT_WEEKLY_CRON   = "0 9 * * 1"
	DEFAULT_EVENT_QUEUE   = "cadence:events"
	DEFAULT_TICK_QUEUE    = "cadence:ticks"
	DEFAULT_WEBHOOK_QUEUE = "cadence:webhooks"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"CADENCE_SERVER_SSL"`
	Secure    bool   `json:"secure" envconfig:"CADENCE_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"CADENCE_SERVER_SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"CADENCE_SERVER_SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"CADENCE_SERVER_SSL_EMAIL"`
	Port      string `json:"port" envconfig:"CADENCE_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns              string `json:"dns" envconfig:"CADENCE_DATA_SOURCE_DNS"`
	ListenForInserts bool   `json:"listen_for_inserts" envconfig:"CADENCE_DATA_SOURCE_LISTEN_FOR_INSERTS"`
}

type RedisConfig struct {
	Dns           string `json:"dns" envconfig:"CADENCE_REDIS_DNS"`
	SkipTLSVerify bool   `json:"skip_tls_verify" envconfig:"CADENCE_REDIS_SKIP_TLS_VERIFY"`
}

type QueueConfig struct {
	EventQueue     string `json:"event_queue" envconfig:"CADENCE_QUEUE_EVENT"`
	TickQueue      string `json:"tick_queue" envconfig:"CADENCE_QUEUE_TICK"`
	WebhookQueue   string `json:"webhook_queue" envconfig:"CADENCE_QUEUE_WEBHOOK"`
	Concurrency    int    `json:"concurrency" envconfig:"CADENCE_QUEUE_CONCURRENCY"`
	MaxRetry       int    `json:"max_retry" envconfig:"CADENCE_QUEUE_MAX_RETRY"`
	MonitoringPort string `json:"monitoring_port" envconfig:"CADENCE_QUEUE_MONITORING_PORT"`
}

// ScheduleConfig holds the cron specs for the clock-driven runs. Specs use the
// standard five-field format and are evaluated in Timezone.
type ScheduleConfig struct {
	DailyCron  string `json:"daily_cron" envconfig:"CADENCE_SCHEDULE_DAILY_CRON"`
	WeeklyCron string `json:"weekly_cron" envconfig:"CADENCE_SCHEDULE_WEEKLY_CRON"`
	Timezone   string `json:"timezone" envconfig:"CADENCE_SCHEDULE_TIMEZONE"`
}

func (s ScheduleConfig) Location() (*time.Location, error) {
	return time.LoadLocation(s.Timezone)
}

type WindowConfig struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

type ReorderConfig struct {
	WindowMin  int                     `json:"window_min" envconfig:"CADENCE_REORDER_WINDOW_MIN"`
	WindowMax  int                     `json:"window_max" envconfig:"CADENCE_REORDER_WINDOW_MAX"`
	Strategy   string                  `json:"strategy" envconfig:"CADENCE_REORDER_STRATEGY"`
	PolicyFile string                  `json:"policy_file" envconfig:"CADENCE_REORDER_POLICY_FILE"`
	Brands     map[string]WindowConfig `json:"brands" ignored:"true"`
	Categories map[string]WindowConfig `json:"categories" ignored:"true"`
}

type FollowUpConfig struct {
	InterestedDays int `json:"interested_days" envconfig:"CADENCE_FOLLOW_UP_INTERESTED_DAYS"`
	MaybeLaterDays int `json:"maybe_later_days" envconfig:"CADENCE_FOLLOW_UP_MAYBE_LATER_DAYS"`
}

type ReportConfig struct {
	CacheTTLSec int `json:"cache_ttl_sec" envconfig:"CADENCE_REPORT_CACHE_TTL_SEC"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"CADENCE_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"CADENCE_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"CADENCE_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url" envconfig:"CADENCE_SLACK_WEBHOOK_URL"`
}

type WebhookConfig struct {
	Url     string            `json:"url" envconfig:"CADENCE_WEBHOOK_URL"`
	Headers map[string]string `json:"headers" ignored:"true"`
}

// EmailConfig configures digest delivery through Resend. Digests are skipped
// when no API key is set.
type EmailConfig struct {
	ResendAPIKey string   `json:"resend_api_key" envconfig:"CADENCE_EMAIL_RESEND_API_KEY"`
	From         string   `json:"from" envconfig:"CADENCE_EMAIL_FROM"`
	To           []string `json:"to" envconfig:"CADENCE_EMAIL_TO"`
}

type Notification struct {
	Slack   SlackWebhook  `json:"slack"`
	Webhook WebhookConfig `json:"webhook"`
	Email   EmailConfig   `json:"email"`
}

type OtelExporter struct {
	Protocol string `json:"protocol" envconfig:"CADENCE_OTEL_EXPORTER_OTLP_PROTOCOL"`
	Endpoint string `json:"endpoint" envconfig:"CADENCE_OTEL_EXPORTER_OTLP_ENDPOINT"`
	Headers  string `json:"headers" envconfig:"CADENCE_OTEL_EXPORTER_OTLP_HEADERS"`
}

type Configuration struct {
	ProjectName     string           `json:"project_name" envconfig:"CADENCE_PROJECT_NAME"`
	EnableTelemetry bool             `json:"enable_telemetry" envconfig:"CADENCE_ENABLE_TELEMETRY"`
	Server          ServerConfig     `json:"server"`
	DataSource      DataSourceConfig `json:"data_source"`
	Redis           RedisConfig      `json:"redis"`
	Queue           QueueConfig      `json:"queue"`
	Schedule        ScheduleConfig   `json:"schedule"`
	Reorder         ReorderConfig    `json:"reorder"`
	FollowUp        FollowUpConfig   `json:"follow_up"`
	Report          ReportConfig     `json:"report"`
	Notification    Notification     `json:"notification"`
	RateLimit       RateLimitConfig  `json:"rate_limit"`
	Otel            OtelExporter     `json:"otel"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("cadence", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called cadence.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Cadence"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	cnf.setQueueDefaults()

	if err := cnf.validateSchedule(); err != nil {
		return err
	}

	if cnf.Reorder.Strategy == "" {
		cnf.Reorder.Strategy = "midpoint"
	}
	if cnf.FollowUp.InterestedDays == 0 {
		cnf.FollowUp.InterestedDays = 3
	}
	if cnf.FollowUp.MaybeLaterDays == 0 {
		cnf.FollowUp.MaybeLaterDays = 14
	}
	if cnf.Report.CacheTTLSec == 0 {
		cnf.Report.CacheTTLSec = 300
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
		log.Printf("Warning: Rate limit cleanup interval not specified. Setting default value: %d seconds", defaultCleanup)
	}

	return nil
}

func (cnf *Configuration) setQueueDefaults() {
	if cnf.Queue.EventQueue == "" {
		cnf.Queue.EventQueue = DEFAULT_EVENT_QUEUE
	}
	if cnf.Queue.TickQueue == "" {
		cnf.Queue.TickQueue = DEFAULT_TICK_QUEUE
	}
	if cnf.Queue.WebhookQueue == "" {
		cnf.Queue.WebhookQueue = DEFAULT_WEBHOOK_QUEUE
	}
	if cnf.Queue.Concurrency <= 0 {
		cnf.Queue.Concurrency = 10
	}
	if cnf.Queue.MaxRetry <= 0 {
		cnf.Queue.MaxRetry = 5
	}
	if cnf.Queue.MonitoringPort == "" {
		cnf.Queue.MonitoringPort = "5004"
	}
}

func (cnf *Configuration) validateSchedule() error {
	if cnf.Schedule.DailyCron == "" {
		cnf.Schedule.DailyCron = DEFAULT_DAILY_CRON
	}
	if cnf.Schedule.WeeklyCron == "" {
		cnf.Schedule.WeeklyCron = DEFAULT_WEEKLY_CRON
	}
	if cnf.Schedule.Timezone == "" {
		cnf.Schedule.Timezone = "UTC"
	}

	for name, spec := range map[string]string{"daily": cnf.Schedule.DailyCron, "weekly": cnf.Schedule.WeeklyCron} {
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("invalid %s cron spec %q: %w", name, spec, err)
		}
	}
	if _, err := cnf.Schedule.Location(); err != nil {
		return fmt.Errorf("invalid schedule timezone %q: %w", cnf.Schedule.Timezone, err)
	}
	return nil
}

// SetOtelExporterEnvs exports the OTLP settings for the SDK exporters, which read them from the environment.
func SetOtelExporterEnvs() error {
	cnf, err := Fetch()
	if err != nil {
		return err
	}

	envs := map[string]string{
		"OTEL_EXPORTER_OTLP_PROTOCOL": cnf.Otel.Protocol,
		"OTEL_EXPORTER_OTLP_ENDPOINT": cnf.Otel.Endpoint,
		"OTEL_EXPORTER_OTLP_HEADERS":  cnf.Otel.Headers,
	}
	for key, value := range envs {
		if value == "" {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return err
		}
	}
	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
