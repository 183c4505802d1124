package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadencehq/cadence/engine"
)

func validConfig() Configuration {
	return Configuration{
		ProjectName: "Test Project",
		DataSource:  DataSourceConfig{Dns: "postgres://localhost:5432/cadence"},
		Redis:       RedisConfig{Dns: "localhost:6379"},
	}
}

func TestValidateAndAddDefaults(t *testing.T) {
	cnf := Configuration{Redis: RedisConfig{Dns: "localhost:6379"}}
	err := cnf.validateAndAddDefaults()
	if err == nil || err.Error() != "data source DNS is required" {
		t.Errorf("Expected data source DNS required error, got %v", err)
	}

	cnf = Configuration{DataSource: DataSourceConfig{Dns: "postgres://localhost:5432"}}
	err = cnf.validateAndAddDefaults()
	if err == nil || err.Error() != "redis DNS is required" {
		t.Errorf("Expected redis DNS required error, got %v", err)
	}

	cnf = validConfig()
	require.NoError(t, cnf.validateAndAddDefaults())
	assert.Equal(t, DEFAULT_PORT, cnf.Server.Port)
	assert.Equal(t, DEFAULT_DAILY_CRON, cnf.Schedule.DailyCron)
	assert.Equal(t, DEFAULT_WEEKLY_CRON, cnf.Schedule.WeeklyCron)
	assert.Equal(t, "UTC", cnf.Schedule.Timezone)
	assert.Equal(t, DEFAULT_EVENT_QUEUE, cnf.Queue.EventQueue)
	assert.Equal(t, DEFAULT_TICK_QUEUE, cnf.Queue.TickQueue)
	assert.Equal(t, DEFAULT_WEBHOOK_QUEUE, cnf.Queue.WebhookQueue)
	assert.Equal(t, 3, cnf.FollowUp.InterestedDays)
	assert.Equal(t, 14, cnf.FollowUp.MaybeLaterDays)
	assert.Equal(t, "midpoint", cnf.Reorder.Strategy)
	require.NotNil(t, cnf.RateLimit.CleanupIntervalSec)
	assert.Nil(t, cnf.RateLimit.RequestsPerSecond)
}

func TestValidateAndAddDefaults_RateLimit(t *testing.T) {
	rps := 10.0
	cnf := validConfig()
	cnf.RateLimit.RequestsPerSecond = &rps
	require.NoError(t, cnf.validateAndAddDefaults())
	require.NotNil(t, cnf.RateLimit.Burst)
	assert.Equal(t, 20, *cnf.RateLimit.Burst)
}

func TestValidateAndAddDefaults_Schedule(t *testing.T) {
	cnf := validConfig()
	cnf.Schedule.DailyCron = "every morning"
	err := cnf.validateAndAddDefaults()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid daily cron spec")

	cnf = validConfig()
	cnf.Schedule.Timezone = "Mars/Olympus_Mons"
	err = cnf.validateAndAddDefaults()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid schedule timezone")
}

func TestLoadConfigFromFile(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "cadence.json")
	if err != nil {
		t.Fatalf("Unable to create temporary file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	sampleConfig := Configuration{
		ProjectName: "Temp Project",
		DataSource:  DataSourceConfig{Dns: "temp-dns"},
		Redis:       RedisConfig{Dns: "temp-redis"},
		Schedule:    ScheduleConfig{DailyCron: "30 6 * * *"},
	}
	if err := json.NewEncoder(tmpFile).Encode(sampleConfig); err != nil {
		t.Fatalf("Unable to write to temporary file: %v", err)
	}
	tmpFile.Close()

	t.Setenv("CADENCE_PROJECT_NAME", "Env Project")
	t.Setenv("CADENCE_EMAIL_TO", "rep@example.com,owner@example.com")

	if err := loadConfigFromFile(tmpFile.Name()); err != nil {
		t.Fatalf("loadConfigFromFile failed: %v", err)
	}

	loadedConfig, err := Fetch()
	require.NoError(t, err)
	assert.Equal(t, "Env Project", loadedConfig.ProjectName)
	assert.Equal(t, "temp-dns", loadedConfig.DataSource.Dns)
	assert.Equal(t, "30 6 * * *", loadedConfig.Schedule.DailyCron)
	assert.Equal(t, []string{"rep@example.com", "owner@example.com"}, loadedConfig.Notification.Email.To)
}

func TestInitConfig_EnvOnly(t *testing.T) {
	t.Setenv("CADENCE_DATA_SOURCE_DNS", "postgres://env/cadence")
	t.Setenv("CADENCE_REDIS_DNS", "localhost:6379")

	err := InitConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	loadedConfig, err := Fetch()
	require.NoError(t, err)
	assert.Equal(t, "postgres://env/cadence", loadedConfig.DataSource.Dns)
	assert.Equal(t, "Cadence", loadedConfig.ProjectName)
}

func TestSetOtelExporterEnvs(t *testing.T) {
	MockConfig(&Configuration{
		Otel: OtelExporter{
			Protocol: "http/protobuf",
			Endpoint: "localhost:4318",
			Headers:  "api-key=12345",
		},
	})
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "")

	require.NoError(t, SetOtelExporterEnvs())
	assert.Equal(t, "http/protobuf", os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL"))
	assert.Equal(t, "localhost:4318", os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	assert.Equal(t, "api-key=12345", os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
}

func TestReorderPolicy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	content := `
strategy: case_volume
brands:
  Bodhi Bubbles: {min: 21, max: 28}
categories:
  wellness:
    min: 28
    max: 42
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cnf := validConfig()
	cnf.Reorder.Categories = map[string]WindowConfig{"beverage": {Min: 14, Max: 21}}
	cnf.Reorder.PolicyFile = path
	require.NoError(t, cnf.validateAndAddDefaults())

	policy, err := cnf.ReorderPolicy()
	require.NoError(t, err)
	assert.Equal(t, engine.StrategyCaseVolume, policy.Strategy)
	assert.Equal(t, engine.Window{Min: 21, Max: 35}, policy.Default)
	assert.Equal(t, engine.Window{Min: 21, Max: 28}, policy.WindowFor("Bodhi Bubbles", ""))
	assert.Equal(t, engine.Window{Min: 28, Max: 42}, policy.WindowFor("", "Wellness"))
	assert.Equal(t, engine.Window{Min: 14, Max: 21}, policy.WindowFor("", "beverage"))
}

func TestReorderPolicy_Invalid(t *testing.T) {
	cnf := validConfig()
	cnf.Reorder.WindowMin = 30
	cnf.Reorder.WindowMax = 20

	_, err := cnf.ReorderPolicy()
	assert.True(t, errors.Is(err, engine.ErrInvalidPolicy))

	cnf = validConfig()
	cnf.Reorder.PolicyFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = cnf.ReorderPolicy()
	assert.Error(t, err)
}
