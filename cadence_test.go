package cadence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadencehq/cadence/config"
	"github.com/cadencehq/cadence/database/mocks"
	"github.com/cadencehq/cadence/engine"
	"github.com/cadencehq/cadence/internal/email"
	"github.com/cadencehq/cadence/model"
)

func testConfig(redisAddr string) *config.Configuration {
	return &config.Configuration{
		ProjectName: "Cadence",
		Redis:       config.RedisConfig{Dns: redisAddr},
		Queue: config.QueueConfig{
			EventQueue:   config.DEFAULT_EVENT_QUEUE,
			TickQueue:    config.DEFAULT_TICK_QUEUE,
			WebhookQueue: config.DEFAULT_WEBHOOK_QUEUE,
			MaxRetry:     5,
		},
		Schedule: config.ScheduleConfig{Timezone: "UTC"},
		FollowUp: config.FollowUpConfig{InterestedDays: 3, MaybeLaterDays: 14},
		Report:   config.ReportConfig{CacheTTLSec: 300},
	}
}

func newTestCadence(t *testing.T) (*Cadence, *mocks.MockDataSource, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	config.MockConfig(testConfig(mr.Addr()))

	ds := &mocks.MockDataSource{}
	c, err := NewCadence(ds)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, ds, mr
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testStore(id string, status model.StoreStatus) *model.Store {
	return &model.Store{
		StoreID:   id,
		Name:      gofakeit.Company(),
		City:      gofakeit.City(),
		Category:  "grocery",
		Status:    status,
		CreatedAt: day(2024, time.September, 1),
	}
}

type recordingMailer struct {
	mu       sync.Mutex
	messages []email.Message
}

func (r *recordingMailer) Send(_ context.Context, msg email.Message) (email.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return email.Receipt{MessageID: "test"}, nil
}

func TestNewCadence(t *testing.T) {
	c, _, _ := newTestCadence(t)

	require.NotNil(t, c.Planner())
	assert.Equal(t, engine.Window{Min: 21, Max: 35}, c.Planner().ReorderPolicy().Default)
	assert.IsType(t, email.NoopSender{}, c.mailer)
	assert.NotNil(t, c.Queue())
}

func TestNewCadence_InvalidPolicy(t *testing.T) {
	mr := miniredis.RunT(t)
	cnf := testConfig(mr.Addr())
	cnf.Reorder = config.ReorderConfig{WindowMin: 35, WindowMax: 21}
	config.MockConfig(cnf)

	_, err := NewCadence(&mocks.MockDataSource{})
	assert.Error(t, err)
}

func TestNewCadence_RedisUnavailable(t *testing.T) {
	config.MockConfig(testConfig("127.0.0.1:1"))

	_, err := NewCadence(&mocks.MockDataSource{})
	assert.Error(t, err)
}
