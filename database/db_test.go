package database

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cadencehq/cadence/config"
)

func TestGetDBConnection_Failure(t *testing.T) {
	instance = nil
	once = sync.Once{}
	t.Cleanup(func() {
		instance = nil
		once = sync.Once{}
	})

	mockConfig := &config.Configuration{
		DataSource: config.DataSourceConfig{Dns: "invalid-dns"},
	}

	_, err := GetDBConnection(mockConfig)
	assert.Error(t, err)

	_, err = NewDataSource(mockConfig)
	assert.Error(t, err, "a failed first connection is not retried")
}

func TestConnectDB_Failure(t *testing.T) {
	db, err := ConnectDB("invalid-dns")
	assert.Error(t, err)
	assert.Nil(t, db)
}

func TestNullTime(t *testing.T) {
	assert.False(t, nullTime(nil).Valid)
	assert.False(t, nullTime(&time.Time{}).Valid)

	due := time.Date(2024, 12, 18, 0, 0, 0, 0, time.UTC)
	nt := nullTime(&due)
	assert.True(t, nt.Valid)
	assert.Equal(t, due, *timePtr(nt))
	assert.Nil(t, timePtr(nullTime(nil)))
}
