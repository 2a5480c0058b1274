package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskPassword(t *testing.T) {
	dsn := "host=db port=5432 user=app password=hunter2 dbname=shopdesk sslmode=disable"
	masked := maskPassword(dsn)

	assert.NotContains(t, masked, "hunter2")
	assert.Contains(t, masked, "password=*****")
	assert.Contains(t, masked, "dbname=shopdesk")
	assert.Equal(t, "password=*****", maskPassword("password=last"))
}

func TestLoadConfigMemoryDriver(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("CUSTOMER_WEBHOOK_RATE_LIMIT", "5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.test, https://b.test,")

	require.NoError(t, LoadConfig())
	assert.Equal(t, StorageDriverMemory, AppConfig.StorageDriver)
	assert.True(t, AppConfig.Redis.Enabled)
	assert.Equal(t, 5, AppConfig.CustomerWebhookRateLimit)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, AppConfig.CORSAllowedOrigins)
}

func TestValidate(t *testing.T) {
	base := Config{StorageDriver: StorageDriverPostgres, DBPassword: "x", CustomerWebhookRateLimit: 1, MaxBodyBytes: 1}
	assert.NoError(t, base.Validate())

	noPassword := base
	noPassword.DBPassword = ""
	assert.Error(t, noPassword.Validate())

	memoryInProd := base
	memoryInProd.StorageDriver = StorageDriverMemory
	memoryInProd.Environment = "production"
	assert.Error(t, memoryInProd.Validate())

	unknown := base
	unknown.StorageDriver = "mysql"
	assert.Error(t, unknown.Validate())
}
