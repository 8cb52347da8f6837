package sprawl

import (
	"testing"

	"github.com/sprawl-engine/sprawl/assert"
)

func TestConfigDefaults(t *testing.T) {
	cfg := GetWorldConfig()
	assert.Equal(t, "localhost:6379", cfg.RedisAddress)
	assert.Equal(t, "", cfg.RedisPassword)
	assert.Equal(t, "world", cfg.SprawlNamespace)
	assert.Equal(t, "info", cfg.SprawlLogLevel)
}

func TestConfigReadsEnvironmentVariables(t *testing.T) {
	t.Setenv("REDIS_ADDRESS", "redis.example.com:6379")
	t.Setenv("REDIS_PASSWORD", "hunter2")
	t.Setenv("SPRAWL_NAMESPACE", "my-world")
	t.Setenv("SPRAWL_LOG_LEVEL", "debug")

	cfg := GetWorldConfig()
	assert.Equal(t, "redis.example.com:6379", cfg.RedisAddress)
	assert.Equal(t, "hunter2", cfg.RedisPassword)
	assert.Equal(t, "my-world", cfg.SprawlNamespace)
	assert.Equal(t, "debug", cfg.SprawlLogLevel)
}

func TestInvalidLogLevelIsRejected(t *testing.T) {
	t.Setenv("SPRAWL_LOG_LEVEL", "shouting")

	_, err := GetWorldConfig().logLevel()
	assert.ErrorContains(t, err, "Unknown Level String")

	_, err = NewWorld()
	assert.ErrorContains(t, err, "Unknown Level String")
}
