package sprawl

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

type WorldConfig struct {
	RedisAddress    string
	RedisPassword   string
	SprawlNamespace string
	SprawlLogLevel  string
}

func GetWorldConfig() WorldConfig {
	return WorldConfig{
		RedisAddress:    getEnv("REDIS_ADDRESS", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		SprawlNamespace: getEnv("SPRAWL_NAMESPACE", "world"),
		SprawlLogLevel:  getEnv("SPRAWL_LOG_LEVEL", "info"),
	}
}

// logLevel parses the configured zerolog level.
func (cfg WorldConfig) logLevel() (zerolog.Level, error) {
	level, err := zerolog.ParseLevel(cfg.SprawlLogLevel)
	if err != nil {
		return zerolog.NoLevel, eris.Wrapf(err, "invalid log level %q", cfg.SprawlLogLevel)
	}
	return level, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
