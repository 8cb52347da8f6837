package sprawl

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sprawl-engine/sprawl/gamestate"
)

// WorldOption represents an option that can be used to augment how the World
// will be run.
type WorldOption func(*World)

// WithStoreManager replaces the World's entity store. Tests can pass in a
// store backed by an in-memory redis.
func WithStoreManager(store gamestate.Manager) WorldOption {
	return func(world *World) {
		world.entityStore = store
	}
}

// WithPrettyLog sets the global logger to use a human friendly console writer
// instead of JSON output.
func WithPrettyLog() WorldOption {
	return func(*World) {
		prettyLogger := log.Output(zerolog.NewConsoleWriter())
		log.Logger = prettyLogger
	}
}
