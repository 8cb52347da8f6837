package sprawl

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sprawl-engine/sprawl/command"
	"github.com/sprawl-engine/sprawl/component"
	"github.com/sprawl-engine/sprawl/gamestate"
	ecslog "github.com/sprawl-engine/sprawl/log"
	"github.com/sprawl-engine/sprawl/storage/redis"
	"github.com/sprawl-engine/sprawl/types"
)

const RedisDialTimeOut = 15

var _ ecslog.Loggable = &World{}

// World ties the entity store, the component registry, and the command
// dispatcher together. Commands recorded against the world's pool are applied
// to the entity store only when PlaybackRecorded runs.
type World struct {
	namespace string

	// Storage
	redisStorage *redis.Storage
	entityStore  gamestate.Manager

	// Core modules
	componentManager *component.Manager
	commandManager   *command.Manager
	pool             *command.Pool

	ready *atomic.Bool
}

// NewWorld creates a new World object using Redis as the storage layer.
func NewWorld(opts ...WorldOption) (*World, error) {
	cfg := GetWorldConfig()

	level, err := cfg.logLevel()
	if err != nil {
		return nil, eris.Wrap(err, "failed to load config to start world")
	}
	zerolog.SetGlobalLevel(level)

	log.Info().Msgf("Creating a new world under namespace %q", cfg.SprawlNamespace)

	redisMetaStore := redis.NewRedisStorage(redis.Options{
		Addr:        cfg.RedisAddress,
		Password:    cfg.RedisPassword,
		DB:          0,                              // use default DB
		DialTimeout: RedisDialTimeOut * time.Second, // Increase startup dial timeout
	}, cfg.SprawlNamespace)

	redisStore := gamestate.NewRedisPrimitiveStorage(redisMetaStore.Client)
	entityCommandBuffer, err := gamestate.NewEntityCommandBuffer(redisStore)
	if err != nil {
		return nil, err
	}

	world := &World{
		namespace: cfg.SprawlNamespace,

		// Storage
		redisStorage: &redisMetaStore,
		entityStore:  entityCommandBuffer,

		// Core modules
		componentManager: component.NewManager(redisMetaStore.SchemaStorage),
		commandManager:   command.NewManager(),
		pool:             command.NewPool(),

		ready: new(atomic.Bool),
	}

	// Apply options
	for _, opt := range opts {
		opt(world)
	}

	return world, nil
}

// Init loads the registered component state into the entity store and marks
// the world ready. RegisterComponent and RegisterCommand may not be called
// after Init.
func (w *World) Init() error {
	if !w.ready.CompareAndSwap(false, true) {
		return eris.New("world has already been initialized")
	}

	if err := w.entityStore.RegisterComponents(w.componentManager.GetComponents()); err != nil {
		closeErr := w.entityStore.Close()
		if closeErr != nil {
			return eris.Wrap(err, closeErr.Error())
		}
		return err
	}

	if len(w.componentManager.GetComponents()) == 0 {
		log.Warn().Msg("No components registered")
	}
	if len(w.commandManager.GetRegisteredCommands()) == 0 {
		log.Warn().Msg("No commands registered")
	}

	// Log world info
	ecslog.World(&log.Logger, w, zerolog.InfoLevel)

	return nil
}

func (w *World) IsReady() bool {
	return w.ready.Load()
}

// CreateEntity creates a single entity carrying the given components. The
// components must be registered.
func (w *World) CreateEntity(comps ...types.Component) (types.EntityID, error) {
	ids, err := w.CreateManyEntities(1, comps...)
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// CreateManyEntities creates num entities each carrying the given components.
func (w *World) CreateManyEntities(num int, comps ...types.Component) ([]types.EntityID, error) {
	if !w.ready.Load() {
		return nil, eris.New("entities cannot be created before the world is initialized")
	}
	metadatas := make([]types.ComponentMetadata, 0, len(comps))
	for _, comp := range comps {
		compMetadata, err := w.componentManager.GetComponentByName(comp.Name())
		if err != nil {
			return nil, eris.Wrapf(err, "component %q must be registered before use", comp.Name())
		}
		metadatas = append(metadatas, compMetadata)
	}

	ids, err := w.entityStore.CreateManyEntities(num, metadatas...)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		for i, compMetadata := range metadatas {
			if err := w.entityStore.SetComponentForEntity(compMetadata, id, comps[i]); err != nil {
				return nil, err
			}
		}
	}
	return ids, nil
}

// RecordCommand enqueues a type-erased command payload against an entity. This
// should not be used directly. Instead, use CommandType.Record to ensure type
// consistency.
func (w *World) RecordCommand(id types.CommandID, entityID types.EntityID, payload any) {
	w.pool.Record(id, entityID, payload)
}

// PlaybackRecorded replays every command recorded since the last playback
// against the entity store, then commits the resulting state atomically. The
// pool is drained even when nothing was recorded; a failed playback discards
// all pending state changes.
func (w *World) PlaybackRecorded(ctx context.Context) error {
	if !w.ready.Load() {
		return eris.New("playback cannot run before the world is initialized")
	}

	// Copy the recorded commands so recording can continue while playback runs.
	pool := w.pool.CopyRecorded(ctx)

	err := w.commandManager.Playback(ctx, pool, w.entityStore, w.componentManager, &log.Logger)
	if err != nil {
		if discardErr := w.entityStore.DiscardPending(); discardErr != nil {
			return eris.Wrap(err, discardErr.Error())
		}
		return err
	}

	if err := w.entityStore.CommitPending(ctx); err != nil {
		return err
	}

	return nil
}

// Shutdown closes the storage connection.
func (w *World) Shutdown() error {
	log.Info().Msg("Closing storage connection.")
	if err := w.entityStore.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close storage connection.")
		return err
	}
	log.Info().Msg("Successfully closed storage connection.")
	return nil
}

func (w *World) Namespace() string {
	return w.namespace
}

func (w *World) GameStateManager() gamestate.Manager {
	return w.entityStore
}

func (w *World) GetRegisteredComponents() []types.ComponentMetadata {
	return w.componentManager.GetComponents()
}

// GetRegisteredCommands returns the names of all registered command kinds in
// registration order.
func (w *World) GetRegisteredCommands() []string {
	cmds := w.commandManager.GetRegisteredCommands()
	names := make([]string, 0, len(cmds))
	for _, cmd := range cmds {
		names = append(names, cmd.Name())
	}
	return names
}

func (w *World) GetComponentByName(name string) (types.ComponentMetadata, error) {
	return w.componentManager.GetComponentByName(name)
}

func (w *World) GetCommandByName(name string) (command.Command, bool) {
	return w.commandManager.GetCommandByName(name)
}

func (w *World) GetAmountOfRecordedCommands() int {
	return w.pool.GetAmountOfCommands()
}
