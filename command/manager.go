package command

import (
	"context"
	"errors"
	"reflect"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	otelcode "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sprawl-engine/sprawl/component"
	"github.com/sprawl-engine/sprawl/gamestate"
	ecslog "github.com/sprawl-engine/sprawl/log"
	"github.com/sprawl-engine/sprawl/types"
)

// Manager owns the registered command kinds and drives playback passes over a
// recorded pool.
type Manager struct {
	// registeredCommands maps command names to a Command.
	registeredCommands       map[string]Command
	registeredCommandsByType map[reflect.Type]Command
	// commandOrder holds commands in registration order so playback passes are
	// deterministic.
	commandOrder  []Command
	nextCommandID types.CommandID

	// playbackFuncs caches the playback handle per command kind. The handle for
	// a kind never varies per batch, so it is resolved once and reused.
	playbackFuncs map[types.CommandID]PlaybackFunc

	tracer trace.Tracer
}

func NewManager() *Manager {
	return &Manager{
		registeredCommands:       map[string]Command{},
		registeredCommandsByType: map[reflect.Type]Command{},
		nextCommandID:            1,
		playbackFuncs:            map[types.CommandID]PlaybackFunc{},
		tracer:                   otel.Tracer("command"),
	}
}

func (m *Manager) RegisterCommand(cmdType Command, cmdReflectType reflect.Type) error {
	name := cmdType.Name()
	// Checks if the command is already previously registered.
	if err := errors.Join(m.isCommandNameUnique(name), m.isCommandTypeUnique(cmdReflectType)); err != nil {
		return err
	}

	if err := cmdType.SetID(m.nextCommandID); err != nil {
		return eris.Errorf("failed to set id on command %q", name)
	}

	m.registeredCommands[name] = cmdType
	m.registeredCommandsByType[cmdReflectType] = cmdType
	m.commandOrder = append(m.commandOrder, cmdType)
	m.nextCommandID++

	return nil
}

// GetRegisteredCommands returns the list of all registered commands in
// registration order.
func (m *Manager) GetRegisteredCommands() []Command {
	cmds := make([]Command, 0, len(m.commandOrder))
	cmds = append(cmds, m.commandOrder...)
	return cmds
}

// GetCommandByID iterates over all registered commands and returns the Command
// associated with the CommandID.
func (m *Manager) GetCommandByID(id types.CommandID) Command {
	for _, cmd := range m.registeredCommands {
		if id == cmd.ID() {
			return cmd
		}
	}
	return nil
}

// GetCommandByName returns the command with the given name, if it exists.
func (m *Manager) GetCommandByName(name string) (Command, bool) {
	cmd, ok := m.registeredCommands[name]
	return cmd, ok
}

func (m *Manager) GetCommandByType(cmdType reflect.Type) (Command, bool) {
	cmd, ok := m.registeredCommandsByType[cmdType]
	return cmd, ok
}

// getPlaybackFunc resolves the playback handle for a command kind, caching it
// on first use.
func (m *Manager) getPlaybackFunc(cmd Command) PlaybackFunc {
	if fn, ok := m.playbackFuncs[cmd.ID()]; ok {
		return fn
	}
	fn := cmd.GetPlaybackFunc()
	m.playbackFuncs[cmd.ID()] = fn
	return fn
}

// Playback replays every recorded command in the pool against the entity
// store. Recorded commands are grouped per command kind; each kind's batch is
// handed to that kind's playback handle in recording order. An empty pool is
// a no-op.
func (m *Manager) Playback(
	ctx context.Context,
	pool *Pool,
	store gamestate.Manager,
	components *component.Manager,
	logger *zerolog.Logger,
) error {
	ctx, span := m.tracer.Start(ctx, "command.playback")
	defer span.End()

	traceLogger := ecslog.CreateTraceLogger(logger, uuid.New().String())

	for _, cmd := range m.commandOrder {
		recorded := pool.ForID(cmd.ID())
		if len(recorded) == 0 {
			continue
		}

		entities := make([]types.EntityID, 0, len(recorded))
		payloads := make([]any, 0, len(recorded))
		for _, rec := range recorded {
			entities = append(entities, rec.EntityID)
			payloads = append(payloads, rec.Payload)
		}

		cmdLogger := ecslog.CreateCommandLogger(traceLogger, cmd.Name())
		cmdLogger.Info().Int("command_count", len(recorded)).Msg("playback started")

		pCtx := NewPlaybackContext(ctx, entities, payloads, store, components, cmdLogger)
		if err := m.getPlaybackFunc(cmd)(pCtx); err != nil {
			err = eris.Wrapf(err, "playback of command %q failed", cmd.Name())
			span.SetStatus(otelcode.Error, eris.ToString(err, true))
			span.RecordError(err)
			cmdLogger.Error().Err(err).Msg("playback failed")
			return err
		}

		cmdLogger.Info().Msg("playback completed")
	}

	return nil
}

// RegisterCommandOnManager registers a typed command kind, keying the
// payload's reflect.Type for lookups.
func RegisterCommandOnManager[T any](m *Manager, cmdType *CommandType[T]) error {
	return m.RegisterCommand(cmdType, reflect.TypeOf(*new(T)))
}

// isCommandNameUnique checks if the command name already exists in the
// commands map.
func (m *Manager) isCommandNameUnique(name string) error {
	_, ok := m.registeredCommands[name]
	if ok {
		return eris.Errorf("command %q is already registered", name)
	}
	return nil
}

// isCommandTypeUnique checks if the command payload type already exists in the
// commands map.
func (m *Manager) isCommandTypeUnique(cmdReflectType reflect.Type) error {
	_, ok := m.registeredCommandsByType[cmdReflectType]
	if ok {
		return eris.Errorf("command type %q is already registered", cmdReflectType)
	}
	return nil
}
