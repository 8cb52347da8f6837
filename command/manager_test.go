package command_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/sprawl-engine/sprawl/assert"
	"github.com/sprawl-engine/sprawl/command"
	"github.com/sprawl-engine/sprawl/types"
)

type scaleEntity struct {
	Factor float64
}

var nopLogger = zerolog.Nop()

func TestRegisteredCommandsGetSequentialIDs(t *testing.T) {
	manager := command.NewManager()

	moveCmd := command.NewCommandType[moveEntity]("move", noopPlayback)
	scaleCmd := command.NewCommandType[scaleEntity]("scale", noopPlayback)
	assert.NilError(t, command.RegisterCommandOnManager(manager, moveCmd))
	assert.NilError(t, command.RegisterCommandOnManager(manager, scaleCmd))

	assert.Equal(t, types.CommandID(1), moveCmd.ID())
	assert.Equal(t, types.CommandID(2), scaleCmd.ID())
	assert.Len(t, manager.GetRegisteredCommands(), 2)
}

func TestCannotRegisterDuplicateCommandName(t *testing.T) {
	manager := command.NewManager()

	assert.NilError(t, command.RegisterCommandOnManager(
		manager, command.NewCommandType[moveEntity]("move", noopPlayback)))
	err := command.RegisterCommandOnManager(
		manager, command.NewCommandType[scaleEntity]("move", noopPlayback))
	assert.ErrorContains(t, err, "already registered")
}

func TestCannotRegisterDuplicateCommandPayloadType(t *testing.T) {
	manager := command.NewManager()

	assert.NilError(t, command.RegisterCommandOnManager(
		manager, command.NewCommandType[moveEntity]("move", noopPlayback)))
	err := command.RegisterCommandOnManager(
		manager, command.NewCommandType[moveEntity]("move-again", noopPlayback))
	assert.ErrorContains(t, err, "already registered")
}

func TestCanLookUpRegisteredCommands(t *testing.T) {
	manager := command.NewManager()
	moveCmd := command.NewCommandType[moveEntity]("move", noopPlayback)
	assert.NilError(t, command.RegisterCommandOnManager(manager, moveCmd))

	gotByName, ok := manager.GetCommandByName("move")
	assert.True(t, ok)
	assert.Equal(t, "move", gotByName.Name())

	gotByID := manager.GetCommandByID(moveCmd.ID())
	assert.NotNil(t, gotByID)
	assert.Equal(t, "move", gotByID.Name())

	gotByType, ok := manager.GetCommandByType(reflect.TypeOf(moveEntity{}))
	assert.True(t, ok)
	assert.Equal(t, "move", gotByType.Name())

	_, ok = manager.GetCommandByName("missing")
	assert.False(t, ok)
}

// countingCommand tracks how often its playback handle is resolved versus invoked.
type countingCommand struct {
	id            types.CommandID
	isIDSet       bool
	handleLookups int
	playbacks     int
	lastEntities  []types.EntityID
	lastPayloads  []any
}

func (c *countingCommand) Name() string { return "counting" }

func (c *countingCommand) ID() types.CommandID { return c.id }

func (c *countingCommand) Encode(any) ([]byte, error) { return nil, nil }

func (c *countingCommand) Decode([]byte) (any, error) { return nil, nil }

func (c *countingCommand) SetID(id types.CommandID) error {
	if c.isIDSet && id != c.id {
		return eris.New("id already set")
	}
	c.id = id
	c.isIDSet = true
	return nil
}

func (c *countingCommand) GetPlaybackFunc() command.PlaybackFunc {
	c.handleLookups++
	return func(pCtx *command.PlaybackContext) error {
		c.playbacks++
		c.lastEntities = pCtx.Entities()
		c.lastPayloads = nil
		for i := 0; i < pCtx.Len(); i++ {
			payload, err := pCtx.ReadCommand(i)
			if err != nil {
				return err
			}
			c.lastPayloads = append(c.lastPayloads, payload)
		}
		return nil
	}
}

func TestPlaybackHandleIsResolvedOnce(t *testing.T) {
	manager := command.NewManager()
	counting := &countingCommand{}
	assert.NilError(t, manager.RegisterCommand(counting, reflect.TypeOf(counting)))

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		pool := command.NewPool()
		pool.Record(counting.ID(), types.EntityID(i), moveEntity{i})
		assert.NilError(t, manager.Playback(ctx, pool, nil, nil, &nopLogger))
	}

	// The handle was acquired once; the acquired handle ran every pass.
	assert.Equal(t, 1, counting.handleLookups)
	assert.Equal(t, 3, counting.playbacks)
}

func TestPlaybackGroupsRecordedCommandsByKind(t *testing.T) {
	manager := command.NewManager()
	first := &countingCommand{}
	assert.NilError(t, manager.RegisterCommand(first, reflect.TypeOf(first)))

	pool := command.NewPool()
	pool.Record(first.ID(), 7, moveEntity{1})
	pool.Record(types.CommandID(9999), 8, moveEntity{2}) // no command registered for this kind
	pool.Record(first.ID(), 9, moveEntity{3})

	assert.NilError(t, manager.Playback(context.Background(), pool, nil, nil, &nopLogger))

	// Only this kind's batch reached the playback, in recording order.
	assert.Equal(t, 1, first.playbacks)
	assert.DeepEqual(t, []types.EntityID{7, 9}, first.lastEntities)
	assert.DeepEqual(t, []any{moveEntity{1}, moveEntity{3}}, first.lastPayloads)
}

func TestPlaybackWithEmptyPoolIsANoOp(t *testing.T) {
	manager := command.NewManager()
	counting := &countingCommand{}
	assert.NilError(t, manager.RegisterCommand(counting, reflect.TypeOf(counting)))

	assert.NilError(t, manager.Playback(context.Background(), command.NewPool(), nil, nil, &nopLogger))
	assert.Equal(t, 0, counting.playbacks)
}

func TestPlaybackErrorIsPropagated(t *testing.T) {
	manager := command.NewManager()
	failing := command.NewCommandType[scaleEntity]("failing", func(*command.PlaybackContext) error {
		return eris.New("boom")
	})
	assert.NilError(t, command.RegisterCommandOnManager(manager, failing))

	pool := command.NewPool()
	failing.Record(pool, 1, scaleEntity{2})

	err := manager.Playback(context.Background(), pool, nil, nil, &nopLogger)
	assert.ErrorContains(t, err, "boom")
}
