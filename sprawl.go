package sprawl

import (
	"github.com/rotisserie/eris"

	"github.com/sprawl-engine/sprawl/command"
	"github.com/sprawl-engine/sprawl/component"
	"github.com/sprawl-engine/sprawl/gamestate"
	"github.com/sprawl-engine/sprawl/types"
)

var (
	ErrEntityDoesNotExist                = gamestate.ErrEntityDoesNotExist
	ErrEntityMustHaveAtLeastOneComponent = gamestate.ErrEntityMustHaveAtLeastOneComponent
	ErrComponentNotOnEntity              = gamestate.ErrComponentNotOnEntity
	ErrComponentAlreadyOnEntity          = gamestate.ErrComponentAlreadyOnEntity
)

func RegisterComponent[T types.Component](w *World) error {
	if w.IsReady() {
		return eris.New("cannot register components after the world is initialized")
	}

	compMetadata, err := component.NewComponentMetadata[T]()
	if err != nil {
		return err
	}

	return w.componentManager.RegisterComponent(compMetadata)
}

func MustRegisterComponent[T types.Component](w *World) {
	err := RegisterComponent[T](w)
	if err != nil {
		panic(err)
	}
}

// RegisterCommand registers a command kind with the world. Its playback
// handle is resolved once by the dispatcher and reused across playback passes.
func RegisterCommand[T any](w *World, cmdType *command.CommandType[T]) error {
	if w.IsReady() {
		return eris.New("cannot register commands after the world is initialized")
	}
	return command.RegisterCommandOnManager(w.commandManager, cmdType)
}

func MustRegisterCommand[T any](w *World, cmdType *command.CommandType[T]) {
	err := RegisterCommand(w, cmdType)
	if err != nil {
		panic(err)
	}
}

// Record enqueues a typed command payload against an entity. The command is
// applied when World.PlaybackRecorded runs.
func Record[T any](w *World, cmdType *command.CommandType[T], id types.EntityID, payload T) {
	cmdType.Record(w.pool, id, payload)
}
