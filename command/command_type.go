package command

import (
	"fmt"
	"reflect"
	"regexp"

	"github.com/rotisserie/eris"

	"github.com/sprawl-engine/sprawl/codec"
	"github.com/sprawl-engine/sprawl/types"
)

var _ Command = &CommandType[struct{}]{}

// CommandType manages a user defined instantiation command kind. The generic
// parameter is the payload struct recorded against an entity and later handed
// back to the command's playback function.
type CommandType[T any] struct {
	id       types.CommandID
	isIDSet  bool
	name     string
	playback PlaybackFunc
}

// NewCommandType creates a new command kind. The playback function is fixed at
// construction; the handle returned by GetPlaybackFunc never varies per batch.
func NewCommandType[T any](name string, playback PlaybackFunc) *CommandType[T] {
	if !isStruct[T]() {
		panic(fmt.Sprintf("Invalid CommandType: %q: the payload type must be a struct", name))
	}
	if !isValidCommandName(name) {
		panic(fmt.Sprintf("Invalid CommandType: %q: command name must only contain alphanumerics, "+
			"dashes (-), and/or underscores (_). Must also start/end with an alphanumeric.", name))
	}
	if playback == nil {
		panic(fmt.Sprintf("Invalid CommandType: %q: the playback function must not be nil", name))
	}
	return &CommandType[T]{
		name:     name,
		playback: playback,
	}
}

func (t *CommandType[T]) Name() string {
	return t.name
}

func (t *CommandType[T]) ID() types.CommandID {
	if !t.isIDSet {
		panic(fmt.Sprintf("id on command %q is not set", t.name))
	}
	return t.id
}

func (t *CommandType[T]) SetID(id types.CommandID) error {
	if t.isIDSet {
		// Commands are only initialized one time on startup. In tests, it's often
		// useful to use the same command in multiple worlds. This check allows for
		// the re-initialization of commands, as long as the ID doesn't change.
		if id == t.id {
			return nil
		}
		return eris.Errorf("id on command %q is already set to %d and cannot change to %d", t.name, t.id, id)
	}
	t.id = id
	t.isIDSet = true
	return nil
}

// GetPlaybackFunc returns the playback handle for this command kind. The
// handle is the same for every batch, so callers may cache it.
func (t *CommandType[T]) GetPlaybackFunc() PlaybackFunc {
	return t.playback
}

func (t *CommandType[T]) Encode(a any) ([]byte, error) {
	return codec.Encode(a)
}

func (t *CommandType[T]) Decode(bytes []byte) (any, error) {
	return codec.Decode[T](bytes)
}

// Record enqueues a payload of this command kind against the given entity. The
// command is not applied until the pool is played back.
func (t *CommandType[T]) Record(pool *Pool, id types.EntityID, payload T) {
	pool.Record(t.ID(), id, payload)
}

// Each iterates the batch in recording order, pairing each target entity with
// its typed payload.
func (t *CommandType[T]) Each(pCtx *PlaybackContext, fn func(id types.EntityID, payload T) error) error {
	for i, entityID := range pCtx.Entities() {
		payload, err := ReadCommandAs[T](pCtx, i)
		if err != nil {
			return err
		}
		if err := fn(entityID, payload); err != nil {
			return eris.Wrapf(err, "playback of command %q failed for entity %d", t.name, entityID)
		}
	}
	return nil
}

// -------------------------- Helpers --------------------------

func isStruct[T any]() bool {
	var payload T
	payloadType := reflect.TypeOf(payload)
	payloadKind := payloadType.Kind()
	return (payloadKind == reflect.Pointer &&
		payloadType.Elem().Kind() == reflect.Struct) ||
		payloadKind == reflect.Struct
}

// enforces first/last (or single) alphanumeric character, can contain dash/underscore in between. does not allow
// spaces or special characters.
var commandNameRegexp = regexp.MustCompile("^[a-zA-Z0-9][a-zA-Z0-9_-]*[a-zA-Z0-9]$")

func isValidCommandName(txt string) bool {
	return commandNameRegexp.MatchString(txt)
}
