package command

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/sprawl-engine/sprawl/component"
	"github.com/sprawl-engine/sprawl/gamestate"
	"github.com/sprawl-engine/sprawl/types"
)

// PlaybackFunc applies a batch of recorded command payloads to the entity store.
// The batch is carried by the PlaybackContext; an empty batch must be a no-op.
type PlaybackFunc func(pCtx *PlaybackContext) error

// Command is the type-erased view of a registered command kind.
type Command interface {
	Name() string
	ID() types.CommandID
	SetID(types.CommandID) error
	Encode(any) ([]byte, error)
	Decode(bytes []byte) (any, error)
	GetPlaybackFunc() PlaybackFunc
}

// PlaybackContext carries one command kind's recorded batch through a playback
// pass: the target entities in recording order, the matching payloads, and the
// live entity store the playback writes against.
type PlaybackContext struct {
	ctx        context.Context
	entities   []types.EntityID
	payloads   []any
	store      gamestate.Manager
	components *component.Manager
	logger     *zerolog.Logger
}

func NewPlaybackContext(
	ctx context.Context,
	entities []types.EntityID,
	payloads []any,
	store gamestate.Manager,
	components *component.Manager,
	logger *zerolog.Logger,
) *PlaybackContext {
	return &PlaybackContext{
		ctx:        ctx,
		entities:   entities,
		payloads:   payloads,
		store:      store,
		components: components,
		logger:     logger,
	}
}

func (p *PlaybackContext) Context() context.Context {
	return p.ctx
}

// Entities returns the target entities of the batch, in recording order.
// Entities()[i] is the entity the payload at index i was recorded against.
func (p *PlaybackContext) Entities() []types.EntityID {
	return p.entities
}

// Len returns the number of recorded commands in the batch.
func (p *PlaybackContext) Len() int {
	return len(p.entities)
}

// ReadCommand returns the type-erased payload at index i.
func (p *PlaybackContext) ReadCommand(i int) (any, error) {
	if i < 0 || i >= len(p.payloads) {
		return nil, eris.Errorf("command index %d is out of range [0, %d)", i, len(p.payloads))
	}
	return p.payloads[i], nil
}

// Store returns the live entity store the playback writes against.
func (p *PlaybackContext) Store() gamestate.Manager {
	return p.store
}

// GetComponentByName resolves a registered component by name.
func (p *PlaybackContext) GetComponentByName(name string) (types.ComponentMetadata, error) {
	return p.components.GetComponentByName(name)
}

func (p *PlaybackContext) Logger() *zerolog.Logger {
	return p.logger
}

// ReadCommandAs reads the payload at index i as the concrete payload type T.
func ReadCommandAs[T any](pCtx *PlaybackContext, i int) (T, error) {
	var payload T
	iface, err := pCtx.ReadCommand(i)
	if err != nil {
		return payload, err
	}
	payload, ok := iface.(T)
	if !ok {
		return payload, eris.Errorf("command payload at index %d is of type %T, expected %T", i, iface, payload)
	}
	return payload, nil
}
