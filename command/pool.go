package command

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/sprawl-engine/sprawl/types"
)

type RecordedMap map[types.CommandID][]Recorded

// Recorded is one enqueued command: a payload bound to a target entity.
type Recorded struct {
	CommandID types.CommandID
	EntityID  types.EntityID
	Payload   any
}

// Pool buffers recorded commands until they are played back. It is safe for
// concurrent recording.
type Pool struct {
	m              RecordedMap
	commandsInPool int
	mux            *sync.Mutex
	tracer         trace.Tracer
}

func NewPool() *Pool {
	return &Pool{
		m:      RecordedMap{},
		mux:    &sync.Mutex{},
		tracer: otel.Tracer("commandpool"),
	}
}

func (p *Pool) GetAmountOfCommands() int {
	return p.commandsInPool
}

func (p *Pool) Record(id types.CommandID, entityID types.EntityID, payload any) {
	p.mux.Lock()
	defer p.mux.Unlock()
	p.m[id] = append(p.m[id], Recorded{
		CommandID: id,
		EntityID:  entityID,
		Payload:   payload,
	})
	p.commandsInPool++
}

func (p *Pool) Recorded() RecordedMap {
	return p.m
}

// CopyRecorded returns a copy of the Pool, and resets the state to 0 values.
func (p *Pool) CopyRecorded(ctx context.Context) *Pool {
	_, span := p.tracer.Start(ctx, "commandpool.copy-recorded")
	defer span.End()

	p.mux.Lock()
	defer p.mux.Unlock()

	cpy := *p
	p.reset()

	return &cpy
}

func (p *Pool) reset() {
	p.m = RecordedMap{}
	p.commandsInPool = 0
}

func (p *Pool) ForID(id types.CommandID) []Recorded {
	return p.m[id]
}
