package gamestate

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/sprawl-engine/sprawl/types"
)

type Reader interface {
	// One Component One Entity
	GetComponentForEntity(cType types.ComponentMetadata, id types.EntityID) (any, error)
	GetComponentForEntityInRawJSON(cType types.ComponentMetadata, id types.EntityID) (json.RawMessage, error)
	HasComponentForEntity(cType types.ComponentMetadata, id types.EntityID) (bool, error)

	// Many Components One Entity
	GetComponentTypesForEntity(id types.EntityID) ([]types.ComponentMetadata, error)

	// One Archetype Many Components
	GetComponentTypesForArchID(archID types.ArchetypeID) ([]types.ComponentMetadata, error)
	GetArchIDForComponents(components []types.ComponentMetadata) (types.ArchetypeID, error)

	// One Archetype Many Entities
	GetEntitiesForArchID(archID types.ArchetypeID) ([]types.EntityID, error)

	// Misc
	ArchetypeCount() int
}

type Writer interface {
	// One Entity
	RemoveEntity(id types.EntityID) error

	// Many Components
	CreateEntity(comps ...types.ComponentMetadata) (types.EntityID, error)
	CreateManyEntities(num int, comps ...types.ComponentMetadata) ([]types.EntityID, error)

	// One Component One Entity
	SetComponentForEntity(cType types.ComponentMetadata, id types.EntityID, value any) error
	AddComponentToEntity(cType types.ComponentMetadata, id types.EntityID) error
	RemoveComponentFromEntity(cType types.ComponentMetadata, id types.EntityID) error

	// Misc
	InjectLogger(logger *zerolog.Logger)
	Close() error
	RegisterComponents([]types.ComponentMetadata) error
}

// PendingStorage tracks the queued state changes that have not yet been written to the
// durable storage layer.
type PendingStorage interface {
	CommitPending(ctx context.Context) error
	DiscardPending() error
}

// Manager represents all the methods required to track Component, Entity, and Archetype information
// which powers the ECS storage layer.
type Manager interface {
	PendingStorage
	Reader
	Writer
}
