package gamestate

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sprawl-engine/sprawl/codec"
	"github.com/sprawl-engine/sprawl/types"
)

// makePipeOfStorageCommands returns a transaction with all pending state changes ready to be
// committed atomically. If an error is returned, no storage changes will have been made.
func (m *EntityCommandBuffer) makePipeOfStorageCommands(ctx context.Context) (Transaction[string], error) {
	pipe, err := m.dbStorage.StartTransaction(ctx)
	if err != nil {
		return nil, err
	}

	if m.typeToComponent == nil {
		// ComponentID -> ComponentMetadata mappings are required to serialize data for the DB
		return nil, eris.New("must call RegisterComponents before committing to the DB")
	}

	if err := m.addComponentChangesToPipe(ctx, pipe); err != nil {
		return nil, eris.Wrap(err, "failed to add component changes to pipe")
	}
	if err := m.addNextEntityIDToPipe(ctx, pipe); err != nil {
		return nil, eris.Wrap(err, "failed to add entity id changes to pipe")
	}
	if err := m.addPendingArchIDsToPipe(ctx, pipe); err != nil {
		return nil, eris.Wrap(err, "failed to add archID to component type map to pipe")
	}
	if err := m.addEntityIDToArchIDToPipe(ctx, pipe); err != nil {
		return nil, eris.Wrap(err, "failed to add entity ID to archID mapping to pipe")
	}
	if err := m.addActiveEntityIDsToPipe(ctx, pipe); err != nil {
		return nil, eris.Wrap(err, "failed to add changes to active entity ids to pipe")
	}

	return pipe, nil
}

// addEntityIDToArchIDToPipe adds the information related to mapping an entity ID to its assigned archetype ID.
func (m *EntityCommandBuffer) addEntityIDToArchIDToPipe(ctx context.Context, pipe Transaction[string]) error {
	ids, err := m.entityIDToOriginArchID.Keys()
	if err != nil {
		return err
	}
	for _, id := range ids {
		originArchID, err := m.entityIDToOriginArchID.Get(id)
		if err != nil {
			return err
		}
		key := storageArchetypeIDForEntityID(id)
		archID, err := m.entityIDToArchID.Get(id)
		if err != nil {
			// this entity has been removed
			if err := pipe.Delete(ctx, key); err != nil {
				return err
			}
			continue
		}
		// This entity somehow ended up back at its original archetype. There's nothing to do.
		if archID == originArchID {
			continue
		}

		// Otherwise, the archetype actually needs to be updated
		if err := pipe.Set(ctx, key, int(archID)); err != nil {
			return err
		}
	}

	return nil
}

// addNextEntityIDToPipe adds any changes to the next available entity ID to the given transaction.
func (m *EntityCommandBuffer) addNextEntityIDToPipe(ctx context.Context, pipe Transaction[string]) error {
	// There are no pending entity id creations, so there's nothing to commit
	if m.pendingEntityIDs == 0 {
		return nil
	}
	key := storageNextEntityIDKey()
	nextID := m.nextEntityIDSaved + m.pendingEntityIDs
	return pipe.Set(ctx, key, nextID)
}

// addComponentChangesToPipe adds updated component values for entities to the given transaction.
func (m *EntityCommandBuffer) addComponentChangesToPipe(ctx context.Context, pipe Transaction[string]) error {
	deleteKeys, err := m.compValuesToDelete.Keys()
	if err != nil {
		return err
	}
	for _, key := range deleteKeys {
		isMarkedForDeletion, err := m.compValuesToDelete.Get(key)
		if err != nil {
			return err
		}
		if !isMarkedForDeletion {
			continue
		}
		storageKey := storageComponentKey(key.typeID, key.entityID)
		if err := pipe.Delete(ctx, storageKey); err != nil {
			return err
		}
	}

	keys, err := m.compValues.Keys()
	if err != nil {
		return err
	}
	for _, key := range keys {
		value, err := m.compValues.Get(key)
		if err != nil {
			return err
		}
		cType, err := m.typeToComponent.Get(key.typeID)
		if err != nil {
			return err
		}
		bz, err := cType.Encode(value)
		if err != nil {
			return err
		}

		storageKey := storageComponentKey(key.typeID, key.entityID)
		if err = pipe.Set(ctx, storageKey, bz); err != nil {
			return err
		}
	}
	return nil
}

// loadArchIDs loads the mapping of archetype IDs to sets of ComponentMetadata from storage.
func (m *EntityCommandBuffer) loadArchIDs() error {
	archIDToComps, ok, err := getArchIDToCompTypesFromStorage(m.dbStorage, m.typeToComponent)
	if err != nil {
		return err
	}
	if !ok {
		// Nothing is saved in the DB. Leave the m.archIDToComps field unchanged
		return nil
	}
	if m.archIDToComps.Len() > 0 {
		return eris.New("assigned archetype ID is about to be overwritten by something from storage")
	}
	m.archIDToComps = archIDToComps
	return nil
}

// addPendingArchIDsToPipe adds any newly created archetype IDs (as well as the associated sets of components) to the
// given transaction.
func (m *EntityCommandBuffer) addPendingArchIDsToPipe(ctx context.Context, pipe Transaction[string]) error {
	if len(m.pendingArchIDs) == 0 {
		return nil
	}

	bz, err := m.encodeArchIDToCompTypes()
	if err != nil {
		return err
	}

	return pipe.Set(ctx, storageArchIDsToCompTypesKey(), bz)
}

// addActiveEntityIDsToPipe adds information about which entities are assigned to which archetype IDs to the
// given transaction.
func (m *EntityCommandBuffer) addActiveEntityIDsToPipe(ctx context.Context, pipe Transaction[string]) error {
	archIDs, err := m.activeEntities.Keys()
	if err != nil {
		return err
	}
	for _, archID := range archIDs {
		active, err := m.activeEntities.Get(archID)
		if err != nil {
			return err
		}
		if !active.modified {
			continue
		}
		bz, err := codec.Encode(active.ids)
		if err != nil {
			return err
		}
		key := storageActiveEntityIDKey(archID)
		err = pipe.Set(ctx, key, bz)
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *EntityCommandBuffer) encodeArchIDToCompTypes() ([]byte, error) {
	forStorage := map[types.ArchetypeID][]types.ComponentID{}
	archIDs, err := m.archIDToComps.Keys()
	if err != nil {
		return nil, err
	}
	for _, archID := range archIDs {
		comps, err := m.archIDToComps.Get(archID)
		if err != nil {
			return nil, err
		}
		typeIDs := []types.ComponentID{}
		for _, comp := range comps {
			typeIDs = append(typeIDs, comp.ID())
		}
		forStorage[archID] = typeIDs
	}
	return codec.Encode(forStorage)
}

func getArchIDToCompTypesFromStorage(
	storage PrimitiveStorage[string],
	typeToComp VolatileStorage[types.ComponentID, types.ComponentMetadata],
) (VolatileStorage[types.ArchetypeID, []types.ComponentMetadata], bool, error) {
	ctx := context.Background()
	key := storageArchIDsToCompTypesKey()
	bz, err := storage.GetBytes(ctx, key)
	if err != nil {
		if isStorageNil(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	fromStorage, err := codec.Decode[map[types.ArchetypeID][]types.ComponentID](bz)
	if err != nil {
		return nil, false, err
	}

	// result is the mapping of Arch ID -> Component sets
	result := NewMapStorage[types.ArchetypeID, []types.ComponentMetadata]()
	for archID, compTypeIDs := range fromStorage {
		currComps := []types.ComponentMetadata{}
		for _, compTypeID := range compTypeIDs {
			currComp, err := typeToComp.Get(compTypeID)
			if err != nil {
				return nil, false, eris.Wrap(ErrComponentMismatchWithSavedState, "")
			}
			currComps = append(currComps, currComp)
		}

		if err = result.Set(archID, currComps); err != nil {
			return nil, false, err
		}
	}
	return result, true, nil
}
