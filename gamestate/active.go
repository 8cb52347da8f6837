package gamestate

import (
	"github.com/rotisserie/eris"

	"github.com/sprawl-engine/sprawl/types"
)

// activeEntities represents a group of entities that share an archetype.
type activeEntities struct {
	ids      []types.EntityID
	modified bool
}

// swapRemove removes the given entity EntityID from this list of active entities. This is used when moving
// an entity from one archetype to another, and when deleting an entity altogether.
func (a *activeEntities) swapRemove(idToRemove types.EntityID) error {
	indexOfID := -1
	for i, id := range a.ids {
		if idToRemove == id {
			indexOfID = i
			break
		}
	}
	if indexOfID == -1 {
		return eris.Errorf("cannot find entity id %d", idToRemove)
	}
	lastIndex := len(a.ids) - 1
	if indexOfID < lastIndex {
		a.ids[indexOfID] = a.ids[lastIndex]
	}
	a.ids = a.ids[:len(a.ids)-1]
	return nil
}
