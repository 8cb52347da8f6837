package transform

import (
	"github.com/rotisserie/eris"

	"github.com/sprawl-engine/sprawl/command"
)

// SetWorldTransform is the payload of the set-world-transform command: one
// target transform value, written verbatim at playback.
type SetWorldTransform struct {
	Value Value `json:"value"`
}

// NewSetWorldTransformCommand creates the command kind that overwrites an
// entity's world transform during playback. The recorded value is written into
// whichever transform representations the entity currently carries; each
// representation is updated independently of the other, and an entity carrying
// neither is left untouched.
func NewSetWorldTransformCommand() *command.CommandType[SetWorldTransform] {
	return command.NewCommandType[SetWorldTransform]("set_world_transform", playbackSetWorldTransform)
}

func playbackSetWorldTransform(pCtx *command.PlaybackContext) error {
	staticComp, err := pCtx.GetComponentByName(StaticWorldTransform{}.Name())
	if err != nil {
		return eris.Wrap(err, "static world transform component is not registered")
	}
	tickedComp, err := pCtx.GetComponentByName(TickedWorldTransform{}.Name())
	if err != nil {
		return eris.Wrap(err, "ticked world transform component is not registered")
	}

	store := pCtx.Store()
	for i, entityID := range pCtx.Entities() {
		payload, err := command.ReadCommandAs[SetWorldTransform](pCtx, i)
		if err != nil {
			return err
		}

		hasStatic, err := store.HasComponentForEntity(staticComp, entityID)
		if err != nil {
			return err
		}
		if hasStatic {
			err = store.SetComponentForEntity(staticComp, entityID, StaticWorldTransform{Value: payload.Value})
			if err != nil {
				return eris.Wrapf(err, "failed to set static world transform on entity %d", entityID)
			}
		}

		// The ticked representation is updated on its own presence check. An
		// entity carrying both gets both writes.
		hasTicked, err := store.HasComponentForEntity(tickedComp, entityID)
		if err != nil {
			return err
		}
		if hasTicked {
			err = store.SetComponentForEntity(tickedComp, entityID, TickedWorldTransform{Value: payload.Value})
			if err != nil {
				return eris.Wrapf(err, "failed to set ticked world transform on entity %d", entityID)
			}
		}

		if !hasStatic && !hasTicked {
			pCtx.Logger().Debug().
				Int("entity_id", int(entityID)).
				Msg("entity carries no world transform representation, skipping")
		}
	}
	return nil
}
