package transform

// StaticWorldTransform holds an entity's authored world transform. Entities
// that never move carry only this representation.
type StaticWorldTransform struct {
	Value Value `json:"value"`
}

func (StaticWorldTransform) Name() string {
	return "static_world_transform"
}

// TickedWorldTransform holds an entity's simulated world transform, updated by
// the tick loop. An entity may carry this alongside StaticWorldTransform.
type TickedWorldTransform struct {
	Value Value `json:"value"`
}

func (TickedWorldTransform) Name() string {
	return "ticked_world_transform"
}
