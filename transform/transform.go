package transform

// Vec3 is a 3-component vector.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Quat is a rotation quaternion.
type Quat struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// Value is an immutable rigid/scaled 3D transform. It is passed by value;
// holders never share mutable state through it.
type Value struct {
	Translation Vec3 `json:"translation"`
	Rotation    Quat `json:"rotation"`
	Scale       Vec3 `json:"scale"`
	// Ticked marks a value produced by the simulation loop rather than
	// authored statically.
	Ticked bool `json:"ticked"`
}

// Identity returns the identity transform: zero translation, unit rotation,
// unit scale.
func Identity() Value {
	return Value{
		Rotation: Quat{W: 1},
		Scale:    Vec3{X: 1, Y: 1, Z: 1},
	}
}
