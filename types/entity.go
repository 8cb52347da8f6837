package types

// EntityID identifies a single entity in the store.
type EntityID uint64

// ArchetypeID identifies a unique set of component types. Every entity belongs
// to exactly one archetype at a time.
type ArchetypeID int
