package types

// CommandID represents a command kind's ID. IDs are assigned to command kinds
// when they are registered with a command manager.
type CommandID int
