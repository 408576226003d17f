package pipeline

// Action tells Process what to do with a pipe's Result.
type Action int

const (
	// ActionKeep leaves the current subject in place.
	ActionKeep Action = iota
	// ActionReplace swaps the current subject for Result.Value.
	ActionReplace
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case ActionKeep:
		return "keep"
	case ActionReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// Result is what a pipe hands back to the pipeline.
// The zero value is Keep.
type Result[T any] struct {
	Action Action
	Value  T
}

// Keep returns a Result that leaves the subject unchanged.
func Keep[T any]() Result[T] {
	return Result[T]{Action: ActionKeep}
}

// Replace returns a Result that replaces the subject with v.
func Replace[T any](v T) Result[T] {
	return Result[T]{Action: ActionReplace, Value: v}
}

// Replacement returns the replacement value and true if the result replaces
// the subject.
func (r Result[T]) Replacement() (T, bool) {
	if r.Action == ActionReplace {
		return r.Value, true
	}
	var zero T
	return zero, false
}
