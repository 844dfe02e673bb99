package evaluator

// DefaultMaxCallDepth bounds nested calls when no limit is configured.
const DefaultMaxCallDepth = 10000

// Limits holds the resource limits for an interpreter.
// A zero field means unlimited.
type Limits struct {
	MaxCallDepth  int
	MaxIterations int64
}

// DefaultLimits returns the limits used when nothing is configured.
func DefaultLimits() Limits {
	return Limits{MaxCallDepth: DefaultMaxCallDepth}
}

// tracker counts consumption against Limits during one run.
type tracker struct {
	depth      int
	iterations int64
}
