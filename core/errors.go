package core

import "fmt"

// ConfigError reports a mistake in how the simulation state was assembled:
// mismatched compartment/element ownership, geometry added after setup,
// references to undefined definitions. Construction aborts on the first
// one; no simulation step ever runs against a misconfigured state.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return "core: " + e.Msg
}

func configErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// InvariantError reports a broken runtime invariant: a molecule count
// driven negative, a negative propensity, or an incomplete dependency
// graph. These are fatal at the point of detection — continuing would
// silently corrupt the stochastic process.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string {
	return "core: invariant violated: " + e.Msg
}

func invariantErrorf(format string, args ...any) *InvariantError {
	return &InvariantError{Msg: fmt.Sprintf(format, args...)}
}
