package model

import "fmt"

// ConfigError reports a malformed model definition. Configuration errors
// are detected while the model is being built and abort construction; they
// never surface during a simulation run.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return "model: " + e.Msg
}

func configErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}
