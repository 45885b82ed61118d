package config

import (
	"errors"
	"fmt"
	"log/slog"

	slogkit "github.com/italypaleale/eventchain/slog"
)

// ConfigError is a configuration error
type ConfigError struct {
	err error
	msg string
}

// NewConfigError returns a new ConfigError.
// The err argument can be a string or an error.
func NewConfigError(err any, msg string) *ConfigError {
	var inner error
	switch x := err.(type) {
	case error:
		inner = x
	case string:
		inner = errors.New(x)
	case fmt.Stringer:
		inner = errors.New(x.String())
	case nil:
		// Nop
	default:
		// Indicates a development-time error
		panic("Invalid type for parameter 'err'")
	}
	return &ConfigError{
		err: inner,
		msg: msg,
	}
}

// Error implements the error interface
func (e ConfigError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.err.Error() + ": " + e.msg
}

// Unwrap returns the wrapped error, if any
func (e ConfigError) Unwrap() error {
	return e.err
}

// LogFatal causes a fatal log
func (e ConfigError) LogFatal(log *slog.Logger) {
	slogkit.FatalError(log, e.msg, e.err)
}
