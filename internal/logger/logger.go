// Package logger provides the configured zerolog logger shared by the
// server and the CLI tools.
package logger

import (
	"io"
	"os"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	zpkgerrors "github.com/rs/zerolog/pkgerrors"
)

type stackTracer interface{ StackTrace() pkgerrors.StackTrace }

// New returns a JSON logger on stdout tagged with the service name.
// Use .Stack() on error events to include a stack trace.
func New(serviceName string) zerolog.Logger {
	return NewWithWriter(serviceName, os.Stdout)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(serviceName string, w io.Writer) zerolog.Logger {
	zerolog.ErrorStackMarshaler = func(err error) interface{} {
		if _, ok := err.(stackTracer); !ok {
			err = pkgerrors.WithStack(err)
		}
		return zpkgerrors.MarshalStack(err)
	}
	return zerolog.New(w).With().
		Str("service", serviceName).
		Timestamp().
		Logger()
}

// SetLevel sets the global level from a name such as "debug" or "warn".
// An empty name keeps info; an unknown one is returned as an error.
func SetLevel(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		return nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(name))
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(lvl)
	return nil
}
