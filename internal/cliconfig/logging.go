package cliconfig

import (
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/multiflow/pkg/log"
)

// Logger returns a console zerolog logger writing to w at the given level.
func Logger(w io.Writer, level string) (zerolog.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, err
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().Timestamp().Logger(), nil
}
