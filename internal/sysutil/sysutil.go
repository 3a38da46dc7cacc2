// Package sysutil holds process-level helpers shared by the command entry
// points: global log level and output configuration.
package sysutil

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetLogLevel sets the global zerolog level from a name such as "debug" or
// "warn" (case-insensitive; "warning" is accepted too). Empty or unknown
// names select info.
func SetLogLevel(name string) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "warning" {
		name = "warn"
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// ConfigureLogger points the global logger at w. With pretty set, output is
// human-oriented console text; otherwise one JSON object per line.
func ConfigureLogger(w io.Writer, pretty bool) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}
