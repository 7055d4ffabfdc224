package shellplugin

import (
	"context"
	"os"

	"github.com/rs/zerolog"
)

// zerolog.Ctx returns this logger if the context doesn't carry one
var missingLogger = zerolog.Ctx(context.Background())

// log returns the logger attached to ctx. Unlike the build system we don't panic if it's missing
// since the plugin is usually embedded by third parties; a console logger on stderr is used instead.
func log(ctx context.Context) *zerolog.Logger {
	logger := zerolog.Ctx(ctx)
	if logger != missingLogger {
		return logger
	}

	return consoleLogger()
}

func consoleLogger() *zerolog.Logger {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(zerolog.InfoLevel).
		With().
		Timestamp().
		Logger()
	return &logger
}
