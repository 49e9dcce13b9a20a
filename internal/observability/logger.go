package observability

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger builds the process logger tagged with the service name and
// installs it as the zerolog global.
func InitLogger(service string) zerolog.Logger {
	logger := newLogger(service, os.Stdout)
	log.Logger = logger
	return logger
}

func newLogger(service string, out io.Writer) zerolog.Logger {
	writer := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(writer).With().Timestamp().Str("service", service).Logger()
}
