package journal

import (
	"fmt"
	"os"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// Config holds the badger substrate configuration.
type Config struct {
	// Path is the directory for badger files. Required unless InMemory.
	Path string
	// InMemory disables disk persistence. Used in tests.
	InMemory bool
	// SyncWrites forces a sync per append. Required for durability.
	SyncWrites bool
	// Logger receives badger's internal logging. Disabled when nil.
	Logger *zerolog.Logger
}

// DefaultConfig returns the production substrate settings for path.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// InMemoryConfig returns a disk-free substrate for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

func openDB(cfg Config) (*badger.DB, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, fmt.Errorf("journal: path required for persistent substrate")
		}
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("journal: create data dir: %w", err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	if cfg.Logger != nil {
		opts = opts.WithLogger(badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("journal: open badger: %w", err)
	}
	return db, nil
}

// badgerLogger adapts zerolog to badger's Logger interface.
type badgerLogger struct {
	logger *zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msgf(format, args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn().Msgf(format, args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info().Msgf(format, args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}
