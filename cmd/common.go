package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/jfmyers9/playlistlog/internal/config"
	"github.com/jfmyers9/playlistlog/internal/session"
	"github.com/jfmyers9/playlistlog/internal/store"
	"github.com/jfmyers9/playlistlog/internal/store/bolt"
	"github.com/rs/zerolog"
	"go.etcd.io/bbolt"
)

// openStore opens the record database, creating the data directory first
func openStore(cfg *config.Config) (*store.Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	st, err := store.Open(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return st, nil
}

// openSessions builds the session store on the configured option backend.
// The returned close function releases the backend if it is not st itself.
func openSessions(cfg *config.Config, st *store.Store, logger zerolog.Logger) (*session.Store, func() error, error) {
	switch cfg.Sessions.Backend {
	case "", "sqlite":
		return session.NewStore(st, cfg.Sessions.Validity, logger), func() error { return nil }, nil
	case "bolt":
		opts, err := bolt.Open(cfg.SessionsDBPath(), &bbolt.Options{Timeout: time.Second})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open session database: %w", err)
		}
		return session.NewStore(opts, cfg.Sessions.Validity, logger), opts.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown sessions backend %q (want sqlite or bolt)", cfg.Sessions.Backend)
	}
}

// setupLogger creates a logger with the specified configuration
func setupLogger(logFile, logLevel string) zerolog.Logger {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil || logLevel == "" {
		level = zerolog.InfoLevel
	}

	var output *os.File
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			output = os.Stderr
		} else {
			output = f
		}
	} else {
		output = os.Stderr
	}

	logger := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	// Use pretty console output if logging to stderr
	if output == os.Stderr {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	return logger
}

// cliLogger is the quiet logger used by one-shot commands
func cliLogger(cfg *config.Config) zerolog.Logger {
	level := cfg.LogLevel
	if level == "" || level == "info" {
		level = "warn"
	}
	return setupLogger(cfg.LogFile, level)
}
