package app

import (
	"lrcplay/internal/config"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// setupLogger configures the global zerolog logger. The screen belongs to
// the terminal views, so logs go to a file, or to stderr when it cannot be
// opened. The caller closes the returned file.
func setupLogger(cfg *config.Config, debug bool) *os.File {
	zerolog.TimeFieldFormat = time.RFC3339
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	path := cfg.LogPath()
	file, err := openLogFile(path)
	if err != nil {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		log.Warn().Err(err).Str("path", path).Msg("Cannot open log file, logging to stderr")
		file = nil
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: file, NoColor: true, TimeFormat: time.RFC3339})
	}

	log.Logger = log.With().Str("session", uuid.NewString()).Logger()
	log.Debug().Str("cache_dir", cfg.App.CacheDir).Msg("Logger ready")
	return file
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}
