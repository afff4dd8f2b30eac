package app

import (
	"io"
	"lrcplay/internal/config"
	"lrcplay/pkg/lrclib"
	musiccache "lrcplay/pkg/musicCache"
	"lrcplay/pkg/redis"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

type cacheBackend interface {
	lrclib.Cache
	io.Closer
}

var (
	_ cacheBackend = (*musiccache.Store)(nil)
	_ cacheBackend = (*redis.Client)(nil)
)

// openCache opens the configured search cache. A cache that fails to open
// is logged and the client runs without one.
func openCache(cfg *config.Config) (lrclib.Cache, io.Closer) {
	logger := log.With().Str("component", "cache").Str("backend", cfg.Cache.Backend).Logger()

	var (
		backend cacheBackend
		err     error
	)
	switch cfg.Cache.Backend {
	case "bolt":
		backend, err = openBolt(filepath.Join(cfg.App.CacheDir, "search.db"))
	case "redis":
		backend, err = openRedis(cfg.Redis)
	default:
		logger.Debug().Msg("Search cache disabled")
		return nil, nil
	}
	if err != nil {
		logger.Warn().Err(err).Msg("Search cache unavailable, continuing without it")
		return nil, nil
	}
	logger.Debug().Dur("ttl", cfg.Cache.TTL).Msg("Search cache ready")
	return backend, backend
}

// Return a nil interface on failure, not one holding a nil pointer.
func openBolt(path string) (cacheBackend, error) {
	store, err := musiccache.Open(path)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func openRedis(cfg config.RedisConfig) (cacheBackend, error) {
	client, err := redis.NewClient(cfg.Addr, cfg.Password, cfg.DB)
	if err != nil {
		return nil, err
	}
	return client, nil
}
