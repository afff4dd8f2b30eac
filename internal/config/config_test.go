package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// isolate keeps the developer's own environment and .env out of the test.
func isolate(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg-cache")
	for _, name := range []string{
		"LRCPLAY_CACHE_DIR", "LRCPLAY_LOG_FILE", "LRCPLAY_SAVE_LRC", "LRCPLAY_BASE_URL",
		"LRCPLAY_CACHE_BACKEND", "LRCPLAY_CACHE_TTL", "LRCPLAY_AI_MODULE", "LRCPLAY_AI_API_KEY",
		"LRCPLAY_AI_BASE_URL", "LRCPLAY_REDIS_ADDR", "LRCPLAY_REDIS_PASSWORD",
		"LRCPLAY_PAGE_SIZE", "LRCPLAY_LINGER", "LRCPLAY_MPRIS_SERVICE",
		"CACHE_DIR", "LOG_FILE", "SAVE_LRC", "BASE_URL", "CACHE_BACKEND", "CACHE_TTL",
		"AI_MODULE", "AI_API_KEY", "AI_BASE_URL", "REDIS_ADDR", "REDIS_PASSWORD",
		"PAGE_SIZE", "LINGER", "MPRIS_SERVICE",
	} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	cfg := Load(filepath.Join(t.TempDir(), "missing.toml"))

	if cfg.App.CacheDir != "/tmp/xdg-cache/lrcplay" {
		t.Errorf("CacheDir = %q", cfg.App.CacheDir)
	}
	if cfg.App.PageSize != DefaultPageSize || cfg.App.Linger != DefaultLinger || cfg.App.MPRISService != "" {
		t.Errorf("App = %+v, want defaults", cfg.App)
	}
	if cfg.LRCLib.BaseURL != DefaultBaseURL || cfg.LRCLib.MaxRetries != DefaultMaxRetries {
		t.Errorf("LRCLib = %+v, want defaults", cfg.LRCLib)
	}
	if cfg.Cache.Backend != "bolt" || cfg.Cache.TTL != DefaultCacheTTL {
		t.Errorf("Cache = %+v, want defaults", cfg.Cache)
	}
	if cfg.App.SaveLRC {
		t.Error("SaveLRC should default to false")
	}
	if got := cfg.LogPath(); got != "/tmp/xdg-cache/lrcplay/lrcplay.log" {
		t.Errorf("LogPath = %q", got)
	}
}

func TestLoadToml(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
[app]
cache_dir = "/var/cache/lrc"
page_size = 8
linger = "soon"
save_lrc = true
mpris_service = "org.mpris.MediaPlayer2.mpd"

[lrclib]
base_url = "http://localhost:3000/api"
request_timeout = "3s"
max_retries = 0
rate_limit = -1.0

[cache]
backend = "redis"
ttl = "1h"

[ai]
module_name = "gpt-4o-mini"
api_key = "secret"

[redis]
addr = "redis:6379"
db = 2
`)
	cfg := Load(path)

	if cfg.App.CacheDir != "/var/cache/lrc" || cfg.App.PageSize != 8 || !cfg.App.SaveLRC {
		t.Errorf("App = %+v", cfg.App)
	}
	if cfg.App.Linger != DefaultLinger {
		t.Errorf("invalid linger should keep the default, got %v", cfg.App.Linger)
	}
	if cfg.App.MPRISService != "org.mpris.MediaPlayer2.mpd" {
		t.Errorf("MPRISService = %q", cfg.App.MPRISService)
	}
	if cfg.LRCLib.BaseURL != "http://localhost:3000/api" || cfg.LRCLib.RequestTimeout != 3*time.Second {
		t.Errorf("LRCLib = %+v", cfg.LRCLib)
	}
	if cfg.LRCLib.MaxRetries != 0 {
		t.Errorf("explicit max_retries = 0 was ignored: %d", cfg.LRCLib.MaxRetries)
	}
	if cfg.LRCLib.RateLimit != -1 {
		t.Errorf("RateLimit = %v, want -1 (disabled)", cfg.LRCLib.RateLimit)
	}
	if cfg.Cache.Backend != "redis" || cfg.Cache.TTL != time.Hour {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.AI.ModuleName != "gpt-4o-mini" || cfg.AI.APIKey != "secret" {
		t.Errorf("AI = %+v", cfg.AI)
	}
	if cfg.Redis.Addr != "redis:6379" || cfg.Redis.DB != 2 {
		t.Errorf("Redis = %+v", cfg.Redis)
	}
}

func TestLoadBrokenTomlFallsBack(t *testing.T) {
	isolate(t)
	cfg := Load(writeConfig(t, "[app\ncache_dir = "))
	if cfg.App.PageSize != DefaultPageSize {
		t.Errorf("broken config should leave defaults, got %+v", cfg.App)
	}
}

func TestLoadEnvironmentOverridesToml(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
[app]
cache_dir = "/from/toml"
[cache]
backend = "redis"
[ai]
api_key = "toml-key"
`)
	t.Setenv("LRCPLAY_CACHE_DIR", "/from/env")
	t.Setenv("LRCPLAY_CACHE_BACKEND", "none")
	t.Setenv("LRCPLAY_SAVE_LRC", "true")

	cfg := Load(path)
	if cfg.App.CacheDir != "/from/env" {
		t.Errorf("CacheDir = %q, want env value", cfg.App.CacheDir)
	}
	if cfg.Cache.Backend != "none" {
		t.Errorf("Backend = %q, want env value", cfg.Cache.Backend)
	}
	if !cfg.App.SaveLRC {
		t.Error("SaveLRC not taken from environment")
	}
	if cfg.AI.APIKey != "toml-key" {
		t.Errorf("APIKey = %q, want toml value to survive", cfg.AI.APIKey)
	}
}

func TestLoadTypedEnvironment(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "[app]\nsave_lrc = true\n[cache]\nttl = \"1h\"\n")
	t.Setenv("LRCPLAY_SAVE_LRC", "0")
	t.Setenv("LRCPLAY_CACHE_TTL", "90m")
	t.Setenv("LRCPLAY_LINGER", "500ms")
	t.Setenv("LRCPLAY_PAGE_SIZE", "9")

	cfg := Load(path)
	if cfg.App.SaveLRC {
		t.Error("LRCPLAY_SAVE_LRC=0 did not turn saving off")
	}
	if cfg.Cache.TTL != 90*time.Minute {
		t.Errorf("TTL = %v, want 90m", cfg.Cache.TTL)
	}
	if cfg.App.Linger != 500*time.Millisecond || cfg.App.PageSize != 9 {
		t.Errorf("App = %+v, want linger and page size from the environment", cfg.App)
	}
}

func TestLoadMalformedEnvironmentKeepsFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "[cache]\nttl = \"1h\"\n")
	t.Setenv("LRCPLAY_CACHE_TTL", "a while")

	cfg := Load(path)
	if cfg.Cache.TTL != time.Hour {
		t.Errorf("TTL = %v, want the file's value after a malformed override", cfg.Cache.TTL)
	}
}

func TestLoadNegativeDurationKeepsDefault(t *testing.T) {
	isolate(t)
	t.Setenv("LRCPLAY_LINGER", "-1s")

	cfg := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if cfg.App.Linger != DefaultLinger {
		t.Errorf("Linger = %v, want the default", cfg.App.Linger)
	}
}

func TestLoadDotEnv(t *testing.T) {
	isolate(t)
	if err := os.WriteFile(".env", []byte("LRCPLAY_AI_API_KEY=dotenv-key\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("LRCPLAY_AI_API_KEY") })

	cfg := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if cfg.AI.APIKey != "dotenv-key" {
		t.Errorf("APIKey = %q, want value from .env", cfg.AI.APIKey)
	}
}

func TestUnknownBackendKeepsDefault(t *testing.T) {
	isolate(t)
	cfg := Load(writeConfig(t, "[cache]\nbackend = \"memcached\"\n"))
	if cfg.Cache.Backend != DefaultCacheBackend {
		t.Errorf("Backend = %q, want default", cfg.Cache.Backend)
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/etc/xdg-test")
	if got := DefaultPath(); got != "/etc/xdg-test/lrcplay/config.toml" {
		t.Errorf("DefaultPath = %q", got)
	}
}
