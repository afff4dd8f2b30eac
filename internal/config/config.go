package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

const (
	DefaultPageSize       = 5
	DefaultLinger         = 2 * time.Second
	DefaultBaseURL        = "https://lrclib.net/api"
	DefaultUserAgent      = "lrcplay/1.0 (https://lrclib.net)"
	DefaultRequestTimeout = 10 * time.Second
	DefaultMaxRetries     = 2
	DefaultRateLimit      = 2.0
	DefaultRateBurst      = 2
	DefaultCacheBackend   = "bolt"
	DefaultCacheTTL       = 24 * time.Hour

	envPrefix = "lrcplay"
)

func getDefaultCacheDir() string {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, "lrcplay")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "lrcplay_cache"
	}

	return filepath.Join(homeDir, ".cache", "lrcplay")
}

// TomlConfig mirrors config.toml. Unset keys keep their defaults.
type TomlConfig struct {
	App struct {
		CacheDir     string `toml:"cache_dir"`
		PageSize     int    `toml:"page_size"`
		Linger       string `toml:"linger"`
		SaveLRC      *bool  `toml:"save_lrc"`
		LogFile      string `toml:"log_file"`
		MPRISService string `toml:"mpris_service"`
	} `toml:"app"`

	LRCLib struct {
		BaseURL        string  `toml:"base_url"`
		UserAgent      string  `toml:"user_agent"`
		RequestTimeout string  `toml:"request_timeout"`
		MaxRetries     *int    `toml:"max_retries"`
		RateLimit      float64 `toml:"rate_limit"`
		RateBurst      int     `toml:"rate_burst"`
	} `toml:"lrclib"`

	Cache struct {
		Backend string `toml:"backend"`
		TTL     string `toml:"ttl"`
	} `toml:"cache"`

	AI struct {
		ModuleName string `toml:"module_name"`
		APIKey     string `toml:"api_key"`
		BaseURL    string `toml:"base_url"` // for OpenAI
	} `toml:"ai"`

	Redis struct {
		Addr     string `toml:"addr"`
		Password string `toml:"password"`
		DB       int    `toml:"db"`
	} `toml:"redis"`
}

// envOverrides are the LRCPLAY_<NAME> variables. Pointers stay nil when a
// variable is unset. The backend stays a string so an unknown name can fall
// back to the default on its own.
type envOverrides struct {
	CacheDir     string         `envconfig:"CACHE_DIR"`
	LogFile      string         `envconfig:"LOG_FILE"`
	SaveLRC      *bool          `envconfig:"SAVE_LRC"`
	PageSize     *int           `envconfig:"PAGE_SIZE"`
	Linger       *time.Duration `envconfig:"LINGER"`
	MPRISService string         `envconfig:"MPRIS_SERVICE"`
	BaseURL      string         `envconfig:"BASE_URL"`
	CacheBackend string         `envconfig:"CACHE_BACKEND"`
	CacheTTL     *time.Duration `envconfig:"CACHE_TTL"`
	AIModule     string         `envconfig:"AI_MODULE"`
	AIKey        string         `envconfig:"AI_API_KEY"`
	AIBaseURL    string         `envconfig:"AI_BASE_URL"`
	RedisAddr    string         `envconfig:"REDIS_ADDR"`
	RedisPass    string         `envconfig:"REDIS_PASSWORD"`
}

type AppConfig struct {
	CacheDir     string
	PageSize     int
	Linger       time.Duration
	SaveLRC      bool
	LogFile      string
	MPRISService string
}

// LRCLibConfig configures the lrclib search client.
type LRCLibConfig struct {
	BaseURL        string
	UserAgent      string
	RequestTimeout time.Duration
	MaxRetries     int
	RateLimit      float64
	RateBurst      int
}

// CacheConfig selects the search cache. Backend is bolt, redis or none.
type CacheConfig struct {
	Backend string
	TTL     time.Duration
}

type AIConfig struct {
	ModuleName string
	APIKey     string
	BaseURL    string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type Config struct {
	App    AppConfig
	LRCLib LRCLibConfig
	Cache  CacheConfig
	AI     AIConfig
	Redis  RedisConfig
}

func Default() *Config {
	return &Config{
		App: AppConfig{
			CacheDir: getDefaultCacheDir(),
			PageSize: DefaultPageSize,
			Linger:   DefaultLinger,
		},
		LRCLib: LRCLibConfig{
			BaseURL:        DefaultBaseURL,
			UserAgent:      DefaultUserAgent,
			RequestTimeout: DefaultRequestTimeout,
			MaxRetries:     DefaultMaxRetries,
			RateLimit:      DefaultRateLimit,
			RateBurst:      DefaultRateBurst,
		},
		Cache: CacheConfig{
			Backend: DefaultCacheBackend,
			TTL:     DefaultCacheTTL,
		},
		AI: AIConfig{
			ModuleName: "gemini",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
	}
}

// LogPath is the log file, inside the cache directory unless set.
func (c *Config) LogPath() string {
	if c.App.LogFile != "" {
		return c.App.LogFile
	}
	return filepath.Join(c.App.CacheDir, "lrcplay.log")
}

// DefaultPath is config.toml under XDG_CONFIG_HOME, or ~/.config.
func DefaultPath() string {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "lrcplay", "config.toml")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Warn().Err(err).Msg("Cannot get user home directory")
		return "config.toml"
	}

	return filepath.Join(homeDir, ".config", "lrcplay", "config.toml")
}

// loadTomlConfig reads path. A missing file is not an error.
func loadTomlConfig(configPath string) (*TomlConfig, error) {
	var config TomlConfig
	if _, err := toml.DecodeFile(configPath, &config); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Info().Str("path", configPath).Msg("Config file not found, using defaults")
			return &TomlConfig{}, nil
		}
		return nil, err
	}

	log.Info().Str("path", configPath).Msg("Loaded config")
	return &config, nil
}

// Load layers defaults, the TOML file, .env and the environment, in that
// order. An empty path means DefaultPath.
func Load(path string) *Config {
	if path == "" {
		path = DefaultPath()
	}

	tomlConfig, err := loadTomlConfig(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to load config file, using defaults")
		tomlConfig = &TomlConfig{}
	}

	config := Default()
	applyToml(config, tomlConfig)

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("Error loading .env file")
	}

	var env envOverrides
	if err := envconfig.Process(envPrefix, &env); err != nil {
		log.Warn().Err(err).Msg("Unable to read environment overrides")
	} else {
		applyEnv(config, &env)
	}

	if config.AI.APIKey == "" {
		log.Debug().Msg("No AI API key configured, free text searches go straight to lrclib")
	}

	return config
}

func applyToml(config *Config, tomlConfig *TomlConfig) {
	// App
	if tomlConfig.App.CacheDir != "" {
		config.App.CacheDir = tomlConfig.App.CacheDir
	}
	if tomlConfig.App.PageSize > 0 {
		config.App.PageSize = tomlConfig.App.PageSize
	}
	setDuration(&config.App.Linger, "app.linger", tomlConfig.App.Linger)
	if tomlConfig.App.SaveLRC != nil {
		config.App.SaveLRC = *tomlConfig.App.SaveLRC
	}
	if tomlConfig.App.LogFile != "" {
		config.App.LogFile = tomlConfig.App.LogFile
	}
	if tomlConfig.App.MPRISService != "" {
		config.App.MPRISService = tomlConfig.App.MPRISService
	}

	// LRCLib
	if tomlConfig.LRCLib.BaseURL != "" {
		config.LRCLib.BaseURL = tomlConfig.LRCLib.BaseURL
	}
	if tomlConfig.LRCLib.UserAgent != "" {
		config.LRCLib.UserAgent = tomlConfig.LRCLib.UserAgent
	}
	setDuration(&config.LRCLib.RequestTimeout, "lrclib.request_timeout", tomlConfig.LRCLib.RequestTimeout)
	if tomlConfig.LRCLib.MaxRetries != nil && *tomlConfig.LRCLib.MaxRetries >= 0 {
		config.LRCLib.MaxRetries = *tomlConfig.LRCLib.MaxRetries
	}
	if tomlConfig.LRCLib.RateLimit != 0 {
		config.LRCLib.RateLimit = tomlConfig.LRCLib.RateLimit
	}
	if tomlConfig.LRCLib.RateBurst > 0 {
		config.LRCLib.RateBurst = tomlConfig.LRCLib.RateBurst
	}

	// Cache
	setBackend(config, "cache.backend", tomlConfig.Cache.Backend)
	setDuration(&config.Cache.TTL, "cache.ttl", tomlConfig.Cache.TTL)

	// AI
	if tomlConfig.AI.ModuleName != "" {
		config.AI.ModuleName = tomlConfig.AI.ModuleName
	}
	if tomlConfig.AI.BaseURL != "" {
		config.AI.BaseURL = tomlConfig.AI.BaseURL
	}
	if tomlConfig.AI.APIKey != "" {
		config.AI.APIKey = tomlConfig.AI.APIKey
	}

	// Redis
	if tomlConfig.Redis.Addr != "" {
		config.Redis.Addr = tomlConfig.Redis.Addr
	}
	if tomlConfig.Redis.Password != "" {
		config.Redis.Password = tomlConfig.Redis.Password
	}
	if tomlConfig.Redis.DB != 0 {
		config.Redis.DB = tomlConfig.Redis.DB
	}
}

func applyEnv(config *Config, env *envOverrides) {
	if env.CacheDir != "" {
		config.App.CacheDir = env.CacheDir
	}
	if env.LogFile != "" {
		config.App.LogFile = env.LogFile
	}
	if env.SaveLRC != nil {
		config.App.SaveLRC = *env.SaveLRC
	}
	if env.PageSize != nil && *env.PageSize > 0 {
		config.App.PageSize = *env.PageSize
	}
	if env.Linger != nil && *env.Linger >= 0 {
		config.App.Linger = *env.Linger
	}
	if env.MPRISService != "" {
		config.App.MPRISService = env.MPRISService
	}
	if env.BaseURL != "" {
		config.LRCLib.BaseURL = env.BaseURL
	}
	setBackend(config, "LRCPLAY_CACHE_BACKEND", env.CacheBackend)
	if env.CacheTTL != nil && *env.CacheTTL >= 0 {
		config.Cache.TTL = *env.CacheTTL
	}
	if env.AIModule != "" {
		config.AI.ModuleName = env.AIModule
	}
	if env.AIKey != "" {
		config.AI.APIKey = env.AIKey
	}
	if env.AIBaseURL != "" {
		config.AI.BaseURL = env.AIBaseURL
	}
	if env.RedisAddr != "" {
		config.Redis.Addr = env.RedisAddr
	}
	if env.RedisPass != "" {
		config.Redis.Password = env.RedisPass
	}
}

// setDuration keeps the default on a malformed or negative value.
func setDuration(dst *time.Duration, name, value string) {
	if value == "" {
		return
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		log.Warn().Str("setting", name).Str("value", value).Msg("Invalid duration, using default")
		return
	}
	*dst = d
}

func setBackend(config *Config, name, value string) {
	switch value {
	case "":
	case "bolt", "redis", "none":
		config.Cache.Backend = value
	default:
		log.Warn().Str("setting", name).Str("value", value).Msg("Unknown cache backend, using default")
	}
}
