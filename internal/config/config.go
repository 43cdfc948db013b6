// Package config loads the immutable process configuration from the
// environment. Everything is read once at startup and passed explicitly
// into the router and adapters.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates every section of the service configuration.
type Config struct {
	Server    ServerConfig
	Dialog    DialogConfig
	Store     StoreConfig
	GigaChat  GigaChatConfig
	DeepSeek  DeepSeekConfig
	Ark       ArkConfig
	RateLimit RateLimitConfig
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

// DialogConfig describes routing defaults and window policy.
type DialogConfig struct {
	DefaultModel   string
	DefaultPersona string
	WindowSize     int
	CacheTTL       time.Duration
	PersonaFile    string
}

// StoreConfig describes the context store.
type StoreConfig struct {
	Path string
	// Retention caps stored exchanges per user; 0 keeps everything.
	Retention int
}

// GigaChatConfig carries the GigaChat credentials.
type GigaChatConfig struct {
	AuthKey     string
	Scope       string
	Model       string
	InsecureTLS bool
}

// Enabled reports whether the adapter can be constructed.
func (c GigaChatConfig) Enabled() bool { return c.AuthKey != "" }

// DeepSeekConfig carries the DeepSeek credentials.
type DeepSeekConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Enabled reports whether the adapter can be constructed.
func (c DeepSeekConfig) Enabled() bool { return c.APIKey != "" }

// ArkConfig carries the Ark credentials.
type ArkConfig struct {
	APIKey  string
	BaseURL string
	Region  string
	Model   string
}

// Enabled reports whether the adapter can be constructed.
func (c ArkConfig) Enabled() bool { return c.APIKey != "" && c.Model != "" }

// RateLimitConfig describes transport-level request limits.
type RateLimitConfig struct {
	GlobalPerSecond int
	UserPerMinute   int
}

// Load reads the full configuration from the environment.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	dialog, err := loadDialogConfig()
	if err != nil {
		return nil, err
	}

	storeCfg, err := loadStoreConfig()
	if err != nil {
		return nil, err
	}

	gigachat, err := loadGigaChatConfig()
	if err != nil {
		return nil, err
	}

	rateLimit, err := loadRateLimitConfig()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server:   server,
		Dialog:   dialog,
		Store:    storeCfg,
		GigaChat: gigachat,
		DeepSeek: DeepSeekConfig{
			APIKey:  strings.TrimSpace(os.Getenv("DEEPSEEK_API_KEY")),
			BaseURL: getEnvOrDefault("DEEPSEEK_BASE_URL", "https://api.deepseek.com"),
			Model:   getEnvOrDefault("DEEPSEEK_MODEL", "deepseek-chat"),
		},
		Ark: ArkConfig{
			APIKey:  strings.TrimSpace(os.Getenv("ARK_API_KEY")),
			BaseURL: getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
			Region:  getEnvOrDefault("ARK_REGION", "cn-beijing"),
			Model:   strings.TrimSpace(os.Getenv("ARK_MODEL")),
		},
		RateLimit: rateLimit,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate collects every configuration problem instead of stopping at the
// first one.
func (c *Config) Validate() error {
	var problems []string

	if !c.GigaChat.Enabled() && !c.DeepSeek.Enabled() && !c.Ark.Enabled() {
		problems = append(problems, "no backend configured: set GIGACHAT_AUTH_KEY, DEEPSEEK_API_KEY, or ARK_API_KEY+ARK_MODEL")
	}

	switch c.Dialog.DefaultModel {
	case "gigachat":
		if !c.GigaChat.Enabled() {
			problems = append(problems, "DEFAULT_MODEL=gigachat but GIGACHAT_AUTH_KEY is not set")
		}
	case "deepseek":
		if !c.DeepSeek.Enabled() {
			problems = append(problems, "DEFAULT_MODEL=deepseek but DEEPSEEK_API_KEY is not set")
		}
	case "ark":
		if !c.Ark.Enabled() {
			problems = append(problems, "DEFAULT_MODEL=ark but ARK_API_KEY/ARK_MODEL are not set")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown DEFAULT_MODEL %q (expected gigachat, deepseek, or ark)", c.Dialog.DefaultModel))
	}

	if c.Store.Path == "" {
		problems = append(problems, "STORE_PATH must not be empty")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" verbatim.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

func loadDialogConfig() (DialogConfig, error) {
	window := 10
	if override, err := parseOptionalIntEnv("HISTORY_WINDOW"); err != nil {
		return DialogConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return DialogConfig{}, fmt.Errorf("HISTORY_WINDOW must be at least 1, got %d", *override)
		}
		window = *override
	}

	cacheTTL := 30 * time.Minute
	if override, err := parseOptionalIntEnv("SESSION_CACHE_TTL_MINUTES"); err != nil {
		return DialogConfig{}, err
	} else if override != nil && *override > 0 {
		cacheTTL = time.Duration(*override) * time.Minute
	}

	return DialogConfig{
		DefaultModel:   getEnvOrDefault("DEFAULT_MODEL", "gigachat"),
		DefaultPersona: getEnvOrDefault("DEFAULT_PERSONA", "neutral"),
		WindowSize:     window,
		CacheTTL:       cacheTTL,
		PersonaFile:    strings.TrimSpace(os.Getenv("PERSONA_FILE")),
	}, nil
}

func loadStoreConfig() (StoreConfig, error) {
	retention := 0
	if override, err := parseOptionalIntEnv("STORE_RETENTION"); err != nil {
		return StoreConfig{}, err
	} else if override != nil {
		if *override < 0 {
			return StoreConfig{}, fmt.Errorf("STORE_RETENTION must not be negative, got %d", *override)
		}
		retention = *override
	}

	return StoreConfig{
		Path:      getEnvOrDefault("STORE_PATH", "neyra.db"),
		Retention: retention,
	}, nil
}

func loadGigaChatConfig() (GigaChatConfig, error) {
	insecure, err := parseBoolEnv("GIGACHAT_IGNORE_SSL", false)
	if err != nil {
		return GigaChatConfig{}, err
	}

	return GigaChatConfig{
		AuthKey:     strings.TrimSpace(os.Getenv("GIGACHAT_AUTH_KEY")),
		Scope:       getEnvOrDefault("GIGACHAT_SCOPE", "GIGACHAT_API_PERS"),
		Model:       getEnvOrDefault("GIGACHAT_MODEL", "GigaChat:latest"),
		InsecureTLS: insecure,
	}, nil
}

func loadRateLimitConfig() (RateLimitConfig, error) {
	global := 10
	if override, err := parseOptionalIntEnv("MAX_REQUESTS_PER_SECOND"); err != nil {
		return RateLimitConfig{}, err
	} else if override != nil {
		global = *override
	}

	perUser := 60
	if override, err := parseOptionalIntEnv("MAX_REQUESTS_PER_USER"); err != nil {
		return RateLimitConfig{}, err
	} else if override != nil {
		perUser = *override
	}

	return RateLimitConfig{GlobalPerSecond: global, UserPerMinute: perUser}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
