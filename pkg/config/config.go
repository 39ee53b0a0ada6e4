package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	TransportHTTP   = "http"
	TransportPubSub = "pubsub"
	TransportRedis  = "redis"

	envConfigPath = "HANGOUTS_CONFIG"
)

// envKeys maps supported environment variables to config keys.
var envKeys = map[string]string{
	"HANGOUTS_TRANSPORT":        "transport",
	"IS_PUBSUB":                 "is_pubsub",
	"HOST":                      "http.host",
	"PORT":                      "http.port",
	"PUBSUB_PROJECT_ID":         "pubsub.project_id",
	"PUBSUB_SUBSCRIPTION_ID":    "pubsub.subscription_id",
	"PUBSUB_MAX_OUTSTANDING":    "pubsub.max_outstanding",
	"REDIS_ADDR":                "redis.addr",
	"REDIS_PASSWORD":            "redis.password",
	"REDIS_STREAM":              "redis.stream",
	"REDIS_GROUP":               "redis.group",
	"REDIS_CONSUMER":            "redis.consumer",
	"HANGOUTS_CHAT_CREDENTIALS": "chat.credentials_json",
	"HANGOUTS_CHAT_ENDPOINT":    "chat.endpoint",
	"HUBOT_NAME":                "bot.name",
	"HUBOT_ALIAS":               "bot.alias",
	"GATEWAY_HOST":              "gateway.host",
	"GATEWAY_PORT":              "gateway.port",
}

// Config is the adapter configuration.
type Config struct {
	Transport string        `yaml:"transport" koanf:"transport"`
	IsPubSub  bool          `yaml:"is_pubsub" koanf:"is_pubsub"`
	HTTP      HTTPConfig    `yaml:"http" koanf:"http"`
	PubSub    PubSubConfig  `yaml:"pubsub" koanf:"pubsub"`
	Redis     RedisConfig   `yaml:"redis" koanf:"redis"`
	Chat      ChatConfig    `yaml:"chat" koanf:"chat"`
	Bot       BotConfig     `yaml:"bot" koanf:"bot"`
	Gateway   GatewayConfig `yaml:"gateway" koanf:"gateway"`
	Logging   LoggingConfig `yaml:"logging" koanf:"logging"`
}

// HTTPConfig configures the webhook listener.
type HTTPConfig struct {
	Host string `yaml:"host" koanf:"host"`
	Port int    `yaml:"port" koanf:"port"`
}

// PubSubConfig identifies the Cloud Pub/Sub subscription carrying Chat events.
type PubSubConfig struct {
	ProjectID      string `yaml:"project_id" koanf:"project_id"`
	SubscriptionID string `yaml:"subscription_id" koanf:"subscription_id"`
	MaxOutstanding int    `yaml:"max_outstanding" koanf:"max_outstanding"`
}

// RedisConfig identifies a Redis stream relaying Chat events.
type RedisConfig struct {
	Addr     string `yaml:"addr" koanf:"addr"`
	Password string `yaml:"password" koanf:"password"`
	DB       int    `yaml:"db" koanf:"db"`
	Stream   string `yaml:"stream" koanf:"stream"`
	Group    string `yaml:"group" koanf:"group"`
	Consumer string `yaml:"consumer" koanf:"consumer"`
}

// ChatConfig configures the Chat REST client.
type ChatConfig struct {
	// CredentialsJSON is an inline service-account key. Empty uses application default credentials.
	CredentialsJSON string `yaml:"credentials_json" koanf:"credentials_json"`
	Endpoint        string `yaml:"endpoint" koanf:"endpoint"`
}

// BotConfig names the robot for respond-style listeners.
type BotConfig struct {
	Name  string `yaml:"name" koanf:"name"`
	Alias string `yaml:"alias" koanf:"alias"`
}

// GatewayConfig configures the health/readiness server.
type GatewayConfig struct {
	Host string `yaml:"host" koanf:"host"`
	Port int    `yaml:"port" koanf:"port"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `yaml:"format" koanf:"format"`
	Level     string `yaml:"level" koanf:"level"`
	AddSource bool   `yaml:"add_source" koanf:"add_source"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	consumer, err := os.Hostname()
	if err != nil || consumer == "" {
		consumer = "hubot"
	}

	return &Config{
		HTTP: HTTPConfig{Host: "0.0.0.0", Port: 8080},
		PubSub: PubSubConfig{
			MaxOutstanding: 1,
		},
		Redis: RedisConfig{
			Addr:     "127.0.0.1:6379",
			Stream:   "hangouts-chat-events",
			Group:    "hubot",
			Consumer: consumer,
		},
		Bot:     BotConfig{Name: "hubot"},
		Gateway: GatewayConfig{Host: "0.0.0.0", Port: 18790},
		Logging: LoggingConfig{Format: "text", Level: "info"},
	}
}

// LoadConfig layers defaults, an optional YAML file, and environment variables.
//
// path may be empty; the file is then looked up via HANGOUTS_CONFIG and the
// working directory, and its absence is not an error.
func LoadConfig(path string) (*Config, error) {
	configPath, err := findConfigPath(path)
	if err != nil {
		return nil, err
	}

	k := koanf.New(".")
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := DefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.normalize()
	return cfg, nil
}

// envValue keeps only the variables listed in envKeys.
func envValue(key string, value string) (string, any) {
	target, ok := envKeys[key]
	if !ok {
		return "", nil
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}

	if target == "is_pubsub" {
		return target, parseFlag(value)
	}

	return target, value
}

// parseFlag treats any non-empty value other than an explicit "off" word as set.
func parseFlag(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "0", "false", "no", "off":
		return false
	default:
		return true
	}
}

func (c *Config) normalize() {
	c.Transport = strings.ToLower(strings.TrimSpace(c.Transport))
	if c.Transport == "" {
		c.Transport = TransportHTTP
		if c.IsPubSub {
			c.Transport = TransportPubSub
		}
	}
	if c.PubSub.MaxOutstanding <= 0 {
		c.PubSub.MaxOutstanding = 1
	}
}

// Validate checks that the selected transport has what it needs.
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportHTTP:
		if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
			return fmt.Errorf("http.port %d is out of range", c.HTTP.Port)
		}
	case TransportPubSub:
		if strings.TrimSpace(c.PubSub.ProjectID) == "" {
			return fmt.Errorf("pubsub.project_id is required")
		}
		if strings.TrimSpace(c.PubSub.SubscriptionID) == "" {
			return fmt.Errorf("pubsub.subscription_id is required")
		}
	case TransportRedis:
		if strings.TrimSpace(c.Redis.Addr) == "" {
			return fmt.Errorf("redis.addr is required")
		}
		if strings.TrimSpace(c.Redis.Stream) == "" {
			return fmt.Errorf("redis.stream is required")
		}
		if strings.TrimSpace(c.Redis.Group) == "" {
			return fmt.Errorf("redis.group is required")
		}
	default:
		return fmt.Errorf("invalid transport %q: must be one of http, pubsub, redis", c.Transport)
	}

	if strings.TrimSpace(c.Bot.Name) == "" {
		return fmt.Errorf("bot.name is required")
	}

	return nil
}

// findConfigPath resolves the optional config file location.
//
// Precedence is the explicit path, then HANGOUTS_CONFIG, then cwd-local fallbacks.
func findConfigPath(explicit string) (string, error) {
	for _, candidate := range []string{strings.TrimSpace(explicit), strings.TrimSpace(os.Getenv(envConfigPath))} {
		if candidate == "" {
			continue
		}
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		return "", fmt.Errorf("config path does not point to a file: %s", candidate)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	for _, candidate := range []string{
		filepath.Join(cwd, "hangouts-chat.yaml"),
		filepath.Join(cwd, "config", "hangouts-chat.yaml"),
	} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", nil
}
