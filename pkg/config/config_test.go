package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for key := range envKeys {
		t.Setenv(key, "")
	}
	t.Setenv(envConfigPath, "")
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, TransportHTTP, cfg.Transport)
	require.Equal(t, 8080, cfg.HTTP.Port)
	require.Equal(t, "0.0.0.0", cfg.HTTP.Host)
	require.Equal(t, "hubot", cfg.Bot.Name)
	require.Equal(t, 1, cfg.PubSub.MaxOutstanding)
	require.Equal(t, "text", cfg.Logging.Format)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFromFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "hangouts-chat.yaml")
	content := `
transport: redis
redis:
  addr: redis:6379
  stream: chat
  group: bots
bot:
  name: marvin
  alias: "!"
gateway:
  port: 19000
logging:
  format: json
  level: debug
  add_source: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, TransportRedis, cfg.Transport)
	require.Equal(t, "redis:6379", cfg.Redis.Addr)
	require.Equal(t, "chat", cfg.Redis.Stream)
	require.Equal(t, "bots", cfg.Redis.Group)
	require.NotEmpty(t, cfg.Redis.Consumer)
	require.Equal(t, "marvin", cfg.Bot.Name)
	require.Equal(t, "!", cfg.Bot.Alias)
	require.Equal(t, 19000, cfg.Gateway.Port)
	require.Equal(t, "json", cfg.Logging.Format)
	require.True(t, cfg.Logging.AddSource)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http:\n  port: 9000\n"), 0o600))

	t.Setenv(envConfigPath, path)
	t.Setenv("PORT", "9100")
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("HUBOT_NAME", "robo")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, 9100, cfg.HTTP.Port)
	require.Equal(t, "127.0.0.1", cfg.HTTP.Host)
	require.Equal(t, "robo", cfg.Bot.Name)
}

func TestIsPubSubSelectsTransport(t *testing.T) {
	clearEnv(t)
	t.Setenv("IS_PUBSUB", "true")
	t.Setenv("PUBSUB_PROJECT_ID", "proj")
	t.Setenv("PUBSUB_SUBSCRIPTION_ID", "sub")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, TransportPubSub, cfg.Transport)
	require.Equal(t, "proj", cfg.PubSub.ProjectID)
	require.Equal(t, "sub", cfg.PubSub.SubscriptionID)
	require.NoError(t, cfg.Validate())
}

func TestExplicitTransportWinsOverIsPubSub(t *testing.T) {
	clearEnv(t)
	t.Setenv("IS_PUBSUB", "1")
	t.Setenv("HANGOUTS_TRANSPORT", "HTTP")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, TransportHTTP, cfg.Transport)
}

func TestLoadConfigInvalidPath(t *testing.T) {
	clearEnv(t)

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	t.Setenv(envConfigPath, t.TempDir())
	_, err = LoadConfig("")
	require.Error(t, err)
}

func TestParseFlag(t *testing.T) {
	t.Parallel()

	for value, want := range map[string]bool{
		"true": true, "1": true, "yes": true, "anything": true,
		"false": false, "0": false, "off": false, "": false, " NO ": false,
	} {
		require.Equal(t, want, parseFlag(value), "value %q", value)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.HTTP.Port = 0 }, wantErr: "http.port"},
		{name: "unknown transport", mutate: func(c *Config) { c.Transport = "smtp" }, wantErr: "invalid transport"},
		{name: "pubsub without project", mutate: func(c *Config) {
			c.Transport = TransportPubSub
			c.PubSub.SubscriptionID = "sub"
		}, wantErr: "pubsub.project_id"},
		{name: "pubsub without subscription", mutate: func(c *Config) {
			c.Transport = TransportPubSub
			c.PubSub.ProjectID = "proj"
		}, wantErr: "pubsub.subscription_id"},
		{name: "redis without stream", mutate: func(c *Config) {
			c.Transport = TransportRedis
			c.Redis.Stream = " "
		}, wantErr: "redis.stream"},
		{name: "missing bot name", mutate: func(c *Config) { c.Bot.Name = "" }, wantErr: "bot.name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.normalize()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}
