package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/config"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/logger"
)

func TestEnabledAdapterPerTransport(t *testing.T) {
	t.Parallel()

	tests := []struct {
		transport string
		name      string
	}{
		{transport: config.TransportHTTP, name: "http"},
		{transport: config.TransportPubSub, name: "pubsub"},
		{transport: config.TransportRedis, name: "redis"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.transport, func(t *testing.T) {
			t.Parallel()

			cfg := config.DefaultConfig()
			cfg.Transport = tt.transport
			cfg.PubSub.ProjectID = "project"
			cfg.PubSub.SubscriptionID = "subscription"

			adapter, err := enabledAdapter(cfg, logger.Discard())
			require.NoError(t, err)
			require.Equal(t, tt.name, adapter.Name())
		})
	}
}

func TestEnabledAdapterRejectsUnknownTransport(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Transport = "carrier-pigeon"

	_, err := enabledAdapter(cfg, logger.Discard())
	require.ErrorContains(t, err, "unknown transport")
}

func TestEnabledAdapterSurfacesTransportConfigErrors(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Transport = config.TransportPubSub

	_, err := enabledAdapter(cfg, logger.Discard())
	require.Error(t, err)
}

func TestRequiresREST(t *testing.T) {
	t.Parallel()

	require.False(t, requiresREST(config.TransportHTTP))
	require.True(t, requiresREST(config.TransportPubSub))
	require.True(t, requiresREST(config.TransportRedis))
}
