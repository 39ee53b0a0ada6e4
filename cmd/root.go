package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "hangouts-chat-bot",
	Short: "Google Chat adapter for a Hubot-style robot",
	Long: `Receives Google Chat events over an HTTP webhook, a Cloud Pub/Sub
subscription or a Redis stream, dispatches them to the robot's listeners, and
answers through the HTTP response or the Chat REST API.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (defaults to $HANGOUTS_CONFIG or ./hangouts-chat.yaml)")
}
