package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/config"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/event"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/logger"
)

var (
	eventFile string
	eventSync bool
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Dispatch one Chat event from a file",
	Long: `Reads one Chat event (raw or base64 JSON, "-" for stdin), dispatches it to the
robot and prints every payload the robot produced. Nothing is sent to Google Chat.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = args

		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		data, err := readEventFile(eventFile, cmd.InOrStdin())
		if err != nil {
			return err
		}

		return dispatchEvent(cmd.Context(), cfg, data, cmd.OutOrStdout(), eventSync)
	},
}

func init() {
	rootCmd.AddCommand(eventCmd)
	eventCmd.Flags().StringVarP(&eventFile, "file", "f", "-", "event file, - reads stdin")
	eventCmd.Flags().BoolVar(&eventSync, "sync", false, "treat the event as a webhook request with an inline response")
}

func readEventFile(path string, stdin io.Reader) ([]byte, error) {
	path = strings.TrimSpace(path)
	if path == "" || path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read event file: %w", err)
	}
	return data, nil
}

func dispatchEvent(ctx context.Context, cfg *config.Config, data []byte, out io.Writer, inline bool) error {
	ev, err := event.Decode(data)
	if err != nil {
		return err
	}

	printer := &payloadPrinter{out: out}
	rt, err := newRuntime(cfg, printer, nil, logger.Discard())
	if err != nil {
		return err
	}

	var handle *printHandle
	if inline {
		handle = &printHandle{printer: printer}
		if ev.Space != nil {
			handle.space = ev.Space.Name
		}
	}
	if err := rt.pipeline.Handle(ctx, ev, handleOrNil(handle)); err != nil {
		return err
	}
	if handle != nil {
		handle.close()
	}
	rt.router.Wait()

	return nil
}
