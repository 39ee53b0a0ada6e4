package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/config"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/event"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/logger"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/message"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/outbound"
)

const (
	shellSpace = "spaces/shell"
	shellUser  = "users/shell"
)

var (
	shellSync bool

	deliveryStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	spaceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	botStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("230"))
	bannerStyle   = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("28")).
			Padding(0, 1)
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Talk to the robot locally",
	Long: `Reads lines from stdin and dispatches each one as a Chat MESSAGE event in a
local space. Replies are printed instead of being sent to Google Chat.

Besides plain text, the shell understands:
  /add [text]                 the bot is added to the space
  /remove                     the bot is removed from the space
  /click <method> [k=v ...]   a card button was clicked`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = args

		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		return runShell(cmd.Context(), cfg, os.Stdin, cmd.OutOrStdout(), shellSync)
	},
}

func init() {
	rootCmd.AddCommand(shellCmd)
	shellCmd.Flags().BoolVar(&shellSync, "sync", true, "answer the first reply inline, the way the HTTP webhook does")
}

func runShell(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer, inline bool) error {
	printer := &payloadPrinter{out: out}
	rt, err := newRuntime(cfg, printer, nil, logger.Discard())
	if err != nil {
		return err
	}

	fmt.Fprintln(out, bannerStyle.Render("Chatting with "+cfg.Bot.Name+" in "+shellSpace))
	scanner := bufio.NewScanner(in)
	seq := 0

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("input error: %w", err)
			}
			fmt.Fprintln(out)
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if isExitCommand(line) {
			return nil
		}

		seq++
		ev, err := shellEvent(line, seq)
		if err != nil {
			fmt.Fprintf(out, "%v\n", err)
			continue
		}

		var handle *printHandle
		if inline {
			handle = &printHandle{printer: printer, space: shellSpace}
		}
		if err := rt.pipeline.Handle(ctx, ev, handleOrNil(handle)); err != nil {
			fmt.Fprintf(out, "dispatch failed: %v\n", err)
		}
		if handle != nil {
			handle.close()
		}
		rt.router.Wait()
	}
}

// shellEvent turns one input line into a Chat event.
func shellEvent(line string, seq int) (event.Event, error) {
	ev := event.Event{
		EventTime: time.Now().UTC(),
		Space:     &event.Space{Name: shellSpace, Type: "ROOM", DisplayName: "Shell"},
		User:      &event.User{Name: shellUser, DisplayName: "Shell User", Type: "HUMAN"},
	}
	newMessage := func(text string) *event.Message {
		return &event.Message{
			Name:   fmt.Sprintf("%s/messages/%d", shellSpace, seq),
			Text:   text,
			Thread: &event.Thread{Name: fmt.Sprintf("%s/threads/%d", shellSpace, seq)},
		}
	}

	command, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch command {
	case "/add":
		ev.Type = event.TypeAddedToSpace
		if rest != "" {
			ev.Message = newMessage(rest)
		}
	case "/remove":
		ev.Type = event.TypeRemovedFromSpace
	case "/click":
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			return event.Event{}, fmt.Errorf("usage: /click <method> [key=value ...]")
		}
		ev.Type = event.TypeCardClicked
		ev.Message = newMessage("")
		ev.Action = &event.Action{ActionMethodName: fields[0]}
		for _, field := range fields[1:] {
			key, value, _ := strings.Cut(field, "=")
			ev.Action.Parameters = append(ev.Action.Parameters, event.ActionParameter{Key: key, Value: value})
		}
	default:
		ev.Type = event.TypeMessage
		ev.Message = newMessage(line)
	}

	return ev, nil
}

func isExitCommand(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "exit", "quit", ":q":
		return true
	default:
		return false
	}
}

// payloadPrinter renders outbound payloads instead of calling the REST API.
type payloadPrinter struct {
	mu  sync.Mutex
	out io.Writer
}

func (p *payloadPrinter) CreateMessage(_ context.Context, parent string, payload outbound.Payload) error {
	p.print("rest", parent, payload)
	return nil
}

func (p *payloadPrinter) print(delivery string, space string, payload outbound.Payload) {
	p.mu.Lock()
	defer p.mu.Unlock()

	header := deliveryStyle.Render("["+delivery+"]") + " " + spaceStyle.Render(space)
	if payload.Thread != nil {
		header += spaceStyle.Render(" thread " + payload.Thread.Name)
	}
	fmt.Fprintln(p.out, header)

	for _, line := range strings.Split(strings.TrimRight(payload.Text, "\n"), "\n") {
		if line != "" {
			fmt.Fprintln(p.out, "  "+botStyle.Render(line))
		}
	}
	for _, card := range payload.Cards {
		fmt.Fprintln(p.out, "  "+spaceStyle.Render("card "+string(card)))
	}
}

// printHandle plays the role of the webhook response for one shell line.
type printHandle struct {
	printer *payloadPrinter
	space   string

	mu   sync.Mutex
	done bool
}

func (h *printHandle) Respond(body []byte) bool {
	var payload outbound.Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done {
		return false
	}
	h.done = true

	h.printer.print("http", h.space, payload)
	return true
}

func handleOrNil(h *printHandle) message.Handle {
	if h == nil {
		return nil
	}
	return h
}

func (h *printHandle) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.done = true
}
