package robot

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/failure"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/message"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/outbound"
)

// Sender delivers robot output. *outbound.Router implements it.
type Sender interface {
	Send(ctx context.Context, env outbound.Envelope, text string, cardJSON string) error
	Reply(ctx context.Context, env outbound.Envelope, text string, cardJSON string) error
}

// Handler runs when its listener matched a message.
type Handler func(ctx context.Context, res *Response) error

// Matcher reports whether msg is of interest. A nil result means no match;
// regexp listeners return the submatches, other listeners an empty slice.
type Matcher func(msg *message.Message) []string

type listener struct {
	kind   string
	match  Matcher
	handle Handler
}

// Robot dispatches inbound messages to registered listeners.
type Robot struct {
	name   string
	alias  string
	sender Sender
	log    *slog.Logger

	mu        sync.RWMutex
	listeners []listener
}

func New(name string, alias string, sender Sender, log *slog.Logger) *Robot {
	if log == nil {
		log = slog.Default()
	}

	return &Robot{
		name:   strings.TrimSpace(name),
		alias:  strings.TrimSpace(alias),
		sender: sender,
		log:    log.With("component", "robot"),
	}
}

func (r *Robot) Name() string {
	return r.name
}

// Listen registers a listener with a custom matcher.
func (r *Robot) Listen(match Matcher, h Handler) {
	r.add("listen", match, h)
}

// Hear matches pattern anywhere in the text of text-bearing messages.
func (r *Robot) Hear(pattern *regexp.Regexp, h Handler) {
	r.add("hear", textMatcher(pattern), h)
}

// Respond matches pattern only when the text is addressed to the robot by
// name or alias, optionally prefixed with '@' and followed by ':' or ','.
func (r *Robot) Respond(pattern *regexp.Regexp, h Handler) {
	r.add("respond", textMatcher(r.respondPattern(pattern)), h)
}

// OnAddToSpace runs h when the robot is added to a space, with or without text.
func (r *Robot) OnAddToSpace(h Handler) {
	r.add("added_to_space", kindMatcher(message.KindAddedToSpace, message.KindAddedToSpaceText), h)
}

// OnRemoveFromSpace runs h when the robot is removed from a space. No reply
// is possible, so the message is marked handled after h returns.
func (r *Robot) OnRemoveFromSpace(h Handler) {
	r.add("removed_from_space", kindMatcher(message.KindRemovedFromSpace), func(ctx context.Context, res *Response) error {
		defer res.Message.SetHandled()
		return h(ctx, res)
	})
}

// OnCardClick runs h when a user clicks an interactive card button.
func (r *Robot) OnCardClick(h Handler) {
	r.add("card_clicked", kindMatcher(message.KindCardClicked), h)
}

func (r *Robot) add(kind string, match Matcher, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, listener{kind: kind, match: match, handle: h})
}

// Receive runs every matching listener in registration order and returns how
// many matched. Listener errors and panics are logged, not propagated.
func (r *Robot) Receive(ctx context.Context, msg *message.Message) int {
	r.mu.RLock()
	listeners := append([]listener(nil), r.listeners...)
	r.mu.RUnlock()

	matched := 0
	for i, l := range listeners {
		match := l.match(msg)
		if match == nil {
			continue
		}
		matched++

		res := &Response{Message: msg, Match: match, robot: r}
		if err := r.run(ctx, l, res); err != nil {
			r.log.Error("Listener failed",
				"listener", fmt.Sprintf("%s#%d", l.kind, i),
				"kind", msg.Kind.String(),
				"request_id", msg.RequestID,
				"error", err,
				"error_category", failure.CategoryOf(err),
			)
		}
	}

	if matched == 0 {
		r.log.Debug("No listener matched", "kind", msg.Kind.String(), "request_id", msg.RequestID)
	}

	return matched
}

func (r *Robot) run(ctx context.Context, l listener, res *Response) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("listener panic: %v", recovered)
		}
	}()

	return l.handle(ctx, res)
}

// MessageRoom sends text to room, starting a new thread.
func (r *Robot) MessageRoom(ctx context.Context, room string, text string) error {
	return r.sender.Send(ctx, outbound.Envelope{Room: room}, text, "")
}

// leadingFlags captures an inline flag group such as (?i) at the start of a pattern.
var leadingFlags = regexp.MustCompile(`^\(\?[a-zA-Z]+\)`)

// respondPattern anchors pattern behind the robot's name or alias. Names match
// case-insensitively; the pattern keeps its own flags.
func (r *Robot) respondPattern(pattern *regexp.Regexp) *regexp.Regexp {
	source := pattern.String()
	flags := leadingFlags.FindString(source)
	source = strings.TrimPrefix(strings.TrimPrefix(source, flags), "^")

	names := []string{regexp.QuoteMeta(r.name) + `[:,]?`}
	if r.alias != "" {
		names = append(names, regexp.QuoteMeta(r.alias)+`[:,]?`)
	}

	return regexp.MustCompile(flags + `^\s*[@]?(?i:` + strings.Join(names, "|") + `)\s*(?:` + source + `)`)
}

func textMatcher(pattern *regexp.Regexp) Matcher {
	return func(msg *message.Message) []string {
		if !msg.Kind.HasText() {
			return nil
		}
		return pattern.FindStringSubmatch(msg.Text)
	}
}

func kindMatcher(kinds ...message.Kind) Matcher {
	return func(msg *message.Message) []string {
		for _, kind := range kinds {
			if msg.Kind == kind {
				return []string{}
			}
		}
		return nil
	}
}
