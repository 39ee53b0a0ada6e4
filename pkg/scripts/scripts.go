// Package scripts holds the example listeners shipped with the adapter.
package scripts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/robot"
)

// Script registers listeners on a robot.
type Script func(bot *robot.Robot)

var registry = map[string]Script{
	"text":   Text,
	"cards":  Cards,
	"events": Events,
}

// Names lists the available scripts in a stable order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load registers the named scripts in the given order. No names loads all of them.
func Load(bot *robot.Robot, names ...string) error {
	if len(names) == 0 {
		names = Names()
	}

	for _, name := range names {
		script, ok := registry[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return fmt.Errorf("unknown script %q: must be one of %s", name, strings.Join(Names(), ", "))
		}
		script(bot)
	}

	return nil
}
