package scripts

import (
	"context"
	"fmt"
	"regexp"

	"go.uber.org/atomic"

	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/robot"
)

// Events registers the space membership examples. The space count lives for
// the lifetime of the robot and is not persisted.
func Events(bot *robot.Robot) {
	var spaces atomic.Int64

	bot.Hear(regexp.MustCompile(`(?i)help`), func(ctx context.Context, res *robot.Response) error {
		return res.Reply(ctx, "Try adding the bot to the space directly or through an @mention. Also, try removing and re-adding the bot to the room")
	})

	bot.OnAddToSpace(func(ctx context.Context, res *robot.Response) error {
		count := spaces.Inc()
		how := "!"
		if res.Message.Kind.HasText() {
			how = " using an @mention!"
		}
		return res.Reply(ctx, fmt.Sprintf("Thank you for adding me to the room%s I am now a member of %d spaces.", how, count))
	})

	// A removed bot cannot answer.
	bot.OnRemoveFromSpace(func(context.Context, *robot.Response) error {
		spaces.Dec()
		return nil
	})
}
