package scripts

import (
	"context"
	"regexp"

	"go.uber.org/atomic"

	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/robot"
)

const textHelp = "Try the following text commands:\n" +
	" - 'reply'\n" +
	" - 'send'\n" +
	" - 'code'\n" +
	" - 'Save current space.'\n" +
	" - 'Message saved space: <message>'\n"

const codeSnippet = "Check out this cool Go snippet:\n\n" +
	"```\n" +
	"// Prints the numbers 0 to 4 in some order.\n" +
	"for i := range 5 {\n" +
	"\tgo fmt.Println(i)\n" +
	"}\n" +
	"```"

// Text registers the plain text command examples.
func Text(bot *robot.Robot) {
	var savedSpace atomic.String

	bot.Hear(regexp.MustCompile(`(?i)help`), func(ctx context.Context, res *robot.Response) error {
		return res.Reply(ctx, textHelp)
	})

	bot.Hear(regexp.MustCompile(`(?i)reply`), func(ctx context.Context, res *robot.Response) error {
		return res.Reply(ctx, "I am replying in the same thread.")
	})

	// In a room the message starts a new thread.
	bot.Hear(regexp.MustCompile(`(?i)send`), func(ctx context.Context, res *robot.Response) error {
		return res.Send(ctx, "I sent this message to the same space.")
	})

	bot.Hear(regexp.MustCompile(`(?i)code`), func(ctx context.Context, res *robot.Response) error {
		return res.Reply(ctx, codeSnippet)
	})

	bot.Hear(regexp.MustCompile(`(?i)Save current space`), func(ctx context.Context, res *robot.Response) error {
		savedSpace.Store(res.Message.Room)
		return res.Reply(ctx, "Saved space: "+res.Message.Room)
	})

	bot.Hear(regexp.MustCompile(`(?i)Message saved space: (.*)`), func(ctx context.Context, res *robot.Response) error {
		room := savedSpace.Load()
		if room == "" {
			return res.Reply(ctx, "There is no space saved!")
		}

		res.Message.SetHandled()
		return res.Robot().MessageRoom(ctx, room, res.Match[1])
	})
}
