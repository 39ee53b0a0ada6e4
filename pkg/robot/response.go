package robot

import (
	"context"

	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/message"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/outbound"
)

// Response is what a listener gets: the message that matched and the submatches.
type Response struct {
	Message *message.Message
	Match   []string

	robot *Robot
}

func (res *Response) Robot() *Robot {
	return res.robot
}

// Reply answers in the message's thread.
func (res *Response) Reply(ctx context.Context, text string) error {
	return res.ReplyCards(ctx, text, "")
}

// ReplyCards answers in the message's thread with optional card JSON.
func (res *Response) ReplyCards(ctx context.Context, text string, cardJSON string) error {
	return res.robot.sender.Reply(ctx, res.envelope(), text, cardJSON)
}

// Send posts into the message's space without a thread.
func (res *Response) Send(ctx context.Context, text string) error {
	return res.SendCards(ctx, text, "")
}

func (res *Response) SendCards(ctx context.Context, text string, cardJSON string) error {
	return res.robot.sender.Send(ctx, res.envelope(), text, cardJSON)
}

func (res *Response) envelope() outbound.Envelope {
	return outbound.Envelope{Message: res.Message, Room: res.Message.Room}
}
