package scripts

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/event"
	"github.com/googleworkspace/hubot-google-hangouts-chat/pkg/robot"
)

type card struct {
	Header   cardHeader    `json:"header"`
	Sections []cardSection `json:"sections"`
}

type cardHeader struct {
	Title string `json:"title"`
}

type cardSection struct {
	Widgets []cardWidget `json:"widgets"`
}

type cardWidget struct {
	Buttons []cardButton `json:"buttons"`
}

type cardButton struct {
	TextButton textButton `json:"textButton"`
}

type textButton struct {
	Text    string  `json:"text"`
	OnClick onClick `json:"onClick"`
}

type onClick struct {
	Action cardAction `json:"action"`
}

type cardAction struct {
	ActionMethodName string                  `json:"actionMethodName"`
	Parameters       []event.ActionParameter `json:"parameters"`
}

// exampleCards is a one-card array with a single clickable button.
func exampleCards() (string, error) {
	cards := []card{{
		Header: cardHeader{Title: "title"},
		Sections: []cardSection{{
			Widgets: []cardWidget{{
				Buttons: []cardButton{{
					TextButton: textButton{
						Text: "Click Me!",
						OnClick: onClick{Action: cardAction{
							ActionMethodName: "click",
							Parameters:       []event.ActionParameter{{Key: "key", Value: "value"}},
						}},
					},
				}},
			}},
		}},
	}}

	body, err := json.Marshal(cards)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Cards registers the interactive card examples.
func Cards(bot *robot.Robot) {
	bot.Hear(regexp.MustCompile(`(?i)help`), func(ctx context.Context, res *robot.Response) error {
		return res.Reply(ctx, "Try sending 'card' to see a card example.")
	})

	bot.Respond(regexp.MustCompile(`(?i)help`), func(ctx context.Context, res *robot.Response) error {
		return res.Reply(ctx, "I'm responding to help")
	})

	bot.Hear(regexp.MustCompile(`(?i)card`), func(ctx context.Context, res *robot.Response) error {
		cards, err := exampleCards()
		if err != nil {
			return err
		}
		return res.ReplyCards(ctx, "", cards)
	})

	bot.OnCardClick(func(ctx context.Context, res *robot.Response) error {
		params, err := json.Marshal(res.Message.Parameters)
		if err != nil {
			return err
		}
		return res.Reply(ctx, fmt.Sprintf("%s clicked on a card with method name %s and parameters %s",
			res.Message.User.Name, res.Message.ActionMethodName, params))
	})
}
