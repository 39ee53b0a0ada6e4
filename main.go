package main

import (
	"os"

	"github.com/googleworkspace/hubot-google-hangouts-chat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
