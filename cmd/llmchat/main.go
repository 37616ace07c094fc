package main

import (
	"context"
	"os"

	"github.com/thiagozs/go-llmchat/cmd/llmchat/cmd"
)

func main() {
	if err := cmd.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}
