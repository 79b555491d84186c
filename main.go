// Seabattle - a multi-transport Battleship game server and bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"seabattle/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "seabattle: %v\n", err)
		os.Exit(1)
	}
}
