// Package main is the entry point for the spritefactory CLI.
// It validates job specs, drives Aseprite in batch mode and chains
// Stable Diffusion generation to the factory.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"spritefactory/cmd/spritefactory/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := cmd.Execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
