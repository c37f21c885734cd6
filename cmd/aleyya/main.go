package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	// Wait for interrupt signal to cancel a pending reply
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
