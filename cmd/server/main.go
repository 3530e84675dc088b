package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"warehouse/pkg/app"
)

// main is a thin adapter so process managers can keep using cmd/server.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args[1:], os.Stdout); err != nil {
		zap.Must(zap.NewProduction()).Fatal("application stopped with error", zap.Error(err))
	}
}
