package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"coinedge/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := app.NewServer()
	log.Fatal(server.Start(ctx))
}
