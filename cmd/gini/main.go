package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gini/gini-sdk-go/internal/cli"
)

func main() {
	cfg := cli.LoadConfig()

	app, err := cli.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args[1:]); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
