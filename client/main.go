package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/mrkishore97/production-scheduler-v3/internal/clientapp"
	"github.com/mrkishore97/production-scheduler-v3/internal/envutil"
)

func main() {
	if err := envutil.LoadDotEnv(".env"); err != nil {
		log.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := clientapp.Run(ctx, clientapp.DefaultConfigFromEnv()); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
}
