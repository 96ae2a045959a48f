package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	relaybridge "github.com/Poltergeis/api-local-websockets"
)

func main() {
	flow, err := relaybridge.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := flow.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("relay bridge exited: %v", err)
	}
}
