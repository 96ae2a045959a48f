package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	relaybridge "github.com/Poltergeis/api-local-websockets"
)

// Runs the bridge with an in-process publisher in place of the broker
// feed, pushing a synthetic heartbeat reading every few seconds.
func main() {
	flow, err := relaybridge.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	pub := relaybridge.NewInProcessPublisher()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				err := pub.Publish("sensor/bpm", map[string]any{
					"valor":     72,
					"timestamp": time.Now().UTC().Format(time.RFC3339),
				})
				if err != nil {
					log.Printf("publish: %v", err)
				}
			}
		}
	}()

	if err := flow.Ingest(relaybridge.IngestSubscriber(pub)).Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}
