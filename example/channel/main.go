package main

import (
	"context"
	"fmt"
	"log"
	"time"

	relaybridge "github.com/Poltergeis/api-local-websockets"
)

func main() {
	flow, err := relaybridge.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tap, envelopes, closeTap := relaybridge.NewChannelTap("fanout", 32)
	defer closeTap()

	go fanoutWorker("mirror", envelopes)

	if err := flow.Run(ctx, relaybridge.ServeTap(tap)); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}

func fanoutWorker(name string, envelopes <-chan relaybridge.Envelope) {
	for env := range envelopes {
		fmt.Printf("[%s] %s topic=%s payload=%s\n",
			name, time.Now().Format(time.RFC3339), env.Topic, env.Payload)
	}
}
