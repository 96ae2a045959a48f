package relaybridge

import (
	"context"
	"testing"
)

func TestConfFromConfigAndBuilder(t *testing.T) {
	cfg := testConfig(t)

	flow, err := ConfFromConfig(cfg)
	if err != nil {
		t.Fatalf("ConfFromConfig returned error: %v", err)
	}
	if flow.Config() != cfg {
		t.Fatalf("expected Config to be returned verbatim")
	}

	sub := &stubSubscriber{}
	store := &stubStore{}

	rt, err := flow.
		Ingest(
			IngestSubscriber(sub),
			IngestObservability(&stubObservability{}),
		).
		Serve(
			ServeStore(store),
			ServeTap(NewCallbackTap("noop", func(Envelope) error { return nil })),
		)
	if err != nil {
		t.Fatalf("Serve returned error: %v", err)
	}
	if len(rt.subscribers) != 1 || rt.subscribers[0] != sub {
		t.Fatalf("expected custom subscriber to be wired")
	}
	if rt.store != store {
		t.Fatalf("expected custom store to be wired")
	}
}

func TestFlowRunUsesServeOptions(t *testing.T) {
	cfg := testConfig(t)

	flow, err := ConfFromConfig(cfg)
	if err != nil {
		t.Fatalf("ConfFromConfig returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stop immediately to avoid waiting on a real broker.
	cancel()
	if err := flow.Ingest(
		IngestSubscriber(&stubSubscriber{}),
		IngestObservability(&stubObservability{}),
	).Run(ctx,
		ServeStore(&stubStore{}),
	); err != nil && err != context.Canceled {
		t.Fatalf("Run returned unexpected error: %v", err)
	}
}

func TestConfFromConfigNil(t *testing.T) {
	if _, err := ConfFromConfig(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}
