package relaybridge

import (
	"context"
	"fmt"
)

// Flow is a convenience builder that lets callers say Conf → Ingest →
// Serve without touching the underlying hexagonal wiring.
type Flow struct {
	cfg  *Config
	opts []BridgeRuntimeOption
}

// FlowOption mutates the Flow after configuration is loaded.
type FlowOption func(*Flow)

// IngestOption configures the subscriber/queue/journal side of the bridge.
type IngestOption func(*Flow)

// ServeOption configures the store/tap/observability side of the bridge.
type ServeOption func(*Flow)

// Conf loads YAML from disk, applies FlowOption values, and returns a
// Flow builder.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return ConfFromConfig(cfg, opts...)
}

// ConfFromConfig bootstraps a Flow from an in-memory Config.
func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	f := &Flow{cfg: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

// Config returns the underlying configuration so callers can tweak it
// before building a runtime.
func (f *Flow) Config() *Config {
	if f == nil {
		return nil
	}
	return f.cfg
}

// Options appends raw BridgeRuntimeOption values for advanced scenarios.
func (f *Flow) Options(opts ...BridgeRuntimeOption) *Flow {
	if f == nil {
		return nil
	}
	f.appendOptions(opts...)
	return f
}

// Ingest records subscriber-side overrides (subscribers, queue, journal,
// observability).
func (f *Flow) Ingest(opts ...IngestOption) *Flow {
	if f == nil {
		return nil
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Serve records serving-side overrides and builds a BridgeRuntime ready
// to run.
func (f *Flow) Serve(opts ...ServeOption) (*BridgeRuntime, error) {
	if f == nil {
		return nil, fmt.Errorf("flow is nil")
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return NewBridgeRuntime(f.cfg, f.opts...)
}

// Run is a shortcut for Serve + runtime.Run.
func (f *Flow) Run(ctx context.Context, opts ...ServeOption) error {
	rt, err := f.Serve(opts...)
	if err != nil {
		return err
	}
	return rt.Run(ctx)
}

// WithFlowOptions appends BridgeRuntimeOption values during Conf.
func WithFlowOptions(opts ...BridgeRuntimeOption) FlowOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(opts...)
		}
	}
}

// IngestSubscriber adds a custom envelope source (simulators, extra
// brokers, in-process publishers).
func IngestSubscriber(sub Subscriber) IngestOption {
	return func(f *Flow) {
		if f != nil && sub != nil {
			f.appendOptions(WithSubscriber(sub))
		}
	}
}

// IngestQueue swaps the in-memory relay queue for a caller-provided one.
func IngestQueue(q RelayQueue) IngestOption {
	return func(f *Flow) {
		if f != nil && q != nil {
			f.appendOptions(WithRelayQueue(q))
		}
	}
}

// IngestJournal lets callers bring their own dead-letter journal.
func IngestJournal(j DropJournal) IngestOption {
	return func(f *Flow) {
		if f != nil && j != nil {
			f.appendOptions(WithJournal(j))
		}
	}
}

// IngestObservability overrides the default Prometheus-based stack.
func IngestObservability(obs Observability) IngestOption {
	return func(f *Flow) {
		if f != nil && obs != nil {
			f.appendOptions(WithObservability(obs))
		}
	}
}

// ServeStore injects a custom persistence gateway.
func ServeStore(store RecordStore) ServeOption {
	return func(f *Flow) {
		if f != nil && store != nil {
			f.appendOptions(WithStore(store))
		}
	}
}

// ServeTap registers a broadcast tap.
func ServeTap(tap BroadcastTap) ServeOption {
	return func(f *Flow) {
		if f != nil && tap != nil {
			f.appendOptions(WithTap(tap))
		}
	}
}

// ServeCallback installs a tap built from a simple callback function.
func ServeCallback(name string, fn EnvelopeFunc) ServeOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(WithTap(NewCallbackTap(name, fn)))
		}
	}
}

// ServeObservability replaces the default observability backend.
func ServeObservability(obs Observability) ServeOption {
	return func(f *Flow) {
		if f != nil && obs != nil {
			f.appendOptions(WithObservability(obs))
		}
	}
}

func (f *Flow) appendOptions(opts ...BridgeRuntimeOption) {
	for _, opt := range opts {
		if opt != nil {
			f.opts = append(f.opts, opt)
		}
	}
}
