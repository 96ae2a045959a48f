package relaybridge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Poltergeis/api-local-websockets/internal/adapters/journal"
	"github.com/Poltergeis/api-local-websockets/internal/adapters/mqtt"
	"github.com/Poltergeis/api-local-websockets/internal/adapters/observability"
	"github.com/Poltergeis/api-local-websockets/internal/adapters/opcua"
	"github.com/Poltergeis/api-local-websockets/internal/adapters/relayqueue"
	"github.com/Poltergeis/api-local-websockets/internal/adapters/storage"
	"github.com/Poltergeis/api-local-websockets/internal/app/bridge"
	"github.com/Poltergeis/api-local-websockets/internal/app/stats"
	"github.com/Poltergeis/api-local-websockets/internal/ports"
)

// BridgeRuntimeOption customizes the dependencies used by BridgeRuntime.
type BridgeRuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	subscribers   []Subscriber
	store         RecordStore
	relay         RelayQueue
	journal       DropJournal
	observability Observability
	taps          []BroadcastTap
}

// WithSubscriber adds a custom envelope source (simulators, extra brokers,
// in-process publishers). When at least one is given, the default MQTT
// subscriber is not created.
func WithSubscriber(sub Subscriber) BridgeRuntimeOption {
	return func(o *runtimeOverrides) {
		if sub != nil {
			o.subscribers = append(o.subscribers, sub)
		}
	}
}

// WithStore injects a custom persistence gateway in place of Postgres.
func WithStore(store RecordStore) BridgeRuntimeOption {
	return func(o *runtimeOverrides) {
		o.store = store
	}
}

// WithRelayQueue injects a custom relay queue implementation.
func WithRelayQueue(q RelayQueue) BridgeRuntimeOption {
	return func(o *runtimeOverrides) {
		o.relay = q
	}
}

// WithJournal lets callers bring their own dead-letter journal.
func WithJournal(j DropJournal) BridgeRuntimeOption {
	return func(o *runtimeOverrides) {
		o.journal = j
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) BridgeRuntimeOption {
	return func(o *runtimeOverrides) {
		o.observability = obs
	}
}

// WithTap registers a broadcast tap that receives every relayed envelope.
func WithTap(tap BroadcastTap) BridgeRuntimeOption {
	return func(o *runtimeOverrides) {
		if tap != nil {
			o.taps = append(o.taps, tap)
		}
	}
}

// BridgeRuntime wires the subscriber → relay queue → hub → WebSocket
// fan-out together with the record store and aggregation engine, and
// exposes simple lifecycle hooks for embedding the bridge in a service.
type BridgeRuntime struct {
	cfg         *Config
	policy      ports.Policy
	obs         ports.Observability
	relay       ports.RelayQueue
	journal     ports.DropJournal
	store       ports.RecordStore
	subscribers []ports.Subscriber
	hub         *bridge.Hub
	server      *bridge.Server
	db          *sql.DB

	metricsSrv  *http.Server
	gaugeStopCh chan struct{}
	hubCancel   context.CancelFunc
	serveErrCh  chan error
}

// NewBridgeRuntime bootstraps the default adapters (MQTT subscriber,
// in-memory relay queue, file journal, Postgres store, Prometheus
// observability). Callers can use BridgeRuntimeOption values to swap any
// dependency for their own.
func NewBridgeRuntime(cfg *Config, opts ...BridgeRuntimeOption) (*BridgeRuntime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	obs := overrides.observability
	if obs == nil {
		obs = observability.NewPromObs()
	}

	relay := overrides.relay
	if relay == nil {
		relay = relayqueue.New()
	}

	var (
		drops ports.DropJournal
		err   error
	)
	if overrides.journal != nil {
		drops = overrides.journal
	} else {
		drops, err = journal.NewFileJournal(cfg.Journal.Dir)
		if err != nil {
			return nil, err
		}
	}

	var (
		db    *sql.DB
		store ports.RecordStore
	)
	if overrides.store != nil {
		store = overrides.store
	} else {
		db, err = sql.Open("postgres", cfg.Postgres.ConnString)
		if err != nil {
			return nil, err
		}
		store = storage.NewPostgresStore(db, cfg.Postgres.Table)
	}

	subscribers := overrides.subscribers
	if len(subscribers) == 0 {
		sub, err := mqtt.NewSubscriber(cfg.MQTT, obs, drops, cfg.Policy)
		if err != nil {
			return nil, err
		}
		subscribers = append(subscribers, sub)
	}
	if cfg.OPCUA.Enabled {
		sub, err := opcua.NewSubscriber(cfg.OPCUA.Config, obs)
		if err != nil {
			return nil, err
		}
		subscribers = append(subscribers, sub)
	}

	engine := stats.NewEngine(store, obs)
	router := bridge.NewRouter(engine, store, obs)
	hub := bridge.NewHub(relay, obs, overrides.taps...)
	server := bridge.NewServer(cfg.WebSocket.Addr, cfg.WebSocket.Path, hub, router, obs, cfg.Policy)

	return &BridgeRuntime{
		cfg:         cfg,
		policy:      cfg.Policy,
		obs:         obs,
		relay:       relay,
		journal:     drops,
		store:       store,
		subscribers: subscribers,
		hub:         hub,
		server:      server,
		db:          db,
	}, nil
}

// Start launches the hub, the subscribers, the WebSocket listener, and
// the observability stack. It returns immediately; call Run to block on
// a context instead.
func (b *BridgeRuntime) Start() error {
	if b == nil {
		return fmt.Errorf("bridge runtime is nil")
	}

	if b.db != nil {
		if ensurer, ok := b.store.(interface{ EnsureSchema(context.Context) error }); ok {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := ensurer.EnsureSchema(ctx)
			cancel()
			if err != nil {
				return fmt.Errorf("ensure schema: %w", err)
			}
		}
	}

	hubCtx, cancel := context.WithCancel(context.Background())
	b.hubCancel = cancel
	go b.hub.Run(hubCtx)

	for i, sub := range b.subscribers {
		if err := sub.Start(b.relay); err != nil {
			for _, started := range b.subscribers[:i] {
				_ = started.Stop()
			}
			cancel()
			return err
		}
	}

	b.serveErrCh = make(chan error, 1)
	b.server.Start(b.serveErrCh)

	b.startMetrics()
	b.obs.LogInfo("relay bridge started",
		ports.Field{Key: "addr", Value: b.cfg.WebSocket.Addr},
		ports.Field{Key: "path", Value: b.cfg.WebSocket.Path})
	return nil
}

// Run starts the runtime and blocks until the context is cancelled or
// the listener fails, then attempts a graceful shutdown.
func (b *BridgeRuntime) Run(ctx context.Context) error {
	if err := b.Start(); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
	case err := <-b.serveErrCh:
		b.obs.LogError("websocket listener failed", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return b.Shutdown(shutdownCtx)
}

// Shutdown stops the subscribers, listeners, hub, and DB connection.
func (b *BridgeRuntime) Shutdown(ctx context.Context) error {
	var errs []error

	for _, sub := range b.subscribers {
		if err := sub.Stop(); err != nil {
			errs = append(errs, err)
		}
	}

	if b.server != nil {
		if err := b.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}

	if b.gaugeStopCh != nil {
		close(b.gaugeStopCh)
		b.gaugeStopCh = nil
	}

	if b.metricsSrv != nil {
		if err := b.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}

	if b.hubCancel != nil {
		b.hubCancel()
	}

	if closer, ok := b.journal.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if b.db != nil {
		if err := b.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (b *BridgeRuntime) startMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	b.metricsSrv = &http.Server{
		Addr:    b.cfg.Metrics.Addr,
		Handler: mux,
	}

	go func() {
		if err := b.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server exited: %v", err)
		}
	}()

	b.gaugeStopCh = make(chan struct{})
	go b.recordResourceGauges(b.gaugeStopCh, time.Second)
}

func (b *BridgeRuntime) recordResourceGauges(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			b.obs.SetGauge(ports.MetricQueueLength, float64(b.relay.Len()))
			js := b.journal.Stats()
			b.obs.SetGauge(ports.MetricJournalSizeBytes, float64(js.SizeBytes))
		}
	}
}
