package relaybridge

import (
	"context"

	base "github.com/Poltergeis/api-local-websockets/pkg/relaybridge"
)

// Re-exported errors for convenience.
var (
	ErrPublisherStopped = base.ErrPublisherStopped
	ErrChannelTapClosed = base.ErrChannelTapClosed
	ErrJournalFull      = base.ErrJournalFull
)

// Re-exported metric and granularity values.
const (
	MetricHeartRate   = base.MetricHeartRate
	MetricTemperature = base.MetricTemperature

	GranularityDay   = base.GranularityDay
	GranularityWeek  = base.GranularityWeek
	GranularityMonth = base.GranularityMonth
)

// Type aliases so consumers can import the module root directly.
type (
	Config              = base.Config
	Policy              = base.Policy
	MQTTConfig          = base.MQTTConfig
	OPCUAConfig         = base.OPCUAConfig
	OPCUANodeConfig     = base.OPCUANodeConfig
	WebSocketConfig     = base.WebSocketConfig
	PostgresConfig      = base.PostgresConfig
	MetricsConfig       = base.MetricsConfig
	JournalConfig       = base.JournalConfig
	Flow                = base.Flow
	FlowOption          = base.FlowOption
	IngestOption        = base.IngestOption
	ServeOption         = base.ServeOption
	BridgeRuntime       = base.BridgeRuntime
	BridgeRuntimeOption = base.BridgeRuntimeOption
	Envelope            = base.Envelope
	EnvelopeFunc        = base.EnvelopeFunc
	Metric              = base.Metric
	Granularity         = base.Granularity
	SensorRecord        = base.SensorRecord
	AggregationResult   = base.AggregationResult
	InsertResult        = base.InsertResult
	Subscriber          = base.Subscriber
	EnvelopeSink        = base.EnvelopeSink
	RelayQueue          = base.RelayQueue
	RecordStore         = base.RecordStore
	BroadcastTap        = base.BroadcastTap
	DropJournal         = base.DropJournal
	JournalStats        = base.JournalStats
	JournalEntryID      = base.JournalEntryID
	DroppedMessage      = base.DroppedMessage
	Observability       = base.Observability
	Field               = base.Field
	InProcessPublisher  = base.InProcessPublisher
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...BridgeRuntimeOption) FlowOption {
	return base.WithFlowOptions(opts...)
}

func IngestSubscriber(sub Subscriber) IngestOption {
	return base.IngestSubscriber(sub)
}

func IngestQueue(q RelayQueue) IngestOption {
	return base.IngestQueue(q)
}

func IngestJournal(j DropJournal) IngestOption {
	return base.IngestJournal(j)
}

func IngestObservability(obs Observability) IngestOption {
	return base.IngestObservability(obs)
}

func ServeStore(store RecordStore) ServeOption {
	return base.ServeStore(store)
}

func ServeTap(tap BroadcastTap) ServeOption {
	return base.ServeTap(tap)
}

func ServeCallback(name string, fn EnvelopeFunc) ServeOption {
	return base.ServeCallback(name, fn)
}

func ServeObservability(obs Observability) ServeOption {
	return base.ServeObservability(obs)
}

// Bridge runtime and options.
func NewBridgeRuntime(cfg *Config, opts ...BridgeRuntimeOption) (*BridgeRuntime, error) {
	return base.NewBridgeRuntime(cfg, opts...)
}

func WithSubscriber(sub Subscriber) BridgeRuntimeOption {
	return base.WithSubscriber(sub)
}

func WithStore(store RecordStore) BridgeRuntimeOption {
	return base.WithStore(store)
}

func WithRelayQueue(q RelayQueue) BridgeRuntimeOption {
	return base.WithRelayQueue(q)
}

func WithJournal(j DropJournal) BridgeRuntimeOption {
	return base.WithJournal(j)
}

func WithObservability(obs Observability) BridgeRuntimeOption {
	return base.WithObservability(obs)
}

func WithTap(tap BroadcastTap) BridgeRuntimeOption {
	return base.WithTap(tap)
}

// Broadcast taps.
func NewCallbackTap(name string, fn EnvelopeFunc) BroadcastTap {
	return base.NewCallbackTap(name, fn)
}

func NewChannelTap(name string, buffer int) (BroadcastTap, <-chan Envelope, func()) {
	return base.NewChannelTap(name, buffer)
}

// In-process publisher.
func NewInProcessPublisher() *InProcessPublisher {
	return base.NewInProcessPublisher()
}

// Run is a convenience for loading config and running the bridge until
// ctx is cancelled.
func Run(ctx context.Context, configPath string, opts ...BridgeRuntimeOption) error {
	flow, err := Conf(configPath, WithFlowOptions(opts...))
	if err != nil {
		return err
	}
	return flow.Run(ctx)
}
