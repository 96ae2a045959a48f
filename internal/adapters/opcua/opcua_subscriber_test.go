package opcua

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/gopcua/opcua/ua"

	"github.com/Poltergeis/api-local-websockets/internal/domain"
	"github.com/Poltergeis/api-local-websockets/internal/ports"
)

type sinkSpy struct {
	envs []domain.Envelope
}

func (s *sinkSpy) Push(env domain.Envelope) {
	s.envs = append(s.envs, env)
}

type obsSpy struct {
	warns []string
}

func (o *obsSpy) LogInfo(msg string, fields ...ports.Field)             {}
func (o *obsSpy) LogWarn(msg string, fields ...ports.Field)             { o.warns = append(o.warns, msg) }
func (o *obsSpy) LogError(msg string, err error, fields ...ports.Field) {}
func (o *obsSpy) IncCounter(name string, v float64)                     {}
func (o *obsSpy) ObserveLatency(name string, seconds float64)           {}
func (o *obsSpy) SetGauge(name string, v float64)                       {}
func (o *obsSpy) RecordDrop(m *ports.DroppedMessage, err error)         {}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{
		Endpoint: "opc.tcp://localhost:4840",
		Nodes: []NodeConfig{
			{NodeID: "ns=2;s=Channel1.Device1.Pulse"},
			{NodeID: "ns=2;s=Channel1.Device1.Temp", SensorID: "temp-1", Topic: "sensor/temperatura"},
		},
	}
	cfg.ApplyDefaults()

	if cfg.SecurityMode != "None" || cfg.SecurityPolicy != "None" {
		t.Fatalf("expected security defaults, got mode=%q policy=%q", cfg.SecurityMode, cfg.SecurityPolicy)
	}
	if cfg.PublishInterval != 250*time.Millisecond {
		t.Fatalf("expected default publish interval, got %v", cfg.PublishInterval)
	}
	if cfg.Nodes[0].SensorID != "ns=2;s=Channel1.Device1.Pulse" {
		t.Fatalf("expected sensor id to default to node id, got %q", cfg.Nodes[0].SensorID)
	}
	if cfg.Nodes[0].Topic != "sensor/ns=2;s=Channel1.Device1.Pulse" {
		t.Fatalf("unexpected default topic %q", cfg.Nodes[0].Topic)
	}
	if cfg.Nodes[1].Topic != "sensor/temperatura" {
		t.Fatalf("explicit topic was overwritten: %q", cfg.Nodes[1].Topic)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing endpoint")
	}

	cfg.Endpoint = "opc.tcp://localhost:4840"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty node list")
	}

	cfg.Nodes = []NodeConfig{{NodeID: "ns=2;s=Tag"}}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestProcessNotificationPushesEnvelopes(t *testing.T) {
	sub := &Subscriber{
		obs: &obsSpy{},
		handleMap: map[uint32]NodeConfig{
			1: {NodeID: "ns=2;s=Pulse", SensorID: "pulse-1", Topic: "sensor/bpm"},
		},
	}
	sink := &sinkSpy{}

	variant, err := ua.NewVariant(float64(72.5))
	if err != nil {
		t.Fatalf("new variant: %v", err)
	}
	notif := &ua.DataChangeNotification{
		MonitoredItems: []*ua.MonitoredItemNotification{
			{
				ClientHandle: 1,
				Value: &ua.DataValue{
					Value:           variant,
					ServerTimestamp: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
				},
			},
			{ClientHandle: 99, Value: &ua.DataValue{Value: variant}},
		},
	}

	sub.processNotification(notif, sink)

	if len(sink.envs) != 1 {
		t.Fatalf("expected 1 envelope, got %d", len(sink.envs))
	}
	if sink.envs[0].Topic != "sensor/bpm" {
		t.Fatalf("unexpected topic %q", sink.envs[0].Topic)
	}

	var reading nodeReading
	if err := json.Unmarshal(sink.envs[0].Payload, &reading); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if reading.Sensor != "pulse-1" || reading.Valor != 72.5 {
		t.Fatalf("unexpected reading %+v", reading)
	}
}

func TestProcessNotificationLogsUnsupportedVariant(t *testing.T) {
	obs := &obsSpy{}
	sub := &Subscriber{
		obs: obs,
		handleMap: map[uint32]NodeConfig{
			1: {NodeID: "ns=2;s=Label", SensorID: "label-1", Topic: "sensor/label"},
		},
	}
	sink := &sinkSpy{}

	variant, err := ua.NewVariant("running")
	if err != nil {
		t.Fatalf("new variant: %v", err)
	}
	notif := &ua.DataChangeNotification{
		MonitoredItems: []*ua.MonitoredItemNotification{
			{ClientHandle: 1, Value: &ua.DataValue{Value: variant}},
		},
	}

	sub.processNotification(notif, sink)

	if len(sink.envs) != 0 {
		t.Fatalf("expected no envelopes for a string variant, got %d", len(sink.envs))
	}
	if len(obs.warns) != 1 || obs.warns[0] != "skipping unsupported variant type" {
		t.Fatalf("expected a skip warning, got %v", obs.warns)
	}
}

func TestVariantToFloat(t *testing.T) {
	cases := []struct {
		value any
		want  float64
		ok    bool
	}{
		{int32(42), 42, true},
		{float32(1.5), 1.5, true},
		{uint16(7), 7, true},
		{"not a number", 0, false},
	}

	for _, tc := range cases {
		variant, err := ua.NewVariant(tc.value)
		if err != nil {
			t.Fatalf("new variant for %v: %v", tc.value, err)
		}
		got, ok := variantToFloat(variant)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("variantToFloat(%v) = (%v, %v), want (%v, %v)", tc.value, got, ok, tc.want, tc.ok)
		}
	}

	if _, ok := variantToFloat(nil); ok {
		t.Fatal("expected nil variant to fail")
	}
}
