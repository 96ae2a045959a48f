package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Poltergeis/api-local-websockets/internal/adapters/relayqueue"
	"github.com/Poltergeis/api-local-websockets/internal/app/stats"
	"github.com/Poltergeis/api-local-websockets/internal/domain"
	"github.com/Poltergeis/api-local-websockets/internal/ports"
)

func testPolicy() ports.Policy {
	return ports.Policy{
		SendBuffer:   16,
		WriteTimeout: 2 * time.Second,
		PingInterval: 10 * time.Second,
		PongTimeout:  20 * time.Second,
	}
}

func TestServerEndToEnd(t *testing.T) {
	queue := relayqueue.New()
	obs := newObsSpy()
	store := &routerStore{
		latest: &domain.SensorRecord{
			Metric:     domain.MetricHeartRate,
			Value:      75,
			RecordedAt: time.Date(2024, time.June, 5, 10, 0, 0, 0, time.UTC),
		},
		records: []domain.SensorRecord{
			{Metric: domain.MetricHeartRate, Value: 75, RecordedAt: time.Date(2024, time.June, 5, 10, 0, 0, 0, time.UTC)},
		},
	}
	router := NewRouter(stats.NewEngine(store, obs), store, obs)
	hub := NewHub(queue, obs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := NewServer(":0", "/", hub, router, obs, testPolicy())
	ts := httptest.NewServer(http.HandlerFunc(srv.handleWS))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	waitFor(t, func() bool { return obs.gauge("relay_clients_connected") == 1 }, "client registered")

	// Broker envelopes reach the client unsolicited.
	queue.Push(domain.Envelope{Topic: "sensor/bpm", Payload: json.RawMessage(`{"valor":75}`)})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env domain.Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
	if env.Topic != "sensor/bpm" {
		t.Fatalf("unexpected topic %q", env.Topic)
	}

	// A query request gets exactly one reply on the same connection.
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"getBPMRecords","tiempo":"dia"}`)); err != nil {
		t.Fatalf("write request: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var res domain.AggregationResult
	if err := conn.ReadJSON(&res); err != nil {
		t.Fatalf("read reply: %v", err)
	}
	if !res.Success || res.CurrentLabel != "05-06-2024" {
		t.Fatalf("unexpected reply %+v", res)
	}

	// Disconnecting unregisters the client.
	conn.Close()
	waitFor(t, func() bool { return obs.gauge("relay_clients_connected") == 0 }, "client unregistered")
}

func TestServerInsertOverWire(t *testing.T) {
	queue := relayqueue.New()
	obs := newObsSpy()
	store := &routerStore{}
	router := NewRouter(stats.NewEngine(store, obs), store, obs)
	hub := NewHub(queue, obs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := NewServer(":0", "/", hub, router, obs, testPolicy())
	ts := httptest.NewServer(http.HandlerFunc(srv.handleWS))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"insertTempRecords","body":{"valor":"36.8"}}`)); err != nil {
		t.Fatalf("write request: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var res domain.InsertResult
	if err := conn.ReadJSON(&res); err != nil {
		t.Fatalf("read reply: %v", err)
	}
	if !res.Success {
		t.Fatalf("unexpected reply %+v", res)
	}

	waitFor(t, func() bool { return len(store.insertedRecords()) == 1 }, "record persisted")
	if store.insertedRecords()[0].Value != 36.8 || store.insertedRecords()[0].Metric != domain.MetricTemperature {
		t.Fatalf("unexpected record %+v", store.insertedRecords()[0])
	}
}
