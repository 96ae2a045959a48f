package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/Poltergeis/api-local-websockets/internal/domain"
	"github.com/Poltergeis/api-local-websockets/internal/ports"
)

// Config captures the runtime details required to open an MQTT session.
type Config struct {
	BrokerURL      string        `yaml:"broker_url"`
	ClientID       string        `yaml:"client_id"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	Topics         []string      `yaml:"topics"`
	QoS            byte          `yaml:"qos"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

func (c *Config) ApplyDefaults() {
	if c.ClientID == "" {
		c.ClientID = "sensor-relay"
	}
	if len(c.Topics) == 0 {
		c.Topics = []string{
			"message/event",
			"sensor/distancia",
			"sensor/bpm",
			"sensor/temperatura",
			"sensor/toque",
		}
	}
	if c.QoS > 2 {
		c.QoS = 2
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
}

func (c *Config) Validate() error {
	if c.BrokerURL == "" {
		return errors.New("broker_url is required")
	}
	if len(c.Topics) == 0 {
		return errors.New("at least one topic must be configured")
	}
	return nil
}

// Subscriber receives broker messages on paho-owned callback goroutines
// and forwards decoded envelopes to the relay. It never blocks a
// callback: the relay sink is non-blocking and undecodable payloads
// are journaled and dropped.
type Subscriber struct {
	cfg     Config
	obs     ports.Observability
	journal ports.DropJournal
	policy  ports.Policy

	mu      sync.Mutex
	client  pahomqtt.Client
	started bool
}

func NewSubscriber(cfg Config, obs ports.Observability, journal ports.DropJournal, pol ports.Policy) (*Subscriber, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if obs == nil {
		return nil, errors.New("observability is required")
	}
	return &Subscriber{cfg: cfg, obs: obs, journal: journal, policy: pol}, nil
}

func (s *Subscriber) Start(out ports.EnvelopeSink) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("mqtt subscriber already started")
	}
	s.mu.Unlock()

	handler := func(_ pahomqtt.Client, msg pahomqtt.Message) {
		s.handleMessage(out, msg.Topic(), msg.Payload())
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(s.cfg.BrokerURL).
		SetClientID(s.cfg.ClientID).
		SetOrderMatters(false).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(10 * time.Second).
		SetAutoReconnect(false).
		SetConnectTimeout(s.cfg.ConnectTimeout)

	if s.cfg.Username != "" {
		opts.SetUsername(s.cfg.Username)
	}
	if s.cfg.Password != "" {
		opts.SetPassword(s.cfg.Password)
	}

	opts.OnConnect = func(c pahomqtt.Client) {
		s.obs.LogInfo("connected to mqtt broker",
			ports.Field{Key: "broker", Value: s.cfg.BrokerURL})
		for _, topic := range s.cfg.Topics {
			if token := c.Subscribe(topic, s.cfg.QoS, handler); token.Wait() && token.Error() != nil {
				s.obs.LogError("mqtt subscribe failed", token.Error(),
					ports.Field{Key: "topic", Value: topic})
			}
		}
	}
	// Reconnection is left to the operator; the relay keeps serving
	// connected clients on a broker outage.
	opts.OnConnectionLost = func(_ pahomqtt.Client, err error) {
		s.obs.LogWarn("mqtt connection lost",
			ports.Field{Key: "error", Value: err})
	}

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(s.cfg.ConnectTimeout) {
		return fmt.Errorf("mqtt connect timeout after %s", s.cfg.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}

	s.mu.Lock()
	s.client = client
	s.started = true
	s.mu.Unlock()
	return nil
}

func (s *Subscriber) Stop() error {
	s.mu.Lock()
	client := s.client
	s.started = false
	s.client = nil
	s.mu.Unlock()

	if client != nil {
		client.Disconnect(250)
	}
	return nil
}

// handleMessage normalizes one raw broker message into an Envelope.
// Payloads must be valid JSON; anything else is journaled and dropped.
func (s *Subscriber) handleMessage(out ports.EnvelopeSink, topic string, payload []byte) {
	if !json.Valid(payload) {
		s.recordDrop(topic, payload, "payload is not valid JSON")
		return
	}

	raw := make(json.RawMessage, len(payload))
	copy(raw, payload)
	out.Push(domain.Envelope{Topic: topic, Payload: raw})
}

func (s *Subscriber) recordDrop(topic string, payload []byte, reason string) {
	dropped := &ports.DroppedMessage{
		Topic:      topic,
		Payload:    payload,
		Reason:     reason,
		ReceivedAt: time.Now().UTC(),
	}
	s.obs.RecordDrop(dropped, nil)

	if s.journal == nil {
		return
	}
	if max := s.policy.MaxJournalSizeBytes; max > 0 && s.journal.Stats().SizeBytes >= max {
		s.obs.LogWarn("journal entry skipped",
			ports.Field{Key: "topic", Value: topic},
			ports.Field{Key: "error", Value: ports.ErrJournalFull.Error()})
		return
	}
	if _, err := s.journal.Append(dropped); err != nil {
		s.obs.LogError("journal append failed", err,
			ports.Field{Key: "topic", Value: topic})
	}
}
