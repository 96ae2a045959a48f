package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Poltergeis/api-local-websockets/internal/adapters/mqtt"
	"github.com/Poltergeis/api-local-websockets/internal/adapters/opcua"
	"github.com/Poltergeis/api-local-websockets/internal/ports"
)

type Config struct {
	Policy    ports.Policy    `yaml:"policy"`
	MQTT      mqtt.Config     `yaml:"mqtt"`
	OPCUA     OPCUAConfig     `yaml:"opcua"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Journal   JournalConfig   `yaml:"journal"`
}

// OPCUAConfig is opt-in; when enabled the bridge ingests OPC UA data
// changes alongside (or instead of) the MQTT feed.
type OPCUAConfig struct {
	Enabled      bool `yaml:"enabled"`
	opcua.Config `yaml:",inline"`
}

type WebSocketConfig struct {
	Addr string `yaml:"addr"`
	Path string `yaml:"path"`
}

type PostgresConfig struct {
	ConnString string `yaml:"conn_string"`
	Table      string `yaml:"table"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type JournalConfig struct {
	Dir string `yaml:"dir"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Policy.SendBuffer == 0 {
		c.Policy.SendBuffer = 64
	}
	if c.Policy.WriteTimeout == 0 {
		c.Policy.WriteTimeout = 10 * time.Second
	}
	if c.Policy.PongTimeout == 0 {
		c.Policy.PongTimeout = 60 * time.Second
	}
	if c.Policy.PingInterval == 0 {
		c.Policy.PingInterval = c.Policy.PongTimeout * 9 / 10
	}
	if c.Policy.MaxJournalSizeBytes == 0 {
		c.Policy.MaxJournalSizeBytes = 1 << 30
	}
	if c.WebSocket.Addr == "" {
		c.WebSocket.Addr = ":8080"
	}
	if c.WebSocket.Path == "" {
		c.WebSocket.Path = "/"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.Postgres.Table == "" {
		c.Postgres.Table = "sensor_records"
	}
	if c.Journal.Dir == "" {
		c.Journal.Dir = "./data/journal"
	}

	c.MQTT.ApplyDefaults()
	if c.OPCUA.Enabled {
		c.OPCUA.ApplyDefaults()
	}
}

func (c *Config) validate() error {
	if err := c.MQTT.Validate(); err != nil {
		return fmt.Errorf("mqtt config: %w", err)
	}
	if c.OPCUA.Enabled {
		if err := c.OPCUA.Validate(); err != nil {
			return fmt.Errorf("opcua config: %w", err)
		}
	}
	if c.Postgres.ConnString == "" {
		return fmt.Errorf("postgres.conn_string is required")
	}
	if c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required")
	}
	if c.Journal.Dir == "" {
		return fmt.Errorf("journal.dir is required")
	}
	return nil
}
