package relaybridge

import (
	"github.com/Poltergeis/api-local-websockets/internal/adapters/mqtt"
	"github.com/Poltergeis/api-local-websockets/internal/adapters/opcua"
	"github.com/Poltergeis/api-local-websockets/internal/app/config"
	"github.com/Poltergeis/api-local-websockets/internal/ports"
)

// Config re-exports the root configuration struct so downstream projects
// can construct or modify it programmatically.
type Config = config.Config

type (
	// Policy controls send buffers, write deadlines, and journal limits.
	Policy = ports.Policy
	// MQTTConfig holds broker connection + topic details.
	MQTTConfig = mqtt.Config
	// OPCUAConfig holds the optional OPC UA ingest settings.
	OPCUAConfig = config.OPCUAConfig
	// OPCUANodeConfig maps a monitored tag onto a relay topic.
	OPCUANodeConfig = opcua.NodeConfig
	// WebSocketConfig configures the client-facing listener.
	WebSocketConfig = config.WebSocketConfig
	// PostgresConfig configures the record store.
	PostgresConfig = config.PostgresConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// JournalConfig configures the on-disk dead-letter journal.
	JournalConfig = config.JournalConfig
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}
