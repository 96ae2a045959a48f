package ports

import "time"

// Policy tunes the serving side of the relay.
type Policy struct {
	// SendBuffer is the per-client outbound channel capacity. A client
	// whose buffer is full during a broadcast is treated as failed.
	SendBuffer int `yaml:"send_buffer"`

	// WriteTimeout bounds a single WebSocket write.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// PingInterval is the server-initiated ping period; PongTimeout is
	// how long a client may stay silent before its reads fail.
	PingInterval time.Duration `yaml:"ping_interval"`
	PongTimeout  time.Duration `yaml:"pong_timeout"`

	// MaxJournalSizeBytes stops journaling (but keeps dropping) once
	// the dead-letter journal reaches this size. Zero selects the
	// configured default; a negative value removes the cap.
	MaxJournalSizeBytes int64 `yaml:"max_journal_size_bytes"`
}
