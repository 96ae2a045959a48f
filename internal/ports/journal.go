package ports

import (
	"errors"
	"time"
)

// ErrJournalFull reports that the journal reached the configured size
// cap and the entry was not appended.
var ErrJournalFull = errors.New("drop journal full")

// JournalEntryID uniquely identifies a journal entry.
type JournalEntryID uint64

// DroppedMessage is a broker payload that could not be decoded into an
// envelope. It is journaled for later inspection and then dropped.
type DroppedMessage struct {
	Topic      string    `json:"topic"`
	Payload    []byte    `json:"payload"`
	Reason     string    `json:"reason"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// DropJournal is an append-only dead-letter journal for undecodable
// broker messages.
type DropJournal interface {
	Append(m *DroppedMessage) (JournalEntryID, error)
	Iterate(from JournalEntryID, fn func(id JournalEntryID, m *DroppedMessage) error) error
	Stats() JournalStats
}

// JournalStats exposes journal metadata for observability.
type JournalStats struct {
	LatestAppended JournalEntryID
	SizeBytes      int64
}
