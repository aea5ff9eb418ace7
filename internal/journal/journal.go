package journal

import (
	"context"
	"time"
)

// Kind names a membership transition.
type Kind string

const (
	KindJoin       Kind = "join"
	KindLeave      Kind = "leave"
	KindDisconnect Kind = "disconnect"
)

// Entry is one recorded membership transition.
type Entry struct {
	ID     int64
	Kind   Kind
	DocID  string
	ConnID string
	UID    string
	At     time.Time
}

// Recorder accepts entries without blocking the caller.
// Implementations may drop entries under pressure.
type Recorder interface {
	Record(e Entry)
}

// Reader lists recorded entries.
type Reader interface {
	// Recent returns up to limit entries for docID, oldest first.
	Recent(ctx context.Context, docID string, limit int) ([]Entry, error)
}

// Journal is a recorder that can also be queried and closed.
type Journal interface {
	Recorder
	Reader

	// Close flushes pending entries and releases the underlying storage.
	Close() error
}

// Nop discards every entry.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(Entry) {}
