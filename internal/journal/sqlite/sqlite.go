package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/docrelay/internal/journal"
)

const defaultQueueSize = 256

const schema = `
	CREATE TABLE IF NOT EXISTS activity (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		kind       TEXT NOT NULL,
		doc_id     TEXT NOT NULL,
		conn_id    TEXT NOT NULL,
		uid        TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_activity_doc ON activity(doc_id, id DESC);
`

// Store implements journal.Journal on top of SQLite.
// Entries are written by a single background worker fed through a bounded queue.
type Store struct {
	db    *sql.DB
	log   *zerolog.Logger
	queue chan journal.Entry
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

// New opens (or creates) the journal database at dbPath and starts the writer.
// queueSize <= 0 selects a default.
func New(dbPath string, queueSize int, logger *zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	s := &Store{
		db:    db,
		log:   logger,
		queue: make(chan journal.Entry, queueSize),
		done:  make(chan struct{}),
	}
	go s.writeLoop()

	return s, nil
}

// Record enqueues an entry. It never blocks: a full queue drops the entry.
func (s *Store) Record(e journal.Entry) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}

	select {
	case s.queue <- e:
	default:
		s.log.Warn().Str("doc_id", e.DocID).Str("kind", string(e.Kind)).Msg("activity journal queue full, entry dropped")
	}
}

// Recent returns up to limit entries for docID in chronological order.
func (s *Store) Recent(ctx context.Context, docID string, limit int) ([]journal.Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, kind, doc_id, conn_id, uid, created_at
		FROM activity
		WHERE doc_id = ?
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, docID, limit)
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	defer rows.Close()

	entries := make([]journal.Entry, 0, limit)
	for rows.Next() {
		var (
			e    journal.Entry
			kind string
		)
		if err := rows.Scan(&e.ID, &kind, &e.DocID, &e.ConnID, &e.UID, &e.At); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		e.Kind = journal.Kind(kind)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity: %w", err)
	}

	// Reverse to get chronological order
	for i := 0; i < len(entries)/2; i++ {
		j := len(entries) - 1 - i
		entries[i], entries[j] = entries[j], entries[i]
	}

	return entries, nil
}

// Close stops accepting entries, flushes the queue, and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	<-s.done
	return s.db.Close()
}

func (s *Store) writeLoop() {
	defer close(s.done)

	for e := range s.queue {
		if err := s.insert(context.Background(), e); err != nil {
			s.log.Error().Err(err).Str("doc_id", e.DocID).Msg("failed to write activity entry")
		}
	}
}

func (s *Store) insert(ctx context.Context, e journal.Entry) error {
	query := `
		INSERT INTO activity (kind, doc_id, conn_id, uid, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, string(e.Kind), e.DocID, e.ConnID, e.UID, e.At.UTC()); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}
