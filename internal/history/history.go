// internal/history/history.go
package history

import (
	"database/sql"
	"log"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tamzrod/greenhouse-bridge/internal/registry"
)

const createTablesSQL = `
CREATE TABLE IF NOT EXISTS readings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp TEXT NOT NULL,
    name TEXT NOT NULL,
    value REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS setpoint_changes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp TEXT NOT NULL,
    name TEXT NOT NULL,
    value REAL NOT NULL
);`

type record struct {
	table string
	name  string
	value float64
	at    time.Time
}

// Store appends readings and setpoint changes to a local SQLite file.
// Inserts happen on a dedicated goroutine behind a buffered channel so
// the acquisition loop and the command gateway never block on disk.
// Every write is best-effort: failures are logged and the record is
// dropped.
type Store struct {
	db      *sql.DB
	records chan record
	done    chan struct{}
}

// Open creates or opens the database at path and starts the writer.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(createTablesSQL); err != nil {
		db.Close()
		return nil, err
	}
	s := &Store{
		db:      db,
		records: make(chan record, 256),
		done:    make(chan struct{}),
	}
	go s.run()
	return s, nil
}

// Close drains pending records and releases the database.
func (s *Store) Close() error {
	close(s.records)
	<-s.done
	return s.db.Close()
}

// RecordReading archives one decoded value set. Implements
// acquire.Recorder.
func (s *Store) RecordReading(values map[string]registry.Value, at time.Time) {
	for name, v := range values {
		s.enqueue(record{table: "readings", name: name, value: v.AsFloat(), at: at})
	}
}

// RecordSetpointChange archives one accepted setpoint write. Implements
// command.Recorder.
func (s *Store) RecordSetpointChange(name string, v registry.Value, at time.Time) {
	s.enqueue(record{table: "setpoint_changes", name: name, value: v.AsFloat(), at: at})
}

func (s *Store) enqueue(r record) {
	select {
	case s.records <- r:
	default:
		log.Printf("history: buffer full, dropping %s record for %s", r.table, r.name)
	}
}

func (s *Store) run() {
	defer close(s.done)
	for r := range s.records {
		// Table names come from the two fixed callers above, never from
		// input.
		_, err := s.db.Exec(
			"INSERT INTO "+r.table+" (timestamp, name, value) VALUES (?, ?, ?)",
			r.at.UTC().Format("2006-01-02 15:04:05.000"), r.name, r.value,
		)
		if err != nil {
			log.Printf("history: insert into %s failed: %v", r.table, err)
		}
	}
}
