// Package journal records every ingestion outcome in an embedded DuckDB
// file. Validation and dedup are silent toward the original views, so the
// journal is the audit trail: which files were staged, which were turned
// away and why.
package journal

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/marcboeker/go-duckdb"
)

// Outcome classifies one journaled ingestion event.
type Outcome string

const (
	OutcomeStaged   Outcome = "staged"
	OutcomeRejected Outcome = "rejected"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeRemoved  Outcome = "removed"
	OutcomeCleared  Outcome = "cleared"
)

// Event is one journal row.
type Event struct {
	ID        int64     `json:"id"`
	BatchID   string    `json:"batchId"`
	Source    string    `json:"source"` // "drop", "picker", "api"
	FileName  string    `json:"fileName"`
	Size      int64     `json:"size"`
	Outcome   Outcome   `json:"outcome"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Journal stores events in a DuckDB database file.
type Journal struct {
	mu     sync.Mutex
	db     *sql.DB
	nextID int64
}

// Open creates or opens the journal database under the given directory.
func Open(dir string) (*Journal, error) {
	dbPath := filepath.Join(dir, "ingest_journal.duckdb")

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			"PRAGMA memory_limit='256MB'",
			"PRAGMA threads=2",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating journal connector: %w", err)
	}

	db := sql.OpenDB(connector)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id         BIGINT PRIMARY KEY,
			batch_id   VARCHAR NOT NULL,
			source     VARCHAR NOT NULL,
			file_name  VARCHAR NOT NULL,
			size       BIGINT NOT NULL,
			outcome    VARCHAR NOT NULL,
			reason     VARCHAR,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating events table: %w", err)
	}

	j := &Journal{db: db}
	if err := db.QueryRow(`SELECT COALESCE(MAX(id), 0) FROM events`).Scan(&j.nextID); err != nil {
		db.Close()
		return nil, fmt.Errorf("reading journal head: %w", err)
	}

	return j, nil
}

// Record appends a batch of events in one transaction.
func (j *Journal) Record(events []Event) error {
	if len(events) == 0 {
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	tx, err := j.db.Begin()
	if err != nil {
		return fmt.Errorf("starting journal tx: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO events (id, batch_id, source, file_name, size, outcome, reason, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing journal insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		j.nextID++
		at := e.CreatedAt
		if at.IsZero() {
			at = time.Now()
		}
		if _, err := stmt.Exec(j.nextID, e.BatchID, e.Source, e.FileName, e.Size, string(e.Outcome), e.Reason, at); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting journal event: %w", err)
		}
	}

	return tx.Commit()
}

// Recent returns journaled events newest first, paginated, plus the total
// row count.
func (j *Journal) Recent(ctx context.Context, page, pageSize int) ([]Event, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}

	var total int
	if err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting journal events: %w", err)
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT id, batch_id, source, file_name, size, outcome, reason, created_at
		 FROM events ORDER BY id DESC LIMIT ? OFFSET ?`,
		pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("querying journal events: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0, pageSize)
	for rows.Next() {
		var e Event
		var outcome string
		var reason sql.NullString
		if err := rows.Scan(&e.ID, &e.BatchID, &e.Source, &e.FileName, &e.Size, &outcome, &reason, &e.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scanning journal event: %w", err)
		}
		e.Outcome = Outcome(outcome)
		e.Reason = reason.String
		events = append(events, e)
	}

	return events, total, rows.Err()
}

// CleanupOlderThan deletes events past the retention window.
func (j *Journal) CleanupOlderThan(maxAge time.Duration) error {
	cutoff := time.Now().Add(-maxAge)
	_, err := j.db.Exec(`DELETE FROM events WHERE created_at < ?`, cutoff)
	return err
}

// Close releases the database.
func (j *Journal) Close() error {
	return j.db.Close()
}
