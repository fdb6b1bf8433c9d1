package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"rentsplit/internal/events"

	_ "modernc.org/sqlite"
)

// Fixed width so created_at sorts chronologically as text.
const activityTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ActivityRepository is the sqlite-backed activity log. It implements
// events.Sink.
type ActivityRepository struct {
	db *sql.DB
}

func NewActivityRepository(dbPath string) (*ActivityRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; sqlite serializes anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &ActivityRepository{db: db}, nil
}

func (r *ActivityRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Save implements events.Sink. Saving an event id twice keeps the first copy.
func (r *ActivityRepository) Save(ctx context.Context, e events.Event) error {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("encode event data: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO activity (id, event_type, month, data, created_at) VALUES (?, ?, ?, ?, ?) ON CONFLICT(id) DO NOTHING`,
		e.ID.String(), e.Type, e.Month, string(data), e.CreatedAt.UTC().Format(activityTimeLayout))
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (r *ActivityRepository) Recent(ctx context.Context, limit int) ([]events.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, event_type, month, data, created_at FROM activity ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var (
			id, typ, month, data, created string
		)
		if err := rows.Scan(&id, &typ, &month, &data, &created); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		e := events.Event{Type: typ, Month: month, Data: map[string]string{}}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse activity id %q: %w", id, err)
		}
		if err := json.Unmarshal([]byte(data), &e.Data); err != nil {
			return nil, fmt.Errorf("decode activity data: %w", err)
		}
		if e.CreatedAt, err = time.Parse(activityTimeLayout, created); err != nil {
			return nil, fmt.Errorf("parse activity time %q: %w", created, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Ping checks the database connection.
func (r *ActivityRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
