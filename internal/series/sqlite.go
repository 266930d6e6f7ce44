package series

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/VeriNexus/verinexus-speedtest/internal/store"
)

// Compile-time interface guard.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store on top of the shared SQLite database.
// All points share one table partitioned by (series, key).
type SQLiteStore struct {
	db *store.DB
}

// NewSQLiteStore runs the series migrations and returns a Store backed by db.
func NewSQLiteStore(ctx context.Context, db *store.DB) (*SQLiteStore, error) {
	if err := db.Migrate(ctx, "series", migrations); err != nil {
		return nil, fmt.Errorf("series migrations: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Last(ctx context.Context, series string) ([]Point, error) {
	// Latest point per key; id breaks ties between identical timestamps so
	// insertion order wins.
	rows, err := s.db.SQL().QueryContext(ctx, `
		SELECT p.key, p.value, p.attrs, p.ts
		FROM points p
		WHERE p.series = ?1
		  AND p.id = (
			SELECT p2.id FROM points p2
			WHERE p2.series = ?1 AND p2.key = p.key
			ORDER BY p2.ts DESC, p2.id DESC LIMIT 1
		  )
		ORDER BY p.key`,
		series,
	)
	if err != nil {
		return nil, fmt.Errorf("last %q: %w", series, err)
	}
	defer rows.Close()
	return scanPoints(rows, series)
}

func (s *SQLiteStore) Range(ctx context.Context, series, key string, from, to time.Time) ([]Point, error) {
	rows, err := s.db.SQL().QueryContext(ctx, `
		SELECT key, value, attrs, ts
		FROM points
		WHERE series = ? AND key = ? AND ts >= ? AND ts < ?
		ORDER BY ts ASC, id ASC`,
		series, key, from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("range %q/%q: %w", series, key, err)
	}
	defer rows.Close()
	return scanPoints(rows, series)
}

func (s *SQLiteStore) Append(ctx context.Context, p Point) error {
	attrs, err := encodeAttrs(p.Attrs)
	if err != nil {
		return err
	}
	_, err = s.db.SQL().ExecContext(ctx, `
		INSERT INTO points (series, key, value, attrs, ts)
		VALUES (?, ?, ?, ?, ?)`,
		p.Series, p.Key, p.Value, attrs, p.Time.UTC(),
	)
	if err != nil {
		return fmt.Errorf("append %q/%q: %w", p.Series, p.Key, err)
	}
	return nil
}

func (s *SQLiteStore) Replace(ctx context.Context, p Point) error {
	attrs, err := encodeAttrs(p.Attrs)
	if err != nil {
		return err
	}
	// Delete and insert in one transaction: a crash between the two must not
	// drop the key's current row.
	err = s.db.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM points WHERE series = ? AND key = ?`, p.Series, p.Key); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO points (series, key, value, attrs, ts)
			VALUES (?, ?, ?, ?, ?)`,
			p.Series, p.Key, p.Value, attrs, p.Time.UTC(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("replace %q/%q: %w", p.Series, p.Key, err)
	}
	return nil
}

// Delete removes every point for the key. Not part of the core Store
// surface; the administrative tooling uses it to lift suspensions.
func (s *SQLiteStore) Delete(ctx context.Context, series, key string) error {
	_, err := s.db.SQL().ExecContext(ctx,
		`DELETE FROM points WHERE series = ? AND key = ?`, series, key)
	if err != nil {
		return fmt.Errorf("delete %q/%q: %w", series, key, err)
	}
	return nil
}

func scanPoints(rows *sql.Rows, series string) ([]Point, error) {
	var points []Point
	for rows.Next() {
		var (
			p     Point
			attrs string
		)
		p.Series = series
		if err := rows.Scan(&p.Key, &p.Value, &attrs, &p.Time); err != nil {
			return nil, fmt.Errorf("scan point: %w", err)
		}
		if attrs != "" && attrs != "{}" {
			if err := json.Unmarshal([]byte(attrs), &p.Attrs); err != nil {
				return nil, fmt.Errorf("decode attrs for %q/%q: %w", series, p.Key, err)
			}
		}
		p.Time = p.Time.UTC()
		points = append(points, p)
	}
	return points, rows.Err()
}

func encodeAttrs(attrs map[string]string) (string, error) {
	if len(attrs) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(attrs)
	if err != nil {
		return "", fmt.Errorf("encode attrs: %w", err)
	}
	return string(b), nil
}

// migrations defines the shared points schema.
var migrations = []store.Migration{
	{
		Version:     1,
		Description: "create points table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE points (
					id     INTEGER PRIMARY KEY AUTOINCREMENT,
					series TEXT NOT NULL,
					key    TEXT NOT NULL,
					value  TEXT NOT NULL,
					attrs  TEXT NOT NULL DEFAULT '{}',
					ts     DATETIME NOT NULL
				)`)
			if err != nil {
				return err
			}
			_, err = tx.Exec(`
				CREATE INDEX idx_points_series_key_ts
				ON points (series, key, ts)`)
			return err
		},
	},
}
