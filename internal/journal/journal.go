// Package journal keeps a history of captures in SQLite. The account store
// only ever holds the latest capture; the journal is what survives a restart.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"github.com/gravitas-games/sekaiscout/internal/gamemap"
	"github.com/gravitas-games/sekaiscout/pkg/models"
)

// Capture is one processed payload for one account.
type Capture struct {
	ID         uuid.UUID
	AccountID  string
	CapturedAt time.Time
	HarvestMap gamemap.HarvestMap
	Matches    []models.DiamondPlace
}

// Entry is the summary row of a capture.
type Entry struct {
	ID         string    `json:"id"`
	AccountID  string    `json:"account_id"`
	CapturedAt time.Time `json:"captured_at"`
	SiteCount  int       `json:"site_count"`
	DropCount  int       `json:"drop_count"`
	MatchCount int       `json:"match_count"`
}

type blob struct {
	HarvestMap gamemap.HarvestMap    `json:"harvest_map"`
	Matches    []models.DiamondPlace `json:"matches"`
}

// Journal is safe for concurrent use; SQLite access goes through a single
// connection.
type Journal struct {
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Open creates the database file and its directory if needed.
func Open(path string) (*Journal, error) {
	if path == "" {
		return nil, errors.New("empty journal path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create journal dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		_ = db.Close()
		return nil, err
	}
	return &Journal{db: db, enc: enc, dec: dec}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("pragma %q: %w", p, err)
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS captures (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			account_id TEXT NOT NULL,
			captured_at INTEGER NOT NULL,
			site_count INTEGER NOT NULL,
			drop_count INTEGER NOT NULL,
			match_count INTEGER NOT NULL,
			payload BLOB NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_captures_account_seq ON captures(account_id, seq);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("failed to init journal schema: %w", err)
		}
	}
	return nil
}

// Record appends c. A zero ID is replaced with a fresh one.
func (j *Journal) Record(ctx context.Context, c Capture) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	raw, err := json.Marshal(blob{HarvestMap: c.HarvestMap, Matches: c.Matches})
	if err != nil {
		return fmt.Errorf("failed to encode capture: %w", err)
	}
	payload := j.enc.EncodeAll(raw, nil)

	_, err = j.db.ExecContext(ctx,
		`INSERT INTO captures(id, account_id, captured_at, site_count, drop_count, match_count, payload)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		c.ID.String(), c.AccountID, c.CapturedAt.UnixMilli(),
		len(c.HarvestMap), c.HarvestMap.DropCount(), len(c.Matches), payload,
	)
	if err != nil {
		return fmt.Errorf("failed to record capture: %w", err)
	}
	return nil
}

// Recent lists up to limit captures for an account, newest first.
func (j *Journal) Recent(ctx context.Context, accountID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, account_id, captured_at, site_count, drop_count, match_count
		 FROM captures WHERE account_id = ? ORDER BY seq DESC LIMIT ?`,
		accountID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query captures: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e  Entry
			ms int64
		)
		if err := rows.Scan(&e.ID, &e.AccountID, &ms, &e.SiteCount, &e.DropCount, &e.MatchCount); err != nil {
			return nil, err
		}
		e.CapturedAt = time.UnixMilli(ms).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LatestPerAccount returns the newest full capture of every account.
func (j *Journal) LatestPerAccount(ctx context.Context) ([]Capture, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT c.id, c.account_id, c.captured_at, c.payload
		 FROM captures c
		 JOIN (SELECT account_id, MAX(seq) AS seq FROM captures GROUP BY account_id) latest
		   ON latest.seq = c.seq
		 ORDER BY c.account_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest captures: %w", err)
	}
	defer rows.Close()

	var captures []Capture
	for rows.Next() {
		var (
			id      string
			c       Capture
			ms      int64
			payload []byte
		)
		if err := rows.Scan(&id, &c.AccountID, &ms, &payload); err != nil {
			return nil, err
		}
		if c.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("capture %q: %w", id, err)
		}
		c.CapturedAt = time.UnixMilli(ms).UTC()

		raw, err := j.dec.DecodeAll(payload, nil)
		if err != nil {
			return nil, fmt.Errorf("capture %s: %w", id, err)
		}
		var b blob
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("capture %s: %w", id, err)
		}
		c.HarvestMap = b.HarvestMap
		c.Matches = b.Matches
		captures = append(captures, c)
	}
	return captures, rows.Err()
}

func (j *Journal) Close() error {
	j.dec.Close()
	_ = j.enc.Close()
	return j.db.Close()
}
