// Package history keeps the replays analysed during the current session in
// an in-memory SQLite database. Nothing is written to disk; the data is gone
// when the process exits.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"sc2summariser/internal/replay"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when an entry id is unknown
var ErrNotFound = errors.New("history entry not found")

// Entry is the listing view of one analysed replay
type Entry struct {
	ID         int64     `json:"id"`
	FileName   string    `json:"fileName"`
	Map        string    `json:"map"`
	Matchup    string    `json:"matchup"`
	Duration   string    `json:"duration"`
	AnalysedAt time.Time `json:"analysedAt"`
}

// Store is the session history
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore opens a fresh in-memory history
func NewStore() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// Every connection to :memory: is its own database, so keep exactly one.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, now: time.Now}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// init creates the schema
func (s *Store) init() error {
	schema := `
		CREATE TABLE IF NOT EXISTS replays (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			file_name   TEXT NOT NULL,
			map         TEXT NOT NULL,
			matchup     TEXT NOT NULL,
			duration    INTEGER NOT NULL,
			analysed_at TEXT NOT NULL,
			payload     TEXT NOT NULL
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create history schema: %w", err)
	}
	return nil
}

// Close releases the database. All history is lost.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores an analysis result and returns its entry id
func (s *Store) Record(ctx context.Context, fileName string, data replay.SummarisedData) (int64, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return 0, fmt.Errorf("failed to encode result: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO replays (file_name, map, matchup, duration, analysed_at, payload)
		VALUES (?, ?, ?, ?, ?, ?)
	`, fileName, data.Map, Matchup(data.Players), data.Duration,
		s.now().UTC().Format(time.RFC3339Nano), string(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to insert history entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read history id: %w", err)
	}
	return id, nil
}

// Load returns the file name and full result for an entry
func (s *Store) Load(ctx context.Context, id int64) (string, *replay.SummarisedData, error) {
	var fileName, payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT file_name, payload FROM replays WHERE id = ?`, id,
	).Scan(&fileName, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, ErrNotFound
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to query history entry: %w", err)
	}

	var data replay.SummarisedData
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return "", nil, fmt.Errorf("failed to decode history entry: %w", err)
	}
	return fileName, &data, nil
}

// List returns all entries, newest first
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, file_name, map, matchup, duration, analysed_at
		FROM replays
		ORDER BY id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var seconds int
		var analysedAt string
		if err := rows.Scan(&e.ID, &e.FileName, &e.Map, &e.Matchup, &seconds, &analysedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		e.Duration = replay.FormatSeconds(seconds)
		if t, err := time.Parse(time.RFC3339Nano, analysedAt); err == nil {
			e.AnalysedAt = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Matchup renders the roster as "Alice (Terran) vs Bob (Zerg)"
func Matchup(players []replay.PlayerStats) string {
	parts := make([]string, 0, len(players))
	for _, p := range players {
		parts = append(parts, fmt.Sprintf("%s (%s)", p.Name, p.Race))
	}
	return strings.Join(parts, " vs ")
}
