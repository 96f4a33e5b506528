package knowledge

// #region imports
import (
	"database/sql"
	"fmt"
	"time"
)

// #endregion imports

// #region types

// Entry is one stored battle summary.
type Entry struct {
	Team      string
	SeriesKey string
	Summary   string
	CreatedAt time.Time
}

// #endregion types

// #region store

// Store persists team knowledge in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates the team_knowledge table if needed and returns a store.
func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.init(); err != nil {
		return nil, fmt.Errorf("init team_knowledge: %w", err)
	}
	return s, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS team_knowledge (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		team TEXT NOT NULL,
		series_key TEXT NOT NULL,
		summary TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`)
	return err
}

// Save stores a summary for team under seriesKey.
func (s *Store) Save(team, seriesKey, summary string) error {
	_, err := s.db.Exec(
		`INSERT INTO team_knowledge (team, series_key, summary, created_at) VALUES (?, ?, ?, ?)`,
		team, seriesKey, summary, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save knowledge: %w", err)
	}
	return nil
}

// List returns every entry for team in insertion order.
func (s *Store) List(team string) ([]Entry, error) {
	rows, err := s.db.Query(
		`SELECT team, series_key, summary, created_at FROM team_knowledge WHERE team = ? ORDER BY id`, team,
	)
	if err != nil {
		return nil, fmt.Errorf("list knowledge: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var createdAt string
		if err := rows.Scan(&e.Team, &e.SeriesKey, &e.Summary, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion store
