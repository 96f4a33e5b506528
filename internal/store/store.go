package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/battle-trainer/internal/plan"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS plan_versions (
	version_id    TEXT PRIMARY KEY,
	battle_tag    TEXT NOT NULL,
	plan_id       TEXT NOT NULL,
	parent_id     TEXT,
	status        TEXT NOT NULL,
	turn_number   INTEGER NOT NULL DEFAULT 0,
	plan_json     TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (parent_id) REFERENCES plan_versions(version_id)
);

CREATE INDEX IF NOT EXISTS idx_plan_versions_battle ON plan_versions(battle_tag, created_at);

CREATE TABLE IF NOT EXISTS active_plans (
	battle_tag    TEXT PRIMARY KEY,
	version_id    TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES plan_versions(version_id)
);

CREATE TABLE IF NOT EXISTS plan_adjustments (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	battle_tag    TEXT NOT NULL,
	plan_id       TEXT NOT NULL,
	version_id    TEXT NOT NULL,
	turn_number   INTEGER NOT NULL,
	type          TEXT NOT NULL,
	reason        TEXT,
	changes       TEXT,
	diff          TEXT,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES plan_versions(version_id)
);

CREATE TABLE IF NOT EXISTS turn_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	battle_tag    TEXT NOT NULL,
	turn_number   INTEGER NOT NULL,
	condition     TEXT NOT NULL,
	outcome       TEXT NOT NULL,
	choice        TEXT,
	warnings      TEXT,
	reason        TEXT,
	version_id    TEXT,
	created_at    TEXT NOT NULL
);
`
// #endregion schema

// #region store-struct
// Store keeps versioned battle plans in SQLite, one active pointer per battle.
type Store struct {
	db *sql.DB
}
// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}
// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (logging, knowledge).
func (s *Store) DB() *sql.DB {
	return s.db
}
// #endregion db-accessor

// #region commit-plan
// CommitPlan stores p as a new version for tag, chained to the battle's
// current version, and makes it active in one transaction.
func (s *Store) CommitPlan(tag string, p plan.Plan, turn int) (Version, error) {
	v := Version{
		VersionID: uuid.New().String(),
		BattleTag: tag,
		PlanID:    p.ID,
		Status:    p.Status,
		Turn:      turn,
		PlanJSON:  plan.Serialize(p),
		CreatedAt: time.Now().UTC(),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return Version{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var parent sql.NullString
	err = tx.QueryRow(`SELECT version_id FROM active_plans WHERE battle_tag = ?`, tag).Scan(&parent)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Version{}, fmt.Errorf("get active: %w", err)
	}
	var parentPtr interface{}
	if parent.Valid {
		v.ParentID = parent.String
		parentPtr = parent.String
	}

	_, err = tx.Exec(
		`INSERT INTO plan_versions (version_id, battle_tag, plan_id, parent_id, status, turn_number, plan_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		v.VersionID, tag, v.PlanID, parentPtr, string(v.Status), turn, v.PlanJSON,
		v.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Version{}, fmt.Errorf("insert version: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO active_plans (battle_tag, version_id) VALUES (?, ?)
		 ON CONFLICT(battle_tag) DO UPDATE SET version_id = excluded.version_id`,
		tag, v.VersionID,
	)
	if err != nil {
		return Version{}, fmt.Errorf("set active: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Version{}, fmt.Errorf("commit: %w", err)
	}
	log.Printf("[STORE] %s: plan %s version %s (turn %d, %s)", tag, v.PlanID, v.VersionID, turn, v.Status)
	return v, nil
}
// #endregion commit-plan

// #region current
// Current returns the active version for tag, or ErrNotFound.
func (s *Store) Current(tag string) (Version, error) {
	var versionID string
	err := s.db.QueryRow(`SELECT version_id FROM active_plans WHERE battle_tag = ?`, tag).Scan(&versionID)
	if errors.Is(err, sql.ErrNoRows) {
		return Version{}, fmt.Errorf("active plan for %s: %w", tag, ErrNotFound)
	}
	if err != nil {
		return Version{}, fmt.Errorf("get active: %w", err)
	}
	return s.GetVersion(versionID)
}
// #endregion current

// #region get-version
const versionColumns = `version_id, battle_tag, plan_id, parent_id, status, turn_number, plan_json, created_at`

// GetVersion retrieves a specific plan version by ID.
func (s *Store) GetVersion(id string) (Version, error) {
	row := s.db.QueryRow(`SELECT `+versionColumns+` FROM plan_versions WHERE version_id = ?`, id)
	v, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Version{}, fmt.Errorf("version %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Version{}, fmt.Errorf("get version %s: %w", id, err)
	}
	return v, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVersion(r rowScanner) (Version, error) {
	var v Version
	var parentID sql.NullString
	var status, createdStr string
	if err := r.Scan(&v.VersionID, &v.BattleTag, &v.PlanID, &parentID, &status, &v.Turn, &v.PlanJSON, &createdStr); err != nil {
		return Version{}, err
	}
	if parentID.Valid {
		v.ParentID = parentID.String
	}
	v.Status = plan.Status(status)
	v.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return v, nil
}
// #endregion get-version

// #region list-versions
// ListVersions returns the most recent versions for tag, newest first.
func (s *Store) ListVersions(tag string, limit int) ([]Version, error) {
	rows, err := s.db.Query(
		`SELECT `+versionColumns+` FROM plan_versions WHERE battle_tag = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`, tag, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var versions []Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}
// #endregion list-versions

// #region list-battles
// ListBattles summarises every battle with an active plan, most recent first.
func (s *Store) ListBattles(limit int) ([]BattleSummary, error) {
	rows, err := s.db.Query(
		`SELECT a.battle_tag, v.version_id, v.status, v.turn_number,
		        (SELECT COUNT(*) FROM plan_versions c WHERE c.battle_tag = a.battle_tag)
		 FROM active_plans a JOIN plan_versions v ON v.version_id = a.version_id
		 ORDER BY v.created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list battles: %w", err)
	}
	defer rows.Close()

	var out []BattleSummary
	for rows.Next() {
		var b BattleSummary
		var status string
		if err := rows.Scan(&b.BattleTag, &b.VersionID, &status, &b.Turn, &b.Versions); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		b.Status = plan.Status(status)
		out = append(out, b)
	}
	return out, rows.Err()
}
// #endregion list-battles

// #region rollback
// Rollback points tag's active plan at an earlier version of the same battle.
func (s *Store) Rollback(tag, targetVersionID string) error {
	var owner string
	err := s.db.QueryRow(
		`SELECT battle_tag FROM plan_versions WHERE version_id = ?`, targetVersionID,
	).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && owner != tag) {
		return fmt.Errorf("version %s for %s: %w", targetVersionID, tag, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("check version: %w", err)
	}

	_, err = s.db.Exec(`UPDATE active_plans SET version_id = ? WHERE battle_tag = ?`, targetVersionID, tag)
	if err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	log.Printf("[STORE] %s: rolled back to %s", tag, targetVersionID)
	return nil
}
// #endregion rollback

// #region adjustments
// RecordAdjustment appends an adjustment audit row.
func (s *Store) RecordAdjustment(rec AdjustmentRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO plan_adjustments (battle_tag, plan_id, version_id, turn_number, type, reason, changes, diff, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.BattleTag, rec.PlanID, rec.VersionID, rec.Turn, string(rec.Type),
		nullIfEmpty(rec.Reason), nullIfEmpty(rec.Changes), nullIfEmpty(rec.Diff),
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record adjustment: %w", err)
	}
	return nil
}

// ListAdjustments returns the adjustment rows for tag in the order they were written.
func (s *Store) ListAdjustments(tag string) ([]AdjustmentRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, battle_tag, plan_id, version_id, turn_number, type, reason, changes, diff, created_at
		 FROM plan_adjustments WHERE battle_tag = ? ORDER BY id`, tag,
	)
	if err != nil {
		return nil, fmt.Errorf("list adjustments: %w", err)
	}
	defer rows.Close()

	var out []AdjustmentRecord
	for rows.Next() {
		var rec AdjustmentRecord
		var typ, createdStr string
		var reason, changes, diff sql.NullString
		if err := rows.Scan(&rec.ID, &rec.BattleTag, &rec.PlanID, &rec.VersionID, &rec.Turn, &typ,
			&reason, &changes, &diff, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rec.Type = plan.AdjustmentType(typ)
		rec.Reason = reason.String
		rec.Changes = changes.String
		rec.Diff = diff.String
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, rec)
	}
	return out, rows.Err()
}
// #endregion adjustments

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers
