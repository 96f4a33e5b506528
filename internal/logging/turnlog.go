package logging

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const warningSep = "\n"

// #region log-turn
// LogTurn writes one entry to the turn_log table.
func LogTurn(db *sql.DB, entry TurnEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO turn_log (battle_tag, turn_number, condition, outcome, choice, warnings, reason, version_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.BattleTag,
		entry.Turn,
		entry.Condition,
		entry.Outcome,
		nullIfEmpty(entry.Choice),
		nullIfEmpty(strings.Join(entry.Warnings, warningSep)),
		nullIfEmpty(entry.Reason),
		nullIfEmpty(entry.VersionID),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log turn: %w", err)
	}
	return nil
}
// #endregion log-turn

// #region list-turns
// ListTurns returns the logged turns of a battle in the order they were written.
func ListTurns(db *sql.DB, battleTag string) ([]TurnEntry, error) {
	rows, err := db.Query(
		`SELECT id, battle_tag, turn_number, condition, outcome, choice, warnings, reason, version_id, created_at
		 FROM turn_log WHERE battle_tag = ? ORDER BY id`, battleTag,
	)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	var out []TurnEntry
	for rows.Next() {
		var e TurnEntry
		var choice, warnings, reason, versionID sql.NullString
		var createdStr string
		if err := rows.Scan(&e.ID, &e.BattleTag, &e.Turn, &e.Condition, &e.Outcome,
			&choice, &warnings, &reason, &versionID, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		e.Choice = choice.String
		if warnings.String != "" {
			e.Warnings = strings.Split(warnings.String, warningSep)
		}
		e.Reason = reason.String
		e.VersionID = versionID.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, e)
	}
	return out, rows.Err()
}
// #endregion list-turns

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers
