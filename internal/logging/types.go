package logging

import "time"

// #region turn-entry
// TurnEntry is a single row in the turn_log table: what one turn produced.
type TurnEntry struct {
	ID        int64
	BattleTag string
	Turn      int
	Condition string // "choose" | "force_switch" | "team_order"
	Outcome   string // "submitted" | "stale" | "failed"
	Choice    string // simulator choice string, empty unless submitted
	Warnings  []string
	Reason    string
	VersionID string // plan version the decision was made under
	CreatedAt time.Time
}
// #endregion turn-entry
