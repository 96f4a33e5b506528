package store

import (
	"errors"
	"time"

	"github.com/danielpatrickdp/battle-trainer/internal/plan"
)

// ErrNotFound is returned when a battle or version has no stored row.
var ErrNotFound = errors.New("not found")

// #region version
// Version is one committed plan value for a battle. Versions form a chain via ParentID.
type Version struct {
	VersionID string
	BattleTag string
	PlanID    string
	ParentID  string
	Status    plan.Status
	Turn      int
	PlanJSON  string
	CreatedAt time.Time
}
// #endregion version

// #region adjustment-record
// AdjustmentRecord is the audit row written next to each plan adjustment.
type AdjustmentRecord struct {
	ID        int64
	BattleTag string
	PlanID    string
	VersionID string
	Turn      int
	Type      plan.AdjustmentType
	Reason    string
	Changes   string
	Diff      string
	CreatedAt time.Time
}
// #endregion adjustment-record

// #region battle-summary
// BattleSummary is one row of ListBattles.
type BattleSummary struct {
	BattleTag string
	VersionID string
	Status    plan.Status
	Turn      int
	Versions  int
}
// #endregion battle-summary
