package plan

// #region imports
import (
	"errors"
	"fmt"
	"time"
)

// #endregion

// ErrInvalidTransition is returned for a status change the lifecycle does not allow.
var ErrInvalidTransition = errors.New("invalid plan status transition")

// #region transitions

// validTransitions lists the legal status changes. Completed and Failed are terminal.
var validTransitions = map[Status]map[Status]bool{
	StatusActive:    {StatusAdjusting: true, StatusCompleted: true, StatusFailed: true},
	StatusAdjusting: {StatusActive: true, StatusFailed: true},
}

// CanTransition reports whether from -> to is legal.
func CanTransition(from, to Status) bool {
	return validTransitions[from][to]
}

// #endregion

// #region with

// WithStatus returns a copy of p in status s.
func (p Plan) WithStatus(s Status, now time.Time) (Plan, error) {
	if !CanTransition(p.Status, s) {
		return p, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, s)
	}
	out := p.Clone()
	out.Status = s
	out.LastUpdated = later(p.LastUpdated, now)
	return out, nil
}

// WithProgress returns a copy of p with every phase's ActualTurns raised to at
// least turn. Phase statuses are left alone.
func (p Plan) WithProgress(turn int, now time.Time) Plan {
	out := p.Clone()
	for i := range out.BattlePhases {
		out.BattlePhases[i].ActualTurns = max(out.BattlePhases[i].ActualTurns, turn)
	}
	out.LastUpdated = later(p.LastUpdated, now)
	return out
}

// WithContent returns a copy of p whose objective, phases, tactics and risk
// come from c. ID, CreatedAt, Status and history are kept.
func (p Plan) WithContent(c Content, now time.Time) Plan {
	out := p.Clone()
	c = c.clone()
	out.OverallObjective = c.OverallObjective
	out.BattlePhases = c.BattlePhases
	out.KeyTactics = c.KeyTactics
	out.RiskAssessment = c.RiskAssessment
	out.LastUpdated = later(p.LastUpdated, now)
	return out
}

// WithAdjustment returns a copy of p with a appended to its history. The turn
// number never goes below the previous entry's.
func (p Plan) WithAdjustment(a Adjustment) Plan {
	out := p.Clone()
	if n := len(out.AdjustmentHistory); n > 0 {
		last := out.AdjustmentHistory[n-1]
		a.TurnNumber = max(a.TurnNumber, last.TurnNumber)
		a.Timestamp = later(last.Timestamp, a.Timestamp)
	}
	a.TurnNumber = max(a.TurnNumber, 0)
	out.AdjustmentHistory = append(out.AdjustmentHistory, a)
	out.LastUpdated = later(p.LastUpdated, a.Timestamp)
	return out
}

func later(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

// #endregion
