package replay

import (
	"errors"

	"github.com/danielpatrickdp/battle-trainer/internal/battle"
	"github.com/danielpatrickdp/battle-trainer/internal/decision"
)

// #region types
// Turn is a single recorded turn for replay.
type Turn struct {
	TurnID     string
	Condition  battle.Condition
	View       battle.View
	OracleText string
}

// Result actions.
const (
	ActionSubmit          = "submit"
	ActionUninterpretable = "uninterpretable"
	ActionError           = "error"
)

// ReplayResult captures the outcome of replaying one turn through the reply pipeline.
type ReplayResult struct {
	TurnID   string
	Action   string
	Choice   string
	Warnings []string
	Reason   string
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalTurns      int
	Submitted       int
	Degraded        int // submitted with at least one warning
	Uninterpretable int
	Errors          int
}

// #endregion types

// #region replay
// Replay runs each turn's recorded oracle reply through parse, align and
// translate. No oracle or network is involved; turns are independent.
func Replay(turns []Turn, tr *decision.Translator) []ReplayResult {
	results := make([]ReplayResult, 0, len(turns))
	for _, t := range turns {
		res, err := tr.Interpret(t.Condition, t.OracleText, t.View)
		switch {
		case errors.Is(err, decision.ErrUninterpretable):
			results = append(results, ReplayResult{TurnID: t.TurnID, Action: ActionUninterpretable, Reason: err.Error()})
		case err != nil:
			results = append(results, ReplayResult{TurnID: t.TurnID, Action: ActionError, Reason: err.Error()})
		default:
			reason := res.Think
			if res.Tactics != nil {
				reason = string(res.Tactics)
			}
			results = append(results, ReplayResult{
				TurnID:   t.TurnID,
				Action:   ActionSubmit,
				Choice:   decision.FormatChoice(res.Commands),
				Warnings: res.Warnings,
				Reason:   reason,
			})
		}
	}
	return results
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult) ReplaySummary {
	s := ReplaySummary{TotalTurns: len(results)}
	for _, r := range results {
		switch r.Action {
		case ActionSubmit:
			s.Submitted++
			if len(r.Warnings) > 0 {
				s.Degraded++
			}
		case ActionUninterpretable:
			s.Uninterpretable++
		case ActionError:
			s.Errors++
		}
	}
	return s
}

// Mismatch is a turn whose replayed result differs from the fixture's expectation.
type Mismatch struct {
	TurnID   string
	Expected FixtureExpectedResult
	Actual   ReplayResult
}

// Compare matches results against expectations by turn id.
func Compare(results []ReplayResult, expected []FixtureExpectedResult) []Mismatch {
	byID := make(map[string]ReplayResult, len(results))
	for _, r := range results {
		byID[r.TurnID] = r
	}
	var out []Mismatch
	for _, e := range expected {
		r, ok := byID[e.TurnID]
		if !ok || r.Action != e.Action || r.Choice != e.Choice || len(r.Warnings) != e.Warnings {
			out = append(out, Mismatch{TurnID: e.TurnID, Expected: e, Actual: r})
		}
	}
	return out
}

// #endregion replay
