package plan

// #region imports
import (
	"encoding/json"
	"strings"

	"github.com/danielpatrickdp/battle-trainer/internal/oracle"
)

// #endregion

// unparsedReason is the Reason of an Evaluation whose reply could not be read.
const unparsedReason = "Unable to parse evaluation response"

// #region evaluation

// Evaluation is the oracle's verdict on whether a plan still fits the battle.
type Evaluation struct {
	NeedsAdjustment  bool
	Reason           string
	Type             AdjustmentType
	SuggestedChanges []string
}

type rawEvaluation struct {
	NeedsAdjustment  *bool    `json:"needsAdjustment"`
	Reason           string   `json:"reason"`
	AdjustmentType   string   `json:"adjustmentType"`
	SuggestedChanges []string `json:"suggestedChanges"`
}

// ParseEvaluation reads a strict JSON verdict. Any failure, including a
// missing needsAdjustment field, yields NeedsAdjustment=false with a
// diagnostic reason.
func ParseEvaluation(text string) Evaluation {
	var raw rawEvaluation
	if err := json.Unmarshal([]byte(oracle.ExtractJSON(text)), &raw); err != nil || raw.NeedsAdjustment == nil {
		return Evaluation{Reason: unparsedReason, Type: AdjustMinor}
	}
	ev := Evaluation{
		NeedsAdjustment: *raw.NeedsAdjustment,
		Reason:          strings.TrimSpace(raw.Reason),
		Type:            parseAdjustmentType(raw.AdjustmentType),
	}
	for _, c := range raw.SuggestedChanges {
		if c = strings.TrimSpace(c); c != "" {
			ev.SuggestedChanges = append(ev.SuggestedChanges, c)
		}
	}
	if ev.Reason == "" {
		ev.Reason = "no reason given"
	}
	return ev
}

func parseAdjustmentType(s string) AdjustmentType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "major":
		return AdjustMajor
	case "complete":
		return AdjustComplete
	default:
		return AdjustMinor
	}
}

// #endregion
