package plan

// #region imports
import (
	"encoding/json"
	"log"
	"strings"
)

// #endregion

// #region serialize

// Serialize renders p as indented camelCase JSON with empty fields omitted.
func Serialize(p Plan) string {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		// Plan holds only strings, ints, bools and times.
		log.Printf("[PLAN] serialize %s: %v", p.ID, err)
		return ""
	}
	return string(data)
}

// Deserialize parses a serialized plan. Empty or malformed input, or a
// document without a plan id, yields false rather than an error. A missing
// status reads as Active and a missing phase status as Pending.
func Deserialize(s string) (Plan, bool) {
	if strings.TrimSpace(s) == "" {
		return Plan{}, false
	}
	var p Plan
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		log.Printf("[PLAN] deserialize: %v", err)
		return Plan{}, false
	}
	if p.ID == "" {
		return Plan{}, false
	}
	if p.Status == "" {
		p.Status = StatusActive
	}
	for i := range p.BattlePhases {
		if p.BattlePhases[i].Status == "" {
			p.BattlePhases[i].Status = PhasePending
		}
	}
	return p, true
}

// #endregion
