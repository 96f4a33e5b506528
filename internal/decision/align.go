package decision

// #region imports
import (
	"fmt"

	"github.com/danielpatrickdp/battle-trainer/internal/battle"
)

// #endregion

// #region align-slots

// AlignSlots turns the oracle's per-action decisions into a Composite with one
// entry per active slot. A fainted lead gets a leading Pass, missing trailing
// slots are filled with Pass, and every ChooseMove gets Slot = its index.
func AlignSlots(parts []Decision, v battle.View) (Composite, []string) {
	var warnings []string
	aligned := make([]Decision, 0, len(parts)+1)

	if v.LeadFainted() {
		aligned = append(aligned, Pass{})
	}
	aligned = append(aligned, parts...)

	if n := v.ActiveCount(); n > 0 {
		if len(aligned) > n {
			warnings = append(warnings, fmt.Sprintf("oracle supplied %d actions for %d slots, extra dropped", len(aligned), n))
			aligned = aligned[:n]
		}
		for len(aligned) < n {
			aligned = append(aligned, Pass{})
		}
	}

	for i, d := range aligned {
		if m, ok := d.(ChooseMove); ok {
			m.Slot = i
			aligned[i] = m
		}
	}
	return Composite{Parts: aligned}, warnings
}

// #endregion

// #region align-forced

// AlignForcedSwitch walks forced and the oracle's actions in lockstep. A slot
// that is not forced passes; a forced slot takes the next action, which must
// be a Switch. Missing or non-switch actions degrade to Pass with a warning.
func AlignForcedSwitch(forced []bool, actions []Decision) ([]Decision, []string) {
	var warnings []string
	out := make([]Decision, len(forced))
	next := 0
	for i, f := range forced {
		if !f {
			out[i] = Pass{}
			continue
		}
		if next >= len(actions) {
			out[i] = Pass{}
			warnings = append(warnings, fmt.Sprintf("slot %d: forced switch has no oracle switch-in", i))
			continue
		}
		a := actions[next]
		next++
		sw, ok := a.(Switch)
		if !ok {
			out[i] = Pass{}
			warnings = append(warnings, fmt.Sprintf("slot %d: forced switch got %T, not a switch", i, a))
			continue
		}
		out[i] = sw
	}
	return out, warnings
}

// #endregion
