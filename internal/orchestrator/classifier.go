package orchestrator

import "github.com/danielpatrickdp/battle-trainer/internal/battle"

// Classify resolves the Condition for req. It reports false for wait
// requests, which need no decision. defaultSelect is the team preview pick
// count used when the request does not carry one.
func Classify(req battle.Request, defaultSelect int) (battle.Condition, bool) {
	switch {
	case req.Wait:
		return nil, false
	case req.TeamPreview:
		n := req.MaxTeamSize
		if n <= 0 {
			n = defaultSelect
		}
		return battle.TeamOrderCondition{SelectSize: n}, true
	}
	for _, f := range req.ForceSwitch {
		if f {
			forced := make([]bool, len(req.ForceSwitch))
			copy(forced, req.ForceSwitch)
			return battle.ForceSwitchCondition{Forced: forced}, true
		}
	}
	return battle.ChooseCondition{}, true
}
