package decision

// #region imports
import (
	"encoding/json"
	"fmt"

	"github.com/danielpatrickdp/battle-trainer/internal/battle"
)

// #endregion

// #region interpret

// Interpretation is an oracle reply parsed, aligned and translated for one turn.
type Interpretation struct {
	Translation
	// Think is the oracle's stated reasoning for move and switch turns.
	Think string
	// Tactics is the team preview tactics object, verbatim. Nil on other turns.
	Tactics json.RawMessage
}

// Interpret runs the whole reply pipeline for cond. Parse failures return
// ErrUninterpretable; parse and alignment warnings are merged ahead of the
// translation warnings.
func (t *Translator) Interpret(cond battle.Condition, text string, v battle.View) (Interpretation, error) {
	switch c := cond.(type) {
	case battle.ChooseCondition:
		reply, err := ParseActions(text)
		if err != nil {
			return Interpretation{}, err
		}
		composite, aligned := AlignSlots(reply.Parts, v)
		out, err := t.Translate(composite, v)
		if err != nil {
			return Interpretation{}, fmt.Errorf("translate: %w", err)
		}
		out.Warnings = concat(reply.Warnings, aligned, out.Warnings)
		return Interpretation{Translation: out, Think: reply.Think}, nil

	case battle.ForceSwitchCondition:
		reply, err := ParseActions(text)
		if err != nil {
			return Interpretation{}, err
		}
		out, err := t.TranslateForcedSwitch(c.Forced, reply.Parts, v)
		if err != nil {
			return Interpretation{}, fmt.Errorf("translate: %w", err)
		}
		out.Warnings = concat(reply.Warnings, out.Warnings)
		return Interpretation{Translation: out, Think: reply.Think}, nil

	case battle.TeamOrderCondition:
		reply, err := ParseTeamOrder(text)
		if err != nil {
			return Interpretation{}, err
		}
		out, err := t.Translate(TeamOrder{Order: reply.Order, SelectSize: c.SelectSize}, v)
		if err != nil {
			return Interpretation{}, fmt.Errorf("translate: %w", err)
		}
		return Interpretation{Translation: out, Tactics: reply.Tactics}, nil
	}
	return Interpretation{}, fmt.Errorf("%w: condition %T", ErrUnsupportedDecision, cond)
}

func concat(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

// #endregion
