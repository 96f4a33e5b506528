package decision

// #region imports
import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/danielpatrickdp/battle-trainer/internal/battle"
)

// #endregion

// #region policy

// OrderFacts describes a resolved team order for a TeamOrderPolicy.
type OrderFacts struct {
	SelectSize int // members the format brings
	Resolved   int // references that resolved to a distinct roster member
	Requested  int // references the oracle supplied
	TeamSize   int // full roster size
}

// TeamOrderPolicy decides whether a resolved team order may be sent as is.
type TeamOrderPolicy interface {
	Allow(OrderFacts) (bool, error)
}

// #endregion

// #region translator

// Translation is the result of translating one Decision.
type Translation struct {
	Commands []Command
	Warnings []string
}

func (t *Translation) warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Printf("[XLATE] %s", msg)
	t.Warnings = append(t.Warnings, msg)
}

// Translator maps Decisions to protocol commands against the current turn's
// view. It holds no per-turn state; Policy may be nil.
type Translator struct {
	Policy TeamOrderPolicy
}

// NewTranslator creates a translator using policy for team preview.
func NewTranslator(policy TeamOrderPolicy) *Translator {
	return &Translator{Policy: policy}
}

// Translate maps d to commands. Resolution misses degrade with warnings;
// variants that cannot appear where they do return ErrUnsupportedDecision.
func (t *Translator) Translate(d Decision, v battle.View) (Translation, error) {
	var out Translation
	switch d := d.(type) {
	case Composite:
		teraUsed := false
		for i, part := range d.Parts {
			if m, ok := part.(ChooseMove); ok && m.Terastallize {
				if teraUsed {
					out.warnf("slot %d: terastallize already used this turn", i)
					m.Terastallize = false
				}
				part = m
			}
			cmd, err := t.single(part, v, &out)
			if err != nil {
				return Translation{}, fmt.Errorf("composite part %d: %w", i, err)
			}
			if mc, ok := cmd.(MoveCommand); ok && mc.Terastallize {
				teraUsed = true
			}
			out.Commands = append(out.Commands, cmd)
		}
	case TeamOrder:
		out.Commands = []Command{t.teamOrder(d, v, &out)}
	default:
		cmd, err := t.single(d, v, &out)
		if err != nil {
			return Translation{}, err
		}
		out.Commands = []Command{cmd}
	}
	return out, nil
}

// TranslateForcedSwitch aligns the oracle's switch-ins with forced and translates them.
func (t *Translator) TranslateForcedSwitch(forced []bool, actions []Decision, v battle.View) (Translation, error) {
	aligned, warnings := AlignForcedSwitch(forced, actions)
	var out Translation
	for _, w := range warnings {
		out.warnf("%s", w)
	}
	taken := make(map[int]bool)
	for i, d := range aligned {
		cmd, err := t.single(d, v, &out)
		if err != nil {
			return Translation{}, fmt.Errorf("forced slot %d: %w", i, err)
		}
		if sc, ok := cmd.(SwitchCommand); ok {
			if taken[sc.SlotIndex] {
				cmd = t.fallbackSwitch(v, taken, &out)
				if sc2, ok := cmd.(SwitchCommand); ok {
					taken[sc2.SlotIndex] = true
				}
			} else {
				taken[sc.SlotIndex] = true
			}
		}
		out.Commands = append(out.Commands, cmd)
	}
	return out, nil
}

func (t *Translator) single(d Decision, v battle.View, out *Translation) (Command, error) {
	switch d := d.(type) {
	case Pass:
		return PassCommand{}, nil
	case Switch:
		return t.switchIn(d, v, out), nil
	case ChooseMove:
		return t.move(d, v, out)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedDecision, d)
	}
}

// #endregion

// #region move

var targetedMoves = map[string]bool{
	"any":         true,
	"normal":      true,
	"adjacentFoe": true,
}

func (t *Translator) move(d ChooseMove, v battle.View, out *Translation) (Command, error) {
	if d.Slot < 0 || d.Slot >= len(v.Request.Active) {
		return nil, fmt.Errorf("%w: slot %d of %d", ErrSlotOutOfRange, d.Slot, len(v.Request.Active))
	}
	slot := v.Request.Active[d.Slot]

	idx := -1
	first := -1
	for i, m := range slot.Moves {
		if m.Disabled {
			continue
		}
		if first < 0 {
			first = i
		}
		if strings.EqualFold(m.Name, d.Move) || (m.ID != "" && Normalize(m.ID) == Normalize(d.Move)) {
			idx = i
			break
		}
	}
	if first < 0 {
		return nil, fmt.Errorf("%w: slot %d", ErrNoLegalMoves, d.Slot)
	}
	if idx < 0 {
		out.warnf("slot %d: move %q not legal, using %q", d.Slot, d.Move, slot.Moves[first].Name)
		idx = first
	}

	cmd := MoveCommand{MoveIndex: idx + 1}
	if targetedMoves[slot.Moves[idx].Target] {
		cmd.Target = t.target(d, v, out)
	}
	if d.Terastallize {
		if slot.CanTerastallize {
			cmd.Terastallize = true
		} else {
			out.warnf("slot %d: terastallize requested but not available", d.Slot)
		}
	}
	return cmd, nil
}

// target resolves the move target to a signed slot offset: opponents are 1-based
// positive, our own slots are negative.
func (t *Translator) target(d ChooseMove, v battle.View, out *Translation) int {
	if d.Side == SideAlly {
		if i := ResolveIdentity(d.Target, v.ActiveIdents()); i >= 0 {
			return -(i + 1)
		}
		out.warnf("slot %d: ally target %q not found, defaulting to opponent 1", d.Slot, d.Target)
		return 1
	}
	if i := ResolveIdentity(d.Target, v.OpponentsOnField()); i >= 0 {
		return i + 1
	}
	out.warnf("slot %d: target %q not found, defaulting to opponent 1", d.Slot, d.Target)
	return 1
}

// #endregion

// #region switch

// switchIn resolves d against the benched, healthy members only; active and
// fainted members are never legal switch-ins.
func (t *Translator) switchIn(d Switch, v battle.View, out *Translation) Command {
	active := v.ActiveCount()
	var idents []string
	var slots []int
	for i, p := range v.Request.Side {
		if i < active || p.Active || p.Fainted() {
			continue
		}
		idents = append(idents, p.Ident)
		slots = append(slots, i+1)
	}
	if i := ResolveIdentity(d.Target, idents); i >= 0 {
		return SwitchCommand{SlotIndex: slots[i]}
	}
	if ResolveIdentity(d.Target, v.RosterIdents()) >= 0 {
		out.warnf("switch target %q is active or fainted", d.Target)
	} else {
		out.warnf("switch target %q not in roster", d.Target)
	}
	return t.fallbackSwitch(v, nil, out)
}

// fallbackSwitch picks the first healthy benched member not already taken.
func (t *Translator) fallbackSwitch(v battle.View, taken map[int]bool, out *Translation) Command {
	active := v.ActiveCount()
	for i, p := range v.Request.Side {
		if i < active || p.Active || p.Fainted() || taken[i+1] {
			continue
		}
		out.warnf("switching to %q instead", p.Ident)
		return SwitchCommand{SlotIndex: i + 1}
	}
	out.warnf("no healthy bench member, passing")
	return PassCommand{}
}

// #endregion

// #region team-order

func (t *Translator) teamOrder(d TeamOrder, v battle.View, out *Translation) Command {
	roster := v.Team
	if len(roster) == 0 {
		roster = v.RosterIdents()
	}

	used := make(map[int]bool, len(roster))
	positions := make([]int, 0, len(d.Order))
	for _, ref := range d.Order {
		i := ResolveIdentity(ref, roster)
		if i < 0 || used[i] {
			continue
		}
		used[i] = true
		positions = append(positions, i+1)
	}

	size := d.SelectSize
	if size <= 0 || size > len(roster) {
		size = len(roster)
	}
	if len(positions) > size {
		out.warnf("team order has %d members, keeping first %d", len(positions), size)
		positions = positions[:size]
	}

	facts := OrderFacts{
		SelectSize: size,
		Resolved:   len(positions),
		Requested:  len(d.Order),
		TeamSize:   len(roster),
	}
	if !t.allow(facts, out) {
		for i := 0; i < len(roster) && len(positions) < size; i++ {
			if !used[i] {
				used[i] = true
				positions = append(positions, i+1)
			}
		}
		out.warnf("team order resolved %d of %d, filled to %d", facts.Resolved, facts.Requested, len(positions))
	}

	var b strings.Builder
	for _, p := range positions {
		b.WriteString(strconv.Itoa(p))
	}
	return TeamOrderCommand{Digits: b.String()}
}

func (t *Translator) allow(f OrderFacts, out *Translation) bool {
	if t.Policy == nil {
		return true
	}
	ok, err := t.Policy.Allow(f)
	if err != nil {
		out.warnf("team order policy: %v", err)
		return false
	}
	return ok
}

// #endregion
