package decision

// #region imports
import (
	"strconv"
	"strings"
)

// #endregion

// #region command

// Command is one protocol-exact instruction for the battle transport. The
// variant set is closed: MoveCommand, SwitchCommand, PassCommand and TeamOrderCommand.
type Command interface {
	command()
	// Choice renders the command in simulator choice syntax.
	Choice() string
}

// MoveCommand uses the MoveIndex-th (1-based) move of its slot. Target is a
// signed slot offset: positive for opponents, negative for allies, 0 when the
// simulator infers it.
type MoveCommand struct {
	MoveIndex    int
	Target       int
	Terastallize bool
}

// SwitchCommand switches in the SlotIndex-th (1-based) member of our request roster.
type SwitchCommand struct {
	SlotIndex int
}

// PassCommand leaves a slot without an action.
type PassCommand struct{}

// TeamOrderCommand is the team preview answer: concatenated 1-based roster positions.
type TeamOrderCommand struct {
	Digits string
}

func (MoveCommand) command()      {}
func (SwitchCommand) command()    {}
func (PassCommand) command()      {}
func (TeamOrderCommand) command() {}

func (c MoveCommand) Choice() string {
	var b strings.Builder
	b.WriteString("move ")
	b.WriteString(strconv.Itoa(c.MoveIndex))
	if c.Target != 0 {
		b.WriteByte(' ')
		b.WriteString(strconv.Itoa(c.Target))
	}
	if c.Terastallize {
		b.WriteString(" terastallize")
	}
	return b.String()
}

func (c SwitchCommand) Choice() string { return "switch " + strconv.Itoa(c.SlotIndex) }

func (PassCommand) Choice() string { return "pass" }

func (c TeamOrderCommand) Choice() string { return "team " + c.Digits }

// #endregion

// #region format

// FormatChoice joins per-slot commands into one choice string, e.g.
// "move 1 2 terastallize, switch 3".
func FormatChoice(cmds []Command) string {
	parts := make([]string, len(cmds))
	for i, c := range cmds {
		parts[i] = c.Choice()
	}
	return strings.Join(parts, ", ")
}

// #endregion
