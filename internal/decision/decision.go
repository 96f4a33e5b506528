package decision

// #region side

// Side says which side of the field a move target reference names.
type Side string

const (
	SideOpponent Side = "opponent"
	SideAlly     Side = "ally"
)

// #endregion

// #region decision

// Decision is an abstract intent read from an oracle reply. The variant set is
// closed: Pass, Switch, ChooseMove, TeamOrder and Composite.
type Decision interface {
	decision()
}

// Pass is a no-op for one slot.
type Pass struct{}

// Switch brings in the roster member named by Target.
type Switch struct {
	Target string
}

// ChooseMove uses Move from active slot Slot. Slot is assigned by AlignSlots,
// never by the oracle.
type ChooseMove struct {
	Slot         int
	Target       string
	Move         string
	Side         Side
	Terastallize bool
}

// TeamOrder picks roster members for team preview, lead first. SelectSize is the
// number of members the format brings; 0 means the whole roster.
type TeamOrder struct {
	Order      []string
	SelectSize int
}

// Composite holds one sub-decision per active slot, in slot order.
type Composite struct {
	Parts []Decision
}

func (Pass) decision()       {}
func (Switch) decision()     {}
func (ChooseMove) decision() {}
func (TeamOrder) decision()  {}
func (Composite) decision()  {}

// #endregion
