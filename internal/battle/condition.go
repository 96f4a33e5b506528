package battle

// #region condition

// Condition is the situation a turn asks us to decide. The variant set is
// closed: ChooseCondition, ForceSwitchCondition and TeamOrderCondition.
type Condition interface {
	condition()
	Kind() string
}

// ChooseCondition is a free-choice turn: every active slot picks a move or a switch.
type ChooseCondition struct{}

// ForceSwitchCondition is raised after a faint or a forced switch. Forced has one
// entry per active slot; true means that slot must switch.
type ForceSwitchCondition struct {
	Forced []bool
}

// TeamOrderCondition is team preview: choose SelectSize pokemon and their order.
type TeamOrderCondition struct {
	SelectSize int
}

func (ChooseCondition) condition()      {}
func (ForceSwitchCondition) condition() {}
func (TeamOrderCondition) condition()   {}

func (ChooseCondition) Kind() string      { return "choose" }
func (ForceSwitchCondition) Kind() string { return "force_switch" }
func (TeamOrderCondition) Kind() string   { return "team_order" }

// #endregion

// #region required

// Required returns how many forced slots must switch.
func (c ForceSwitchCondition) Required() int {
	n := 0
	for _, f := range c.Forced {
		if f {
			n++
		}
	}
	return n
}

// #endregion
