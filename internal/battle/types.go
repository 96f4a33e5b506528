package battle

// #region imports
import (
	"sort"
	"strings"
)

// #endregion

// #region move

// Move is one entry of an active slot's move list as the simulator reports it.
// Target is the simulator's target type ("normal", "any", "adjacentFoe", "self", ...).
type Move struct {
	Name     string `json:"move"`
	ID       string `json:"id,omitempty"`
	Target   string `json:"target"`
	Disabled bool   `json:"disabled,omitempty"`
}

// #endregion

// #region active-slot

// ActiveSlot describes the choices available for one of our active slots.
type ActiveSlot struct {
	Moves           []Move `json:"moves"`
	CanTerastallize bool   `json:"canTerastallize,omitempty"`
	Trapped         bool   `json:"trapped,omitempty"`
}

// #endregion

// #region side-pokemon

// SidePokemon is a member of our roster as listed in the request.
// Ident is the simulator identity, e.g. "p1: Garchomp".
type SidePokemon struct {
	Ident     string `json:"ident"`
	Details   string `json:"details,omitempty"`
	Condition string `json:"condition"`
	Active    bool   `json:"active,omitempty"`
}

// Fainted reports whether the condition string marks the pokemon as fainted.
func (p SidePokemon) Fainted() bool {
	return strings.Contains(p.Condition, "fnt")
}

// #endregion

// #region request

// Request is the simulator's "last request" for our side. It is refreshed once
// per turn, not per read.
type Request struct {
	Active      []ActiveSlot  `json:"active,omitempty"`
	Side        []SidePokemon `json:"side"`
	ForceSwitch []bool        `json:"forceSwitch,omitempty"`
	TeamPreview bool          `json:"teamPreview,omitempty"`
	MaxTeamSize int           `json:"maxTeamSize,omitempty"`
	Wait        bool          `json:"wait,omitempty"`
}

// #endregion

// #region field-pokemon

// FieldPokemon is an opponent pokemon visible this turn. Position is the field
// slot (0-based) or negative when it is not currently on the field.
type FieldPokemon struct {
	Name      string `json:"name"`
	Position  int    `json:"position"`
	Condition string `json:"condition,omitempty"`
}

// #endregion

// #region view

// View is everything the decision layer may read about the current turn.
type View struct {
	Tag       string         `json:"tag"`
	Turn      int            `json:"turn"`
	Request   Request        `json:"request"`
	Opponents []FieldPokemon `json:"opponents,omitempty"`
	// Team is our full roster in team-sheet order, used for team preview.
	Team []string `json:"team,omitempty"`
	// OpponentTeam is the opposing roster when team sheets are open.
	OpponentTeam []string `json:"opponentTeam,omitempty"`
}

// ActiveCount returns the number of active slots on our side this turn.
func (v View) ActiveCount() int {
	return len(v.Request.Active)
}

// OpponentsOnField returns opponent names for pokemon with Position >= 0, ordered by position.
func (v View) OpponentsOnField() []string {
	present := make([]FieldPokemon, 0, len(v.Opponents))
	for _, p := range v.Opponents {
		if p.Position >= 0 {
			present = append(present, p)
		}
	}
	sort.SliceStable(present, func(i, j int) bool { return present[i].Position < present[j].Position })

	names := make([]string, len(present))
	for i, p := range present {
		names[i] = p.Name
	}
	return names
}

// RosterIdents returns the identities of our request roster in request order.
func (v View) RosterIdents() []string {
	idents := make([]string, len(v.Request.Side))
	for i, p := range v.Request.Side {
		idents[i] = p.Ident
	}
	return idents
}

// ActiveIdents returns the identities of our pokemon currently occupying active slots.
func (v View) ActiveIdents() []string {
	n := v.ActiveCount()
	idents := make([]string, 0, n)
	for i := 0; i < n && i < len(v.Request.Side); i++ {
		idents = append(idents, v.Request.Side[i].Ident)
	}
	return idents
}

// LeadFainted reports whether the occupant of our first active slot has fainted.
func (v View) LeadFainted() bool {
	if len(v.Request.Side) == 0 {
		return false
	}
	return v.Request.Side[0].Fainted()
}

// #endregion
