package decision

// #region imports
import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/danielpatrickdp/battle-trainer/internal/oracle"
)

// #endregion

// #region reply-types

// Reply is a parsed choose-move or forced-switch answer. Parts are in the order
// the oracle listed them and have not been aligned to slots yet.
type Reply struct {
	Think    string
	Parts    []Decision
	Warnings []string
}

// TeamOrderReply is a parsed team preview answer. Tactics is kept verbatim.
type TeamOrderReply struct {
	Tactics json.RawMessage
	Order   []string
}

type rawReply struct {
	Think   string            `json:"think"`
	Actions []json.RawMessage `json:"actions"`
}

type rawAction struct {
	Switch *string  `json:"switch"`
	Move   *rawMove `json:"move"`
}

type rawMove struct {
	Name              string `json:"name"`
	Terastallize      bool   `json:"terastallize"`
	MoveTargetPokemon string `json:"move_target_pokemon"`
	TargetSide        string `json:"target_side"`
	Side              string `json:"side"`
}

type rawTeamOrder struct {
	Tactics json.RawMessage `json:"tactics"`
	Order   *[]string       `json:"order"`
}

// #endregion

// #region parse-actions

// ParseActions reads a {"think", "actions": [...]} reply. Field names match
// case-insensitively. An action that is neither a switch nor a move becomes a
// Pass with a warning; a reply that is not such an object at all returns
// ErrUninterpretable.
func ParseActions(text string) (Reply, error) {
	var raw rawReply
	if err := json.Unmarshal([]byte(oracle.ExtractJSON(text)), &raw); err != nil {
		return Reply{}, fmt.Errorf("%w: %v", ErrUninterpretable, err)
	}
	if raw.Actions == nil {
		return Reply{}, fmt.Errorf("%w: no actions", ErrUninterpretable)
	}

	reply := Reply{Think: raw.Think, Parts: make([]Decision, 0, len(raw.Actions))}
	for i, a := range raw.Actions {
		d, warn := parseAction(a)
		if warn != "" {
			reply.Warnings = append(reply.Warnings, fmt.Sprintf("action %d: %s", i, warn))
		}
		reply.Parts = append(reply.Parts, d)
	}
	return reply, nil
}

func parseAction(data json.RawMessage) (Decision, string) {
	var a rawAction
	if err := json.Unmarshal(data, &a); err != nil {
		return Pass{}, fmt.Sprintf("unreadable action %s", compact(data))
	}
	switch {
	case a.Switch != nil:
		return Switch{Target: strings.TrimSpace(*a.Switch)}, ""
	case a.Move != nil:
		return ChooseMove{
			Move:         strings.TrimSpace(a.Move.Name),
			Target:       strings.TrimSpace(a.Move.MoveTargetPokemon),
			Side:         parseSide(a.Move.TargetSide, a.Move.Side),
			Terastallize: a.Move.Terastallize,
		}, ""
	default:
		return Pass{}, fmt.Sprintf("unrecognised action %s", compact(data))
	}
}

// parseSide reads target_side, then the legacy side key. Anything that is not
// an ally spelling means the opponent.
func parseSide(values ...string) Side {
	for _, v := range values {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "ally", "aliy", "allies", "self":
			return SideAlly
		case "opp", "opponent", "foe", "enemy":
			return SideOpponent
		}
	}
	return SideOpponent
}

func compact(data json.RawMessage) string {
	s := strings.Join(strings.Fields(string(data)), " ")
	if len(s) > 80 {
		s = s[:80] + "..."
	}
	return s
}

// #endregion

// #region parse-team-order

// ParseTeamOrder reads a {"tactics", "order": [...]} reply.
func ParseTeamOrder(text string) (TeamOrderReply, error) {
	var raw rawTeamOrder
	if err := json.Unmarshal([]byte(oracle.ExtractJSON(text)), &raw); err != nil {
		return TeamOrderReply{}, fmt.Errorf("%w: %v", ErrUninterpretable, err)
	}
	if raw.Order == nil {
		return TeamOrderReply{}, fmt.Errorf("%w: no order", ErrUninterpretable)
	}
	return TeamOrderReply{Tactics: raw.Tactics, Order: *raw.Order}, nil
}

// #endregion
