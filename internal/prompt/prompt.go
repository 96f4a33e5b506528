package prompt

// #region imports
import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/danielpatrickdp/battle-trainer/internal/battle"
	"github.com/danielpatrickdp/battle-trainer/internal/oracle"
	"github.com/danielpatrickdp/battle-trainer/internal/plan"
)

// #endregion

// #region input

// Input is what a prompt may draw on for one turn.
type Input struct {
	View   battle.View
	Format string
	// Plan is the plan the decision is made under; nil before one exists.
	Plan *plan.Plan
	// Knowledge is the rendered team knowledge for the current series.
	Knowledge string
	// Tactics is the team preview tactics object, kept verbatim.
	Tactics json.RawMessage
}

// #endregion

// #region default

// Default is the stock prompt set for doubles formats.
type Default struct {
	// OpenSheet suppresses the opponent prediction field when team sheets are public.
	OpenSheet bool
}

const noSwitch = "No switchable Pokémon"

const outputRules = `PLEASE STRICTLY FOLLOW THE EXAMPLE_OUTPUT_FORMAT
Do not include extra output like ` + "```json" + `
**No other extra output allowed!!!**
`

// PlanContext derives the plan manager's battle context from in.
func (d Default) PlanContext(in Input) plan.Context {
	v := in.View
	c := plan.Context{
		Tag:          v.Tag,
		Turn:         v.Turn,
		Format:       in.Format,
		MyTeam:       speciesList(v.RosterIdents()),
		OpponentTeam: v.OpponentTeam,
		Knowledge:    in.Knowledge,
	}
	if active := speciesList(v.ActiveIdents()); len(active) > 0 {
		c.Facts = append(c.Facts, plan.Fact{Label: "My Active", Value: strings.Join(active, ", ")})
	}
	if opp := v.OpponentsOnField(); len(opp) > 0 {
		c.Facts = append(c.Facts, plan.Fact{Label: "Opponent Active", Value: strings.Join(opp, ", ")})
	}
	fainted := 0
	for _, p := range v.Request.Side {
		if p.Fainted() {
			fainted++
		}
	}
	c.Facts = append(c.Facts, plan.Fact{Label: "My Fainted", Value: fmt.Sprintf("%d/%d", fainted, len(v.Request.Side))})
	return c
}

// ChooseMove builds the free-choice decision request.
func (d Default) ChooseMove(in Input) []oracle.Message {
	v := in.View
	var slots, moves []string
	for i, slot := range v.Request.Active {
		if i >= len(v.Request.Side) {
			break
		}
		p := v.Request.Side[i]
		if p.Fainted() {
			continue
		}
		name := species(p.Ident)
		slots = append(slots, "<"+name+"_action>")
		var legal []string
		for _, m := range slot.Moves {
			if !m.Disabled {
				legal = append(legal, `"`+m.Name+`"`)
			}
		}
		list := strings.Join(legal, ",")
		if list == "" {
			list = "No available moves"
		}
		moves = append(moves, fmt.Sprintf("%s: [%s]", name, list))
	}

	var b strings.Builder
	b.WriteString("=== Please make a decision ===\n")
	b.WriteString("Please analyze the current situation and choose the best action\n")
	fmt.Fprintf(&b, "actions format: \"actions\": [%s]\n", strings.Join(slots, ","))
	fmt.Fprintf(&b, "AVAILABLE MOVES THIS TURN: [%s]\n", strings.Join(moves, ", "))
	fmt.Fprintf(&b, "ONLY THOSE POKEMON YOU CAN SWITCH IN FIELD: [%s]\n", d.bench(v, v.ActiveCount(), true))
	b.WriteString(outputRules)
	b.WriteString("\nEXAMPLE_OUTPUT_FORMAT:\n{\n")
	d.prediction(&b)
	b.WriteString(`    "think": "<your_think>",
    "actions": [
        {"switch": "<switch_in_pokemon>"},
        {"move": {"name": "<move_name>", "terastallize": <true_or_false>, "move_target_pokemon": "<target_pokemon_name>", "target_side": "<ally|opp>"}}
    ]
}
`)
	return d.messages(in, b.String())
}

// ForceSwitch builds the forced switch-in request for the slots marked in c.
func (d Default) ForceSwitch(in Input, c battle.ForceSwitchCondition) []oracle.Message {
	v := in.View
	var slots []string
	for i, forced := range c.Forced {
		if forced && i < len(v.Request.Side) {
			slots = append(slots, "<"+species(v.Request.Side[i].Ident)+"_action>")
		}
	}

	var b strings.Builder
	b.WriteString("=== Please make a decision ===\n")
	b.WriteString("Please analyze the current situation and choose the best action\n")
	fmt.Fprintf(&b, "This turn must switch in %d Pokémon from the back row to the front row.\n", c.Required())
	fmt.Fprintf(&b, "actions format: \"actions\": [%s]\n", strings.Join(slots, ","))
	fmt.Fprintf(&b, "POKÉMON YOU CAN SWITCH IN: [%s]\n", d.bench(v, len(c.Forced), false))
	b.WriteString(outputRules)
	b.WriteString("\nEXAMPLE_OUTPUT_FORMAT:\n{\n")
	d.prediction(&b)
	b.WriteString(`    "think": "<your_think>",
    "actions": [
        {"switch": "<switch_in_pokemon>"}
    ]
}
`)
	return d.messages(in, b.String())
}

// TeamOrder builds the team preview request.
func (d Default) TeamOrder(in Input, c battle.TeamOrderCondition) []oracle.Message {
	v := in.View
	team := v.Team
	if len(team) == 0 {
		team = speciesList(v.RosterIdents())
	}
	n := c.SelectSize
	if n <= 0 || n > len(team) {
		n = len(team)
	}
	picks := make([]string, n)
	for i := range picks {
		picks[i] = fmt.Sprintf(`"<pokemon_%d>"`, i+1)
	}

	var sys strings.Builder
	sys.WriteString("You are a professional Pokémon VGC player choosing which Pokémon to bring and in what order.\n")
	sys.WriteString("The first two Pokémon lead; the rest wait in the back.\n")
	if in.Knowledge != "" {
		sys.WriteString("\nTeam knowledge:\n")
		sys.WriteString(in.Knowledge)
		sys.WriteString("\n")
	}

	var info strings.Builder
	fmt.Fprintf(&info, "My Team: %s\n", strings.Join(team, ", "))
	if len(v.OpponentTeam) > 0 {
		fmt.Fprintf(&info, "Opponent Team: %s\n", strings.Join(v.OpponentTeam, ", "))
	}

	var req strings.Builder
	req.WriteString("=== Please choose your team order ===\n")
	fmt.Fprintf(&req, "Select exactly %d Pokémon from My Team.\n", n)
	req.WriteString(outputRules)
	req.WriteString("\nEXAMPLE_OUTPUT_FORMAT:\n{\n")
	req.WriteString(`    "tactics": {"order_pokemon_details": "<why each pick and the plan for the leads>"},` + "\n")
	fmt.Fprintf(&req, "    \"order\": [%s]\n}\n", strings.Join(picks, ", "))

	return []oracle.Message{
		{Role: oracle.RoleSystem, Text: sys.String()},
		{Role: oracle.RoleUser, Text: info.String()},
		{Role: oracle.RoleSystem, Text: req.String()},
	}
}

// BattleSummary asks for a short post-battle review to carry into later games.
func (d Default) BattleSummary(in Input, won bool) []oracle.Message {
	result := "lost"
	if won {
		result = "won"
	}
	var b strings.Builder
	b.WriteString("You are a professional Pokémon battle master playing a series. Summarize your experience from the last match to improve future performance.\n")
	fmt.Fprintf(&b, "You %s this match (turn %d).\n", result, in.View.Turn)
	b.WriteString("Please provide insights on:\n")
	b.WriteString("- The key factors that determined the outcome of the battle.\n")
	b.WriteString("- Whether you should try new tactical approaches (choosing moves/team order).\n")
	b.WriteString("Keep it under 120 words.\n")
	if in.Knowledge != "" {
		b.WriteString("\nTeam knowledge so far:\n")
		b.WriteString(in.Knowledge)
		b.WriteString("\n")
	}

	msgs := []oracle.Message{{Role: oracle.RoleSystem, Text: b.String()}}
	if in.Plan != nil {
		msgs = append(msgs, oracle.Message{Role: oracle.RoleUser, Text: "Final plan:\n" + plan.Serialize(*in.Plan)})
	}
	return msgs
}

// #endregion

// #region helpers

func (d Default) messages(in Input, request string) []oracle.Message {
	var sys strings.Builder
	sys.WriteString("You are a professional Pokémon VGC doubles player. Win the battle.\n")
	if in.Knowledge != "" {
		sys.WriteString("\nTeam knowledge:\n")
		sys.WriteString(in.Knowledge)
		sys.WriteString("\n")
	}
	if len(in.Tactics) > 0 {
		sys.WriteString("\nTactics chosen at team preview:\n")
		sys.Write(in.Tactics)
		sys.WriteString("\n")
	}
	if in.Plan != nil {
		sys.WriteString("\nCurrent battle plan:\n")
		sys.WriteString(plan.Serialize(*in.Plan))
		sys.WriteString("\n")
	}
	return []oracle.Message{
		{Role: oracle.RoleSystem, Text: sys.String()},
		{Role: oracle.RoleUser, Text: d.state(in)},
		{Role: oracle.RoleSystem, Text: request},
	}
}

func (d Default) state(in Input) string {
	v := in.View
	var b strings.Builder
	fmt.Fprintf(&b, "Turn %d\n", v.Turn)
	b.WriteString("My side:\n")
	for _, p := range v.Request.Side {
		mark := ""
		if p.Active {
			mark = " (active)"
		}
		fmt.Fprintf(&b, "- %s %s%s\n", species(p.Ident), p.Condition, mark)
	}
	b.WriteString("Opponent side:\n")
	for _, p := range v.Opponents {
		where := "bench"
		if p.Position >= 0 {
			where = fmt.Sprintf("slot %d", p.Position+1)
		}
		fmt.Fprintf(&b, "- %s %s (%s)\n", p.Name, p.Condition, where)
	}
	return b.String()
}

func (d Default) prediction(b *strings.Builder) {
	if !d.OpenSheet {
		b.WriteString(`    "opponent_pokemon_prediction": "<opponent_team_JSON>",` + "\n")
	}
}

// bench lists the healthy pokemon behind the first skip roster entries.
func (d Default) bench(v battle.View, skip int, quoted bool) string {
	var names []string
	for i, p := range v.Request.Side {
		if i < skip || p.Fainted() {
			continue
		}
		name := species(p.Ident)
		if quoted {
			name = `"` + name + `"`
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return noSwitch
	}
	return strings.Join(names, ",")
}

func species(ident string) string {
	if _, name, ok := strings.Cut(ident, ":"); ok {
		return strings.TrimSpace(name)
	}
	return strings.TrimSpace(ident)
}

func speciesList(idents []string) []string {
	out := make([]string, len(idents))
	for i, id := range idents {
		out[i] = species(id)
	}
	return out
}

// #endregion
