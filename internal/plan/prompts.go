package plan

// #region imports
import (
	"fmt"
	"strings"
)

// #endregion

// #region context

// Fact is one labelled line of battle state shown to the oracle.
type Fact struct {
	Label string
	Value string
}

// Context is the battle information the manager sends with each oracle request.
type Context struct {
	Tag          string
	Turn         int
	Format       string
	MyTeam       []string
	OpponentTeam []string
	Facts        []Fact
	// Knowledge is standing team-level notes from earlier battles, may be empty.
	Knowledge string
}

func (c Context) header() string {
	var b strings.Builder
	fmt.Fprintf(&b, "- Turn: %d\n", c.Turn)
	if c.Format != "" {
		fmt.Fprintf(&b, "- Battle Format: %s\n", c.Format)
	}
	if len(c.MyTeam) > 0 {
		fmt.Fprintf(&b, "- My Team: %s\n", strings.Join(c.MyTeam, ", "))
	}
	if len(c.OpponentTeam) > 0 {
		fmt.Fprintf(&b, "- Opponent Team: %s\n", strings.Join(c.OpponentTeam, ", "))
	}
	for _, f := range c.Facts {
		fmt.Fprintf(&b, "- %s: %s\n", f.Label, f.Value)
	}
	return b.String()
}

// #endregion

// #region prompts

const planFormat = `Overall Objective: <one sentence>

Battle Phases:
1. <Phase Name> (Turns <a>-<b>)
   - <objective>
   - Success: <condition>, <condition>
   - Risks: <risk>, <risk>

Key Tactics:
- <tactic>

Risk Assessment:
- Major Threats: <threat>, <threat>
- Counter-Strategies: <strategy>, <strategy>
- Backup Plans: <plan>
- Risk Level: <1-10>`

func initialPrompt(c Context) string {
	var b strings.Builder
	b.WriteString("You are a professional Pokémon battle strategist. Create a battle plan to win this battle.\n\n")
	b.WriteString("Current Battle Context:\n")
	b.WriteString(c.header())
	if c.Knowledge != "" {
		b.WriteString("\nWhat we know about our team from earlier battles:\n")
		b.WriteString(c.Knowledge)
		b.WriteString("\n")
	}
	b.WriteString("\nBreak the battle into 3-5 phases with objectives, success conditions, expected duration and failure risks. ")
	b.WriteString("List 3-5 key tactics and assess the major threats.\n\n")
	b.WriteString("Respond in exactly this format:\n")
	b.WriteString(planFormat)
	b.WriteString("\n")
	return b.String()
}

func evaluationPrompt(p Plan, c Context) string {
	var b strings.Builder
	b.WriteString("You are evaluating a Pokémon battle plan's progress and deciding whether it needs adjustment.\n\n")
	b.WriteString("Current Battle State:\n")
	b.WriteString(c.header())
	fmt.Fprintf(&b, "- Plan Completion: %d%%\n", p.Completion())
	b.WriteString("\nCurrent Plan:\n")
	b.WriteString(Serialize(p))
	b.WriteString("\n\nConsider whether the objectives are still achievable, whether the opponent has invalidated part of the plan, ")
	b.WriteString("whether we are ahead of or behind schedule, and whether new threats or opportunities emerged.\n\n")
	b.WriteString(`Respond in JSON only:
{
  "needsAdjustment": true/false,
  "reason": "explanation",
  "adjustmentType": "Minor"/"Major"/"Complete",
  "suggestedChanges": ["change1", "change2"]
}
`)
	return b.String()
}

func adjustmentPrompt(p Plan, ev Evaluation, c Context) string {
	var b strings.Builder
	b.WriteString("You are a professional Pokémon battle strategist. The current battle plan needs adjustment.\n\n")
	b.WriteString("Current Battle State:\n")
	b.WriteString(c.header())
	b.WriteString("\nCurrent Plan:\n")
	b.WriteString(Serialize(p))
	b.WriteString("\n\nEvaluation:\n")
	fmt.Fprintf(&b, "- Reason: %s\n", ev.Reason)
	fmt.Fprintf(&b, "- Adjustment Type: %s\n", ev.Type)
	fmt.Fprintf(&b, "- Suggested Changes: %s\n", strings.Join(ev.SuggestedChanges, ", "))
	b.WriteString("\nUpdate phase statuses and objectives, the risk assessment, the key tactics, and the overall objective if the situation fundamentally changed. ")
	b.WriteString("Respond with the full adjusted plan in exactly this format:\n")
	b.WriteString(planFormat)
	b.WriteString("\n")
	return b.String()
}

// #endregion
