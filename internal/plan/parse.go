package plan

// #region imports
import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/danielpatrickdp/battle-trainer/internal/oracle"
)

// #endregion

// #region patterns

var (
	numberedRe = regexp.MustCompile(`^\s*(\d+)[.)]\s+(.*)$`)
	bulletRe   = regexp.MustCompile(`^\s*[-*•+]\s+(.*)$`)
	turnsRe    = regexp.MustCompile(`(?i)\(\s*turns?\s+(\d+)\s*(?:[-–~]|to)?\s*(\d+)?\s*\)`)
	leadIntRe  = regexp.MustCompile(`\d+`)
)

type section int

const (
	sectionNone section = iota
	sectionObjective
	sectionPhases
	sectionTactics
	sectionRisk
)

var headings = []struct {
	prefix  string
	section section
}{
	{"overall objective", sectionObjective},
	{"battle phases", sectionPhases},
	{"phases", sectionPhases},
	{"key tactics", sectionTactics},
	{"tactics", sectionTactics},
	{"risk assessment", sectionRisk},
}

// #endregion

// #region parse

// ParseText reads plan content from an oracle reply. A JSON object with plan
// fields is used directly; otherwise the sectioned text layout
// (Overall Objective / Battle Phases / Key Tactics / Risk Assessment) is parsed.
// Missing sections come back empty. The result is normalized.
func ParseText(text string) Content {
	if c, ok := parseJSONContent(text); ok {
		return c.Normalize()
	}
	return parseSections(text).Normalize()
}

func parseJSONContent(text string) (Content, bool) {
	payload := oracle.ExtractJSON(text)
	if !strings.HasPrefix(payload, "{") {
		return Content{}, false
	}
	var c Content
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return Content{}, false
	}
	return c, !c.Empty()
}

// #endregion

// #region sections

type sectionParser struct {
	c       Content
	current section
	phase   *Phase
}

func parseSections(text string) Content {
	p := &sectionParser{}
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimRight(raw, " \t\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if sec, rest, ok := matchHeading(line); ok {
			p.flushPhase()
			p.current = sec
			if sec == sectionObjective && rest != "" {
				p.c.OverallObjective = rest
			}
			continue
		}
		p.line(line)
	}
	p.flushPhase()
	return p.c
}

func (p *sectionParser) line(line string) {
	switch p.current {
	case sectionObjective:
		text := strings.TrimSpace(line)
		if p.c.OverallObjective == "" {
			p.c.OverallObjective = text
		} else {
			p.c.OverallObjective += " " + text
		}
	case sectionPhases:
		p.phaseLine(line)
	case sectionTactics:
		if item, ok := listItem(line); ok {
			p.c.KeyTactics = append(p.c.KeyTactics, item)
		}
	case sectionRisk:
		p.riskLine(line)
	}
}

func (p *sectionParser) phaseLine(line string) {
	if m := numberedRe.FindStringSubmatch(line); m != nil && (p.phase == nil || !isIndented(line)) {
		p.flushPhase()
		p.phase = newPhase(m[2])
		return
	}
	if p.phase == nil {
		return
	}
	item, ok := listItem(line)
	if !ok {
		item = strings.TrimSpace(line)
	}
	label, value := splitLabel(item)
	switch label {
	case "description":
		p.phase.Description = value
	case "success", "success conditions", "success condition":
		p.phase.SuccessConditions = append(p.phase.SuccessConditions, splitList(value)...)
	case "risks", "failure risks", "failure risk":
		p.phase.FailureRisks = append(p.phase.FailureRisks, splitList(value)...)
	case "priority":
		p.phase.Priority = leadingInt(value)
	case "expected duration", "expected turns", "duration":
		if n := leadingInt(value); n > 0 {
			p.phase.ExpectedTurns = n
		}
	case "objectives", "objective":
		if value != "" {
			p.phase.Objectives = append(p.phase.Objectives, Objective{Description: value})
		}
	default:
		p.phase.Objectives = append(p.phase.Objectives, Objective{Description: item})
	}
}

func (p *sectionParser) riskLine(line string) {
	item, ok := listItem(line)
	if !ok {
		item = strings.TrimSpace(line)
	}
	label, value := splitLabel(item)
	r := &p.c.RiskAssessment
	switch label {
	case "major threats", "threats":
		r.MajorThreats = append(r.MajorThreats, splitList(value)...)
	case "counter-strategies", "counter strategies", "counters":
		r.CounterStrategies = append(r.CounterStrategies, splitList(value)...)
	case "backup plans", "backup plan", "backups":
		r.BackupPlans = append(r.BackupPlans, splitList(value)...)
	case "risk level", "overall risk level", "overall risk":
		r.OverallRiskLevel = leadingInt(value)
	}
}

func (p *sectionParser) flushPhase() {
	if p.phase == nil {
		return
	}
	p.c.BattlePhases = append(p.c.BattlePhases, *p.phase)
	p.phase = nil
}

// #endregion

// #region helpers

func newPhase(heading string) *Phase {
	ph := &Phase{Status: PhasePending, ExpectedTurns: 1}
	if m := turnsRe.FindStringSubmatch(heading); m != nil {
		from, _ := strconv.Atoi(m[1])
		to := from
		if m[2] != "" {
			to, _ = strconv.Atoi(m[2])
		}
		ph.ExpectedTurns = max(to-from+1, 1)
		heading = strings.TrimSpace(turnsRe.ReplaceAllString(heading, ""))
	}
	name, desc := heading, ""
	if i := strings.Index(heading, ": "); i > 0 {
		name, desc = heading[:i], heading[i+2:]
	} else if i := strings.Index(heading, " - "); i > 0 {
		name, desc = heading[:i], heading[i+3:]
	}
	ph.Name = strings.TrimSpace(strings.Trim(name, "*_ "))
	ph.Description = strings.TrimSpace(desc)
	return ph
}

// matchHeading recognises a section heading, tolerating markdown emphasis,
// leading numbering and a trailing colon. rest is any text after the colon.
func matchHeading(line string) (section, string, bool) {
	s := strings.TrimSpace(line)
	if m := numberedRe.FindStringSubmatch(s); m != nil {
		s = m[2]
	}
	s = strings.TrimLeft(s, "#*_ ")
	head, rest, _ := strings.Cut(s, ":")
	head = strings.ToLower(strings.Trim(head, "*_ "))
	for _, h := range headings {
		if head == h.prefix {
			return h.section, strings.TrimSpace(strings.Trim(rest, "*_ ")), true
		}
	}
	return sectionNone, "", false
}

func listItem(line string) (string, bool) {
	if m := bulletRe.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	if m := numberedRe.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[2]), true
	}
	return "", false
}

// splitLabel splits "Label: value" and lowercases the label. Items without a
// short label come back with an empty label and the whole item as value.
func splitLabel(item string) (string, string) {
	label, value, ok := strings.Cut(item, ":")
	if !ok || len(label) > 32 {
		return "", item
	}
	return strings.ToLower(strings.Trim(label, "*_ ")), strings.TrimSpace(value)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func leadingInt(s string) int {
	n, _ := strconv.Atoi(leadIntRe.FindString(s))
	return n
}

func isIndented(line string) bool {
	return strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")
}

// #endregion
