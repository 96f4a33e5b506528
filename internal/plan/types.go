package plan

// #region imports
import (
	"slices"
	"time"
)

// #endregion

// #region status

// Status is the lifecycle state of a Plan.
type Status string

const (
	StatusActive    Status = "Active"
	StatusAdjusting Status = "Adjusting"
	StatusCompleted Status = "Completed"
	StatusFailed    Status = "Failed"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// PhaseStatus is the progress state of one Phase.
type PhaseStatus string

const (
	PhasePending    PhaseStatus = "Pending"
	PhaseInProgress PhaseStatus = "InProgress"
	PhaseCompleted  PhaseStatus = "Completed"
	PhaseFailed     PhaseStatus = "Failed"
	PhaseSkipped    PhaseStatus = "Skipped"
)

// AdjustmentType grades how much of a plan an adjustment rewrote.
type AdjustmentType string

const (
	AdjustMinor    AdjustmentType = "Minor"
	AdjustMajor    AdjustmentType = "Major"
	AdjustComplete AdjustmentType = "Complete"
)

// #endregion

// #region defaults

const (
	defaultPriority   = 5
	defaultImportance = 5
	defaultRiskLevel  = 5
)

// #endregion

// #region plan

// Plan is the standing strategy for one battle. Values are never mutated in
// place: every With* method returns a new Plan with cloned slices.
type Plan struct {
	ID                string         `json:"planId"`
	OverallObjective  string         `json:"overallObjective,omitempty"`
	BattlePhases      []Phase        `json:"battlePhases,omitempty"`
	Status            Status         `json:"status"`
	CreatedAt         time.Time      `json:"createdAt"`
	LastUpdated       time.Time      `json:"lastUpdated"`
	KeyTactics        []string       `json:"keyTactics,omitempty"`
	RiskAssessment    RiskAssessment `json:"riskAssessment"`
	AdjustmentHistory []Adjustment   `json:"adjustmentHistory,omitempty"`
}

// Phase is one ordered stage of a Plan.
type Phase struct {
	Name              string      `json:"phaseName"`
	Description       string      `json:"description,omitempty"`
	Objectives        []Objective `json:"objectives,omitempty"`
	Status            PhaseStatus `json:"status"`
	Priority          int         `json:"priority"`
	ExpectedTurns     int         `json:"expectedTurns"`
	ActualTurns       int         `json:"actualTurns"`
	SuccessConditions []string    `json:"successConditions,omitempty"`
	FailureRisks      []string    `json:"failureRisks,omitempty"`
}

// Objective is a goal inside a Phase.
type Objective struct {
	Description string   `json:"description"`
	IsCompleted bool     `json:"isCompleted"`
	Importance  int      `json:"importance"`
	Actions     []string `json:"actions,omitempty"`
}

// RiskAssessment summarises the threats to a Plan.
type RiskAssessment struct {
	OverallRiskLevel  int      `json:"overallRiskLevel"`
	MajorThreats      []string `json:"majorThreats,omitempty"`
	CounterStrategies []string `json:"counterStrategies,omitempty"`
	BackupPlans       []string `json:"backupPlans,omitempty"`
}

// Adjustment is one recorded revision. Entries are appended, never edited.
type Adjustment struct {
	Timestamp  time.Time      `json:"adjustmentTime"`
	Reason     string         `json:"reason"`
	Type       AdjustmentType `json:"type"`
	Changes    string         `json:"changes,omitempty"`
	TurnNumber int            `json:"turnNumber"`
}

// Content is the oracle-authored part of a plan, replaced wholesale by an adjustment.
type Content struct {
	OverallObjective string         `json:"overallObjective"`
	BattlePhases     []Phase        `json:"battlePhases"`
	KeyTactics       []string       `json:"keyTactics"`
	RiskAssessment   RiskAssessment `json:"riskAssessment"`
}

// Empty reports whether c carries nothing the oracle wrote.
func (c Content) Empty() bool {
	r := c.RiskAssessment
	return c.OverallObjective == "" && len(c.BattlePhases) == 0 && len(c.KeyTactics) == 0 &&
		len(r.MajorThreats) == 0 && len(r.CounterStrategies) == 0 && len(r.BackupPlans) == 0
}

// #endregion

// #region completion

// Completion is the integer percentage of phases marked Completed, 0 with no phases.
func (p Plan) Completion() int {
	if len(p.BattlePhases) == 0 {
		return 0
	}
	done := 0
	for _, ph := range p.BattlePhases {
		if ph.Status == PhaseCompleted {
			done++
		}
	}
	return 100 * done / len(p.BattlePhases)
}

// #endregion

// #region normalize

// Normalize fills defaults and clamps numeric fields into range:
// priority, importance and risk level 1-10 (0 means unset and becomes 5),
// expected turns at least 1, actual turns at least 0.
func (c Content) Normalize() Content {
	out := c.clone()
	for i := range out.BattlePhases {
		ph := &out.BattlePhases[i]
		ph.Priority = scale(ph.Priority, defaultPriority)
		ph.ExpectedTurns = max(ph.ExpectedTurns, 1)
		ph.ActualTurns = max(ph.ActualTurns, 0)
		if ph.Status == "" {
			ph.Status = PhasePending
		}
		for j := range ph.Objectives {
			ph.Objectives[j].Importance = scale(ph.Objectives[j].Importance, defaultImportance)
		}
	}
	out.RiskAssessment.OverallRiskLevel = scale(out.RiskAssessment.OverallRiskLevel, defaultRiskLevel)
	return out
}

func scale(v, def int) int {
	if v == 0 {
		return def
	}
	return min(max(v, 1), 10)
}

// #endregion

// #region clone

// Clone returns a deep copy of p. Empty slices come back nil, matching what
// Deserialize produces for omitted fields.
func (p Plan) Clone() Plan {
	out := p
	out.BattlePhases = clonePhases(p.BattlePhases)
	out.KeyTactics = cloneSlice(p.KeyTactics)
	out.RiskAssessment = p.RiskAssessment.clone()
	out.AdjustmentHistory = cloneSlice(p.AdjustmentHistory)
	return out
}

func (c Content) clone() Content {
	return Content{
		OverallObjective: c.OverallObjective,
		BattlePhases:     clonePhases(c.BattlePhases),
		KeyTactics:       cloneSlice(c.KeyTactics),
		RiskAssessment:   c.RiskAssessment.clone(),
	}
}

func (r RiskAssessment) clone() RiskAssessment {
	r.MajorThreats = cloneSlice(r.MajorThreats)
	r.CounterStrategies = cloneSlice(r.CounterStrategies)
	r.BackupPlans = cloneSlice(r.BackupPlans)
	return r
}

func cloneSlice[T any](s []T) []T {
	if len(s) == 0 {
		return nil
	}
	return slices.Clone(s)
}

func clonePhases(phases []Phase) []Phase {
	if len(phases) == 0 {
		return nil
	}
	out := make([]Phase, len(phases))
	for i, ph := range phases {
		ph.Objectives = cloneObjectives(ph.Objectives)
		ph.SuccessConditions = cloneSlice(ph.SuccessConditions)
		ph.FailureRisks = cloneSlice(ph.FailureRisks)
		out[i] = ph
	}
	return out
}

func cloneObjectives(objs []Objective) []Objective {
	if len(objs) == 0 {
		return nil
	}
	out := make([]Objective, len(objs))
	for i, o := range objs {
		o.Actions = cloneSlice(o.Actions)
		out[i] = o
	}
	return out
}

// #endregion
