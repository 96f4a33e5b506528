package orchestrator

// #region imports
import (
	"context"
	"errors"
	"time"

	"github.com/danielpatrickdp/battle-trainer/internal/battle"
	"github.com/danielpatrickdp/battle-trainer/internal/decision"
	"github.com/danielpatrickdp/battle-trainer/internal/knowledge"
	"github.com/danielpatrickdp/battle-trainer/internal/logging"
	"github.com/danielpatrickdp/battle-trainer/internal/oracle"
	"github.com/danielpatrickdp/battle-trainer/internal/plan"
	"github.com/danielpatrickdp/battle-trainer/internal/prompt"
	"github.com/danielpatrickdp/battle-trainer/internal/store"
)

// #endregion

// #region outcome

// Outcome is how a turn ended.
type Outcome string

const (
	OutcomeSubmitted Outcome = "submitted"
	OutcomeStale     Outcome = "stale"
	OutcomeFailed    Outcome = "failed"
)

// ErrTurnInFlight is returned when a turn arrives while the previous one is still being decided.
var ErrTurnInFlight = errors.New("turn already in flight")

// #endregion

// #region collaborators

// Client is the battle protocol connection for one battle.
type Client interface {
	// Turn is the live turn number.
	Turn() int
	// View is the state of the current request.
	View() battle.View
	// Submit sends cmds as the choice for turn. It fails when the live turn
	// is no longer turn.
	Submit(ctx context.Context, turn int, cmds []decision.Command) error
}

// Planner maintains the battle plan. *plan.Manager implements it.
type Planner interface {
	CreateInitial(ctx context.Context, c plan.Context) (plan.Plan, error)
	Update(ctx context.Context, p plan.Plan, c plan.Context) (plan.Plan, error)
	Finish(p plan.Plan, won bool) (plan.Plan, error)
}

// PlanStore persists plan versions. *store.Store implements it.
type PlanStore interface {
	Current(tag string) (store.Version, error)
	CommitPlan(tag string, p plan.Plan, turn int) (store.Version, error)
	RecordAdjustment(rec store.AdjustmentRecord) error
}

// PromptBuilder assembles the oracle requests. prompt.Default implements it.
type PromptBuilder interface {
	PlanContext(in prompt.Input) plan.Context
	ChooseMove(in prompt.Input) []oracle.Message
	ForceSwitch(in prompt.Input, c battle.ForceSwitchCondition) []oracle.Message
	TeamOrder(in prompt.Input, c battle.TeamOrderCondition) []oracle.Message
	BattleSummary(in prompt.Input, won bool) []oracle.Message
}

// #endregion

// #region deps

// Deps wires a Session. Store, LogTurn and Knowledge are optional.
type Deps struct {
	Client     Client
	Oracle     oracle.Client
	Plans      Planner
	Store      PlanStore
	LogTurn    func(logging.TurnEntry) error
	Prompts    PromptBuilder
	Translator *decision.Translator
	Knowledge  *knowledge.Registry

	// SeriesKey groups battles of one series in the knowledge registry.
	SeriesKey string
	Format    string

	Clock        Clock
	PollInterval time.Duration

	DecisionEffort string
	SummaryEffort  string
	// MaxRetries bounds extra oracle calls after an uninterpretable reply.
	MaxRetries int
}

const defaultPollInterval = time.Second

func (d *Deps) applyDefaults() {
	if d.Clock == nil {
		d.Clock = RealClock()
	}
	if d.PollInterval <= 0 {
		d.PollInterval = defaultPollInterval
	}
	if d.Translator == nil {
		d.Translator = decision.NewTranslator(nil)
	}
	if d.Prompts == nil {
		d.Prompts = prompt.Default{}
	}
	if d.DecisionEffort == "" {
		d.DecisionEffort = "medium"
	}
	if d.SummaryEffort == "" {
		d.SummaryEffort = "medium"
	}
	if d.MaxRetries < 0 {
		d.MaxRetries = 0
	}
}

// #endregion
