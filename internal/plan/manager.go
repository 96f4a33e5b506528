package plan

// #region imports
import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/battle-trainer/internal/oracle"
)

// #endregion

// #region efforts

// Efforts is the reasoning-effort hint sent with each kind of plan request.
type Efforts struct {
	Create   string
	Evaluate string
	Adjust   string
}

// DefaultEfforts spends the most reasoning on the initial plan.
func DefaultEfforts() Efforts {
	return Efforts{Create: "high", Evaluate: "medium", Adjust: "medium"}
}

// #endregion

// #region manager

// Manager creates, evaluates and revises plans. It is the only writer of
// plan values and must be called at most once per turn per battle.
type Manager struct {
	oracle  oracle.Client
	efforts Efforts

	// Now and NewID are replaceable for tests.
	Now   func() time.Time
	NewID func() string
}

// NewManager creates a manager backed by client.
func NewManager(client oracle.Client, efforts Efforts) *Manager {
	return &Manager{
		oracle:  client,
		efforts: efforts,
		Now:     func() time.Time { return time.Now().UTC() },
		NewID:   func() string { return uuid.New().String() },
	}
}

// #endregion

// #region create

// CreateInitial asks the oracle for a plan. Unparseable or missing sections
// come back empty and an oracle failure yields an empty Active plan; only a
// cancelled ctx is returned as an error.
func (m *Manager) CreateInitial(ctx context.Context, c Context) (Plan, error) {
	text, err := m.oracle.Chat(ctx, oracle.System(initialPrompt(c)), oracle.Options{ReasoningEffort: m.efforts.Create})
	if err != nil {
		if ctx.Err() != nil {
			return Plan{}, ctx.Err()
		}
		log.Printf("[PLAN] create for %s turn %d: oracle failed, starting empty: %v", c.Tag, c.Turn, err)
		text = ""
	}

	now := m.Now()
	p := Plan{
		ID:          m.NewID(),
		Status:      StatusActive,
		CreatedAt:   now,
		LastUpdated: now,
	}.WithContent(ParseText(text), now)

	log.Printf("[PLAN] created %s for %s: phases=%d tactics=%d", p.ID, c.Tag, len(p.BattlePhases), len(p.KeyTactics))
	return p, nil
}

// #endregion

// #region evaluate

// EvaluateProgress asks the oracle whether p still fits. It never fails: an
// unreachable oracle or an unreadable reply means no adjustment.
func (m *Manager) EvaluateProgress(ctx context.Context, p Plan, c Context) Evaluation {
	text, err := m.oracle.Chat(ctx, oracle.System(evaluationPrompt(p, c)), oracle.Options{ReasoningEffort: m.efforts.Evaluate})
	if err != nil {
		log.Printf("[PLAN] evaluate %s turn %d: %v", p.ID, c.Turn, err)
		return Evaluation{Reason: "evaluation unavailable: " + err.Error(), Type: AdjustMinor}
	}
	ev := ParseEvaluation(text)
	if ev.Reason == unparsedReason {
		log.Printf("[PLAN] evaluate %s turn %d: unparseable reply (%d bytes)", p.ID, c.Turn, len(text))
	}
	return ev
}

// #endregion

// #region update

// Update evaluates p and returns its successor. Without an adjustment this is
// a progress tick. With one, the oracle rewrites the plan content and an
// Adjustment is appended; id, creation time and prior history are kept.
// Terminal plans are returned unchanged.
func (m *Manager) Update(ctx context.Context, p Plan, c Context) (Plan, error) {
	if p.Status.Terminal() {
		return p, nil
	}

	ev := m.EvaluateProgress(ctx, p, c)
	if err := ctx.Err(); err != nil {
		return p, err
	}
	if !ev.NeedsAdjustment {
		return m.progress(p, c.Turn), nil
	}

	working := p
	if p.Status == StatusActive {
		var err error
		if working, err = p.WithStatus(StatusAdjusting, m.Now()); err != nil {
			return p, err
		}
	}

	text, err := m.oracle.Chat(ctx, oracle.System(adjustmentPrompt(working, ev, c)), oracle.Options{ReasoningEffort: m.efforts.Adjust})
	if err != nil {
		if ctx.Err() != nil {
			return p, ctx.Err()
		}
		log.Printf("[PLAN] adjust %s turn %d: oracle failed, keeping plan: %v", p.ID, c.Turn, err)
		return m.progress(p, c.Turn), nil
	}
	content := ParseText(text)
	if content.Empty() {
		log.Printf("[PLAN] adjust %s turn %d: reply had no plan content, keeping plan", p.ID, c.Turn)
		return m.progress(p, c.Turn), nil
	}

	now := m.Now()
	adjusted := working.WithContent(content, now).WithAdjustment(Adjustment{
		Timestamp:  now,
		Reason:     ev.Reason,
		Type:       ev.Type,
		Changes:    strings.Join(ev.SuggestedChanges, "; "),
		TurnNumber: c.Turn,
	})
	adjusted, err = adjusted.WithStatus(StatusActive, now)
	if err != nil {
		return p, err
	}

	log.Printf("[PLAN] adjusted %s turn %d: type=%s reason=%q history=%d",
		adjusted.ID, c.Turn, ev.Type, ev.Reason, len(adjusted.AdjustmentHistory))
	return adjusted, nil
}

// progress is the cheap per-turn tick. A plan left Adjusting by an earlier
// failure goes back to Active.
func (m *Manager) progress(p Plan, turn int) Plan {
	now := m.Now()
	out := p.WithProgress(turn, now)
	if out.Status == StatusAdjusting {
		out, _ = out.WithStatus(StatusActive, now)
	}
	return out
}

// #endregion

// #region finish

// Finish closes p when the battle ends: Completed on a win, Failed otherwise.
// Already terminal plans are returned unchanged.
func (m *Manager) Finish(p Plan, won bool) (Plan, error) {
	if p.Status.Terminal() {
		return p, nil
	}
	now := m.Now()
	if won && p.Status == StatusAdjusting {
		var err error
		if p, err = p.WithStatus(StatusActive, now); err != nil {
			return p, err
		}
	}
	target := StatusFailed
	if won {
		target = StatusCompleted
	}
	out, err := p.WithStatus(target, now)
	if err != nil {
		return p, err
	}
	log.Printf("[PLAN] finished %s: status=%s completion=%d%%", out.ID, out.Status, out.Completion())
	return out, nil
}

// #endregion
