package orchestrator

// #region imports
import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/danielpatrickdp/battle-trainer/internal/battle"
	"github.com/danielpatrickdp/battle-trainer/internal/decision"
	"github.com/danielpatrickdp/battle-trainer/internal/logging"
	"github.com/danielpatrickdp/battle-trainer/internal/oracle"
	"github.com/danielpatrickdp/battle-trainer/internal/plan"
	"github.com/danielpatrickdp/battle-trainer/internal/prompt"
	"github.com/danielpatrickdp/battle-trainer/internal/store"
)

// #endregion

// #region session-struct

// Session decides the turns of one battle. At most one turn is in flight at
// a time; the plan reference is replaced, never mutated.
type Session struct {
	tag   string
	deps  Deps
	retry *RetryEngine

	mu        sync.Mutex // held for the whole of a turn
	plan      plan.Plan
	hasPlan   bool
	updated   bool
	lastTurn  int    // turn of the last plan update
	committed string // serialized form of the last persisted version
	versionID string
	tactics   json.RawMessage
}

// NewSession creates the session for battle tag.
func NewSession(tag string, deps Deps) *Session {
	deps.applyDefaults()
	return &Session{
		tag:   tag,
		deps:  deps,
		retry: NewRetryEngine(deps.MaxRetries),
	}
}

// Tag returns the battle tag.
func (s *Session) Tag() string { return s.tag }

// Plan returns the current plan and whether one exists yet.
func (s *Session) Plan() (plan.Plan, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plan, s.hasPlan
}

// #endregion

// #region handle-turn

// HandleTurn decides and submits the commands for cond on the live turn.
// A result computed for a turn that has since moved on is discarded and
// reported as OutcomeStale with a nil error. An oracle failure or an
// uninterpretable reply for the required action is OutcomeFailed with the
// error. Cancelling ctx aborts the turn with ctx.Err(), unless the turn has
// already moved on, which is reported as stale.
func (s *Session) HandleTurn(ctx context.Context, cond battle.Condition) (Outcome, error) {
	if !s.mu.TryLock() {
		return "", ErrTurnInFlight
	}
	defer s.mu.Unlock()

	client := s.deps.Client
	start := client.Turn()
	v := client.View()
	entry := logging.TurnEntry{BattleTag: s.tag, Turn: start, Condition: cond.Kind()}

	consult, cancel := context.WithCancel(ctx)
	defer cancel()
	wd := startWatchdog(consult, client, start, s.deps.Clock, s.deps.PollInterval, cancel)

	in := prompt.Input{View: v, Format: s.deps.Format, Knowledge: s.knowledge(), Tactics: s.tactics}

	// Team preview comes before turn 1; there is no battle to plan yet.
	if _, preview := cond.(battle.TeamOrderCondition); !preview {
		if err := s.refreshPlan(consult, in, start); err != nil {
			if wd.Stale(client) {
				return s.stale(entry), nil
			}
			if ctx.Err() != nil {
				return OutcomeFailed, ctx.Err()
			}
			return s.fail(entry, fmt.Errorf("refresh plan: %w", err))
		}
		p := s.plan
		in.Plan = &p
	}
	entry.VersionID = s.versionID

	msgs, err := s.messages(cond, in)
	if err != nil {
		return s.fail(entry, err)
	}

	var attempts []Attempt
	for {
		text, err := s.deps.Oracle.Chat(consult, msgs, oracle.Options{ReasoningEffort: s.deps.DecisionEffort})
		if wd.Stale(client) {
			return s.stale(entry), nil
		}
		if ctx.Err() != nil {
			return OutcomeFailed, ctx.Err()
		}
		if err != nil {
			return s.fail(entry, fmt.Errorf("consult oracle: %w", err))
		}

		res, err := s.deps.Translator.Interpret(cond, text, v)
		if err != nil {
			attempts = append(attempts, Attempt{Text: text, Err: err})
			if again, extra := s.retry.ShouldRetry(attempts); again {
				log.Printf("[ORCH] %s turn %d: retrying after unreadable reply (attempt %d): %v", s.tag, start, len(attempts), err)
				msgs = append(append([]oracle.Message{}, msgs...), extra...)
				continue
			}
			return s.fail(entry, err)
		}

		entry.Reason = res.Think
		if res.Tactics != nil {
			entry.Reason = string(res.Tactics)
		}
		entry.Warnings = res.Warnings
		if wd.Stale(client) {
			return s.stale(entry), nil
		}
		if err := client.Submit(ctx, start, res.Commands); err != nil {
			if wd.Stale(client) {
				return s.stale(entry), nil
			}
			return s.fail(entry, fmt.Errorf("submit: %w", err))
		}
		if res.Tactics != nil {
			s.tactics = res.Tactics
		}

		entry.Outcome = string(OutcomeSubmitted)
		entry.Choice = decision.FormatChoice(res.Commands)
		log.Printf("[ORCH] %s turn %d: submitted %q (%d warnings)", s.tag, start, entry.Choice, len(res.Warnings))
		s.logTurn(entry)
		return OutcomeSubmitted, nil
	}
}

func (s *Session) messages(cond battle.Condition, in prompt.Input) ([]oracle.Message, error) {
	switch c := cond.(type) {
	case battle.ChooseCondition:
		return s.deps.Prompts.ChooseMove(in), nil
	case battle.ForceSwitchCondition:
		return s.deps.Prompts.ForceSwitch(in, c), nil
	case battle.TeamOrderCondition:
		return s.deps.Prompts.TeamOrder(in, c), nil
	default:
		return nil, fmt.Errorf("unknown condition %T", cond)
	}
}

// #endregion

// #region plan-maintenance

// refreshPlan makes sure a plan exists and runs at most one update on it per
// turn; a forced switch inside an already planned turn reuses the plan.
func (s *Session) refreshPlan(ctx context.Context, in prompt.Input, turn int) error {
	pc := s.deps.Prompts.PlanContext(in)

	if !s.hasPlan {
		if p, ok := s.loadPlan(); ok {
			s.plan, s.hasPlan = p, true
		} else {
			p, err := s.deps.Plans.CreateInitial(ctx, pc)
			if err != nil {
				return fmt.Errorf("create plan: %w", err)
			}
			s.plan, s.hasPlan = p, true
			s.commit(plan.Plan{}, p, pc.Turn)
		}
	}

	if s.updated && turn <= s.lastTurn {
		return nil
	}
	prev := s.plan
	next, err := s.deps.Plans.Update(ctx, prev, pc)
	if err != nil {
		return fmt.Errorf("update plan: %w", err)
	}
	s.plan = next
	s.updated, s.lastTurn = true, turn
	s.commit(prev, next, pc.Turn)
	return nil
}

func (s *Session) loadPlan() (plan.Plan, bool) {
	if s.deps.Store == nil {
		return plan.Plan{}, false
	}
	v, err := s.deps.Store.Current(s.tag)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("[ORCH] %s: load plan: %v", s.tag, err)
		}
		return plan.Plan{}, false
	}
	p, ok := plan.Deserialize(v.PlanJSON)
	if !ok {
		log.Printf("[ORCH] %s: stored version %s is unreadable, creating a new plan", s.tag, v.VersionID)
		return plan.Plan{}, false
	}
	s.versionID = v.VersionID
	s.committed = v.PlanJSON
	log.Printf("[ORCH] %s: resumed plan %s from version %s", s.tag, p.ID, v.VersionID)
	return p, true
}

// commit persists next when it differs from the last stored version and
// records an audit row for a new adjustment. Store failures are logged; the
// in-memory plan stays authoritative for the turn.
func (s *Session) commit(prev, next plan.Plan, turn int) {
	if s.deps.Store == nil {
		return
	}
	serialized := plan.Serialize(next)
	if serialized == s.committed {
		return
	}
	v, err := s.deps.Store.CommitPlan(s.tag, next, turn)
	if err != nil {
		log.Printf("[ORCH] %s: commit plan: %v", s.tag, err)
		return
	}
	s.versionID = v.VersionID
	s.committed = serialized

	if len(next.AdjustmentHistory) <= len(prev.AdjustmentHistory) {
		return
	}
	adj := next.AdjustmentHistory[len(next.AdjustmentHistory)-1]
	diff, err := plan.Diff(prev, next)
	if err != nil {
		log.Printf("[ORCH] %s: diff plan: %v", s.tag, err)
	}
	err = s.deps.Store.RecordAdjustment(store.AdjustmentRecord{
		BattleTag: s.tag,
		PlanID:    next.ID,
		VersionID: v.VersionID,
		Turn:      adj.TurnNumber,
		Type:      adj.Type,
		Reason:    adj.Reason,
		Changes:   adj.Changes,
		Diff:      diff,
		CreatedAt: adj.Timestamp,
	})
	if err != nil {
		log.Printf("[ORCH] %s: record adjustment: %v", s.tag, err)
	}
}

// #endregion

// #region end-battle

// EndBattle closes the plan and, when a knowledge registry is wired, asks the
// oracle for a short summary of the battle and records it under the series.
// A failed summary is logged, not returned.
func (s *Session) EndBattle(ctx context.Context, won bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	in := prompt.Input{View: s.deps.Client.View(), Format: s.deps.Format, Knowledge: s.knowledge(), Tactics: s.tactics}
	if s.hasPlan {
		prev := s.plan
		done, err := s.deps.Plans.Finish(prev, won)
		if err != nil {
			return fmt.Errorf("finish plan: %w", err)
		}
		s.plan = done
		s.commit(prev, done, in.View.Turn)
		in.Plan = &done
	}

	if s.deps.Knowledge == nil {
		return nil
	}
	text, err := s.deps.Oracle.Chat(ctx, s.deps.Prompts.BattleSummary(in, won), oracle.Options{ReasoningEffort: s.deps.SummaryEffort})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("[ORCH] %s: battle summary failed: %v", s.tag, err)
		return nil
	}
	if err := s.deps.Knowledge.Add(s.deps.SeriesKey, strings.TrimSpace(oracle.StripFences(text))); err != nil {
		log.Printf("[ORCH] %s: record summary: %v", s.tag, err)
	}
	return nil
}

// #endregion

// #region outcomes

func (s *Session) knowledge() string {
	if s.deps.Knowledge == nil {
		return ""
	}
	return s.deps.Knowledge.Render(s.deps.SeriesKey)
}

func (s *Session) stale(entry logging.TurnEntry) Outcome {
	log.Printf("[ORCH] %s turn %d: result discarded, turn is now %d", s.tag, entry.Turn, s.deps.Client.Turn())
	entry.Outcome = string(OutcomeStale)
	entry.Choice = ""
	s.logTurn(entry)
	return OutcomeStale
}

func (s *Session) fail(entry logging.TurnEntry, err error) (Outcome, error) {
	log.Printf("[ORCH] %s turn %d: %v", s.tag, entry.Turn, err)
	entry.Outcome = string(OutcomeFailed)
	entry.Reason = err.Error()
	s.logTurn(entry)
	return OutcomeFailed, err
}

func (s *Session) logTurn(entry logging.TurnEntry) {
	if s.deps.LogTurn == nil {
		return
	}
	if err := s.deps.LogTurn(entry); err != nil {
		log.Printf("[ORCH] %s turn %d: turn log: %v", s.tag, entry.Turn, err)
	}
}

// #endregion
