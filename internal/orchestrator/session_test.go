package orchestrator

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danielpatrickdp/battle-trainer/internal/battle"
	"github.com/danielpatrickdp/battle-trainer/internal/decision"
	"github.com/danielpatrickdp/battle-trainer/internal/knowledge"
	"github.com/danielpatrickdp/battle-trainer/internal/logging"
	"github.com/danielpatrickdp/battle-trainer/internal/oracle"
	"github.com/danielpatrickdp/battle-trainer/internal/plan"
	"github.com/danielpatrickdp/battle-trainer/internal/store"
)

// #region fakes

type fakeClock struct {
	ticks chan time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{ticks: make(chan time.Time, 1)}
}

func (c *fakeClock) NewTicker(time.Duration) Ticker { return fakeTicker{c: c.ticks} }

func (c *fakeClock) Tick() { c.ticks <- time.Time{} }

type fakeTicker struct{ c chan time.Time }

func (t fakeTicker) C() <-chan time.Time { return t.c }
func (fakeTicker) Stop()                 {}

type fakeClient struct {
	mu        sync.Mutex
	turn      int
	view      battle.View
	submitted []string
}

func (c *fakeClient) Turn() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.turn
}

func (c *fakeClient) SetTurn(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turn = n
}

func (c *fakeClient) View() battle.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *fakeClient) Submit(_ context.Context, turn int, cmds []decision.Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if turn != c.turn {
		return errors.New("turn already advanced")
	}
	c.submitted = append(c.submitted, decision.FormatChoice(cmds))
	return nil
}

func (c *fakeClient) Submitted() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.submitted...)
}

type oracleFunc func(ctx context.Context, msgs []oracle.Message, opts oracle.Options) (string, error)

func (f oracleFunc) Chat(ctx context.Context, msgs []oracle.Message, opts oracle.Options) (string, error) {
	return f(ctx, msgs, opts)
}

// fakePlanner records the order of plan calls in a shared event list.
type fakePlanner struct {
	events *[]string
	mu     *sync.Mutex
}

func (p fakePlanner) record(e string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	*p.events = append(*p.events, e)
}

func (p fakePlanner) CreateInitial(_ context.Context, c plan.Context) (plan.Plan, error) {
	p.record("create")
	return plan.Plan{ID: "plan-1", Status: plan.StatusActive}, nil
}

func (p fakePlanner) Update(_ context.Context, pl plan.Plan, c plan.Context) (plan.Plan, error) {
	p.record("update")
	return pl.WithProgress(c.Turn, time.Time{}), nil
}

func (p fakePlanner) Finish(pl plan.Plan, won bool) (plan.Plan, error) {
	p.record("finish")
	if won {
		return pl.WithStatus(plan.StatusCompleted, time.Time{})
	}
	return pl.WithStatus(plan.StatusFailed, time.Time{})
}

type harness struct {
	client  *fakeClient
	clock   *fakeClock
	mu      sync.Mutex
	events  []string
	entries []logging.TurnEntry
}

func newHarness(turn int) *harness {
	return &harness{
		client: &fakeClient{turn: turn, view: doublesView(turn)},
		clock:  newFakeClock(),
	}
}

func (h *harness) record(e string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
}

func (h *harness) deps(o oracle.Client) Deps {
	return Deps{
		Client:  h.client,
		Oracle:  o,
		Plans:   fakePlanner{events: &h.events, mu: &h.mu},
		Clock:   h.clock,
		LogTurn: func(e logging.TurnEntry) error { h.entries = append(h.entries, e); return nil },
	}
}

func doublesView(turn int) battle.View {
	return battle.View{
		Tag:  "battle-gen9vgc-42",
		Turn: turn,
		Request: battle.Request{
			Active: []battle.ActiveSlot{
				{Moves: []battle.Move{
					{Name: "Fake Out", ID: "fakeout", Target: "normal"},
					{Name: "Protect", ID: "protect", Target: "self"},
				}},
				{Moves: []battle.Move{
					{Name: "Spore", ID: "spore", Target: "normal"},
					{Name: "Rage Powder", ID: "ragepowder", Target: "self"},
				}},
			},
			Side: []battle.SidePokemon{
				{Ident: "p1: Incineroar", Condition: "100/100", Active: true},
				{Ident: "p1: Amoonguss", Condition: "100/100", Active: true},
				{Ident: "p1: Toxapex", Condition: "100/100"},
				{Ident: "p1: Urshifu", Condition: "100/100"},
			},
		},
		Opponents: []battle.FieldPokemon{
			{Name: "Flutter Mane", Position: 0},
			{Name: "Chi-Yu", Position: 1},
		},
	}
}

const chooseReply = `{"think": "pressure Chi-Yu", "actions": [
	{"move": {"name": "Fake Out", "move_target_pokemon": "Chi-Yu", "target_side": "opp"}},
	{"move": {"name": "Spore", "move_target_pokemon": "Flutter Mane"}}
]}`

// #endregion

// #region handle-turn

func TestHandleTurn_ChooseSubmits(t *testing.T) {
	h := newHarness(3)
	o := oracleFunc(func(_ context.Context, msgs []oracle.Message, opts oracle.Options) (string, error) {
		h.record("decide")
		if opts.ReasoningEffort != "medium" {
			t.Errorf("expected default decision effort, got %q", opts.ReasoningEffort)
		}
		return chooseReply, nil
	})
	s := NewSession("battle-gen9vgc-42", h.deps(o))

	out, err := s.HandleTurn(context.Background(), battle.ChooseCondition{})
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	if out != OutcomeSubmitted {
		t.Fatalf("expected submitted, got %s", out)
	}

	got := h.client.Submitted()
	if len(got) != 1 || got[0] != "move 1 2, move 1 1" {
		t.Errorf("unexpected submission: %v", got)
	}

	want := []string{"create", "update", "decide"}
	if strings.Join(h.events, ",") != strings.Join(want, ",") {
		t.Errorf("expected call order %v, got %v", want, h.events)
	}

	if len(h.entries) != 1 {
		t.Fatalf("expected 1 turn log entry, got %d", len(h.entries))
	}
	e := h.entries[0]
	if e.Outcome != "submitted" || e.Turn != 3 || e.Condition != "choose" || e.Reason != "pressure Chi-Yu" {
		t.Errorf("unexpected turn entry: %+v", e)
	}

	p, ok := s.Plan()
	if !ok || p.ID != "plan-1" {
		t.Errorf("expected plan-1 to be current, got %+v (ok=%v)", p, ok)
	}
}

func TestHandleTurn_UpdatesExistingPlanEachTurn(t *testing.T) {
	h := newHarness(1)
	o := oracleFunc(func(context.Context, []oracle.Message, oracle.Options) (string, error) {
		return chooseReply, nil
	})
	s := NewSession("battle-gen9vgc-42", h.deps(o))

	for turn := 1; turn <= 2; turn++ {
		h.client.SetTurn(turn)
		if _, err := s.HandleTurn(context.Background(), battle.ChooseCondition{}); err != nil {
			t.Fatalf("turn %d: %v", turn, err)
		}
	}
	want := "create,update,update"
	if got := strings.Join(h.events, ","); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestHandleTurn_WatchdogCancelsStaleConsultation(t *testing.T) {
	h := newHarness(5)
	o := oracleFunc(func(ctx context.Context, _ []oracle.Message, _ oracle.Options) (string, error) {
		// The simulator resolves the turn on a timeout while we think.
		h.client.SetTurn(6)
		h.clock.Tick()
		<-ctx.Done()
		return "", ctx.Err()
	})
	s := NewSession("battle-gen9vgc-42", h.deps(o))

	out, err := s.HandleTurn(context.Background(), battle.ChooseCondition{})
	if err != nil {
		t.Fatalf("stale turn should not be an error, got %v", err)
	}
	if out != OutcomeStale {
		t.Fatalf("expected stale, got %s", out)
	}
	if got := h.client.Submitted(); len(got) != 0 {
		t.Errorf("stale decision must not be submitted, got %v", got)
	}
	if len(h.entries) != 1 || h.entries[0].Outcome != "stale" || h.entries[0].Turn != 5 {
		t.Errorf("expected one stale entry for turn 5, got %+v", h.entries)
	}
}

func TestHandleTurn_DiscardsReplyForAdvancedTurn(t *testing.T) {
	h := newHarness(5)
	o := oracleFunc(func(context.Context, []oracle.Message, oracle.Options) (string, error) {
		h.client.SetTurn(6)
		return chooseReply, nil
	})
	s := NewSession("battle-gen9vgc-42", h.deps(o))

	out, err := s.HandleTurn(context.Background(), battle.ChooseCondition{})
	if err != nil || out != OutcomeStale {
		t.Fatalf("expected stale with nil error, got %s, %v", out, err)
	}
	if got := h.client.Submitted(); len(got) != 0 {
		t.Errorf("stale decision must not be submitted, got %v", got)
	}
}

func TestHandleTurn_SingleFlight(t *testing.T) {
	h := newHarness(2)
	entered := make(chan struct{})
	release := make(chan struct{})
	o := oracleFunc(func(context.Context, []oracle.Message, oracle.Options) (string, error) {
		close(entered)
		<-release
		return chooseReply, nil
	})
	s := NewSession("battle-gen9vgc-42", h.deps(o))

	done := make(chan error, 1)
	go func() {
		_, err := s.HandleTurn(context.Background(), battle.ChooseCondition{})
		done <- err
	}()
	<-entered

	if _, err := s.HandleTurn(context.Background(), battle.ChooseCondition{}); !errors.Is(err, ErrTurnInFlight) {
		t.Errorf("expected ErrTurnInFlight, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first turn: %v", err)
	}
}

func TestHandleTurn_RetriesUninterpretableReply(t *testing.T) {
	h := newHarness(2)
	var calls [][]oracle.Message
	o := oracleFunc(func(_ context.Context, msgs []oracle.Message, _ oracle.Options) (string, error) {
		calls = append(calls, msgs)
		if len(calls) == 1 {
			return "I would attack with Fake Out.", nil
		}
		return chooseReply, nil
	})
	deps := h.deps(o)
	deps.MaxRetries = 1
	s := NewSession("battle-gen9vgc-42", deps)

	out, err := s.HandleTurn(context.Background(), battle.ChooseCondition{})
	if err != nil || out != OutcomeSubmitted {
		t.Fatalf("expected submitted after retry, got %s, %v", out, err)
	}
	if len(calls) != 2 {
		t.Fatalf("expected 2 oracle calls, got %d", len(calls))
	}
	if len(calls[1]) != len(calls[0])+2 {
		t.Errorf("retry should append the reply and a reminder: %d -> %d messages", len(calls[0]), len(calls[1]))
	}
	if calls[1][len(calls[0])].Role != oracle.RoleAssistant {
		t.Errorf("expected the rejected reply echoed as assistant, got %s", calls[1][len(calls[0])].Role)
	}
}

func TestHandleTurn_UninterpretableReplyFails(t *testing.T) {
	h := newHarness(2)
	o := oracleFunc(func(context.Context, []oracle.Message, oracle.Options) (string, error) {
		return `{"think": "truncated`, nil
	})
	s := NewSession("battle-gen9vgc-42", h.deps(o))

	out, err := s.HandleTurn(context.Background(), battle.ChooseCondition{})
	if out != OutcomeFailed || !errors.Is(err, decision.ErrUninterpretable) {
		t.Fatalf("expected failed with ErrUninterpretable, got %s, %v", out, err)
	}
	if len(h.client.Submitted()) != 0 {
		t.Error("nothing should be submitted")
	}
	if len(h.entries) != 1 || h.entries[0].Outcome != "failed" || h.entries[0].Reason == "" {
		t.Errorf("expected failed entry with reason, got %+v", h.entries)
	}
}

func TestHandleTurn_OracleUnreachableFails(t *testing.T) {
	h := newHarness(2)
	backend := errors.New("connection refused")
	o := oracleFunc(func(context.Context, []oracle.Message, oracle.Options) (string, error) {
		return "", backend
	})
	s := NewSession("battle-gen9vgc-42", h.deps(o))

	out, err := s.HandleTurn(context.Background(), battle.ChooseCondition{})
	if out != OutcomeFailed || !errors.Is(err, backend) {
		t.Fatalf("expected failed wrapping backend error, got %s, %v", out, err)
	}
}

func TestHandleTurn_ParentCancelled(t *testing.T) {
	h := newHarness(2)
	ctx, cancel := context.WithCancel(context.Background())
	o := oracleFunc(func(ctx context.Context, _ []oracle.Message, _ oracle.Options) (string, error) {
		cancel()
		return "", ctx.Err()
	})
	s := NewSession("battle-gen9vgc-42", h.deps(o))

	if _, err := s.HandleTurn(ctx, battle.ChooseCondition{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestHandleTurn_ForcedSwitch(t *testing.T) {
	h := newHarness(4)
	o := oracleFunc(func(context.Context, []oracle.Message, oracle.Options) (string, error) {
		return `{"think": "wall them", "actions": [{"switch": "Toxapex"}]}`, nil
	})
	s := NewSession("battle-gen9vgc-42", h.deps(o))

	out, err := s.HandleTurn(context.Background(), battle.ForceSwitchCondition{Forced: []bool{true, false}})
	if err != nil || out != OutcomeSubmitted {
		t.Fatalf("expected submitted, got %s, %v", out, err)
	}
	if got := h.client.Submitted(); len(got) != 1 || got[0] != "switch 3, pass" {
		t.Errorf("unexpected submission: %v", got)
	}
}

func TestHandleTurn_ForcedSwitchReusesTurnPlan(t *testing.T) {
	h := newHarness(3)
	o := oracleFunc(func(_ context.Context, msgs []oracle.Message, _ oracle.Options) (string, error) {
		h.record("decide")
		if len(h.client.Submitted()) == 0 {
			return chooseReply, nil
		}
		return `{"think": "replace the lead", "actions": [{"switch": "Toxapex"}]}`, nil
	})
	s := NewSession("battle-gen9vgc-42", h.deps(o))

	if out, err := s.HandleTurn(context.Background(), battle.ChooseCondition{}); err != nil || out != OutcomeSubmitted {
		t.Fatalf("choose: %s, %v", out, err)
	}
	if out, err := s.HandleTurn(context.Background(), battle.ForceSwitchCondition{Forced: []bool{true, false}}); err != nil || out != OutcomeSubmitted {
		t.Fatalf("forced switch: %s, %v", out, err)
	}

	want := "create,update,decide,decide"
	if got := strings.Join(h.events, ","); got != want {
		t.Errorf("expected one plan update for turn 3: want %s, got %s", want, got)
	}

	h.client.SetTurn(4)
	if _, err := s.HandleTurn(context.Background(), battle.ChooseCondition{}); err != nil {
		t.Fatalf("turn 4: %v", err)
	}
	if n := strings.Count(strings.Join(h.events, ","), "update"); n != 2 {
		t.Errorf("expected the next turn to update again, got %d updates", n)
	}
}

func TestHandleTurn_CancelledAfterTurnMovedIsStale(t *testing.T) {
	h := newHarness(5)
	ctx, cancel := context.WithCancel(context.Background())
	o := oracleFunc(func(ctx context.Context, _ []oracle.Message, _ oracle.Options) (string, error) {
		// A newer request arrives and its owner cancels this turn before
		// the watchdog has polled.
		h.client.SetTurn(6)
		cancel()
		return "", ctx.Err()
	})
	s := NewSession("battle-gen9vgc-42", h.deps(o))

	out, err := s.HandleTurn(ctx, battle.ChooseCondition{})
	if err != nil || out != OutcomeStale {
		t.Fatalf("expected stale with nil error, got %s, %v", out, err)
	}
}

// advancingClient moves the live turn just before the choice is written.
type advancingClient struct{ *fakeClient }

func (c advancingClient) Submit(ctx context.Context, turn int, cmds []decision.Command) error {
	c.SetTurn(turn + 1)
	return c.fakeClient.Submit(ctx, turn, cmds)
}

func TestHandleTurn_SubmitRejectedForAdvancedTurn(t *testing.T) {
	h := newHarness(5)
	o := oracleFunc(func(context.Context, []oracle.Message, oracle.Options) (string, error) {
		return chooseReply, nil
	})
	deps := h.deps(o)
	deps.Client = advancingClient{h.client}
	s := NewSession("battle-gen9vgc-42", deps)

	out, err := s.HandleTurn(context.Background(), battle.ChooseCondition{})
	if err != nil || out != OutcomeStale {
		t.Fatalf("expected stale with nil error, got %s, %v", out, err)
	}
	if got := h.client.Submitted(); len(got) != 0 {
		t.Errorf("choice must not go out under a later turn, got %v", got)
	}
}

func TestHandleTurn_TeamOrderSkipsPlanAndKeepsTactics(t *testing.T) {
	h := newHarness(0)
	h.client.view.Team = []string{"Incineroar", "Amoonguss", "Toxapex", "Urshifu"}
	var lastSystem string
	o := oracleFunc(func(_ context.Context, msgs []oracle.Message, _ oracle.Options) (string, error) {
		lastSystem = msgs[0].Text
		if strings.Contains(msgs[len(msgs)-1].Text, "team order") {
			return `{"tactics": {"lead": "Incineroar Fake Out pressure"}, "order": ["Urshifu", "Incineroar", "Amoonguss", "Toxapex"]}`, nil
		}
		return chooseReply, nil
	})
	s := NewSession("battle-gen9vgc-42", h.deps(o))

	out, err := s.HandleTurn(context.Background(), battle.TeamOrderCondition{SelectSize: 4})
	if err != nil || out != OutcomeSubmitted {
		t.Fatalf("expected submitted, got %s, %v", out, err)
	}
	if got := h.client.Submitted(); len(got) != 1 || got[0] != "team 4123" {
		t.Errorf("unexpected submission: %v", got)
	}
	if len(h.events) != 0 {
		t.Errorf("team preview should not touch the plan, got %v", h.events)
	}
	if !strings.Contains(h.entries[0].Reason, "Fake Out pressure") {
		t.Errorf("expected tactics in turn log reason, got %q", h.entries[0].Reason)
	}

	h.client.SetTurn(1)
	if _, err := s.HandleTurn(context.Background(), battle.ChooseCondition{}); err != nil {
		t.Fatalf("turn 1: %v", err)
	}
	if !strings.Contains(lastSystem, "Fake Out pressure") {
		t.Error("tactics should be carried into later decision prompts")
	}
}

// #endregion

// #region end-battle

func TestEndBattle_FinishesPlanAndRecordsSummary(t *testing.T) {
	h := newHarness(1)
	reg := knowledge.NewRegistry("sun-team", "", nil)
	o := oracleFunc(func(_ context.Context, msgs []oracle.Message, opts oracle.Options) (string, error) {
		if strings.Contains(msgs[0].Text, "Summarize") {
			return "```\nLeading Incineroar into Chi-Yu worked.\n```", nil
		}
		return chooseReply, nil
	})
	deps := h.deps(o)
	deps.Knowledge = reg
	deps.SeriesKey = "bo3-1"
	s := NewSession("battle-gen9vgc-42", deps)

	if _, err := s.HandleTurn(context.Background(), battle.ChooseCondition{}); err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	if err := s.EndBattle(context.Background(), true); err != nil {
		t.Fatalf("EndBattle: %v", err)
	}

	p, _ := s.Plan()
	if p.Status != plan.StatusCompleted {
		t.Errorf("expected completed plan, got %s", p.Status)
	}
	got := reg.Series("bo3-1")
	if len(got) != 1 || got[0] != "Leading Incineroar into Chi-Yu worked." {
		t.Errorf("unexpected series knowledge: %v", got)
	}
}

// #endregion

// #region integration

func TestSession_WithManagerAndStore(t *testing.T) {
	st, err := store.NewStore(filepath.Join(t.TempDir(), "trainer.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer st.Close()

	evaluations := 0
	o := oracleFunc(func(_ context.Context, msgs []oracle.Message, _ oracle.Options) (string, error) {
		first := msgs[0].Text
		switch {
		case strings.Contains(first, "Create a battle plan"):
			return "Overall Objective: win the speed war\n\nBattle Phases:\n1. Opening (Turns 1-2)\n   - remove Chi-Yu\n2. Endgame (Turns 3-6)\n   - clean up\n\nKey Tactics:\n- Fake Out support\n", nil
		case strings.Contains(first, "evaluating"):
			evaluations++
			if evaluations == 2 {
				return `{"needsAdjustment": true, "reason": "Chi-Yu has Focus Sash", "adjustmentType": "Minor", "suggestedChanges": ["double into Chi-Yu"]}`, nil
			}
			return `{"needsAdjustment": false, "reason": "on track"}`, nil
		case strings.Contains(first, "needs adjustment"):
			return "Overall Objective: win the speed war\n\nBattle Phases:\n1. Opening (Turns 1-3)\n   - double into Chi-Yu\n\nKey Tactics:\n- Spread damage\n", nil
		}
		return chooseReply, nil
	})

	h := newHarness(1)
	deps := h.deps(o)
	deps.Plans = plan.NewManager(o, plan.DefaultEfforts())
	deps.Store = st
	deps.LogTurn = func(e logging.TurnEntry) error { return logging.LogTurn(st.DB(), e) }
	s := NewSession("battle-gen9vgc-42", deps)

	for turn := 1; turn <= 2; turn++ {
		h.client.SetTurn(turn)
		if out, err := s.HandleTurn(context.Background(), battle.ChooseCondition{}); err != nil || out != OutcomeSubmitted {
			t.Fatalf("turn %d: %s, %v", turn, out, err)
		}
	}

	cur, err := st.Current("battle-gen9vgc-42")
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	stored, ok := plan.Deserialize(cur.PlanJSON)
	if !ok {
		t.Fatal("stored plan should deserialize")
	}
	if len(stored.AdjustmentHistory) != 1 || stored.AdjustmentHistory[0].TurnNumber != 2 {
		t.Errorf("expected one adjustment at turn 2, got %+v", stored.AdjustmentHistory)
	}

	adjs, err := st.ListAdjustments("battle-gen9vgc-42")
	if err != nil {
		t.Fatalf("ListAdjustments: %v", err)
	}
	if len(adjs) != 1 || adjs[0].VersionID != cur.VersionID || !strings.Contains(adjs[0].Diff, "double into Chi-Yu") {
		t.Errorf("unexpected adjustment rows: %+v", adjs)
	}

	turns, err := logging.ListTurns(st.DB(), "battle-gen9vgc-42")
	if err != nil {
		t.Fatalf("ListTurns: %v", err)
	}
	if len(turns) != 2 || turns[1].VersionID != cur.VersionID {
		t.Errorf("expected two turns, last under the current version; got %+v", turns)
	}

	// A new session for the same battle resumes the stored plan.
	resumed := NewSession("battle-gen9vgc-42", deps)
	h.client.SetTurn(3)
	if _, err := resumed.HandleTurn(context.Background(), battle.ChooseCondition{}); err != nil {
		t.Fatalf("resumed turn: %v", err)
	}
	p, _ := resumed.Plan()
	if p.ID != stored.ID {
		t.Errorf("expected resumed plan %s, got %s", stored.ID, p.ID)
	}
}

// #endregion
