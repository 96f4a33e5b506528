package plan

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/danielpatrickdp/battle-trainer/internal/oracle"
)

// #region fake-oracle

type scriptedReply struct {
	text string
	err  error
}

type scriptedOracle struct {
	replies []scriptedReply
	efforts []string
	prompts []string
}

func (s *scriptedOracle) Chat(_ context.Context, messages []oracle.Message, opts oracle.Options) (string, error) {
	s.efforts = append(s.efforts, opts.ReasoningEffort)
	s.prompts = append(s.prompts, messages[0].Text)
	if len(s.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r.text, r.err
}

func testManager(o oracle.Client) *Manager {
	m := NewManager(o, DefaultEfforts())
	clock := t0.Add(time.Hour)
	m.Now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	m.NewID = func() string { return "plan-1" }
	return m
}

// #endregion

// #region create

func TestCreateInitial(t *testing.T) {
	o := &scriptedOracle{replies: []scriptedReply{{text: sectionedReply}}}
	m := testManager(o)

	p, err := m.CreateInitial(context.Background(), Context{Tag: "b1", Turn: 1, MyTeam: []string{"Incineroar", "Kingambit"}})
	if err != nil {
		t.Fatalf("CreateInitial: %v", err)
	}
	if p.ID != "plan-1" || p.Status != StatusActive {
		t.Errorf("plan = %+v", p)
	}
	if !p.CreatedAt.Equal(p.LastUpdated) {
		t.Errorf("createdAt %v != lastUpdated %v", p.CreatedAt, p.LastUpdated)
	}
	if len(p.BattlePhases) != 2 || len(p.KeyTactics) != 2 {
		t.Errorf("content not parsed: %+v", p)
	}
	if o.efforts[0] != "high" {
		t.Errorf("effort = %q, want high", o.efforts[0])
	}
	if !strings.Contains(o.prompts[0], "Incineroar, Kingambit") {
		t.Errorf("prompt missing team:\n%s", o.prompts[0])
	}
}

func TestCreateInitial_OracleDown(t *testing.T) {
	o := &scriptedOracle{replies: []scriptedReply{{err: errors.New("connection refused")}}}
	p, err := testManager(o).CreateInitial(context.Background(), Context{Turn: 1})
	if err != nil {
		t.Fatalf("oracle failure should not be fatal: %v", err)
	}
	if p.Status != StatusActive || len(p.BattlePhases) != 0 || p.Completion() != 0 {
		t.Errorf("expected empty active plan, got %+v", p)
	}
}

func TestCreateInitial_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o := &scriptedOracle{replies: []scriptedReply{{err: context.Canceled}}}
	if _, err := testManager(o).CreateInitial(ctx, Context{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// #endregion

// #region update

func TestUpdate_ProgressOnly(t *testing.T) {
	o := &scriptedOracle{replies: []scriptedReply{{text: `{"needsAdjustment": false, "reason": "on track"}`}}}
	m := testManager(o)
	p := fullPlan()

	next, err := m.Update(context.Background(), p, Context{Turn: 7})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	for _, ph := range next.BattlePhases {
		if ph.ActualTurns != 7 {
			t.Errorf("actualTurns = %d, want 7", ph.ActualTurns)
		}
	}
	if len(next.AdjustmentHistory) != len(p.AdjustmentHistory) {
		t.Error("progress tick must not add history")
	}
	if !next.LastUpdated.After(p.LastUpdated) {
		t.Error("lastUpdated not bumped")
	}
	if len(o.efforts) != 1 || o.efforts[0] != "medium" {
		t.Errorf("efforts = %v, want one medium call", o.efforts)
	}
}

func TestUpdate_MalformedEvaluationKeepsPlan(t *testing.T) {
	o := &scriptedOracle{replies: []scriptedReply{{text: `{"needsAdjustment": tr`}}}
	p := fullPlan()
	next, err := testManager(o).Update(context.Background(), p, Context{Turn: 4})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if next.OverallObjective != p.OverallObjective || len(next.AdjustmentHistory) != 1 {
		t.Errorf("plan changed on malformed evaluation: %+v", next)
	}
	if len(o.efforts) != 1 {
		t.Errorf("expected no adjustment call, got %d calls", len(o.efforts))
	}
}

func TestUpdate_Adjustment(t *testing.T) {
	o := &scriptedOracle{replies: []scriptedReply{
		{text: `{"needsAdjustment": true, "reason": "Tailwind setter fainted", "adjustmentType": "Major", "suggestedChanges": ["go Trick Room", "save Ursaluna"]}`},
		{text: "Overall Objective: Reverse speed with Trick Room\n\nKey Tactics:\n- Farigiraf Trick Room\n"},
	}}
	m := testManager(o)
	p := fullPlan()

	next, err := m.Update(context.Background(), p, Context{Turn: 5})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if next.ID != p.ID || !next.CreatedAt.Equal(p.CreatedAt) || next.Status != StatusActive {
		t.Errorf("identity not preserved: %+v", next)
	}
	if next.OverallObjective != "Reverse speed with Trick Room" {
		t.Errorf("objective = %q", next.OverallObjective)
	}
	if len(next.AdjustmentHistory) != 2 {
		t.Fatalf("history = %+v", next.AdjustmentHistory)
	}
	if !reflect.DeepEqual(next.AdjustmentHistory[0], p.AdjustmentHistory[0]) {
		t.Error("prior history entry changed")
	}
	got := next.AdjustmentHistory[1]
	if got.Reason != "Tailwind setter fainted" || got.Type != AdjustMajor || got.Changes != "go Trick Room; save Ursaluna" || got.TurnNumber != 5 {
		t.Errorf("adjustment = %+v", got)
	}
	if o.efforts[1] != "medium" {
		t.Errorf("adjust effort = %q", o.efforts[1])
	}
	if !strings.Contains(o.prompts[1], `"planId": "`+p.ID+`"`) || !strings.Contains(o.prompts[1], "go Trick Room, save Ursaluna") {
		t.Errorf("adjustment prompt missing plan or verdict:\n%s", o.prompts[1])
	}
	if p.OverallObjective != "Win through Trick Room with Ursaluna" || len(p.AdjustmentHistory) != 1 {
		t.Error("input plan was mutated")
	}
}

func TestUpdate_AdjustedPlanRoundTrips(t *testing.T) {
	o := &scriptedOracle{replies: []scriptedReply{
		{text: `{"needsAdjustment": true, "reason": "lost Tailwind", "adjustmentType": "Minor", "suggestedChanges": []}`},
		{text: "```json\n" + `{"overallObjective": "Trick Room instead", "keyTactics": [],
			"battlePhases": [{"phaseName": "Set Trick Room", "objectives": [], "successConditions": [], "failureRisks": []}],
			"riskAssessment": {"majorThreats": [], "backupPlans": []}}` + "\n```"},
	}}
	next, err := testManager(o).Update(context.Background(), fullPlan(), Context{Turn: 4})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, ok := Deserialize(Serialize(next))
	if !ok {
		t.Fatal("Deserialize failed")
	}
	if !reflect.DeepEqual(got, next) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, next)
	}
}

func TestUpdate_StoredPlanWithoutStatus(t *testing.T) {
	stored, ok := Deserialize(`{"planId": "p9", "overallObjective": "Hold the field", "battlePhases": [{"phaseName": "Lead", "expectedTurns": 2}]}`)
	if !ok {
		t.Fatal("expected plan")
	}
	if stored.Status != StatusActive || stored.BattlePhases[0].Status != PhasePending {
		t.Fatalf("missing statuses not defaulted: %+v", stored)
	}

	o := &scriptedOracle{replies: []scriptedReply{
		{text: `{"needsAdjustment": true, "reason": "lead fainted", "adjustmentType": "Major"}`},
		{text: "Overall Objective: Rebuild around Kingambit\n"},
	}}
	next, err := testManager(o).Update(context.Background(), stored, Context{Turn: 3})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if next.Status != StatusActive || len(next.AdjustmentHistory) != 1 {
		t.Errorf("adjustment not applied: %+v", next)
	}
}

func TestUpdate_TwoAdjustmentsOrdered(t *testing.T) {
	verdict := `{"needsAdjustment": true, "reason": "changed", "adjustmentType": "Minor", "suggestedChanges": ["x"]}`
	o := &scriptedOracle{replies: []scriptedReply{
		{text: verdict}, {text: "Overall Objective: A"},
		{text: verdict}, {text: "Overall Objective: B"},
	}}
	m := testManager(o)
	p := fullPlan()
	p.AdjustmentHistory = nil

	first, err := m.Update(context.Background(), p, Context{Turn: 3})
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.Update(context.Background(), first, Context{Turn: 6})
	if err != nil {
		t.Fatal(err)
	}
	h := second.AdjustmentHistory
	if len(h) != 2 || h[0].TurnNumber > h[1].TurnNumber {
		t.Fatalf("history = %+v", h)
	}
	if !reflect.DeepEqual(h[0], first.AdjustmentHistory[0]) {
		t.Error("first entry changed by second adjustment")
	}
	if h[0].Timestamp.After(h[1].Timestamp) {
		t.Error("timestamps out of order")
	}
}

func TestUpdate_EmptyAdjustmentFallsBackToProgress(t *testing.T) {
	o := &scriptedOracle{replies: []scriptedReply{
		{text: `{"needsAdjustment": true, "reason": "r", "adjustmentType": "Complete", "suggestedChanges": []}`},
		{text: "sorry, I can't"},
	}}
	p := fullPlan()
	next, err := testManager(o).Update(context.Background(), p, Context{Turn: 9})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if next.Status != StatusActive || len(next.AdjustmentHistory) != 1 || next.BattlePhases[0].ActualTurns != 9 {
		t.Errorf("expected progress tick, got %+v", next)
	}
}

func TestUpdate_AdjustOracleDown(t *testing.T) {
	o := &scriptedOracle{replies: []scriptedReply{
		{text: `{"needsAdjustment": true, "reason": "r"}`},
		{err: errors.New("unavailable")},
	}}
	next, err := testManager(o).Update(context.Background(), fullPlan(), Context{Turn: 2})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if next.Status != StatusActive || len(next.AdjustmentHistory) != 1 {
		t.Errorf("expected unchanged active plan, got %+v", next)
	}
}

func TestUpdate_TerminalUntouched(t *testing.T) {
	o := &scriptedOracle{}
	p := fullPlan()
	p.Status = StatusCompleted
	next, err := testManager(o).Update(context.Background(), p, Context{Turn: 20})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(next, p) || len(o.efforts) != 0 {
		t.Error("terminal plan should be returned untouched without oracle calls")
	}
}

// #endregion

// #region finish

func TestFinish(t *testing.T) {
	m := testManager(&scriptedOracle{})

	won, err := m.Finish(fullPlan(), true)
	if err != nil || won.Status != StatusCompleted {
		t.Errorf("win: %v, %v", won.Status, err)
	}

	p := fullPlan()
	p.Status = StatusAdjusting
	lost, err := m.Finish(p, false)
	if err != nil || lost.Status != StatusFailed {
		t.Errorf("loss while adjusting: %v, %v", lost.Status, err)
	}

	wonAdjusting, err := m.Finish(p, true)
	if err != nil || wonAdjusting.Status != StatusCompleted {
		t.Errorf("win while adjusting: %v, %v", wonAdjusting.Status, err)
	}

	again, err := m.Finish(won, false)
	if err != nil || again.Status != StatusCompleted {
		t.Errorf("finishing a terminal plan should be a no-op: %v, %v", again.Status, err)
	}
}

// #endregion
