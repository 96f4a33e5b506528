package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielpatrickdp/battle-trainer/internal/plan"
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func samplePlan(objective string) plan.Plan {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	return plan.Plan{
		ID:               "plan-abc",
		OverallObjective: objective,
		Status:           plan.StatusActive,
		CreatedAt:        now,
		LastUpdated:      now,
		BattlePhases:     []plan.Phase{{Name: "Lead", Status: plan.PhasePending, Priority: 5, ExpectedTurns: 2}},
	}
}

func TestCurrent_NotFound(t *testing.T) {
	s := tempDB(t)
	if _, err := s.Current("battle-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCommitPlanAndCurrent(t *testing.T) {
	s := tempDB(t)

	v1, err := s.CommitPlan("battle-1", samplePlan("first"), 1)
	if err != nil {
		t.Fatalf("CommitPlan: %v", err)
	}
	if v1.VersionID == "" || v1.ParentID != "" {
		t.Fatalf("unexpected first version: %+v", v1)
	}

	v2, err := s.CommitPlan("battle-1", samplePlan("second"), 2)
	if err != nil {
		t.Fatalf("CommitPlan: %v", err)
	}
	if v2.ParentID != v1.VersionID {
		t.Errorf("parent = %q, want %q", v2.ParentID, v1.VersionID)
	}

	cur, err := s.Current("battle-1")
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if cur.VersionID != v2.VersionID || cur.Turn != 2 || cur.Status != plan.StatusActive {
		t.Errorf("current = %+v", cur)
	}
	p, ok := plan.Deserialize(cur.PlanJSON)
	if !ok || p.OverallObjective != "second" {
		t.Errorf("stored plan = %+v, ok=%v", p, ok)
	}

	if _, err := s.Current("battle-2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("other battle should have no plan, got %v", err)
	}
}

func TestListVersionsAndBattles(t *testing.T) {
	s := tempDB(t)
	for i := 1; i <= 3; i++ {
		if _, err := s.CommitPlan("battle-1", samplePlan("p"), i); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.CommitPlan("battle-2", samplePlan("q"), 1); err != nil {
		t.Fatal(err)
	}

	versions, err := s.ListVersions("battle-1", 2)
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(versions) != 2 || versions[0].Turn != 3 || versions[1].Turn != 2 {
		t.Errorf("versions = %+v", versions)
	}

	battles, err := s.ListBattles(10)
	if err != nil {
		t.Fatalf("ListBattles: %v", err)
	}
	if len(battles) != 2 {
		t.Fatalf("battles = %+v", battles)
	}
	counts := map[string]int{}
	for _, b := range battles {
		counts[b.BattleTag] = b.Versions
	}
	if counts["battle-1"] != 3 || counts["battle-2"] != 1 {
		t.Errorf("version counts = %v", counts)
	}
}

func TestRollback(t *testing.T) {
	s := tempDB(t)
	v1, _ := s.CommitPlan("battle-1", samplePlan("first"), 1)
	other, _ := s.CommitPlan("battle-2", samplePlan("other"), 1)
	if _, err := s.CommitPlan("battle-1", samplePlan("second"), 2); err != nil {
		t.Fatal(err)
	}

	if err := s.Rollback("battle-1", v1.VersionID); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	cur, _ := s.Current("battle-1")
	if cur.VersionID != v1.VersionID {
		t.Errorf("current = %s, want %s", cur.VersionID, v1.VersionID)
	}

	if err := s.Rollback("battle-1", "nonexistent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.Rollback("battle-1", other.VersionID); !errors.Is(err, ErrNotFound) {
		t.Errorf("rolling back to another battle's version: expected ErrNotFound, got %v", err)
	}
}

func TestAdjustments(t *testing.T) {
	s := tempDB(t)
	v, _ := s.CommitPlan("battle-1", samplePlan("p"), 3)

	recs := []AdjustmentRecord{
		{BattleTag: "battle-1", PlanID: "plan-abc", VersionID: v.VersionID, Turn: 3, Type: plan.AdjustMajor, Reason: "lost lead", Changes: "a; b", Diff: "--- a\n+++ b\n"},
		{BattleTag: "battle-1", PlanID: "plan-abc", VersionID: v.VersionID, Turn: 5, Type: plan.AdjustMinor},
	}
	for _, r := range recs {
		if err := s.RecordAdjustment(r); err != nil {
			t.Fatalf("RecordAdjustment: %v", err)
		}
	}

	got, err := s.ListAdjustments("battle-1")
	if err != nil {
		t.Fatalf("ListAdjustments: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 adjustments, got %d", len(got))
	}
	if got[0].Turn != 3 || got[0].Type != plan.AdjustMajor || got[0].Changes != "a; b" || got[0].Diff == "" {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].Reason != "" || got[1].CreatedAt.IsZero() {
		t.Errorf("second = %+v", got[1])
	}
}
