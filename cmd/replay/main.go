package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/battle-trainer/internal/decision"
	"github.com/danielpatrickdp/battle-trainer/internal/policy"
	"github.com/danielpatrickdp/battle-trainer/internal/replay"
)

// #region main

func main() {
	policyOverride := flag.String("policy", "", "team order policy expression (overrides the fixture's)")
	verbose := flag.Bool("v", false, "print warnings of every turn")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: replay [--policy expr] [-v] fixture.json [fixture.json ...]")
		os.Exit(2)
	}

	exitCode := 0
	for _, path := range flag.Args() {
		if code := runFixture(path, *policyOverride, *verbose); code > exitCode {
			exitCode = code
		}
	}
	os.Exit(exitCode)
}

// #endregion main

// #region fixture

func runFixture(path, policyOverride string, verbose bool) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}

	src := f.Config.TeamOrderPolicy
	if policyOverride != "" {
		src = policyOverride
	}
	pol, err := policy.CompileTeamOrder(src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		return 2
	}

	turns, err := f.ToTurns()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		return 2
	}

	results := replay.Replay(turns, decision.NewTranslator(pol))
	fmt.Printf("=== %s ===\n", path)
	if f.Description != "" {
		fmt.Println(f.Description)
	}
	fmt.Printf("policy: %s\n\n", pol)
	return printComparison(results, f.ExpectedResults, verbose)
}

// #endregion fixture

// #region output

// printComparison outputs a comparison table and returns exit code.
func printComparison(results []replay.ReplayResult, expected []replay.FixtureExpectedResult, verbose bool) int {
	want := make(map[string]replay.FixtureExpectedResult, len(expected))
	for _, e := range expected {
		want[e.TurnID] = e
	}

	fmt.Printf("%-8s| %-16s| %-32s| %-4s| %s\n", "Turn", "Action", "Choice", "Warn", "Match")
	fmt.Printf("%-8s+%-16s+%-32s+%-4s+%s\n",
		"--------", "-----------------", "---------------------------------", "-----", "------")
	for _, r := range results {
		match := "-"
		if e, ok := want[r.TurnID]; ok {
			match = "OK"
			if e.Action != r.Action || e.Choice != r.Choice || e.Warnings != len(r.Warnings) {
				match = "DIFF"
			}
		}
		fmt.Printf("%-8s| %-16s| %-32s| %-4d| %s\n", r.TurnID, r.Action, r.Choice, len(r.Warnings), match)
		if verbose {
			for _, w := range r.Warnings {
				fmt.Printf("        ! %s\n", w)
			}
			if r.Reason != "" && r.Action != replay.ActionSubmit {
				fmt.Printf("        reason: %s\n", r.Reason)
			}
		}
	}

	mismatches := replay.Compare(results, expected)
	for _, m := range mismatches {
		fmt.Printf("\nDIFF %s: expected %s %q (%d warnings), got %s %q (%d warnings)",
			m.TurnID, m.Expected.Action, m.Expected.Choice, m.Expected.Warnings,
			m.Actual.Action, m.Actual.Choice, len(m.Actual.Warnings))
	}

	s := replay.Summarize(results)
	fmt.Printf("\nSummary: %d total, %d submitted (%d degraded), %d uninterpretable, %d errors, %d diverge\n\n",
		s.TotalTurns, s.Submitted, s.Degraded, s.Uninterpretable, s.Errors, len(mismatches))

	if len(mismatches) > 0 {
		return 1
	}
	return 0
}

// #endregion output
