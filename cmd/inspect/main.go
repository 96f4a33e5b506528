package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/battle-trainer/internal/knowledge"
	"github.com/danielpatrickdp/battle-trainer/internal/logging"
	"github.com/danielpatrickdp/battle-trainer/internal/plan"
	"github.com/danielpatrickdp/battle-trainer/internal/store"
)

// #region main

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	dbPath  string
	jsonOut bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "inspect",
		Short:         "Inspect plan versions, adjustments, turns and team knowledge",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.dbPath, "db", envOr("TRAINER_DB", "battle_trainer.db"), "path to the trainer database")
	root.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "output as JSON instead of table")

	root.AddCommand(
		battlesCmd(opts),
		versionsCmd(opts),
		showCmd(opts),
		adjustmentsCmd(opts),
		turnsCmd(opts),
		knowledgeCmd(opts),
		rollbackCmd(opts),
	)
	return root
}

// withStore opens the database for the duration of fn.
func withStore(opts *options, fn func(*store.Store) error) error {
	st, err := store.NewStore(opts.dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer st.Close()
	return fn(st)
}

// #endregion main

// #region battles

func battlesCmd(opts *options) *cobra.Command {
	var last int
	cmd := &cobra.Command{
		Use:   "battles",
		Short: "List battles with an active plan, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(opts, func(st *store.Store) error {
				battles, err := st.ListBattles(last)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if opts.jsonOut {
					return printJSON(out, battles)
				}
				if len(battles) == 0 {
					fmt.Fprintln(cmd.ErrOrStderr(), "no battles found")
					return nil
				}
				fmt.Fprintf(out, "%-28s  %-12s  %-10s  %5s  %s\n", "Battle", "Version", "Status", "Turn", "Versions")
				fmt.Fprintf(out, "%-28s+-%-12s+-%-10s+-%5s+-%s\n",
					strings.Repeat("-", 28), strings.Repeat("-", 12), strings.Repeat("-", 10), "-----", "--------")
				for _, b := range battles {
					fmt.Fprintf(out, "%-28s  %-12s  %-10s  %5d  %d\n", b.BattleTag, shortID(b.VersionID), b.Status, b.Turn, b.Versions)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&last, "last", 20, "show N most recent battles")
	return cmd
}

// #endregion battles

// #region versions

type versionRow struct {
	VersionID string      `json:"version_id"`
	ParentID  string      `json:"parent_id,omitempty"`
	PlanID    string      `json:"plan_id"`
	Status    plan.Status `json:"status"`
	Turn      int         `json:"turn"`
	Done      int         `json:"completion"`
	CreatedAt string      `json:"created_at"`
}

func versionsCmd(opts *options) *cobra.Command {
	var last int
	cmd := &cobra.Command{
		Use:   "versions <battle-tag>",
		Short: "List the plan versions of a battle, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, func(st *store.Store) error {
				versions, err := st.ListVersions(args[0], last)
				if err != nil {
					return err
				}
				rows := make([]versionRow, len(versions))
				// store returns DESC, reverse for chronological
				for i, v := range versions {
					row := versionRow{
						VersionID: v.VersionID,
						ParentID:  v.ParentID,
						PlanID:    v.PlanID,
						Status:    v.Status,
						Turn:      v.Turn,
						CreatedAt: v.CreatedAt.Format("2006-01-02T15:04:05Z"),
					}
					if p, ok := plan.Deserialize(v.PlanJSON); ok {
						row.Done = p.Completion()
					}
					rows[len(versions)-1-i] = row
				}

				out := cmd.OutOrStdout()
				if opts.jsonOut {
					return printJSON(out, rows)
				}
				if len(rows) == 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "no versions for %s\n", args[0])
					return nil
				}
				fmt.Fprintf(out, "%-12s  %-12s  %-10s  %5s  %5s  %s\n", "Version", "Parent", "Status", "Turn", "Done", "Time")
				fmt.Fprintf(out, "%-12s+-%-12s+-%-10s+-%5s+-%5s+-%s\n",
					strings.Repeat("-", 12), strings.Repeat("-", 12), strings.Repeat("-", 10), "-----", "-----", strings.Repeat("-", 20))
				for _, r := range rows {
					parent := "-"
					if r.ParentID != "" {
						parent = shortID(r.ParentID)
					}
					fmt.Fprintf(out, "%-12s  %-12s  %-10s  %5d  %4d%%  %s\n",
						shortID(r.VersionID), parent, r.Status, r.Turn, r.Done, r.CreatedAt)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&last, "last", 50, "show N most recent versions")
	return cmd
}

// #endregion versions

// #region show

func showCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show <version-id>",
		Short: "Print one plan version as the oracle sees it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, func(st *store.Store) error {
				v, err := st.GetVersion(args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if opts.jsonOut {
					fmt.Fprintln(out, v.PlanJSON)
					return nil
				}
				p, ok := plan.Deserialize(v.PlanJSON)
				if !ok {
					return fmt.Errorf("version %s: unreadable plan", v.VersionID)
				}
				fmt.Fprintf(out, "=== Version %s ===\n", v.VersionID)
				fmt.Fprintf(out, "Battle: %s  Turn: %d  Status: %s  Done: %d%%\n", v.BattleTag, v.Turn, v.Status, p.Completion())
				printPlan(out, p)
				return nil
			})
		},
	}
}

func printPlan(w io.Writer, p plan.Plan) {
	if p.OverallObjective != "" {
		fmt.Fprintf(w, "\nObjective: %s\n", p.OverallObjective)
	}
	if len(p.BattlePhases) > 0 {
		fmt.Fprintln(w, "\nPhases:")
		for i, ph := range p.BattlePhases {
			fmt.Fprintf(w, "  %d. %-24s %-10s turns %d/%d\n", i+1, ph.Name, ph.Status, ph.ActualTurns, ph.ExpectedTurns)
		}
	}
	if len(p.KeyTactics) > 0 {
		fmt.Fprintf(w, "\nTactics: %s\n", strings.Join(p.KeyTactics, "; "))
	}
	if threats := p.RiskAssessment.MajorThreats; len(threats) > 0 {
		fmt.Fprintf(w, "Threats (risk %d): %s\n", p.RiskAssessment.OverallRiskLevel, strings.Join(threats, "; "))
	}
	for _, a := range p.AdjustmentHistory {
		fmt.Fprintf(w, "  turn %d %s: %s\n", a.TurnNumber, a.Type, a.Reason)
	}
}

// #endregion show

// #region adjustments

func adjustmentsCmd(opts *options) *cobra.Command {
	var showDiff bool
	cmd := &cobra.Command{
		Use:   "adjustments <battle-tag>",
		Short: "List the plan adjustments recorded for a battle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, func(st *store.Store) error {
				recs, err := st.ListAdjustments(args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if opts.jsonOut {
					return printJSON(out, recs)
				}
				if len(recs) == 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "no adjustments for %s\n", args[0])
					return nil
				}
				for _, r := range recs {
					fmt.Fprintf(out, "turn %d  %-14s  %s  %s\n", r.Turn, r.Type, shortID(r.VersionID), r.Reason)
					if r.Changes != "" {
						fmt.Fprintf(out, "    changes: %s\n", r.Changes)
					}
					if showDiff && r.Diff != "" {
						fmt.Fprintln(out, indent(r.Diff, "    "))
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&showDiff, "diff", false, "print the unified plan diff of each adjustment")
	return cmd
}

// #endregion adjustments

// #region turns

func turnsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "turns <battle-tag>",
		Short: "List the logged turns of a battle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, func(st *store.Store) error {
				turns, err := logging.ListTurns(st.DB(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if opts.jsonOut {
					return printJSON(out, turns)
				}
				if len(turns) == 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "no turns for %s\n", args[0])
					return nil
				}
				fmt.Fprintf(out, "%5s  %-12s  %-9s  %-36s  %s\n", "Turn", "Condition", "Outcome", "Choice", "Warnings")
				fmt.Fprintf(out, "%5s+-%-12s+-%-9s+-%-36s+-%s\n",
					"-----", strings.Repeat("-", 12), strings.Repeat("-", 9), strings.Repeat("-", 36), "--------")
				for _, e := range turns {
					fmt.Fprintf(out, "%5d  %-12s  %-9s  %-36s  %d\n", e.Turn, e.Condition, e.Outcome, truncate(e.Choice, 36), len(e.Warnings))
				}
				return nil
			})
		},
	}
}

// #endregion turns

// #region knowledge

func knowledgeCmd(opts *options) *cobra.Command {
	var series string
	cmd := &cobra.Command{
		Use:   "knowledge <team>",
		Short: "Print the battle summaries accumulated for a team",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, func(st *store.Store) error {
				ks, err := knowledge.NewStore(st.DB())
				if err != nil {
					return err
				}
				entries, err := ks.List(args[0])
				if err != nil {
					return err
				}
				if series != "" {
					kept := entries[:0]
					for _, e := range entries {
						if e.SeriesKey == series {
							kept = append(kept, e)
						}
					}
					entries = kept
				}
				out := cmd.OutOrStdout()
				if opts.jsonOut {
					return printJSON(out, entries)
				}
				if len(entries) == 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "no knowledge for %s\n", args[0])
					return nil
				}
				for _, e := range entries {
					fmt.Fprintf(out, "[%s] %s\n%s\n\n", e.SeriesKey, e.CreatedAt.Format("2006-01-02T15:04:05Z"), e.Summary)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&series, "series", "", "only show summaries of one series")
	return cmd
}

// #endregion knowledge

// #region rollback

func rollbackCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rollback <battle-tag> <version-id>",
		Short: "Make an earlier plan version the active one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, func(st *store.Store) error {
				if err := st.Rollback(args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s now at %s\n", args[0], args[1])
				return nil
			})
		},
	}
}

// #endregion rollback

// #region helpers

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
