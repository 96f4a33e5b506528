package policy

// #region imports
import (
	"fmt"
	"log"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/danielpatrickdp/battle-trainer/internal/decision"
)

// #endregion

// #region constants

// DefaultTeamOrder accepts any resolved order, so unmatched references are simply dropped.
const DefaultTeamOrder = "true"

// StrictTeamOrder requires every selected slot to come from the oracle.
const StrictTeamOrder = "Resolved >= SelectSize"

// #endregion

// #region team-order

// TeamOrder is a compiled boolean expression over decision.OrderFacts, e.g.
// "Resolved >= SelectSize" or "Resolved >= 1 && Requested - Resolved <= 1".
type TeamOrder struct {
	src     string
	program *vm.Program
}

// CompileTeamOrder compiles src against decision.OrderFacts. An empty src means DefaultTeamOrder.
func CompileTeamOrder(src string) (*TeamOrder, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		src = DefaultTeamOrder
	}
	prog, err := expr.Compile(src, expr.Env(decision.OrderFacts{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile team order policy %q: %w", src, err)
	}
	return &TeamOrder{src: src, program: prog}, nil
}

// Allow evaluates the policy for f.
func (p *TeamOrder) Allow(f decision.OrderFacts) (bool, error) {
	result, err := vm.Run(p.program, f)
	if err != nil {
		log.Printf("[POLICY] team order %q failed: %v", p.src, err)
		return false, fmt.Errorf("run team order policy: %w", err)
	}
	ok, _ := result.(bool)
	return ok, nil
}

// String returns the policy source.
func (p *TeamOrder) String() string {
	return p.src
}

// #endregion
