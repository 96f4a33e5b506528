package plan

// #region imports
import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
)

// #endregion

// Diff returns a unified diff between the serialized forms of prev and next,
// or "" when they serialize identically.
func Diff(prev, next Plan) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(Serialize(prev)),
		B:        difflib.SplitLines(Serialize(next)),
		FromFile: fmt.Sprintf("plan@%s", prev.LastUpdated.Format("20060102T150405")),
		ToFile:   fmt.Sprintf("plan@%s", next.LastUpdated.Format("20060102T150405")),
		Context:  2,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("diff plan %s: %w", next.ID, err)
	}
	return text, nil
}
