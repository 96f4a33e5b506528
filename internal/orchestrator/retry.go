package orchestrator

// #region imports
import (
	"errors"

	"github.com/danielpatrickdp/battle-trainer/internal/decision"
	"github.com/danielpatrickdp/battle-trainer/internal/oracle"
)

// #endregion

// #region engine

// Attempt is one oracle consultation within a turn.
type Attempt struct {
	Text string
	Err  error
}

// RetryEngine decides whether an unreadable decision reply earns another oracle call.
type RetryEngine struct {
	max int
}

// NewRetryEngine allows up to max retries after the first attempt.
func NewRetryEngine(max int) *RetryEngine {
	return &RetryEngine{max: max}
}

// #endregion

// #region should-retry

const reframe = `Your previous reply could not be read. Reply again with only the JSON object described above, no prose and no code fences.`

// ShouldRetry returns whether to consult the oracle again and the messages to
// append to the conversation when it does. Only ErrUninterpretable replies
// are retried; transport errors and resolution misses are not.
func (r *RetryEngine) ShouldRetry(attempts []Attempt) (bool, []oracle.Message) {
	if len(attempts) == 0 || len(attempts) > r.max {
		return false, nil
	}
	latest := attempts[len(attempts)-1]
	if !errors.Is(latest.Err, decision.ErrUninterpretable) {
		return false, nil
	}
	return true, []oracle.Message{
		{Role: oracle.RoleAssistant, Text: latest.Text},
		{Role: oracle.RoleSystem, Text: reframe},
	}
}

// #endregion
