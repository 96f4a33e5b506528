package decision

import "errors"

var (
	// ErrUnsupportedDecision marks a Decision variant the translator cannot handle in that position.
	ErrUnsupportedDecision = errors.New("unsupported decision")
	// ErrUninterpretable marks an oracle reply with no usable action content.
	ErrUninterpretable = errors.New("uninterpretable oracle reply")
	// ErrNoLegalMoves marks a choose turn whose slot offers no usable move.
	ErrNoLegalMoves = errors.New("no legal moves for slot")
	// ErrSlotOutOfRange marks a ChooseMove whose slot is not active this turn.
	ErrSlotOutOfRange = errors.New("slot out of range")
)
