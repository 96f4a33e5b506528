package ipc

import "github.com/danielpatrickdp/battle-trainer/internal/battle"

// These constants must stay in sync with the bridge's message types.
const (
	TypeHello   = "hello"
	TypeAck     = "ack"
	TypeRequest = "request"
	TypeChoose  = "choose"
	TypeEnd     = "end"
)

// HelloMessage opens a battle. SeriesKey groups games against one opponent.
type HelloMessage struct {
	Battle    string `json:"battle"`
	Player    string `json:"player"`
	Format    string `json:"format,omitempty"`
	SeriesKey string `json:"seriesKey,omitempty"`
}

// RequestMessage carries the simulator request for a turn plus the visible field.
type RequestMessage struct {
	View battle.View `json:"view"`
}

// ChooseMessage is our answer for a turn.
type ChooseMessage struct {
	Turn   int    `json:"turn"`
	Choice string `json:"choice"`
}

// EndMessage reports the battle result.
type EndMessage struct {
	Won bool `json:"won"`
}

type AckMessage struct {
	Status string `json:"status"`
}
