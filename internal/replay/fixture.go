package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/battle-trainer/internal/battle"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture: recorded
// turns with the oracle's raw reply and the choice we expect to submit.
type Fixture struct {
	Description     string                  `json:"description"`
	Config          FixtureConfig           `json:"config"`
	Turns           []FixtureTurn           `json:"turns"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
}

// FixtureConfig holds the translator settings for a replay run.
type FixtureConfig struct {
	TeamOrderPolicy string `json:"team_order_policy"`
}

// FixtureCondition is the JSON form of a battle.Condition.
type FixtureCondition struct {
	Kind       string `json:"kind"` // "choose" | "force_switch" | "team_order"
	Forced     []bool `json:"forced,omitempty"`
	SelectSize int    `json:"select_size,omitempty"`
}

// FixtureTurn is one recorded turn.
type FixtureTurn struct {
	TurnID     string           `json:"turn_id"`
	Condition  FixtureCondition `json:"condition"`
	View       battle.View      `json:"view"`
	OracleText string           `json:"oracle_text"`
}

// FixtureExpectedResult captures the expected outcome per turn.
type FixtureExpectedResult struct {
	TurnID   string `json:"turn_id"`
	Action   string `json:"action"`
	Choice   string `json:"choice,omitempty"`
	Warnings int    `json:"warnings"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToCondition converts a FixtureCondition to a domain Condition.
func (c FixtureCondition) ToCondition() (battle.Condition, error) {
	switch c.Kind {
	case "choose":
		return battle.ChooseCondition{}, nil
	case "force_switch":
		return battle.ForceSwitchCondition{Forced: c.Forced}, nil
	case "team_order":
		return battle.TeamOrderCondition{SelectSize: c.SelectSize}, nil
	}
	return nil, fmt.Errorf("unknown condition kind %q", c.Kind)
}

// ToTurns converts the fixture's turns to domain Turns.
func (f *Fixture) ToTurns() ([]Turn, error) {
	turns := make([]Turn, len(f.Turns))
	for i, ft := range f.Turns {
		cond, err := ft.Condition.ToCondition()
		if err != nil {
			return nil, fmt.Errorf("turn %s: %w", ft.TurnID, err)
		}
		turns[i] = Turn{
			TurnID:     ft.TurnID,
			Condition:  cond,
			View:       ft.View,
			OracleText: ft.OracleText,
		}
	}
	return turns, nil
}

// #endregion fixture-loader
