package config

// #region imports
import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// #endregion

// #region types

// Config is the trainer's runtime configuration.
type Config struct {
	DB     string `yaml:"db"`
	Oracle string `yaml:"oracle_addr"`
	Socket string `yaml:"socket"`

	PollInterval string `yaml:"poll_interval"`
	MaxRetries   int    `yaml:"max_retries"`

	Efforts Efforts `yaml:"efforts"`

	// TeamOrderPolicy is an expr-lang boolean over the team order facts.
	TeamOrderPolicy   string `yaml:"team_order_policy"`
	DefaultSelectSize int    `yaml:"default_select_size"`
	OpenSheet         bool   `yaml:"open_sheet"`

	Team Team `yaml:"team"`

	poll time.Duration
}

// Efforts is the reasoning-effort hint per kind of oracle request.
type Efforts struct {
	Plan     string `yaml:"plan"`
	Evaluate string `yaml:"evaluate"`
	Adjust   string `yaml:"adjust"`
	Decision string `yaml:"decision"`
	Summary  string `yaml:"summary"`
}

// Team names the roster the trainer plays and its standing notes.
type Team struct {
	Name  string `yaml:"name"`
	Notes string `yaml:"notes"`
}

// Poll returns the parsed watchdog poll interval.
func (c Config) Poll() time.Duration {
	return c.poll
}

// #endregion

// #region load

// Load reads path (optional, "" means defaults only), applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.DB = envOr("TRAINER_DB", cfg.DB)
	cfg.Oracle = envOr("ORACLE_ADDR", cfg.Oracle)
	cfg.Socket = envOr("TRAINER_SOCKET", cfg.Socket)

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DB == "" {
		c.DB = "battle_trainer.db"
	}
	if c.Oracle == "" {
		c.Oracle = "localhost:50051"
	}
	if c.Socket == "" {
		c.Socket = "/tmp/battle-trainer.sock"
	}
	if c.PollInterval == "" {
		c.PollInterval = "1s"
	}
	if c.DefaultSelectSize == 0 {
		c.DefaultSelectSize = 4
	}
	if c.Efforts.Plan == "" {
		c.Efforts.Plan = "high"
	}
	if c.Efforts.Evaluate == "" {
		c.Efforts.Evaluate = "medium"
	}
	if c.Efforts.Adjust == "" {
		c.Efforts.Adjust = "medium"
	}
	if c.Efforts.Decision == "" {
		c.Efforts.Decision = "medium"
	}
	if c.Efforts.Summary == "" {
		c.Efforts.Summary = "medium"
	}
}

var validEfforts = map[string]bool{"low": true, "medium": true, "high": true}

func (c *Config) validate() error {
	var problems []string

	d, err := time.ParseDuration(c.PollInterval)
	switch {
	case err != nil:
		problems = append(problems, fmt.Sprintf("poll_interval: %v", err))
	case d <= 0:
		problems = append(problems, "poll_interval: must be positive")
	default:
		c.poll = d
	}

	if c.MaxRetries < 0 {
		problems = append(problems, "max_retries: must not be negative")
	}
	if c.DefaultSelectSize < 1 || c.DefaultSelectSize > 6 {
		problems = append(problems, "default_select_size: must be between 1 and 6, got "+strconv.Itoa(c.DefaultSelectSize))
	}

	for name, v := range map[string]string{
		"plan":     c.Efforts.Plan,
		"evaluate": c.Efforts.Evaluate,
		"adjust":   c.Efforts.Adjust,
		"decision": c.Efforts.Decision,
		"summary":  c.Efforts.Summary,
	} {
		if !validEfforts[v] {
			problems = append(problems, fmt.Sprintf("efforts.%s: unknown effort %q", name, v))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return fmt.Errorf("invalid config:\n  %s", strings.Join(problems, "\n  "))
}

// #endregion

// #region helpers

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion
