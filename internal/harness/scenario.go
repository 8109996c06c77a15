package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kritdbb/DobyHR/internal/compiler"
)

// DefaultNow is the scenario clock when a scenario sets no "now".
var DefaultNow = time.Date(2025, 6, 10, 3, 0, 0, 0, time.UTC)

// Scenario defines one end-to-end quest scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Now fixes the wall clock for resolvers and run summaries.
	Now *time.Time `yaml:"now,omitempty"`

	// Parallelism is passed to the runner. Zero means sequential.
	Parallelism int `yaml:"parallelism,omitempty"`

	Users   []UserSeed   `yaml:"users"`
	Badges  []BadgeSeed  `yaml:"badges,omitempty"`
	Rewards []RewardSeed `yaml:"rewards,omitempty"`
	Data    DataSeed     `yaml:"data,omitempty"`

	// Quests are compiled exactly as `questd quests import` compiles them.
	Quests []compiler.QuestDef `yaml:"quests"`

	// Runs is the number of runner passes. Zero means one.
	Runs int `yaml:"runs,omitempty"`

	// Assertions validate the final store and the run summaries.
	Assertions []Assertion `yaml:"assertions"`
}

// UserSeed is one users row.
type UserSeed struct {
	ID        int64  `yaml:"id"`
	Name      string `yaml:"name"`
	Surname   string `yaml:"surname,omitempty"`
	Coins     int64  `yaml:"coins,omitempty"`
	Mana      int64  `yaml:"angel_coins,omitempty"`
	StartDate string `yaml:"start_date,omitempty"` // YYYY-MM-DD
}

// BadgeSeed is one badges row.
type BadgeSeed struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
}

// RewardSeed is one reward catalog row.
type RewardSeed struct {
	ID     int64  `yaml:"id"`
	Name   string `yaml:"name"`
	Cost   int64  `yaml:"cost,omitempty"`
	Active bool   `yaml:"active"`
}

// DataSeed holds the source rows field resolvers read.
type DataSeed struct {
	Steps      []StepSeed       `yaml:"steps,omitempty"`
	Attendance []AttendanceSeed `yaml:"attendance,omitempty"`
	Leave      []LeaveSeed      `yaml:"leave,omitempty"`
	Battles    []BattleSeed     `yaml:"battles,omitempty"`
	ThankYou   []PairSeed       `yaml:"thank_you,omitempty"`
	Praise     []PairSeed       `yaml:"praise,omitempty"`
	Ledger     []LedgerSeed     `yaml:"ledger,omitempty"`
	Owned      []OwnedSeed      `yaml:"user_badges,omitempty"`
}

type StepSeed struct {
	User  int64  `yaml:"user"`
	Date  string `yaml:"date"`
	Steps int64  `yaml:"steps"`
}

type AttendanceSeed struct {
	User   int64     `yaml:"user"`
	At     time.Time `yaml:"at"`
	Status string    `yaml:"status"`
}

type LeaveSeed struct {
	User   int64  `yaml:"user"`
	Type   string `yaml:"type"`
	Status string `yaml:"status"`
}

type BattleSeed struct {
	A      int64 `yaml:"a"`
	B      int64 `yaml:"b"`
	Winner int64 `yaml:"winner,omitempty"`
}

type PairSeed struct {
	From int64 `yaml:"from"`
	To   int64 `yaml:"to"`
}

type LedgerSeed struct {
	User      int64  `yaml:"user"`
	Amount    int64  `yaml:"amount"`
	Reason    string `yaml:"reason"`
	CreatedBy string `yaml:"created_by,omitempty"`
}

type OwnedSeed struct {
	User  int64 `yaml:"user"`
	Badge int64 `yaml:"badge"`
}

// Assertion validates the final state or a run summary.
type Assertion struct {
	// Type selects the check:
	// - "awarded_count": Run's Awarded equals Count
	// - "failure_count": Run's failures (optionally only Code) equal Count
	// - "balance": User's Column equals Expect
	// - "ledger_count": User's ledger rows (optionally only Reason, or only
	//   Quest's reward markers) equal Count
	// - "quest_active": Quest's active flag equals Active
	// - "has_award": whether User holds Quest's award equals Held
	// - "field_value": Field resolved for User equals Expect
	Type string `yaml:"type"`

	// Run is the 1-based pass number. Zero means the last pass.
	Run int `yaml:"run,omitempty"`

	User   int64  `yaml:"user,omitempty"`
	Quest  int64  `yaml:"quest,omitempty"`
	Column string `yaml:"column,omitempty"`
	Field  string `yaml:"field,omitempty"`
	Reason string `yaml:"reason,omitempty"`
	Code   string `yaml:"code,omitempty"`

	Count  int   `yaml:"count,omitempty"`
	Expect int64 `yaml:"expect,omitempty"`
	Active *bool `yaml:"active,omitempty"`
	Held   *bool `yaml:"held,omitempty"`
}

// Assertion type constants.
const (
	AssertAwardedCount = "awarded_count"
	AssertFailureCount = "failure_count"
	AssertBalance      = "balance"
	AssertLedgerCount  = "ledger_count"
	AssertQuestActive  = "quest_active"
	AssertHasAward     = "has_award"
	AssertFieldValue   = "field_value"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Users) == 0 {
		return fmt.Errorf("users list is required and must be non-empty")
	}
	if len(s.Quests) == 0 {
		return fmt.Errorf("quests list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if s.Runs < 0 {
		return fmt.Errorf("runs must be non-negative")
	}

	for i, u := range s.Users {
		if u.ID <= 0 {
			return fmt.Errorf("users[%d]: id must be positive", i)
		}
		if u.StartDate != "" {
			if _, err := time.Parse(time.DateOnly, u.StartDate); err != nil {
				return fmt.Errorf("users[%d]: start_date: %w", i, err)
			}
		}
	}
	for i, st := range s.Data.Steps {
		if _, err := time.Parse(time.DateOnly, st.Date); err != nil {
			return fmt.Errorf("data.steps[%d]: date: %w", i, err)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i], s.runCount()); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, runs int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Run < 0 || a.Run > runs {
		return fmt.Errorf("assertions[%d]: run %d out of range 1..%d", index, a.Run, runs)
	}

	switch a.Type {
	case AssertAwardedCount, AssertFailureCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertBalance:
		if a.User == 0 || a.Column == "" {
			return fmt.Errorf("assertions[%d]: user and column are required for balance", index)
		}
	case AssertLedgerCount:
		if a.User == 0 {
			return fmt.Errorf("assertions[%d]: user is required for ledger_count", index)
		}
	case AssertQuestActive:
		if a.Quest == 0 || a.Active == nil {
			return fmt.Errorf("assertions[%d]: quest and active are required for quest_active", index)
		}
	case AssertHasAward:
		if a.Quest == 0 || a.User == 0 || a.Held == nil {
			return fmt.Errorf("assertions[%d]: quest, user and held are required for has_award", index)
		}
	case AssertFieldValue:
		if a.User == 0 || a.Field == "" {
			return fmt.Errorf("assertions[%d]: user and field are required for field_value", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func (s *Scenario) runCount() int {
	if s.Runs == 0 {
		return 1
	}
	return s.Runs
}

func (s *Scenario) now() time.Time {
	if s.Now == nil {
		return DefaultNow
	}
	return s.Now.UTC()
}
