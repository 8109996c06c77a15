package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_Golden(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "assertion failures: %v", result.Errors)
			assert.Len(t, result.Runs, scenario.runCount())
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/mixed-rewards.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := Snapshot(scenario.Name, first)
	require.NoError(t, err)
	b, err := Snapshot(scenario.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_ParallelMatchesSequential(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/gold-cap.yaml")
	require.NoError(t, err)
	scenario.Parallelism = 4

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "assertion failures: %v", result.Errors)
	assert.Equal(t, 2, result.Runs[0].Awarded)
	assert.Equal(t, []int64{1}, result.Runs[0].QuestsDisabled)
}

func TestRun_FailedAssertion(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: wrong-balance
description: expects a balance the quest never produces
users:
  - {id: 1, name: Alice}
data:
  steps:
    - {user: 1, date: "2025-06-01", steps: 500}
quests:
  - name: walk
    id: 1
    condition_query: "total_steps >= 100"
    reward_type: gold
    reward_value: 3
assertions:
  - {type: balance, user: 1, column: coins, expect: 99}
  - {type: awarded_count, count: 1}
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "assertions[0]")
	assert.Contains(t, result.Errors[0], "user 1 coins = 99")
	assert.Contains(t, result.Errors[0], "Actual: 3")
}

func TestRun_QuestsMustCompile(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: bad-quest
description: references a field that does not exist
users:
  - {id: 1, name: Alice}
quests:
  - name: typo
    condition_query: "total_stepz >= 100"
    reward_type: gold
    reward_value: 3
assertions:
  - {type: awarded_count, count: 0}
`))
	require.NoError(t, err)

	_, err = Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quests do not compile")
}

func TestParseScenario_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown key",
			yaml: "name: x\ndescription: y\nuserz: []\n",
			want: "failed to parse YAML",
		},
		{
			name: "missing users",
			yaml: "name: x\ndescription: y\nquests: [{name: q}]\nassertions: [{type: awarded_count}]\n",
			want: "users list is required",
		},
		{
			name: "bad start date",
			yaml: "name: x\ndescription: y\nusers: [{id: 1, name: a, start_date: 06/01/2025}]\nquests: [{name: q}]\nassertions: [{type: awarded_count}]\n",
			want: "start_date",
		},
		{
			name: "run out of range",
			yaml: "name: x\ndescription: y\nusers: [{id: 1, name: a}]\nquests: [{name: q}]\nassertions: [{type: awarded_count, run: 3}]\n",
			want: "out of range",
		},
		{
			name: "unknown assertion",
			yaml: "name: x\ndescription: y\nusers: [{id: 1, name: a}]\nquests: [{name: q}]\nassertions: [{type: vibes}]\n",
			want: "unknown assertion type",
		},
		{
			name: "has_award without held",
			yaml: "name: x\ndescription: y\nusers: [{id: 1, name: a}]\nquests: [{name: q}]\nassertions: [{type: has_award, quest: 1, user: 1}]\n",
			want: "held are required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{Type: AssertBalance, Expected: "user 1 coins = 5", Actual: "4"}
	assert.Equal(t, "Assertion failed: balance\n  Expected: user 1 coins = 5\n  Actual: 4", err.Error())
}
