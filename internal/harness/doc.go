// Package harness runs quest scenarios end to end.
//
// A scenario is a YAML file that seeds a fresh in-memory store with users,
// catalog rows and source data, imports quest definitions through the
// compiler, performs one or more runner passes and then checks assertions
// against the store and the run summaries.
//
//	name: gold-cap
//	description: A capped gold quest stops after two winners
//	now: "2025-06-10T03:00:00Z"
//	users:
//	  - {id: 1, name: Anan, coins: 5}
//	data:
//	  steps:
//	    - {user: 1, date: "2025-06-09", steps: 12000}
//	quests:
//	  - {id: 1, condition_query: "total_steps >= 10000", reward_type: gold, reward_value: 10, max_awards: 2}
//	runs: 2
//	assertions:
//	  - {type: balance, user: 1, column: coins, expect: 15}
//
// Every scenario uses a fixed clock and sequential run ids, so the run
// summaries are byte-stable and can be compared with golden files
// (see RunWithGolden).
package harness
