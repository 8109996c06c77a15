// Package compiler turns quest definition files into validated ir.Quest
// values ready to be saved.
//
// Two source formats are accepted:
//
//	# quests.yaml
//	quests:
//	  - name: step-master
//	    condition_query: "total_steps >= 10000 AND checkin_streak >= 5"
//	    reward_type: gold
//	    reward_value: 50
//	    max_awards: 10
//
//	// quests.cue
//	quest: stepMaster: {
//		condition_query: "total_steps >= 10000 AND checkin_streak >= 5"
//		reward_type:     "gold"
//		reward_value:    50
//	}
//
// CUE files are unified with a closed #Quest schema, so unknown keys and
// wrong types fail with a source position. YAML files are decoded strictly.
// Every quest is then checked by Validate, which resolves the condition's
// field names against a field registry without evaluating them.
package compiler
