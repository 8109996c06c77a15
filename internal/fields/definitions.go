package fields

import "github.com/kritdbb/DobyHR/internal/metricir"

// definition is one static field. Exactly one of metric and custom is set.
type definition struct {
	name    string
	label   string
	desc    string
	example string
	metric  metricir.Metric
	custom  func(r *Registry) Resolver
}

func userColumn(col string) metricir.Metric {
	return metricir.Column{Table: "users", Column: col, Filter: metricir.SubjectEquals{Field: "id"}}
}

func countWhere(table, subjectField string, preds ...metricir.Predicate) metricir.Metric {
	return metricir.Aggregate{
		Func:   metricir.Count,
		Table:  table,
		Filter: metricir.And{Predicates: append([]metricir.Predicate{metricir.SubjectEquals{Field: subjectField}}, preds...)},
	}
}

func ledgerReasonLike(patterns ...string) metricir.Predicate {
	if len(patterns) == 1 {
		return metricir.Like{Field: "reason", Pattern: patterns[0]}
	}
	or := metricir.Or{}
	for _, p := range patterns {
		or.Predicates = append(or.Predicates, metricir.Like{Field: "reason", Pattern: p})
	}
	return or
}

func approvedLeave(leaveType string) metricir.Metric {
	return countWhere("leave_requests", "user_id",
		metricir.Equals{Field: "leave_type", Value: leaveType},
		metricir.Equals{Field: "status", Value: "approved"},
	)
}

func ledgerSum(op metricir.CompareOp, fn metricir.AggFunc) metricir.Metric {
	return metricir.Aggregate{
		Func:   fn,
		Table:  "coin_logs",
		Column: "amount",
		Filter: metricir.And{Predicates: []metricir.Predicate{
			metricir.SubjectEquals{Field: "user_id"},
			metricir.Compare{Field: "amount", Op: op, Value: 0},
		}},
	}
}

// staticFields is the fixed field table in catalog order.
var staticFields = []definition{
	{
		name: "checkin_streak", label: "Check-in Streak",
		desc: "Consecutive on-time check-in days", example: "checkin_streak >= 5",
		custom: (*Registry).checkinStreak,
	},
	{
		name: "total_steps", label: "Total Steps",
		desc: "All-time total steps walked (Fitbit)", example: "total_steps >= 10000",
		metric: metricir.Aggregate{
			Func: metricir.Sum, Table: "fitbit_steps", Column: "steps",
			Filter: metricir.SubjectEquals{Field: "user_id"},
		},
	},
	{
		name: "mana_received", label: "Mana Received",
		desc: "Times received Mana from others", example: "mana_received >= 3",
		metric: countWhere("coin_logs", "user_id",
			ledgerReasonLike("%Received Angel Coins%", "%Received Gold from%", "%Received Mana from%")),
	},
	{
		name: "mana_sent", label: "Mana Sent",
		desc: "Times sent Mana to others", example: "mana_sent >= 3",
		metric: countWhere("coin_logs", "user_id",
			ledgerReasonLike("%Sent%Angel Coins%", "%Sent%Mana as%")),
	},
	{
		name: "revival_prayers", label: "🙏 Revival Prayers",
		desc: "Times contributed a Revival Prayer", example: "revival_prayers >= 3",
		custom: (*Registry).revivalPrayers,
	},
	{
		name: "scroll_purchased", label: "📜 Scrolls Purchased",
		desc: "Times purchased any Scroll", example: "scroll_purchased >= 2",
		metric: countWhere("coin_logs", "user_id", ledgerReasonLike("%Scroll of%")),
	},
	{
		name: "coins", label: "Gold (current)",
		desc: "Current Gold balance", example: "coins >= 100",
		metric: userColumn("coins"),
	},
	{
		name: "angel_coins", label: "Mana (current)",
		desc: "Current Mana balance", example: "angel_coins >= 10",
		metric: userColumn("angel_coins"),
	},
	{
		name: "base_str", label: "Base STR",
		desc: "Base Strength stat", example: "base_str >= 15",
		metric: userColumn("base_str"),
	},
	{
		name: "base_def", label: "Base DEF",
		desc: "Base Defense stat", example: "base_def >= 15",
		metric: userColumn("base_def"),
	},
	{
		name: "base_luk", label: "Base LUK",
		desc: "Base Luck stat", example: "base_luk >= 15",
		metric: userColumn("base_luk"),
	},
	{
		name: "leave_sick", label: "🏥 Sick Leave",
		desc: "Approved sick leave count", example: "leave_sick >= 1",
		metric: approvedLeave("sick"),
	},
	{
		name: "leave_vacation", label: "🏖 Vacation Leave",
		desc: "Approved vacation leave count", example: "leave_vacation >= 1",
		metric: approvedLeave("vacation"),
	},
	{
		name: "leave_business", label: "💼 Business Leave",
		desc: "Approved business leave count", example: "leave_business >= 1",
		metric: approvedLeave("business"),
	},
	{
		name: "total_redemptions", label: "🛍 Total Redemptions",
		desc: "Total items redeemed from shop", example: "total_redemptions >= 5",
		metric: countWhere("redemptions", "user_id",
			metricir.NotEquals{Field: "status", Value: "rejected"}),
	},
	{
		name: "rescue_given", label: "🆘 Rescue Given",
		desc: "Times contributed a Revival Prayer to help others", example: "rescue_given >= 3",
		custom: (*Registry).rescueGiven,
	},
	{
		name: "rescue_received", label: "💖 Rescue Received",
		desc: "Times successfully revived by friends", example: "rescue_received >= 1",
		metric: countWhere("coin_logs", "user_id", ledgerReasonLike("💖 Revived by%")),
	},
	{
		name: "total_checkins", label: "📋 Total Check-ins",
		desc: "Total number of check-ins", example: "total_checkins >= 30",
		metric: countWhere("attendance", "user_id"),
	},
	{
		name: "on_time_checkins", label: "⏰ On-time Check-ins",
		desc: "Number of on-time check-ins", example: "on_time_checkins >= 20",
		metric: countWhere("attendance", "user_id", metricir.Equals{Field: "status", Value: "present"}),
	},
	{
		name: "pvp_wins", label: "⚔️ PvP Wins",
		desc: "PvP battles won", example: "pvp_wins >= 5",
		metric: metricir.Aggregate{
			Func: metricir.Count, Table: "pvp_battles",
			Filter: metricir.SubjectEquals{Field: "winner_id"},
		},
	},
	{
		name: "pvp_battles", label: "🏟️ PvP Battles",
		desc: "Total PvP battles played", example: "pvp_battles >= 10",
		metric: metricir.Aggregate{
			Func: metricir.Count, Table: "pvp_battles",
			Filter: metricir.Or{Predicates: []metricir.Predicate{
				metricir.SubjectEquals{Field: "player_a_id"},
				metricir.SubjectEquals{Field: "player_b_id"},
			}},
		},
	},
	{
		name: "thank_you_sent", label: "💌 Thank You Sent",
		desc: "Thank You Cards sent", example: "thank_you_sent >= 4",
		metric: countWhere("thank_you_cards", "sender_id"),
	},
	{
		name: "thank_you_received", label: "💝 Thank You Received",
		desc: "Thank You Cards received", example: "thank_you_received >= 5",
		metric: countWhere("thank_you_cards", "recipient_id"),
	},
	{
		name: "anonymous_praise_sent", label: "🕵️ Praise Sent",
		desc: "Anonymous praises written", example: "anonymous_praise_sent >= 3",
		metric: countWhere("anonymous_praises", "sender_id"),
	},
	{
		name: "anonymous_praise_received", label: "🌟 Praise Received",
		desc: "Anonymous praises received", example: "anonymous_praise_received >= 3",
		metric: countWhere("anonymous_praises", "recipient_id"),
	},
	{
		name: "fortune_spins", label: "🎰 Fortune Spins",
		desc: "Fortune Wheel spins", example: "fortune_spins >= 10",
		metric: countWhere("coin_logs", "user_id", ledgerReasonLike("%Magic Lottery%")),
	},
	{
		name: "badges_count", label: "🏅 Badges Count",
		desc: "Total badges earned", example: "badges_count >= 5",
		metric: countWhere("user_badges", "user_id"),
	},
	{
		name: "gold_spent", label: "💸 Gold Spent",
		desc: "Total gold spent (all time)", example: "gold_spent >= 100",
		metric: ledgerSum(metricir.Less, metricir.AbsSum),
	},
	{
		name: "total_gold_earned", label: "💰 Gold Earned",
		desc: "Total gold earned (all time)", example: "total_gold_earned >= 500",
		metric: ledgerSum(metricir.Greater, metricir.Sum),
	},
	{
		name: "days_employed", label: "📅 Days Employed",
		desc: "Days since start date", example: "days_employed >= 365",
		custom: (*Registry).daysEmployed,
	},
}
