package ir

import (
	"strconv"
	"strings"
)

// AwardedBy is the actor name written on ledger rows and badge ownership
// rows created by the engine.
const AwardedBy = "Badge Quest"

const (
	markerPrefix = "🎯 Quest #"
	markerSuffix = " reward"
)

// MarkerReason returns the ledger reason written for every non-badge quest
// grant. The format is frozen: deployments that predate the award_records
// table detect earlier grants by exact match on this string.
func MarkerReason(questID int64) string {
	return markerPrefix + strconv.FormatInt(questID, 10) + markerSuffix
}

// ParseMarkerReason extracts the quest id from a ledger reason written by
// MarkerReason. The second result is false for any other reason text.
func ParseMarkerReason(reason string) (int64, bool) {
	if !strings.HasPrefix(reason, markerPrefix) || !strings.HasSuffix(reason, markerSuffix) {
		return 0, false
	}
	digits := strings.TrimSuffix(strings.TrimPrefix(reason, markerPrefix), markerSuffix)
	if digits == "" {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	id, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
