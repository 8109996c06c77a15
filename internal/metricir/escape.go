package metricir

import "strings"

// LikeEscape is the escape character backends must declare for Like.
const LikeEscape = `\`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike quotes s so it matches itself literally inside a Like pattern.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}
