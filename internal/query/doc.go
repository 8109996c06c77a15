// Package query parses, validates and evaluates quest condition queries.
//
// Grammar:
//
//	query     := condition (conj condition)*
//	condition := FIELD OP INT
//	OP        := ">=" | "<=" | "!=" | "==" | ">" | "<"
//	conj      := AND | OR   (case-insensitive, surrounded by whitespace)
//
// There are no parentheses and no precedence. Conditions fold strictly left
// to right: "a AND b OR c" is "(a AND b) OR c", and "a OR b AND c" is
// "(a OR b) AND c". Existing quests depend on this folding.
//
// Field names resolve through a Registry (see package fields). Validation
// checks syntax and field existence without calling any resolver.
package query
