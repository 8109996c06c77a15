// Package ir provides the shared domain types for the quest engine.
//
// This package contains type definitions and small pure helpers only. All
// other internal packages import ir; ir imports nothing internal. This keeps
// ir the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - NO float types anywhere - every metric and literal is an int64
//   - A Query is a flat, ordered slice of Conditions (no nesting)
//   - All JSON tags use snake_case
//   - The legacy ledger marker format is frozen (see MarkerReason)
package ir
