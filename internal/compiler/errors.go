package compiler

import (
	"errors"
	"fmt"
	"strconv"

	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CompileError represents a compilation error with source position.
type CompileError struct {
	// Quest labels the definition, empty for file-level errors.
	Quest   string
	Field   string
	Message string
	Pos     token.Pos

	// Line is set for YAML sources, which carry no token.Pos.
	Line int
}

func (e *CompileError) Error() string {
	where := e.Field
	if e.Quest != "" {
		where = e.Quest + "." + e.Field
	}
	switch {
	case e.Pos.IsValid():
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			where, e.Message)
	case e.Line > 0:
		return fmt.Sprintf("line %d: %s: %s", e.Line, where, e.Message)
	}
	return fmt.Sprintf("%s: %s", where, e.Message)
}

// IsCompileError reports whether err is or wraps a *CompileError.
func IsCompileError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error, quest string) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &CompileError{Quest: quest, Field: "cue", Message: err.Error()}
	}

	// Return first error with position info
	first := errs[0]
	ce := &CompileError{Quest: quest, Field: "cue", Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		ce.Pos = positions[0]
	}
	return ce
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
