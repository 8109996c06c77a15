package compiler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kritdbb/DobyHR/internal/ir"
	"github.com/kritdbb/DobyHR/internal/query"
)

// BadgeLookup reports whether a badge row exists.
type BadgeLookup interface {
	BadgeExists(ctx context.Context, id int64) (bool, error)
}

// Option configures Compile.
type Option func(*options)

type options struct {
	badges BadgeLookup
}

// WithBadges makes Compile reject badge quests whose badge_id is not in
// the badge table.
func WithBadges(b BadgeLookup) Option {
	return func(o *options) {
		o.badges = b
	}
}

// Compile validates parsed definitions and returns the quests in file
// order. errs collects every problem found; quests is nil when errs is not
// empty so that a partly broken file is never persisted.
func Compile(ctx context.Context, defs []QuestDef, reg query.Registry, opts ...Option) (quests []ir.Quest, errs []error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	seen := make(map[int64]string)
	for i, d := range defs {
		label := d.label(i)
		q := d.Quest()

		if q.ID != 0 {
			if first, dup := seen[q.ID]; dup {
				errs = append(errs, ValidationError{
					Quest:   label,
					Field:   "id",
					Message: fmt.Sprintf("id %d already used by %s", q.ID, first),
					Code:    ErrDuplicateQuestID,
					Line:    d.Line,
				})
			}
			seen[q.ID] = label
		}

		for _, ve := range Validate(ctx, q, reg) {
			ve.Quest = label
			ve.Line = d.Line
			errs = append(errs, ve)
		}
		if o.badges != nil {
			ve, err := checkBadge(ctx, q, o.badges)
			switch {
			case err != nil:
				errs = append(errs, err)
			case ve != nil:
				ve.Quest = label
				ve.Line = d.Line
				errs = append(errs, *ve)
			}
		}
		quests = append(quests, q)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return quests, nil
}

func checkBadge(ctx context.Context, q ir.Quest, badges BadgeLookup) (*ValidationError, error) {
	if q.RewardType != ir.RewardBadge || q.BadgeID == nil {
		return nil, nil
	}
	ok, err := badges.BadgeExists(ctx, *q.BadgeID)
	if err != nil {
		return nil, fmt.Errorf("look up badge %d: %w", *q.BadgeID, err)
	}
	if ok {
		return nil, nil
	}
	return &ValidationError{
		Field:   "badge_id",
		Message: fmt.Sprintf("badge %d not found", *q.BadgeID),
		Code:    ErrBadgeNotFound,
	}, nil
}

// CompileFile reads, parses and validates a quest file. The format is
// chosen by extension: .yaml, .yml or .cue.
func CompileFile(ctx context.Context, path string, reg query.Registry, opts ...Option) ([]ir.Quest, []error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, []error{&CompileError{Field: "file", Message: err.Error()}}
	}

	var defs []QuestDef
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		defs, err = ParseYAML(data)
	case ".cue":
		defs, err = ParseCUE(path, data)
	default:
		return nil, []error{&CompileError{
			Field:   "file",
			Message: fmt.Sprintf("unsupported quest file extension %q (want .yaml, .yml or .cue)", ext),
		}}
	}
	if err != nil {
		return nil, []error{err}
	}
	if len(defs) == 0 {
		return nil, []error{&CompileError{Field: "quests", Message: "no quests defined"}}
	}
	return Compile(ctx, defs, reg, opts...)
}
