package compiler

import (
	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// questSchema constrains every value under the top-level quest struct.
const questSchema = `
#Quest: {
	id?:              int & >0
	description?:     string
	condition_query?: string
	condition_type?:  string
	threshold?:       int
	reward_type:      "badge" | "gold" | "mana" | "str" | "def" | "luk" | "coupon"
	reward_value:     *0 | int
	badge_id?:        int
	max_awards?:      int
	active:           *true | bool
}
`

// ParseCUE compiles a CUE quest file and decodes every field of its
// top-level quest struct, in source order.
func ParseCUE(filename string, data []byte) ([]QuestDef, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(questSchema, cue.Filename("quest-schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err, "")
	}
	def := schema.LookupPath(cue.ParsePath("#Quest"))

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err, "")
	}

	questsVal := v.LookupPath(cue.ParsePath("quest"))
	if !questsVal.Exists() {
		return nil, &CompileError{Field: "quest", Message: "no quest struct found", Pos: v.Pos()}
	}

	iter, err := questsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err, "")
	}

	var defs []QuestDef
	for iter.Next() {
		name := iter.Selector().String()
		qv := def.Unify(iter.Value())
		if err := qv.Validate(cue.Concrete(true)); err != nil {
			return nil, formatCUEError(err, name)
		}

		var d QuestDef
		if err := qv.Decode(&d); err != nil {
			return nil, formatCUEError(err, name)
		}
		d.Name = name
		if pos := iter.Value().Pos(); pos.IsValid() {
			d.Line = pos.Line()
		}
		defs = append(defs, d)
	}
	return defs, nil
}
