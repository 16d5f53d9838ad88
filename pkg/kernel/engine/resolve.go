package engine

import (
	"fmt"

	"github.com/skillrun/skillrun/pkg/kernel/schema"
)

// ResolveInput applies a Skill's input_schema to a caller-supplied input
// map before Execute runs: declared defaults fill in anything missing,
// and a required field that's still absent is an error — the same
// precedence (supplied value wins, then default, then required-missing
// fails) the host previously applied across CLI flags/providers/defaults.
func ResolveInput(skill *schema.Skill, supplied map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(skill.InputSchema))
	for k, v := range supplied {
		out[k] = v
	}

	for _, name := range skill.InputOrder {
		spec, ok := skill.InputSchema[name]
		if !ok {
			continue
		}
		if _, has := out[name]; has {
			continue
		}
		if spec.DefaultValue != nil {
			out[name] = spec.DefaultValue
			continue
		}
		if spec.Required {
			return nil, fmt.Errorf("required input %q not supplied and has no default", name)
		}
	}
	return out, nil
}
