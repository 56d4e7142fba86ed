// Package fields projects nested records by dotted field specs, the
// projection layer behind the tools' fields argument.
package fields

import (
	"fmt"
	"strings"
)

// Options tunes projection behaviour.
type Options struct {
	// Strict makes missing keys an error instead of silently dropping them.
	Strict bool
	// PreserveEmptyObjects keeps sub-objects that end up with no keys.
	PreserveEmptyObjects bool
}

// ValidateSpecs returns the specs that are malformed: empty segments
// (".x", "x.", "x..y") or a wildcard glued to other characters ("x*y").
// Invalid specs are reported, not fatal; Apply skips whatever cannot match.
func ValidateSpecs(specs []string) []string {
	var invalid []string
	for _, spec := range specs {
		if !validSpec(spec) {
			invalid = append(invalid, spec)
		}
	}
	return invalid
}

func validSpec(spec string) bool {
	if spec == "" {
		return false
	}
	for _, seg := range strings.Split(spec, ".") {
		if seg == "" {
			return false
		}
		if strings.Contains(seg, "*") && seg != "*" {
			return false
		}
	}
	return true
}

// Apply projects record down to the given specs. A nil or empty spec list
// returns the record unchanged.
func Apply(record map[string]any, specs []string) map[string]any {
	out, _ := ApplyWithOptions(record, specs, Options{})
	return out
}

// ApplyWithOptions projects record down to the given specs.
func ApplyWithOptions(record map[string]any, specs []string, opts Options) (map[string]any, error) {
	if len(specs) == 0 {
		return record, nil
	}

	out := map[string]any{}
	for _, spec := range specs {
		if !validSpec(spec) {
			if opts.Strict {
				return nil, fmt.Errorf("invalid field spec %q", spec)
			}
			continue
		}
		if err := copySpec(record, out, strings.Split(spec, "."), opts.Strict, spec); err != nil {
			return nil, err
		}
	}

	if !opts.PreserveEmptyObjects {
		pruneEmpty(out)
	}
	return out, nil
}

// copySpec copies one dotted path from src into dst, materialising
// intermediate objects along the way.
func copySpec(src, dst map[string]any, segments []string, strict bool, spec string) error {
	head := segments[0]

	if head == "*" {
		// "*" copies all siblings at this level; any trailing segments are
		// redundant and ignored.
		for k, v := range src {
			dst[k] = v
		}
		return nil
	}

	value, ok := src[head]
	if !ok {
		if strict {
			return fmt.Errorf("field %q not found (spec %q)", head, spec)
		}
		return nil
	}

	if len(segments) == 1 {
		dst[head] = value
		return nil
	}

	// "a.*" copies the whole sub-object.
	if segments[1] == "*" {
		dst[head] = value
		return nil
	}

	srcChild, ok := value.(map[string]any)
	if !ok {
		if strict {
			return fmt.Errorf("field %q is not an object (spec %q)", head, spec)
		}
		return nil
	}

	dstChild, ok := dst[head].(map[string]any)
	if !ok {
		dstChild = map[string]any{}
		dst[head] = dstChild
	}
	return copySpec(srcChild, dstChild, segments[1:], strict, spec)
}

// pruneEmpty removes sub-objects that carry no keys.
func pruneEmpty(m map[string]any) {
	for k, v := range m {
		child, ok := v.(map[string]any)
		if !ok {
			continue
		}
		pruneEmpty(child)
		if len(child) == 0 {
			delete(m, k)
		}
	}
}
