package merge

import (
	"reflect"

	"github.com/foomo/sitepress/pkg/document"
	"github.com/pkg/errors"
)

// Strategy how two arrays at the same position are combined
type Strategy string

const (
	// StrategyIndex merges items positionally, extra items of the longer array are kept
	StrategyIndex Strategy = "index"
	// StrategyUnionParentFirst parent items, then overlay items not present in the parent
	StrategyUnionParentFirst Strategy = "union_parent_first"
	// StrategyUnionParentLast overlay items, then parent items not present in the overlay
	StrategyUnionParentLast Strategy = "union_parent_last"
	// StrategyReplace the overlay array replaces the parent array
	StrategyReplace Strategy = "replace"
)

// DirectiveKey reserved object member mapping sibling keys to array strategies
const DirectiveKey = "$merge"

func (s Strategy) Valid() bool {
	switch s {
	case StrategyIndex, StrategyUnionParentFirst, StrategyUnionParentLast, StrategyReplace:
		return true
	}
	return false
}

type (
	Merger struct {
		arrays Strategy
	}
	Option func(*Merger)
)

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

func New(opts ...Option) *Merger {
	inst := &Merger{
		arrays: StrategyIndex,
	}
	for _, opt := range opts {
		opt(inst)
	}
	return inst
}

// ------------------------------------------------------------------------------------------------
// ~ Options
// ------------------------------------------------------------------------------------------------

// WithArrayStrategy sets the strategy used for arrays without a directive
func WithArrayStrategy(v Strategy) Option {
	return func(o *Merger) {
		o.arrays = v
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

// Merge deep merges overlay onto base. Neither input is modified.
func Merge(base, overlay document.Document) (document.Document, error) {
	return New().Merge(base, overlay)
}

func (m *Merger) Merge(base, overlay document.Document) (document.Document, error) {
	if base == nil {
		base = document.Document{}
	}
	if overlay == nil {
		overlay = document.Document{}
	}
	return m.mergeObjects(base, overlay)
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func (m *Merger) mergeObjects(base, overlay map[string]interface{}) (map[string]interface{}, error) {
	directives, err := readDirectives(overlay)
	if err != nil {
		return nil, err
	}
	out := strip(base).(map[string]interface{})
	for key, value := range overlay {
		if key == DirectiveKey {
			continue
		}
		existing, ok := out[key]
		if !ok {
			out[key] = strip(value)
			continue
		}
		strategy := m.arrays
		if s, ok := directives[key]; ok {
			strategy = s
		}
		merged, err := m.mergeValue(existing, value, strategy)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to merge %q", key)
		}
		out[key] = merged
	}
	return out, nil
}

func (m *Merger) mergeValue(base, overlay interface{}, strategy Strategy) (interface{}, error) {
	switch o := overlay.(type) {
	case map[string]interface{}:
		if b, ok := base.(map[string]interface{}); ok {
			return m.mergeObjects(b, o)
		}
	case []interface{}:
		if b, ok := base.([]interface{}); ok {
			return m.mergeArrays(b, o, strategy)
		}
	}
	return strip(overlay), nil
}

func (m *Merger) mergeArrays(base, overlay []interface{}, strategy Strategy) ([]interface{}, error) {
	switch strategy {
	case StrategyReplace:
		return strip(overlay).([]interface{}), nil
	case StrategyUnionParentFirst:
		return union(base, overlay), nil
	case StrategyUnionParentLast:
		return union(overlay, base), nil
	case StrategyIndex, "":
		size := len(base)
		if len(overlay) > size {
			size = len(overlay)
		}
		out := make([]interface{}, size)
		for i := 0; i < size; i++ {
			switch {
			case i < len(base) && i < len(overlay):
				v, err := m.mergeValue(base[i], overlay[i], m.arrays)
				if err != nil {
					return nil, errors.Wrapf(err, "failed to merge index %d", i)
				}
				out[i] = v
			case i < len(overlay):
				out[i] = strip(overlay[i])
			default:
				out[i] = strip(base[i])
			}
		}
		return out, nil
	default:
		return nil, errors.Errorf("unknown array merge strategy %q", strategy)
	}
}

func union(first, second []interface{}) []interface{} {
	out := make([]interface{}, 0, len(first)+len(second))
	for _, v := range first {
		out = append(out, strip(v))
	}
	for _, v := range second {
		if !contains(first, v) {
			out = append(out, strip(v))
		}
	}
	return out
}

func contains(items []interface{}, v interface{}) bool {
	sv := strip(v)
	for _, item := range items {
		if reflect.DeepEqual(strip(item), sv) {
			return true
		}
	}
	return false
}

func readDirectives(obj map[string]interface{}) (map[string]Strategy, error) {
	raw, ok := obj[DirectiveKey]
	if !ok {
		return nil, nil
	}
	entries, ok := raw.(map[string]interface{})
	if !ok {
		return nil, errors.Errorf("%s must be an object, got %T", DirectiveKey, raw)
	}
	directives := make(map[string]Strategy, len(entries))
	for key, value := range entries {
		name, ok := value.(string)
		if !ok || !Strategy(name).Valid() {
			return nil, errors.Errorf("invalid %s strategy for %q: %v", DirectiveKey, key, value)
		}
		directives[key] = Strategy(name)
	}
	return directives, nil
}

// strip deep copies v without merge directives
func strip(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, child := range t {
			if k == DirectiveKey {
				continue
			}
			out[k] = strip(child)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, child := range t {
			out[i] = strip(child)
		}
		return out
	default:
		return t
	}
}
