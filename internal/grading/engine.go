package grading

import (
	"fmt"
	"sort"
	"strings"
)

// NoMatchError reports attributes that matched no rule in a model without a
// catch-all. Callers decide whether this fails the ingestion or falls back
// to UnclassifiedLabel; the policy is per-source configuration and is never
// silent.
type NoMatchError struct {
	ModelID    string
	Version    int
	Attributes map[string]any
}

func (e *NoMatchError) Error() string {
	keys := make([]string, 0, len(e.Attributes))
	for k, v := range e.Attributes {
		keys = append(keys, fmt.Sprintf("%s=%v", k, v))
	}
	sort.Strings(keys)
	return fmt.Sprintf("grading model %s v%d matched no rule for {%s}",
		e.ModelID, e.Version, strings.Join(keys, ", "))
}

// Evaluate walks the model's rules in declared order and returns the label
// of the first rule whose predicates all match. Pure computation; never
// mutates its inputs.
func Evaluate(m *Model, attrs map[string]any) (string, error) {
	for i := range m.Rules {
		r := &m.Rules[i]
		matched := true
		for j := range r.When {
			if !r.When[j].Match(attrs) {
				matched = false
				break
			}
		}
		if matched {
			return r.Label, nil
		}
	}
	return "", &NoMatchError{ModelID: m.ID, Version: m.Version, Attributes: attrs}
}
