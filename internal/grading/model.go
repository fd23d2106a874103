package grading

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// UnclassifiedLabel is the fallback grade for sources configured to absorb
// a no-match instead of failing the ingestion.
const UnclassifiedLabel = "unclassified"

// PredicateOp is the tagged variant discriminator for rule predicates. The
// evaluation loop is op-agnostic; adding a numeric-range op means adding a
// case to Predicate.Match and nothing else.
type PredicateOp string

const (
	OpEq PredicateOp = "eq"
	OpIn PredicateOp = "in"
)

// Predicate is one attribute-match condition.
type Predicate struct {
	Attribute string      `json:"attribute" yaml:"attribute"`
	Op        PredicateOp `json:"op" yaml:"op"`
	Value     string      `json:"value,omitempty" yaml:"value,omitempty"`
	Values    []string    `json:"values,omitempty" yaml:"values,omitempty"`
}

// Rule assigns Label when every predicate in When matches (conjunction).
// A rule with an empty When is a catch-all.
type Rule struct {
	Label string      `json:"label" yaml:"label"`
	When  []Predicate `json:"when,omitempty" yaml:"when,omitempty"`
}

func (r *Rule) CatchAll() bool { return len(r.When) == 0 }

// Model is one immutable version of a grading scheme: an ordered label set
// and an ordered rule list evaluated first-match-wins.
type Model struct {
	ID      string   `json:"model_id" yaml:"model_id"`
	Version int      `json:"version" yaml:"version"`
	Labels  []string `json:"labels" yaml:"labels"`
	Rules   []Rule   `json:"rules" yaml:"rules"`
}

// Validate checks structural invariants: non-empty id/labels/rules, every
// rule label declared, predicates well-formed, and at most one catch-all
// which must be the last rule.
func (m *Model) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("grading model: missing model_id")
	}
	if m.Version < 1 {
		return fmt.Errorf("grading model %s: version must be >= 1", m.ID)
	}
	if len(m.Labels) == 0 {
		return fmt.Errorf("grading model %s: no labels", m.ID)
	}
	if len(m.Rules) == 0 {
		return fmt.Errorf("grading model %s: no rules", m.ID)
	}
	known := make(map[string]bool, len(m.Labels))
	for _, l := range m.Labels {
		known[l] = true
	}
	for i, r := range m.Rules {
		if !known[r.Label] {
			return fmt.Errorf("grading model %s: rule %d assigns undeclared label %q", m.ID, i, r.Label)
		}
		if r.CatchAll() && i != len(m.Rules)-1 {
			return fmt.Errorf("grading model %s: catch-all rule %d must be last", m.ID, i)
		}
		for j, p := range r.When {
			if strings.TrimSpace(p.Attribute) == "" {
				return fmt.Errorf("grading model %s: rule %d predicate %d has no attribute", m.ID, i, j)
			}
			switch p.Op {
			case OpEq:
				if p.Value == "" {
					return fmt.Errorf("grading model %s: rule %d predicate %d (eq) has no value", m.ID, i, j)
				}
			case OpIn:
				if len(p.Values) == 0 {
					return fmt.Errorf("grading model %s: rule %d predicate %d (in) has no values", m.ID, i, j)
				}
			default:
				return fmt.Errorf("grading model %s: rule %d predicate %d has unknown op %q", m.ID, i, j, p.Op)
			}
		}
	}
	return nil
}

// Match tests the predicate against the attribute map. Enumerated fields
// compare by exact string match; numbers and bools are stringified first.
func (p *Predicate) Match(attrs map[string]any) bool {
	raw, ok := attrs[p.Attribute]
	if !ok {
		return false
	}
	v, ok := attrString(raw)
	if !ok {
		return false
	}
	switch p.Op {
	case OpEq:
		return v == p.Value
	case OpIn:
		for _, candidate := range p.Values {
			if v == candidate {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func attrString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

// ParseModelJSON decodes a stored model (labels + rules persisted as JSONB).
func ParseModelJSON(id string, version int, labels, rules []byte) (*Model, error) {
	m := &Model{ID: id, Version: version}
	if err := json.Unmarshal(labels, &m.Labels); err != nil {
		return nil, fmt.Errorf("grading model %s v%d: parse labels: %w", id, version, err)
	}
	if err := json.Unmarshal(rules, &m.Rules); err != nil {
		return nil, fmt.Errorf("grading model %s v%d: parse rules: %w", id, version, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
