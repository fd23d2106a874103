package grading

import (
	"errors"
	"strings"
	"testing"
)

func binaryModel() *Model {
	return &Model{
		ID:      "tbk-standard",
		Version: 1,
		Labels:  []string{"Primary", "Secondary"},
		Rules: []Rule{
			{Label: "Primary", When: []Predicate{{Attribute: "leaf_type", Op: OpEq, Value: "two_leaves_bud"}}},
			{Label: "Secondary", When: []Predicate{{Attribute: "leaf_type", Op: OpEq, Value: "coarse"}}},
		},
	}
}

func TestEvaluateSimpleMatch(t *testing.T) {
	label, err := Evaluate(binaryModel(), map[string]any{"leaf_type": "two_leaves_bud"})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if label != "Primary" {
		t.Fatalf("label = %q, want Primary", label)
	}
}

func TestFirstMatchWinsOrdering(t *testing.T) {
	hardFirst := &Model{
		ID: "banji", Version: 1, Labels: []string{"Primary", "Secondary"},
		Rules: []Rule{
			{Label: "Secondary", When: []Predicate{{Attribute: "banji_hardness", Op: OpEq, Value: "hard"}}},
			{Label: "Primary", When: []Predicate{{Attribute: "leaf_type", Op: OpEq, Value: "banji"}}},
		},
	}
	attrs := map[string]any{"leaf_type": "banji", "banji_hardness": "hard"}

	label, err := Evaluate(hardFirst, attrs)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if label != "Secondary" {
		t.Fatalf("hard-rule-first: label = %q, want Secondary", label)
	}

	// Swapping rule order flips the result for the same ambiguous input:
	// ordering decides, not just predicate satisfaction.
	swapped := &Model{
		ID: "banji", Version: 2, Labels: hardFirst.Labels,
		Rules: []Rule{hardFirst.Rules[1], hardFirst.Rules[0]},
	}
	label, err = Evaluate(swapped, attrs)
	if err != nil {
		t.Fatalf("Evaluate swapped: %v", err)
	}
	if label != "Primary" {
		t.Fatalf("swapped order: label = %q, want Primary", label)
	}
}

func TestConjunctionAcrossPredicates(t *testing.T) {
	m := &Model{
		ID: "banji-conditional", Version: 1, Labels: []string{"Primary", "Secondary"},
		Rules: []Rule{
			{Label: "Secondary", When: []Predicate{
				{Attribute: "leaf_type", Op: OpEq, Value: "banji"},
				{Attribute: "banji_hardness", Op: OpEq, Value: "hard"},
			}},
			{Label: "Primary", When: []Predicate{
				{Attribute: "leaf_type", Op: OpEq, Value: "banji"},
				{Attribute: "banji_hardness", Op: OpEq, Value: "soft"},
			}},
		},
	}
	if label, _ := Evaluate(m, map[string]any{"leaf_type": "banji", "banji_hardness": "soft"}); label != "Primary" {
		t.Fatalf("soft banji: label = %q, want Primary", label)
	}
	if label, _ := Evaluate(m, map[string]any{"leaf_type": "banji", "banji_hardness": "hard"}); label != "Secondary" {
		t.Fatalf("hard banji: label = %q, want Secondary", label)
	}
	// Partial predicate satisfaction must not match.
	if _, err := Evaluate(m, map[string]any{"leaf_type": "banji"}); err == nil {
		t.Fatal("banji with no hardness should match nothing")
	}
}

func TestInPredicate(t *testing.T) {
	m := &Model{
		ID: "ktda-moisture", Version: 1, Labels: []string{"Reject", "Accept"},
		Rules: []Rule{
			{Label: "Reject", When: []Predicate{{Attribute: "moisture_level", Op: OpIn, Values: []string{"wet", "soaked"}}}},
			{Label: "Accept"},
		},
	}
	if label, _ := Evaluate(m, map[string]any{"moisture_level": "soaked"}); label != "Reject" {
		t.Fatalf("soaked: label = %q, want Reject", label)
	}
	if label, _ := Evaluate(m, map[string]any{"moisture_level": "normal"}); label != "Accept" {
		t.Fatalf("normal should fall through to the catch-all")
	}
}

func TestNoMatchError(t *testing.T) {
	_, err := Evaluate(binaryModel(), map[string]any{"leaf_type": "mystery"})
	var nm *NoMatchError
	if !errors.As(err, &nm) {
		t.Fatalf("err = %v, want *NoMatchError", err)
	}
	if !strings.Contains(nm.Error(), "leaf_type=mystery") {
		t.Fatalf("error should name the unmatched attributes: %v", nm)
	}
}

func TestNumericAttributesStringify(t *testing.T) {
	m := &Model{
		ID: "weights", Version: 1, Labels: []string{"Bulk"},
		Rules: []Rule{{Label: "Bulk", When: []Predicate{{Attribute: "bag_count", Op: OpEq, Value: "3"}}}},
	}
	// JSON decodes numbers as float64.
	if label, err := Evaluate(m, map[string]any{"bag_count": float64(3)}); err != nil || label != "Bulk" {
		t.Fatalf("float64 attr: label=%q err=%v", label, err)
	}
}

func TestModelValidate(t *testing.T) {
	m := binaryModel()
	if err := m.Validate(); err != nil {
		t.Fatalf("valid model rejected: %v", err)
	}

	bad := binaryModel()
	bad.Rules[0].Label = "Undeclared"
	if err := bad.Validate(); err == nil {
		t.Fatal("undeclared label accepted")
	}

	bad = binaryModel()
	bad.Rules = []Rule{{Label: "Primary"}, bad.Rules[0]}
	if err := bad.Validate(); err == nil {
		t.Fatal("catch-all not in last position accepted")
	}

	bad = binaryModel()
	bad.Rules[0].When[0].Op = "regex"
	if err := bad.Validate(); err == nil {
		t.Fatal("unknown predicate op accepted")
	}
}

func TestParseModelJSONRoundTrip(t *testing.T) {
	labels := []byte(`["Primary","Secondary"]`)
	rules := []byte(`[
		{"label":"Primary","when":[{"attribute":"leaf_type","op":"eq","value":"two_leaves_bud"}]},
		{"label":"Secondary","when":[]}
	]`)
	m, err := ParseModelJSON("tbk-standard", 3, labels, rules)
	if err != nil {
		t.Fatalf("ParseModelJSON: %v", err)
	}
	if m.Version != 3 || len(m.Rules) != 2 || !m.Rules[1].CatchAll() {
		t.Fatalf("unexpected model: %+v", m)
	}
}
