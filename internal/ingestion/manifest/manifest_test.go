package manifest

import (
	"errors"
	"strings"
	"testing"

	"github.com/mlimaops/teagrade-backend/internal/ingestion/ingesterr"
)

func validManifest() string {
	return `{
		"source_id": "cc-nandi-01",
		"entries": [
			{"id": "s1", "path": "samples/s1.json", "farmer_ref": "F-1001",
			 "attributes": {"leaf_type": "two_leaves_bud", "moisture_level": "normal"}},
			{"id": "s2", "path": "samples/s2.json", "attachments": ["leaf_photos/s2.jpg"],
			 "attributes": {"leaf_type": "banji", "banji_hardness": "hard"}}
		]
	}`
}

func TestValidateOK(t *testing.T) {
	m, err := Validate([]byte(validManifest()), nil)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if m.SourceID != "cc-nandi-01" || len(m.Entries) != 2 {
		t.Fatalf("unexpected manifest: %+v", m)
	}
	paths := m.Entries[1].Paths()
	if len(paths) != 2 || paths[0] != "samples/s2.json" || paths[1] != "leaf_photos/s2.jpg" {
		t.Fatalf("Paths() = %v", paths)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name      string
		raw       string
		required  []string
		wantEntry int
		wantMsg   string
	}{
		{
			name:      "not json",
			raw:       "not-json",
			wantEntry: -1,
			wantMsg:   "not valid JSON",
		},
		{
			name:      "missing source id",
			raw:       `{"entries":[{"id":"a","path":"p","attributes":{}}]}`,
			wantEntry: -1,
			wantMsg:   "source_id",
		},
		{
			name:      "empty entries",
			raw:       `{"source_id":"s","entries":[]}`,
			wantEntry: -1,
			wantMsg:   "empty",
		},
		{
			name:      "duplicate ids",
			raw:       `{"source_id":"s","entries":[{"id":"a","path":"p1","attributes":{}},{"id":"a","path":"p2","attributes":{}}]}`,
			wantEntry: 1,
			wantMsg:   "duplicate entry id",
		},
		{
			name:      "missing path",
			raw:       `{"source_id":"s","entries":[{"id":"a","attributes":{}}]}`,
			wantEntry: 0,
			wantMsg:   "missing path",
		},
		{
			name:      "missing attributes",
			raw:       `{"source_id":"s","entries":[{"id":"a","path":"p"}]}`,
			wantEntry: 0,
			wantMsg:   "missing attributes",
		},
		{
			name:      "non-scalar attribute",
			raw:       `{"source_id":"s","entries":[{"id":"a","path":"p","attributes":{"leaf_type":["x"]}}]}`,
			wantEntry: 0,
			wantMsg:   "not a scalar",
		},
		{
			name:      "missing required attribute",
			raw:       `{"source_id":"s","entries":[{"id":"a","path":"p","attributes":{"moisture_level":"dry"}}]}`,
			required:  []string{"leaf_type"},
			wantEntry: 0,
			wantMsg:   `required attribute "leaf_type"`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Validate([]byte(tc.raw), tc.required)
			if err == nil {
				t.Fatal("expected error")
			}
			if kind := ingesterr.KindOf(err); kind != ingesterr.KindManifest {
				t.Fatalf("kind = %q, want manifest", kind)
			}
			var ie *ingesterr.Error
			if !errors.As(err, &ie) {
				t.Fatal("not an *ingesterr.Error")
			}
			if ie.Entry != tc.wantEntry {
				t.Fatalf("entry = %d, want %d", ie.Entry, tc.wantEntry)
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Fatalf("message %q missing %q", err.Error(), tc.wantMsg)
			}
			if ingesterr.IsRetryable(err) {
				t.Fatal("manifest faults are permanent")
			}
		})
	}
}
