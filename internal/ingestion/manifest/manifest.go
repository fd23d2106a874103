package manifest

import (
	"encoding/json"
	"strings"

	"github.com/mlimaops/teagrade-backend/internal/ingestion/ingesterr"
)

// FileName is the well-known manifest member inside an archive artifact.
const FileName = "manifest.json"

// Manifest declares the logical contents of an archive artifact.
type Manifest struct {
	SourceID string  `json:"source_id"`
	Entries  []Entry `json:"entries"`
}

// Entry names one logical record: a primary member path, optional attachment
// paths, and the record-level attributes carried into the Document.
type Entry struct {
	ID          string         `json:"id"`
	Path        string         `json:"path"`
	Attachments []string       `json:"attachments,omitempty"`
	FarmerRef   string         `json:"farmer_ref,omitempty"`
	Attributes  map[string]any `json:"attributes"`
}

// Paths returns the primary path followed by attachments, in declared order.
func (e *Entry) Paths() []string {
	out := make([]string, 0, 1+len(e.Attachments))
	out = append(out, e.Path)
	out = append(out, e.Attachments...)
	return out
}

// Validate parses and schema-checks manifest bytes. required lists attribute
// keys every entry must carry (per-source configuration). Errors identify
// the offending entry index and field; path safety is the archive
// extractor's job, not ours.
func Validate(raw []byte, required []string) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, ingesterr.Newf(ingesterr.KindManifest, "manifest is not valid JSON: %v", err)
	}
	if strings.TrimSpace(m.SourceID) == "" {
		return nil, ingesterr.Newf(ingesterr.KindManifest, "missing source_id")
	}
	if len(m.Entries) == 0 {
		return nil, ingesterr.Newf(ingesterr.KindManifest, "entries list is empty")
	}

	seenIDs := make(map[string]int, len(m.Entries))
	for i := range m.Entries {
		e := &m.Entries[i]
		if strings.TrimSpace(e.ID) == "" {
			return nil, ingesterr.Newf(ingesterr.KindManifest, "missing entry id").WithEntry(i)
		}
		if prev, dup := seenIDs[e.ID]; dup {
			return nil, ingesterr.Newf(ingesterr.KindManifest, "duplicate entry id %q (first at entry %d)", e.ID, prev).WithEntry(i)
		}
		seenIDs[e.ID] = i

		if strings.TrimSpace(e.Path) == "" {
			return nil, ingesterr.Newf(ingesterr.KindManifest, "missing path").WithEntry(i)
		}
		for _, p := range e.Attachments {
			if strings.TrimSpace(p) == "" {
				return nil, ingesterr.Newf(ingesterr.KindManifest, "empty attachment path").WithEntry(i)
			}
		}

		if e.Attributes == nil {
			return nil, ingesterr.Newf(ingesterr.KindManifest, "missing attributes").WithEntry(i)
		}
		for k, v := range e.Attributes {
			if !scalar(v) {
				return nil, ingesterr.Newf(ingesterr.KindManifest, "attribute %q is not a scalar value", k).WithEntry(i)
			}
		}
		for _, req := range required {
			if _, ok := e.Attributes[req]; !ok {
				return nil, ingesterr.Newf(ingesterr.KindManifest, "missing required attribute %q", req).WithEntry(i)
			}
		}
	}
	return &m, nil
}

// scalar accepts the JSON scalar types; nested objects and arrays are not
// valid attribute values.
func scalar(v any) bool {
	switch v.(type) {
	case string, float64, bool, nil:
		return true
	default:
		return false
	}
}
