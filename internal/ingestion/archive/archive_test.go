package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/mlimaops/teagrade-backend/internal/ingestion/ingesterr"
	"github.com/mlimaops/teagrade-backend/internal/ingestion/manifest"
	"github.com/mlimaops/teagrade-backend/internal/platform/logger"
)

var (
	logOnce sync.Once
	logg    *logger.Logger
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	logOnce.Do(func() {
		l, err := logger.New("test")
		if err != nil {
			t.Fatalf("init logger: %v", err)
		}
		logg = l
	})
	return logg
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, body := range files {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := fw.Write([]byte(body)); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func twoEntryManifest() *manifest.Manifest {
	return &manifest.Manifest{
		SourceID: "cc-nandi-01",
		Entries: []manifest.Entry{
			{ID: "s1", Path: "samples/s1.json", Attributes: map[string]any{"leaf_type": "two_leaves_bud"}},
			{ID: "s2", Path: "samples/s2.json", Attachments: []string{"leaf_photos/s2.jpg"},
				Attributes: map[string]any{"leaf_type": "banji"}},
		},
	}
}

func newTestExtractor(t *testing.T) *Extractor {
	return NewExtractor(testLogger(t), 1<<20, 1<<20)
}

func TestExtractHappyPath(t *testing.T) {
	raw := buildZip(t, map[string]string{
		"manifest.json":      `{"source_id":"cc-nandi-01","entries":[]}`,
		"samples/s1.json":    `{"weight_kg": 12.5}`,
		"samples/s2.json":    `{"weight_kg": 9.1}`,
		"leaf_photos/s2.jpg": "jpegbytes",
		"notes/ignored.txt":  "not referenced by any entry",
	})
	x := newTestExtractor(t)
	r, err := x.Open(raw)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := r.ManifestBytes(); err != nil {
		t.Fatalf("ManifestBytes: %v", err)
	}

	members, err := r.Extract(context.Background(), twoEntryManifest())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(members) != 3 {
		t.Fatalf("expected 3 members, got %d", len(members))
	}
	// Result order follows manifest declaration order.
	if members[0].Path != "samples/s1.json" || members[0].EntryIndex != 0 {
		t.Fatalf("member 0 out of order: %+v", members[0])
	}
	if members[1].Path != "samples/s2.json" || members[1].EntryIndex != 1 {
		t.Fatalf("member 1 out of order: %+v", members[1])
	}
	if members[2].Path != "leaf_photos/s2.jpg" || members[2].EntryIndex != 1 {
		t.Fatalf("member 2 out of order: %+v", members[2])
	}
	if string(members[0].Data) != `{"weight_kg": 12.5}` {
		t.Fatalf("member 0 data = %q", members[0].Data)
	}
	if members[2].ContentType != "image/jpeg" {
		t.Fatalf("member 2 content type = %q", members[2].ContentType)
	}
}

func TestPathTraversalRejected(t *testing.T) {
	raw := buildZip(t, map[string]string{
		"manifest.json":   `{}`,
		"samples/s1.json": "{}",
	})
	x := newTestExtractor(t)
	r, err := x.Open(raw)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	for _, bad := range []string{"../etc/passwd", "/etc/passwd", "samples/../../s1.json", `samples\s1.json`} {
		m := &manifest.Manifest{SourceID: "s", Entries: []manifest.Entry{
			{ID: "a", Path: bad, Attributes: map[string]any{}},
		}}
		_, err := r.Extract(context.Background(), m)
		if kind := ingesterr.KindOf(err); kind != ingesterr.KindPathTraversal {
			t.Fatalf("path %q: kind = %q, want path_traversal (err=%v)", bad, kind, err)
		}
	}
}

func TestMissingManifest(t *testing.T) {
	raw := buildZip(t, map[string]string{"samples/s1.json": "{}"})
	x := newTestExtractor(t)
	r, err := x.Open(raw)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_, err = r.ManifestBytes()
	if kind := ingesterr.KindOf(err); kind != ingesterr.KindMissingManifest {
		t.Fatalf("kind = %q, want missing_manifest", kind)
	}
}

func TestCorruptArchive(t *testing.T) {
	x := newTestExtractor(t)
	_, err := x.Open([]byte("this is not a zip file at all"))
	if kind := ingesterr.KindOf(err); kind != ingesterr.KindCorruptArchive {
		t.Fatalf("kind = %q, want corrupt_archive", kind)
	}
}

func TestCompressedSizeCeiling(t *testing.T) {
	raw := buildZip(t, map[string]string{"manifest.json": "{}"})
	x := NewExtractor(testLogger(t), int64(len(raw))-1, 1<<20)
	_, err := x.Open(raw)
	if kind := ingesterr.KindOf(err); kind != ingesterr.KindSizeLimit {
		t.Fatalf("kind = %q, want size_limit", kind)
	}
}

func TestDeclaredDecompressedCeiling(t *testing.T) {
	big := bytes.Repeat([]byte("a"), 4096)
	raw := buildZip(t, map[string]string{
		"manifest.json": "{}",
		"samples/big":   string(big),
	})
	x := NewExtractor(testLogger(t), 1<<20, 1024)
	_, err := x.Open(raw)
	if kind := ingesterr.KindOf(err); kind != ingesterr.KindSizeLimit {
		t.Fatalf("kind = %q, want size_limit", kind)
	}
}

// Two members each declaring 1<<62 bytes wrap a naive int64 sum negative;
// the ceiling must trip on the declared sizes themselves, not the sum alone.
func TestDeclaredSizeOverflowRejected(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, name := range []string{"a.bin", "b.bin"} {
		if _, err := w.CreateRaw(&zip.FileHeader{
			Name:               name,
			Method:             zip.Store,
			UncompressedSize64: 1 << 62,
		}); err != nil {
			t.Fatalf("zip create raw %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}

	x := NewExtractor(testLogger(t), 1<<20, 1<<20)
	_, err := x.Open(buf.Bytes())
	if kind := ingesterr.KindOf(err); kind != ingesterr.KindSizeLimit {
		t.Fatalf("kind = %q, want size_limit (err=%v)", kind, err)
	}
}

func TestMissingMemberAbortsAll(t *testing.T) {
	raw := buildZip(t, map[string]string{
		"manifest.json":   `{}`,
		"samples/s1.json": "{}",
	})
	x := newTestExtractor(t)
	r, err := x.Open(raw)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	m := &manifest.Manifest{SourceID: "s", Entries: []manifest.Entry{
		{ID: "a", Path: "samples/s1.json", Attributes: map[string]any{}},
		{ID: "b", Path: "samples/s2.json", Attributes: map[string]any{}},
	}}
	members, err := r.Extract(context.Background(), m)
	if members != nil {
		t.Fatalf("expected no members on failure, got %d", len(members))
	}
	var ie *ingesterr.Error
	if !errors.As(err, &ie) || ie.Kind != ingesterr.KindMissingMember {
		t.Fatalf("err = %v, want missing_member", err)
	}
	if ie.Entry != 1 || ie.Path != "samples/s2.json" {
		t.Fatalf("entry/path = %d/%q, want 1/samples/s2.json", ie.Entry, ie.Path)
	}
}
