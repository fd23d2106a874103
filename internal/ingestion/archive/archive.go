package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mlimaops/teagrade-backend/internal/ingestion/ingesterr"
	"github.com/mlimaops/teagrade-backend/internal/ingestion/manifest"
	"github.com/mlimaops/teagrade-backend/internal/platform/logger"
)

// Member is one extracted archive member, decoded into memory.
type Member struct {
	EntryIndex  int
	Path        string
	ContentType string
	Data        []byte
}

// Extractor unpacks archive artifacts under strict size and path
// constraints. Extraction is all-or-nothing: either every manifest-referenced
// member decodes, or the whole operation fails.
type Extractor struct {
	log *logger.Logger

	maxArchiveBytes      int64
	maxDecompressedBytes int64
}

func NewExtractor(baseLog *logger.Logger, maxArchiveBytes, maxDecompressedBytes int64) *Extractor {
	return &Extractor{
		log:                  baseLog.With("service", "ArchiveExtractor"),
		maxArchiveBytes:      maxArchiveBytes,
		maxDecompressedBytes: maxDecompressedBytes,
	}
}

// Reader is an opened, structurally-sound archive with a normalized member
// index. Obtain one via Extractor.Open.
type Reader struct {
	x       *Extractor
	members map[string]*zip.File
}

// Open checks the compressed and declared-decompressed ceilings and parses
// the zip central directory. A container that cannot be parsed fails here;
// nothing is ever partially read from a corrupt archive.
func (x *Extractor) Open(raw []byte) (*Reader, error) {
	if int64(len(raw)) > x.maxArchiveBytes {
		return nil, ingesterr.Newf(ingesterr.KindSizeLimit,
			"archive is %d bytes, limit %d", len(raw), x.maxArchiveBytes)
	}
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, ingesterr.Newf(ingesterr.KindCorruptArchive, "cannot parse archive: %v", err)
	}

	// Declared sizes are attacker-controlled: a single member declaring
	// past the ceiling, or members whose sum wraps int64, must both trip
	// the limit before anything is decoded.
	var declared uint64
	members := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		if f.UncompressedSize64 > uint64(x.maxDecompressedBytes) {
			return nil, ingesterr.Newf(ingesterr.KindSizeLimit,
				"member %q declares %d bytes, limit %d", f.Name, f.UncompressedSize64, x.maxDecompressedBytes)
		}
		if declared += f.UncompressedSize64; declared > uint64(x.maxDecompressedBytes) {
			return nil, ingesterr.Newf(ingesterr.KindSizeLimit,
				"declared decompressed size %d exceeds limit %d", declared, x.maxDecompressedBytes)
		}
		name, ok := safeRelPath(f.Name)
		if !ok {
			// Hostile member names are only fatal if the manifest references
			// them; unreferenced members are ignored either way.
			continue
		}
		members[name] = f
	}
	return &Reader{x: x, members: members}, nil
}

// ManifestBytes reads the well-known manifest member.
func (r *Reader) ManifestBytes() ([]byte, error) {
	f, ok := r.members[manifest.FileName]
	if !ok {
		return nil, ingesterr.Newf(ingesterr.KindMissingManifest,
			"archive has no %s member", manifest.FileName)
	}
	b, err := readMember(f)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Extract decodes every member referenced by the manifest. Members decode in
// parallel but the result order corresponds 1:1 with manifest entry
// declaration order. Unreferenced archive members are ignored.
func (r *Reader) Extract(ctx context.Context, m *manifest.Manifest) ([]Member, error) {
	type slot struct {
		entry int
		path  string
		file  *zip.File
	}

	var slots []slot
	for i := range m.Entries {
		for _, p := range m.Entries[i].Paths() {
			clean, ok := safeRelPath(p)
			if !ok {
				return nil, ingesterr.Newf(ingesterr.KindPathTraversal,
					"path escapes the extraction root").WithEntry(i).WithPath(p)
			}
			f, found := r.members[clean]
			if !found {
				return nil, ingesterr.Newf(ingesterr.KindMissingMember,
					"manifest references a member not present in the archive").WithEntry(i).WithPath(p)
			}
			if f.Mode()&os.ModeSymlink != 0 {
				return nil, ingesterr.Newf(ingesterr.KindPathTraversal,
					"symlink members are not allowed").WithEntry(i).WithPath(p)
			}
			slots = append(slots, slot{entry: i, path: clean, file: f})
		}
	}

	out := make([]Member, len(slots))
	g, ctx := errgroup.WithContext(ctx)
	for i, s := range slots {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := readMember(s.file)
			if err != nil {
				var ie *ingesterr.Error
				if errors.As(err, &ie) {
					return ie.WithEntry(s.entry).WithPath(s.path)
				}
				return err
			}
			out[i] = Member{
				EntryIndex:  s.entry,
				Path:        s.path,
				ContentType: detectContentType(s.path, data),
				Data:        data,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	r.x.log.Debug("extracted archive members", "entries", len(m.Entries), "members", len(out))
	return out, nil
}

// readMember decodes one member, capped one byte past its declared size so a
// lying header (decompression bomb) is caught instead of materialized.
func readMember(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, ingesterr.Newf(ingesterr.KindCorruptArchive, "open member %q: %v", f.Name, err)
	}
	defer rc.Close()

	limit := int64(f.UncompressedSize64) + 1
	data, err := io.ReadAll(io.LimitReader(rc, limit))
	if err != nil {
		return nil, ingesterr.Newf(ingesterr.KindCorruptArchive, "read member %q: %v", f.Name, err)
	}
	if int64(len(data)) > int64(f.UncompressedSize64) {
		return nil, ingesterr.Newf(ingesterr.KindSizeLimit,
			"member %q decompresses past its declared size %d", f.Name, f.UncompressedSize64)
	}
	return data, nil
}

// safeRelPath normalizes an archive-internal path and rejects anything that
// could resolve outside the logical extraction root.
func safeRelPath(p string) (string, bool) {
	p = strings.TrimSpace(p)
	if p == "" || strings.Contains(p, "\\") || strings.HasPrefix(p, "/") {
		return "", false
	}
	clean := path.Clean(p)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", false
	}
	return clean, true
}

func detectContentType(name string, data []byte) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	if len(data) > 0 {
		n := len(data)
		if n > 512 {
			n = 512
		}
		return http.DetectContentType(data[:n])
	}
	return "application/octet-stream"
}
