package ingesterr

import (
	"errors"
	"fmt"
)

// Kind classifies an ingestion failure. Input-data faults are permanent and
// must never be retried as-is; retrieval and persistence failures carry a
// retryable flag so the caller's retry layer can act.
type Kind string

const (
	KindConfiguration   Kind = "configuration"
	KindRetrieval       Kind = "retrieval"
	KindValidation      Kind = "validation"
	KindManifest        Kind = "manifest"
	KindCorruptArchive  Kind = "corrupt_archive"
	KindMissingManifest Kind = "missing_manifest"
	KindPathTraversal   Kind = "path_traversal"
	KindSizeLimit       Kind = "size_limit"
	KindMissingMember   Kind = "missing_member"
	KindNoGradeMatch    Kind = "no_grade_match"
	KindPersistence     Kind = "persistence"
	KindPublish         Kind = "publish"
)

// Error is the structured ingestion error. Entry is the manifest entry index
// the failure is scoped to, or -1. Path is set for member-level faults.
type Error struct {
	Kind      Kind
	Retryable bool
	Entry     int
	Path      string
	Err       error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := string(e.Kind)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s", e.Kind, e.Err.Error())
	}
	if e.Entry >= 0 {
		msg = fmt.Sprintf("%s (entry %d)", msg, e.Entry)
	}
	if e.Path != "" {
		msg = fmt.Sprintf("%s (path %q)", msg, e.Path)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Entry: -1, Err: err}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Entry: -1, Err: fmt.Errorf(format, args...)}
}

// Retryable marks a transient failure (object store hiccup, commit timeout).
func Retryable(kind Kind, err error) *Error {
	return &Error{Kind: kind, Retryable: true, Entry: -1, Err: err}
}

// Entry scopes the error to a manifest entry index.
func (e *Error) WithEntry(i int) *Error {
	e.Entry = i
	return e
}

func (e *Error) WithPath(p string) *Error {
	e.Path = p
	return e
}

// KindOf extracts the Kind from err, or "" when err is not an ingestion
// error.
func KindOf(err error) Kind {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return ""
}

// IsRetryable reports whether err is a transient ingestion failure. Unknown
// errors default to retryable so that infrastructure faults surface to the
// retry layer instead of being swallowed as permanent.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Retryable
	}
	return true
}
