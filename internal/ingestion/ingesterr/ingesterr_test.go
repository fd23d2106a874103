package ingesterr

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestKindOfThroughWrapping(t *testing.T) {
	base := Newf(KindPathTraversal, "escapes extraction root").WithEntry(2).WithPath("../etc/passwd")
	wrapped := fmt.Errorf("extract archive: %w", base)

	if got := KindOf(wrapped); got != KindPathTraversal {
		t.Fatalf("KindOf = %q, want %q", got, KindPathTraversal)
	}
	if IsRetryable(wrapped) {
		t.Fatal("path traversal must not be retryable")
	}

	var ie *Error
	if !errors.As(wrapped, &ie) {
		t.Fatal("errors.As failed to find *Error")
	}
	if ie.Entry != 2 || ie.Path != "../etc/passwd" {
		t.Fatalf("entry/path lost: entry=%d path=%q", ie.Entry, ie.Path)
	}
}

func TestRetryableClassification(t *testing.T) {
	if !IsRetryable(Retryable(KindPersistence, errors.New("commit timeout"))) {
		t.Fatal("persistence error should be retryable")
	}
	if IsRetryable(nil) {
		t.Fatal("nil error is not retryable")
	}
	// Unknown errors default to retryable so infra faults reach the retry layer.
	if !IsRetryable(errors.New("connection reset")) {
		t.Fatal("unknown error should default to retryable")
	}
	if IsRetryable(New(KindValidation, errors.New("bad attribute"))) {
		t.Fatal("validation error must be permanent")
	}
}

func TestErrorMessageContext(t *testing.T) {
	e := Newf(KindMissingMember, "referenced member not in archive").WithEntry(1).WithPath("leaf_photos/p2.jpg")
	msg := e.Error()
	for _, want := range []string{"missing_member", "entry 1", "leaf_photos/p2.jpg"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message %q missing %q", msg, want)
		}
	}
}
