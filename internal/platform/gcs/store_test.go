package gcs

import "testing"

func testStore(mode StorageMode, emulatorHost string) *objectStore {
	return &objectStore{
		mode:           mode,
		emulatorHost:   emulatorHost,
		artifactBucket: "teagrade-artifacts",
		documentBucket: "teagrade-documents",
	}
}

func TestGetPublicURLGCSMode(t *testing.T) {
	s := testStore(StorageModeGCS, "")

	got := s.GetPublicURL(BucketCategoryDocument, "/documents/abc/leaf.json")
	want := "https://storage.googleapis.com/teagrade-documents/documents/abc/leaf.json"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestGetPublicURLEmulatorMode(t *testing.T) {
	s := testStore(StorageModeEmulator, "http://localhost:4443")

	got := s.GetPublicURL(BucketCategoryArtifact, "drops/batch-9.zip")
	want := "http://localhost:4443/storage/v1/b/teagrade-artifacts/o/drops%2Fbatch-9.zip?alt=media"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestGetPublicURLUnknownCategoryFallsBackToKey(t *testing.T) {
	s := testStore(StorageModeGCS, "")

	if got := s.GetPublicURL(BucketCategory("thumbnail"), "k.png"); got != "k.png" {
		t.Fatalf("got %q, want raw key", got)
	}
}
