package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	pkgerrors "github.com/mlimaops/teagrade-backend/internal/pkg/errors"
	"github.com/mlimaops/teagrade-backend/internal/platform/dbctx"
	"github.com/mlimaops/teagrade-backend/internal/platform/envutil"
	"github.com/mlimaops/teagrade-backend/internal/platform/logger"
)

type BucketCategory string

const (
	// BucketCategoryArtifact holds raw uploads from collection stations,
	// exactly as they arrived.
	BucketCategoryArtifact BucketCategory = "artifact"
	// BucketCategoryDocument holds extracted member files, keyed under the
	// document they belong to.
	BucketCategoryDocument BucketCategory = "document"
)

type StorageMode string

const (
	StorageModeGCS      StorageMode = "gcs"
	StorageModeEmulator StorageMode = "gcs_emulator"
)

type ObjectStore interface {
	// GetArtifact reads the whole object at key from the artifact bucket.
	// A missing object returns an error wrapping pkgerrors.ErrNotFound.
	GetArtifact(ctx context.Context, key string) ([]byte, error)
	// PutMember stores one extracted member under documents/<docID>/<name>
	// in the document bucket and returns the storage key.
	PutMember(dbc dbctx.Context, docID, name, contentType string, data []byte) (string, error)
	UploadArtifact(dbc dbctx.Context, key string, r io.Reader) error
	DownloadFile(ctx context.Context, category BucketCategory, key string) (io.ReadCloser, error)
	ListKeys(ctx context.Context, category BucketCategory, prefix string) ([]string, error)
	GetPublicURL(category BucketCategory, key string) string
}

type objectStore struct {
	log            *logger.Logger
	storageClient  *storage.Client
	mode           StorageMode
	emulatorHost   string
	artifactBucket string
	documentBucket string
}

func NewObjectStore(baseLog *logger.Logger) (ObjectStore, error) {
	serviceLog := baseLog.With("service", "ObjectStore")

	artifactBucket := os.Getenv("ARTIFACT_GCS_BUCKET_NAME")
	documentBucket := os.Getenv("DOCUMENT_GCS_BUCKET_NAME")
	if artifactBucket == "" {
		return nil, fmt.Errorf("missing env var ARTIFACT_GCS_BUCKET_NAME")
	}
	if documentBucket == "" {
		return nil, fmt.Errorf("missing env var DOCUMENT_GCS_BUCKET_NAME")
	}

	mode := StorageMode(envutil.Str("OBJECT_STORAGE_MODE", string(StorageModeGCS)))
	emulatorHost := strings.TrimRight(strings.TrimSpace(os.Getenv("STORAGE_EMULATOR_HOST")), "/")

	ctx := context.Background()
	stClient, err := newStorageClientForMode(ctx, mode, emulatorHost)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	serviceLog.Info(
		"Object storage initialized",
		"mode", mode,
		"emulator_host", emulatorHost,
		"artifact_bucket", artifactBucket,
		"document_bucket", documentBucket,
	)

	return &objectStore{
		log:            serviceLog,
		storageClient:  stClient,
		mode:           mode,
		emulatorHost:   emulatorHost,
		artifactBucket: artifactBucket,
		documentBucket: documentBucket,
	}, nil
}

func newStorageClientForMode(ctx context.Context, mode StorageMode, emulatorHost string) (*storage.Client, error) {
	switch mode {
	case StorageModeGCS:
		return storage.NewClient(ctx, option.WithScopes(storage.ScopeReadWrite))
	case StorageModeEmulator:
		if emulatorHost == "" {
			return nil, fmt.Errorf("OBJECT_STORAGE_MODE=%s requires STORAGE_EMULATOR_HOST", mode)
		}
		_ = os.Setenv("STORAGE_EMULATOR_HOST", emulatorHost)
		return storage.NewClient(ctx, option.WithoutAuthentication())
	default:
		return nil, fmt.Errorf("unknown OBJECT_STORAGE_MODE: %s", mode)
	}
}

func (s *objectStore) bucketName(category BucketCategory) (string, error) {
	switch category {
	case BucketCategoryArtifact:
		return s.artifactBucket, nil
	case BucketCategoryDocument:
		return s.documentBucket, nil
	default:
		return "", fmt.Errorf("unknown bucket category: %s", category)
	}
}

func (s *objectStore) GetArtifact(ctx context.Context, key string) ([]byte, error) {
	r, err := s.DownloadFile(ctx, BucketCategoryArtifact, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("artifact %q: %w", key, pkgerrors.ErrNotFound)
		}
		return nil, err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed reading artifact %q: %w", key, err)
	}
	return data, nil
}

func (s *objectStore) PutMember(dbc dbctx.Context, docID, name, contentType string, data []byte) (string, error) {
	key := fmt.Sprintf("documents/%s/%s", docID, name)

	ctx, cancel := context.WithTimeout(dbc.Ctx, 2*time.Minute)
	defer cancel()

	w := s.storageClient.Bucket(s.documentBucket).Object(key).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write member to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return key, nil
}

func (s *objectStore) UploadArtifact(dbc dbctx.Context, key string, r io.Reader) error {
	ctx, cancel := context.WithTimeout(dbc.Ctx, 2*time.Minute)
	defer cancel()

	w := s.storageClient.Bucket(s.artifactBucket).Object(key).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write artifact to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return nil
}

// Do NOT `defer cancel()` before returning the reader: the context would be
// canceled immediately and callers read 0 bytes. Cancel on Close instead.
type readCloserWithCancel struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (r *readCloserWithCancel) Close() error {
	err := r.ReadCloser.Close()
	if r.cancel != nil {
		r.cancel()
	}
	return err
}

func (s *objectStore) isEmulatorMode() bool {
	return s != nil && s.mode == StorageModeEmulator && s.emulatorHost != ""
}

func (s *objectStore) emulatorObjectMediaURL(bucket, key string) string {
	return fmt.Sprintf(
		"%s/storage/v1/b/%s/o/%s?alt=media",
		s.emulatorHost,
		url.PathEscape(bucket),
		url.PathEscape(key),
	)
}

func (s *objectStore) DownloadFile(ctx context.Context, category BucketCategory, key string) (io.ReadCloser, error) {
	bucket, err := s.bucketName(category)
	if err != nil {
		return nil, err
	}
	if s.isEmulatorMode() {
		ctx2, cancel := context.WithTimeout(ctx, 2*time.Minute)
		req, err := http.NewRequestWithContext(ctx2, http.MethodGet, s.emulatorObjectMediaURL(bucket, key), nil)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed creating emulator download request: %w", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed emulator download request: %w", err)
		}
		if resp.StatusCode == http.StatusNotFound {
			_ = resp.Body.Close()
			cancel()
			return nil, fmt.Errorf("emulator object %q: %w", key, storage.ErrObjectNotExist)
		}
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			_ = resp.Body.Close()
			cancel()
			return nil, fmt.Errorf("emulator download failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return &readCloserWithCancel{ReadCloser: resp.Body, cancel: cancel}, nil
	}

	ctx2, cancel := context.WithTimeout(ctx, 2*time.Minute)
	r, err := s.storageClient.Bucket(bucket).Object(key).NewReader(ctx2)
	if err != nil {
		cancel()
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("object %q: %w", key, err)
		}
		return nil, fmt.Errorf("failed to open GCS reader: %w", err)
	}
	return &readCloserWithCancel{ReadCloser: r, cancel: cancel}, nil
}

func (s *objectStore) ListKeys(ctx context.Context, category BucketCategory, prefix string) ([]string, error) {
	bucket, err := s.bucketName(category)
	if err != nil {
		return nil, err
	}
	ctx2, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	it := s.storageClient.Bucket(bucket).Objects(ctx2, &storage.Query{Prefix: prefix})
	out := []string{}
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, attrs.Name)
	}
	return out, nil
}

func (s *objectStore) GetPublicURL(category BucketCategory, key string) string {
	bucket, err := s.bucketName(category)
	if err != nil {
		return key
	}
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if s.isEmulatorMode() {
		return s.emulatorObjectMediaURL(bucket, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, key)
}
