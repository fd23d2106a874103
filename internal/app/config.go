package app

import (
	"time"

	"github.com/mlimaops/teagrade-backend/internal/platform/envutil"
	"github.com/mlimaops/teagrade-backend/internal/services"
)

type Config struct {
	HTTPAddr        string
	SeedModelsDir   string
	SeedSourcesFile string
	Ingest          services.IngestConfig
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:        envutil.Str("HTTP_ADDR", ":8080"),
		SeedModelsDir:   envutil.Str("SEED_GRADING_MODELS_DIR", ""),
		SeedSourcesFile: envutil.Str("SEED_SOURCES_FILE", ""),
		Ingest: services.IngestConfig{
			MaxArchiveBytes:      envutil.Int64("INGEST_MAX_ARCHIVE_BYTES", 64<<20),
			MaxDecompressedBytes: envutil.Int64("INGEST_MAX_DECOMPRESSED_BYTES", 256<<20),
			RetrievalTimeout:     time.Duration(envutil.Int("INGEST_RETRIEVAL_TIMEOUT_SECONDS", 120)) * time.Second,
			CommitTimeout:        time.Duration(envutil.Int("INGEST_COMMIT_TIMEOUT_SECONDS", 30)) * time.Second,
		},
	}
}
