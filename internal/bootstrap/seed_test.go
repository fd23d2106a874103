package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	types "github.com/mlimaops/teagrade-backend/internal/domain"
	pkgerrors "github.com/mlimaops/teagrade-backend/internal/pkg/errors"
	"github.com/mlimaops/teagrade-backend/internal/platform/dbctx"
	"github.com/mlimaops/teagrade-backend/internal/platform/logger"
)

const seedYAML = `
sources:
  - source_id: station-7
    processor: archive
    grading_model:
      id: leaf-grade
      version: 1
    on_no_match: fail
    required_attributes: [leaf_set]
  - source_id: extractor-1
    processor: pre_extracted
    enabled: false
`

func TestParseSourceSeeds(t *testing.T) {
	configs, err := ParseSourceSeeds([]byte(seedYAML))
	if err != nil {
		t.Fatalf("ParseSourceSeeds: %v", err)
	}
	if len(configs) != 2 {
		t.Fatalf("got %d configs, want 2", len(configs))
	}

	first := configs[0]
	if first.Processor != types.ProcessorArchive || !first.Enabled {
		t.Fatalf("station-7: %+v", first)
	}
	if !first.HasGrading() || *first.GradingModelID != "leaf-grade" || *first.GradingModelVersion != 1 {
		t.Fatalf("station-7 grading not parsed: %+v", first)
	}
	if first.OnNoMatch != types.NoMatchFail {
		t.Fatalf("station-7 on_no_match %q", first.OnNoMatch)
	}
	if string(first.RequiredAttributes) != `["leaf_set"]` {
		t.Fatalf("station-7 required attrs %s", first.RequiredAttributes)
	}

	second := configs[1]
	if second.Enabled || second.HasGrading() {
		t.Fatalf("extractor-1: %+v", second)
	}
}

func TestParseSourceSeedsRejections(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			"grading without policy",
			"sources:\n  - source_id: s1\n    processor: direct\n    grading_model: {id: m, version: 1}\n",
			"on_no_match",
		},
		{
			"policy without grading",
			"sources:\n  - source_id: s1\n    processor: direct\n    on_no_match: fail\n",
			"without a grading_model",
		},
		{
			"unknown processor",
			"sources:\n  - source_id: s1\n    processor: archive_v2\n",
			"unknown processor",
		},
		{
			"duplicate source",
			"sources:\n  - {source_id: s1, processor: direct}\n  - {source_id: s1, processor: direct}\n",
			"duplicate source_id",
		},
		{
			"empty file",
			"sources: []\n",
			"no sources",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseSourceSeeds([]byte(tc.yaml))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("got %v, want error containing %q", err, tc.want)
			}
		})
	}
}

type seedModelRepo struct {
	rows map[string]*types.GradingModel
}

func (r *seedModelRepo) GetByIDVersion(dbc dbctx.Context, modelID string, version int) (*types.GradingModel, error) {
	m, ok := r.rows[fmt.Sprintf("%s@%d", modelID, version)]
	if !ok {
		return nil, pkgerrors.ErrNotFound
	}
	return m, nil
}

func (r *seedModelRepo) Insert(dbc dbctx.Context, m *types.GradingModel) error {
	key := fmt.Sprintf("%s@%d", m.ModelID, m.Version)
	if _, exists := r.rows[key]; exists {
		return pkgerrors.ErrConflict
	}
	r.rows[key] = m
	return nil
}

const modelYAML = `
model_id: leaf-grade
version: 1
labels: [premium, standard]
rules:
  - label: premium
    when:
      - {attribute: leaf_set, op: eq, value: two-and-a-bud}
  - label: standard
`

func TestSeedGradingModelsIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "leaf-grade-v1.yaml"), []byte(modelYAML), 0o644); err != nil {
		t.Fatalf("write seed file: %v", err)
	}

	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	repo := &seedModelRepo{rows: map[string]*types.GradingModel{}}
	seeder := NewSeeder(log, repo, nil)
	dbc := dbctx.Context{}

	if err := seeder.SeedGradingModels(dbc, dir); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	if len(repo.rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(repo.rows))
	}
	stored := repo.rows["leaf-grade@1"]

	// A second run must not touch the committed version.
	if err := seeder.SeedGradingModels(dbc, dir); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if repo.rows["leaf-grade@1"] != stored {
		t.Fatalf("second seed replaced an existing model version")
	}
}
