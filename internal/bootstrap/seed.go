// Package bootstrap loads declarative seed data at startup: grading model
// versions and source configurations. Model versions are immutable; a seed
// file can add a new version but never change a committed one.
package bootstrap

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"

	"github.com/mlimaops/teagrade-backend/internal/data/repos"
	types "github.com/mlimaops/teagrade-backend/internal/domain"
	"github.com/mlimaops/teagrade-backend/internal/grading"
	pkgerrors "github.com/mlimaops/teagrade-backend/internal/pkg/errors"
	"github.com/mlimaops/teagrade-backend/internal/platform/dbctx"
	"github.com/mlimaops/teagrade-backend/internal/platform/logger"
)

type Seeder struct {
	log     *logger.Logger
	models  repos.GradingModelRepo
	sources repos.SourceConfigRepo
}

func NewSeeder(baseLog *logger.Logger, models repos.GradingModelRepo, sources repos.SourceConfigRepo) *Seeder {
	return &Seeder{
		log:     baseLog.With("service", "Seeder"),
		models:  models,
		sources: sources,
	}
}

// SeedGradingModels loads every model file under dir and inserts versions
// that are not yet present. Existing versions are left untouched.
func (s *Seeder) SeedGradingModels(dbc dbctx.Context, dir string) error {
	models, err := grading.LoadModelDir(dir)
	if err != nil {
		return err
	}

	var inserted int
	for _, m := range models {
		row, err := modelRow(m)
		if err != nil {
			return err
		}
		if err := s.models.Insert(dbc, row); err != nil {
			if errors.Is(err, pkgerrors.ErrConflict) {
				s.log.Debug("grading model version already present",
					"model_id", m.ID, "version", m.Version)
				continue
			}
			return fmt.Errorf("seed grading model %s v%d: %w", m.ID, m.Version, err)
		}
		inserted++
	}
	s.log.Info("grading models seeded", "loaded", len(models), "inserted", inserted)
	return nil
}

func modelRow(m *grading.Model) (*types.GradingModel, error) {
	labels, err := json.Marshal(m.Labels)
	if err != nil {
		return nil, fmt.Errorf("marshal labels for %s v%d: %w", m.ID, m.Version, err)
	}
	rules, err := json.Marshal(m.Rules)
	if err != nil {
		return nil, fmt.Errorf("marshal rules for %s v%d: %w", m.ID, m.Version, err)
	}
	return &types.GradingModel{
		ID:      uuid.New(),
		ModelID: m.ID,
		Version: m.Version,
		Labels:  datatypes.JSON(labels),
		Rules:   datatypes.JSON(rules),
	}, nil
}

// sourceSeed is the YAML shape of one source configuration.
type sourceSeed struct {
	SourceID     string `yaml:"source_id"`
	Processor    string `yaml:"processor"`
	Enabled      *bool  `yaml:"enabled"`
	GradingModel *struct {
		ID      string `yaml:"id"`
		Version int    `yaml:"version"`
	} `yaml:"grading_model"`
	OnNoMatch          string   `yaml:"on_no_match"`
	RequiredAttributes []string `yaml:"required_attributes"`
}

type sourceSeedFile struct {
	Sources []sourceSeed `yaml:"sources"`
}

// SeedSourceConfigs upserts source configurations from a YAML file. Unlike
// grading models, source configs are mutable and the seed file wins.
func (s *Seeder) SeedSourceConfigs(dbc dbctx.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read source seed file: %w", err)
	}
	configs, err := ParseSourceSeeds(raw)
	if err != nil {
		return err
	}
	for _, cfg := range configs {
		if err := s.sources.Upsert(dbc, cfg); err != nil {
			return fmt.Errorf("seed source %q: %w", cfg.SourceID, err)
		}
	}
	s.log.Info("source configs seeded", "count", len(configs))
	return nil
}

// ParseSourceSeeds decodes and validates the source seed YAML.
func ParseSourceSeeds(raw []byte) ([]*types.SourceConfig, error) {
	var file sourceSeedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse source seed file: %w", err)
	}
	if len(file.Sources) == 0 {
		return nil, fmt.Errorf("source seed file declares no sources")
	}

	seen := make(map[string]bool, len(file.Sources))
	out := make([]*types.SourceConfig, 0, len(file.Sources))
	for i, seed := range file.Sources {
		sourceID := strings.TrimSpace(seed.SourceID)
		if sourceID == "" {
			return nil, fmt.Errorf("source seed %d: missing source_id", i)
		}
		if seen[sourceID] {
			return nil, fmt.Errorf("source seed %d: duplicate source_id %q", i, sourceID)
		}
		seen[sourceID] = true

		processor := types.ProcessorType(seed.Processor)
		switch processor {
		case types.ProcessorDirect, types.ProcessorArchive, types.ProcessorPreExtracted:
		default:
			return nil, fmt.Errorf("source %q: unknown processor %q", sourceID, seed.Processor)
		}

		cfg := &types.SourceConfig{
			ID:        uuid.New(),
			SourceID:  sourceID,
			Processor: processor,
			Enabled:   true,
		}
		if seed.Enabled != nil {
			cfg.Enabled = *seed.Enabled
		}

		if seed.GradingModel != nil {
			if strings.TrimSpace(seed.GradingModel.ID) == "" || seed.GradingModel.Version < 1 {
				return nil, fmt.Errorf("source %q: grading_model needs id and version >= 1", sourceID)
			}
			modelID := seed.GradingModel.ID
			version := seed.GradingModel.Version
			cfg.GradingModelID = &modelID
			cfg.GradingModelVersion = &version

			policy := types.NoMatchPolicy(seed.OnNoMatch)
			if policy != types.NoMatchFail && policy != types.NoMatchUnclassified {
				return nil, fmt.Errorf("source %q: grading requires on_no_match of fail or unclassified", sourceID)
			}
			cfg.OnNoMatch = policy
		} else if seed.OnNoMatch != "" {
			return nil, fmt.Errorf("source %q: on_no_match set without a grading_model", sourceID)
		}

		if len(seed.RequiredAttributes) > 0 {
			required, err := json.Marshal(seed.RequiredAttributes)
			if err != nil {
				return nil, fmt.Errorf("source %q: marshal required_attributes: %w", sourceID, err)
			}
			cfg.RequiredAttributes = datatypes.JSON(required)
		}
		out = append(out, cfg)
	}
	return out, nil
}
