package grading

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadModelFile parses one grading model YAML file and validates it.
func LoadModelFile(path string) (*Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read grading model %s: %w", path, err)
	}
	var m Model
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse grading model %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}

// LoadModelDir loads every .yaml/.yml model file in dir, sorted by filename
// for deterministic seed order. Duplicate (model_id, version) pairs across
// files are an error; versions are immutable.
func LoadModelDir(dir string) ([]*Model, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read grading model dir %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	seen := make(map[string]string, len(files))
	models := make([]*Model, 0, len(files))
	for _, f := range files {
		m, err := LoadModelFile(f)
		if err != nil {
			return nil, err
		}
		key := fmt.Sprintf("%s@%d", m.ID, m.Version)
		if prev, dup := seen[key]; dup {
			return nil, fmt.Errorf("grading model %s declared in both %s and %s", key, prev, f)
		}
		seen[key] = f
		models = append(models, m)
	}
	return models, nil
}
