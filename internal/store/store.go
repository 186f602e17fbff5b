// Package store persists project entities. A project is a directory tree
// with one YAML file per stackup and per feature; the engine packages never
// touch the filesystem themselves.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/gdtools/tolkit/pkg/feature"
	"github.com/gdtools/tolkit/pkg/stackup"
)

// Project subdirectories.
const (
	StackupDir = "tolerances/stackups"
	FeatureDir = "tolerances/features"
)

// Store reads and writes entities under a project root.
type Store struct {
	root string
	log  *zap.Logger
}

// Open binds a store to an existing project root. A nil logger disables
// logging.
func Open(root string, log *zap.Logger) (*Store, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("opening project %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("opening project %s: not a directory", root)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{root: root, log: log}, nil
}

// Root returns the project root path.
func (st *Store) Root() string {
	return st.root
}

// Init creates the project directory layout if missing.
func (st *Store) Init() error {
	for _, dir := range []string{StackupDir, FeatureDir} {
		if err := os.MkdirAll(filepath.Join(st.root, dir), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	st.log.Info("project layout ready", zap.String("root", st.root))
	return nil
}

// SaveStackup writes the stackup to <root>/tolerances/stackups/<id>.yaml.
func (st *Store) SaveStackup(s *stackup.Stackup) error {
	if s.ID == "" {
		return fmt.Errorf("saving stackup %q: empty id", s.Title)
	}
	path := filepath.Join(st.root, StackupDir, s.ID+".yaml")
	if err := writeYAML(path, s); err != nil {
		return fmt.Errorf("saving stackup %s: %w", s.ID, err)
	}
	st.log.Info("stackup saved", zap.String("id", s.ID), zap.String("path", path))
	return nil
}

// LoadStackups reads every stackup in the project, sorted by id.
func (st *Store) LoadStackups() ([]*stackup.Stackup, error) {
	paths, err := yamlFiles(filepath.Join(st.root, StackupDir))
	if err != nil {
		return nil, fmt.Errorf("listing stackups: %w", err)
	}
	out := make([]*stackup.Stackup, 0, len(paths))
	for _, path := range paths {
		var s stackup.Stackup
		if err := readYAML(path, &s); err != nil {
			st.log.Warn("skipping unreadable stackup", zap.String("path", path), zap.Error(err))
			continue
		}
		out = append(out, &s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// LoadStackup finds one stackup by exact id or unique id prefix.
func (st *Store) LoadStackup(id string) (*stackup.Stackup, error) {
	all, err := st.LoadStackups()
	if err != nil {
		return nil, err
	}
	var matches []*stackup.Stackup
	for _, s := range all {
		if s.ID == id {
			return s, nil
		}
		if strings.HasPrefix(s.ID, strings.ToUpper(id)) || strings.HasPrefix(s.ID, id) {
			matches = append(matches, s)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return nil, fmt.Errorf("stackup %q not found", id)
	default:
		return nil, fmt.Errorf("stackup id %q is ambiguous (%d matches)", id, len(matches))
	}
}

// SaveFeature writes the feature to <root>/tolerances/features/<id>.yaml.
func (st *Store) SaveFeature(f *feature.Feature) error {
	if f.ID == "" {
		return fmt.Errorf("saving feature %q: empty id", f.Title)
	}
	path := filepath.Join(st.root, FeatureDir, f.ID+".yaml")
	if err := writeYAML(path, f); err != nil {
		return fmt.Errorf("saving feature %s: %w", f.ID, err)
	}
	st.log.Info("feature saved", zap.String("id", f.ID))
	return nil
}

// LoadFeatures reads every feature in the project, keyed by id. A project
// without a feature directory yields an empty map; 3D analysis degrades to
// derived bounds.
func (st *Store) LoadFeatures() (map[string]*feature.Feature, error) {
	dir := filepath.Join(st.root, FeatureDir)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return map[string]*feature.Feature{}, nil
	}
	paths, err := yamlFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("listing features: %w", err)
	}
	out := make(map[string]*feature.Feature, len(paths))
	for _, path := range paths {
		var f feature.Feature
		if err := readYAML(path, &f); err != nil {
			st.log.Warn("skipping unreadable feature", zap.String("path", path), zap.Error(err))
			continue
		}
		out[f.ID] = &f
	}
	return out, nil
}

func yamlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ext := filepath.Ext(e.Name()); ext == ".yaml" || ext == ".yml" {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
