// Package config loads the settings of a training run from JSON or YAML.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/rssi-distance/internal/binning"
	"github.com/banshee-data/rssi-distance/internal/classifier"
	"github.com/banshee-data/rssi-distance/internal/dataset"
	"github.com/banshee-data/rssi-distance/internal/fsutil"
	"github.com/banshee-data/rssi-distance/internal/kde"
	"github.com/banshee-data/rssi-distance/internal/search"
)

// DefaultConfigPath is the canonical run defaults file. Its values match
// the Get* fallbacks below.
const DefaultConfigPath = "config/run.defaults.json"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// RunConfig describes one training run. Every field is optional; unset
// fields fall back to the defaults returned by the Get* methods, so partial
// files are safe.
type RunConfig struct {
	// Dataset
	DataGlob    *string  `json:"data_glob,omitempty" yaml:"data_glob,omitempty"`
	DropColumns []string `json:"drop_columns,omitempty" yaml:"drop_columns,omitempty"`
	Binner      *string  `json:"binner,omitempty" yaml:"binner,omitempty"`
	SampleSize  *int     `json:"sample_size,omitempty" yaml:"sample_size,omitempty"`
	Seed        *int64   `json:"seed,omitempty" yaml:"seed,omitempty"`

	// Model
	Kernel *string `json:"kernel,omitempty" yaml:"kernel,omitempty"`
	Prior  *string `json:"prior,omitempty" yaml:"prior,omitempty"`

	// Search
	Bandwidths *string `json:"bandwidths,omitempty" yaml:"bandwidths,omitempty"` // see search.ParseValues
	PerClass   *bool   `json:"per_class,omitempty" yaml:"per_class,omitempty"`
	Folds      *int    `json:"folds,omitempty" yaml:"folds,omitempty"`
	Stratify   *bool   `json:"stratify,omitempty" yaml:"stratify,omitempty"`
	Shuffle    *bool   `json:"shuffle,omitempty" yaml:"shuffle,omitempty"`
	Workers    *int    `json:"workers,omitempty" yaml:"workers,omitempty"`

	// Outputs
	DBPath          *string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	ModelPath       *string `json:"model_path,omitempty" yaml:"model_path,omitempty"`
	ChartPath       *string `json:"chart_path,omitempty" yaml:"chart_path,omitempty"`
	MetricsTextfile *string `json:"metrics_textfile,omitempty" yaml:"metrics_textfile,omitempty"`
}

// LoadRunConfig loads a RunConfig from a .json, .yaml or .yml file on disk.
func LoadRunConfig(path string) (*RunConfig, error) {
	return LoadRunConfigFS(fsutil.OSFileSystem{}, path)
}

// LoadRunConfigFS loads a RunConfig from fsys. Unknown keys are rejected so
// typos do not silently fall back to defaults.
func LoadRunConfigFS(fsys fsutil.FileSystem, path string) (*RunConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	info, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &RunConfig{}
	if ext == ".json" {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents up to the repository root. It panics if the
// file cannot be loaded and is intended for tests.
func MustLoadDefaultConfig() *RunConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadRunConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Merge overwrites c with every field set in o.
func (c *RunConfig) Merge(o *RunConfig) {
	if o == nil {
		return
	}
	mergePtr(&c.DataGlob, o.DataGlob)
	if o.DropColumns != nil {
		c.DropColumns = append([]string(nil), o.DropColumns...)
	}
	mergePtr(&c.Binner, o.Binner)
	mergePtr(&c.SampleSize, o.SampleSize)
	mergePtr(&c.Seed, o.Seed)
	mergePtr(&c.Kernel, o.Kernel)
	mergePtr(&c.Prior, o.Prior)
	mergePtr(&c.Bandwidths, o.Bandwidths)
	mergePtr(&c.PerClass, o.PerClass)
	mergePtr(&c.Folds, o.Folds)
	mergePtr(&c.Stratify, o.Stratify)
	mergePtr(&c.Shuffle, o.Shuffle)
	mergePtr(&c.Workers, o.Workers)
	mergePtr(&c.DBPath, o.DBPath)
	mergePtr(&c.ModelPath, o.ModelPath)
	mergePtr(&c.ChartPath, o.ChartPath)
	mergePtr(&c.MetricsTextfile, o.MetricsTextfile)
}

func mergePtr[T any](dst **T, src *T) {
	if src != nil {
		v := *src
		*dst = &v
	}
}

// Validate checks every set field.
func (c *RunConfig) Validate() error {
	if c.Binner != nil {
		if _, err := binning.ByName(*c.Binner); err != nil {
			return err
		}
	}
	if c.SampleSize != nil && *c.SampleSize <= 0 {
		return fmt.Errorf("sample_size must be positive, got %d", *c.SampleSize)
	}
	if c.Kernel != nil {
		if _, err := kde.ParseKernel(*c.Kernel); err != nil {
			return err
		}
	}
	if c.Prior != nil {
		if _, err := classifier.ParsePriorSource(*c.Prior); err != nil {
			return err
		}
	}
	if c.Bandwidths != nil {
		values, err := search.ParseValues(*c.Bandwidths)
		if err != nil {
			return fmt.Errorf("invalid bandwidths %q: %w", *c.Bandwidths, err)
		}
		if len(values) == 0 {
			return fmt.Errorf("bandwidths must list at least one value")
		}
	}
	if c.Folds != nil && *c.Folds < 2 {
		return fmt.Errorf("folds must be at least 2, got %d", *c.Folds)
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	return nil
}

// GetDataGlob returns the measurement file pattern.
func (c *RunConfig) GetDataGlob() string {
	if c.DataGlob == nil {
		return "data/trial*/*.csv"
	}
	return *c.DataGlob
}

// GetDropColumns returns the columns removed before parsing.
func (c *RunConfig) GetDropColumns() []string {
	if c.DropColumns == nil {
		return dataset.DefaultDropColumns
	}
	return c.DropColumns
}

// GetBinner returns the binner name.
func (c *RunConfig) GetBinner() string {
	if c.Binner == nil {
		return "near-far"
	}
	return *c.Binner
}

// GetBinnerFunc resolves GetBinner. Validate guarantees it succeeds.
func (c *RunConfig) GetBinnerFunc() binning.Func {
	f, err := binning.ByName(c.GetBinner())
	if err != nil {
		return binning.BinCategorize
	}
	return f
}

// GetSampleSize returns the per-class sample size.
func (c *RunConfig) GetSampleSize() int {
	if c.SampleSize == nil {
		return 10000
	}
	return *c.SampleSize
}

// GetSeed returns the sampling and shuffling seed.
func (c *RunConfig) GetSeed() int64 {
	if c.Seed == nil {
		return 1
	}
	return *c.Seed
}

// GetKernel returns the density kernel.
func (c *RunConfig) GetKernel() kde.Kernel {
	if c.Kernel == nil {
		return kde.Gaussian
	}
	k, err := kde.ParseKernel(*c.Kernel)
	if err != nil {
		return kde.Gaussian
	}
	return k
}

// GetPrior returns the prior source.
func (c *RunConfig) GetPrior() classifier.PriorSource {
	if c.Prior == nil {
		return classifier.PriorTraining
	}
	p, err := classifier.ParsePriorSource(*c.Prior)
	if err != nil {
		return classifier.PriorTraining
	}
	return p
}

// GetBandwidths returns the candidate bandwidth values expression.
func (c *RunConfig) GetBandwidths() string {
	if c.Bandwidths == nil {
		return "log:0:2:100"
	}
	return *c.Bandwidths
}

// GetPerClass reports whether each class gets its own bandwidth dimension.
func (c *RunConfig) GetPerClass() bool {
	if c.PerClass == nil {
		return false
	}
	return *c.PerClass
}

// GetFolds returns the number of cross-validation folds.
func (c *RunConfig) GetFolds() int {
	if c.Folds == nil {
		return search.DefaultFolds
	}
	return *c.Folds
}

// GetStratify reports whether folds are stratified by label.
func (c *RunConfig) GetStratify() bool {
	if c.Stratify == nil {
		return true
	}
	return *c.Stratify
}

// GetShuffle reports whether rows are shuffled before fold assignment.
func (c *RunConfig) GetShuffle() bool {
	if c.Shuffle == nil {
		return false
	}
	return *c.Shuffle
}

// GetWorkers returns the search worker count; 0 means GOMAXPROCS.
func (c *RunConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// GetDBPath returns the run database path; empty disables it.
func (c *RunConfig) GetDBPath() string { return deref(c.DBPath) }

// GetModelPath returns the model output path.
func (c *RunConfig) GetModelPath() string {
	if c.ModelPath == nil {
		return "model.gob.gz"
	}
	return *c.ModelPath
}

// GetChartPath returns the HTML chart path; empty disables it.
func (c *RunConfig) GetChartPath() string { return deref(c.ChartPath) }

// GetMetricsTextfile returns the Prometheus textfile path; empty disables it.
func (c *RunConfig) GetMetricsTextfile() string { return deref(c.MetricsTextfile) }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Grid builds the search grid for a dataset with k classes.
func (c *RunConfig) Grid(k int) (search.Grid, error) {
	values, err := search.ParseValues(c.GetBandwidths())
	if err != nil {
		return search.Grid{}, err
	}
	if c.GetPerClass() {
		return search.PerClassGrid(values, k), nil
	}
	return search.SharedGrid(values), nil
}

// FoldOptions returns the cross-validation fold settings.
func (c *RunConfig) FoldOptions() search.FoldOptions {
	return search.FoldOptions{
		Shuffle:  c.GetShuffle(),
		Stratify: c.GetStratify(),
		Seed:     c.GetSeed(),
	}
}
