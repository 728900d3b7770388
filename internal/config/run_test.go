package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/rssi-distance/internal/classifier"
	"github.com/banshee-data/rssi-distance/internal/dataset"
	"github.com/banshee-data/rssi-distance/internal/fsutil"
	"github.com/banshee-data/rssi-distance/internal/kde"
	"github.com/banshee-data/rssi-distance/internal/search"
)

func ptr[T any](v T) *T { return &v }

func TestDefaultsFileMatchesGetters(t *testing.T) {
	file := MustLoadDefaultConfig()
	empty := &RunConfig{}

	checks := []struct {
		name      string
		got, want any
	}{
		{"data_glob", file.GetDataGlob(), empty.GetDataGlob()},
		{"drop_columns", file.GetDropColumns(), empty.GetDropColumns()},
		{"binner", file.GetBinner(), empty.GetBinner()},
		{"sample_size", file.GetSampleSize(), empty.GetSampleSize()},
		{"seed", file.GetSeed(), empty.GetSeed()},
		{"kernel", file.GetKernel(), empty.GetKernel()},
		{"prior", file.GetPrior(), empty.GetPrior()},
		{"bandwidths", file.GetBandwidths(), empty.GetBandwidths()},
		{"per_class", file.GetPerClass(), empty.GetPerClass()},
		{"folds", file.GetFolds(), empty.GetFolds()},
		{"stratify", file.GetStratify(), empty.GetStratify()},
		{"shuffle", file.GetShuffle(), empty.GetShuffle()},
		{"workers", file.GetWorkers(), empty.GetWorkers()},
		{"model_path", file.GetModelPath(), empty.GetModelPath()},
	}
	for _, c := range checks {
		if diff := cmp.Diff(c.want, c.got); diff != "" {
			t.Errorf("%s: defaults file differs from getter default (-getter +file):\n%s", c.name, diff)
		}
	}
}

func TestEmptyConfigDefaults(t *testing.T) {
	cfg := &RunConfig{}

	if cfg.GetKernel() != kde.Gaussian {
		t.Errorf("GetKernel() = %q, want gaussian", cfg.GetKernel())
	}
	if cfg.GetPrior() != classifier.PriorTraining {
		t.Errorf("GetPrior() = %q, want training", cfg.GetPrior())
	}
	if cfg.GetSampleSize() != 10000 {
		t.Errorf("GetSampleSize() = %d, want 10000", cfg.GetSampleSize())
	}
	if cfg.GetFolds() != search.DefaultFolds {
		t.Errorf("GetFolds() = %d, want %d", cfg.GetFolds(), search.DefaultFolds)
	}
	if diff := cmp.Diff(dataset.DefaultDropColumns, cfg.GetDropColumns()); diff != "" {
		t.Errorf("GetDropColumns() mismatch:\n%s", diff)
	}
	if cfg.GetDBPath() != "" || cfg.GetChartPath() != "" || cfg.GetMetricsTextfile() != "" {
		t.Error("optional outputs should default to disabled")
	}
	if got := cfg.GetBinnerFunc()(1.5); got != 1 {
		t.Errorf("default binner(1.5) = %d, want 1", got)
	}

	grid, err := cfg.Grid(2)
	if err != nil {
		t.Fatalf("Grid failed: %v", err)
	}
	if len(grid.Dims) != 1 || len(grid.Dims[0]) != 100 {
		t.Errorf("default grid should be one dimension of 100 values, got %d dims", len(grid.Dims))
	}
}

func TestLoadRunConfigFS(t *testing.T) {
	testCases := []struct {
		name string
		path string
		body string
	}{
		{
			name: "json",
			path: "/cfg/run.json",
			body: `{"sample_size": 300, "kernel": "epanechnikov", "per_class": true, "bandwidths": "0.5,1", "drop_columns": ["ADDRESS"]}`,
		},
		{
			name: "yaml",
			path: "/cfg/run.yaml",
			body: "sample_size: 300\nkernel: epanechnikov\nper_class: true\nbandwidths: \"0.5,1\"\ndrop_columns:\n  - ADDRESS\n",
		},
		{
			name: "yml",
			path: "/cfg/run.yml",
			body: "sample_size: 300\nkernel: epanechnikov\nper_class: true\nbandwidths: 0.5,1\ndrop_columns: [ADDRESS]\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mfs := fsutil.NewMemoryFileSystem()
			if err := mfs.WriteFile(tc.path, []byte(tc.body), 0644); err != nil {
				t.Fatal(err)
			}

			cfg, err := LoadRunConfigFS(mfs, tc.path)
			if err != nil {
				t.Fatalf("LoadRunConfigFS failed: %v", err)
			}
			if cfg.GetSampleSize() != 300 {
				t.Errorf("sample size = %d, want 300", cfg.GetSampleSize())
			}
			if cfg.GetKernel() != kde.Epanechnikov {
				t.Errorf("kernel = %q, want epanechnikov", cfg.GetKernel())
			}
			if diff := cmp.Diff([]string{"ADDRESS"}, cfg.GetDropColumns()); diff != "" {
				t.Errorf("drop columns mismatch:\n%s", diff)
			}
			// Unset fields keep their defaults.
			if cfg.GetSeed() != 1 {
				t.Errorf("seed = %d, want default 1", cfg.GetSeed())
			}

			grid, err := cfg.Grid(3)
			if err != nil {
				t.Fatalf("Grid failed: %v", err)
			}
			if grid.Size() != 8 {
				t.Errorf("per-class grid size = %d, want 8", grid.Size())
			}
		})
	}
}

func TestLoadRunConfigFS_EmptyYAML(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	if err := mfs.WriteFile("/empty.yaml", nil, 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadRunConfigFS(mfs, "/empty.yaml")
	if err != nil {
		t.Fatalf("empty YAML should load: %v", err)
	}
	if cfg.GetBinner() != "near-far" {
		t.Errorf("binner = %q, want near-far", cfg.GetBinner())
	}
}

func TestLoadRunConfigFS_Errors(t *testing.T) {
	testCases := []struct {
		name string
		path string
		body string
	}{
		{"extension", "/run.toml", `sample_size = 3`},
		{"unknown json field", "/run.json", `{"sample_sise": 3}`},
		{"unknown yaml field", "/run.yaml", "sample_sise: 3\n"},
		{"malformed json", "/run.json", `{"sample_size":`},
		{"sample size", "/run.json", `{"sample_size": 0}`},
		{"binner", "/run.json", `{"binner": "ceil"}`},
		{"kernel", "/run.json", `{"kernel": "cosine"}`},
		{"prior", "/run.json", `{"prior": "posterior"}`},
		{"bandwidths", "/run.json", `{"bandwidths": "log:0:2"}`},
		{"empty bandwidths", "/run.json", `{"bandwidths": ","}`},
		{"folds", "/run.json", `{"folds": 1}`},
		{"workers", "/run.yaml", "workers: -2\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mfs := fsutil.NewMemoryFileSystem()
			if err := mfs.WriteFile(tc.path, []byte(tc.body), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadRunConfigFS(mfs, tc.path); err == nil {
				t.Errorf("expected error for %s", tc.name)
			}
		})
	}

	if _, err := LoadRunConfigFS(fsutil.NewMemoryFileSystem(), "/missing.json"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadRunConfig_TooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.json")
	body := `{"data_glob": "` + strings.Repeat("x", maxFileSize) + `"}`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadRunConfig(path)
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected size error, got %v", err)
	}
}

func TestMerge(t *testing.T) {
	base := &RunConfig{SampleSize: ptr(100), Kernel: ptr("tophat"), DropColumns: []string{"ADDRESS"}}
	override := &RunConfig{SampleSize: ptr(50), DBPath: ptr("runs.db")}

	base.Merge(override)
	base.Merge(nil)

	if base.GetSampleSize() != 50 {
		t.Errorf("sample size = %d, want 50", base.GetSampleSize())
	}
	if base.GetKernel() != kde.Tophat {
		t.Errorf("kernel = %q, want tophat", base.GetKernel())
	}
	if base.GetDBPath() != "runs.db" {
		t.Errorf("db path = %q, want runs.db", base.GetDBPath())
	}
	if diff := cmp.Diff([]string{"ADDRESS"}, base.GetDropColumns()); diff != "" {
		t.Errorf("drop columns changed:\n%s", diff)
	}

	// Merged values are copies.
	*override.SampleSize = 7
	if base.GetSampleSize() != 50 {
		t.Error("merge should copy values, not alias pointers")
	}
}

func TestFoldOptions(t *testing.T) {
	cfg := &RunConfig{Shuffle: ptr(true), Seed: ptr(int64(42))}
	opts := cfg.FoldOptions()
	want := search.FoldOptions{Shuffle: true, Stratify: true, Seed: 42}
	if diff := cmp.Diff(want, opts); diff != "" {
		t.Errorf("FoldOptions mismatch:\n%s", diff)
	}
}
