// Command rssi-train builds a balanced dataset from RSSI measurement logs,
// searches kernel bandwidths by cross-validation and saves the best model.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/banshee-data/rssi-distance/internal/classifier"
	"github.com/banshee-data/rssi-distance/internal/config"
	"github.com/banshee-data/rssi-distance/internal/dataset"
	"github.com/banshee-data/rssi-distance/internal/fsutil"
	"github.com/banshee-data/rssi-distance/internal/monitoring"
	"github.com/banshee-data/rssi-distance/internal/report"
	"github.com/banshee-data/rssi-distance/internal/search"
	"github.com/banshee-data/rssi-distance/internal/store"
	"github.com/banshee-data/rssi-distance/internal/version"
)

type options struct {
	configPath  string
	showVersion bool
	verbose     bool
	overrides   *config.RunConfig
}

// parseFlags reads command-line flags. Only flags given explicitly end up
// in overrides, so they replace config file values without masking them
// with flag defaults.
func parseFlags(args []string) (*options, error) {
	fs := flag.NewFlagSet("rssi-train", flag.ContinueOnError)
	opts := &options{overrides: &config.RunConfig{}}
	fs.StringVar(&opts.configPath, "config", "", "Run config file (.json, .yaml or .yml)")
	fs.BoolVar(&opts.showVersion, "version", false, "Print version and exit")
	fs.BoolVar(&opts.verbose, "v", false, "Log every trial")

	glob := fs.String("glob", "", "Measurement CSV pattern")
	binner := fs.String("binner", "", "Distance binner: near-far or floor")
	sampleSize := fs.Int("sample-size", 0, "Rows drawn per class")
	seed := fs.Int64("seed", 0, "Sampling and shuffling seed")
	kernel := fs.String("kernel", "", "Density kernel")
	prior := fs.String("prior", "", "Class prior: training, counts or uniform")
	bandwidths := fs.String("bandwidths", "", "Bandwidth values, e.g. log:0:2:100 or 0.5,1,2")
	perClass := fs.Bool("per-class", false, "Search one bandwidth per class")
	folds := fs.Int("folds", 0, "Cross-validation folds")
	workers := fs.Int("workers", 0, "Concurrent fold evaluations (0 = GOMAXPROCS)")
	dbPath := fs.String("db", "", "SQLite run store")
	modelPath := fs.String("model", "", "Output model file")
	chartPath := fs.String("chart", "", "Output accuracy chart (HTML)")
	metricsTextfile := fs.String("metrics-textfile", "", "Write search metrics in Prometheus text format")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	o := opts.overrides
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "glob":
			o.DataGlob = glob
		case "binner":
			o.Binner = binner
		case "sample-size":
			o.SampleSize = sampleSize
		case "seed":
			o.Seed = seed
		case "kernel":
			o.Kernel = kernel
		case "prior":
			o.Prior = prior
		case "bandwidths":
			o.Bandwidths = bandwidths
		case "per-class":
			o.PerClass = perClass
		case "folds":
			o.Folds = folds
		case "workers":
			o.Workers = workers
		case "db":
			o.DBPath = dbPath
		case "model":
			o.ModelPath = modelPath
		case "chart":
			o.ChartPath = chartPath
		case "metrics-textfile":
			o.MetricsTextfile = metricsTextfile
		}
	})
	return opts, nil
}

// loadConfig merges the config file, if any, with the flag overrides.
func loadConfig(fsys fsutil.FileSystem, opts *options) (*config.RunConfig, error) {
	cfg := &config.RunConfig{}
	if opts.configPath != "" {
		loaded, err := config.LoadRunConfigFS(fsys, opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.Merge(opts.overrides)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if err == flag.ErrHelp {
			return
		}
		log.Fatal(err)
	}
	if opts.showVersion {
		fmt.Println(version.String("rssi-train"))
		return
	}
	if opts.verbose {
		monitoring.SetDiagLogger(log.Printf)
	}

	fsys := fsutil.OSFileSystem{}
	cfg, err := loadConfig(fsys, opts)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := train(ctx, fsys, cfg, os.Stdout); err != nil {
		log.Fatalf("training failed: %v", err)
	}
}

// train runs one complete training job described by cfg and prints the
// run summary to out.
func train(ctx context.Context, fsys fsutil.FileSystem, cfg *config.RunConfig, out io.Writer) error {
	b := &dataset.Builder{
		FS:          fsys,
		DropColumns: cfg.GetDropColumns(),
		Binner:      cfg.GetBinnerFunc(),
		SampleSize:  cfg.GetSampleSize(),
		Seed:        cfg.GetSeed(),
	}
	ds, err := b.Build(cfg.GetDataGlob())
	if err != nil {
		return fmt.Errorf("building dataset: %w", err)
	}

	grid, err := cfg.Grid(len(ds.ClassCounts))
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	metrics, err := search.NewMetrics(reg)
	if err != nil {
		return err
	}

	var st *store.Store
	runID := store.NewRunID()
	if path := cfg.GetDBPath(); path != "" {
		st, err = store.Open(path)
		if err != nil {
			return err
		}
		defer st.Close()

		cfgJSON, err := json.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("encoding config: %w", err)
		}
		rows, cols := ds.Features.Dims()
		if _, err := st.InsertRun(ctx, store.Run{
			ID:       runID,
			Config:   cfgJSON,
			Kernel:   string(cfg.GetKernel()),
			Prior:    string(cfg.GetPrior()),
			Folds:    cfg.GetFolds(),
			Rows:     rows,
			Features: cols,
		}); err != nil {
			return err
		}
	}

	mc := search.ModelConfig{Kernel: cfg.GetKernel(), Prior: cfg.GetPrior(), ClassCounts: ds.ClassCounts}
	foldOpts := cfg.FoldOptions()
	s := &search.Searcher{
		ModelConfig: mc,
		Folds:       cfg.GetFolds(),
		FoldOptions: &foldOpts,
		Workers:     cfg.GetWorkers(),
		Metrics:     metrics,
	}
	res, err := s.Search(ctx, ds.Features, ds.Labels, grid)
	if err != nil {
		if st != nil {
			if ferr := st.FailRun(context.Background(), runID, err); ferr != nil {
				monitoring.Logf("[train] failed to record run failure: %v", ferr)
			}
		}
		return err
	}

	best := res.Best()
	model := mc.New(best.Bandwidths)
	model.FeatureNames = ds.FeatureNames
	model.Binner = cfg.GetBinner()
	if err := model.Fit(ds.Features, ds.Labels); err != nil {
		return fmt.Errorf("refitting best configuration: %w", err)
	}

	if path := cfg.GetModelPath(); path != "" {
		if err := classifier.Save(fsys, path, model); err != nil {
			return err
		}
		monitoring.Logf("[train] model saved to %s", path)
	}

	if st != nil {
		if err := st.CompleteRun(ctx, runID, res); err != nil {
			return err
		}
		blob, err := model.MarshalBinary()
		if err != nil {
			return err
		}
		if err := st.SaveModel(ctx, runID, model.Classes(), blob); err != nil {
			return err
		}
		monitoring.Logf("[train] run %s stored in %s", runID, cfg.GetDBPath())
	}

	if path := cfg.GetChartPath(); path != "" {
		if err := writeChart(fsys, path, res, cfg); err != nil {
			return err
		}
	}

	if path := cfg.GetMetricsTextfile(); path != "" {
		if err := writeMetrics(fsys, path, reg); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}

	return report.WriteSummary(out, report.Summary{RunID: runID, Dataset: ds, Result: res})
}

func writeChart(fsys fsutil.FileSystem, path string, res *search.Result, cfg *config.RunConfig) error {
	w, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("creating chart: %w", err)
	}
	subtitle := fmt.Sprintf("%s kernel, %s prior, %d folds", cfg.GetKernel(), cfg.GetPrior(), res.Folds)
	if err := report.WriteAccuracyChart(w, res, subtitle); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// writeMetrics writes every metric gathered from g to path in the
// node_exporter textfile format.
func writeMetrics(fsys fsutil.FileSystem, path string, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	w, err := fsys.Create(path)
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}
