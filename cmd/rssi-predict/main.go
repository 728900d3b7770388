// Command rssi-predict labels RSSI measurements with a trained distance
// classifier and writes the predicted class and class probabilities as CSV.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/rssi-distance/internal/binning"
	"github.com/banshee-data/rssi-distance/internal/classifier"
	"github.com/banshee-data/rssi-distance/internal/dataset"
	"github.com/banshee-data/rssi-distance/internal/fsutil"
	"github.com/banshee-data/rssi-distance/internal/monitoring"
	"github.com/banshee-data/rssi-distance/internal/store"
	"github.com/banshee-data/rssi-distance/internal/version"
)

var (
	modelPath   = flag.String("model", "", "Model file written by rssi-train")
	dbPath      = flag.String("db", "", "Load the model from this run store instead of -model")
	runID       = flag.String("run", "", "Run ID to load from -db (default: latest)")
	inGlob      = flag.String("in", "", "Measurement CSV pattern")
	outPath     = flag.String("out", "", "Output CSV (default: stdout)")
	drop        = flag.String("drop", strings.Join(dataset.DefaultDropColumns, ","), "Comma-separated columns to ignore")
	binnerName  = flag.String("binner", "", "Binner used to score rows that carry DISTANCE (default: the model's)")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// fallbackBinner scores models saved before the binner was recorded.
const fallbackBinner = "near-far"

// predictOptions holds the resolved inputs of one prediction job.
type predictOptions struct {
	Glob    string
	Drop    []string
	Binner  binning.Func
	OutPath string
}

// predictStats summarises the rows that carried a measured distance.
type predictStats struct {
	Labelled int
	Accuracy float64
}

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Println(version.String("rssi-predict"))
		return
	}
	if *inGlob == "" {
		log.Fatal("-in is required")
	}

	fsys := fsutil.OSFileSystem{}
	model, err := loadModel(context.Background(), fsys, *modelPath, *dbPath, *runID)
	if err != nil {
		log.Fatal(err)
	}
	binner, err := resolveBinner(*binnerName, model)
	if err != nil {
		log.Fatal(err)
	}

	opts := predictOptions{Glob: *inGlob, Drop: splitList(*drop), Binner: binner, OutPath: *outPath}
	if err := run(fsys, model, opts, os.Stdout); err != nil {
		log.Fatalf("prediction failed: %v", err)
	}
}

// resolveBinner returns the binner for scoring labelled rows. An empty name
// selects the binner the model was trained with; an explicit name must
// agree with it.
func resolveBinner(name string, model *classifier.KDEClassifier) (binning.Func, error) {
	switch {
	case name == "" && model.Binner == "":
		monitoring.Logf("[predict] model does not record its binner, using %s", fallbackBinner)
		name = fallbackBinner
	case name == "":
		name = model.Binner
	case model.Binner != "" && name != model.Binner:
		return nil, fmt.Errorf("-binner %s does not match the %s binner the model was trained with", name, model.Binner)
	}
	return binning.ByName(name)
}

// run writes predictions to opts.OutPath, or to stdout when it is empty.
func run(fsys fsutil.FileSystem, model *classifier.KDEClassifier, opts predictOptions, stdout io.Writer) error {
	if opts.OutPath == "" {
		_, err := predict(fsys, model, opts, stdout)
		return err
	}
	w, err := fsys.Create(opts.OutPath)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	if _, err := predict(fsys, model, opts, w); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// loadModel reads the model from a file or, when dbPath is set, from the
// run store.
func loadModel(ctx context.Context, fsys fsutil.FileSystem, modelPath, dbPath, runID string) (*classifier.KDEClassifier, error) {
	switch {
	case modelPath != "" && dbPath != "":
		return nil, errors.New("use either -model or -db, not both")
	case modelPath != "":
		return classifier.Load(fsys, modelPath)
	case dbPath == "":
		return nil, errors.New("-model or -db is required")
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	var blob []byte
	if runID == "" {
		runID, blob, err = st.LatestModel(ctx)
	} else {
		blob, err = st.LoadModel(ctx, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading model from %s: %w", dbPath, err)
	}
	c := &classifier.KDEClassifier{}
	if err := c.UnmarshalBinary(blob); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	monitoring.Logf("[predict] using model of run %s", runID)
	return c, nil
}

// predict writes one CSV record per input row: its source, row number,
// measured distance (empty when absent), predicted label and one
// probability per class. Rows with a distance are scored against
// opts.Binner.
func predict(fsys fsutil.FileSystem, model *classifier.KDEClassifier, opts predictOptions, out io.Writer) (*predictStats, error) {
	tables, err := dataset.LoadGlob(fsys, opts.Glob, opts.Drop)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("no input files match %s", opts.Glob)
	}

	classes := model.Classes()
	w := csv.NewWriter(out)
	header := []string{"source", "row", dataset.ColumnDistance, "label"}
	for _, c := range classes {
		header = append(header, "p_"+strconv.Itoa(c))
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	var want, got []int
	for _, t := range tables {
		X, err := features(t, model.FeatureNames)
		if err != nil {
			return nil, err
		}
		if t.Len() == 0 {
			continue
		}
		proba, err := model.PredictProba(X)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t.Source, err)
		}
		labels, err := model.Predict(X)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t.Source, err)
		}

		distIdx := t.Index(dataset.ColumnDistance)
		for i, r := range t.Rows {
			dist := ""
			if distIdx >= 0 {
				dist = strconv.FormatFloat(r[distIdx], 'g', -1, 64)
				want = append(want, opts.Binner(r[distIdx]))
				got = append(got, labels[i])
			}
			rec := []string{t.Source, strconv.Itoa(i + 1), dist, strconv.Itoa(labels[i])}
			for j := range classes {
				rec = append(rec, strconv.FormatFloat(proba.At(i, j), 'f', 6, 64))
			}
			if err := w.Write(rec); err != nil {
				return nil, err
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	stats := &predictStats{Labelled: len(want)}
	if len(want) > 0 {
		stats.Accuracy = classifier.Accuracy(want, got)
		monitoring.Logf("[predict] accuracy on %d labelled rows: %.4f", stats.Labelled, stats.Accuracy)
	}
	return stats, nil
}

// features selects the model's feature columns from t in model order. A
// model saved without names uses every column except DISTANCE.
func features(t *dataset.Table, names []string) (*mat.Dense, error) {
	if len(names) == 0 {
		for _, c := range t.Columns {
			if c != dataset.ColumnDistance {
				names = append(names, c)
			}
		}
	}
	idx := make([]int, len(names))
	for j, n := range names {
		idx[j] = t.Index(n)
		if idx[j] < 0 {
			return nil, &dataset.SchemaError{Source: t.Source, Column: n, Reason: "missing model feature"}
		}
	}
	if t.Len() == 0 {
		return nil, nil
	}
	X := mat.NewDense(t.Len(), len(idx), nil)
	for i, r := range t.Rows {
		for j, k := range idx {
			X.Set(i, j, r[k])
		}
	}
	return X, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
