package classifier

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"io"
	"path/filepath"

	"github.com/banshee-data/rssi-distance/internal/fsutil"
	"github.com/banshee-data/rssi-distance/internal/kde"
)

// modelFormatVersion is bumped whenever modelBlob changes incompatibly.
const modelFormatVersion = 1

type modelBlob struct {
	Version    int
	Kernel     kde.Kernel
	Prior      PriorSource
	Bandwidths []float64
	Classes    []int
	LogPriors  []float64
	Features   int
	Names      []string
	Binner     string
	Models     []*kde.Density
}

// MarshalBinary encodes a fitted classifier as gzip-compressed gob.
func (c *KDEClassifier) MarshalBinary() ([]byte, error) {
	if c.state == nil {
		return nil, &StateError{Op: "marshal"}
	}
	blob := modelBlob{
		Version:    modelFormatVersion,
		Kernel:     c.Kernel,
		Prior:      c.Prior,
		Bandwidths: c.state.bandwidths,
		Classes:    c.state.classes,
		LogPriors:  c.state.logPriors,
		Features:   c.state.features,
		Names:      c.FeatureNames,
		Binner:     c.Binner,
		Models:     c.state.models,
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := gob.NewEncoder(gz).Encode(&blob); err != nil {
		gz.Close()
		return nil, fmt.Errorf("failed to encode model: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary replaces c with the fitted classifier encoded in data.
func (c *KDEClassifier) UnmarshalBinary(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty model blob")
	}
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	var blob modelBlob
	if err := gob.NewDecoder(gz).Decode(&blob); err != nil {
		return fmt.Errorf("failed to decode model: %w", err)
	}
	if blob.Version != modelFormatVersion {
		return fmt.Errorf("unsupported model format version %d", blob.Version)
	}
	k := len(blob.Classes)
	if k == 0 || len(blob.Models) != k || len(blob.LogPriors) != k || len(blob.Bandwidths) != k {
		return fmt.Errorf("corrupt model: %d classes, %d densities, %d priors, %d bandwidths",
			k, len(blob.Models), len(blob.LogPriors), len(blob.Bandwidths))
	}
	if len(blob.Names) > 0 && len(blob.Names) != blob.Features {
		return fmt.Errorf("corrupt model: %d feature names for %d features", len(blob.Names), blob.Features)
	}
	for i, m := range blob.Models {
		if m == nil || m.Samples == nil {
			return fmt.Errorf("corrupt model: density %d is empty", i)
		}
		if _, f := m.Dims(); f != blob.Features {
			return fmt.Errorf("corrupt model: density %d has %d features, want %d", i, f, blob.Features)
		}
	}

	*c = KDEClassifier{
		Bandwidths:   PerClass(blob.Bandwidths...),
		Kernel:       blob.Kernel,
		Prior:        blob.Prior,
		FeatureNames: blob.Names,
		Binner:       blob.Binner,
		state: &fitted{
			classes:    blob.Classes,
			models:     blob.Models,
			logPriors:  blob.LogPriors,
			bandwidths: blob.Bandwidths,
			features:   blob.Features,
		},
	}
	return nil
}

// Save writes the fitted classifier to path, creating parent directories.
func Save(fsys fsutil.FileSystem, path string, c *KDEClassifier) error {
	data, err := c.MarshalBinary()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := fsys.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create model directory: %w", err)
		}
	}
	w, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create model file: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("failed to write model file: %w", err)
	}
	return w.Close()
}

// Load reads a classifier written by Save.
func Load(fsys fsutil.FileSystem, path string) (*KDEClassifier, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	c := &KDEClassifier{}
	if err := c.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}
