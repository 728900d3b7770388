// Command rssi-plot summarises raw measurement logs: the mean, median and
// mode RSSI at every measured distance, printed as a table and plotted.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/banshee-data/rssi-distance/internal/dataset"
	"github.com/banshee-data/rssi-distance/internal/fsutil"
	"github.com/banshee-data/rssi-distance/internal/report"
	"github.com/banshee-data/rssi-distance/internal/version"
)

var (
	glob        = flag.String("glob", "data/trial*/*.csv", "Measurement CSV pattern")
	outPath     = flag.String("out", "centers.png", "Output PNG (empty to skip the plot)")
	drop        = flag.String("drop", strings.Join(dataset.DefaultDropColumns, ","), "Comma-separated columns to ignore")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Println(version.String("rssi-plot"))
		return
	}

	fsys := fsutil.OSFileSystem{}
	centers, err := loadCenters(fsys, *glob, strings.Split(*drop, ","))
	if err != nil {
		log.Fatal(err)
	}
	if err := writeTable(os.Stdout, centers); err != nil {
		log.Fatal(err)
	}

	if *outPath == "" {
		return
	}
	w, err := fsys.Create(*outPath)
	if err != nil {
		log.Fatalf("failed to create plot: %v", err)
	}
	if err := report.PlotCenters(w, centers); err != nil {
		w.Close()
		log.Fatalf("failed to plot: %v", err)
	}
	if err := w.Close(); err != nil {
		log.Fatal(err)
	}
	log.Printf("plot written to %s", *outPath)
}

func loadCenters(fsys fsutil.FileSystem, pattern string, drop []string) ([]report.Center, error) {
	tables, err := dataset.LoadGlob(fsys, pattern, drop)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("no input files match %s", pattern)
	}
	return report.Centers(tables...)
}

func writeTable(w io.Writer, centers []report.Center) error {
	if _, err := fmt.Fprintf(w, "%10s %8s %8s %8s %8s\n", "distance", "rows", "mean", "median", "mode"); err != nil {
		return err
	}
	for _, c := range centers {
		if _, err := fmt.Fprintf(w, "%10.2f %8s %8.2f %8.2f %8.2f\n",
			c.Distance, humanize.Comma(int64(c.Count)), c.Mean, c.Median, c.Mode); err != nil {
			return err
		}
	}
	return nil
}
