// Package report renders training runs for people: a text summary, an
// accuracy chart over the search grid and an RSSI-vs-distance plot.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/banshee-data/rssi-distance/internal/dataset"
	"github.com/banshee-data/rssi-distance/internal/search"
)

// Summary collects what WriteSummary prints about one run.
type Summary struct {
	RunID   string
	Dataset *dataset.Dataset
	Result  *search.Result
	// Top is how many of the best trials to list; 0 lists five.
	Top int
}

// WriteSummary prints a human-readable run summary to w.
func WriteSummary(w io.Writer, s Summary) error {
	var b strings.Builder
	if s.RunID != "" {
		fmt.Fprintf(&b, "Run %s\n", s.RunID)
	}

	if ds := s.Dataset; ds != nil {
		rows, cols := ds.Features.Dims()
		perClass := map[int]int{}
		for _, l := range ds.Labels {
			perClass[l]++
		}
		fmt.Fprintf(&b, "Dataset: %s rows in %d classes, %d features [%s]\n",
			humanize.Comma(int64(rows)), len(perClass), cols, strings.Join(ds.FeatureNames, " "))
		if len(ds.ClassCounts) > 0 {
			fmt.Fprintf(&b, "Class counts before sampling: %s\n", formatCounts(ds.ClassCounts))
		}
	}

	if res := s.Result; res != nil {
		fmt.Fprintf(&b, "Search: %s configurations x %d folds, %s scored, %s\n",
			humanize.Comma(int64(len(res.Trials))), res.Folds,
			humanize.Comma(int64(res.Scored())), res.Elapsed.Round(time.Millisecond))
		best := res.Best()
		fmt.Fprintf(&b, "Best bandwidths: %s\n", best.Bandwidths)
		fmt.Fprintf(&b, "Accuracy: %.4f ± %.4f\n", best.Mean, best.StdDev)

		top := s.Top
		if top <= 0 {
			top = 5
		}
		ranked := RankTrials(res)
		if len(ranked) > top {
			ranked = ranked[:top]
		}
		b.WriteString("Top configurations:\n")
		for i, t := range ranked {
			fmt.Fprintf(&b, "  %d. %-24s %.4f ± %.4f\n", i+1, t.Bandwidths, t.Mean, t.StdDev)
		}
		if n := len(res.Trials) - res.Scored(); n > 0 {
			fmt.Fprintf(&b, "Unscored configurations: %s\n", humanize.Comma(int64(n)))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RankTrials returns the scored trials ordered by mean accuracy, best
// first. Equal means keep grid order.
func RankTrials(res *search.Result) []search.Trial {
	var out []search.Trial
	for _, t := range res.Trials {
		if t.Scored() {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Mean > out[j].Mean })
	return out
}

func formatCounts(counts map[int]int) string {
	labels := make([]int, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	sort.Ints(labels)
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = fmt.Sprintf("%d=%s", l, humanize.Comma(int64(counts[l])))
	}
	return strings.Join(parts, " ")
}
