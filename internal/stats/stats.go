// Package stats decorates a measurement tree with summary statistics
// over its class values. The decorator is pure: it returns an
// enriched copy and leaves its input untouched.
package stats

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ovasquez/facet/pkg/metric"
)

// Decorate returns a copy of doc carrying total, min, max, mean,
// sigma and defects. Sigma is the population standard deviation so a
// single-class document gets 0, not NaN. Defects is the share of
// classes whose value falls outside one sigma of the distribution's
// own mean.
func Decorate(doc *metric.Document) *metric.Document {
	out := doc.Clone()

	var values []float64
	for _, cls := range out.Classes() {
		values = append(values, cls.Value)
	}

	st := metric.Statistics{Total: len(values)}
	if len(values) > 0 {
		st.Min = floats.Min(values)
		st.Max = floats.Max(values)
		st.Mean = stat.Mean(values, nil)
		st.Sigma = stat.PopStdDev(values, nil)

		outliers := 0
		for _, v := range values {
			if v < st.Mean-st.Sigma || v > st.Mean+st.Sigma {
				outliers++
			}
		}
		st.Defects = float64(outliers) / float64(len(values))
	}
	out.Statistics = &st
	return out
}
