// Package report composes the per-metric pipeline: compute a
// measurement tree, decorate it with statistics, run the fixed
// post-processing chain, validate against the metric schema, and emit
// the XML artifact plus its HTML view.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ovasquez/facet/internal/cache"
	"github.com/ovasquez/facet/internal/stats"
	"github.com/ovasquez/facet/internal/transform"
	"github.com/ovasquez/facet/internal/validate"
	"github.com/ovasquez/facet/pkg/calculus"
	"github.com/ovasquez/facet/pkg/metric"
	"github.com/ovasquez/facet/pkg/skeleton"
)

// Default color thresholds: mean +/- sigma.
const (
	DefaultMean  = 0.5
	DefaultSigma = 0.1
)

// Report generates one per-metric artifact pair. A Report instance
// has no thread-safety guarantee: it owns its transform chain and
// must not be shared across concurrent Save calls. Callers wanting
// parallel generation construct one instance per metric; instances
// share nothing but the target directory.
type Report struct {
	skel     *skeleton.Document
	metric   string
	calc     calculus.Calculus
	params   map[string]any
	mean     float64
	sigma    float64
	chain    *transform.Chain
	renderer *Renderer
	store    *cache.Cache
}

// Option configures a Report.
type Option func(*Report)

// WithParams passes extra arguments through to the computation
// capability. Whether a given metric consumes them is the
// capability's concern, not the pipeline's.
func WithParams(params map[string]any) Option {
	return func(r *Report) {
		r.params = params
	}
}

// WithThresholds overrides the default mean and sigma used to derive
// the color thresholds.
func WithThresholds(mean, sigma float64) Option {
	return func(r *Report) {
		r.mean = mean
		r.sigma = sigma
	}
}

// WithCache enables measurement-tree caching.
func WithCache(c *cache.Cache) Option {
	return func(r *Report) {
		r.store = c
	}
}

// New builds a report for one metric. Constructing without
// WithThresholds is equivalent to WithThresholds(0.5, 0.1). A
// non-positive sigma is rejected: it would collapse or invert the
// threshold interval the color stage depends on.
func New(skel *skeleton.Document, metricName string, calc calculus.Calculus, opts ...Option) (*Report, error) {
	if skel == nil {
		return nil, fmt.Errorf("report needs a skeleton")
	}
	if metricName == "" {
		return nil, fmt.Errorf("report needs a metric name")
	}
	if calc == nil {
		return nil, fmt.Errorf("report needs a computation capability")
	}

	r := &Report{
		skel:   skel,
		metric: metricName,
		calc:   calc,
		params: map[string]any{},
		mean:   DefaultMean,
		sigma:  DefaultSigma,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.sigma <= 0 {
		return nil, fmt.Errorf("sigma must be positive, got %v", r.sigma)
	}
	chain, err := transform.PostProcessing(r.mean-r.sigma, r.mean+r.sigma)
	if err != nil {
		return nil, err
	}
	r.chain = chain

	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}
	r.renderer = renderer
	return r, nil
}

// Metric returns the metric name, which is also the output file stem.
func (r *Report) Metric() string {
	return r.metric
}

// Save runs the pipeline and writes <metric>.xml and <metric>.html
// into dir. If Save returns nil both files exist and the XML is
// schema-valid. Validation runs before any write, so a failing
// document leaves the directory untouched; the only accepted
// non-atomicity is an HTML render failure after the XML was written.
func (r *Report) Save(ctx context.Context, dir string) error {
	doc, err := r.compute(ctx)
	if err != nil {
		return fmt.Errorf("metric %s: computation failed: %w", r.metric, err)
	}

	doc.AttachSchema()
	doc = stats.Decorate(doc)

	doc, err = r.chain.Apply(doc)
	if err != nil {
		return fmt.Errorf("metric %s: %w", r.metric, err)
	}

	result, err := validate.Check(doc)
	if err != nil {
		return fmt.Errorf("metric %s: validation did not run: %w", r.metric, err)
	}
	if err := result.Err(); err != nil {
		return fmt.Errorf("metric %s: %w", r.metric, err)
	}

	var xmlBuf bytes.Buffer
	if err := doc.WriteXML(&xmlBuf); err != nil {
		return fmt.Errorf("metric %s: %w", r.metric, err)
	}
	xmlPath := filepath.Join(dir, r.metric+".xml")
	if err := os.WriteFile(xmlPath, xmlBuf.Bytes(), 0644); err != nil {
		return fmt.Errorf("metric %s: failed to write %s: %w", r.metric, xmlPath, err)
	}

	htmlPath := filepath.Join(dir, r.metric+".html")
	if err := r.renderer.RenderToFile(doc, htmlPath); err != nil {
		return fmt.Errorf("metric %s: failed to render %s: %w", r.metric, htmlPath, err)
	}
	return nil
}

// compute obtains the raw measurement tree, consulting the cache
// when one is configured.
func (r *Report) compute(ctx context.Context) (*metric.Document, error) {
	var key string
	if r.store != nil {
		params, err := json.Marshal(r.params)
		if err == nil {
			key = cache.Key(r.skel.Bytes(), r.metric, params)
			if data, ok := r.store.Get(key); ok {
				if doc, err := metric.DecodeJSON(data); err == nil {
					return doc, nil
				}
			}
		}
	}

	doc, err := r.calc.Compute(ctx, r.metric, r.params, r.skel)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("capability produced no measurement tree")
	}

	if r.store != nil && key != "" {
		if data, err := doc.EncodeJSON(); err == nil {
			// A failed cache write never fails the report.
			_ = r.store.Set(key, data)
		}
	}
	return doc, nil
}
