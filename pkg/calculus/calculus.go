// Package calculus defines the metric-computation capability consumed
// by the report pipeline: given a metric name, parameters and a
// skeleton, a Calculus produces a raw measurement tree. Concrete
// implementations are pluggable; the built-in registry covers the
// structural cohesion metrics computable from skeleton op data.
package calculus

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ovasquez/facet/pkg/metric"
	"github.com/ovasquez/facet/pkg/skeleton"
)

// Calculus computes one measurement tree from a skeleton. The
// skeleton is read-only; implementations must not retain or mutate
// it. Params are metric-specific and may be ignored by metrics that
// take none.
type Calculus interface {
	Compute(ctx context.Context, name string, params map[string]any, skel *skeleton.Document) (*metric.Document, error)
}

// Func adapts a plain function to the Calculus interface.
type Func func(ctx context.Context, name string, params map[string]any, skel *skeleton.Document) (*metric.Document, error)

// Compute implements Calculus.
func (f Func) Compute(ctx context.Context, name string, params map[string]any, skel *skeleton.Document) (*metric.Document, error) {
	return f(ctx, name, params, skel)
}

// classFunc evaluates one metric for a single class.
type classFunc func(c *skeleton.Class) float64

// builtins maps metric names to per-class evaluators.
var builtins = map[string]classFunc{
	"lcom5": lcom5,
	"tcc":   tcc,
}

// Names returns the built-in metric names, sorted.
func Names() []string {
	out := make([]string, 0, len(builtins))
	for name := range builtins {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Known reports whether name is a built-in metric.
func Known(name string) bool {
	_, ok := builtins[strings.ToLower(name)]
	return ok
}

// descriptions holds the one-line summary shown by metric listings.
var descriptions = map[string]string{
	"lcom5": "Lack of cohesion in methods (Henderson-Sellers variant)",
	"tcc":   "Tight class cohesion: share of method pairs touching a common attribute",
}

// Describe returns the one-line summary of a built-in metric, or an
// empty string for unknown names.
func Describe(name string) string {
	return descriptions[strings.ToLower(name)]
}

// Builtin computes the registered structural metrics.
type Builtin struct{}

// NewBuiltin creates a calculus backed by the built-in metric
// registry.
func NewBuiltin() *Builtin {
	return &Builtin{}
}

// Compute implements Calculus. It fails for unknown metric names and
// when the context is cancelled.
func (b *Builtin) Compute(ctx context.Context, name string, params map[string]any, skel *skeleton.Document) (*metric.Document, error) {
	eval, ok := builtins[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown metric %q (built-ins: %s)", name, strings.Join(Names(), ", "))
	}

	doc := metric.New(strings.ToLower(name), strings.ToUpper(name), skel.App.ID)
	doc.Date = skel.Date
	doc.Version = skel.Version
	for _, pkg := range skel.App.Packages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out := metric.Package{ID: pkg.ID}
		for i := range pkg.Classes {
			cls := &pkg.Classes[i]
			out.Classes = append(out.Classes, metric.Class{
				ID:    cls.ID,
				Value: eval(cls),
			})
		}
		doc.App.Packages = append(doc.App.Packages, out)
	}
	return doc, nil
}

// bodies returns the non-constructor, non-abstract methods of a
// class, the only ones whose op data is meaningful.
func bodies(c *skeleton.Class) []*skeleton.Method {
	var out []*skeleton.Method
	for i := range c.Methods {
		m := &c.Methods[i]
		if m.Ctor || m.Abstract {
			continue
		}
		out = append(out, m)
	}
	return out
}

// lcom5 computes Henderson-Sellers LCOM5:
//
//	(m - (1/a) * sum_a m_a) / (m - 1)
//
// where m is the method count, a the attribute count and m_a the
// number of methods touching attribute a. The result is clamped to
// [0, 1]; degenerate classes (fewer than two methods or no
// attributes) score 0.
func lcom5(c *skeleton.Class) float64 {
	methods := bodies(c)
	m := float64(len(methods))
	a := float64(len(c.Attributes))
	if m < 2 || a == 0 {
		return 0
	}

	var touched float64
	for _, attr := range c.Attributes {
		for _, method := range methods {
			if method.Touches(attr.Name) {
				touched++
			}
		}
	}
	value := (m - touched/a) / (m - 1)
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}

// tcc computes Tight Class Cohesion: the share of method pairs that
// are directly connected through at least one shared attribute.
// Classes with fewer than two methods score 0.
func tcc(c *skeleton.Class) float64 {
	methods := bodies(c)
	m := len(methods)
	if m < 2 {
		return 0
	}

	connected := 0
	for i := 0; i < m; i++ {
		for j := i + 1; j < m; j++ {
			if share(methods[i], methods[j], c.Attributes) {
				connected++
			}
		}
	}
	return float64(connected) / float64(m*(m-1)/2)
}

// share reports whether two methods touch a common attribute.
func share(a, b *skeleton.Method, attrs []skeleton.Attribute) bool {
	for _, attr := range attrs {
		if a.Touches(attr.Name) && b.Touches(attr.Name) {
			return true
		}
	}
	return false
}
