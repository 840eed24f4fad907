// Package transform applies the post-processing stages that annotate
// a measurement tree for display. The stages themselves are not code:
// they are declarative rule definitions shipped as embedded YAML and
// interpreted by a small generic engine. The pipeline only fixes
// their order and threads the document through.
package transform

import (
	"embed"
	"fmt"
	"math"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/ovasquez/facet/pkg/metric"
)

//go:embed defs/*.yaml
var defsFS embed.FS

// Transform is one post-processing stage. Apply is pure: it returns
// an annotated copy of the full document and never mutates its input.
type Transform interface {
	Name() string
	Apply(doc *metric.Document) (*metric.Document, error)
}

// Definition is the YAML shape of a rule file.
type Definition struct {
	Name      string   `yaml:"name"`
	Kind      string   `yaml:"kind"`
	Attribute string   `yaml:"attribute,omitempty"`
	Params    []string `yaml:"params,omitempty"`
	Buckets   []Bucket `yaml:"buckets,omitempty"`
	GroupBy   string   `yaml:"group_by,omitempty"`
	Source    string   `yaml:"source,omitempty"`
	Max       int      `yaml:"max,omitempty"`
}

// Bucket is one band of a bucket rule. Its bounds name parameters,
// not literal values; the values are bound at load time.
type Bucket struct {
	Name  string `yaml:"name"`
	Below string `yaml:"below,omitempty"`
	Above string `yaml:"above,omitempty"`
	From  string `yaml:"from,omitempty"`
	To    string `yaml:"to,omitempty"`
}

// Load reads the named embedded rule definition and binds its
// parameters. Missing parameters and unknown rule kinds fail here,
// not at apply time.
func Load(name string, params map[string]float64) (Transform, error) {
	data, err := defsFS.ReadFile("defs/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("unknown transform %q: %w", name, err)
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("malformed transform definition %q: %w", name, err)
	}

	switch def.Kind {
	case "bucket", "summarize", "scale":
	default:
		return nil, fmt.Errorf("transform %q has unsupported kind %q", name, def.Kind)
	}
	for _, p := range def.Params {
		if _, ok := params[p]; !ok {
			return nil, fmt.Errorf("transform %q requires parameter %q", name, p)
		}
	}

	return &rule{def: def, params: params}, nil
}

// rule interprets one Definition.
type rule struct {
	def    Definition
	params map[string]float64
}

func (r *rule) Name() string {
	return r.def.Name
}

func (r *rule) Apply(doc *metric.Document) (*metric.Document, error) {
	out := doc.Clone()
	switch r.def.Kind {
	case "bucket":
		return out, r.bucket(out)
	case "summarize":
		return out, r.summarize(out)
	case "scale":
		return out, r.scale(out)
	}
	return nil, fmt.Errorf("transform %q has unsupported kind %q", r.def.Name, r.def.Kind)
}

// bucket assigns each class the name of the band its value falls in.
func (r *rule) bucket(doc *metric.Document) error {
	if r.def.Attribute != "color" {
		return fmt.Errorf("transform %q targets unsupported attribute %q", r.def.Name, r.def.Attribute)
	}
	for _, cls := range doc.Classes() {
		for _, b := range r.def.Buckets {
			if r.matches(b, cls.Value) {
				cls.Color = b.Name
				break
			}
		}
	}
	return nil
}

func (r *rule) matches(b Bucket, value float64) bool {
	switch {
	case b.Below != "":
		return value < r.params[b.Below]
	case b.Above != "":
		return value > r.params[b.Above]
	default:
		return value >= r.params[b.From] && value <= r.params[b.To]
	}
}

// summarize appends one range element per group of classes sharing a
// value of the group-by attribute.
func (r *rule) summarize(doc *metric.Document) error {
	if r.def.GroupBy != "color" {
		return fmt.Errorf("transform %q groups by unsupported attribute %q", r.def.Name, r.def.GroupBy)
	}

	groups := make(map[string]*metric.Range)
	for _, cls := range doc.Classes() {
		key := cls.Color
		if key == "" {
			key = "none"
		}
		g, ok := groups[key]
		if !ok {
			groups[key] = &metric.Range{Color: key, Count: 1, Min: cls.Value, Max: cls.Value}
			continue
		}
		g.Count++
		g.Min = math.Min(g.Min, cls.Value)
		g.Max = math.Max(g.Max, cls.Value)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ranges := metric.Ranges{}
	for _, k := range keys {
		ranges.Items = append(ranges.Items, *groups[k])
	}
	doc.Ranges = &ranges
	return nil
}

// scale renders each class value as a bar width over the document's
// observed range.
func (r *rule) scale(doc *metric.Document) error {
	if r.def.Source != "statistics" {
		return fmt.Errorf("transform %q scales from unsupported source %q", r.def.Name, r.def.Source)
	}
	if doc.Statistics == nil {
		return fmt.Errorf("transform %q needs a statistics element; document has none", r.def.Name)
	}

	span := doc.Statistics.Max - doc.Statistics.Min
	for _, cls := range doc.Classes() {
		width := r.def.Max
		if span > 0 {
			width = int(math.Round(float64(r.def.Max) * (cls.Value - doc.Statistics.Min) / span))
		}
		w := width
		cls.Bar = &w
	}
	return nil
}

// Chain is an immutable ordered sequence of transforms. It performs
// no computation itself; it only guarantees ordering and document
// threading.
type Chain struct {
	stages []Transform
}

// NewChain builds a chain over the given stages, applied in order.
func NewChain(stages ...Transform) *Chain {
	return &Chain{stages: append([]Transform(nil), stages...)}
}

// Stages returns the stage names in application order.
func (c *Chain) Stages() []string {
	out := make([]string, len(c.stages))
	for i, s := range c.stages {
		out[i] = s.Name()
	}
	return out
}

// Apply threads the document through every stage. Each stage receives
// the full output of its predecessor.
func (c *Chain) Apply(doc *metric.Document) (*metric.Document, error) {
	cur := doc
	for _, s := range c.stages {
		next, err := s.Apply(cur)
		if err != nil {
			return nil, fmt.Errorf("transform stage %q: %w", s.Name(), err)
		}
		cur = next
	}
	return cur, nil
}

// PostProcessing builds the fixed report chain: colors, then range,
// then bars. Low and high are the color thresholds; they must form a
// non-degenerate interval.
func PostProcessing(low, high float64) (*Chain, error) {
	if low >= high {
		return nil, fmt.Errorf("color thresholds must satisfy low < high, got [%v, %v]", low, high)
	}

	colors, err := Load("colors", map[string]float64{"low": low, "high": high})
	if err != nil {
		return nil, err
	}
	ranges, err := Load("range", nil)
	if err != nil {
		return nil, err
	}
	bars, err := Load("bars", nil)
	if err != nil {
		return nil, err
	}
	return NewChain(colors, ranges, bars), nil
}
