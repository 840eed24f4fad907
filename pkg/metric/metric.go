// Package metric models the measurement tree produced by a calculus:
// one numeric value per class, plus the summary statistics and visual
// annotations added by the report pipeline. The document has two
// canonical encodings — XML for the persisted artifact and JSON for
// schema validation.
package metric

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
)

// XSINamespace is the XML Schema instance namespace declared on every
// emitted document.
const XSINamespace = "http://www.w3.org/2001/XMLSchema-instance"

// SchemaPath is the fixed resource path of the schema every emitted
// document must satisfy. It is embedded literally in the document so
// the artifact self-describes its contract.
const SchemaPath = "schema/metric.json"

// Document is the root of one per-metric measurement tree.
type Document struct {
	XMLName        xml.Name `xml:"metric" json:"-"`
	XSI            string   `xml:"xmlns:xsi,attr,omitempty" json:"-"`
	SchemaLocation string   `xml:"xsi:noNamespaceSchemaLocation,attr,omitempty" json:"schema,omitempty"`
	Name           string   `xml:"metric,attr" json:"metric"`
	Date           string   `xml:"date,attr,omitempty" json:"date,omitempty"`
	Version        string   `xml:"version,attr,omitempty" json:"version,omitempty"`
	Title          string   `xml:"title" json:"title"`
	App            App      `xml:"app" json:"app"`

	// Statistics is added by the statistics decorator; Ranges by the
	// range transform. Both are nil on a raw tree.
	Statistics *Statistics `xml:"statistics,omitempty" json:"statistics,omitempty"`
	Ranges     *Ranges     `xml:"ranges,omitempty" json:"ranges,omitempty"`
}

// App mirrors the skeleton's application element.
type App struct {
	ID       string    `xml:"id,attr" json:"id"`
	Packages []Package `xml:"package" json:"package"`
}

// Package groups measured classes by namespace.
type Package struct {
	ID      string  `xml:"id,attr" json:"id"`
	Classes []Class `xml:"class" json:"class"`
}

// Class holds one measured value. Color and Bar are empty until the
// post-processing transforms assign them.
type Class struct {
	ID    string  `xml:"id,attr" json:"id"`
	Value float64 `xml:"value,attr" json:"value"`
	Color string  `xml:"color,attr,omitempty" json:"color,omitempty"`
	Bar   *int    `xml:"bar,attr,omitempty" json:"bar,omitempty"`
}

// Statistics summarizes the value distribution of the document.
type Statistics struct {
	Total   int     `xml:"total" json:"total"`
	Min     float64 `xml:"min" json:"min"`
	Max     float64 `xml:"max" json:"max"`
	Mean    float64 `xml:"mean" json:"mean"`
	Sigma   float64 `xml:"sigma" json:"sigma"`
	Defects float64 `xml:"defects" json:"defects"`
}

// Ranges is the per-color summary appended by the range transform.
type Ranges struct {
	Items []Range `xml:"range" json:"range"`
}

// Range summarizes the classes sharing one color.
type Range struct {
	Color string  `xml:"color,attr" json:"color"`
	Count int     `xml:"count,attr" json:"count"`
	Min   float64 `xml:"min,attr" json:"min"`
	Max   float64 `xml:"max,attr" json:"max"`
}

// New creates a raw measurement tree for the named metric.
func New(name, title, appID string) *Document {
	return &Document{
		Name:  name,
		Title: title,
		App:   App{ID: appID},
	}
}

// AttachSchema declares the XSI namespace and schema location on the
// document root so the emitted XML self-describes its contract.
func (d *Document) AttachSchema() {
	d.XSI = XSINamespace
	d.SchemaLocation = SchemaPath
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	out := *d
	out.App.Packages = make([]Package, len(d.App.Packages))
	for i, pkg := range d.App.Packages {
		cp := pkg
		cp.Classes = make([]Class, len(pkg.Classes))
		for j, cls := range pkg.Classes {
			cc := cls
			if cls.Bar != nil {
				b := *cls.Bar
				cc.Bar = &b
			}
			cp.Classes[j] = cc
		}
		out.App.Packages[i] = cp
	}
	if d.Statistics != nil {
		st := *d.Statistics
		out.Statistics = &st
	}
	if d.Ranges != nil {
		rg := Ranges{Items: append([]Range(nil), d.Ranges.Items...)}
		out.Ranges = &rg
	}
	return &out
}

// Classes returns pointers to every class in the document, in
// document order.
func (d *Document) Classes() []*Class {
	var out []*Class
	for i := range d.App.Packages {
		pkg := &d.App.Packages[i]
		for j := range pkg.Classes {
			out = append(out, &pkg.Classes[j])
		}
	}
	return out
}

// WriteXML serializes the document as indented XML with a header.
// Output is stable: identical documents produce identical bytes.
func (d *Document) WriteXML(w io.Writer) error {
	data, err := xml.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize metric document: %w", err)
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n")
	return err
}

// EncodeJSON returns the canonical JSON form consumed by the schema
// validation gate.
func (d *Document) EncodeJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("failed to encode metric document: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeJSON parses a document from its canonical JSON form.
func DecodeJSON(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode metric document: %w", err)
	}
	return &doc, nil
}

// xmlDocument shadows Document with namespace-agnostic attribute tags.
// Go's encoder needs the prefixed form to emit xsi attributes, but the
// decoder resolves prefixes to namespace URIs, so round-tripping needs
// a separate decode shape.
type xmlDocument struct {
	Name           string      `xml:"metric,attr"`
	SchemaLocation string      `xml:"noNamespaceSchemaLocation,attr"`
	Date           string      `xml:"date,attr"`
	Version        string      `xml:"version,attr"`
	Title          string      `xml:"title"`
	App            App         `xml:"app"`
	Statistics     *Statistics `xml:"statistics"`
	Ranges         *Ranges     `xml:"ranges"`
}

// DecodeXML parses a document from a previously emitted XML artifact.
func DecodeXML(data []byte) (*Document, error) {
	var raw xmlDocument
	if err := xml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode metric XML: %w", err)
	}
	doc := Document{
		Name:           raw.Name,
		SchemaLocation: raw.SchemaLocation,
		Date:           raw.Date,
		Version:        raw.Version,
		Title:          raw.Title,
		App:            raw.App,
		Statistics:     raw.Statistics,
		Ranges:         raw.Ranges,
	}
	if doc.SchemaLocation != "" {
		doc.XSI = XSINamespace
	}
	return &doc, nil
}
