// Package skeleton models the structural input document describing the
// codebase under analysis: applications, packages, classes and their
// members. A parsed Document is owned by the caller and treated as
// read-only by everything downstream.
package skeleton

import (
	"encoding/xml"
	"fmt"
	"os"
)

// Document is the root of a parsed skeleton.
type Document struct {
	XMLName xml.Name `xml:"skeleton"`
	Date    string   `xml:"date,attr"`
	Version string   `xml:"version,attr"`
	App     App      `xml:"app"`

	raw []byte
}

// App groups the packages of one analyzed application.
type App struct {
	ID       string    `xml:"id,attr"`
	Packages []Package `xml:"package"`
}

// Package groups the classes of one namespace.
type Package struct {
	ID      string  `xml:"id,attr"`
	Classes []Class `xml:"class"`
}

// Class is one analyzed class with its attributes and methods.
type Class struct {
	ID         string      `xml:"id,attr"`
	Attributes []Attribute `xml:"attributes>attribute"`
	Methods    []Method    `xml:"methods>method"`
}

// Attribute is a class field.
type Attribute struct {
	Name   string `xml:",chardata"`
	Type   string `xml:"type,attr"`
	Public bool   `xml:"public,attr"`
	Static bool   `xml:"static,attr"`
}

// Method is a class method. Ops record which attributes the method
// body reads or writes.
type Method struct {
	Name       string `xml:"name,attr"`
	Ctor       bool   `xml:"ctor,attr"`
	Abstract   bool   `xml:"abstract,attr"`
	Visibility string `xml:"visibility,attr"`
	Args       []Arg  `xml:"args>arg"`
	Ops        []Op   `xml:"ops>op"`
}

// Arg is a method parameter.
type Arg struct {
	Type string `xml:"type,attr"`
}

// Op is one attribute access performed by a method body.
type Op struct {
	Code   string `xml:"code,attr"`
	Target string `xml:",chardata"`
}

// Parse decodes a skeleton from its XML bytes.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse skeleton: %w", err)
	}
	if len(doc.App.Packages) == 0 {
		return nil, fmt.Errorf("skeleton has no packages")
	}
	doc.raw = data
	return &doc, nil
}

// Load reads and parses a skeleton file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read skeleton: %w", err)
	}
	return Parse(data)
}

// Bytes returns the raw XML the document was parsed from. The slice
// must not be modified.
func (d *Document) Bytes() []byte {
	return d.raw
}

// Classes returns every class in the document, in document order.
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

// Touches reports whether the method reads or writes the named
// attribute.
func (m *Method) Touches(attr string) bool {
	for _, op := range m.Ops {
		if op.Target == attr {
			return true
		}
	}
	return false
}
