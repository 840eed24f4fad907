package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovasquez/facet/pkg/metric"
)

// conformingDoc builds a document the way the pipeline does: schema
// attached, statistics present, every class colored and barred.
func conformingDoc() *metric.Document {
	bar := 100
	doc := metric.New("tcc", "TCC", "com.example")
	doc.AttachSchema()
	doc.App.Packages = []metric.Package{
		{
			ID: "com.example.core",
			Classes: []metric.Class{
				{ID: "Account", Value: 0.7, Color: "green", Bar: &bar},
			},
		},
	}
	doc.Statistics = &metric.Statistics{Total: 1, Min: 0.7, Max: 0.7, Mean: 0.7, Sigma: 0, Defects: 0}
	doc.Ranges = &metric.Ranges{Items: []metric.Range{{Color: "green", Count: 1, Min: 0.7, Max: 0.7}}}
	return doc
}

func TestCheckConformingDocument(t *testing.T) {
	res, err := Check(conformingDoc())
	require.NoError(t, err)
	assert.True(t, res.Valid())
	assert.NoError(t, res.Err())
}

func TestCheckMissingStatistics(t *testing.T) {
	doc := conformingDoc()
	doc.Statistics = nil

	res, err := Check(doc)
	require.NoError(t, err)
	assert.False(t, res.Valid())
	require.Error(t, res.Err())

	var verr *Error
	require.True(t, errors.As(res.Err(), &verr))
	assert.NotEmpty(t, verr.Violations)
}

func TestCheckUncoloredClass(t *testing.T) {
	doc := conformingDoc()
	doc.App.Packages[0].Classes[0].Color = ""

	res, err := Check(doc)
	require.NoError(t, err)
	assert.False(t, res.Valid(), "a class without a color must not pass the gate")
}

func TestCheckUnknownColor(t *testing.T) {
	doc := conformingDoc()
	doc.App.Packages[0].Classes[0].Color = "chartreuse"

	res, err := Check(doc)
	require.NoError(t, err)
	assert.False(t, res.Valid())
}

func TestCheckBarOutOfRange(t *testing.T) {
	doc := conformingDoc()
	over := 150
	doc.App.Packages[0].Classes[0].Bar = &over

	res, err := Check(doc)
	require.NoError(t, err)
	assert.False(t, res.Valid())
}

func TestCheckMissingSchemaLocation(t *testing.T) {
	doc := conformingDoc()
	doc.SchemaLocation = ""

	res, err := Check(doc)
	require.NoError(t, err)
	assert.False(t, res.Valid(), "document must self-describe its schema")
}

func TestCheckJSONRejectsGarbage(t *testing.T) {
	_, err := CheckJSON([]byte("{not json"))
	assert.Error(t, err)
}

func TestViolationsCarryPaths(t *testing.T) {
	doc := conformingDoc()
	doc.App.Packages[0].Classes[0].Color = ""

	res, err := Check(doc)
	require.NoError(t, err)
	require.False(t, res.Valid())

	found := false
	for _, v := range res.Violations {
		if strings.Contains(v.Path, "class") || strings.Contains(v.Path, "package") {
			found = true
		}
	}
	assert.True(t, found, "violations should point into the document: %+v", res.Violations)
}
