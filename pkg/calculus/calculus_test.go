package calculus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovasquez/facet/pkg/metric"
	"github.com/ovasquez/facet/pkg/skeleton"
)

// twoClassSkeleton builds a skeleton with one cohesive class (both
// methods share both attributes) and one incohesive class (each
// method touches its own attribute).
func twoClassSkeleton(t *testing.T) *skeleton.Document {
	t.Helper()
	doc, err := skeleton.Parse([]byte(`<skeleton date="2026-08-26" version="0.1.0">
  <app id="com.example">
    <package id="com.example.core">
      <class id="Cohesive">
        <attributes>
          <attribute type="int">x</attribute>
          <attribute type="int">y</attribute>
        </attributes>
        <methods>
          <method name="both1"><ops><op code="get">x</op><op code="get">y</op></ops></method>
          <method name="both2"><ops><op code="put">x</op><op code="put">y</op></ops></method>
        </methods>
      </class>
      <class id="Split">
        <attributes>
          <attribute type="int">x</attribute>
          <attribute type="int">y</attribute>
        </attributes>
        <methods>
          <method name="onlyX"><ops><op code="get">x</op></ops></method>
          <method name="onlyY"><ops><op code="get">y</op></ops></method>
        </methods>
      </class>
    </package>
  </app>
</skeleton>`))
	require.NoError(t, err)
	return doc
}

func classValue(t *testing.T, doc *metric.Document, id string) float64 {
	t.Helper()
	for _, cls := range doc.Classes() {
		if cls.ID == id {
			return cls.Value
		}
	}
	t.Fatalf("class %s not found", id)
	return 0
}

func TestBuiltinLCOM5(t *testing.T) {
	skel := twoClassSkeleton(t)
	doc, err := NewBuiltin().Compute(context.Background(), "lcom5", nil, skel)
	require.NoError(t, err)

	// Cohesive: m=2, a=2, every method touches every attribute ->
	// (2 - 4/2) / 1 = 0.
	assert.InDelta(t, 0.0, classValue(t, doc, "Cohesive"), 1e-9)

	// Split: each attribute touched by exactly one method ->
	// (2 - 2/2) / 1 = 1.
	assert.InDelta(t, 1.0, classValue(t, doc, "Split"), 1e-9)
}

func TestBuiltinTCC(t *testing.T) {
	skel := twoClassSkeleton(t)
	doc, err := NewBuiltin().Compute(context.Background(), "tcc", nil, skel)
	require.NoError(t, err)

	// Cohesive: the single method pair shares attributes -> 1.
	assert.InDelta(t, 1.0, classValue(t, doc, "Cohesive"), 1e-9)

	// Split: no shared attribute between the pair -> 0.
	assert.InDelta(t, 0.0, classValue(t, doc, "Split"), 1e-9)
}

func TestBuiltinPreservesStructure(t *testing.T) {
	skel := twoClassSkeleton(t)
	doc, err := NewBuiltin().Compute(context.Background(), "tcc", nil, skel)
	require.NoError(t, err)

	assert.Equal(t, "tcc", doc.Name)
	assert.Equal(t, "TCC", doc.Title)
	assert.Equal(t, "com.example", doc.App.ID)
	require.Len(t, doc.App.Packages, 1)
	assert.Equal(t, "com.example.core", doc.App.Packages[0].ID)
	assert.Len(t, doc.App.Packages[0].Classes, 2)
}

func TestBuiltinUnknownMetric(t *testing.T) {
	skel := twoClassSkeleton(t)
	_, err := NewBuiltin().Compute(context.Background(), "nope", nil, skel)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown metric")
}

func TestBuiltinHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBuiltin().Compute(ctx, "lcom5", nil, twoClassSkeleton(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDegenerateClassesScoreZero(t *testing.T) {
	doc, err := skeleton.Parse([]byte(`<skeleton>
  <app id="a">
    <package id="p">
      <class id="NoAttrs">
        <methods>
          <method name="m1"/>
          <method name="m2"/>
        </methods>
      </class>
      <class id="OneMethod">
        <attributes><attribute type="int">x</attribute></attributes>
        <methods><method name="m"><ops><op code="get">x</op></ops></method></methods>
      </class>
    </package>
  </app>
</skeleton>`))
	require.NoError(t, err)

	for _, name := range Names() {
		out, err := NewBuiltin().Compute(context.Background(), name, nil, doc)
		require.NoError(t, err, name)
		assert.Zero(t, classValue(t, out, "NoAttrs"), name)
		assert.Zero(t, classValue(t, out, "OneMethod"), name)
	}
}

func TestFuncAdapter(t *testing.T) {
	called := false
	f := Func(func(ctx context.Context, name string, params map[string]any, skel *skeleton.Document) (*metric.Document, error) {
		called = true
		return metric.New(name, "X", "app"), nil
	})

	_, err := f.Compute(context.Background(), "custom", nil, twoClassSkeleton(t))
	require.NoError(t, err)
	assert.True(t, called)
}

func TestNames(t *testing.T) {
	names := Names()
	assert.Equal(t, []string{"lcom5", "tcc"}, names)
	for _, n := range names {
		assert.True(t, Known(n))
	}
	assert.False(t, Known("wmc"))
}

func TestDescribe(t *testing.T) {
	for _, n := range Names() {
		assert.NotEmpty(t, Describe(n))
	}
	assert.Empty(t, Describe("wmc"))
}
