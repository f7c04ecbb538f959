package yamldoc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePreservesKeyOrderAndPositions(t *testing.T) {
	doc, err := Parse(`stages:
  - build
  - test

build-job:
  stage: build
  script:
    - make build
`)
	require.NoError(t, err)
	require.True(t, doc.IsMapping())

	assert.Equal(t, []string{"stages", "build-job"}, doc.Keys())

	stages, ok := doc.Lookup("stages")
	require.True(t, ok)
	assert.Equal(t, 1, stages.KeySpan.StartLine)
	assert.Equal(t, 1, stages.KeySpan.StartCol)
	require.True(t, stages.Value.IsSequence())
	assert.Equal(t, []string{"build", "test"}, stages.Value.StringItems())
	assert.Equal(t, 2, stages.Value.Items[0].Span.StartLine)
	assert.Equal(t, 5, stages.Value.Items[0].Span.StartCol)

	job := doc.Get("build-job")
	require.True(t, job.IsMapping())
	stage := job.Get("stage")
	require.True(t, stage.IsStringScalar())
	assert.Equal(t, "build", stage.Value)
	assert.Equal(t, 6, stage.Span.StartLine)
}

func TestParseScalarTypes(t *testing.T) {
	doc, err := Parse(`quoted: "3.9"
number: 3.9
count: 42
flag: true
empty: null
`)
	require.NoError(t, err)

	assert.Equal(t, StringScalar, doc.Get("quoted").Scalar)
	assert.Equal(t, "3.9", doc.Get("quoted").Value)
	assert.Equal(t, FloatScalar, doc.Get("number").Scalar)
	assert.Equal(t, IntScalar, doc.Get("count").Scalar)
	assert.Equal(t, "42", doc.Get("count").Value)
	assert.Equal(t, BoolScalar, doc.Get("flag").Scalar)
	assert.Equal(t, NullScalar, doc.Get("empty").Scalar)
}

func TestParseDuplicateKeyError(t *testing.T) {
	_, err := Parse(`job:
  stage: build
  stage: test
`)
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Message, "duplicate mapping key")
	assert.Contains(t, perr.Message, "stage")
	require.NotNil(t, perr.Span)
	assert.Equal(t, 3, perr.Span.StartLine)
}

func TestParseSyntaxErrorHasPosition(t *testing.T) {
	_, err := Parse("job:\n  stage: [unclosed\n")
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.NotEmpty(t, perr.Message)
}

func TestParseEmptyDocument(t *testing.T) {
	for _, text := range []string{"", "   \n\n", "# only a comment\n"} {
		_, err := Parse(text)
		require.Error(t, err, "input %q", text)
		var perr *ParseError
		require.ErrorAs(t, err, &perr)
		assert.Contains(t, perr.Message, "empty")
	}
}

func TestParseAnchorsAndMergeKeys(t *testing.T) {
	doc, err := Parse(`.defaults: &defaults
  image: alpine:3.19
  timeout: 1h

job:
  <<: *defaults
  image: golang:1.25
`)
	require.NoError(t, err)

	job := doc.Get("job")
	require.True(t, job.IsMapping())
	// The explicit image replaces the merged pair rather than duplicating
	// it, and its span points at the override, not the anchor.
	assert.Equal(t, []string{"image", "timeout"}, job.Keys())
	image, ok := job.Lookup("image")
	require.True(t, ok)
	assert.Equal(t, "golang:1.25", image.Value.Value)
	assert.Equal(t, 7, image.KeySpan.StartLine)
	assert.Equal(t, "1h", job.Get("timeout").Value)
}

func TestParseUnresolvableAlias(t *testing.T) {
	_, err := Parse("job:\n  extends: *missing\n")
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Message, "unresolvable alias")
}

func TestParseMultipleDocumentsRejected(t *testing.T) {
	_, err := Parse("a: 1\n---\nb: 2\n")
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Message, "multiple YAML documents")
}

func TestSpanString(t *testing.T) {
	s := Span{StartLine: 4, StartCol: 7, EndLine: 4, EndCol: 12}
	assert.Equal(t, "4:7", s.String())
}
