package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitlabtools/gl-lint/pkg/lint"
	"github.com/gitlabtools/gl-lint/pkg/yamldoc"
)

func mustParse(t *testing.T, text string) *yamldoc.Node {
	t.Helper()
	root, err := yamldoc.Parse(text)
	require.NoError(t, err)
	return root
}

func TestBindBasicPipeline(t *testing.T) {
	root := mustParse(t, `stages:
  - build
  - test

variables:
  GOFLAGS: -mod=vendor

include:
  - local: ci/common.yml
  - project: group/templates
    ref: v1.2.0
    file: build.yml

build_job:
  stage: build
  image: golang:1.25
  script:
    - make build
  tags: [docker]

.base:
  before_script:
    - echo hi
`)

	config, diags := Bind(root)
	assert.Empty(t, diags)

	require.NotNil(t, config.Stages)
	assert.Equal(t, []string{"build", "test"}, config.Stages.Values())
	require.NotNil(t, config.Variables)
	assert.Equal(t, "-mod=vendor", config.Variables.Get("GOFLAGS").Value)

	require.Len(t, config.Includes, 2)
	require.NotNil(t, config.Includes[0].Local)
	assert.Equal(t, "ci/common.yml", config.Includes[0].Local.Value)
	require.NotNil(t, config.Includes[1].Project)
	assert.Equal(t, "group/templates", config.Includes[1].Project.Value)
	require.NotNil(t, config.Includes[1].Ref)
	assert.Equal(t, "v1.2.0", config.Includes[1].Ref.Value)

	require.Len(t, config.Jobs, 2)
	job := config.Job("build_job")
	require.NotNil(t, job)
	assert.False(t, job.Template)
	require.NotNil(t, job.Stage)
	assert.Equal(t, "build", job.Stage.Value)
	require.NotNil(t, job.Stage.Span)
	require.NotNil(t, job.Image)
	assert.Equal(t, "golang:1.25", job.Image.Value)
	assert.Equal(t, []string{"make build"}, job.Script.Values())
	assert.Equal(t, []string{"docker"}, job.Tags.Values())

	base := config.Job(".base")
	require.NotNil(t, base)
	assert.True(t, base.Template)
	assert.Len(t, config.ActiveJobs(), 1)
}

func TestBindScalarScriptBecomesList(t *testing.T) {
	root := mustParse(t, "job:\n  script: make test\n")
	config, diags := Bind(root)
	assert.Empty(t, diags)
	job := config.Job("job")
	require.NotNil(t, job.Script)
	assert.Equal(t, []string{"make test"}, job.Script.Values())
}

func TestBindImageMappingForm(t *testing.T) {
	root := mustParse(t, `job:
  image:
    name: postgres:16.4
    entrypoint: [""]
  script: [run]
`)
	config, diags := Bind(root)
	assert.Empty(t, diags)
	job := config.Job("job")
	require.NotNil(t, job.Image)
	assert.Equal(t, "postgres:16.4", job.Image.Value)
}

func TestBindMalformedFieldIsReportedAndOmitted(t *testing.T) {
	root := mustParse(t, `stages: {build: true}

job:
  stage: build
  script: [test]
  interruptible: sometimes
`)
	config, diags := Bind(root)

	require.Len(t, diags, 2)
	for _, d := range diags {
		assert.Equal(t, lint.CodeBind, d.Code)
		assert.Equal(t, lint.SeverityError, d.Severity)
		require.NotNil(t, d.Span)
	}
	assert.Contains(t, diags[0].Message, "stages")
	assert.Contains(t, diags[1].Message, "interruptible")

	// The malformed fields are omitted; everything else still bound.
	assert.Nil(t, config.Stages)
	job := config.Job("job")
	require.NotNil(t, job)
	assert.Nil(t, job.Interruptible)
	assert.Equal(t, "build", job.Stage.Value)
}

func TestBindNonMappingJobRejected(t *testing.T) {
	root := mustParse(t, "deploy: just a string\n")
	config, diags := Bind(root)
	require.Len(t, diags, 1)
	assert.Contains(t, diags[0].Message, `job "deploy" must be a mapping`)
	assert.Empty(t, config.Jobs)
}

func TestEffectiveJobInheritsWithNilSpans(t *testing.T) {
	root := mustParse(t, `.base:
  image: alpine:3.19
  timeout: 30m
  tags:
    - docker

job:
  extends: .base
  script:
    - make
`)
	config, diags := Bind(root)
	require.Empty(t, diags)

	job := config.Job("job")
	effective := config.EffectiveJob(job)

	// Inherited fields: values present, spans nil.
	require.NotNil(t, effective.Image)
	assert.Equal(t, "alpine:3.19", effective.Image.Value)
	assert.Nil(t, effective.Image.Span)
	require.NotNil(t, effective.Timeout)
	assert.Nil(t, effective.Timeout.Span)
	require.NotNil(t, effective.Tags)
	assert.Equal(t, []string{"docker"}, effective.Tags.Values())
	assert.Nil(t, effective.Tags.Span)
	assert.Nil(t, effective.Tags.Items[0].Span)

	// The job's own fields keep their spans.
	require.NotNil(t, effective.Script)
	require.NotNil(t, effective.Script.Span)

	// The original job is untouched.
	assert.Nil(t, job.Image)
}

func TestEffectiveJobChildOverridesParent(t *testing.T) {
	root := mustParse(t, `.base:
  image: alpine:3.19
  script:
    - parent

.mid:
  extends: .base
  timeout: 1h

job:
  extends: .mid
  image: golang:1.25
`)
	config, _ := Bind(root)
	effective := config.EffectiveJob(config.Job("job"))

	assert.Equal(t, "golang:1.25", effective.Image.Value)
	require.NotNil(t, effective.Image.Span) // own field, own span
	assert.Equal(t, []string{"parent"}, effective.Script.Values())
	assert.Equal(t, "1h", effective.Timeout.Value)
}

func TestEffectiveJobToleratesCyclesAndUnknownTargets(t *testing.T) {
	root := mustParse(t, `.a:
  extends: .b
  image: alpine:3.19

.b:
  extends: .a
  timeout: 10m

job:
  extends:
    - .a
    - .missing
  script: [run]
`)
	config, _ := Bind(root)
	effective := config.EffectiveJob(config.Job("job"))

	assert.Equal(t, "alpine:3.19", effective.Image.Value)
	assert.Equal(t, "10m", effective.Timeout.Value)
	assert.Equal(t, []string{"run"}, effective.Script.Values())
}
