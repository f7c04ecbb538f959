package rules

import (
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/gitlabtools/gl-lint/pkg/lint"
	"github.com/gitlabtools/gl-lint/pkg/logger"
	"github.com/gitlabtools/gl-lint/pkg/schema"
	"github.com/gitlabtools/gl-lint/pkg/yamldoc"
)

var dockerLog = logger.New("rules:docker")

// imageRef extracts the image reference from either the scalar form or
// the mapping form with a "name" key.
func imageRef(node *yamldoc.Node) (string, *yamldoc.Span, bool) {
	switch {
	case node.IsScalar():
		return node.Value, spanPtr(node.Span), true
	case node.IsMapping():
		if name := node.Get("name"); name.IsScalar() {
			return name.Value, spanPtr(name.Span), true
		}
	}
	return "", nil, false
}

// untaggedExceptions are images commonly used without a tag on purpose.
var untaggedExceptions = map[string]bool{
	"scratch": true,
	"alpine":  true,
}

// checkImageTags implements GL005. Image references built from variables
// cannot be judged statically and are skipped.
func checkImageTags(ctx *Context) []lint.Diagnostic {
	var out []lint.Diagnostic

	check := func(job *schema.JobSpec, image string, span *yamldoc.Span, context string) {
		if d, bad := latestTagFinding(job, image, span, context); bad {
			out = append(out, d)
		}
	}

	if ctx.Config.Image != nil {
		check(nil, ctx.Config.Image.Value, ctx.Config.Image.Span, "default image")
	}
	if ctx.Config.Default != nil {
		if node := ctx.Config.Default.Get("image"); node != nil {
			if image, span, ok := imageRef(node); ok {
				check(nil, image, span, "default image")
			}
		}
	}

	for _, job := range ctx.ActiveJobs() {
		if job.Image != nil {
			check(job, job.Image.Value, job.Image.Span, "job image")
		}
		for _, service := range serviceImages(job.Services) {
			check(job, service.Value, service.Span, "service image")
		}
	}
	return out
}

func latestTagFinding(job *schema.JobSpec, image string, span *yamldoc.Span, context string) (lint.Diagnostic, bool) {
	if image == "" || strings.Contains(image, "$") {
		return lint.Diagnostic{}, false
	}

	if strings.HasSuffix(image, ":latest") {
		return findingf(job, span,
			"pin a specific version, e.g. "+strings.Replace(image, ":latest", ":1.0", 1),
			"%s uses prohibited ':latest' tag: %s", context, image), true
	}

	if strings.Contains(image, "@sha256:") {
		return lint.Diagnostic{}, false
	}

	last := image[strings.LastIndex(image, "/")+1:]
	colon := strings.Index(last, ":")
	if colon < 0 {
		if untaggedExceptions[last] {
			return lint.Diagnostic{}, false
		}
		return findingf(job, span,
			"add a specific version tag, e.g. "+image+":1.0",
			"%s has no tag (implicit :latest): %s", context, image), true
	}

	// A tag is present; a parseable semantic version is the ideal pin,
	// but any explicit tag passes.
	tag := last[colon+1:]
	if _, err := semver.NewVersion(strings.TrimPrefix(tag, "v")); err == nil {
		dockerLog.Printf("Image pinned to semantic version: %s", image)
	}
	return lint.Diagnostic{}, false
}

// serviceImages extracts image references from a services list.
func serviceImages(services *yamldoc.Node) []schema.StringField {
	if services == nil || !services.IsSequence() {
		return nil
	}
	var images []schema.StringField
	for _, item := range services.Items {
		if image, span, ok := imageRef(item); ok {
			images = append(images, schema.StringField{Value: image, Span: span})
		}
	}
	return images
}

// largeImagePattern pairs a match for a known-heavy base image with the
// variant substrings that make it acceptable.
type largeImagePattern struct {
	match    *regexp.Regexp
	excludes []string
}

var largeImagePatterns = []largeImagePattern{
	{regexp.MustCompile(`(?i)\bubuntu:`), []string{"alpine"}},
	{regexp.MustCompile(`(?i)\bdebian:`), []string{"slim"}},
	{regexp.MustCompile(`(?i)\bcentos:`), []string{"minimal"}},
	{regexp.MustCompile(`(?i)\bfedora:`), []string{"minimal"}},
	{regexp.MustCompile(`(?i)microsoft/dotnet`), nil},
	{regexp.MustCompile(`(?i)mcr\.microsoft\.com/dotnet/`), []string{"runtime-deps"}},
	{regexp.MustCompile(`(?i)\bopenjdk:`), []string{"-jre"}},
	{regexp.MustCompile(`(?i)\badoptopenjdk:`), []string{"-jre"}},
	{regexp.MustCompile(`(?i)\bgradle:`), []string{"-alpine"}},
	{regexp.MustCompile(`(?i)\bmaven:`), []string{"-alpine"}},
	{regexp.MustCompile(`(?i)\bpostgres:`), []string{"-alpine"}},
	{regexp.MustCompile(`(?i)\bmysql:|\bmariadb:|oracle/database`), nil},
	{regexp.MustCompile(`(?i)jupyter/|pytorch/pytorch`), nil},
	{regexp.MustCompile(`(?i)tensorflow/tensorflow`), []string{"-cpu"}},
}

func isLargeImage(image string) bool {
	lower := strings.ToLower(image)
	for _, p := range largeImagePatterns {
		if !p.match.MatchString(image) {
			continue
		}
		excluded := false
		for _, ex := range p.excludes {
			if strings.Contains(lower, ex) {
				excluded = true
				break
			}
		}
		if !excluded {
			return true
		}
	}
	return false
}

// checkImageSize implements GL006.
func checkImageSize(ctx *Context) []lint.Diagnostic {
	var out []lint.Diagnostic
	for _, job := range ctx.ActiveJobs() {
		if job.Image != nil && isLargeImage(job.Image.Value) {
			out = append(out, findingf(job, job.Image.Span,
				"use an Alpine-based or slim variant for a smaller image",
				"potentially large Docker image detected: %s", job.Image.Value))
		}
		for _, service := range serviceImages(job.Services) {
			if isLargeImage(service.Value) {
				out = append(out, findingf(job, service.Span,
					"use an Alpine-based or slim variant for a smaller image",
					"potentially large Docker service detected: %s", service.Value))
			}
		}
	}
	return out
}
