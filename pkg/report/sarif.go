package report

import (
	"encoding/json"

	"github.com/gitlabtools/gl-lint/pkg/lint"
	"github.com/gitlabtools/gl-lint/pkg/rules"
)

const sarifSchema = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json"

type sarifLog struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name  string      `json:"name"`
	Rules []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string       `json:"id"`
	ShortDescription sarifMessage `json:"shortDescription"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           sarifRegion           `json:"region"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn"`
	EndLine     int `json:"endLine"`
	EndColumn   int `json:"endColumn"`
}

func sarifLevel(s lint.Severity) string {
	switch s {
	case lint.SeverityError:
		return "error"
	case lint.SeverityWarning:
		return "warning"
	default:
		return "note"
	}
}

// SARIF renders one 2.1.0 run covering all input files.
func SARIF(results []FileResult) ([]byte, error) {
	catalog := rules.Registry()
	driverRules := make([]sarifRule, 0, len(catalog))
	for _, desc := range catalog {
		driverRules = append(driverRules, sarifRule{
			ID:               desc.Code,
			ShortDescription: sarifMessage{Text: desc.Title},
		})
	}

	diags := Diagnostics(results)
	sarifResults := make([]sarifResult, 0, len(diags))
	for _, d := range diags {
		region := sarifRegion{StartLine: 1, StartColumn: 1, EndLine: 1, EndColumn: 1}
		if d.Span != nil {
			region = sarifRegion{
				StartLine:   d.Span.StartLine,
				StartColumn: d.Span.StartCol,
				EndLine:     d.Span.EndLine,
				EndColumn:   d.Span.EndCol,
			}
		}
		sarifResults = append(sarifResults, sarifResult{
			RuleID:  d.Code,
			Level:   sarifLevel(d.Severity),
			Message: sarifMessage{Text: d.Message},
			Locations: []sarifLocation{{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{URI: d.File},
					Region:           region,
				},
			}},
		})
	}

	log := sarifLog{
		Schema:  sarifSchema,
		Version: "2.1.0",
		Runs: []sarifRun{{
			Tool:    sarifTool{Driver: sarifDriver{Name: "gl-lint", Rules: driverRules}},
			Results: sarifResults,
		}},
	}

	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
