package report

import (
	"encoding/json"
)

type jsonDiagnostic struct {
	Code      string  `json:"code"`
	Severity  string  `json:"severity"`
	Message   string  `json:"message"`
	Help      *string `json:"help"`
	File      string  `json:"file"`
	Line      int     `json:"line"`
	Column    int     `json:"column"`
	EndLine   int     `json:"end_line"`
	EndColumn int     `json:"end_column"`
}

// JSON renders the diagnostics as a flat array. Absent help is an
// explicit null so consumers can distinguish it from empty text.
func JSON(results []FileResult) ([]byte, error) {
	diags := Diagnostics(results)
	out := make([]jsonDiagnostic, 0, len(diags))
	for _, d := range diags {
		entry := jsonDiagnostic{
			Code:      d.Code,
			Severity:  d.Severity.String(),
			Message:   d.Message,
			File:      d.File,
			Line:      1,
			Column:    1,
			EndLine:   1,
			EndColumn: 1,
		}
		if d.Help != "" {
			help := d.Help
			entry.Help = &help
		}
		if d.Span != nil {
			entry.Line = d.Span.StartLine
			entry.Column = d.Span.StartCol
			entry.EndLine = d.Span.EndLine
			entry.EndColumn = d.Span.EndCol
		}
		out = append(out, entry)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
