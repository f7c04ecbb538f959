package cli

import (
	"fmt"
	"os"
	"runtime"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"

	"github.com/gitlabtools/gl-lint/pkg/console"
	"github.com/gitlabtools/gl-lint/pkg/lint"
	"github.com/gitlabtools/gl-lint/pkg/logger"
	"github.com/gitlabtools/gl-lint/pkg/report"
	"github.com/gitlabtools/gl-lint/pkg/rules"
)

var checkLog = logger.New("cli:check")

// defaultTarget is linted when no files are given.
const defaultTarget = ".gitlab-ci.yml"

// NewCheckCommand creates the check command
func NewCheckCommand() *cobra.Command {
	var (
		configPath     string
		formatName     string
		outputPath     string
		strict         bool
		failOnWarnings bool
	)

	cmd := &cobra.Command{
		Use:   "check [files...]",
		Short: "Lint GitLab CI configuration files",
		Long: `Lint GitLab CI configuration files against the full rule catalog.

Without arguments, checks .gitlab-ci.yml in the current directory.
Configuration is read from .gl-lint.{yml,yaml,json,toml} or --config;
the --strict and --fail-on-warnings flags override the file.

Examples:
  gl-lint check
  gl-lint check ci/*.yml --format json
  gl-lint check --strict --format sarif --output report.sarif`,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, _, err := LoadConfig(configPath)
			if err != nil {
				fmt.Fprintln(os.Stderr, console.FormatErrorMessage(err.Error()))
				return err
			}
			if cmd.Flags().Changed("strict") {
				config.StrictMode = strict
			}
			if cmd.Flags().Changed("fail-on-warnings") {
				config.FailOnWarnings = failOnWarnings
			}

			format, err := report.ParseFormat(formatName)
			if err != nil {
				fmt.Fprintln(os.Stderr, console.FormatErrorMessage(err.Error()))
				return err
			}

			paths := args
			if len(paths) == 0 {
				paths = []string{defaultTarget}
			}
			return RunCheck(paths, config, format, outputPath)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to a gl-lint config file")
	cmd.Flags().StringVar(&formatName, "format", "console", "output format: console, json, sarif, or junit")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "write the report to a file instead of stdout")
	cmd.Flags().BoolVar(&strict, "strict", false, "escalate severities one level")
	cmd.Flags().BoolVar(&failOnWarnings, "fail-on-warnings", false, "exit nonzero on warnings, not just errors")

	return cmd
}

// RunCheck lints the given files and writes the formatted report. The
// exit status is an error iff any error diagnostic exists, or any
// warning when fail-on-warnings is set.
func RunCheck(paths []string, config *lint.Config, format report.Format, outputPath string) error {
	results := CheckFiles(paths, config)

	rendered, err := report.Render(format, results)
	if err != nil {
		return err
	}
	if outputPath != "" {
		if err := os.WriteFile(outputPath, rendered, 0644); err != nil {
			fmt.Fprintln(os.Stderr, console.FormatErrorMessage(fmt.Sprintf("writing report: %v", err)))
			return err
		}
		fmt.Fprintln(os.Stderr, console.FormatInfoMessage(fmt.Sprintf("report written to %s", outputPath)))
	} else {
		os.Stdout.Write(rendered)
	}

	var errors, warnings int
	for _, d := range report.Diagnostics(results) {
		switch d.Severity {
		case lint.SeverityError:
			errors++
		case lint.SeverityWarning:
			warnings++
		}
	}
	checkLog.Printf("Checked %d file(s): %d error(s), %d warning(s)", len(paths), errors, warnings)

	if errors > 0 {
		return fmt.Errorf("found %d error(s)", errors)
	}
	if config != nil && config.FailOnWarnings && warnings > 0 {
		return fmt.Errorf("found %d warning(s) with fail-on-warnings set", warnings)
	}
	return nil
}

// CheckFiles lints each file on a bounded worker pool. Results come back
// in input order regardless of completion order; file pipelines share no
// mutable state, so order cannot affect content.
func CheckFiles(paths []string, config *lint.Config) []report.FileResult {
	results := make([]report.FileResult, len(paths))

	p := pool.New().WithMaxGoroutines(min(len(paths), runtime.NumCPU()))
	for i, path := range paths {
		p.Go(func() {
			results[i] = checkOne(path, config)
		})
	}
	p.Wait()
	return results
}

func checkOne(path string, config *lint.Config) report.FileResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return report.FileResult{
			File: path,
			Diagnostics: []lint.Diagnostic{{
				Code:     lint.CodeParse,
				Severity: lint.SeverityError,
				Message:  fmt.Sprintf("cannot read file: %v", err),
				File:     path,
			}},
		}
	}
	return report.FileResult{
		File:        path,
		Diagnostics: rules.CheckFile(path, string(data), config),
	}
}
