package cli

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-yaml"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/gitlabtools/gl-lint/pkg/lint"
	"github.com/gitlabtools/gl-lint/pkg/logger"
)

var configLog = logger.New("cli:config")

//go:embed config_schema.json
var configSchemaJSON []byte

// configFileNames are probed in order in the working directory when no
// --config path is given.
var configFileNames = []string{
	".gl-lint.yml",
	".gl-lint.yaml",
	".gl-lint.json",
	".gl-lint.toml",
}

// fileConfig mirrors the on-disk configuration shape. Pointer fields
// distinguish "absent" from "false" so CLI flags can layer on top.
type fileConfig struct {
	StrictMode     *bool               `json:"strict_mode" yaml:"strict_mode" toml:"strict_mode"`
	FailOnWarnings *bool               `json:"fail_on_warnings" yaml:"fail_on_warnings" toml:"fail_on_warnings"`
	Categories     map[string]bool     `json:"categories" yaml:"categories" toml:"categories"`
	Rules          map[string]fileRule `json:"rules" yaml:"rules" toml:"rules"`
}

type fileRule struct {
	Enabled *bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
	Level   *string `json:"level" yaml:"level" toml:"level"`
}

// LoadConfig reads and validates the rule configuration. An explicit
// path must exist; with an empty path the standard file names are probed
// and a missing file just yields the zero configuration. The returned
// source is the path actually used, empty when none was found.
func LoadConfig(explicitPath string) (*lint.Config, string, error) {
	path := explicitPath
	if path == "" {
		path = discoverConfigFile()
		if path == "" {
			configLog.Print("No config file found, using defaults")
			return &lint.Config{}, "", nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading config file %s: %w", path, err)
	}

	config, err := parseConfig(path, data)
	if err != nil {
		return nil, "", err
	}
	configLog.Printf("Loaded config from %s", path)
	return config, path, nil
}

func discoverConfigFile() string {
	for _, name := range configFileNames {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

func parseConfig(path string, data []byte) (*lint.Config, error) {
	// Decode once into a generic value for schema validation, then into
	// the typed shape. The schema catches unknown keys, bad rule codes,
	// and invalid severity names with a precise message.
	var generic any
	var fc fileConfig
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		if err = yaml.Unmarshal(data, &generic); err == nil {
			err = yaml.Unmarshal(data, &fc)
		}
	case ".json":
		if err = json.Unmarshal(data, &generic); err == nil {
			err = json.Unmarshal(data, &fc)
		}
	case ".toml":
		var m map[string]any
		if err = toml.Unmarshal(data, &m); err == nil {
			if m != nil {
				generic = m
			}
			err = toml.Unmarshal(data, &fc)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	// An empty file means defaults; the schema would reject null.
	if generic == nil {
		return &lint.Config{}, nil
	}
	if err := validateConfigValue(generic); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return buildConfig(fc)
}

func validateConfigValue(value any) error {
	compiler := jsonschema.NewCompiler()
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(configSchemaJSON))
	if err != nil {
		return fmt.Errorf("loading config schema: %w", err)
	}
	if err := compiler.AddResource("gl-lint-config.schema.json", doc); err != nil {
		return fmt.Errorf("loading config schema: %w", err)
	}
	schema, err := compiler.Compile("gl-lint-config.schema.json")
	if err != nil {
		return fmt.Errorf("compiling config schema: %w", err)
	}
	return schema.Validate(value)
}

func buildConfig(fc fileConfig) (*lint.Config, error) {
	config := &lint.Config{}
	if fc.StrictMode != nil {
		config.StrictMode = *fc.StrictMode
	}
	if fc.FailOnWarnings != nil {
		config.FailOnWarnings = *fc.FailOnWarnings
	}

	if len(fc.Categories) > 0 {
		config.Categories = map[lint.Category]bool{}
		for name, enabled := range fc.Categories {
			config.Categories[lint.Category(name)] = enabled
		}
	}

	if len(fc.Rules) > 0 {
		config.Rules = map[string]lint.RuleOverride{}
		var errs []error
		for code, rule := range fc.Rules {
			override := lint.RuleOverride{Enabled: rule.Enabled}
			if rule.Level != nil {
				level, err := lint.ParseSeverity(*rule.Level)
				if err != nil {
					errs = append(errs, fmt.Errorf("rule %s: %w", code, err))
					continue
				}
				override.Level = &level
			}
			config.Rules[code] = override
		}
		if err := errors.Join(errs...); err != nil {
			return nil, err
		}
	}
	return config, nil
}
