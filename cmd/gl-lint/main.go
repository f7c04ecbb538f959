package main

import (
	"os"

	"github.com/gitlabtools/gl-lint/pkg/cli"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	if err := cli.NewRootCommand(version).Execute(); err != nil {
		os.Exit(1)
	}
}
