// SPDX-License-Identifier: MIT

// validate is a CLI tool to validate MetaCURE run configuration files.
//
// Usage:
//
//	validate -f config.yaml
//	validate -f config.yaml -strict -print
//
// Exit codes:
//   - 0: Configuration is valid
//   - 1: Configuration is invalid (parse or validation error)
//   - 2: Usage error (missing required flag)
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/virajmehta/MetaCURE-Public/internal/config"
	"github.com/virajmehta/MetaCURE-Public/internal/log"
	"github.com/virajmehta/MetaCURE-Public/internal/model"
	"github.com/virajmehta/MetaCURE-Public/internal/validate"
	"github.com/virajmehta/MetaCURE-Public/internal/version"
)

func main() {
	// .env is optional developer convenience; real ENV always wins.
	_ = godotenv.Load()

	var (
		file        string
		strict      bool
		printCfg    bool
		showVersion bool
	)

	flag.StringVar(&file, "file", "", "path to YAML run configuration")
	flag.StringVar(&file, "f", "", "path to YAML run configuration (shorthand)")
	flag.BoolVar(&strict, "strict", false, "also check that data_source and save_dir are reachable")
	flag.BoolVar(&printCfg, "print", false, "print the resolved config (masked) as YAML to stdout")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version.Version)
		os.Exit(0)
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "Error: --file is required")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  validate -f config.yaml")
		fmt.Fprintln(os.Stderr, "  validate -f config.yaml -strict -print")
		os.Exit(2)
	}

	log.Configure(log.Config{Format: "console", Service: "validate", Version: version.Version})

	// Load resolves defaults, file and ENV, then validates structurally.
	// A ValidationError means the YAML parsed fine but the values are bad.
	cfg, err := config.Load(file, version.Version)
	if err != nil {
		var verr validate.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintf(os.Stderr, "Validation error in %s:\n", file)
		} else {
			fmt.Fprintf(os.Stderr, "Configuration error in %s:\n", file)
		}
		fmt.Fprintf(os.Stderr, "  %v\n", err)
		os.Exit(1)
	}

	// The model target must resolve against the registry.
	if _, err := model.Resolve(cfg.Model.Target); err != nil {
		fmt.Fprintf(os.Stderr, "Validation error in %s:\n", file)
		fmt.Fprintf(os.Stderr, "  model.target: %v\n", err)
		os.Exit(1)
	}

	if strict {
		if err := config.ValidateStrict(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Strict validation error in %s:\n", file)
			fmt.Fprintf(os.Stderr, "  %v\n", err)
			os.Exit(1)
		}
	}

	if printCfg {
		out, err := yaml.Marshal(config.ToFileConfig(config.Masked(cfg)))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot render config: %v\n", err)
			os.Exit(1)
		}
		_, _ = os.Stdout.Write(out)
		// Keep stdout clean YAML when piping.
		fmt.Fprintf(os.Stderr, "✓ %s is valid\n", file)
		return
	}

	fmt.Printf("✓ %s is valid\n", file)
}
