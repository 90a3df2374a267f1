package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
)

const (
	cmdCompare = "compare"
	cmdServe   = "serve"
	cmdWatch   = "watch"
	cmdHistory = "history"
)

type AppFlags struct {
	Command          string
	GlobalConfigFile string
	IgnoreWhitespace bool
	IgnoreEmptyLines bool
	CaseInsensitive  bool
	JSONOutput       bool
	ClearHistory     bool
	Files            []string
}

var errUsage = errors.New("usage: filecompare <compare|serve|watch|history> [flags] [fileA fileB]")

// ParseFlags parses args (without the program name) into AppFlags.
func ParseFlags(args []string, output io.Writer) (AppFlags, error) {
	if len(args) == 0 {
		return AppFlags{}, errUsage
	}

	flags := AppFlags{Command: args[0]}
	fs := flag.NewFlagSet(flags.Command, flag.ContinueOnError)
	fs.SetOutput(output)

	globalConfigFile := fs.String("config", "", "Path to the global YAML/JSON/TOML configuration file. If not set, searches default locations.")
	globalConfigFileAlias := fs.String("c", "", "Alias for -config")

	switch flags.Command {
	case cmdCompare, cmdWatch:
		fs.BoolVar(&flags.IgnoreWhitespace, "ignore-whitespace", false, "Treat lines differing only in whitespace as equal")
		fs.BoolVar(&flags.IgnoreEmptyLines, "ignore-empty-lines", false, "Drop blank lines before comparing")
		fs.BoolVar(&flags.CaseInsensitive, "case-insensitive", false, "Compare lines ignoring case")
		fs.BoolVar(&flags.JSONOutput, "json", false, "Print the full comparison result as JSON")
	case cmdHistory:
		fs.BoolVar(&flags.ClearHistory, "clear", false, "Remove every stored comparison")
		fs.BoolVar(&flags.JSONOutput, "json", false, "Print history as JSON")
	case cmdServe:
	default:
		return AppFlags{}, fmt.Errorf("unknown command %q: %w", flags.Command, errUsage)
	}

	if err := fs.Parse(args[1:]); err != nil {
		return AppFlags{}, err
	}

	if *globalConfigFile != "" {
		flags.GlobalConfigFile = *globalConfigFile
	} else if *globalConfigFileAlias != "" {
		flags.GlobalConfigFile = *globalConfigFileAlias
	}

	flags.Files = fs.Args()
	switch flags.Command {
	case cmdCompare, cmdWatch:
		if len(flags.Files) != 2 {
			return AppFlags{}, fmt.Errorf("%s requires exactly two files, got %d", flags.Command, len(flags.Files))
		}
	default:
		if len(flags.Files) != 0 {
			return AppFlags{}, fmt.Errorf("%s takes no file arguments", flags.Command)
		}
	}

	return flags, nil
}
