package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/asheshgoplani/agent-history/internal/service"
)

// normalizeArgs reorders args so flags come before positional arguments.
// Go's flag package stops parsing at the first non-flag argument, which means
// "search deploy --json" silently ignores --json. This function moves all
// flags to the front so they get parsed correctly.
func normalizeArgs(fs *flag.FlagSet, args []string) []string {
	// Build set of known boolean flags (don't need a value argument)
	boolFlags := make(map[string]bool)
	fs.VisitAll(func(f *flag.Flag) {
		if bf, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && bf.IsBoolFlag() {
			boolFlags[f.Name] = true
		}
	})

	var flags, positional []string
	for i := 0; i < len(args); i++ {
		arg := args[i]

		// "--" terminates flag processing
		if arg == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}

		if strings.HasPrefix(arg, "-") && arg != "-" {
			flags = append(flags, arg)

			// Determine flag name (strip leading dashes)
			name := strings.TrimLeft(arg, "-")

			// Handle --flag=value (value is part of the arg, nothing to move)
			if strings.Contains(name, "=") {
				continue
			}

			// If it's not a bool flag, the next arg is its value
			if !boolFlags[name] && i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
		} else {
			positional = append(positional, arg)
		}
	}
	return append(flags, positional...)
}

// argFlags binds command-line flags to service argument names. Flags are
// the argument names with "_" spelled "-" (max_content -> --max-content).
type argFlags struct {
	fs     *flag.FlagSet
	values map[string]*string
	bools  map[string]*bool
	json   *bool
}

func newArgFlags(name string, stderr io.Writer) *argFlags {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return &argFlags{
		fs:     fs,
		values: make(map[string]*string),
		bools:  make(map[string]*bool),
		json:   fs.Bool("json", false, "Output as JSON"),
	}
}

func flagName(arg string) string {
	return strings.ReplaceAll(arg, "_", "-")
}

func (a *argFlags) String(arg, usage string) {
	a.values[arg] = a.fs.String(flagName(arg), "", usage)
}

func (a *argFlags) Bool(arg, usage string) {
	a.bools[arg] = a.fs.Bool(flagName(arg), false, usage)
}

func (a *argFlags) Parse(args []string) error {
	return a.fs.Parse(normalizeArgs(a.fs, args))
}

// Positional returns the non-flag arguments joined by spaces.
func (a *argFlags) Positional() string {
	return strings.Join(a.fs.Args(), " ")
}

// Args returns the arguments that were given a value.
func (a *argFlags) Args() service.Args {
	args := make(service.Args)
	for k, v := range a.values {
		if strings.TrimSpace(*v) != "" {
			args[k] = *v
		}
	}
	for k, v := range a.bools {
		if *v {
			args[k] = "true"
		}
	}
	return args
}

// parseFlags parses args and reports whether the command should stop,
// with its exit code.
func parseFlags(a *argFlags, args []string) (int, bool) {
	if err := a.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0, true
		}
		return 1, true
	}
	return 0, false
}

// CLIOutput handles consistent output formatting across all CLI commands
type CLIOutput struct {
	jsonMode bool
	stdout   io.Writer
	stderr   io.Writer
}

// NewCLIOutput creates a new CLI output handler
func NewCLIOutput(jsonMode bool, stdout, stderr io.Writer) *CLIOutput {
	return &CLIOutput{jsonMode: jsonMode, stdout: stdout, stderr: stderr}
}

// Print renders data human-readably or as JSON.
func (c *CLIOutput) Print(render func(io.Writer), jsonData any) {
	if c.jsonMode {
		c.printJSON(jsonData)
		return
	}
	render(c.stdout)
}

// Error prints err as "Error: <message>" on stderr, or as the JSON error
// body on stdout, and returns the exit code.
func (c *CLIOutput) Error(err error) int {
	body := service.NewErrorBody(err)
	if c.jsonMode {
		c.printJSON(body)
		return 1
	}
	fmt.Fprintf(c.stderr, "Error: %s\n", body.Message)
	if len(body.Available) > 0 {
		fmt.Fprintln(c.stderr, "Available projects:")
		for i, p := range body.Available {
			if i == maxAvailableShown {
				fmt.Fprintf(c.stderr, "  %s %d more\n", bulletSymbol, len(body.Available)-i)
				break
			}
			fmt.Fprintf(c.stderr, "  %s %s (%s)\n", bulletSymbol, p.ID, p.Path)
		}
	}
	return 1
}

// printJSON marshals and prints JSON data
func (c *CLIOutput) printJSON(data any) {
	output, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: failed to format JSON: %v\n", err)
		return
	}
	fmt.Fprintln(c.stdout, string(output))
}

const maxAvailableShown = 10

// Symbols for human-readable output
const (
	anchorSymbol = "▶"
	bulletSymbol = "•"
)
