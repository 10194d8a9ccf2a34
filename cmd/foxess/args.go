package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

// UserError is a failure caused by how the tool was invoked or by the state
// of the account rather than by the API.
type UserError struct {
	Msg string
	// Bare errors are printed without the "Error: " prefix.
	Bare bool
	// Usage errors are followed by the usage text.
	Usage bool
}

func (e *UserError) Error() string {
	return e.Msg
}

var errNoDevices = &UserError{Msg: "No devices found for this account", Bare: true}

type options struct {
	apiKey      string
	debug       bool
	test        bool
	all         bool
	decimals    int
	decimalsSet bool
	configPath  string
	textfile    string
	variables   []string
}

// newFlagSet returns a silent flag set. Parse errors are reported by run and
// the usage text is printed by usage.
func newFlagSet(opts *options) *flag.FlagSet {
	fs := flag.NewFlagSet("foxess", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	fs.BoolVar(&opts.debug, "debug", false, "Enable debug output")
	fs.BoolVar(&opts.test, "test", false, "Test the API key only")
	fs.BoolVar(&opts.all, "all", false, "Show all available variables")
	fs.IntVar(&opts.decimals, "decimals", 2, "Set decimal places for numeric output")
	fs.StringVar(&opts.configPath, "config", "", "Path to a YAML config file (default $FOXESS_CONFIG)")
	fs.StringVar(&opts.textfile, "textfile", "", "Also write the real-time data as a Prometheus textfile to this path")
	return fs
}

type boolFlag interface {
	IsBoolFlag() bool
}

// parseArgs separates the positional API key and the open ended
// --<variableName> flags from the known flags, which may appear anywhere.
func parseArgs(args []string) (options, error) {
	var opts options
	fs := newFlagSet(&opts)

	var known, positional []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			positional = append(positional, arg)
			continue
		}

		name, _, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		f := fs.Lookup(name)
		if f == nil {
			if name != "help" && name != "h" && strings.HasPrefix(arg, "--") && len(arg) > 2 {
				opts.variables = append(opts.variables, arg[2:])
				continue
			}
			// let the flag set report it
			known = append(known, arg)
			continue
		}
		known = append(known, arg)
		if bf, ok := f.Value.(boolFlag); ok && bf.IsBoolFlag() {
			continue
		}
		if !hasValue && i+1 < len(args) {
			i++
			known = append(known, args[i])
		}
	}

	if err := fs.Parse(known); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return opts, err
		}
		return opts, &UserError{Msg: err.Error(), Usage: true}
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "decimals" {
			opts.decimalsSet = true
		}
	})

	switch len(positional) {
	case 0:
	case 1:
		opts.apiKey = positional[0]
	default:
		return opts, &UserError{Msg: fmt.Sprintf("unexpected argument: %s", positional[1])}
	}

	if opts.decimalsSet && opts.decimals < 0 {
		return opts, &UserError{Msg: "--decimals must not be negative"}
	}
	if opts.all && len(opts.variables) > 0 {
		return opts, &UserError{Msg: "cannot combine --all with variable flags"}
	}
	return opts, nil
}

func usage(w io.Writer) {
	var opts options
	fs := newFlagSet(&opts)
	fs.SetOutput(w)
	fmt.Fprintln(w, "usage: foxess [flags] <api_key> [--<variableName> ...]")
	fmt.Fprintln(w, "foxess - Command line tool to query FoxESS energy data")
	fmt.Fprintln(w)
	fs.PrintDefaults()
}

func isHelp(err error) bool {
	return errors.Is(err, flag.ErrHelp)
}
