// Package flagx lets several components share one argument list, each
// parsing only the flags it defines.
package flagx

import (
	"flag"
	"io"
	"strings"
)

type boolFlag interface {
	IsBoolFlag() bool
}

// FilterArgs returns the subset of args that names a flag defined in fs,
// together with its value.
//
// Supported forms, with one or two leading dashes:
//
//	-d data         separate value
//	--data-dir=data combined with '='
//	-seed           boolean flag, never consumes the next token
//
// A separate value is only taken when it does not itself start with '-'.
func FilterArgs(args []string, fs *flag.FlagSet) []string {
	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			continue
		}

		name := strings.TrimLeft(arg, "-")
		name, _, hasValue := strings.Cut(name, "=")

		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		filtered = append(filtered, arg)
		if hasValue {
			continue
		}
		if bf, ok := f.Value.(boolFlag); ok && bf.IsBoolFlag() {
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

// ConfigPath returns the JSON config file named by -c or -config in args, or
// "" when neither is present. The last occurrence wins.
func ConfigPath(args []string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "path to JSON config file")
	fs.StringVar(&path, "c", "", "path to JSON config file (short)")
	_ = fs.Parse(FilterArgs(args, fs))

	return path
}
