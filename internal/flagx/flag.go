// Package flagx lets several components parse their own flags out of one
// shared command line without tripping over each other's flags.
package flagx

import (
	"flag"
	"strings"
)

// FilterArgs returns the subset of args made of the known flags and their
// values. valueFlags take a value ("-d dsn" or "-d=dsn"); boolFlags never
// consume the following argument. A flag may be spelled with one or two
// leading dashes regardless of how it is listed.
//
//	FilterArgs([]string{"export", "-d", "dsn", "-k", "m1"}, []string{"-d"}, "-k")
//	// []string{"-d", "dsn", "-k"}
func FilterArgs(args []string, valueFlags []string, boolFlags ...string) []string {
	takesValue := make(map[string]bool, len(valueFlags)+len(boolFlags))
	for _, f := range valueFlags {
		takesValue[normalize(f)] = true
	}
	for _, f := range boolFlags {
		takesValue[normalize(f)] = false
	}

	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			continue
		}

		name, _, hasValue := strings.Cut(arg, "=")
		value, known := takesValue[normalize(name)]
		if !known {
			continue
		}
		filtered = append(filtered, arg)

		if hasValue || !value {
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

func normalize(f string) string {
	return "-" + strings.TrimLeft(f, "-")
}

// ConfigFile extracts the JSON config path given with -c or -config.
// It returns "" when neither is present.
func ConfigFile(args []string) string {
	var config string

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&config, "config", "", "Path to config file")
	fs.StringVar(&config, "c", "", "Path to config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config"}))

	return config
}
