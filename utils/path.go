package utils

import (
	"flag"
)

// PackagePatterns returns the package patterns to load. The non-flag
// arguments passed to absum are the target packages. If none are provided,
// every package below the working (or module) directory is loaded.
func PackagePatterns() []string {
	if args := flag.Args(); len(args) > 0 {
		return args
	}
	return []string{"./..."}
}
