package utils

import (
	"flag"
	"fmt"
	"log"
	"strings"
)

type options struct {
	maxDepth      uint
	contextDepth  uint
	workers       uint
	wideningDelay uint
	function      string
	outputFormat  string
	outputPath    string
	gopath        string
	modulePath    string
	skip          string
	configFile    string
	logLevel      string
	intra         bool
	noCrossCtx    bool
	metrics       bool
	noColorize    bool
	httpDebug     bool
	verbose       bool
	includeTests  bool
	visualize     bool
}

// Default values shared between flags and configuration files.
const (
	DefaultMaxCallStackDepth = 8
	DefaultContextDepth      = 2
	DefaultWideningDelay     = 3
)

// CanColorize wraps a colouring function such that it is bypassed when
// colourisation is disabled.
func CanColorize(col func(...interface{}) string) func(...interface{}) string {
	if opts.noColorize {
		return func(is ...interface{}) string {
			return fmt.Sprintf(strings.Repeat("%s", len(is)), is...)
		}
	}
	return col
}

var opts = &options{}

type optInterface struct{}

func Opts() optInterface {
	return optInterface{}
}

func (optInterface) NoColorize() bool {
	return opts.noColorize
}

// SetNoColorize toggles colourisation, e. g. when writing golden files or DOT labels.
func (optInterface) SetNoColorize(b bool) {
	opts.noColorize = b
}

func (optInterface) MaxCallStackDepth() int {
	return int(opts.maxDepth)
}

func (optInterface) ContextDepth() int {
	return int(opts.contextDepth)
}

func (optInterface) Workers() int {
	if opts.workers == 0 {
		return 1
	}
	return int(opts.workers)
}

func (optInterface) WideningDelay() int {
	return int(opts.wideningDelay)
}

func (optInterface) Function() string {
	return opts.function
}

func (optInterface) OutputFormat() string {
	return opts.outputFormat
}

func (optInterface) OutputPath() string {
	return opts.outputPath
}

func (optInterface) GoPath() string {
	return opts.gopath
}

func (optInterface) ModulePath() string {
	return opts.modulePath
}

func (optInterface) SkipPattern() string {
	return opts.skip
}

func (optInterface) ConfigFile() string {
	return opts.configFile
}

func (optInterface) LogLevel() string {
	return opts.logLevel
}

func (optInterface) Intraprocedural() bool {
	return opts.intra
}

func (optInterface) CrossContextReuse() bool {
	return !opts.noCrossCtx
}

func (optInterface) Metrics() bool {
	return opts.metrics
}

func (optInterface) HttpDebug() bool {
	return opts.httpDebug
}

func (optInterface) Verbose() bool {
	return opts.verbose
}

func (optInterface) IncludeTests() bool {
	return opts.includeTests
}

func (optInterface) Visualize() bool {
	return opts.visualize
}

func (optInterface) AnalyzeAllFuncs() bool {
	return opts.function == "."
}

func (optInterface) OnVerbose(do func()) {
	if Opts().Verbose() {
		do()
	}
}

// IsSet reports whether the flag with the given name was explicitly provided
// on the command line. Explicit flags take precedence over configuration files.
func (optInterface) IsSet(name string) (set bool) {
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return
}

func init() {
	flag.UintVar(&(opts.maxDepth), "max-depth", DefaultMaxCallStackDepth, "Maximum call stack depth before calls are reported as recursion limit overflows.")
	flag.UintVar(&(opts.contextDepth), "k", DefaultContextDepth, "Length of the call strings used as summary contexts.")
	flag.UintVar(&(opts.workers), "workers", 1, "Number of roots analyzed concurrently.")
	flag.UintVar(&(opts.wideningDelay), "widening-delay", DefaultWideningDelay, "Number of visits to a loop head before widening is applied.")
	flag.StringVar(&(opts.function), "fun", "main", "target a specific function.\n"+
		"- Function names need not be fully qualified w.r.t. package name. If a simple name is provided, "+
		"the first function matching that name is analyzed.\n"+
		"- Use '.' to analyze every function without callers in the loaded packages.\n")
	flag.StringVar(&(opts.outputFormat), "format", "svg", "output file format for -visualize [svg | png | jpg | dot]")
	flag.StringVar(&(opts.outputPath), "out", "absum-summaries", "output file name (without extension) for -visualize")
	flag.StringVar(&(opts.gopath), "gopath", ".", "specify GOPATH to be used for packages.Load")
	flag.StringVar(&(opts.modulePath), "modulepath", "", `specify a path to a directory containing a Go module.
- If provided this will make our code loading tools (that piggyback on Go's tools) run
in "module-aware" mode (GO111MODULE=on).`)
	flag.StringVar(&(opts.skip), "skip", "", "regular expression of function names that are never analyzed interprocedurally")
	flag.StringVar(&(opts.configFile), "config", "", "YAML configuration file. Explicit flags override its contents.")
	flag.StringVar(&(opts.logLevel), "log-level", "info", "log level [error | warn | info | debug | trace]")
	flag.BoolVar(&(opts.intra), "intra", false, "Treat every call as an unanalyzable black box")
	flag.BoolVar(&(opts.noCrossCtx), "no-cross-context", false, "Only reuse summaries computed for the same calling context")
	flag.BoolVar(&(opts.metrics), "metrics", false, "Enable collection of performance metrics")
	flag.BoolVar(&(opts.noColorize), "no-colorize", false, "Disable pretty printer colorization")
	flag.BoolVar(&(opts.verbose), "verbose", false, "enable verbose output")
	flag.BoolVar(&(opts.includeTests), "include-tests", false, "include test files in the analysis.")
	flag.BoolVar(&(opts.visualize), "visualize", false, "render the summary graph with graphviz")
	flag.BoolVar(&(opts.httpDebug), "http-debug", false, "Start an http server exposing pprof and prometheus metrics")

	log.SetFlags(log.Ltime | log.Lshortfile)
}

func ParseArgs() {
	// Calling flag.Parse in init messes up unit tests.
	flag.Parse()

	if opts.contextDepth == 0 {
		log.Fatalln("-k must be positive")
	}
	if opts.maxDepth == 0 {
		log.Fatalln("-max-depth must be positive")
	}
	if opts.outputFormat == "dot" {
		opts.noColorize = true
	}
}
