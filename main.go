package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/cs-au-dk/absum/analysis/absint"
	"github.com/cs-au-dk/absum/analysis/absint/ops"
	"github.com/cs-au-dk/absum/analysis/cfg"
	"github.com/cs-au-dk/absum/analysis/checker"
	"github.com/cs-au-dk/absum/analysis/config"
	"github.com/cs-au-dk/absum/analysis/filter"
	"github.com/cs-au-dk/absum/analysis/frontend"
	L "github.com/cs-au-dk/absum/analysis/lattice"
	"github.com/cs-au-dk/absum/pkgutil"
	"github.com/cs-au-dk/absum/utils"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/tools/go/ssa/ssautil"

	"net/http"
	_ "net/http/pprof"
)

var opts = utils.Opts()

// Exit codes.
const (
	exitOK = iota
	exitError
	exitAssertionFailed
)

func main() {
	utils.ParseArgs()
	os.Exit(run())
}

func run() int {
	conf, err := config.FromFlags()
	if err != nil {
		logrus.WithError(err).Error("invalid configuration")
		return exitError
	}
	if err := utils.SetLogLevel(conf.LogLevel); err != nil {
		utils.Logger().WithError(err).Warn("unknown log level")
	}
	log := logrus.NewEntry(utils.Logger())

	if opts.HttpDebug() {
		http.Handle("/metrics", promhttp.Handler())
		go func() {
			log.WithError(http.ListenAndServe("localhost:6060", nil)).Warn("debug server stopped")
		}()
	}

	patterns := utils.PackagePatterns()
	prog, pkgs, err := pkgutil.LoadProgram(pkgutil.LoadConfig{
		GoPath:       opts.GoPath(),
		ModulePath:   opts.ModulePath(),
		IncludeTests: opts.IncludeTests(),
	}, patterns...)
	if err != nil {
		log.WithError(err).Errorf("failed to load %s", strings.Join(patterns, " "))
		return exitError
	}

	mains := ssautil.MainPackages(pkgs)
	if len(mains) == 0 {
		mains = pkgs
	}
	local, err := pkgutil.GetLocalPackages(mains, pkgutil.AllPackages(prog), log)
	if err != nil {
		log.WithError(err).Error("no packages to analyze")
		return exitError
	}

	fe := frontend.New(prog, frontend.Options{Local: local.IsLocal, Log: log})

	roots, err := findRoots(fe, conf)
	if err != nil {
		log.WithError(err).Error("no roots to analyze")
		return exitError
	}

	reports := checker.NewManager[L.AccessPathMap](log,
		checker.AssertChecker{Verbose: opts.Verbose()},
		checker.ReturnRangeChecker{},
	)

	var metrics *absint.Metrics
	if opts.Metrics() {
		metrics = absint.NewMetrics()
	}

	actx := &absint.AnalysisContext[L.AccessPathMap]{
		Program:  fe.Program(),
		Graphs:   fe.Graphs(),
		Filter:   filter.NewManager(conf.SkipPatterns(), conf.SkipBodiless),
		Checkers: reports,
		Config:   conf.AnalysisConfig(),
		Log:      log,
		Metrics:  metrics,
	}
	transformer := ops.NewTransformer(func(f *cfg.Function) L.AccessPathMap {
		if entry := conf.EntryState(f.Name()); !entry.IsTop() {
			return entry
		}
		if fn, ok := fe.SSA(f); ok {
			return conf.EntryState(fn.Name())
		}
		return L.NewAccessPathMap()
	})

	var analyzer *absint.Analyzer[L.AccessPathMap]
	if conf.Intraprocedural {
		analyzer = absint.NewIntraAnalyzer[L.AccessPathMap](actx, transformer)
	} else {
		analyzer = absint.NewAnalyzer[L.AccessPathMap](actx, transformer, ops.SummaryFactory{})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	err = analyzer.AnalyzeAll(ctx, roots)
	utils.TimeTrack(start, "analysis")
	if err != nil {
		log.WithError(err).Error("analysis failed")
		return exitError
	}

	opts.OnVerbose(func() { printSummaries(analyzer) })

	for _, r := range reports.Reports() {
		fmt.Println(r)
	}

	gatherMetrics(fe, metrics)

	if opts.Visualize() {
		out, err := analyzer.Visualize(opts.OutputPath(), opts.OutputFormat())
		if err != nil {
			log.WithError(err).Error("rendering summary graph failed")
			return exitError
		}
		log.WithField("file", out).Info("summary graph written")
	}

	if reports.Count(checker.Error) > 0 {
		return exitAssertionFailed
	}
	return exitOK
}

var errNoRoots = errors.New("no matching functions")

// findRoots selects the roots from the configuration, or else from the -fun
// flag. With "-fun ." every function without callers is a root.
func findRoots(fe *frontend.Frontend, conf *config.Config) ([]*cfg.Function, error) {
	var roots []*cfg.Function

	names := conf.Roots
	switch {
	case len(names) > 0:
	case opts.AnalyzeAllFuncs():
		roots = fe.Roots()
	default:
		names = []string{opts.Function()}
	}

	for _, name := range names {
		f, found := fe.Lookup(name)
		if !found {
			return nil, fmt.Errorf("%w: %s", errNoRoots, name)
		}
		roots = append(roots, f)
	}

	if opts.IncludeTests() {
		for _, fn := range pkgutil.TestFunctions(fe.SSAProgram()) {
			if f, found := fe.Function(fn); found {
				roots = append(roots, f)
			}
		}
	}

	if len(roots) == 0 {
		return nil, errNoRoots
	}
	return roots, nil
}

func printSummaries(analyzer *absint.Analyzer[L.AccessPathMap]) {
	manager := analyzer.Summaries()
	for _, method := range manager.Methods() {
		fmt.Println(method)
		for _, s := range manager.Summaries(method) {
			fmt.Println("  " + s.String())
		}
	}

	if groups := analyzer.RecursionGroups().Groups(); len(groups) > 0 {
		fmt.Println("Recursion groups:")
		for _, group := range groups {
			names := make([]string, len(group))
			for i, f := range group {
				names[i] = f.String()
			}
			fmt.Println("  {" + strings.Join(names, ", ") + "}")
		}
	}
}
