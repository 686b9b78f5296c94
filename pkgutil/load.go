package pkgutil

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"regexp"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

var (
	// ErrNoPackages is returned when a query matches no packages.
	ErrNoPackages = errors.New("no packages matched")
	// ErrLoad is returned when the loaded packages contain errors.
	ErrLoad = errors.New("errors encountered while loading packages")
)

// LoadConfig is a structure according to which Go package loading is configured.
// It loads a package in module-aware mode, or GOPATH mode based on how the .GoPath
// and .ModulePath fields are set. If IncludeTests is true, package loading will also
// expose test functions.
type LoadConfig struct {
	GoPath, ModulePath string
	IncludeTests       bool
}

// loadMode avoids deprecation warnings from using packages.LoadAllSyntax.
// It sets all packages.Need* options.
const loadMode packages.LoadMode = packages.NeedName | packages.NeedFiles | packages.NeedCompiledGoFiles |
	packages.NeedImports | packages.NeedTypes | packages.NeedTypesSizes | packages.NeedSyntax |
	packages.NeedTypesInfo | packages.NeedDeps

var (
	// moduleRegex is a regular expression according to which a go.mod file can be parsed.
	moduleRegex = regexp.MustCompile(`(?m)^module\s+(.*)$`)

	// cwd is the working directory at startup.
	cwd = func() string {
		dir, err := os.Getwd()
		if err != nil {
			panic(err)
		}
		return dir
	}()
)

// relativizingParseFile is a ParseFile implementation that relativizes
// filenames according to CWD. This is an easy way to globally make paths
// system agnostic, which is useful for golden tests involving file paths.
// The alternative is to manually relativize paths at every location we
// print one, but that is made difficult by us relying on built-in
// implementations of String methods, which we would have to circumvent.
func relativizingParseFile(fset *token.FileSet, filename string, src []byte) (*ast.File, error) {
	if rel, err := filepath.Rel(cwd, filename); err == nil {
		filename = rel
	}
	const mode = parser.AllErrors | parser.ParseComments
	return parser.ParseFile(fset, filename, src, mode)
}

// LoadPackages loads the packages matching the queries according to the provided LoadConfig.
func LoadPackages(cfg LoadConfig, queries ...string) ([]*packages.Package, error) {
	gopath, err := filepath.Abs(cfg.GoPath)
	if err != nil {
		return nil, err
	}

	config := &packages.Config{
		Mode:      loadMode,
		Tests:     cfg.IncludeTests,
		ParseFile: relativizingParseFile,
	}

	if modulePath := cfg.ModulePath; modulePath != "" {
		// Load packages according to the new "module-aware" mode (GO111MODULE=on).
		pkgPath, err := filepath.Abs(modulePath)
		if err != nil {
			return nil, err
		}

		contents, err := os.ReadFile(filepath.Join(pkgPath, "go.mod"))
		if err != nil {
			return nil, fmt.Errorf("unable to load go.mod at %s: %w", modulePath, err)
		}

		m := moduleRegex.FindSubmatch(contents)
		if len(m) <= 1 {
			return nil, fmt.Errorf("unable to locate module name in %s/go.mod", modulePath)
		}

		config.Dir = pkgPath
		config.Env = append(os.Environ(), "GOPATH="+gopath, "GO111MODULE=on")
	} else {
		// Load packages according to the legacy "module-unaware" mode (GO111MODULE=off).
		config.Env = append(os.Environ(), "GOPATH="+gopath, "GO111MODULE=off")
	}

	return loadPackagesWithConfig(config, queries...)
}

// LoadProgram loads the packages and builds their SSA program. The
// returned packages are the SSA versions of the queried packages.
func LoadProgram(cfg LoadConfig, queries ...string) (*ssa.Program, []*ssa.Package, error) {
	pkgs, err := LoadPackages(cfg, queries...)
	if err != nil {
		return nil, nil, err
	}

	prog, spkgs := ssautil.AllPackages(pkgs, ssa.InstantiateGenerics)
	prog.Build()

	res := make([]*ssa.Package, 0, len(spkgs))
	for _, p := range spkgs {
		if p != nil {
			res = append(res, p)
		}
	}
	if len(res) == 0 {
		return nil, nil, fmt.Errorf("%w: %v", ErrNoPackages, queries)
	}
	return prog, res, nil
}

// loadPackagesWithConfig wraps around packages.Load, that loads the packages specified
// by `queries` according to the given configuration, and performs additional filtering when
// loading includes test packages.
func loadPackagesWithConfig(config *packages.Config, queries ...string) ([]*packages.Package, error) {
	pkgs, err := packages.Load(config, queries...)
	if err != nil {
		return nil, err
	}
	var loadErrs []error
	packages.Visit(pkgs, nil, func(pkg *packages.Package) {
		for _, e := range pkg.Errors {
			loadErrs = append(loadErrs, e)
		}
	})
	if len(loadErrs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrLoad, errors.Join(loadErrs...))
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrNoPackages, queries)
	}
	if config.Tests {
		// Deduplicate packages that have test functions (such packages are
		// returned twice, once with no tests and once with tests. We discard
		// the package without tests.) This prevents duplicate versions of the
		// same types, functions, ssa values, etc., which can be very confusing
		// when debugging.
		packageIDs := map[string]bool{}
		for _, pkg := range pkgs {
			packageIDs[pkg.ID] = true
		}

		filteredPkgs := []*packages.Package{}
		for _, pkg := range pkgs {
			if !packageIDs[fmt.Sprintf("%s [%s.test]", pkg.ID, pkg.ID)] {
				filteredPkgs = append(filteredPkgs, pkg)
			}
		}
		pkgs = filteredPkgs
	}
	return pkgs, nil
}
