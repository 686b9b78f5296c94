package pkgutil

import (
	"go/types"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/tools/go/ssa"
)

// CheckPkgInGoroot checks whether a package is declared in GOROOT.
func CheckPkgInGoroot(pkg *types.Package) bool {
	path := filepath.Join(runtime.GOROOT(), "src", pkg.Path())
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		return true
	}
	return false
}

// CheckInGoroot is true iff. the function is in a package declared in GOROOT.
func CheckInGoroot(fun *ssa.Function) bool {
	return fun != nil && fun.Pkg != nil &&
		CheckPkgInGoroot(fun.Pkg.Pkg)
}

// GetMain picks the main package with the most members, skipping test
// packages.
func GetMain(mains []*ssa.Package) (main *ssa.Package) {
	for _, mp := range mains {
		if strings.HasSuffix(mp.String(), ".test") {
			continue
		}
		if main == nil || len(main.Members) < len(mp.Members) {
			main = mp
		}
	}
	return
}

// AllPackages returns the non-test packages of the program. When a package
// is present several times, the version with the most members is kept.
func AllPackages(prog *ssa.Program) []*ssa.Package {
	mp := make(map[string]*ssa.Package)

	for _, pkg := range prog.AllPackages() {
		if strings.HasSuffix(pkg.String(), ".test") {
			continue
		}

		opkg, ok := mp[pkg.String()]
		if !ok || len(pkg.Members) > len(opkg.Members) {
			mp[pkg.String()] = pkg
		}
	}

	res := make([]*ssa.Package, 0, len(mp))
	for _, pkg := range mp {
		res = append(res, pkg)
	}

	return res
}
