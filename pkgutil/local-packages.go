package pkgutil

import (
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/tools/go/ssa"
)

// LocalPackages is the set of packages sharing a path prefix with the
// analyzed packages. Only their functions have their bodies analyzed.
type LocalPackages map[*ssa.Package]bool

func pkgQualifiedPath(pkg *ssa.Package) []string {
	path := strings.Split(strings.TrimSuffix(pkg.Pkg.Path(), ".test"), "/")

	if path[0] == "vendor" {
		path = path[1:]
	}

	return path
}

// GetLocalPackages collects the packages whose path agrees with the path of
// the main package on the first three segments.
func GetLocalPackages(mains []*ssa.Package, pkgs []*ssa.Package, log *logrus.Entry) (LocalPackages, error) {
	if len(mains) == 0 {
		return nil, errors.New("gather local packages error: no packages found")
	}

	local := make(LocalPackages)
	mp := GetMain(mains)
	if mp == nil {
		// If there is no non-test main package, just pick one of the test
		// packages.
		mp = mains[0]
	}

	mainpath := pkgQualifiedPath(mp)

	for _, p := range pkgs {
		pkgpath := pkgQualifiedPath(p)
		isLocal := true
		for i := 0; isLocal && i < 3 && i < len(mainpath) && i < len(pkgpath); i++ {
			isLocal = isLocal && mainpath[i] == pkgpath[i]
		}
		if isLocal {
			local[p] = true
		}
	}

	if log != nil && log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		for p := range local {
			log.WithField("package", p.Pkg.Path()).Debug("local package")
		}
	}

	return local, nil
}

// IsLocal reports whether the function belongs to a local package. Synthetic
// functions without a package, e.g. wrappers, follow their origin.
func (l LocalPackages) IsLocal(fun *ssa.Function) bool {
	if fun == nil {
		return false
	}
	if fun.Pkg != nil {
		return l[fun.Pkg]
	}
	if origin := fun.Origin(); origin != nil && origin != fun {
		return l.IsLocal(origin)
	}
	if fun.Parent() != nil {
		return l.IsLocal(fun.Parent())
	}
	return false
}
