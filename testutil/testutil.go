// Package testutil loads test programs from source and extracts the
// expectations written as notes in their comments.
package testutil

import (
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"testing"

	"github.com/cs-au-dk/absum/utils"

	"github.com/sebdah/goldie/v2"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// LoadResult is a package built from source.
type LoadResult struct {
	Fset  *token.FileSet
	Files []*ast.File
	Pkg   *ssa.Package
	// Prog is the SSA representation of the entire program.
	Prog *ssa.Program
}

// LoadPackageFromSource type checks and builds a single-file package.
// Imports are resolved from the export data of the standard library.
func LoadPackageFromSource(t *testing.T, importPath, filename, content string) LoadResult {
	t.Helper()

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, content, parser.ParseComments)
	if err != nil {
		t.Fatal(err)
	}

	files := []*ast.File{file}
	pkg := types.NewPackage(importPath, file.Name.Name)
	spkg, _, err := ssautil.BuildPackage(
		&types.Config{Importer: importer.Default()},
		fset, pkg, files,
		ssa.SanityCheckFunctions|ssa.InstantiateGenerics,
	)
	if err != nil {
		t.Fatal(err)
	}

	return LoadResult{Fset: fset, Files: files, Pkg: spkg, Prog: spkg.Prog}
}

// LoadPackageFromFile is LoadPackageFromSource on the contents of a file.
func LoadPackageFromFile(t *testing.T, importPath, path string) LoadResult {
	t.Helper()

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return LoadPackageFromSource(t, importPath, path, string(content))
}

// Golden returns a golden file checker for the testdata directory. Colours
// are disabled so that the files are plain text.
func Golden(t *testing.T) *goldie.Goldie {
	utils.Opts().SetNoColorize(true)
	return goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
}
