// Package testutil provides reusable testing helpers: architectural import
// guards and SQLite-backed registries for package tests.
package testutil

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// AssertNoTransitiveDependency loads the packages matching pattern (e.g. ./...
// or .) with their full dependency graph and fails the test if any dependency
// path satisfies the forbidden predicate.
func AssertNoTransitiveDependency(t testing.TB, pattern string, forbidden func(path string) bool, reason string) {
	t.Helper()
	viols, err := transitiveDependencyViolations(pattern, forbidden)
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	failIfTransitiveViolations(t, reason, viols)
}

// AssertImportedOnlyBy fails the test when a non-test package matching
// pattern imports a path satisfying target and is not itself allowed.
func AssertImportedOnlyBy(t testing.TB, pattern string, target func(importPath string) bool, allowed func(pkgPath string) bool, reason string) {
	t.Helper()
	viols, err := importerViolations(pattern, target, allowed)
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	failIfDirectViolations(t, reason, viols)
}

// AssertNoDirectImports scans all non-test .go files in dir (typically "." from within the package)
// and fails if any import path satisfies the forbidden predicate. It does not follow build tags.
func AssertNoDirectImports(t testing.TB, dir string, forbidden func(importPath string) bool, reason string) {
	t.Helper()
	viols, err := directImportViolations(dir, forbidden)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	failIfDirectViolations(t, reason, viols)
}

// DomainImportForbidden returns a predicate matching any import path that points to the domain package.
func DomainImportForbidden(path string) bool {
	return strings.HasSuffix(path, "/pkg/domain") || strings.Contains(path, "/pkg/domain@")
}

// InternalImportForbidden returns a predicate matching any import path containing /internal/.
func InternalImportForbidden(path string) bool {
	return strings.Contains(path, "/internal/")
}

// sqlDriverModules are the database/sql driver modules known to the repository.
var sqlDriverModules = []string{
	"github.com/jackc/pgx",
	"modernc.org/sqlite",
	"github.com/lib/pq",
	"github.com/mattn/go-sqlite3",
}

// SQLDriverImport matches import paths of SQL driver modules, including
// their subpackages.
func SQLDriverImport(path string) bool {
	for _, mod := range sqlDriverModules {
		if path == mod || strings.HasPrefix(path, mod+"/") {
			return true
		}
	}
	return false
}

// PersistenceAdapter matches the packages allowed to talk to SQL drivers.
func PersistenceAdapter(pkgPath string) bool {
	return strings.Contains(pkgPath, "/internal/infra/persistence/") || strings.HasSuffix(pkgPath, "/internal/infra/persistence")
}

var loadPackages = func(mode packages.LoadMode, pattern string) ([]*packages.Package, error) {
	return packages.Load(&packages.Config{Mode: mode}, pattern)
}

func transitiveDependencyViolations(pattern string, forbidden func(path string) bool) ([]string, error) {
	pkgs, err := loadPackages(packages.NeedName|packages.NeedImports|packages.NeedDeps, pattern)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var viols []string
	packages.Visit(pkgs, func(p *packages.Package) bool {
		if seen[p.PkgPath] {
			return false
		}
		seen[p.PkgPath] = true
		if forbidden(p.PkgPath) {
			viols = append(viols, p.PkgPath)
		}
		return true
	}, nil)
	sort.Strings(viols)
	return viols, nil
}

func importerViolations(pattern string, target func(string) bool, allowed func(string) bool) ([]string, error) {
	pkgs, err := loadPackages(packages.NeedName|packages.NeedImports, pattern)
	if err != nil {
		return nil, err
	}
	var viols []string
	for _, p := range pkgs {
		if allowed(p.PkgPath) {
			continue
		}
		for ip := range p.Imports {
			if target(ip) {
				viols = append(viols, ip+" (in "+p.PkgPath+")")
			}
		}
	}
	sort.Strings(viols)
	return viols, nil
}

func directImportViolations(dir string, forbidden func(importPath string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	var viols []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		path := filepath.Join(dir, name)
		fileAst, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return nil, err
		}
		for _, imp := range fileAst.Imports {
			ip := strings.Trim(imp.Path.Value, "\"")
			if forbidden(ip) {
				viols = append(viols, ip+" (in "+name+")")
			}
		}
	}
	return viols, nil
}

type fatalLogger interface {
	Fatalf(format string, args ...any)
}

func failIfTransitiveViolations(t fatalLogger, reason string, viols []string) {
	if len(viols) > 0 {
		t.Fatalf("forbidden transitive dependency detected (%s):\n%s", reason, strings.Join(viols, "\n"))
	}
}

func failIfDirectViolations(t fatalLogger, reason string, viols []string) {
	if len(viols) > 0 {
		t.Fatalf("forbidden direct imports detected (%s):\n%s", reason, strings.Join(viols, "\n"))
	}
}
