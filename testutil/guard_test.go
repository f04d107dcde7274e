package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testForbiddenImport = "some/forbidden/package"

type recordingT struct {
	msg string
}

func (r *recordingT) Fatalf(format string, args ...any) {
	r.msg = format
}

func TestPredicates(t *testing.T) {
	cases := []struct {
		name string
		fn   func(string) bool
		in   string
		want bool
	}{
		{"domain", DomainImportForbidden, "rococodb/pkg/domain", true},
		{"domain version", DomainImportForbidden, "something/pkg/domain@v1.2.3", true},
		{"domain sub", DomainImportForbidden, "example.com/pkg/domain/subpackage", false},
		{"domain similar", DomainImportForbidden, "example.com/pkg/domainutil", false},
		{"internal", InternalImportForbidden, "rococodb/internal/database", true},
		{"internal tail", InternalImportForbidden, "example.com/internal", false},
		{"pgx stdlib", SQLDriverImport, "github.com/jackc/pgx/v5/stdlib", true},
		{"modernc", SQLDriverImport, "modernc.org/sqlite", true},
		{"modernc lib", SQLDriverImport, "modernc.org/sqlite/lib", true},
		{"database/sql", SQLDriverImport, "database/sql", false},
		{"pgx lookalike", SQLDriverImport, "github.com/jackc/pgxlisten", false},
		{"persistence root", PersistenceAdapter, "rococodb/internal/infra/persistence", true},
		{"persistence sqlite", PersistenceAdapter, "rococodb/internal/infra/persistence/sqlite", true},
		{"database", PersistenceAdapter, "rococodb/internal/database", false},
	}
	for _, c := range cases {
		if got := c.fn(c.in); got != c.want {
			t.Fatalf("%s: predicate(%q)=%v want %v", c.name, c.in, got, c.want)
		}
	}
}

func writeGo(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestDirectImportViolations(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "main.go", "package tmp\nimport (\n\t\"fmt\"\n\talias \"context\"\n)\nfunc X() { fmt.Println(alias.Background()) }\n")
	writeGo(t, dir, "main_test.go", "package tmp\nimport \""+testForbiddenImport+"\"\n")
	writeGo(t, dir, "readme.txt", "import \""+testForbiddenImport+"\"")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeGo(t, filepath.Join(dir, "sub"), "sub.go", "package sub\nimport \""+testForbiddenImport+"\"\n")

	AssertNoDirectImports(t, dir, func(p string) bool { return p == testForbiddenImport }, "test files, subdirectories and non-Go files are skipped")

	viols, err := directImportViolations(dir, func(p string) bool { return p == "context" })
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || viols[0] != "context (in main.go)" {
		t.Fatalf("unexpected violations %v", viols)
	}
}

func TestFailIfViolations(t *testing.T) {
	rec := &recordingT{}
	failIfDirectViolations(rec, "r", nil)
	failIfTransitiveViolations(rec, "r", nil)
	if rec.msg != "" {
		t.Fatalf("no violations must not fail")
	}
	failIfDirectViolations(rec, "r", []string{"x"})
	if !strings.Contains(rec.msg, "forbidden direct imports") {
		t.Fatalf("unexpected message %q", rec.msg)
	}
	failIfTransitiveViolations(rec, "r", []string{"x"})
	if !strings.Contains(rec.msg, "forbidden transitive dependency") {
		t.Fatalf("unexpected message %q", rec.msg)
	}
}

func TestDomainHasNoInternalDependencies(t *testing.T) {
	AssertNoTransitiveDependency(t, "rococodb/pkg/domain", func(path string) bool {
		return strings.HasPrefix(path, "rococodb/") && path != "rococodb/pkg/domain"
	}, "domain records stay free of repository packages")
}

func TestSQLDriversStayInPersistenceAdapters(t *testing.T) {
	AssertImportedOnlyBy(t, "rococodb/...", SQLDriverImport, PersistenceAdapter,
		"only the infra persistence openers import SQL drivers")
}
