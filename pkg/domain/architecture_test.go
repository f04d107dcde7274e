package domain

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// allowedImports lists the only non-stdlib packages the domain records may use.
var allowedImports = map[string]bool{
	"github.com/google/uuid": true,
}

func TestDomainImportsStayMinimal(t *testing.T) {
	entries, err := os.ReadDir(".")
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	fset := token.NewFileSet()
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		file, err := parser.ParseFile(fset, filepath.Join(".", name), nil, parser.ImportsOnly)
		if err != nil {
			t.Fatalf("parse %s: %v", name, err)
		}
		for _, spec := range file.Imports {
			path, _ := strconv.Unquote(spec.Path.Value)
			if strings.Contains(path, "/internal/") {
				t.Errorf("domain must not import internal packages: %s (%s)", path, name)
			}
			if strings.Contains(path, ".") && !allowedImports[path] {
				t.Errorf("domain imports unexpected third-party package %s (%s)", path, name)
			}
		}
	}
}
