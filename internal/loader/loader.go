// Package loader turns operator source text into callable values. Source is
// evaluated in an embedded interpreter that has the expression-tree
// primitives and the host data types in scope, so operator authors write
// ordinary Go functions against the same API the built-ins use.
package loader

import (
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"reflect"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

var (
	// ErrCompile marks source text the interpreter rejected.
	ErrCompile = errors.New("operator source failed to compile")
	// ErrNotDefined marks source that compiled but does not bind a function
	// to the declared name.
	ErrNotDefined = errors.New("operator name not defined by source")
)

// Compile evaluates source in a fresh interpreter and returns the function
// value reachable under name. Each compilation gets its own interpreter so
// operators cannot observe one another's state; the returned value keeps
// its interpreter alive for as long as the operator is registered.
//
// Name resolution follows the source's package clause: a clause-less
// snippet or "package main" binds name directly, any other package prefixes
// it, and a caller-qualified "pkg.Name" is used verbatim.
func Compile(name, source string) (reflect.Value, error) {
	if name == "" {
		return reflect.Value{}, fmt.Errorf("%w: empty operator name", ErrNotDefined)
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return reflect.Value{}, fmt.Errorf("install stdlib symbols: %w", err)
	}
	if err := i.Use(Symbols()); err != nil {
		return reflect.Value{}, fmt.Errorf("install tree symbols: %w", err)
	}

	if _, err := i.Eval(source); err != nil {
		return reflect.Value{}, fmt.Errorf("%w: %v", ErrCompile, err)
	}

	v, err := i.Eval(qualifiedName(name, source))
	if err != nil {
		return reflect.Value{}, fmt.Errorf("%w: %s: %v", ErrNotDefined, name, err)
	}
	if !v.IsValid() || v.Kind() != reflect.Func {
		return reflect.Value{}, fmt.Errorf("%w: %s is not a function", ErrNotDefined, name)
	}
	return v, nil
}

// CompileFile reads an operator source file and delegates to Compile. A
// path that does not resolve to a readable file aborts the load before any
// evaluation happens.
func CompileFile(name, path string) (reflect.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("read operator source %s: %w", path, err)
	}
	return Compile(name, string(data))
}

func qualifiedName(name, source string) string {
	if strings.Contains(name, ".") {
		return name
	}
	pkg := packageClause(source)
	if pkg == "" || pkg == "main" {
		return name
	}
	return pkg + "." + name
}

func packageClause(source string) string {
	file, err := parser.ParseFile(token.NewFileSet(), "operator.go", source, parser.PackageClauseOnly)
	if err != nil || file.Name == nil {
		return ""
	}
	return file.Name.Name
}
