package capgen

import (
	"fmt"
	"go/ast"
	"go/types"
	"strings"

	"golang.org/x/tools/go/packages"
)

// IntrospectPackage loads a Go package by import path and returns its
// wrappable API model. The includeFilter, if non-nil, restricts which
// exported names are considered.
func IntrospectPackage(importPath string, includeFilter map[string]bool) (*PackageModel, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedTypes | packages.NeedSyntax,
	}

	pkgs, err := packages.Load(cfg, importPath)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", importPath, err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages found for %s", importPath)
	}
	if len(pkgs[0].Errors) > 0 {
		return nil, fmt.Errorf("package errors: %v", pkgs[0].Errors)
	}

	pkg := pkgs[0]
	if pkg.Types == nil {
		return nil, fmt.Errorf("type information not available for %s", importPath)
	}

	model := &PackageModel{
		ImportPath: importPath,
		Name:       pkg.Name,
	}

	docs := collectDocs(pkg.Syntax)
	scope := pkg.Types.Scope()

	for _, name := range scope.Names() {
		if includeFilter != nil && !includeFilter[name] {
			continue
		}

		obj := scope.Lookup(name)
		if !obj.Exported() {
			continue
		}
		fn, ok := obj.(*types.Func)
		if !ok {
			continue
		}

		fm, reason := classifyFunction(fn)
		if reason != "" {
			model.Skipped = append(model.Skipped, SkippedFunction{Name: name, Reason: reason})
			continue
		}
		fm.Doc = docs[name]
		model.Functions = append(model.Functions, fm)
	}

	return model, nil
}

// collectDocs maps top-level function names to their leading comments.
func collectDocs(files []*ast.File) map[string]string {
	docs := make(map[string]string)
	for _, file := range files {
		for _, decl := range file.Decls {
			fd, ok := decl.(*ast.FuncDecl)
			if !ok || fd.Recv != nil || fd.Doc == nil {
				continue
			}
			docs[fd.Name.Name] = strings.TrimSpace(fd.Doc.Text())
		}
	}
	return docs
}

// classifyFunction maps a function onto the wrappable shapes. A
// non-empty reason means the function can't be wrapped.
func classifyFunction(fn *types.Func) (FunctionModel, string) {
	sig := fn.Type().(*types.Signature)
	fm := FunctionModel{Name: fn.Name()}

	if sig.TypeParams().Len() > 0 {
		return fm, "generic functions are not wrappable"
	}
	if sig.Variadic() {
		return fm, "variadic functions are not wrappable"
	}

	params := sig.Params()
	for i := 0; i < params.Len(); i++ {
		kind, ok := argKindOf(params.At(i).Type())
		if !ok {
			return fm, fmt.Sprintf("parameter %d has unsupported type %s", i, params.At(i).Type())
		}
		fm.Params = append(fm.Params, kind)
	}

	results := sig.Results()
	switch results.Len() {
	case 1:
	case 2:
		if !isErrorType(results.At(1).Type()) {
			return fm, "second result is not error"
		}
		fm.ReturnsErr = true
	default:
		return fm, fmt.Sprintf("%d results, want 1 or 2", results.Len())
	}

	kind, ok := argKindOf(results.At(0).Type())
	if !ok {
		return fm, fmt.Sprintf("result has unsupported type %s", results.At(0).Type())
	}
	fm.Result = kind

	return fm, ""
}

// argKindOf classifies a type as string or []byte.
func argKindOf(t types.Type) (ArgKind, bool) {
	if b, ok := t.Underlying().(*types.Basic); ok && b.Kind() == types.String {
		return ArgString, true
	}
	if s, ok := t.Underlying().(*types.Slice); ok {
		if b, ok := s.Elem().Underlying().(*types.Basic); ok && b.Kind() == types.Byte {
			return ArgBytes, true
		}
	}
	return 0, false
}

func isErrorType(t types.Type) bool {
	iface, ok := t.Underlying().(*types.Interface)
	if !ok {
		if named, ok := t.(*types.Named); ok {
			return named.Obj().Name() == "error" && named.Obj().Pkg() == nil
		}
		return false
	}
	if iface.NumMethods() == 1 {
		m := iface.Method(0)
		return m.Name() == "Error"
	}
	return false
}
