// capgen generates built-in capability wrappers from a Go package's
// exported functions.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/chazu/willie/capgen"
)

func main() {
	pkgPath := flag.String("pkg", "", "Go package import path to wrap")
	outFile := flag.String("out", "", "Output file (default: stdout)")
	only := flag.String("only", "", "Comma-separated list of exported names to include")
	flag.Parse()

	if *pkgPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: capgen -pkg <import-path> [-out file] [-only Name,Name]\n")
		os.Exit(2)
	}

	var filter map[string]bool
	if *only != "" {
		filter = make(map[string]bool)
		for _, name := range strings.Split(*only, ",") {
			filter[strings.TrimSpace(name)] = true
		}
	}

	model, err := capgen.IntrospectPackage(*pkgPath, filter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "capgen: %v\n", err)
		os.Exit(1)
	}

	for _, s := range model.Skipped {
		fmt.Fprintf(os.Stderr, "capgen: skipping %s: %s\n", s.Name, s.Reason)
	}
	if len(model.Functions) == 0 {
		fmt.Fprintf(os.Stderr, "capgen: no wrappable functions in %s\n", *pkgPath)
		os.Exit(1)
	}

	code, err := capgen.GenerateCapabilities(model)
	if err != nil {
		fmt.Fprintf(os.Stderr, "capgen: %v\n", err)
		os.Exit(1)
	}

	if *outFile == "" {
		fmt.Print(code)
		return
	}
	if err := os.WriteFile(*outFile, []byte(code), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "capgen: writing %s: %v\n", *outFile, err)
		os.Exit(1)
	}
	fmt.Printf("Wrapped %d functions from %s into %s\n", len(model.Functions), *pkgPath, *outFile)
}
