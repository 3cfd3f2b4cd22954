// Command spwn is the CLI wrapper around the runtime core: it parses flags
// (internal/cli), and would hand source text to the project's lexer/parser
// before compiling — that front end is explicitly out of scope for this
// module (spec.md §1: "lexer and parser (consume a ready AST type
// described in §6)"), so main wires in a stub that reports as much rather
// than silently compiling nothing.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/gospwn/spwn/internal/cli"
	"github.com/gospwn/spwn/pkg/api"
)

func main() {
	cfg, err := cli.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	os.Exit(cli.Run(cfg, parseAndCompile, os.Stdout, os.Stderr))
}

// parseAndCompile is the seam between this binary and the out-of-scope
// lexer/parser: a real deployment links a parser package here that turns
// src into an ast.Block and calls api.Compile. Embedders of pkg/api that
// already have an AST (e.g. a parser living in a sibling module) skip this
// seam entirely and call api.Compile directly.
func parseAndCompile(src []byte, path string) (*api.Result, error) {
	_ = src
	return nil, errors.New("spwn: no lexer/parser is linked into this binary; " +
		"pkg/api.Compile expects a pre-built AST (spec.md §1 scopes the " +
		"parser out of this module) — embed a parser and call api.Compile directly, path=" + path)
}
