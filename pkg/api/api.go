// Package api is the stable, embed-facing entry point to the runtime core:
// everything cmd/spwn and any other host (the teacher's own cmd/funxy
// plays this same role for its evaluator/vm packages) needs to run a
// compile without reaching into internal/* directly.
package api

import (
	"github.com/gospwn/spwn/internal/ast"
	"github.com/gospwn/spwn/internal/diag"
	"github.com/gospwn/spwn/internal/emitter"
	"github.com/gospwn/spwn/internal/evaluator"
	"github.com/gospwn/spwn/internal/globals"
	"github.com/gospwn/spwn/internal/ictx"
	"github.com/gospwn/spwn/internal/rterror"
	"github.com/gospwn/spwn/internal/value"
)

// Options configures one compile, the Go analog of the CLI's permission
// table plus the handful of knobs spec.md §6 exposes at the interface
// boundary.
type Options struct {
	// Path is the source file path, used only for diagnostics and as the
	// root of Globals.PrevImports lookups.
	Path string

	// Allow and Deny list builtin names whose default safety the CLI's
	// --allow/--deny flags override (spec.md §6).
	Allow []string
	Deny  []string
}

// Result is everything a successful compile produces.
type Result struct {
	Globals     *globals.Globals
	ObjectString string
}

// Compile runs prog's statements against a fresh Globals/context tree and
// emits the resulting object string, wiring together every core package:
// value.NewArena -> globals.New -> ictx.NewRoot -> evaluator.EvalBlock ->
// emitter.Emit.
func Compile(prog *ast.Block, opts Options) (*Result, error) {
	arena := value.NewArena()
	g := globals.New(arena, opts.Path)
	g.FuncIDs = []globals.FunctionId{{}}

	for _, name := range opts.Allow {
		g.Permissions[name] = true
	}
	for _, name := range opts.Deny {
		g.Permissions[name] = false
	}

	root := ictx.NewRoot(g.NullStorage)
	root.Inner().NewVariable("$", g.BuiltinStorage, 0)
	ev := evaluator.New(g)
	info := diag.FromArea(diag.Native)

	if err := ev.EvalBlock(root, prog, info); err != nil {
		return nil, err
	}

	if err := checkUnusedBreaks(root); err != nil {
		return nil, err
	}

	objString, err := emitter.New(g).Emit()
	if err != nil {
		return nil, err
	}

	return &Result{Globals: g, ObjectString: objString}, nil
}

// checkUnusedBreaks reports a BreakNeverUsedError for any leaf still
// carrying a break/continue/return flag once the top-level block has
// finished — spec.md §7's "uncaught breaks at program end produce
// BreakNeverUsedError".
func checkUnusedBreaks(root *ictx.FullContext) error {
	it := root.IterWithBreaks()
	for node, ok := it.Next(); ok; node, ok = it.Next() {
		ctx := node.Inner()
		if ctx.Broken == nil {
			continue
		}
		return &rterror.BreakNeverUsedError{
			Kind:    ctx.Broken.Kind,
			Broke:   ctx.Broken.Area,
			Dropped: diag.Native,
			Reason:  "reached the end of the program while still set",
		}
	}
	return nil
}
