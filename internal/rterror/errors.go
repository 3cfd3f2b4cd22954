// Package rterror defines the closed set of typed runtime-error variants
// described in spec.md §7, grounded on original_source/compiler/src/*.rs's
// RuntimeError enum (errors crate). Each variant carries the spans and
// human-readable labels needed to render a useful diagnostic; none of them
// are recoverable — every evaluator entry point bubbles the first one it
// produces straight to the top of the compile.
package rterror

import (
	"fmt"

	"github.com/gospwn/spwn/internal/diag"
)

// Error is implemented by every variant below plus CustomError, so the
// evaluator can treat "a runtime error happened" uniformly while diagnostic
// rendering still gets the typed detail back via a type switch.
type Error interface {
	error
	Labels() []diag.Label
	Title() string
}

type TypeError struct {
	Expected, Found string
	ValDef          diag.CodeArea
	Info            diag.Info
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("expected %s, found %s", e.Expected, e.Found)
}
func (e *TypeError) Title() string { return "Type Error" }
func (e *TypeError) Labels() []diag.Label {
	return []diag.Label{
		{Area: e.ValDef, Text: "value defined as " + e.Found + " here"},
		{Area: e.Info.Position, Text: "used here, expected " + e.Expected},
	}
}

type BuiltinError struct {
	Builtin string
	Message string
	Info    diag.Info
}

func (e *BuiltinError) Error() string { return fmt.Sprintf("$.%s: %s", e.Builtin, e.Message) }
func (e *BuiltinError) Title() string { return "Builtin Error" }
func (e *BuiltinError) Labels() []diag.Label {
	return []diag.Label{{Area: e.Info.Position, Text: e.Message}}
}

type MutabilityError struct {
	ValDef diag.CodeArea
	Info   diag.Info
}

func (e *MutabilityError) Error() string { return "cannot mutate an immutable value" }
func (e *MutabilityError) Title() string { return "Mutability Error" }
func (e *MutabilityError) Labels() []diag.Label {
	return []diag.Label{
		{Area: e.ValDef, Text: "value defined as immutable here"},
		{Area: e.Info.Position, Text: "mutation attempted here"},
	}
}

type ContextChangeMutateError struct {
	ValDef         diag.CodeArea
	ContextChanges []diag.CodeArea
	Info           diag.Info
}

func (e *ContextChangeMutateError) Error() string {
	return "cannot mutate a value across a trigger-function context change"
}
func (e *ContextChangeMutateError) Title() string { return "Context Change Error" }
func (e *ContextChangeMutateError) Labels() []diag.Label {
	labels := []diag.Label{{Area: e.ValDef, Text: "value defined here"}}
	for _, c := range e.ContextChanges {
		labels = append(labels, diag.Label{Area: c, Text: "context split here"})
	}
	return append(labels, diag.Label{Area: e.Info.Position, Text: "mutation attempted here"})
}

type PatternMismatchError struct {
	Pattern, Val     string
	PatDef, ValDef   diag.CodeArea
	Info             diag.Info
}

func (e *PatternMismatchError) Error() string {
	return fmt.Sprintf("expected a value matching %s, found %s", e.Pattern, e.Val)
}
func (e *PatternMismatchError) Title() string { return "Pattern Mismatch" }
func (e *PatternMismatchError) Labels() []diag.Label {
	return []diag.Label{
		{Area: e.PatDef, Text: "pattern defined here"},
		{Area: e.ValDef, Text: "value defined here"},
		{Area: e.Info.Position, Text: "checked here"},
	}
}

// BreakKind mirrors context.BreakKind without importing the ictx package
// (which itself depends on rterror), matching context.rs's BreakType.
type BreakKind int

const (
	BreakLoop BreakKind = iota
	BreakContinueLoop
	BreakMacro
	BreakSwitch
)

func (k BreakKind) String() string {
	switch k {
	case BreakLoop:
		return "break"
	case BreakContinueLoop:
		return "continue"
	case BreakMacro:
		return "return"
	case BreakSwitch:
		return "switch arm"
	default:
		return "break"
	}
}

type BreakNeverUsedError struct {
	Kind    BreakKind
	Broke   diag.CodeArea
	Dropped diag.CodeArea
	Reason  string
}

func (e *BreakNeverUsedError) Error() string {
	return fmt.Sprintf("%s was never used because %s", e.Kind, e.Reason)
}
func (e *BreakNeverUsedError) Title() string { return "Unused Break" }
func (e *BreakNeverUsedError) Labels() []diag.Label {
	return []diag.Label{
		{Area: e.Broke, Text: e.Kind.String() + " set here"},
		{Area: e.Dropped, Text: "dropped here: " + e.Reason},
	}
}

type UndefinedErr struct {
	Undefined string
	Desc      string
	Info      diag.Info
}

func (e *UndefinedErr) Error() string {
	return fmt.Sprintf("undefined %s: %s", e.Desc, e.Undefined)
}
func (e *UndefinedErr) Title() string { return "Undefined" }
func (e *UndefinedErr) Labels() []diag.Label {
	return []diag.Label{{Area: e.Info.Position, Text: "used here"}}
}

// BoundedResourceError reports an id pool (spec.md §4.2) or emission cap
// (§4.7 step 3, ID_MAX) running out, naming the pool/class and the count
// that overflowed it.
type BoundedResourceError struct {
	Resource string
	Limit    int
	Count    int
}

func (e *BoundedResourceError) Error() string {
	return fmt.Sprintf("%s exhausted: %d requested, limit is %d", e.Resource, e.Count, e.Limit)
}
func (e *BoundedResourceError) Title() string       { return "Resource Exhausted" }
func (e *BoundedResourceError) Labels() []diag.Label { return nil }

// PackageSyntaxError wraps a parse failure encountered while resolving an
// import, carrying the chain of import paths that led to it.
type PackageSyntaxError struct {
	Import string
	Stack  []string
	Cause  error
}

func (e *PackageSyntaxError) Error() string {
	return fmt.Sprintf("syntax error importing %s: %v", e.Import, e.Cause)
}
func (e *PackageSyntaxError) Title() string       { return "Import Syntax Error" }
func (e *PackageSyntaxError) Labels() []diag.Label { return nil }
func (e *PackageSyntaxError) Unwrap() error         { return e.Cause }

type PackageError struct {
	Import string
	Stack  []string
	Cause  error
}

func (e *PackageError) Error() string {
	return fmt.Sprintf("failed to import %s: %v", e.Import, e.Cause)
}
func (e *PackageError) Title() string          { return "Import Error" }
func (e *PackageError) Labels() []diag.Label    { return nil }
func (e *PackageError) Unwrap() error           { return e.Cause }

type CustomError struct {
	Message string
	Extra   []diag.Label
	Info    diag.Info
}

func (e *CustomError) Error() string       { return e.Message }
func (e *CustomError) Title() string       { return "Runtime Error" }
func (e *CustomError) Labels() []diag.Label {
	labels := []diag.Label{{Area: e.Info.Position, Text: e.Message}}
	return append(labels, e.Extra...)
}

// New builds a CustomError the way errors::create_error does: a headline
// plus an arbitrary list of extra labels.
func New(info diag.Info, message string, extra ...diag.Label) *CustomError {
	return &CustomError{Message: message, Extra: extra, Info: info}
}
