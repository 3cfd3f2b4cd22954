// Package diag carries source positions and call-stack context through the
// evaluator so runtime errors can point at both a definition site and a use
// site, the way compiler/src/context.rs's CodeArea/CompilerInfo do.
package diag

import "fmt"

// Pos is a half-open byte range into a SourceFile.
type Pos struct {
	Start int
	End   int
}

// SourceFile identifies a file a CodeArea belongs to. Imports give each file
// a distinct handle so two identically-positioned spans in different files
// never compare equal.
type SourceFile struct {
	Path string
}

func (f *SourceFile) String() string {
	if f == nil {
		return "<native>"
	}
	return f.Path
}

// CodeArea is a span inside a file; the unit every StoredValData, Macro and
// runtime error attaches for diagnostics (compiler_types.rs CodeArea).
type CodeArea struct {
	Pos  Pos
	File *SourceFile
}

// Native is the zero-value area used for values synthesized by the runtime
// itself rather than traced back to source text.
var Native = CodeArea{}

func (a CodeArea) String() string {
	return fmt.Sprintf("%s:%d-%d", a.File.String(), a.Pos.Start, a.Pos.End)
}

// CallFrame is one entry of a macro call stack, recorded so a deeply nested
// macro invocation can be reported instead of just the innermost error.
type CallFrame struct {
	Area CodeArea
}

// Info threads the current position and call stack through evaluation; it is
// cloned cheaply (a slice header plus two value fields) the way
// CompilerInfo is cloned throughout compiler.rs.
type Info struct {
	Position  CodeArea
	CallStack []CallFrame
}

// WithArea returns a copy of Info positioned at area, leaving the call stack
// untouched — mirrors CompilerInfo::with_area.
func (i Info) WithArea(area CodeArea) Info {
	i.Position = area
	return i
}

// Pushed returns a copy of Info with area appended to the call stack.
func (i Info) Pushed(area CodeArea) Info {
	stack := make([]CallFrame, len(i.CallStack), len(i.CallStack)+1)
	copy(stack, i.CallStack)
	i.CallStack = append(stack, CallFrame{Area: area})
	return i
}

// FromArea builds a fresh Info with no call stack, for errors raised outside
// of any particular evaluation (e.g. from BreakNeverUsedError::info).
func FromArea(area CodeArea) Info {
	return Info{Position: area}
}
