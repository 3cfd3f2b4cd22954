package value

import (
	"github.com/gospwn/spwn/internal/ast"
	"github.com/gospwn/spwn/internal/diag"
)

// ArgDef is one formal parameter of a Macro, spec.md §3's
// `{ name, default, pattern, position, as_ref }`.
type ArgDef struct {
	Name     string
	Default  *Key
	Pattern  *Key
	Position diag.CodeArea
	AsRef    bool
}

// Macro is a closure: the compiled body plus the captured environment it
// closed over at definition time. A MacroValue slot is always immutable
// (spec.md §3's StoredValData invariant), so Macro itself never needs a
// mutable-children pass.
type Macro struct {
	Args        []ArgDef
	Body        *ast.Block
	DefVars     map[string]Key
	DefFile     *diag.SourceFile
	RetPattern  *Key
	ArgPos      diag.CodeArea
}
