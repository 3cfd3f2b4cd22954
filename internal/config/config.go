// Package config holds the ambient constants shared across the runtime core:
// the level-file layout numbers lifted from original_source/src/levelstring.rs
// and the id-pool caps from compiler/src/builtins.rs.
package config

const (
	SourceFileExtension = ".spwn"

	// Trigger-column layout (leveldata/object_data.rs, apply_fn_ids).
	StartHeight = 10
	MaxHeight   = 40

	// Identifier renumbering cap (append_objects, ID_MAX).
	MaxSpecificID = 999

	// Reserved group stamped on every emitted object so a later compile can
	// find and remove this compiler's previous output (GLOSSARY: Signature group).
	SignatureGroupID = 1001

	// GC sweep policy (§4.1): a full mark-sweep runs after a statement
	// boundary once the arena has grown by this many slots since the
	// previous sweep.
	GCGrowthThreshold = 5000

	// compiler_types.rs convert_to_int: how close a float must be to an
	// integer to implicitly convert.
	IntConversionEpsilon = 1e-9

	// leveldata/object_data.rs Display for ObjParam: rounding epsilon used
	// when serializing a number parameter.
	NumberPrintEpsilon = 1e-3
)
