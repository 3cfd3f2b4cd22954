// Package ids implements the four identifier pools SPWN allocates from:
// groups, colors, blocks and items (spec.md §4.2), grounded on
// compiler/src/builtins.rs's id_default_methods! macro which stamps out the
// same Specific/Arbitrary duality for all four Id structs.
package ids

import "fmt"

// Class names one of the four pools; used for error messages and for
// indexing the per-class closed-id sets the emitter builds.
type Class int

const (
	Group Class = iota
	Color
	Block
	Item
	numClasses
)

func (c Class) String() string {
	switch c {
	case Group:
		return "group"
	case Color:
		return "color"
	case Block:
		return "block ID"
	case Item:
		return "item ID"
	default:
		return "id"
	}
}

// ID is either a fixed Specific identifier or an Arbitrary placeholder that
// the emitter resolves to a free Specific id at the end of compilation
// (compiler/src/builtins.rs Id enum).
type ID struct {
	specific   uint16
	arbitrary  uint16
	isSpecific bool
}

func Specific(n uint16) ID { return ID{specific: n, isSpecific: true} }
func arbitrary(n uint16) ID { return ID{arbitrary: n} }

func (i ID) IsSpecific() bool { return i.isSpecific }
func (i ID) SpecificValue() uint16 {
	if !i.isSpecific {
		panic("SpecificValue called on an arbitrary id")
	}
	return i.specific
}
func (i ID) ArbitraryValue() uint16 {
	if i.isSpecific {
		panic("ArbitraryValue called on a specific id")
	}
	return i.arbitrary
}

func (i ID) String() string {
	if i.isSpecific {
		return fmt.Sprintf("%d", i.specific)
	}
	return fmt.Sprintf("%d?", i.arbitrary)
}

func (i ID) Equal(o ID) bool {
	return i.isSpecific == o.isSpecific && i.specific == o.specific && i.arbitrary == o.arbitrary
}

// Pools holds the four arbitrary-id counters carried on Globals
// (closed_groups/closed_colors/closed_blocks/closed_items).
type Pools struct {
	counters [numClasses]uint16
}

// NextFree allocates the next arbitrary id in class, the Go analog of
// Group::next_free(&mut globals.closed_groups).
func (p *Pools) NextFree(class Class) ID {
	p.counters[class]++
	return arbitrary(p.counters[class])
}

// Count reports how many arbitrary ids of class have been handed out, purely
// for diagnostics (e.g. reporting near-exhaustion before emission fails).
func (p *Pools) Count(class Class) uint16 { return p.counters[class] }
