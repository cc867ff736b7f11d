// Package runtime implements the Vesta runtime core: cells, series,
// contexts, bindings, actions, frames, the evaluator and the garbage
// collector.
package runtime

// Kind identifies the datatype held by a cell.
type Kind uint8

// The closed set of value kinds.
const (
	KindFree Kind = iota // freed cell, never legal in live data
	KindEnd              // array terminator
	KindComma            // expression barrier
	KindVoid
	KindNone
	KindLogic
	KindInteger
	KindDecimal
	KindChar
	KindIssue
	KindBinary
	KindText
	KindWord
	KindSetWord
	KindGetWord
	KindMetaWord
	KindMetaSetWord
	KindRefinement
	KindPath
	KindSetPath
	KindTuple
	KindSetTuple
	KindBlock
	KindGroup
	KindDatatype
	KindObject
	KindFrame
	KindError
	KindAction
	KindTypeset
	KindParameter
	KindHandle

	KindMax
)

var kindNames = [KindMax]string{
	KindFree:        "free!",
	KindEnd:         "end!",
	KindComma:       "comma!",
	KindVoid:        "void!",
	KindNone:        "none!",
	KindLogic:       "logic!",
	KindInteger:     "integer!",
	KindDecimal:     "decimal!",
	KindChar:        "char!",
	KindIssue:       "issue!",
	KindBinary:      "binary!",
	KindText:        "text!",
	KindWord:        "word!",
	KindSetWord:     "set-word!",
	KindGetWord:     "get-word!",
	KindMetaWord:    "meta-word!",
	KindMetaSetWord: "meta-set-word!",
	KindRefinement:  "refinement!",
	KindPath:        "path!",
	KindSetPath:     "set-path!",
	KindTuple:       "tuple!",
	KindSetTuple:    "set-tuple!",
	KindBlock:       "block!",
	KindGroup:       "group!",
	KindDatatype:    "datatype!",
	KindObject:      "object!",
	KindFrame:       "frame!",
	KindError:       "error!",
	KindAction:      "action!",
	KindTypeset:     "typeset!",
	KindParameter:   "parameter!",
	KindHandle:      "handle!",
}

// String returns the datatype name, e.g. "integer!".
func (k Kind) String() string {
	if k >= KindMax {
		return "unknown!"
	}
	return kindNames[k]
}

// kindInfo is the per-kind handler table entry. New kinds register their
// handlers here at startup; dispatch is a plain index into the table.
type kindInfo struct {
	inert   bool // evaluates to itself
	unstable bool // kind has an antiform (quote byte 0) form
	mold    func(m *molder, c *Cell)
	equal   func(a, b *Cell, strict bool) bool
}

var kindTable [KindMax]kindInfo

// Inert reports whether values of this kind evaluate to themselves.
func (k Kind) Inert() bool {
	return kindTable[k].inert
}

// hasUnstableForm reports whether the kind supports an antiform.
func (k Kind) hasUnstableForm() bool {
	return kindTable[k].unstable
}

func init() {
	for _, k := range []Kind{
		KindNone, KindLogic, KindInteger, KindDecimal, KindChar, KindIssue,
		KindBinary, KindText, KindDatatype, KindObject, KindError,
		KindTypeset, KindParameter, KindHandle, KindFrame, KindRefinement,
	} {
		kindTable[k].inert = true
	}

	// Kinds with antiform faces: trash, definitional errors, packs,
	// splices and unset words.
	for _, k := range []Kind{KindNone, KindError, KindBlock, KindGroup, KindWord} {
		kindTable[k].unstable = true
	}
}

// TypeSet is a bitset over kinds, used by parameter typechecks.
type TypeSet uint64

// MakeTypeSet builds a TypeSet from kinds.
func MakeTypeSet(kinds ...Kind) TypeSet {
	var ts TypeSet
	for _, k := range kinds {
		ts |= 1 << k
	}
	return ts
}

// Has reports whether the set contains k.
func (ts TypeSet) Has(k Kind) bool {
	return ts&(1<<k) != 0
}

// Common typesets.
var (
	tsAnyValue  = ^TypeSet(0) &^ MakeTypeSet(KindFree, KindEnd)
	tsAnyNumber = MakeTypeSet(KindInteger, KindDecimal)
	tsAnyScalar = MakeTypeSet(KindInteger, KindDecimal, KindChar, KindLogic)
	tsAnyWord   = MakeTypeSet(KindWord, KindSetWord, KindGetWord, KindMetaWord, KindMetaSetWord)
	tsAnyArray  = MakeTypeSet(KindBlock, KindGroup, KindPath, KindSetPath, KindTuple, KindSetTuple)
	tsAnySeries = MakeTypeSet(KindBlock, KindGroup, KindPath, KindSetPath, KindTuple, KindSetTuple, KindBinary, KindText)
	tsAnyContext = MakeTypeSet(KindObject, KindFrame, KindError)
)
