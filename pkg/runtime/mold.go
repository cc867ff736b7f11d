package runtime

import (
	"fmt"
	"strconv"
	"strings"
)

// molder accumulates text. The stack holds the identities currently being
// molded so cyclic structures render as ... instead of recursing.
type molder struct {
	sb    strings.Builder
	stack []any
	form  bool
	limit int // byte limit; 0 = unlimited
}

// Mold renders a cell in its canonical, scannable form.
func Mold(c *Cell) string {
	m := &molder{}
	m.mold(c)
	return m.sb.String()
}

// formCell is the softer user-facing rendering: strings unquoted, words
// bare.
func formCell(c *Cell) string {
	m := &molder{form: true}
	m.mold(c)
	return m.sb.String()
}

// moldLimited truncates molding at roughly limit bytes (used for error
// "near" rendering).
func moldLimited(c *Cell, limit int) string {
	m := &molder{limit: limit}
	m.mold(c)
	out := m.sb.String()
	if limit > 0 && len(out) > limit {
		out = out[:limit] + "..."
	}
	return out
}

func (m *molder) ws(s string) {
	if m.limit > 0 && m.sb.Len() > m.limit {
		return
	}
	m.sb.WriteString(s)
}

// entered pushes an identity, reporting whether it was already being
// molded (a cycle).
func (m *molder) entered(id any) bool {
	for _, seen := range m.stack {
		if seen == id {
			return true
		}
	}
	m.stack = append(m.stack, id)
	return false
}

func (m *molder) leave() {
	m.stack = m.stack[:len(m.stack)-1]
}

func (m *molder) mold(c *Cell) {
	// Antiforms and quasiforms render with the ~ face.
	if c.IsAntiform() || c.IsQuasi() {
		m.moldQuasi(c)
		return
	}
	for i := 0; i < c.QuoteLevel(); i++ {
		m.ws("'")
	}

	if h := kindTable[c.kind].mold; h != nil {
		h(m, c)
		return
	}
	m.ws(fmt.Sprintf("#[%s]", c.kind))
}

func (m *molder) moldQuasi(c *Cell) {
	if c.kind == KindNone {
		m.ws("~")
		return
	}
	m.ws("~")
	plain := *c
	plain.quote = 1
	plain.ClearFlag(FlagQuasi)
	m.mold(&plain)
	m.ws("~")
}

func (m *molder) moldArray(s *Series, index int, sep string) {
	if m.entered(s) {
		m.ws("...")
		return
	}
	defer m.leave()

	for i := index; i < s.Len(); i++ {
		if i > index {
			m.ws(sep)
		}
		m.mold(s.At(i))
	}
}

func moldInteger(m *molder, c *Cell) {
	m.ws(strconv.FormatInt(c.Int(), 10))
}

func moldDecimal(m *molder, c *Cell) {
	f := c.Dec()
	out := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(out, ".eE") {
		out += ".0"
	}
	m.ws(out)
}

func moldText(m *molder, c *Cell) {
	raw := string(c.Series().Bytes()[c.Index():])
	if m.form {
		m.ws(raw)
		return
	}
	m.ws("\"")
	for _, r := range raw {
		switch r {
		case '"':
			m.ws("^\"")
		case '^':
			m.ws("^^")
		case '\n':
			m.ws("^/")
		case '\t':
			m.ws("^-")
		default:
			m.ws(string(r))
		}
	}
	m.ws("\"")
}

func moldBinary(m *molder, c *Cell) {
	m.ws("#{")
	for _, b := range c.Series().Bytes()[c.Index():] {
		m.ws(fmt.Sprintf("%02X", b))
	}
	m.ws("}")
}

func moldContext(m *molder, c *Cell) {
	ctx := c.Context()
	kind := "object!"
	if c.kind == KindError {
		kind = "error!"
	} else if c.kind == KindFrame {
		kind = "frame!"
	}

	if !ctx.vars.Accessible() {
		m.ws("make " + kind + " [...expired...]")
		return
	}
	if m.entered(ctx) {
		m.ws("...")
		return
	}
	defer m.leave()

	m.ws("make " + kind + " [")
	first := true
	for i := 1; i <= ctx.Len(); i++ {
		slot := ctx.Slot(i)
		if slot.GetFlag(FlagHidden) {
			continue
		}
		if !first {
			m.ws(" ")
		}
		first = false
		m.ws(ctx.Key(i).Text() + ": ")

		// Values re-evaluate on DO of the molded body, so words gain a
		// quote level and stay words.
		val := *slot
		if val.Stable() && (tsAnyWord.Has(val.kind) || val.kind == KindAction) {
			_ = val.Quote(1)
		}
		m.mold(&val)
	}
	m.ws("]")
}

func init() {
	reg := func(k Kind, h func(*molder, *Cell)) {
		kindTable[k].mold = h
	}

	reg(KindInteger, moldInteger)
	reg(KindDecimal, moldDecimal)
	reg(KindText, moldText)
	reg(KindBinary, moldBinary)
	reg(KindObject, moldContext)
	reg(KindError, moldContext)
	reg(KindFrame, moldContext)

	reg(KindEnd, func(m *molder, c *Cell) { m.ws("~end~") })
	reg(KindVoid, func(m *molder, c *Cell) { m.ws("~void~") })
	reg(KindComma, func(m *molder, c *Cell) { m.ws(",") })
	reg(KindNone, func(m *molder, c *Cell) { m.ws("none") })
	reg(KindLogic, func(m *molder, c *Cell) {
		if c.Logic() {
			m.ws("true")
		} else {
			m.ws("false")
		}
	})
	reg(KindChar, func(m *molder, c *Cell) {
		if m.form {
			m.ws(string(rune(c.Int())))
		} else {
			m.ws("#\"" + string(rune(c.Int())) + "\"")
		}
	})
	reg(KindIssue, func(m *molder, c *Cell) { m.ws("#" + c.word.Text()) })
	reg(KindWord, func(m *molder, c *Cell) { m.ws(c.word.Text()) })
	reg(KindSetWord, func(m *molder, c *Cell) { m.ws(c.word.Text() + ":") })
	reg(KindGetWord, func(m *molder, c *Cell) { m.ws(":" + c.word.Text()) })
	reg(KindMetaWord, func(m *molder, c *Cell) { m.ws("^" + c.word.Text()) })
	reg(KindMetaSetWord, func(m *molder, c *Cell) { m.ws("^" + c.word.Text() + ":") })
	reg(KindRefinement, func(m *molder, c *Cell) { m.ws("/" + c.word.Text()) })
	reg(KindDatatype, func(m *molder, c *Cell) { m.ws(c.Datatype().String()) })
	reg(KindBlock, func(m *molder, c *Cell) {
		m.ws("[")
		m.moldArray(c.Series(), c.Index(), " ")
		m.ws("]")
	})
	reg(KindGroup, func(m *molder, c *Cell) {
		m.ws("(")
		m.moldArray(c.Series(), c.Index(), " ")
		m.ws(")")
	})
	reg(KindPath, func(m *molder, c *Cell) { m.moldArray(c.Series(), 0, "/") })
	reg(KindSetPath, func(m *molder, c *Cell) {
		m.moldArray(c.Series(), 0, "/")
		m.ws(":")
	})
	reg(KindTuple, func(m *molder, c *Cell) { m.moldArray(c.Series(), 0, ".") })
	reg(KindSetTuple, func(m *molder, c *Cell) {
		m.moldArray(c.Series(), 0, ".")
		m.ws(":")
	})
	reg(KindAction, func(m *molder, c *Cell) {
		name := "anonymous"
		if c.word != nil {
			name = c.word.Text()
		}
		m.ws("#[action! " + name + "]")
	})
	reg(KindParameter, func(m *molder, c *Cell) {
		m.ws("#[parameter! " + c.word.Text() + "]")
	})
	reg(KindTypeset, func(m *molder, c *Cell) { m.ws("#[typeset!]") })
	reg(KindHandle, func(m *molder, c *Cell) { m.ws("#[handle!]") })
	reg(KindFree, func(m *molder, c *Cell) { m.ws("#[free!]") })
}
