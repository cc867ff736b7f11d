// Package scan turns Vesta source text into arrays of cells. Importing it
// installs the scanner hook the runtime's Do and Value entry points use.
package scan

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mwantia/vesta/errors"
	"github.com/mwantia/vesta/pkg/runtime"
)

func init() {
	runtime.Scanner = func(in *runtime.Interp, src string) (*runtime.Series, error) {
		return New(in, src).Scan()
	}
}

// Scanner walks source text rune by rune, emitting cells.
type Scanner struct {
	in      *runtime.Interp
	text    string
	index   int
	current rune
	line    int
	column  int
	file    string
}

// New creates a Scanner over src.
func New(in *runtime.Interp, src string) *Scanner {
	s := &Scanner{
		in:   in,
		text: src,
		line: 1,
	}
	s.readChar()
	return s
}

// WithFile records the origin filename for error messages and the
// scanned array's provenance.
func (s *Scanner) WithFile(file string) *Scanner {
	s.file = file
	return s
}

// Scan reads the whole source into one array. The array is manually
// tracked; callers manage or free it.
func (s *Scanner) Scan() (*runtime.Series, error) {
	arr, err := s.scanInto(0)
	if err != nil {
		return nil, err
	}
	arr.SetSource(s.file, 1)
	return arr, nil
}

func (s *Scanner) readChar() bool {
	if s.index >= len(s.text) {
		s.current = 0
		return false
	}
	r, width := utf8.DecodeRuneInString(s.text[s.index:])
	s.current = r
	s.index += width
	s.column++
	if r == '\n' {
		s.line++
		s.column = 0
	}
	return true
}

func (s *Scanner) peekChar() rune {
	if s.index >= len(s.text) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(s.text[s.index:])
	return r
}

func (s *Scanner) errf(msg string) *errors.VestaError {
	return errors.NewScanError(msg, s.line, s.column).WithContext(s.text)
}

func (s *Scanner) skipWhitespaceAndComments() bool {
	sawNewline := false
	for {
		switch s.current {
		case ' ', '\t', '\r':
			s.readChar()
		case '\n':
			sawNewline = true
			s.readChar()
		case ';':
			for s.current != '\n' && s.current != 0 {
				s.readChar()
			}
		default:
			return sawNewline
		}
	}
}

// scanInto reads values until the closing delimiter (0 = end of input).
func (s *Scanner) scanInto(closer rune) (*runtime.Series, error) {
	arr := s.in.NewArray(8)
	startLine := s.line

	for {
		newline := s.skipWhitespaceAndComments()

		if s.current == 0 {
			if closer != 0 {
				s.in.Free(arr)
				return nil, s.errf("missing closing " + string(closer))
			}
			arr.SetSource(s.file, startLine)
			return arr, nil
		}
		if s.current == closer {
			s.readChar()
			arr.SetSource(s.file, startLine)
			return arr, nil
		}
		if s.current == ']' || s.current == ')' {
			s.in.Free(arr)
			return nil, s.errf("unexpected " + string(s.current))
		}

		cell, err := s.scanValue()
		if err != nil {
			s.in.Free(arr)
			return nil, err
		}
		slot := arr.AppendCell(cell)
		if newline {
			slot.SetFlag(runtime.FlagNewline)
		}
	}
}

// scanValue reads one value, including any path/tuple continuation and
// trailing set-word colon.
func (s *Scanner) scanValue() (*runtime.Cell, error) {
	quotes := 0
	for s.current == '\'' {
		quotes++
		s.readChar()
	}

	cell, err := s.scanItem(false)
	if err != nil {
		return nil, err
	}

	// Sequence continuation: a/b/c paths, a.b.c tuples.
	if s.current == '/' || s.current == '.' {
		cell, err = s.scanSequence(cell)
		if err != nil {
			return nil, err
		}
	}

	if quotes > 0 {
		if err := cell.Quote(quotes); err != nil {
			return nil, s.errf(err.Error())
		}
	}
	return cell, nil
}

// scanItem reads one atomic item. Inside a path or tuple (inSeq) a
// trailing colon belongs to the whole sequence, not the segment.
func (s *Scanner) scanItem(inSeq bool) (*runtime.Cell, error) {
	var cell runtime.Cell

	switch {
	case s.current == ',':
		s.readChar()
		runtime.InitComma(&cell)
		return &cell, nil

	case s.current == '[':
		s.readChar()
		inner, err := s.scanInto(']')
		if err != nil {
			return nil, err
		}
		s.in.Manage(inner)
		runtime.InitBlock(&cell, inner)
		return &cell, nil

	case s.current == '(':
		s.readChar()
		inner, err := s.scanInto(')')
		if err != nil {
			return nil, err
		}
		s.in.Manage(inner)
		runtime.InitGroup(&cell, inner)
		return &cell, nil

	case s.current == '"':
		return s.scanString()

	case s.current == '#':
		return s.scanHash()

	case s.current == '~':
		return s.scanQuasi()

	case s.current == ':':
		s.readChar()
		sym, err := s.scanWordText()
		if err != nil {
			return nil, err
		}
		runtime.InitGetWord(&cell, s.in.Intern(sym))
		return &cell, nil

	case s.current == '^':
		s.readChar()
		sym, err := s.scanWordText()
		if err != nil {
			return nil, err
		}
		kind := runtime.KindMetaWord
		if s.current == ':' {
			s.readChar()
			kind = runtime.KindMetaSetWord
		}
		runtime.InitAnyWord(&cell, kind, s.in.Intern(sym))
		return &cell, nil

	case s.current == '/' && isWordStart(s.peekChar()):
		s.readChar()
		sym, err := s.scanWordText()
		if err != nil {
			return nil, err
		}
		runtime.InitAnyWord(&cell, runtime.KindRefinement, s.in.Intern(sym))
		return &cell, nil

	case unicode.IsDigit(s.current),
		(s.current == '-' || s.current == '+') && unicode.IsDigit(s.peekChar()):
		return s.scanNumber()

	case isWordStart(s.current):
		sym, err := s.scanWordText()
		if err != nil {
			return nil, err
		}
		if !inSeq && s.current == ':' {
			s.readChar()
			runtime.InitSetWord(&cell, s.in.Intern(sym))
		} else {
			runtime.InitWord(&cell, s.in.Intern(sym))
		}
		return &cell, nil
	}

	return nil, s.errf("unexpected character '" + string(s.current) + "'")
}

// isWordStart covers letters and the operator spellings that are plain
// words (+ - * / = < > and friends).
func isWordStart(r rune) bool {
	if unicode.IsLetter(r) {
		return true
	}
	return strings.ContainsRune("+-*/=<>?!&_|", r)
}

func isWordRune(r rune) bool {
	return isWordStart(r) || unicode.IsDigit(r) || r == '\''
}

func (s *Scanner) scanWordText() (string, error) {
	var sb strings.Builder
	for isWordRune(s.current) {
		// '/' only spells a word when standing alone (the divide op);
		// inside a word it separates path segments.
		if s.current == '/' && sb.Len() > 0 {
			break
		}
		if s.current == '/' && isWordRune(s.peekChar()) {
			break
		}
		sb.WriteRune(s.current)
		s.readChar()
	}
	if sb.Len() == 0 {
		return "", s.errf("empty word")
	}
	return sb.String(), nil
}

func (s *Scanner) scanNumber() (*runtime.Cell, error) {
	var sb strings.Builder
	if s.current == '-' || s.current == '+' {
		sb.WriteRune(s.current)
		s.readChar()
	}
	dots := 0
	for unicode.IsDigit(s.current) || s.current == '.' {
		if s.current == '.' {
			if !unicode.IsDigit(s.peekChar()) {
				break // tuple continuation or trailing dot
			}
			dots++
			if dots > 1 {
				break // 1.2.3 continues as a tuple
			}
		}
		sb.WriteRune(s.current)
		s.readChar()
	}

	var cell runtime.Cell
	text := sb.String()
	if dots >= 1 && strings.Count(text, ".") == 1 {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, s.errf("bad decimal: " + text)
		}
		runtime.InitDecimal(&cell, f)
		return &cell, nil
	}
	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, s.errf("bad integer: " + text)
	}
	runtime.InitInteger(&cell, i)
	return &cell, nil
}

func (s *Scanner) scanString() (*runtime.Cell, error) {
	s.readChar() // opening quote
	var sb strings.Builder
	for {
		switch s.current {
		case 0, '\n':
			return nil, s.errf("unterminated string")
		case '"':
			s.readChar()
			series := s.in.NewBytes(sb.Len()+1, true)
			series.AppendBytes([]byte(sb.String()))
			s.in.Manage(series)
			var cell runtime.Cell
			runtime.InitText(&cell, series)
			return &cell, nil
		case '^':
			s.readChar()
			switch s.current {
			case '"':
				sb.WriteRune('"')
			case '^':
				sb.WriteRune('^')
			case '/':
				sb.WriteRune('\n')
			case '-':
				sb.WriteRune('\t')
			default:
				return nil, s.errf("bad escape ^" + string(s.current))
			}
			s.readChar()
		default:
			sb.WriteRune(s.current)
			s.readChar()
		}
	}
}

// scanHash handles #{binary}, #"char" and #issue.
func (s *Scanner) scanHash() (*runtime.Cell, error) {
	s.readChar() // '#'
	var cell runtime.Cell

	switch s.current {
	case '{':
		s.readChar()
		var hex strings.Builder
		for s.current != '}' {
			if s.current == 0 {
				return nil, s.errf("unterminated binary")
			}
			if !unicode.IsSpace(s.current) {
				hex.WriteRune(s.current)
			}
			s.readChar()
		}
		s.readChar()
		text := hex.String()
		if len(text)%2 != 0 {
			return nil, s.errf("odd-length binary")
		}
		series := s.in.NewBytes(len(text)/2+1, false)
		for i := 0; i < len(text); i += 2 {
			b, err := strconv.ParseUint(text[i:i+2], 16, 8)
			if err != nil {
				return nil, s.errf("bad binary digit: " + text[i:i+2])
			}
			series.AppendBytes([]byte{byte(b)})
		}
		s.in.Manage(series)
		runtime.InitBinary(&cell, series)
		return &cell, nil

	case '"':
		s.readChar()
		r := s.current
		s.readChar()
		if s.current != '"' {
			return nil, s.errf("unterminated character")
		}
		s.readChar()
		runtime.InitChar(&cell, r)
		return &cell, nil
	}

	sym, err := s.scanWordText()
	if err != nil {
		return nil, err
	}
	runtime.InitAnyWord(&cell, runtime.KindIssue, s.in.Intern(sym))
	return &cell, nil
}

// scanQuasi reads ~ and ~word~ quasiforms.
func (s *Scanner) scanQuasi() (*runtime.Cell, error) {
	s.readChar() // '~'
	var cell runtime.Cell

	if !isWordStart(s.current) {
		runtime.InitNone(&cell)
		cell.SetFlag(runtime.FlagQuasi)
		return &cell, nil
	}

	sym, err := s.scanWordText()
	if err != nil {
		return nil, err
	}
	if s.current != '~' {
		return nil, s.errf("unterminated quasiform")
	}
	s.readChar()

	switch sym {
	case "void":
		runtime.InitVoid(&cell)
		return &cell, nil
	case "true", "false":
		runtime.InitLogic(&cell, sym == "true")
		cell.SetFlag(runtime.FlagQuasi)
		return &cell, nil
	}
	runtime.InitWord(&cell, s.in.Intern(sym))
	cell.SetFlag(runtime.FlagQuasi)
	return &cell, nil
}

// scanSequence continues a started item into a path (a/b) or tuple
// (a.b). A trailing colon turns it into the set form.
func (s *Scanner) scanSequence(head *runtime.Cell) (*runtime.Cell, error) {
	sep := s.current
	kind := runtime.KindPath
	setKind := runtime.KindSetPath
	if sep == '.' {
		kind = runtime.KindTuple
		setKind = runtime.KindSetTuple
	}

	segs := s.in.NewArray(4)
	segs.AppendCell(head)

	for s.current == sep {
		s.readChar()
		seg, err := s.scanItem(true)
		if err != nil {
			s.in.Free(segs)
			return nil, err
		}
		segs.AppendCell(seg)
	}

	var cell runtime.Cell
	if s.current == ':' {
		s.readChar()
		runtime.InitAnySeries(&cell, setKind, segs, 0)
	} else {
		runtime.InitAnySeries(&cell, kind, segs, 0)
	}
	s.in.Manage(segs)
	return &cell, nil
}
