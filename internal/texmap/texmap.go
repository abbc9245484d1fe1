// Package texmap translates a TeX command subset into Unicode text runs.
//
// Formulas arrive as plain TeX-style source (\alpha, x^2, \frac{a}{b}) and
// leave as a flat sequence of runs tagged with the font role that renders
// them: math for formula content, body for \text{...} prose. Translation
// errors carry precise rune spans into the source plus the context frames
// they occurred in, so diagnostics can point at the offending characters.
package texmap

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/htexlab/go-htex/internal/hints"
)

// RunFont selects which configured font renders a run.
type RunFont int

const (
	FontMath RunFont = iota
	FontBody
)

// Run is a contiguous piece of translated formula text. Start and End are
// rune offsets of the originating span in the source, half-open.
type Run struct {
	Text  string
	Font  RunFont
	Start int
	End   int
}

// Frame is one context layer for diagnostics, e.g. a \frac numerator.
type Frame struct {
	Label string
	Start int
	End   int
}

// Error is a translation diagnostic with a source span, the context frames
// active when it occurred (outermost first), and remediation hints.
type Error struct {
	Msg    string
	Start  int
	End    int
	Frames []Frame
	Hints  []string
}

func (e *Error) Error() string { return e.Msg }

// Translate converts TeX-style formula source into renderable runs. The
// returned runs appear in source order; adjacent runs are not merged, so
// every run keeps a faithful span.
func Translate(source string) ([]Run, error) {
	t := &translator{src: []rune(source)}
	if err := t.translateSeq(len(t.src), FontMath); err != nil {
		return nil, err
	}
	return t.runs, nil
}

type translator struct {
	src         []rune
	pos         int
	runs        []Run
	frames      []Frame
	scriptDepth int
}

// translateSeq consumes source until pos reaches end, emitting runs.
func (t *translator) translateSeq(end int, font RunFont) error {
	for t.pos < end {
		switch r := t.src[t.pos]; {
		case r == '\\':
			if err := t.command(font); err != nil {
				return err
			}
		case r == '^' || r == '_':
			if err := t.script(r == '^'); err != nil {
				return err
			}
		case r == '{':
			inner, err := t.matchBrace()
			if err != nil {
				return err
			}
			if err := t.translateSeq(inner, font); err != nil {
				return err
			}
			t.pos = inner + 1
		case r == '}':
			return t.errAt(t.pos, t.pos+1, "unexpected closing brace", `remove it or escape it as \}`)
		case unicode.IsSpace(r):
			// math mode ignores input whitespace
			t.pos++
		default:
			t.literal(end, font)
		}
	}
	return nil
}

// literal batches a maximal span of ordinary characters into one run.
func (t *translator) literal(end int, font RunFont) {
	start := t.pos
	var b strings.Builder
	for t.pos < end {
		r := t.src[t.pos]
		if r == '\\' || r == '^' || r == '_' || r == '{' || r == '}' || unicode.IsSpace(r) {
			break
		}
		b.WriteRune(r)
		t.pos++
	}
	t.emit(b.String(), font, start, t.pos)
}

// command handles a backslash sequence: single-character escapes, spacing
// commands, the structural commands (\text, \frac, \sqrt), and the symbol
// table.
func (t *translator) command(font RunFont) error {
	start := t.pos
	t.pos++
	if t.pos >= len(t.src) {
		return t.errAt(start, t.pos, "incomplete command: trailing backslash", "")
	}

	if r := t.src[t.pos]; !isCommandLetter(r) {
		t.pos++
		return t.charEscape(r, font, start)
	}

	for t.pos < len(t.src) && isCommandLetter(t.src[t.pos]) {
		t.pos++
	}
	name := string(t.src[start+1 : t.pos])
	end := t.pos

	switch name {
	case "text":
		return t.textArgument(start)
	case "frac":
		return t.fraction(start, font)
	case "sqrt":
		return t.radical(start, font)
	}

	if repl, ok := symbols[name]; ok {
		t.emit(repl, font, start, end)
		return nil
	}

	return t.errAt(start, end,
		fmt.Sprintf(`unknown command \%s`, name),
		hints.RawUnknownCommand(suggestCommand(name)))
}

// charEscape handles \x forms where x is not a letter.
func (t *translator) charEscape(r rune, font RunFont, start int) error {
	switch r {
	case '{', '}', '$', '%', '&', '#', '_', '^':
		t.emit(string(r), font, start, t.pos)
	case '\\':
		return t.errAt(start, t.pos, "line breaks are not supported in formulas", "keep each formula on one line")
	case ',':
		t.emit(" ", font, start, t.pos) // thin space
	case ':':
		t.emit(" ", font, start, t.pos) // medium space
	case ';':
		t.emit(" ", font, start, t.pos) // thick space
	case '!':
		// negative thin space has no Unicode form; drop it
	case ' ':
		t.emit(" ", font, start, t.pos)
	default:
		return t.errAt(start, t.pos, fmt.Sprintf(`unknown escape \%c`, r), "")
	}
	return nil
}

// textArgument handles \text{...}: the braced argument renders verbatim in
// the body font. Only \{ and \} escapes are recognized inside; nested bare
// braces group silently, commands are rejected.
func (t *translator) textArgument(cmdStart int) error {
	t.skipSpace()
	if t.pos >= len(t.src) || t.src[t.pos] != '{' {
		return t.errAt(cmdStart, t.pos, `\text requires a braced argument`, `write \text{...}`)
	}
	innerEnd, err := t.matchBrace()
	if err != nil {
		return err
	}
	argStart := t.pos

	t.pushFrame(`\text argument`, argStart, innerEnd)
	defer t.popFrame()

	var b strings.Builder
	i := argStart
	for i < innerEnd {
		r := t.src[i]
		switch r {
		case '\\':
			if i+1 < innerEnd && (t.src[i+1] == '{' || t.src[i+1] == '}') {
				b.WriteRune(t.src[i+1])
				i += 2
				continue
			}
			return t.errAt(i, min(i+2, innerEnd), `commands are not supported inside \text`, "")
		case '{', '}':
			i++
		default:
			b.WriteRune(r)
			i++
		}
	}
	t.emit(b.String(), FontBody, argStart, innerEnd)
	t.pos = innerEnd + 1
	return nil
}

// fraction handles \frac{num}{den}, rendered linearly with a division
// slash. Multi-item halves are parenthesized to keep the linear form
// unambiguous.
func (t *translator) fraction(cmdStart int, font RunFont) error {
	numStart, numEnd, err := t.requireGroup(cmdStart, `\frac`)
	if err != nil {
		return err
	}
	denStart, denEnd, err := t.requireGroup(cmdStart, `\frac`)
	if err != nil {
		return err
	}

	if err := t.translateGroupPart(numStart, numEnd, font, `\frac numerator`); err != nil {
		return err
	}
	t.emit("∕", font, numEnd+1, denStart-1) // division slash
	return t.translateGroupPart(denStart, denEnd, font, `\frac denominator`)
}

// radical handles \sqrt{...}.
func (t *translator) radical(cmdStart int, font RunFont) error {
	argStart, argEnd, err := t.requireGroup(cmdStart, `\sqrt`)
	if err != nil {
		return err
	}
	t.emit("√", font, cmdStart, argStart)
	return t.translateGroupPart(argStart, argEnd, font, `\sqrt argument`)
}

// script handles ^ and _ by mapping the argument onto Unicode superscript
// or subscript characters. Arguments are a single character or a braced
// group; nesting is rejected because Unicode has no stacked script forms.
func (t *translator) script(superscript bool) error {
	opPos := t.pos
	if t.scriptDepth > 0 {
		return t.errAt(opPos, opPos+1, "nested scripts are not supported", "split the formula or flatten the exponent")
	}
	t.pos++
	t.skipSpace()
	if t.pos >= len(t.src) {
		return t.errAt(opPos, t.pos, "script operator at end of formula", "add an argument or escape the operator")
	}

	var argStart, argEnd int
	if t.src[t.pos] == '{' {
		inner, err := t.matchBrace()
		if err != nil {
			return err
		}
		argStart, argEnd = t.pos, inner
		t.pos = inner + 1
	} else {
		argStart, argEnd = t.pos, t.pos+1
		t.pos++
	}

	label := "subscript argument"
	kind := "subscript"
	table := subscripts
	if superscript {
		label = "superscript argument"
		kind = "superscript"
		table = superscripts
	}
	t.pushFrame(label, argStart, argEnd)
	defer t.popFrame()

	t.scriptDepth++
	scratch, err := t.translateScratch(argStart, argEnd, FontMath)
	t.scriptDepth--
	if err != nil {
		return err
	}

	var b strings.Builder
	for _, run := range scratch {
		if run.Font != FontMath {
			return t.errAt(run.Start, run.End, `\text is not supported inside scripts`, "")
		}
		for _, r := range run.Text {
			mapped, ok := table[r]
			if !ok {
				return t.errAt(run.Start, run.End,
					fmt.Sprintf("no %s form for %q", kind, r),
					hints.RawScriptChar(r, superscript))
			}
			b.WriteRune(mapped)
		}
	}
	t.emit(b.String(), FontMath, opPos, argEnd)
	return nil
}

// requireGroup consumes a braced argument, returning its inner bounds.
// Whitespace before the opening brace is allowed, as in TeX.
func (t *translator) requireGroup(cmdStart int, what string) (int, int, error) {
	t.skipSpace()
	if t.pos >= len(t.src) || t.src[t.pos] != '{' {
		return 0, 0, t.errAt(cmdStart, t.pos, what+" requires braced arguments", "write "+what+"{...}{...}")
	}
	innerEnd, err := t.matchBrace()
	if err != nil {
		return 0, 0, err
	}
	innerStart := t.pos
	t.pos = innerEnd + 1
	return innerStart, innerEnd, nil
}

// translateGroupPart translates a sub-range under a context frame and
// parenthesizes the result when it spans more than one rune.
func (t *translator) translateGroupPart(start, end int, font RunFont, label string) error {
	t.pushFrame(label, start, end)
	defer t.popFrame()

	part, err := t.translateScratch(start, end, font)
	if err != nil {
		return err
	}

	if runeCount(part) > 1 {
		t.emit("(", font, start, start)
		t.runs = append(t.runs, part...)
		t.emit(")", font, end, end)
		return nil
	}
	t.runs = append(t.runs, part...)
	return nil
}

// translateScratch translates src[start:end] and returns the produced runs
// without leaving them in t.runs. The caller decides their placement.
func (t *translator) translateScratch(start, end int, font RunFont) ([]Run, error) {
	savedPos := t.pos
	runsBefore := len(t.runs)
	t.pos = start
	if err := t.translateSeq(end, font); err != nil {
		return nil, err
	}
	t.pos = savedPos

	scratch := make([]Run, len(t.runs)-runsBefore)
	copy(scratch, t.runs[runsBefore:])
	t.runs = t.runs[:runsBefore]
	return scratch, nil
}

// matchBrace finds the brace matching src[pos], leaves pos just past the
// opening brace and returns the index of the closing one.
func (t *translator) matchBrace() (int, error) {
	open := t.pos
	depth := 0
	for i := t.pos; i < len(t.src); i++ {
		switch t.src[i] {
		case '\\':
			i++ // skip the escaped character
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				t.pos = open + 1
				return i, nil
			}
		}
	}
	return 0, t.errAt(open, open+1, "unbalanced braces: no matching }", "add the missing closing brace")
}

func (t *translator) emit(text string, font RunFont, start, end int) {
	if text == "" {
		return
	}
	t.runs = append(t.runs, Run{Text: text, Font: font, Start: start, End: end})
}

func (t *translator) pushFrame(label string, start, end int) {
	t.frames = append(t.frames, Frame{Label: label, Start: start, End: end})
}

func (t *translator) popFrame() {
	t.frames = t.frames[:len(t.frames)-1]
}

// errAt builds a diagnostic at the given span with the active frames
// attached, outermost first.
func (t *translator) errAt(start, end int, msg, hint string) error {
	e := &Error{Msg: msg, Start: start, End: end}
	if len(t.frames) > 0 {
		e.Frames = make([]Frame, len(t.frames))
		copy(e.Frames, t.frames)
	}
	if hint != "" {
		e.Hints = append(e.Hints, hint)
	}
	return e
}

func (t *translator) skipSpace() {
	for t.pos < len(t.src) && unicode.IsSpace(t.src[t.pos]) {
		t.pos++
	}
}

func isCommandLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func runeCount(runs []Run) int {
	n := 0
	for _, run := range runs {
		n += utf8.RuneCountInString(run.Text)
	}
	return n
}
