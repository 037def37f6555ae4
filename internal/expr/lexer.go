package expr

import (
	"strconv"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNum
	tokIdent
	tokCmd
	tokOp
)

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

// LaTeX commands that only size or space delimiters.
var skippedCmds = map[string]bool{
	"left": true, "right": true, "middle": true,
	"big": true, "Big": true, "bigg": true, "Bigg": true,
	"bigl": true, "bigr": true, "Bigl": true, "Bigr": true,
	"displaystyle": true,
}

var opCmds = map[string]string{
	"cdot":  "*",
	"times": "*",
	"ast":   "*",
	"div":   "/",
}

func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		r, size := utf8.DecodeRuneInString(src[i:])
		switch {
		case unicode.IsSpace(r):
			i += size

		case isDigit(r) || (r == '.' && i+1 < len(src) && isDigit(rune(src[i+1]))):
			start := i
			i = scanNumber(src, i)
			v, err := strconv.ParseFloat(src[start:i], 64)
			if err != nil {
				return nil, &ParseError{Formula: src, Pos: start, Msg: "malformed number " + strconv.Quote(src[start:i])}
			}
			toks = append(toks, token{kind: tokNum, text: src[start:i], num: v, pos: start})

		case unicode.IsLetter(r):
			start := i
			for i < len(src) {
				r2, s2 := utf8.DecodeRuneInString(src[i:])
				if !unicode.IsLetter(r2) && !unicode.IsDigit(r2) {
					break
				}
				i += s2
			}
			toks = append(toks, token{kind: tokIdent, text: src[start:i], pos: start})

		case r == '\\':
			start := i
			i++
			j := i
			for j < len(src) && isASCIILetter(src[j]) {
				j++
			}
			if j == i {
				if i < len(src) && (src[i] == ',' || src[i] == ';' || src[i] == '!' || src[i] == ':' || src[i] == ' ') {
					i++
					continue
				}
				return nil, &ParseError{Formula: src, Pos: start, Msg: "dangling backslash"}
			}
			name := src[i:j]
			i = j
			if skippedCmds[name] {
				if i < len(src) && src[i] == '.' {
					i++
				}
				continue
			}
			if op, ok := opCmds[name]; ok {
				toks = append(toks, token{kind: tokOp, text: op, pos: start})
				continue
			}
			toks = append(toks, token{kind: tokCmd, text: name, pos: start})

		case r == '*' && i+1 < len(src) && src[i+1] == '*':
			toks = append(toks, token{kind: tokOp, text: "^", pos: i})
			i += 2

		case r == '−':
			toks = append(toks, token{kind: tokOp, text: "-", pos: i})
			i += size

		case r == '·' || r == '×' || r == '⋅':
			toks = append(toks, token{kind: tokOp, text: "*", pos: i})
			i += size

		case isOp(r):
			toks = append(toks, token{kind: tokOp, text: string(r), pos: i})
			i += size

		default:
			return nil, &ParseError{Formula: src, Pos: i, Msg: "unexpected character " + strconv.QuoteRune(r)}
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(src)})
	return toks, nil
}

func scanNumber(src string, i int) int {
	for i < len(src) && isDigit(rune(src[i])) {
		i++
	}
	if i < len(src) && src[i] == '.' {
		i++
		for i < len(src) && isDigit(rune(src[i])) {
			i++
		}
	}
	if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
		j := i + 1
		if j < len(src) && (src[j] == '+' || src[j] == '-') {
			j++
		}
		if j < len(src) && isDigit(rune(src[j])) {
			i = j
			for i < len(src) && isDigit(rune(src[i])) {
				i++
			}
		}
	}
	return i
}

func isDigit(r rune) bool       { return r >= '0' && r <= '9' }
func isASCIILetter(b byte) bool { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') }

func isOp(r rune) bool {
	switch r {
	case '+', '-', '*', '/', '^', ',', '_', '|', '(', ')', '{', '}', '[', ']':
		return true
	}
	return false
}
