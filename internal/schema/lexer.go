package schema

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokWord   tokenKind = iota // bare identifier, keyword or number
	tokQuoted                  // "x", `x` or [x]
	tokString                  // 'text'
	tokLParen
	tokRParen
	tokComma
	tokDot
	tokOther
)

type token struct {
	kind  tokenKind
	text  string
	start int
	end   int
}

// upper returns the keyword form of a bare word; quoted tokens never match keywords.
func (t token) upper() string {
	if t.kind != tokWord {
		return ""
	}
	return strings.ToUpper(t.text)
}

func (t token) is(keyword string) bool {
	return t.upper() == keyword
}

// lex splits a SQLite statement into tokens, skipping whitespace and comments.
func lex(src string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '-' && i+1 < len(src) && src[i+1] == '-':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				return nil, fmt.Errorf("unterminated comment at offset %d", i)
			}
			i += end + 4
		case c == '(':
			tokens = append(tokens, token{tokLParen, "(", i, i + 1})
			i++
		case c == ')':
			tokens = append(tokens, token{tokRParen, ")", i, i + 1})
			i++
		case c == ',':
			tokens = append(tokens, token{tokComma, ",", i, i + 1})
			i++
		case c == '.':
			tokens = append(tokens, token{tokDot, ".", i, i + 1})
			i++
		case c == '"' || c == '`' || c == '\'':
			end, err := scanQuoted(src, i, c)
			if err != nil {
				return nil, err
			}
			kind := tokQuoted
			if c == '\'' {
				kind = tokString
			}
			tokens = append(tokens, token{kind, src[i:end], i, end})
			i = end
		case c == '[':
			end := strings.IndexByte(src[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("unterminated bracket identifier at offset %d", i)
			}
			tokens = append(tokens, token{tokQuoted, src[i : i+end+1], i, i + end + 1})
			i += end + 1
		case isWordByte(c):
			start := i
			for i < len(src) && isWordByte(src[i]) {
				i++
			}
			tokens = append(tokens, token{tokWord, src[start:i], start, i})
		default:
			tokens = append(tokens, token{tokOther, src[i : i+1], i, i + 1})
			i++
		}
	}
	return tokens, nil
}

// scanQuoted returns the offset just past a quoted run starting at i.
// A doubled quote character is an escape.
func scanQuoted(src string, i int, q byte) (int, error) {
	j := i + 1
	for j < len(src) {
		if src[j] == q {
			if j+1 < len(src) && src[j+1] == q {
				j += 2
				continue
			}
			return j + 1, nil
		}
		j++
	}
	return 0, fmt.Errorf("unterminated quoted token at offset %d", i)
}

func isWordByte(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c >= 0x80
}

// splitTopLevel splits tokens on commas that are not nested inside parentheses.
func splitTopLevel(tokens []token) [][]token {
	var parts [][]token
	depth, start := 0, 0
	for i, t := range tokens {
		switch t.kind {
		case tokLParen:
			depth++
		case tokRParen:
			depth--
		case tokComma:
			if depth == 0 {
				parts = append(parts, tokens[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, tokens[start:])
}

// matchParen returns the index of the parenthesis closing the one at open.
func matchParen(tokens []token, open int) int {
	depth := 0
	for i := open; i < len(tokens); i++ {
		switch tokens[i].kind {
		case tokLParen:
			depth++
		case tokRParen:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
