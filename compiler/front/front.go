package front

import (
	"bytes"

	"tlog.app/go/errors"
)

type (
	token interface{}

	ident  []byte
	punct  string
	number struct {
		v    int32
		base int
	}
)

type state struct {
	name string
	b    []byte
}

// token reads the next token starting at st, skipping spaces and
// comments. A nil token means end of input.
func (s *state) token(st int) (t token, i int, err error) {
	st = s.skipSpaces(st)
	i = st

	if i == len(s.b) {
		return nil, i, nil
	}

	c := s.b[i]

	switch {
	case c >= '0' && c <= '9':
		return s.number(i)
	case c == '_' || c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z':
		i = s.skipIdent(i + 1)

		return ident(s.b[st:i]), i, nil
	}

	if i+1 < len(s.b) {
		switch two := string(s.b[i : i+2]); two {
		case "&&", "||", "==", "!=", "<=", ">=":
			return punct(two), i + 2, nil
		}
	}

	switch c {
	case '+', '-', '*', '/', '%', '(', ')', '{', '}', '[', ']', ';', ',', '=', '<', '>', '!':
		return punct(s.b[i : i+1]), i + 1, nil
	}

	return nil, i, errors.New("unsupported character: %q", c)
}

func (s *state) number(st int) (t token, i int, err error) {
	i = st
	base := 10

	if s.b[i] == '0' && i+1 < len(s.b) && (s.b[i+1] == 'x' || s.b[i+1] == 'X') {
		base = 16
		i += 2
		st = i

		for i < len(s.b) && isHex(s.b[i]) {
			i++
		}

		if i == st {
			return nil, i, errors.New("malformed hex literal")
		}
	} else {
		for i < len(s.b) && s.b[i] >= '0' && s.b[i] <= '9' {
			i++
		}

		if s.b[st] == '0' && i-st > 1 {
			base = 8
			st++
		}
	}

	var v int64

	for _, c := range s.b[st:i] {
		v = v*int64(base) + int64(digit(c))
	}

	return number{v: int32(v), base: base}, i, nil
}

func (s *state) skipSpaces(i int) int {
	for i < len(s.b) {
		switch s.b[i] {
		case ' ', '\t', '\r', '\n':
			i++
			continue
		case '/':
			if i+1 < len(s.b) && s.b[i+1] == '/' {
				i = s.skipLine(i)
				continue
			}

			if i+1 < len(s.b) && s.b[i+1] == '*' {
				j := bytes.Index(s.b[i+2:], []byte("*/"))
				if j < 0 {
					return len(s.b)
				}

				i += 2 + j + 2
				continue
			}
		}

		break
	}

	return i
}

func (s *state) skipIdent(i int) int {
	for i < len(s.b) && (s.b[i] == '_' ||
		s.b[i] >= 'A' && s.b[i] <= 'Z' ||
		s.b[i] >= 'a' && s.b[i] <= 'z' ||
		s.b[i] >= '0' && s.b[i] <= '9') {
		i++
	}

	return i
}

func (s *state) skipLine(i int) int {
	for i < len(s.b) && s.b[i] != '\n' {
		i++
	}

	return i
}

// lineAt is only used for diagnostics and AST line numbers.
func (s *state) lineAt(pos int) int {
	if pos > len(s.b) {
		pos = len(s.b)
	}

	return bytes.Count(s.b[:pos], []byte{'\n'}) + 1
}

func digit(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}

	return 0
}

func isHex(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}
