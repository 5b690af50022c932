package lexer

import (
	"github.com/thiremani/safec/token"
)

type Lexer struct {
	file         string
	input        []rune
	position     int  // current position in input (points to current rune)
	readPosition int  // current reading position in input (after current rune)
	curr         rune // current rune under examination
	line         int
	column       int
}

func New(file, input string) *Lexer {
	l := &Lexer{file: file, input: []rune(input), line: 1}
	l.readRune()
	return l
}

func (l *Lexer) NextToken() token.Token {
	var tok token.Token

	l.skipWhitespaceAndComments()
	pos := l.pos()

	switch l.curr {
	case '=':
		tok = l.either('=', token.EQL, token.ASSIGN)
	case '!':
		tok = l.either('=', token.NEQ, token.NOT)
	case '~':
		tok = newToken(token.TILDE, l.curr)
	case '?':
		tok = newToken(token.QUEST, l.curr)
	case ':':
		tok = newToken(token.COLON, l.curr)
	case '+':
		switch l.peekRune() {
		case '+':
			tok = l.two(token.INC)
		case '=':
			tok = l.two(token.ADD_ASSIGN)
		default:
			tok = newToken(token.ADD, l.curr)
		}
	case '-':
		switch l.peekRune() {
		case '-':
			tok = l.two(token.DEC)
		case '=':
			tok = l.two(token.SUB_ASSIGN)
		case '>':
			tok = l.two(token.ARROW)
		default:
			tok = newToken(token.SUB, l.curr)
		}
	case '*':
		tok = l.either('=', token.MUL_ASSIGN, token.MUL)
	case '/':
		tok = l.either('=', token.QUO_ASSIGN, token.QUO)
	case '%':
		tok = l.either('=', token.REM_ASSIGN, token.REM)
	case '^':
		tok = l.either('=', token.XOR_ASSIGN, token.XOR)
	case '&':
		switch l.peekRune() {
		case '&':
			tok = l.two(token.LAND)
		case '=':
			tok = l.two(token.AND_ASSIGN)
		default:
			tok = newToken(token.AND, l.curr)
		}
	case '|':
		switch l.peekRune() {
		case '|':
			tok = l.two(token.LOR)
		case '=':
			tok = l.two(token.OR_ASSIGN)
		default:
			tok = newToken(token.OR, l.curr)
		}
	case '<':
		switch l.peekRune() {
		case '<':
			tok = l.two(token.SHL)
			if l.peekRune() == '=' {
				l.readRune()
				tok = token.Token{Type: token.SHL_ASSIGN, Literal: "<<="}
			}
		case '=':
			tok = l.two(token.LEQ)
		default:
			tok = newToken(token.LSS, l.curr)
		}
	case '>':
		switch l.peekRune() {
		case '>':
			tok = l.two(token.SHR)
			if l.peekRune() == '=' {
				l.readRune()
				tok = token.Token{Type: token.SHR_ASSIGN, Literal: ">>="}
			}
		case '=':
			tok = l.two(token.GEQ)
		default:
			tok = newToken(token.GTR, l.curr)
		}
	case ',':
		tok = newToken(token.COMMA, l.curr)
	case ';':
		tok = newToken(token.SEMICOLON, l.curr)
	case '.':
		if l.peekRune() == '.' && l.peekAt(2) == '.' {
			l.readRune()
			l.readRune()
			tok = token.Token{Type: token.ELLIPSIS, Literal: "..."}
		} else if isDigit(l.peekRune()) {
			tok.Type, tok.Literal = l.readNumber()
			tok.Pos = pos
			return tok
		} else {
			tok = newToken(token.PERIOD, l.curr)
		}
	case '(':
		tok = newToken(token.LPAREN, l.curr)
	case ')':
		tok = newToken(token.RPAREN, l.curr)
	case '[':
		tok = newToken(token.LBRACK, l.curr)
	case ']':
		tok = newToken(token.RBRACK, l.curr)
	case '{':
		tok = newToken(token.LBRACE, l.curr)
	case '}':
		tok = newToken(token.RBRACE, l.curr)
	case '"':
		tok.Type = token.STRING
		tok.Literal = l.readQuoted('"')
		tok.Pos = pos
		return tok
	case '\'':
		tok.Type = token.CHAR
		tok.Literal = l.readQuoted('\'')
		tok.Pos = pos
		return tok
	case 0:
		tok.Literal = ""
		tok.Type = token.EOF
		tok.Pos = pos
		return tok
	default:
		if isLetter(l.curr) {
			tok.Literal = l.readIdentifier()
			tok.Type = token.LookupIdent(tok.Literal)
			tok.Pos = pos
			return tok
		} else if isDigit(l.curr) {
			tok.Type, tok.Literal = l.readNumber()
			tok.Pos = pos
			return tok
		} else {
			tok = newToken(token.ILLEGAL, l.curr)
		}
	}

	tok.Pos = pos
	l.readRune()
	return tok
}

func (l *Lexer) pos() token.Pos {
	return token.Pos{File: l.file, Line: l.line, Column: l.column}
}

// either returns the two-rune token if the next rune is next, else the single-rune token.
func (l *Lexer) either(next rune, double, single token.TokenType) token.Token {
	if l.peekRune() == next {
		return l.two(double)
	}
	return newToken(single, l.curr)
}

func (l *Lexer) two(t token.TokenType) token.Token {
	first := l.curr
	l.readRune()
	return token.Token{Type: t, Literal: string(first) + string(l.curr)}
}

// skipWhitespaceAndComments also drops preprocessor lines; the input is
// expected to be preprocessed already.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch {
		case l.curr == ' ' || l.curr == '\t' || l.curr == '\n' || l.curr == '\r':
			l.readRune()
		case l.curr == '/' && l.peekRune() == '/':
			for l.curr != '\n' && l.curr != 0 {
				l.readRune()
			}
		case l.curr == '/' && l.peekRune() == '*':
			l.readRune()
			l.readRune()
			for !(l.curr == '*' && l.peekRune() == '/') && l.curr != 0 {
				l.readRune()
			}
			if l.curr != 0 {
				l.readRune()
				l.readRune()
			}
		case l.curr == '#' && l.column == l.lineIndent():
			for l.curr != '\n' && l.curr != 0 {
				l.readRune()
			}
		default:
			return
		}
	}
}

// lineIndent returns the column of the first non-blank rune on the current line.
func (l *Lexer) lineIndent() int {
	start := l.position
	for start > 0 && l.input[start-1] != '\n' {
		start--
	}
	col := 1
	for i := start; i < l.position && (l.input[i] == ' ' || l.input[i] == '\t'); i++ {
		col++
	}
	return col
}

func (l *Lexer) readRune() {
	if l.curr == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPosition >= len(l.input) {
		l.curr = 0
	} else {
		l.curr = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++
}

func (l *Lexer) peekRune() rune {
	return l.peekAt(1)
}

func (l *Lexer) peekAt(n int) rune {
	idx := l.position + n
	if idx >= len(l.input) {
		return 0
	}
	return l.input[idx]
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.curr) || isDigit(l.curr) {
		l.readRune()
	}
	return string(l.input[position:l.position])
}

// readNumber reads decimal, octal and hex integers (with u/l suffixes) and
// simple decimal floats.
func (l *Lexer) readNumber() (token.TokenType, string) {
	position := l.position
	tt := token.TokenType(token.INT)
	if l.curr == '0' && (l.peekRune() == 'x' || l.peekRune() == 'X') {
		l.readRune()
		l.readRune()
		for isHexDigit(l.curr) {
			l.readRune()
		}
	} else {
		for isDigit(l.curr) {
			l.readRune()
		}
		if l.curr == '.' {
			tt = token.FLOAT
			l.readRune()
			for isDigit(l.curr) {
				l.readRune()
			}
		}
		if l.curr == 'e' || l.curr == 'E' {
			tt = token.FLOAT
			l.readRune()
			if l.curr == '+' || l.curr == '-' {
				l.readRune()
			}
			for isDigit(l.curr) {
				l.readRune()
			}
		}
	}
	lit := string(l.input[position:l.position])
	for l.curr == 'u' || l.curr == 'U' || l.curr == 'l' || l.curr == 'L' || (tt == token.FLOAT && (l.curr == 'f' || l.curr == 'F')) {
		l.readRune()
	}
	return tt, lit
}

// readQuoted returns the literal body with escapes left intact.
func (l *Lexer) readQuoted(quote rune) string {
	l.readRune()
	position := l.position
	for l.curr != quote && l.curr != 0 && l.curr != '\n' {
		if l.curr == '\\' {
			l.readRune()
		}
		l.readRune()
	}
	lit := string(l.input[position:l.position])
	if l.curr == quote {
		l.readRune()
	}
	return lit
}

func isLetter(ch rune) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

func isHexDigit(ch rune) bool {
	return isDigit(ch) || 'a' <= ch && ch <= 'f' || 'A' <= ch && ch <= 'F'
}

func newToken(tokenType token.TokenType, curr rune) token.Token {
	return token.Token{Type: tokenType, Literal: string(curr)}
}
