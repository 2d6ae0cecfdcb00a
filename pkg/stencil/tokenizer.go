package stencil

import (
	"regexp"
	"strings"
)

// TokenType represents the type of a template token
type TokenType int

const (
	TokenText TokenType = iota
	TokenVariable
	TokenIf
	TokenUnless
	TokenEach
	TokenElse
	TokenEndIf
	TokenEndUnless
	TokenEndEach
)

func (t TokenType) String() string {
	switch t {
	case TokenText:
		return "text"
	case TokenVariable:
		return "variable"
	case TokenIf:
		return "#if"
	case TokenUnless:
		return "#unless"
	case TokenEach:
		return "#each"
	case TokenElse:
		return "else"
	case TokenEndIf:
		return "/if"
	case TokenEndUnless:
		return "/unless"
	case TokenEndEach:
		return "/each"
	default:
		return "unknown"
	}
}

// Token represents a parsed template token.
//
// Raw is the exact source text of the token, Value the directive argument
// (variable path, block condition or loop target) and Format the format
// specifier of a {{name:format}} placeholder. Directive is set for every
// token matched between braces, including ones that were not understood and
// are kept as text.
type Token struct {
	Type      TokenType
	Value     string
	Format    string
	HasFormat bool
	Raw       string
	Offset    int
	Directive bool
}

var (
	// Regular expression to match template directives
	tokenRegex = regexp.MustCompile(`\{\{([^{}]*)\}\}`)
)

// Tokenize splits a template string into text and directive tokens.
func Tokenize(input string) []Token {
	var tokens []Token
	lastEnd := 0

	logger := GetLogger()
	if logger.IsDebugMode() {
		logger.WithField("input_length", len(input)).Debug("Starting tokenization")
	}

	for _, match := range tokenRegex.FindAllStringSubmatchIndex(input, -1) {
		if match[0] > lastEnd {
			tokens = append(tokens, Token{
				Type:   TokenText,
				Value:  input[lastEnd:match[0]],
				Raw:    input[lastEnd:match[0]],
				Offset: lastEnd,
			})
		}

		token := parseToken(input[match[2]:match[3]])
		token.Raw = input[match[0]:match[1]]
		token.Offset = match[0]
		token.Directive = true
		if token.Type == TokenText {
			token.Value = token.Raw
		}
		tokens = append(tokens, token)

		lastEnd = match[1]
	}

	if lastEnd < len(input) {
		tokens = append(tokens, Token{
			Type:   TokenText,
			Value:  input[lastEnd:],
			Raw:    input[lastEnd:],
			Offset: lastEnd,
		})
	}

	if logger.IsDebugMode() {
		logger.WithField("token_count", len(tokens)).Debug("Tokenization complete")
	}

	return tokens
}

// parseToken determines the type of a directive from the text between the
// braces.
func parseToken(content string) Token {
	content = strings.TrimSpace(content)
	if content == "" {
		return Token{Type: TokenText}
	}

	switch content {
	case "else":
		return Token{Type: TokenElse}
	case "/if":
		return Token{Type: TokenEndIf}
	case "/unless":
		return Token{Type: TokenEndUnless}
	case "/each":
		return Token{Type: TokenEndEach}
	}

	if strings.HasPrefix(content, "#") {
		keyword, arg := splitKeyword(content[1:])
		if arg == "" {
			return Token{Type: TokenText}
		}
		switch keyword {
		case "if":
			return Token{Type: TokenIf, Value: arg}
		case "unless":
			return Token{Type: TokenUnless, Value: arg}
		case "each":
			return Token{Type: TokenEach, Value: arg}
		}
		return Token{Type: TokenText}
	}

	name, format, hasFormat := strings.Cut(content, ":")
	name = strings.TrimSpace(name)
	if name == "" {
		return Token{Type: TokenText}
	}
	token := Token{Type: TokenVariable, Value: name}
	if hasFormat {
		token.Format = strings.TrimSpace(format)
		token.HasFormat = token.Format != ""
	}
	return token
}

func splitKeyword(s string) (keyword, arg string) {
	idx := strings.IndexAny(s, " \t\r\n")
	if idx == -1 {
		return s, ""
	}
	return s[:idx], strings.TrimSpace(s[idx:])
}

// FindTemplateTokens finds all directives in a string.
// This is a utility function for debugging and analysis
func FindTemplateTokens(input string) []string {
	matches := tokenRegex.FindAllString(input, -1)
	if matches == nil {
		return []string{}
	}
	return matches
}

// positionTracker converts byte offsets into 1-based line and column
// numbers, counting columns in runes. Offsets asked for in increasing order
// only scan the text between them, so positioning every token of a
// template is linear in its size.
type positionTracker struct {
	input  string
	offset int
	line   int
	column int
}

func newPositionTracker(input string) *positionTracker {
	return &positionTracker{input: input, line: 1, column: 1}
}

func (p *positionTracker) position(offset int) (line, column int) {
	if offset > len(p.input) {
		offset = len(p.input)
	}
	if offset < p.offset {
		p.offset, p.line, p.column = 0, 1, 1
	}
	for _, r := range p.input[p.offset:offset] {
		if r == '\n' {
			p.line++
			p.column = 1
		} else {
			p.column++
		}
	}
	p.offset = offset
	return p.line, p.column
}
