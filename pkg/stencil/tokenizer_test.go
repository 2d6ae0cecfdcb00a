package stencil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Token
	}{
		{
			name:  "plain text",
			input: "Hello World",
			want: []Token{
				{Type: TokenText, Value: "Hello World", Raw: "Hello World"},
			},
		},
		{
			name:  "simple variable",
			input: "Hello {{name}}!",
			want: []Token{
				{Type: TokenText, Value: "Hello ", Raw: "Hello "},
				{Type: TokenVariable, Value: "name", Raw: "{{name}}", Offset: 6, Directive: true},
				{Type: TokenText, Value: "!", Raw: "!", Offset: 14},
			},
		},
		{
			name:  "formatted variable with spaces",
			input: "{{ amount : EUR }}",
			want: []Token{
				{Type: TokenVariable, Value: "amount", Format: "EUR", HasFormat: true, Raw: "{{ amount : EUR }}", Directive: true},
			},
		},
		{
			name:  "format keeps everything after the first colon",
			input: "{{when:HH:mm}}",
			want: []Token{
				{Type: TokenVariable, Value: "when", Format: "HH:mm", HasFormat: true, Raw: "{{when:HH:mm}}", Directive: true},
			},
		},
		{
			name:  "empty format is no format",
			input: "{{name:}}",
			want: []Token{
				{Type: TokenVariable, Value: "name", Raw: "{{name:}}", Directive: true},
			},
		},
		{
			name:  "block directives",
			input: "{{#if a}}{{else}}{{/if}}{{#unless b}}{{/unless}}{{#each  items }}{{/each}}",
			want: []Token{
				{Type: TokenIf, Value: "a", Raw: "{{#if a}}", Directive: true},
				{Type: TokenElse, Raw: "{{else}}", Offset: 9, Directive: true},
				{Type: TokenEndIf, Raw: "{{/if}}", Offset: 17, Directive: true},
				{Type: TokenUnless, Value: "b", Raw: "{{#unless b}}", Offset: 24, Directive: true},
				{Type: TokenEndUnless, Raw: "{{/unless}}", Offset: 37, Directive: true},
				{Type: TokenEach, Value: "items", Raw: "{{#each  items }}", Offset: 48, Directive: true},
				{Type: TokenEndEach, Raw: "{{/each}}", Offset: 65, Directive: true},
			},
		},
		{
			name:  "unknown and empty directives are text",
			input: "{{}}{{#for x}}{{#if}}{{:fmt}}",
			want: []Token{
				{Type: TokenText, Value: "{{}}", Raw: "{{}}", Directive: true},
				{Type: TokenText, Value: "{{#for x}}", Raw: "{{#for x}}", Offset: 4, Directive: true},
				{Type: TokenText, Value: "{{#if}}", Raw: "{{#if}}", Offset: 14, Directive: true},
				{Type: TokenText, Value: "{{:fmt}}", Raw: "{{:fmt}}", Offset: 21, Directive: true},
			},
		},
		{
			name:  "braces inside braces are not a directive",
			input: "{{{name}}}",
			want: []Token{
				{Type: TokenText, Value: "{", Raw: "{"},
				{Type: TokenVariable, Value: "name", Raw: "{{name}}", Offset: 1, Directive: true},
				{Type: TokenText, Value: "}", Raw: "}", Offset: 9},
			},
		},
		{
			name:  "single braces stay text",
			input: "{name} {{ }",
			want: []Token{
				{Type: TokenText, Value: "{name} {{ }", Raw: "{name} {{ }"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.input))
		})
	}
}

func TestTokenize_Empty(t *testing.T) {
	assert.Empty(t, Tokenize(""))
}

func TestTokenTypeString(t *testing.T) {
	tests := []struct {
		typ  TokenType
		want string
	}{
		{TokenText, "text"},
		{TokenVariable, "variable"},
		{TokenIf, "#if"},
		{TokenUnless, "#unless"},
		{TokenEach, "#each"},
		{TokenElse, "else"},
		{TokenEndIf, "/if"},
		{TokenEndUnless, "/unless"},
		{TokenEndEach, "/each"},
		{TokenType(99), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.typ.String())
		})
	}
}

func TestFindTemplateTokens(t *testing.T) {
	assert.Equal(t, []string{"{{a}}", "{{#if b}}", "{{/if}}"}, FindTemplateTokens("x {{a}} {{#if b}}y{{/if}}"))
	assert.Equal(t, []string{}, FindTemplateTokens("no directives"))
}

func TestLineColumn(t *testing.T) {
	input := "ab\ncdé{{x}}\n"
	tests := []struct {
		offset int
		line   int
		column int
	}{
		{0, 1, 1},
		{2, 1, 3},
		{3, 2, 1},
		{7, 2, 4},
		{100, 3, 1},
	}
	for _, tt := range tests {
		line, column := newPositionTracker(input).position(tt.offset)
		assert.Equal(t, tt.line, line, "offset %d", tt.offset)
		assert.Equal(t, tt.column, column, "offset %d", tt.offset)
	}
}

func TestPositionTracker(t *testing.T) {
	positions := newPositionTracker("ab\ncdé{{x}}\n")
	tests := []struct {
		offset int
		line   int
		column int
	}{
		{2, 1, 3},
		{7, 2, 4},
		{7, 2, 4},
		{3, 2, 1}, // backwards restarts from the top
		{12, 3, 1},
	}
	for _, tt := range tests {
		line, column := positions.position(tt.offset)
		assert.Equal(t, tt.line, line, "offset %d", tt.offset)
		assert.Equal(t, tt.column, column, "offset %d", tt.offset)
	}
}
