package stencil

import (
	"fmt"
	"strings"
)

// Node is an element of a parsed template tree.
type Node interface {
	String() string
	render(st *renderState, sc *scope, out *strings.Builder)
}

// TextNode represents literal template text
type TextNode struct {
	Content string
}

func (n *TextNode) String() string {
	return fmt.Sprintf("Text(%q)", n.Content)
}

// VariableNode represents a {{name}} or {{name:format}} placeholder.
type VariableNode struct {
	Path      string
	Format    string
	HasFormat bool
	Raw       string
}

func (n *VariableNode) String() string {
	if n.HasFormat {
		return fmt.Sprintf("Variable(%s:%s)", n.Path, n.Format)
	}
	return fmt.Sprintf("Variable(%s)", n.Path)
}

// IfNode represents a {{#if cond}}...{{else}}...{{/if}} block
type IfNode struct {
	Condition string
	ThenBody  []Node
	ElseBody  []Node
}

func (n *IfNode) String() string {
	if len(n.ElseBody) > 0 {
		return fmt.Sprintf("If(%s) Else", n.Condition)
	}
	return fmt.Sprintf("If(%s)", n.Condition)
}

// UnlessNode represents an unless block (negated if)
type UnlessNode struct {
	Condition string
	ThenBody  []Node
	ElseBody  []Node
}

func (n *UnlessNode) String() string {
	return fmt.Sprintf("Unless(%s)", n.Condition)
}

// EachNode represents a {{#each items}}...{{/each}} loop. ElseBody renders
// when the collection is missing, not an array, or empty.
//
// Inside the body {{this}} is the current item and renders its display text
// whatever its kind: booleans as true or false, objects and arrays as
// compact JSON and null as nothing. Properties of an object item are also
// bound by bare name, alongside @index, @number, @first and @last.
type EachNode struct {
	Collection string
	Body       []Node
	ElseBody   []Node
}

func (n *EachNode) String() string {
	return fmt.Sprintf("Each(%s)", n.Collection)
}

// Template is a parsed template, safe for concurrent rendering.
type Template struct {
	source string
	nodes  []Node
	issues []TemplateIssue
}

// Source returns the template text the tree was parsed from.
func (t *Template) Source() string { return t.source }

// Nodes returns the top-level nodes.
func (t *Template) Nodes() []Node { return t.nodes }

// Issues returns the structural problems found while parsing. Parsing never
// fails; each issue corresponds to a directive that was kept as literal text.
func (t *Template) Issues() []TemplateIssue { return t.issues }

// Parse parses template text into a tree using the global configuration's
// nesting limit.
func Parse(source string) *Template {
	return parseWithDepth(source, GetGlobalConfig().MaxNestingDepth)
}

// parseWithDepth parses source with a nesting limit. A limit that is not
// positive means the default one.
func parseWithDepth(source string, maxDepth int) *Template {
	if maxDepth <= 0 {
		maxDepth = DefaultConfig().MaxNestingDepth
	}
	tokens := Tokenize(source)
	m := matchBlocks(tokens, maxDepth)
	b := &treeBuilder{tokens: tokens, blocks: m}
	nodes := b.build(0, len(tokens))
	return &Template{source: source, nodes: nodes, issues: m.issues(source, tokens)}
}

// blockMatches pairs every block directive with its partners in a single
// pass over the tokens. A directive left unpaired is kept as text and
// carries the issue that explains why.
type blockMatches struct {
	closeAt  []int // opener -> its close tag, -1 when unclosed
	elseAt   []int // opener -> its else tag, -1 when absent
	problem  []IssueCode
	maxDepth int
}

func closerFor(open TokenType) TokenType {
	switch open {
	case TokenIf:
		return TokenEndIf
	case TokenUnless:
		return TokenEndUnless
	case TokenEach:
		return TokenEndEach
	}
	return TokenText
}

// matchBlocks walks tokens with a stack of open blocks. A close tag closes
// the innermost open block of its kind; blocks opened after that one are
// unclosed and their else tag, if any, moves to the block being closed when
// it has none yet. An else belongs to the innermost open block.
func matchBlocks(tokens []Token, maxDepth int) *blockMatches {
	m := &blockMatches{
		closeAt:  make([]int, len(tokens)),
		elseAt:   make([]int, len(tokens)),
		problem:  make([]IssueCode, len(tokens)),
		maxDepth: maxDepth,
	}
	for i := range tokens {
		m.closeAt[i] = -1
		m.elseAt[i] = -1
	}

	var stack []int
	open := make(map[TokenType]int)

	for i, tok := range tokens {
		switch tok.Type {
		case TokenIf, TokenUnless, TokenEach:
			if maxDepth > 0 && len(stack) >= maxDepth {
				m.problem[i] = IssueTooDeep
				continue
			}
			stack = append(stack, i)
			open[closerFor(tok.Type)]++

		case TokenElse:
			if n := len(stack); n > 0 && m.elseAt[stack[n-1]] < 0 {
				m.elseAt[stack[n-1]] = i
				continue
			}
			m.problem[i] = IssueStrayElse

		case TokenEndIf, TokenEndUnless, TokenEndEach:
			if open[tok.Type] == 0 {
				m.problem[i] = IssueStrayClose
				continue
			}
			orphan := -1
			for {
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				closer := closerFor(tokens[top].Type)
				open[closer]--
				if closer == tok.Type {
					if orphan >= 0 && m.elseAt[top] < 0 {
						m.elseAt[top] = orphan
						m.problem[orphan] = ""
					}
					m.closeAt[top] = i
					break
				}
				// outer blocks come off the stack later, so their else
				// precedes the ones already orphaned
				if e := m.unclose(top); e >= 0 {
					orphan = e
				}
			}
		}
	}

	for _, top := range stack {
		m.unclose(top)
	}
	return m
}

// unclose marks the opener at i as never closed and returns the index of
// the else tag it had claimed, or -1. That else becomes stray.
func (m *blockMatches) unclose(i int) int {
	m.problem[i] = IssueUnclosedBlock
	e := m.elseAt[i]
	m.elseAt[i] = -1
	if e >= 0 {
		m.problem[e] = IssueStrayElse
	}
	return e
}

// issues reports the unpaired directives in source order.
func (m *blockMatches) issues(source string, tokens []Token) []TemplateIssue {
	var issues []TemplateIssue
	positions := newPositionTracker(source)
	for i, code := range m.problem {
		if code == "" {
			continue
		}
		tok := tokens[i]
		var message string
		switch code {
		case IssueTooDeep:
			message = fmt.Sprintf("block nesting exceeds %d levels", m.maxDepth)
		case IssueStrayElse:
			message = "{{else}} without an open block branch"
		case IssueStrayClose:
			message = fmt.Sprintf("{{%s}} has no matching opening tag", tok.Type)
		case IssueUnclosedBlock:
			message = fmt.Sprintf("{{%s %s}} is never closed", tok.Type, tok.Value)
			GetLogger().WithField("directive", tok.Raw).Debug("Unclosed block kept as text")
		}
		line, column := positions.position(tok.Offset)
		issues = append(issues, TemplateIssue{
			Code:     code,
			Severity: SeverityError,
			Message:  message,
			Token:    tok.Raw,
			Line:     line,
			Column:   column,
		})
	}
	return issues
}

// treeBuilder turns matched tokens into nodes. Unpaired directives are
// literal text.
type treeBuilder struct {
	tokens []Token
	blocks *blockMatches
}

// build returns the nodes for tokens[from:to].
func (b *treeBuilder) build(from, to int) []Node {
	var nodes []Node

	for i := from; i < to; i++ {
		tok := b.tokens[i]

		switch tok.Type {
		case TokenText:
			if tok.Value != "" {
				nodes = appendText(nodes, tok.Value)
			}

		case TokenVariable:
			nodes = append(nodes, &VariableNode{
				Path:      tok.Value,
				Format:    tok.Format,
				HasFormat: tok.HasFormat,
				Raw:       tok.Raw,
			})

		case TokenIf, TokenUnless, TokenEach:
			end := b.blocks.closeAt[i]
			if end < 0 {
				nodes = appendText(nodes, tok.Raw)
				continue
			}
			nodes = append(nodes, b.block(i, end))
			i = end

		default:
			// paired else and close tags bound a block range and never
			// reach this point
			nodes = appendText(nodes, tok.Raw)
		}
	}

	return nodes
}

func (b *treeBuilder) block(open, end int) Node {
	tok := b.tokens[open]
	var body, elseBody []Node
	if e := b.blocks.elseAt[open]; e >= 0 {
		body = b.build(open+1, e)
		elseBody = b.build(e+1, end)
	} else {
		body = b.build(open+1, end)
	}

	switch tok.Type {
	case TokenIf:
		return &IfNode{Condition: tok.Value, ThenBody: body, ElseBody: elseBody}
	case TokenUnless:
		return &UnlessNode{Condition: tok.Value, ThenBody: body, ElseBody: elseBody}
	default:
		return &EachNode{Collection: tok.Value, Body: body, ElseBody: elseBody}
	}
}

// appendText merges adjacent text so literal runs stay in one node.
func appendText(nodes []Node, text string) []Node {
	if len(nodes) > 0 {
		if last, ok := nodes[len(nodes)-1].(*TextNode); ok {
			last.Content += text
			return nodes
		}
	}
	return append(nodes, &TextNode{Content: text})
}
