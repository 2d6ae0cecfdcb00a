package stencil

import (
	"fmt"
	"sort"
	"strings"

	"github.com/benjaminschreck/go-pagestencil/pkg/stencil/value"
)

// IssueSeverity indicates template issue severity.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
)

// IssueCode identifies the kind of a template issue.
type IssueCode string

const (
	IssueUnclosedBlock     IssueCode = "unclosed_block"
	IssueStrayClose        IssueCode = "stray_close"
	IssueStrayElse         IssueCode = "stray_else"
	IssueTooDeep           IssueCode = "nesting_too_deep"
	IssueEmptyDirective    IssueCode = "empty_directive"
	IssueUndefinedVariable IssueCode = "undefined_variable"
	IssueUnusedVariable    IssueCode = "unused_variable"
)

// TemplateIssue is a problem found in template text. Line and Column are
// 1-based; both are 0 for issues that have no position, such as an unused
// definition.
type TemplateIssue struct {
	Code     IssueCode     `json:"code"`
	Severity IssueSeverity `json:"severity"`
	Message  string        `json:"message"`
	Token    string        `json:"token,omitempty"`
	Line     int           `json:"line,omitempty"`
	Column   int           `json:"column,omitempty"`
}

// Err converts the issue into a *TemplateError.
func (i TemplateIssue) Err() error {
	return NewTemplateError(fmt.Sprintf("%s: %s", i.Code, i.Message), i.Line, i.Column)
}

// IssuesError combines the error-severity issues into one error, or returns
// nil when there are none.
func IssuesError(issues []TemplateIssue) error {
	errs := NewMultiError()
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			errs.Add(issue.Err())
		}
	}
	return errs.Err()
}

// ReferenceKind says where a variable is referenced.
type ReferenceKind string

const (
	RefVariable  ReferenceKind = "variable"
	RefFormatted ReferenceKind = "formatted"
	RefIf        ReferenceKind = "if"
	RefUnless    ReferenceKind = "unless"
	RefEach      ReferenceKind = "each"
)

// Reference is one use of a variable in a template.
type Reference struct {
	Path   string        `json:"path"`
	Root   string        `json:"root"`
	Kind   ReferenceKind `json:"kind"`
	Format string        `json:"format,omitempty"`
	// InLoop is set for references inside an each block, where a bare name
	// may also be a property of the current item.
	InLoop bool `json:"inLoop,omitempty"`
}

// ExtractReferences lists the variables a template reads, in source order.
// Built-in placeholders and loop variables (this, @index, ...) are omitted.
func ExtractReferences(template string) []Reference {
	tmpl := Parse(template)
	var refs []Reference
	collectReferences(tmpl.nodes, 0, &refs)
	return refs
}

func collectReferences(nodes []Node, loopDepth int, refs *[]Reference) {
	add := func(path string, kind ReferenceKind, format string) {
		segments := value.SplitPath(path)
		if len(segments) == 0 {
			return
		}
		root := segments[0]
		if (kind == RefVariable || kind == RefFormatted) && IsBuiltin(path) {
			return
		}
		if loopDepth > 0 && (root == "this" || strings.HasPrefix(root, "@")) {
			return
		}
		*refs = append(*refs, Reference{
			Path:   path,
			Root:   root,
			Kind:   kind,
			Format: format,
			InLoop: loopDepth > 0,
		})
	}

	for _, node := range nodes {
		switch n := node.(type) {
		case *VariableNode:
			if n.HasFormat {
				add(n.Path, RefFormatted, n.Format)
			} else {
				add(n.Path, RefVariable, "")
			}
		case *IfNode:
			add(n.Condition, RefIf, "")
			collectReferences(n.ThenBody, loopDepth, refs)
			collectReferences(n.ElseBody, loopDepth, refs)
		case *UnlessNode:
			add(n.Condition, RefUnless, "")
			collectReferences(n.ThenBody, loopDepth, refs)
			collectReferences(n.ElseBody, loopDepth, refs)
		case *EachNode:
			add(n.Collection, RefEach, "")
			collectReferences(n.Body, loopDepth+1, refs)
			collectReferences(n.ElseBody, loopDepth, refs)
		}
	}
}

type sourcePosition struct {
	line, column int
}

// CheckTemplate reports structural problems in template and compares its
// references with defs. Structural problems are errors; undefined and unused
// variables are warnings. Rendering never fails on any of them.
func CheckTemplate(template string, defs []VariableDefinition) []TemplateIssue {
	tmpl := Parse(template)
	issues := append([]TemplateIssue(nil), tmpl.issues...)

	positions := newPositionTracker(template)
	firstUse := make(map[string]sourcePosition)
	for _, tok := range Tokenize(template) {
		if !tok.Directive {
			continue
		}
		line, column := positions.position(tok.Offset)
		if tok.Type != TokenText {
			if _, seen := firstUse[tok.Value]; !seen {
				firstUse[tok.Value] = sourcePosition{line: line, column: column}
			}
			continue
		}
		issues = append(issues, TemplateIssue{
			Code:     IssueEmptyDirective,
			Severity: SeverityError,
			Message:  fmt.Sprintf("%s is not a variable or block directive", tok.Raw),
			Token:    tok.Raw,
			Line:     line,
			Column:   column,
		})
	}

	if defs != nil {
		issues = append(issues, checkVariables(firstUse, tmpl, defs)...)
	}

	sortTemplateIssues(issues)
	return issues
}

// checkVariables compares references with defs. firstUse holds the
// position of the first directive naming each path.
func checkVariables(firstUse map[string]sourcePosition, tmpl *Template, defs []VariableDefinition) []TemplateIssue {
	var issues []TemplateIssue
	var refs []Reference
	collectReferences(tmpl.nodes, 0, &refs)

	used := make(map[string]bool)
	reported := make(map[string]bool)
	for _, ref := range refs {
		def, ok := FindDefinition(defs, ref.Root)
		if ok {
			used[strings.ToLower(def.Name)] = true
			continue
		}
		if ref.InLoop || reported[ref.Root] {
			continue
		}
		reported[ref.Root] = true
		pos := firstUse[ref.Path]
		issues = append(issues, TemplateIssue{
			Code:     IssueUndefinedVariable,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("variable %q is not defined", ref.Root),
			Token:    ref.Path,
			Line:     pos.line,
			Column:   pos.column,
		})
	}

	// inputs of computed variables count as used
	for _, def := range defs {
		if !def.IsComputed {
			continue
		}
		for _, dep := range computedDependencies(def) {
			if d, ok := FindDefinition(defs, dep); ok {
				used[strings.ToLower(d.Name)] = true
			}
		}
	}

	for _, def := range defs {
		if used[strings.ToLower(def.Name)] {
			continue
		}
		issues = append(issues, TemplateIssue{
			Code:     IssueUnusedVariable,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("variable %q is defined but not used", def.Name),
			Token:    def.Name,
		})
	}
	return issues
}

// sortTemplateIssues orders positioned issues by location and places
// unpositioned ones after them.
func sortTemplateIssues(issues []TemplateIssue) {
	sort.SliceStable(issues, func(i, j int) bool {
		left := issues[i]
		right := issues[j]

		if (left.Line == 0) != (right.Line == 0) {
			return left.Line != 0
		}
		if left.Line != right.Line {
			return left.Line < right.Line
		}
		if left.Column != right.Column {
			return left.Column < right.Column
		}
		if left.Code != right.Code {
			return left.Code < right.Code
		}
		return left.Token < right.Token
	})
}
