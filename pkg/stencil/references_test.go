package stencil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractReferences(t *testing.T) {
	template := "Hi {{name}} {{total:USD}} {{pageNumber}} {{date:yyyy}}" +
		"{{#if vip}}{{#each orders}}{{id}} {{this}} {{@index}} {{customer.name}}{{/each}}{{/if}}" +
		"{{#unless done}}{{/unless}}"

	want := []Reference{
		{Path: "name", Root: "name", Kind: RefVariable},
		{Path: "total", Root: "total", Kind: RefFormatted, Format: "USD"},
		{Path: "vip", Root: "vip", Kind: RefIf},
		{Path: "orders", Root: "orders", Kind: RefEach},
		{Path: "id", Root: "id", Kind: RefVariable, InLoop: true},
		{Path: "customer.name", Root: "customer", Kind: RefVariable, InLoop: true},
		{Path: "done", Root: "done", Kind: RefUnless},
	}
	assert.Equal(t, want, ExtractReferences(template))
}

func TestExtractReferences_ThisOutsideLoop(t *testing.T) {
	refs := ExtractReferences("{{this}}{{#each xs}}x{{else}}{{@index}}{{/each}}")
	require.Len(t, refs, 3)
	assert.Equal(t, "this", refs[0].Path)
	assert.Equal(t, RefEach, refs[1].Kind)
	assert.Equal(t, "@index", refs[2].Path)
	assert.False(t, refs[2].InLoop)
}

func TestCheckTemplate(t *testing.T) {
	template := "Hello {{name}}\n" +
		"{{#if vip}}{{missing}}{{/if}}{{}}\n" +
		"{{/each}}{{#each items}}{{sku}} {{missing}}{{/each}}"
	defs := []VariableDefinition{
		{Name: "name"},
		{Name: "vip"},
		{Name: "unused"},
		{Name: "items"},
		{Name: "price"},
		computedDef("total", "price * 2"),
	}

	issues := CheckTemplate(template, defs)

	type brief struct {
		Code     IssueCode
		Severity IssueSeverity
		Token    string
		Line     int
		Column   int
	}
	got := make([]brief, len(issues))
	for i, issue := range issues {
		got[i] = brief{issue.Code, issue.Severity, issue.Token, issue.Line, issue.Column}
	}
	assert.Equal(t, []brief{
		{IssueUndefinedVariable, SeverityWarning, "missing", 2, 12},
		{IssueEmptyDirective, SeverityError, "{{}}", 2, 30},
		{IssueStrayClose, SeverityError, "{{/each}}", 3, 1},
		{IssueUnusedVariable, SeverityWarning, "total", 0, 0},
		{IssueUnusedVariable, SeverityWarning, "unused", 0, 0},
	}, got)

	err := IssuesError(issues)
	require.Error(t, err)
	var multi *MultiError
	require.ErrorAs(t, err, &multi)
	assert.Equal(t, 2, multi.Len())
	assert.True(t, IsTemplateError(err))
}

func TestCheckTemplate_WithoutDefinitions(t *testing.T) {
	issues := CheckTemplate("{{#if a}}{{b}}", nil)
	require.Len(t, issues, 1)
	assert.Equal(t, IssueUnclosedBlock, issues[0].Code)
	assert.Equal(t, 1, issues[0].Line)
	assert.Equal(t, 1, issues[0].Column)

	assert.Empty(t, CheckTemplate("{{a}} {{#each b}}{{this}}{{/each}}", nil))
}

func TestCheckTemplate_LargeTemplate(t *testing.T) {
	const n = 5000
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "{{}} {{v%d}}\n", i)
	}

	start := time.Now()
	issues := CheckTemplate(b.String(), []VariableDefinition{})
	assert.Less(t, time.Since(start), 2*time.Second)

	require.Len(t, issues, 2*n)
	last := issues[len(issues)-1]
	assert.Equal(t, IssueUndefinedVariable, last.Code)
	assert.Equal(t, fmt.Sprintf("v%d", n-1), last.Token)
	assert.Equal(t, n, last.Line)
	assert.Equal(t, 6, last.Column)
}

func TestIssuesError_WarningsOnly(t *testing.T) {
	issues := CheckTemplate("{{a}}", []VariableDefinition{{Name: "b"}})
	require.Len(t, issues, 2)
	assert.NoError(t, IssuesError(issues))
}

func TestTemplateIssue_Err(t *testing.T) {
	err := TemplateIssue{Code: IssueStrayElse, Message: "boom", Line: 3, Column: 4}.Err()
	assert.EqualError(t, err, "template error at line 3, column 4: stray_else: boom")
}
