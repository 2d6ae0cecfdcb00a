package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjaminschreck/go-pagestencil/pkg/stencil"
)

const testDefs = `[
  {"name": "name", "type": "text", "label": "Name", "required": true},
  {"name": "qty", "type": "number", "defaultValue": "2"}
]`

type fakePrompter struct {
	answers map[string]string
	asked   []string
}

func (f *fakePrompter) Ask(ctx context.Context, def stencil.VariableDefinition) (string, error) {
	f.asked = append(f.asked, def.Name)
	answer, ok := f.answers[def.Name]
	if !ok {
		return "", errAborted
	}
	return answer, nil
}

type cliResult struct {
	stdout string
	stderr string
	err    error
}

func runCLI(t *testing.T, p prompter, stdin string, args ...string) cliResult {
	t.Helper()
	previous := stencil.GetGlobalConfig()
	t.Cleanup(func() { stencil.SetGlobalConfig(previous) })

	if p == nil {
		p = &fakePrompter{}
	}
	cmd := (&app{prompter: p}).rootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return cliResult{stdout: out.String(), stderr: errOut.String(), err: err}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestVersion(t *testing.T) {
	res := runCLI(t, nil, "", "version")
	require.NoError(t, res.err)
	assert.Equal(t, "pagestencil version "+version+"\n", res.stdout)
}

func TestRender(t *testing.T) {
	dir := t.TempDir()
	defs := writeFile(t, dir, "defs.json", testDefs)
	values := writeFile(t, dir, "values.json", `{"name": "Ada"}`)
	invalid := writeFile(t, dir, "invalid.json", `{"qty": "abc"}`)
	tmpl := writeFile(t, dir, "page.txt", "Hello {{name}} x{{qty}} page {{pageNumber}}/{{totalPages}}")

	tests := []struct {
		name       string
		stdin      string
		args       []string
		wantOut    string
		wantErr    bool
		wantStderr string
	}{
		{
			name:    "values and defaults",
			args:    []string{"render", tmpl, "--defs", defs, "--values", values, "--page", "2", "--total", "3"},
			wantOut: "Hello Ada x2 page 2/3",
		},
		{
			name:    "template from stdin",
			stdin:   "Dear {{name}}",
			args:    []string{"render", "-", "--defs", defs, "--values", values},
			wantOut: "Dear Ada",
		},
		{
			name:    "values selector",
			args:    []string{"render", tmpl, "--values", writeFile(t, dir, "nested.yaml", "page:\n  vars:\n    name: Grace\n    qty: 5\n"), "--values-select", "$.page.vars"},
			wantOut: "Hello Grace x5 page 1/1",
		},
		{
			name:       "invalid values are reported",
			args:       []string{"render", tmpl, "--defs", defs, "--values", invalid},
			wantErr:    true,
			wantStderr: "name\trequired",
		},
		{
			name:    "skip validation renders anyway",
			args:    []string{"render", tmpl, "--defs", defs, "--values", invalid, "--skip-validation"},
			wantOut: "Hello {{name}} xabc page 1/1",
		},
		{
			name:    "missing template",
			args:    []string{"render", filepath.Join(dir, "missing.txt")},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := runCLI(t, nil, tt.stdin, tt.args...)
			if tt.wantErr {
				require.Error(t, res.err)
				assert.Contains(t, res.stderr, tt.wantStderr)
				return
			}
			require.NoError(t, res.err)
			assert.Equal(t, tt.wantOut, res.stdout)
		})
	}
}

func TestRender_InvalidValuesError(t *testing.T) {
	dir := t.TempDir()
	defs := writeFile(t, dir, "defs.json", testDefs)
	values := writeFile(t, dir, "values.json", `{"qty": "abc"}`)
	tmpl := writeFile(t, dir, "page.txt", "{{name}}")

	res := runCLI(t, nil, "", "render", tmpl, "--defs", defs, "--values", values)
	require.Error(t, res.err)
	assert.ErrorIs(t, res.err, errInvalid)
	assert.Contains(t, res.stderr, "qty\tinvalid_number")
	assert.Empty(t, res.stdout)
}

func TestRender_ToFile(t *testing.T) {
	dir := t.TempDir()
	defs := writeFile(t, dir, "defs.json", testDefs)
	values := writeFile(t, dir, "values.json", `{"name": "Ada", "qty": 7}`)
	tmpl := writeFile(t, dir, "page.txt", "{{name}}:{{qty}}")
	out := filepath.Join(dir, "out.txt")

	res := runCLI(t, nil, "", "render", tmpl, "--defs", defs, "--values", values, "-o", out)
	require.NoError(t, res.err)
	assert.Empty(t, res.stdout)
	assert.Equal(t, "Ada:7", readFile(t, out))
}

func TestRender_Interactive(t *testing.T) {
	dir := t.TempDir()
	defs := writeFile(t, dir, "defs.json", testDefs)
	tmpl := writeFile(t, dir, "page.txt", "Hello {{name}} x{{qty}}")

	p := &fakePrompter{answers: map[string]string{"name": "Grace"}}
	res := runCLI(t, p, "", "render", tmpl, "--defs", defs, "-i")
	require.NoError(t, res.err)
	assert.Equal(t, "Hello Grace x2", res.stdout)
	assert.Equal(t, []string{"name"}, p.asked, "variables with defaults are not prompted")

	aborting := &fakePrompter{}
	res = runCLI(t, aborting, "", "render", tmpl, "--defs", defs, "-i")
	require.Error(t, res.err)
	assert.ErrorIs(t, res.err, errAborted)
}

func TestRender_StoredValues(t *testing.T) {
	dir := t.TempDir()
	defs := writeFile(t, dir, "defs.json", testDefs)
	tmpl := writeFile(t, dir, "page.txt", "Hello {{name}} x{{qty}}")
	stored := writeFile(t, dir, "stored.json", `{"name": "Stored", "qty": "4"}`)
	provided := writeFile(t, dir, "values.json", `{"qty": 9}`)

	res := runCLI(t, nil, "", "render", tmpl, "--defs", defs, "--stored", stored, "--values", provided)
	require.NoError(t, res.err)
	assert.Equal(t, "Hello Stored x9", res.stdout, "provided values win over stored ones")
}

func TestRender_DatabaseAndHistory(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "pages.db")
	defs := writeFile(t, dir, "defs.json", testDefs)
	values := writeFile(t, dir, "values.json", `{"name": "Ada"}`)
	tmpl := writeFile(t, dir, "page.txt", "Hello {{name}} x{{qty}}")

	res := runCLI(t, nil, "", "render", tmpl, "--defs", defs, "--values", values, "--db", db, "--document", "doc-1")
	require.NoError(t, res.err)
	assert.Equal(t, "Hello Ada x2", res.stdout)

	// the second render has no values file and reads the stored name
	updated := writeFile(t, dir, "page2.txt", "Bye {{name}}")
	res = runCLI(t, nil, "", "render", updated, "--defs", defs, "--db", db, "--document", "doc-1")
	require.NoError(t, res.err)
	assert.Equal(t, "Bye Ada", res.stdout)

	res = runCLI(t, nil, "", "history", "--db", db, "--document", "doc-1")
	require.NoError(t, res.err)
	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "2 "), "newest entry first: %q", lines[0])
	assert.Contains(t, lines[0], "7 bytes")

	res = runCLI(t, nil, "", "history", "--db", db, "--document", "doc-1", "--output", "-n", "1")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "--- 2 ")
	assert.Contains(t, res.stdout, "Bye Ada")
	assert.NotContains(t, res.stdout, "Hello Ada")

	res = runCLI(t, nil, "", "render", tmpl, "--db", db)
	assert.Error(t, res.err)

	res = runCLI(t, nil, "", "history", "--db", db)
	assert.Error(t, res.err)
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	defs := writeFile(t, dir, "defs.json", testDefs)

	tests := []struct {
		name    string
		args    []string
		wantOut string
		wantErr bool
	}{
		{
			name:    "valid",
			args:    []string{"validate", "--defs", defs, "--values", writeFile(t, dir, "ok.json", `{"name": "Ada", "qty": 3}`)},
			wantOut: "2 definition(s) valid\n",
		},
		{
			name:    "invalid",
			args:    []string{"validate", "--defs", defs, "--values", writeFile(t, dir, "bad.yaml", "qty: many\n")},
			wantOut: "name\trequired",
			wantErr: true,
		},
		{
			name:    "definitions are required",
			args:    []string{"validate"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := runCLI(t, nil, "", tt.args...)
			if tt.wantErr {
				assert.Error(t, res.err)
			} else {
				assert.NoError(t, res.err)
			}
			assert.Contains(t, res.stdout, tt.wantOut)
		})
	}
}

func TestRefs(t *testing.T) {
	dir := t.TempDir()
	tmpl := writeFile(t, dir, "page.txt", "{{name}} {{#if vip}}{{total:C}}{{/if}} {{date}}")

	res := runCLI(t, nil, "", "refs", tmpl)
	require.NoError(t, res.err)

	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"variable", "name"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"if", "vip"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"formatted", "total", "C"}, strings.Fields(lines[2]))
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	defs := writeFile(t, dir, "defs.json", testDefs)

	t.Run("structural error", func(t *testing.T) {
		tmpl := writeFile(t, dir, "broken.txt", "{{#if a}}x")
		res := runCLI(t, nil, "", "check", tmpl)
		require.Error(t, res.err)
		assert.Contains(t, res.stdout, "broken.txt:1:1: error: ")
	})

	t.Run("warnings do not fail", func(t *testing.T) {
		tmpl := writeFile(t, dir, "page.txt", "{{name}} {{other}}")
		res := runCLI(t, nil, "", "check", tmpl, "--defs", defs)
		require.NoError(t, res.err)
		assert.Contains(t, res.stdout, "warning")
		assert.Contains(t, res.stdout, "other")
		assert.Contains(t, res.stdout, "qty")
	})

	t.Run("clean template", func(t *testing.T) {
		tmpl := writeFile(t, dir, "clean.txt", "{{name}} x{{qty}}")
		res := runCLI(t, nil, "", "check", tmpl, "--defs", defs)
		require.NoError(t, res.err)
		assert.Empty(t, res.stdout)
	})
}

func TestBulk(t *testing.T) {
	dir := t.TempDir()
	defs := writeFile(t, dir, "defs.json", testDefs)
	tmpl := writeFile(t, dir, "page.txt", "{{name}} x{{qty}}")
	rows := writeFile(t, dir, "rows.json", `[
		{"name": "Ada", "qty": 3},
		{"name": "", "qty": "lots"},
		{"name": "Grace"}
	]`)

	t.Run("invalid rows are skipped", func(t *testing.T) {
		out := filepath.Join(dir, "out")
		res := runCLI(t, nil, "", "bulk", tmpl, "--defs", defs, "--rows", rows, "--out-dir", out, "--name", "{{name}}.txt")
		require.Error(t, res.err)
		assert.ErrorIs(t, res.err, errInvalid)
		assert.Contains(t, res.stdout, "rendered 2 of 3 rows")
		assert.Contains(t, res.stderr, "row 2:")

		assert.Equal(t, "Ada x3", readFile(t, filepath.Join(out, "Ada.txt")))
		assert.Equal(t, "Grace x2", readFile(t, filepath.Join(out, "Grace.txt")))
	})

	t.Run("strict stops at the first invalid row", func(t *testing.T) {
		out := filepath.Join(dir, "strict")
		res := runCLI(t, nil, "", "bulk", tmpl, "--defs", defs, "--rows", rows, "--out-dir", out, "--strict")
		require.Error(t, res.err)
		assert.Contains(t, res.err.Error(), "row 2")
		assert.Equal(t, "Ada x3", readFile(t, filepath.Join(out, "row-1.txt")))
		assert.NoFileExists(t, filepath.Join(out, "row-3.txt"))
	})

	t.Run("column mapping", func(t *testing.T) {
		out := filepath.Join(dir, "mapped")
		mapped := writeFile(t, dir, "people.yaml", "- Full Name: Ada\n  Count: 4\n")
		mapping := writeFile(t, dir, "mapping.json", `{"Full Name": "name", "Count": "qty"}`)
		res := runCLI(t, nil, "", "bulk", tmpl, "--defs", defs, "--rows", mapped, "--mapping", mapping, "--out-dir", out)
		require.NoError(t, res.err)
		assert.Equal(t, "Ada x4", readFile(t, filepath.Join(out, "row-1.txt")))
	})

	t.Run("repeated and empty names do not overwrite", func(t *testing.T) {
		out := filepath.Join(dir, "names")
		same := writeFile(t, dir, "same.json", `[
			{"name": "Ada", "qty": 1},
			{"name": "ada", "qty": 2},
			{"name": "Bob", "qty": 3}
		]`)

		res := runCLI(t, nil, "", "bulk", tmpl, "--defs", defs, "--rows", same, "--out-dir", out, "--name", "{{name}}.txt")
		require.NoError(t, res.err)
		assert.Contains(t, res.stdout, "rendered 3 of 3 rows")
		assert.Equal(t, "Ada x1", readFile(t, filepath.Join(out, "Ada.txt")))
		assert.Equal(t, "ada x2", readFile(t, filepath.Join(out, "ada-2.txt")))
		assert.Equal(t, "Bob x3", readFile(t, filepath.Join(out, "Bob.txt")))
		assert.Contains(t, res.stderr, "row 2:")

		empty := filepath.Join(dir, "empty-names")
		res = runCLI(t, nil, "", "bulk", tmpl, "--defs", defs, "--rows", same, "--out-dir", empty, "--name", "{{#if nope}}x{{/if}}")
		require.NoError(t, res.err)
		assert.Equal(t, "Ada x1", readFile(t, filepath.Join(empty, "row-1.txt")))
		assert.Equal(t, "Bob x3", readFile(t, filepath.Join(empty, "row-3.txt")))
	})

	t.Run("rows are required", func(t *testing.T) {
		res := runCLI(t, nil, "", "bulk", tmpl, "--defs", defs)
		assert.Error(t, res.err)
	})
}

func TestConfigCommands(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pagestencil.yaml")

	res := runCLI(t, nil, "", "config", "init", path)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "wrote "+path)
	assert.Contains(t, readFile(t, path), "dateLayout:")

	res = runCLI(t, nil, "", "config", "init", path)
	assert.Error(t, res.err, "existing files are not overwritten")

	res = runCLI(t, nil, "", "config", "init", path, "--force")
	assert.NoError(t, res.err)

	custom := writeFile(t, dir, "custom.yaml", "logLevel: warn\ndateLayout: 02.01.2006\n")
	res = runCLI(t, nil, "", "--config", custom, "config", "show")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "logLevel: warn")
	assert.Contains(t, res.stdout, "02.01.2006")

	res = runCLI(t, nil, "", "--config", custom, "--log-level", "error", "config", "show")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "logLevel: error")

	res = runCLI(t, nil, "", "--log-level", "loud", "config", "show")
	assert.Error(t, res.err)

	res = runCLI(t, nil, "", "--config", filepath.Join(dir, "missing.yaml"), "version")
	assert.Error(t, res.err)
}
