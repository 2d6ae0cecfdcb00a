package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/benjaminschreck/go-pagestencil/pkg/docload"
	"github.com/benjaminschreck/go-pagestencil/pkg/stencil"
)

type bulkOptions struct {
	inputs        documentInputs
	rowsPath      string
	rowsSelect    string
	mappingPath   string
	outDir        string
	nameTemplate  string
	stopOnInvalid bool
}

func (a *app) bulkCmd() *cobra.Command {
	opts := &bulkOptions{}
	cmd := &cobra.Command{
		Use:   "bulk TEMPLATE",
		Short: "Render a template once per row of a rows file",
		Long: `Bulk maps every row of --rows onto the variable definitions and renders
TEMPLATE into --out-dir. File names come from --name, itself a template that
sees the row's values plus {{row}} (1-based). A name that renders empty falls
back to row-N.txt, and a name already written in this run gets a -2, -3, ...
suffix. Invalid rows are reported and skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBulk(cmd, args[0], opts)
		},
	}
	opts.inputs.bind(cmd, false)
	flags := cmd.Flags()
	flags.StringVar(&opts.rowsPath, "rows", "", "Rows file: a JSON or YAML list of objects")
	flags.StringVar(&opts.rowsSelect, "rows-select", "", "JSONPath selecting the rows inside the rows file")
	flags.StringVar(&opts.mappingPath, "mapping", "", "Column to variable mapping file (default: columns are variable names)")
	flags.StringVar(&opts.outDir, "out-dir", ".", "Output directory")
	flags.StringVar(&opts.nameTemplate, "name", "row-{{row}}.txt", "Output file name template")
	flags.BoolVar(&opts.stopOnInvalid, "strict", false, "Stop at the first invalid row")
	_ = cmd.MarkFlagRequired("rows")
	return cmd
}

func (a *app) runBulk(cmd *cobra.Command, templatePath string, opts *bulkOptions) error {
	ctx := cmd.Context()
	template, err := readTemplate(cmd, templatePath)
	if err != nil {
		return err
	}
	data, err := opts.inputs.load(ctx)
	if err != nil {
		return err
	}
	defer data.close()

	rows, err := docload.LoadRows(opts.rowsPath, opts.rowsSelect)
	if err != nil {
		return err
	}
	var mapping map[string]string
	if opts.mappingPath != "" {
		if mapping, err = docload.LoadStored(opts.mappingPath, ""); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return stencil.NewDocumentError("create output directory", opts.outDir, err)
	}

	engine := a.engine()
	tmpl := engine.Parse(template)
	failures := stencil.NewMultiError()
	names := newOutputNames()
	written := 0

	for i, row := range rows {
		rowNumber := strconv.Itoa(i + 1)
		provided := stencil.MapBulkRow(data.defs, row, mapping)
		for name, v := range data.provided {
			if _, ok := provided[name]; !ok {
				provided[name] = v
			}
		}

		merged, err := engine.Resolve(data.defs, data.stored, provided)
		if err == nil {
			err = stencil.Validate(data.defs, mergedValues(merged)).Err()
		}
		if err != nil {
			rowErr := fmt.Errorf("row %s: %w", rowNumber, err)
			if opts.stopOnInvalid {
				return rowErr
			}
			fmt.Fprintln(cmd.ErrOrStderr(), rowErr)
			failures.Add(rowErr)
			continue
		}

		output := engine.RenderTemplate(tmpl, merged.RenderContext(1, 1))

		nameVars := map[string]string{"row": rowNumber}
		for name, s := range merged.Flat {
			nameVars[name] = s
		}
		rendered := engine.Render(opts.nameTemplate, stencil.NewRenderContext(1, 1, nameVars, nil))
		name := names.next(rendered, rowNumber)
		if name != filepath.Base(rendered) {
			fmt.Fprintf(cmd.ErrOrStderr(), "row %s: output name %q is empty or taken, writing %s\n", rowNumber, rendered, name)
		}
		path := filepath.Join(opts.outDir, name)
		if err := writeOutput(cmd, path, output); err != nil {
			return err
		}
		written++
	}

	fmt.Fprintf(cmd.OutOrStdout(), "rendered %d of %d rows into %s\n", written, len(rows), opts.outDir)
	if failures.Len() > 0 {
		return fmt.Errorf("%w: %d row(s) skipped", errInvalid, failures.Len())
	}
	return nil
}

// outputNames hands out the file names of one bulk run. Names are compared
// case-insensitively so rows cannot overwrite each other on any filesystem.
type outputNames struct {
	used map[string]bool
}

func newOutputNames() *outputNames {
	return &outputNames{used: make(map[string]bool)}
}

func (o *outputNames) next(rendered, rowNumber string) string {
	name := filepath.Base(strings.TrimSpace(rendered))
	if name == "." || name == ".." || name == string(filepath.Separator) {
		name = "row-" + rowNumber + ".txt"
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := name
	for n := 2; o.used[strings.ToLower(candidate)]; n++ {
		candidate = fmt.Sprintf("%s-%d%s", stem, n, ext)
	}
	o.used[strings.ToLower(candidate)] = true
	return candidate
}
