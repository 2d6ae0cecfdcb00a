package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/benjaminschreck/go-pagestencil/pkg/docload"
	"github.com/benjaminschreck/go-pagestencil/pkg/stencil"
	"github.com/benjaminschreck/go-pagestencil/pkg/stencil/value"
)

type renderOptions struct {
	inputs         documentInputs
	page           int
	total          int
	out            string
	interactive    bool
	skipValidation bool
}

func (a *app) renderCmd() *cobra.Command {
	opts := &renderOptions{}
	cmd := &cobra.Command{
		Use:   "render TEMPLATE",
		Short: "Render a template for one page",
		Long: `Render merges definition defaults, stored values and provided values,
evaluates computed variables and renders TEMPLATE ("-" reads standard input).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRender(cmd, args[0], opts)
		},
	}
	opts.inputs.bind(cmd, true)
	flags := cmd.Flags()
	flags.IntVar(&opts.page, "page", 1, "Page number")
	flags.IntVar(&opts.total, "total", 1, "Total number of pages")
	flags.StringVarP(&opts.out, "out", "o", "", "Output file (default standard output)")
	flags.BoolVarP(&opts.interactive, "interactive", "i", false, "Prompt for required values that are missing")
	flags.BoolVar(&opts.skipValidation, "skip-validation", false, "Render even when values are invalid")
	return cmd
}

func (a *app) runRender(cmd *cobra.Command, templatePath string, opts *renderOptions) error {
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

	if opts.interactive {
		if err := a.promptMissing(ctx, data); err != nil {
			return err
		}
	}

	engine := a.engine()
	merged, err := engine.Resolve(data.defs, data.stored, data.provided)
	if err != nil {
		return err
	}
	if !opts.skipValidation {
		result := stencil.Validate(data.defs, mergedValues(merged))
		if err := reportValidation(cmd.ErrOrStderr(), result); err != nil {
			return err
		}
	}

	output := engine.Render(template, merged.RenderContext(opts.page, opts.total))
	if err := writeOutput(cmd, opts.out, output); err != nil {
		return err
	}

	if data.store != nil {
		stored := make(map[string]string, len(data.stored)+len(data.provided))
		for name, s := range data.stored {
			stored[name] = s
		}
		for name, s := range docload.Flatten(data.provided) {
			stored[name] = s
		}
		if err := data.store.SaveVariables(ctx, opts.inputs.documentID, stored); err != nil {
			return err
		}
		if _, err := data.store.AppendHistory(ctx, opts.inputs.documentID, output); err != nil {
			return err
		}
	}

	stencil.WithFields(stencil.Fields{
		"template": templatePath,
		"page":     opts.page,
		"bytes":    len(output),
	}).Debug("Rendered template")
	return nil
}

// promptMissing asks for every required primitive variable that has no
// provided, stored or default value.
func (a *app) promptMissing(ctx context.Context, data *documentData) error {
	merged := stencil.Merge(data.defs, data.stored, data.provided)
	result := stencil.Validate(data.defs, mergedValues(merged))
	for _, e := range result.Errors {
		if e.ErrorType != stencil.ErrTypeRequired || !isTopLevel(e.VariableName) {
			continue
		}
		def, ok := stencil.FindDefinition(data.defs, e.VariableName)
		if !ok || !def.IsPrimitive() {
			continue
		}
		answer, err := a.prompter.Ask(ctx, *def)
		if err != nil {
			return fmt.Errorf("prompt for %s: %w", def.Name, err)
		}
		data.provided[def.Name] = value.Text(answer)
	}
	return nil
}
