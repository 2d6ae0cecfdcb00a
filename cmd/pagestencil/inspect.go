package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/benjaminschreck/go-pagestencil/pkg/docload"
	"github.com/benjaminschreck/go-pagestencil/pkg/stencil"
)

func (a *app) validateCmd() *cobra.Command {
	var inputs documentInputs
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate provided values against variable definitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if inputs.defsPath == "" {
				return fmt.Errorf("--defs is required")
			}
			data, err := inputs.load(cmd.Context())
			if err != nil {
				return err
			}
			defer data.close()

			result := stencil.Validate(data.defs, data.provided)
			if err := reportValidation(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d definition(s) valid\n", len(data.defs))
			return nil
		},
	}
	inputs.bind(cmd, false)
	return cmd
}

func (a *app) refsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refs TEMPLATE",
		Short: "List the variables a template reads",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			template, err := readTemplate(cmd, args[0])
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, ref := range stencil.ExtractReferences(template) {
				fmt.Fprintf(w, "%s\t%s\t%s\n", ref.Kind, ref.Path, ref.Format)
			}
			return w.Flush()
		},
	}
}

func (a *app) checkCmd() *cobra.Command {
	var defsPath, defsSelect string
	cmd := &cobra.Command{
		Use:   "check TEMPLATE",
		Short: "Report template syntax problems and variable mismatches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			template, err := readTemplate(cmd, args[0])
			if err != nil {
				return err
			}
			var defs []stencil.VariableDefinition
			if defsPath != "" {
				if defs, err = docload.LoadDefinitions(defsPath, defsSelect); err != nil {
					return err
				}
			}

			issues := stencil.CheckTemplate(template, defs)
			for _, issue := range issues {
				fmt.Fprintf(cmd.OutOrStdout(), "%s:%d:%d: %s: %s\n",
					args[0], issue.Line, issue.Column, issue.Severity, issue.Message)
			}
			return stencil.IssuesError(issues)
		},
	}
	cmd.Flags().StringVar(&defsPath, "defs", "", "Variable definitions file; enables undefined and unused variable checks")
	cmd.Flags().StringVar(&defsSelect, "select", "", "JSONPath selecting the definitions inside the definitions file")
	return cmd
}
