package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	"github.com/benjaminschreck/go-pagestencil/pkg/docload"
	"github.com/benjaminschreck/go-pagestencil/pkg/stencil"
	"github.com/benjaminschreck/go-pagestencil/pkg/stencil/value"
	"github.com/benjaminschreck/go-pagestencil/pkg/store"
)

// documentInputs are the flags that locate definitions and values.
type documentInputs struct {
	defsPath     string
	defsSelect   string
	valuesPath   string
	valuesSelect string
	storedPath   string
	dbPath       string
	documentID   string
}

func (in *documentInputs) bind(cmd *cobra.Command, withStore bool) {
	flags := cmd.Flags()
	flags.StringVar(&in.defsPath, "defs", "", "Variable definitions file (JSON or YAML)")
	flags.StringVar(&in.defsSelect, "select", "", "JSONPath selecting the definitions inside the definitions file")
	flags.StringVar(&in.valuesPath, "values", "", "Provided values file (JSON or YAML)")
	flags.StringVar(&in.valuesSelect, "values-select", "", "JSONPath selecting the values inside the values file")
	if withStore {
		flags.StringVar(&in.storedPath, "stored", "", "Previously stored values file")
		flags.StringVar(&in.dbPath, "db", "", "SQLite database holding stored values and render history")
		flags.StringVar(&in.documentID, "document", "", "Document id in the database")
	}
}

// documentData is everything loaded for one document.
type documentData struct {
	defs     []stencil.VariableDefinition
	provided map[string]value.Value
	stored   map[string]string
	store    *store.Store
}

func (d *documentData) close() {
	if d.store != nil {
		_ = d.store.Close()
	}
}

func (in *documentInputs) load(ctx context.Context) (*documentData, error) {
	data := &documentData{
		provided: map[string]value.Value{},
		stored:   map[string]string{},
	}

	if in.defsPath != "" {
		defs, err := docload.LoadDefinitions(in.defsPath, in.defsSelect)
		if err != nil {
			return nil, err
		}
		data.defs = defs
	}
	if in.valuesPath != "" {
		provided, err := docload.LoadValues(in.valuesPath, in.valuesSelect)
		if err != nil {
			return nil, err
		}
		data.provided = provided
	}

	if in.dbPath != "" {
		if in.documentID == "" {
			return nil, errors.New("--db requires --document")
		}
		st, err := store.Open(ctx, in.dbPath)
		if err != nil {
			return nil, err
		}
		data.store = st
		stored, err := st.LoadVariables(ctx, in.documentID)
		if err != nil {
			data.close()
			return nil, err
		}
		data.stored = stored
	}
	// a stored values file takes precedence over the database
	if in.storedPath != "" {
		stored, err := docload.LoadStored(in.storedPath, "")
		if err != nil {
			data.close()
			return nil, err
		}
		for name, v := range stored {
			data.stored[name] = v
		}
	}
	return data, nil
}

// readTemplate reads a template file, or standard input for "-".
func readTemplate(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read template from stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", stencil.NewDocumentError("read template", path, err)
	}
	return string(data), nil
}

// writeOutput writes s to path atomically, or to the command's output when
// path is empty.
func writeOutput(cmd *cobra.Command, path, s string) error {
	if path == "" {
		_, err := io.WriteString(cmd.OutOrStdout(), s)
		return err
	}
	if err := atomic.WriteFile(path, strings.NewReader(s)); err != nil {
		return stencil.NewDocumentError("write output", path, err)
	}
	return nil
}

// mergedValues turns a merge result back into values for validation.
func mergedValues(m stencil.MergeResult) map[string]value.Value {
	values := make(map[string]value.Value, len(m.Flat)+len(m.Structured))
	for name, s := range m.Flat {
		values[name] = value.Text(s)
	}
	for name, v := range m.Structured {
		values[name] = v
	}
	return values
}

var errInvalid = errors.New("validation failed")

// reportValidation prints every validation error and returns errInvalid when
// there were any.
func reportValidation(w io.Writer, result stencil.ValidationResult) error {
	if result.IsValid {
		return nil
	}
	for _, e := range result.Errors {
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.VariableName, e.ErrorType, e.Message)
	}
	return fmt.Errorf("%w: %d error(s)", errInvalid, len(result.Errors))
}

func isTopLevel(name string) bool {
	return !strings.ContainsAny(name, ".[")
}
