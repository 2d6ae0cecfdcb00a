package main

import (
	"context"
	"errors"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/benjaminschreck/go-pagestencil/pkg/stencil"
	"github.com/benjaminschreck/go-pagestencil/pkg/stencil/value"
)

var errAborted = errors.New("prompt aborted")

// prompter asks the user for the value of one variable.
type prompter interface {
	Ask(ctx context.Context, def stencil.VariableDefinition) (string, error)
}

type surveyPrompter struct{}

func (surveyPrompter) Ask(ctx context.Context, def stencil.VariableDefinition) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var out string
	var err error
	switch def.NormalizedType() {
	case stencil.TypeBoolean:
		var yes bool
		err = survey.AskOne(&survey.Confirm{
			Message: def.DisplayLabel(),
			Help:    optional(def.Description),
		}, &yes)
		if yes {
			out = "true"
		} else {
			out = "false"
		}
	default:
		err = survey.AskOne(&survey.Input{
			Message: def.DisplayLabel(),
			Help:    optional(def.Description),
			Default: optional(def.DefaultValue),
		}, &out, survey.WithValidator(definitionValidator(def)))
	}
	if err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return "", errAborted
		}
		return "", err
	}
	return out, nil
}

// definitionValidator checks an answer against its definition.
func definitionValidator(def stencil.VariableDefinition) survey.Validator {
	return func(ans interface{}) error {
		s, _ := ans.(string)
		result := stencil.Validate([]stencil.VariableDefinition{def}, map[string]value.Value{
			def.Name: value.Text(s),
		})
		return result.Err()
	}
}

func optional(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
