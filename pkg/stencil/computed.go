package stencil

import (
	"errors"
	"strings"
	"sync"

	"github.com/benjaminschreck/go-pagestencil/pkg/stencil/value"
)

// Evaluator computes the value of a computed variable from its expression.
type Evaluator interface {
	Evaluate(expression string, scope map[string]value.Value) (value.Value, error)
}

// ExpressionEvaluator evaluates the built-in expression language. Parsed
// expressions are cached. A nil Registry uses the default functions.
type ExpressionEvaluator struct {
	Registry FunctionRegistry

	parsed sync.Map // expression -> ExpressionNode
}

// NewExpressionEvaluator creates an evaluator using registry.
func NewExpressionEvaluator(registry FunctionRegistry) *ExpressionEvaluator {
	return &ExpressionEvaluator{Registry: registry}
}

func (e *ExpressionEvaluator) Evaluate(expression string, scope map[string]value.Value) (value.Value, error) {
	var node ExpressionNode
	if cached, ok := e.parsed.Load(expression); ok {
		node = cached.(ExpressionNode)
	} else {
		parsed, err := ParseExpression(expression)
		if err != nil {
			return value.Undefined, err
		}
		e.parsed.Store(expression, parsed)
		node = parsed
	}

	registry := e.Registry
	if registry == nil {
		registry = GetDefaultFunctionRegistry()
	}
	return node.Evaluate(&ExpressionEnv{Vars: scope, Registry: registry})
}

var errMissingExpression = errors.New("computed variable has no expression")

// ComputeVariables evaluates every computed definition in dependency order.
// Each expression sees the structured values, the flat values and the
// computed values produced before it. The result holds only computed
// variables. A dependency cycle yields a *CycleError before anything is
// evaluated.
func ComputeVariables(defs []VariableDefinition, flat map[string]string, structured map[string]value.Value, evaluator Evaluator) (MergeResult, error) {
	result := MergeResult{
		Flat:       make(map[string]string),
		Structured: make(map[string]value.Value),
	}
	if evaluator == nil {
		evaluator = NewExpressionEvaluator(nil)
	}

	order, err := computeOrder(defs)
	if err != nil {
		return result, err
	}
	if len(order) == 0 {
		return result, nil
	}

	scope := make(map[string]value.Value, len(flat)+len(structured)+len(order))
	for name, v := range structured {
		scope[name] = v
	}
	for name, s := range flat {
		scope[name] = value.Text(s)
	}

	logger := GetLogger()
	for _, def := range order {
		expression := strings.TrimSpace(optString(def.Expression))
		if expression == "" {
			return result, NewEvaluationError(def.Name, "", errMissingExpression)
		}

		v, err := evaluateRecovered(evaluator, expression, scope)
		if err != nil {
			return result, NewEvaluationError(def.Name, expression, err)
		}
		scope[def.Name] = v

		switch v.Kind() {
		case value.KindArray, value.KindObject:
			result.Structured[def.Name] = v
		default:
			result.Flat[def.Name] = v.Display()
		}

		if logger.IsDebugMode() {
			logger.WithFields(Fields{
				"variable": def.Name,
				"value":    v.Display(),
			}).Debug("Computed variable")
		}
	}

	return result, nil
}

// computedDependencies returns the names a computed definition reads: its
// dependsOn list plus the identifiers in its expression.
func computedDependencies(def VariableDefinition) []string {
	deps := append([]string(nil), def.DependsOn...)
	if expr := optString(def.Expression); strings.TrimSpace(expr) != "" {
		if names, err := ExpressionIdentifiers(expr); err == nil {
			deps = append(deps, names...)
		}
	}
	return deps
}

// computeOrder sorts the computed definitions so every one comes after the
// computed definitions it depends on. Ties keep definition order.
func computeOrder(defs []VariableDefinition) ([]VariableDefinition, error) {
	var computed []VariableDefinition
	index := make(map[string]int)
	for _, def := range defs {
		if def.IsComputed {
			index[strings.ToLower(def.Name)] = len(computed)
			computed = append(computed, def)
		}
	}

	edges := make([][]int, len(computed))
	for i, def := range computed {
		seen := make(map[int]bool)
		for _, dep := range computedDependencies(def) {
			j, ok := index[strings.ToLower(dep)]
			if !ok || seen[j] {
				continue
			}
			seen[j] = true
			edges[i] = append(edges[i], j)
		}
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make([]int, len(computed))
	order := make([]VariableDefinition, 0, len(computed))
	var stack []int

	var visit func(i int) error
	visit = func(i int) error {
		switch state[i] {
		case done:
			return nil
		case visiting:
			return cycleFrom(computed, stack, i)
		}
		state[i] = visiting
		stack = append(stack, i)
		for _, j := range edges[i] {
			if err := visit(j); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[i] = done
		order = append(order, computed[i])
		return nil
	}

	for i := range computed {
		if err := visit(i); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func cycleFrom(defs []VariableDefinition, stack []int, start int) error {
	var names []string
	for k, i := range stack {
		if i == start {
			for _, j := range stack[k:] {
				names = append(names, defs[j].Name)
			}
			break
		}
	}
	names = append(names, defs[start].Name)
	return &CycleError{Variables: names}
}

// evaluateRecovered runs one evaluation, turning a panic in a custom
// evaluator or function into an error.
func evaluateRecovered(evaluator Evaluator, expression string, scope map[string]value.Value) (v value.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = value.Undefined, RecoverError(r)
		}
	}()
	return evaluator.Evaluate(expression, scope)
}
