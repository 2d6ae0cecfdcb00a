package stencil

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/benjaminschreck/go-pagestencil/pkg/stencil/value"
)

// Function represents a callable function in computed-variable expressions
type Function interface {
	// Call executes the function with the given arguments
	Call(args ...value.Value) (value.Value, error)

	// Name returns the function name
	Name() string

	// MinArgs returns the minimum number of arguments required
	MinArgs() int

	// MaxArgs returns the maximum number of arguments allowed (-1 for unlimited)
	MaxArgs() int
}

// FunctionRegistry manages available functions
type FunctionRegistry interface {
	// RegisterFunction adds a function to the registry
	RegisterFunction(fn Function) error

	// GetFunction retrieves a function by name
	GetFunction(name string) (Function, bool)

	// ListFunctions returns all registered function names
	ListFunctions() []string
}

// DefaultFunctionRegistry is the default implementation of FunctionRegistry
type DefaultFunctionRegistry struct {
	functions map[string]Function
	mutex     sync.RWMutex
}

// NewFunctionRegistry creates an empty function registry
func NewFunctionRegistry() *DefaultFunctionRegistry {
	return &DefaultFunctionRegistry{
		functions: make(map[string]Function),
	}
}

// NewFunctionRegistryWithBuiltins creates a registry holding the built-in functions
func NewFunctionRegistryWithBuiltins() *DefaultFunctionRegistry {
	registry := NewFunctionRegistry()
	registerBasicFunctions(registry)
	return registry
}

func (r *DefaultFunctionRegistry) RegisterFunction(fn Function) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	name := fn.Name()
	if name == "" {
		return fmt.Errorf("function name cannot be empty")
	}

	r.functions[name] = fn
	return nil
}

func (r *DefaultFunctionRegistry) GetFunction(name string) (Function, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	fn, exists := r.functions[name]
	return fn, exists
}

// ListFunctions returns the registered names in sorted order
func (r *DefaultFunctionRegistry) ListFunctions() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	globalRegistry *DefaultFunctionRegistry
	registryOnce   sync.Once
)

// GetDefaultFunctionRegistry returns the default global function registry
func GetDefaultFunctionRegistry() FunctionRegistry {
	registryOnce.Do(func() {
		globalRegistry = NewFunctionRegistryWithBuiltins()
	})
	return globalRegistry
}

// SimpleFunctionImpl provides a basic implementation of Function
type SimpleFunctionImpl struct {
	name    string
	minArgs int
	maxArgs int
	handler func(args ...value.Value) (value.Value, error)
}

func NewSimpleFunction(name string, minArgs, maxArgs int, handler func(args ...value.Value) (value.Value, error)) Function {
	return &SimpleFunctionImpl{
		name:    name,
		minArgs: minArgs,
		maxArgs: maxArgs,
		handler: handler,
	}
}

func (f *SimpleFunctionImpl) Call(args ...value.Value) (value.Value, error) {
	argCount := len(args)
	if argCount < f.minArgs {
		return value.Undefined, NewFunctionError(f.name, args,
			fmt.Sprintf("requires at least %d arguments, got %d", f.minArgs, argCount))
	}
	if f.maxArgs >= 0 && argCount > f.maxArgs {
		return value.Undefined, NewFunctionError(f.name, args,
			fmt.Sprintf("accepts at most %d arguments, got %d", f.maxArgs, argCount))
	}

	return f.handler(args...)
}

func (f *SimpleFunctionImpl) Name() string {
	return f.name
}

func (f *SimpleFunctionImpl) MinArgs() int {
	return f.minArgs
}

func (f *SimpleFunctionImpl) MaxArgs() int {
	return f.maxArgs
}

// registerBasicFunctions registers the built-in expression functions
func registerBasicFunctions(registry *DefaultFunctionRegistry) {
	stringFn := func(name string, fn func(string) string) Function {
		return NewSimpleFunction(name, 1, 1, func(args ...value.Value) (value.Value, error) {
			if args[0].IsNil() {
				return value.String(""), nil
			}
			return value.String(fn(args[0].Display())), nil
		})
	}
	registry.RegisterFunction(stringFn("upper", strings.ToUpper))
	registry.RegisterFunction(stringFn("lower", strings.ToLower))
	registry.RegisterFunction(stringFn("trim", strings.TrimSpace))

	registry.RegisterFunction(NewSimpleFunction("concat", 0, -1, func(args ...value.Value) (value.Value, error) {
		var sb strings.Builder
		for _, arg := range args {
			sb.WriteString(arg.Display())
		}
		return value.String(sb.String()), nil
	}))

	registry.RegisterFunction(NewSimpleFunction("len", 1, 1, func(args ...value.Value) (value.Value, error) {
		return value.Number(float64(args[0].Len())), nil
	}))

	registry.RegisterFunction(NewSimpleFunction("round", 1, 2, func(args ...value.Value) (value.Value, error) {
		num, err := numberArg("round", args, 0)
		if err != nil {
			return value.Undefined, err
		}
		digits := 0.0
		if len(args) == 2 {
			if digits, err = numberArg("round", args, 1); err != nil {
				return value.Undefined, err
			}
		}
		scale := math.Pow(10, math.Trunc(digits))
		return value.Number(math.Round(num*scale) / scale), nil
	}))

	mathFn := func(name string, fn func(float64) float64) Function {
		return NewSimpleFunction(name, 1, 1, func(args ...value.Value) (value.Value, error) {
			num, err := numberArg(name, args, 0)
			if err != nil {
				return value.Undefined, err
			}
			return value.Number(fn(num)), nil
		})
	}
	registry.RegisterFunction(mathFn("floor", math.Floor))
	registry.RegisterFunction(mathFn("ceil", math.Ceil))
	registry.RegisterFunction(mathFn("abs", math.Abs))

	registry.RegisterFunction(NewSimpleFunction("min", 1, -1, func(args ...value.Value) (value.Value, error) {
		return reduceNumbers("min", args, math.Min)
	}))
	registry.RegisterFunction(NewSimpleFunction("max", 1, -1, func(args ...value.Value) (value.Value, error) {
		return reduceNumbers("max", args, math.Max)
	}))
	registry.RegisterFunction(NewSimpleFunction("sum", 0, -1, sumValues))

	registry.RegisterFunction(NewSimpleFunction("if", 2, 3, func(args ...value.Value) (value.Value, error) {
		if value.IsTruthy(args[0]) {
			return args[1], nil
		}
		if len(args) == 3 {
			return args[2], nil
		}
		return value.Null(), nil
	}))

	registry.RegisterFunction(NewSimpleFunction("coalesce", 1, -1, func(args ...value.Value) (value.Value, error) {
		for _, arg := range args {
			if arg.IsNil() {
				continue
			}
			if s, ok := arg.Str(); ok && strings.TrimSpace(s) == "" {
				continue
			}
			return arg, nil
		}
		return value.Null(), nil
	}))

	registry.RegisterFunction(NewSimpleFunction("format", 2, 2, func(args ...value.Value) (value.Value, error) {
		spec, ok := args[0].Str()
		if !ok {
			return value.Undefined, NewFunctionError("format", args, "format specifier must be a string")
		}
		return value.String(ApplyFormat(args[1].Display(), spec)), nil
	}))
}

func numberArg(name string, args []value.Value, i int) (float64, error) {
	num, ok := toNumber(args[i])
	if !ok {
		return 0, NewFunctionError(name, args, fmt.Sprintf("argument %d is not a number", i+1))
	}
	return num, nil
}

// flattenNumbers expands array arguments so min(items) and min(1, 2) both work.
func flattenNumbers(name string, args []value.Value) ([]float64, error) {
	var nums []float64
	for _, arg := range args {
		if items, ok := arg.Items(); ok {
			for _, item := range items {
				if item.IsNil() {
					continue
				}
				num, ok := toNumber(item)
				if !ok {
					return nil, NewFunctionError(name, args, fmt.Sprintf("cannot convert %s to number", item.Display()))
				}
				nums = append(nums, num)
			}
			continue
		}
		if arg.IsNil() {
			continue
		}
		num, ok := toNumber(arg)
		if !ok {
			return nil, NewFunctionError(name, args, fmt.Sprintf("cannot convert %s to number", arg.Display()))
		}
		nums = append(nums, num)
	}
	return nums, nil
}

func reduceNumbers(name string, args []value.Value, fn func(a, b float64) float64) (value.Value, error) {
	nums, err := flattenNumbers(name, args)
	if err != nil {
		return value.Undefined, err
	}
	if len(nums) == 0 {
		return value.Null(), nil
	}
	result := nums[0]
	for _, n := range nums[1:] {
		result = fn(result, n)
	}
	return value.Number(result), nil
}

func sumValues(args ...value.Value) (value.Value, error) {
	nums, err := flattenNumbers("sum", args)
	if err != nil {
		return value.Undefined, err
	}
	total := 0.0
	for _, n := range nums {
		total += n
	}
	return value.Number(total), nil
}
