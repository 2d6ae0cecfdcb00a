package stencil

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/benjaminschreck/go-pagestencil/pkg/stencil/value"
)

// ErrNilDefinitions is returned when a definition list is required but nil.
var ErrNilDefinitions = errors.New("variable definitions are nil")

// TemplateError is a structural problem in template text. Line and Column
// are 1-based; zero means unknown.
type TemplateError struct {
	Message string
	Line    int
	Column  int
}

func (e *TemplateError) Error() string {
	switch {
	case e.Line > 0 && e.Column > 0:
		return fmt.Sprintf("template error at line %d, column %d: %s", e.Line, e.Column, e.Message)
	case e.Line > 0:
		return fmt.Sprintf("template error at line %d: %s", e.Line, e.Message)
	}
	return "template error: " + e.Message
}

// NewTemplateError creates a template error at a source position.
func NewTemplateError(message string, line, column int) error {
	return &TemplateError{Message: message, Line: line, Column: column}
}

// ParseError is a syntax error in a computed-variable expression.
type ParseError struct {
	Message  string
	Token    string
	Position int
}

func (e *ParseError) Error() string {
	where := fmt.Sprintf("parse error at position %d", e.Position)
	if e.Token != "" {
		where += fmt.Sprintf(" near '%s'", e.Token)
	}
	return where + ": " + e.Message
}

// NewParseError creates a new parse error
func NewParseError(message, token string, position int) error {
	return &ParseError{Message: message, Token: token, Position: position}
}

// EvaluationError is a failure computing a variable from its expression.
type EvaluationError struct {
	Variable   string
	Expression string
	Cause      error
}

func (e *EvaluationError) Error() string {
	var b strings.Builder
	b.WriteString("evaluation error")
	if e.Variable != "" {
		fmt.Fprintf(&b, " for variable '%s'", e.Variable)
	}
	fmt.Fprintf(&b, " in expression '%s'", e.Expression)
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *EvaluationError) Unwrap() error {
	return e.Cause
}

// NewEvaluationError creates a new evaluation error
func NewEvaluationError(variable, expression string, cause error) error {
	return &EvaluationError{Variable: variable, Expression: expression, Cause: cause}
}

// FunctionError is a rejected call to an expression function. Args holds
// the display form of each argument.
type FunctionError struct {
	Function string
	Args     []string
	Message  string
}

func (e *FunctionError) Error() string {
	return fmt.Sprintf("function error in '%s(%s)': %s", e.Function, strings.Join(e.Args, ", "), e.Message)
}

// NewFunctionError creates a function error for a call with args.
func NewFunctionError(function string, args []value.Value, message string) error {
	shown := make([]string, len(args))
	for i, arg := range args {
		shown[i] = arg.Display()
	}
	return &FunctionError{Function: function, Args: shown, Message: message}
}

// CycleError reports computed variables that depend on each other.
type CycleError struct {
	Variables []string
}

func (e *CycleError) Error() string {
	return "dependency cycle between computed variables: " + strings.Join(e.Variables, " -> ")
}

// DocumentError is a failure loading or storing document data: definitions,
// values, rows, templates, output files or the variable store.
type DocumentError struct {
	Operation string
	Path      string
	Cause     error
}

func (e *DocumentError) Error() string {
	msg := "document error during " + e.Operation
	if e.Path != "" {
		msg += fmt.Sprintf(" of '%s'", e.Path)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *DocumentError) Unwrap() error {
	return e.Cause
}

// NewDocumentError creates a new document error
func NewDocumentError(operation, path string, cause error) error {
	return &DocumentError{Operation: operation, Path: path, Cause: cause}
}

// MultiError collects the errors of a pass that keeps going after the
// first failure, such as validation or bulk generation.
type MultiError struct {
	errors []error
}

// NewMultiError creates an empty collector.
func NewMultiError() *MultiError {
	return &MultiError{}
}

// Add records err. Nil errors are ignored.
func (m *MultiError) Add(err error) {
	if err != nil {
		m.errors = append(m.errors, err)
	}
}

// Len returns the number of errors
func (m *MultiError) Len() int {
	return len(m.errors)
}

// Err returns nil when nothing was collected, the error itself when there
// is exactly one, and m otherwise.
func (m *MultiError) Err() error {
	switch len(m.errors) {
	case 0:
		return nil
	case 1:
		return m.errors[0]
	}
	return m
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (m *MultiError) Unwrap() []error {
	return m.errors
}

func (m *MultiError) Error() string {
	switch len(m.errors) {
	case 0:
		return "no errors"
	case 1:
		return m.errors[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d errors:", len(m.errors))
	for _, err := range m.errors {
		b.WriteString("\n  - ")
		b.WriteString(err.Error())
	}
	return b.String()
}

// ContextError annotates an error with the operation that failed and a few
// key/value details.
type ContextError struct {
	Operation string
	Context   map[string]interface{}
	Cause     error
}

func (e *ContextError) Error() string {
	if len(e.Context) == 0 {
		return fmt.Sprintf("%s: %v", e.Operation, e.Cause)
	}
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = fmt.Sprintf("%s=%v", k, e.Context[k])
	}
	return fmt.Sprintf("%s [%s]: %v", e.Operation, strings.Join(pairs, ", "), e.Cause)
}

func (e *ContextError) Unwrap() error {
	return e.Cause
}

// WithContext wraps err with an operation and details. A nil err stays nil.
func WithContext(err error, operation string, context map[string]interface{}) error {
	if err == nil {
		return nil
	}
	return &ContextError{Operation: operation, Context: context, Cause: err}
}

// RecoverError turns a recovered panic value into an error. Error values
// stay reachable through errors.Is.
func RecoverError(r interface{}) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic recovered: %w", err)
	}
	return fmt.Errorf("panic recovered: %v", r)
}

// IsTemplateError checks if an error is or wraps a template error
func IsTemplateError(err error) bool {
	var target *TemplateError
	return errors.As(err, &target)
}

// IsParseError checks if an error is or wraps a parse error
func IsParseError(err error) bool {
	var target *ParseError
	return errors.As(err, &target)
}

// IsEvaluationError checks if an error is or wraps an evaluation error
func IsEvaluationError(err error) bool {
	var target *EvaluationError
	return errors.As(err, &target)
}

// IsFunctionError checks if an error is or wraps a function error
func IsFunctionError(err error) bool {
	var target *FunctionError
	return errors.As(err, &target)
}

// IsCycleError checks if an error is or wraps a dependency cycle error
func IsCycleError(err error) bool {
	var target *CycleError
	return errors.As(err, &target)
}

// IsDocumentError checks if an error is or wraps a document error
func IsDocumentError(err error) bool {
	var target *DocumentError
	return errors.As(err, &target)
}
