package stencil

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/benjaminschreck/go-pagestencil/pkg/stencil/value"
)

// Validation error types.
const (
	ErrTypeRequired        = "required"
	ErrTypeInvalidNumber   = "invalid_number"
	ErrTypeInvalidDate     = "invalid_date"
	ErrTypeInvalidBoolean  = "invalid_boolean"
	ErrTypeInvalidCurrency = "invalid_currency"
	ErrTypeInvalidArray    = "invalid_array"
	ErrTypeMinItems        = "min_items"
	ErrTypeMaxItems        = "max_items"
	ErrTypeInvalidObject   = "invalid_object"
	ErrTypePatternMismatch = "pattern_mismatch"
	ErrTypeInvalidPattern  = "invalid_pattern"
)

// ValidationError is one problem with a provided value.
type ValidationError struct {
	VariableName string `json:"variableName"`
	ErrorType    string `json:"errorType"`
	Message      string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.VariableName, e.Message)
}

// ValidationResult collects every error found in one validation call.
type ValidationResult struct {
	IsValid bool              `json:"isValid"`
	Errors  []ValidationError `json:"errors"`
}

// Err returns the errors as a single error, or nil when the result is valid.
func (r ValidationResult) Err() error {
	errs := NewMultiError()
	for _, e := range r.Errors {
		errs.Add(e)
	}
	return errs.Err()
}

// Validate checks provided values against defs. Every definition is checked
// and all errors are collected. Computed definitions are skipped since their
// values never come from input.
func Validate(defs []VariableDefinition, provided map[string]value.Value) ValidationResult {
	v := &validator{errors: []ValidationError{}}
	v.validateAll(defs, func(name string) (value.Value, bool) {
		return lookupProvided(provided, name)
	}, "")

	logger := GetLogger()
	if logger.IsDebugMode() {
		logger.WithFields(Fields{
			"definitions": len(defs),
			"errors":      len(v.errors),
		}).Debug("Validated variables")
	}

	return ValidationResult{IsValid: len(v.errors) == 0, Errors: v.errors}
}

// ValidateStrict is Validate for callers that treat a nil definition list as
// a programming error.
func ValidateStrict(defs []VariableDefinition, provided map[string]value.Value) (ValidationResult, error) {
	if defs == nil {
		return ValidationResult{}, ErrNilDefinitions
	}
	return Validate(defs, provided), nil
}

// lookupProvided finds a value by exact name, then ignoring case.
func lookupProvided(provided map[string]value.Value, name string) (value.Value, bool) {
	if v, ok := provided[name]; ok {
		return v, true
	}
	keys := make([]string, 0, len(provided))
	for k := range provided {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.EqualFold(k, name) {
			return provided[k], true
		}
	}
	return value.Undefined, false
}

type validator struct {
	errors []ValidationError
}

func (v *validator) add(name, errorType, message string) {
	v.errors = append(v.errors, ValidationError{
		VariableName: name,
		ErrorType:    errorType,
		Message:      message,
	})
}

func (v *validator) validateAll(defs []VariableDefinition, lookup func(string) (value.Value, bool), prefix string) {
	for _, def := range defs {
		if def.IsComputed {
			continue
		}
		val, _ := lookup(def.Name)
		v.validateOne(def, val, prefix+def.Name)
	}
}

func isMissing(val value.Value) bool {
	if val.IsNil() {
		return true
	}
	if s, ok := val.Str(); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

func (v *validator) validateOne(def VariableDefinition, val value.Value, name string) {
	label := def.DisplayLabel()

	if isMissing(val) {
		if def.Required {
			v.add(name, ErrTypeRequired, fmt.Sprintf("%s is required", label))
		}
		return
	}

	switch def.NormalizedType() {
	case TypeNumber:
		if _, ok := toNumber(val); !ok {
			v.add(name, ErrTypeInvalidNumber, fmt.Sprintf("%s must be a number", label))
		}
	case TypeDate:
		s, ok := val.Str()
		if !ok {
			v.add(name, ErrTypeInvalidDate, fmt.Sprintf("%s must be a date", label))
		} else if _, ok := parseDate(s); !ok {
			v.add(name, ErrTypeInvalidDate, fmt.Sprintf("%s must be a valid date", label))
		}
	case TypeBoolean:
		if _, ok := coerceBool(val); !ok {
			v.add(name, ErrTypeInvalidBoolean, fmt.Sprintf("%s must be true or false", label))
		}
	case TypeCurrency:
		if !isCurrencyValue(val) {
			v.add(name, ErrTypeInvalidCurrency, fmt.Sprintf("%s must be an amount with a currency", label))
		}
	case TypeArray:
		v.validateArray(def, val, name, label)
	case TypeObject:
		obj, ok := asObject(val)
		if !ok {
			v.add(name, ErrTypeInvalidObject, fmt.Sprintf("%s must be an object", label))
			return
		}
		if len(def.Properties) > 0 {
			v.validateAll(def.Properties, obj.Lookup, name+".")
		}
	}

	if pattern := optString(def.Pattern); pattern != "" {
		s, ok := val.Str()
		if !ok {
			return
		}
		re, err := compilePattern(pattern)
		if err != nil {
			v.add(name, ErrTypeInvalidPattern, fmt.Sprintf("%s has an invalid pattern: %v", label, err))
			return
		}
		if !re.MatchString(s) {
			v.add(name, ErrTypePatternMismatch, fmt.Sprintf("%s does not match the required format", label))
		}
	}
}

func (v *validator) validateArray(def VariableDefinition, val value.Value, name, label string) {
	items, ok := asArray(val)
	if !ok {
		v.add(name, ErrTypeInvalidArray, fmt.Sprintf("%s must be a list", label))
		return
	}
	if def.MinItems != nil && len(items) < *def.MinItems {
		v.add(name, ErrTypeMinItems, fmt.Sprintf("%s must have at least %d items", label, *def.MinItems))
	}
	if def.MaxItems != nil && len(items) > *def.MaxItems {
		v.add(name, ErrTypeMaxItems, fmt.Sprintf("%s must have at most %d items", label, *def.MaxItems))
	}
	if len(def.ItemSchema) == 0 {
		return
	}
	for i, item := range items {
		itemName := fmt.Sprintf("%s[%d]", name, i)
		obj, ok := item.Object()
		if !ok {
			v.add(itemName, ErrTypeInvalidObject, fmt.Sprintf("%s item %d must be an object", label, i+1))
			continue
		}
		v.validateAll(def.ItemSchema, obj.Lookup, itemName+".")
	}
}

// asArray accepts an array value or text holding a JSON array.
func asArray(val value.Value) ([]value.Value, bool) {
	if items, ok := val.Items(); ok {
		return items, true
	}
	if s, ok := val.Str(); ok {
		if parsed, err := value.ParseJSONString(s); err == nil {
			return parsed.Items()
		}
	}
	return nil, false
}

// asObject accepts an object value or text holding a JSON object.
func asObject(val value.Value) (*value.Object, bool) {
	if obj, ok := val.Object(); ok {
		return obj, true
	}
	if s, ok := val.Str(); ok {
		if parsed, err := value.ParseJSONString(s); err == nil {
			return parsed.Object()
		}
	}
	return nil, false
}

// coerceBool accepts booleans, 0/1 and the words true/false, yes/no, on/off.
func coerceBool(val value.Value) (bool, bool) {
	if b, ok := val.Boolean(); ok {
		return b, true
	}
	if f, ok := val.Float(); ok && (f == 0 || f == 1) {
		return f == 1, true
	}
	s, ok := val.Str()
	if !ok {
		return false, false
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1", "on":
		return true, true
	case "false", "no", "0", "off":
		return false, true
	}
	return false, false
}

// isCurrencyValue accepts {value: number, currency: string} or a plain amount.
func isCurrencyValue(val value.Value) bool {
	if _, ok := toNumber(val); ok {
		return true
	}
	obj, ok := asObject(val)
	if !ok {
		return false
	}
	amount, ok := obj.Lookup("value")
	if !ok {
		return false
	}
	if _, ok := toNumber(amount); !ok {
		return false
	}
	code, ok := obj.Lookup("currency")
	if !ok {
		return false
	}
	s, ok := code.Str()
	return ok && strings.TrimSpace(s) != ""
}

var patternCache sync.Map

func compilePattern(pattern string) (*regexp.Regexp, error) {
	if re, ok := patternCache.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	patternCache.Store(pattern, re)
	return re, nil
}
