package stencil

import (
	"fmt"
	"sync"
	"time"

	"github.com/benjaminschreck/go-pagestencil/pkg/stencil/value"
)

// Engine renders templates with a fixed configuration. It caches parsed
// templates and is safe for concurrent use.
// Use New() to create a new engine instance.
type Engine struct {
	config    *Config
	cache     *TemplateCache
	registry  *DefaultFunctionRegistry
	evaluator Evaluator
	sanitizer func(string) string
	now       func() time.Time
}

// New creates a new engine with the global configuration.
func New() *Engine {
	return NewWithOptions()
}

// NewWithConfig creates a new engine with custom configuration. Unset
// fields take their defaults.
func NewWithConfig(config *Config) *Engine {
	return NewWithOptions(WithConfig(config))
}

// Option represents a configuration option for the engine.
type Option func(*Engine)

// WithConfig returns an option that sets the engine configuration.
func WithConfig(config *Config) Option {
	return func(e *Engine) {
		e.config = NewConfigWithDefaults(config)
	}
}

// WithCache returns an option that sets the cache size (0 disables caching).
func WithCache(maxSize int) Option {
	return func(e *Engine) {
		e.config.CacheMaxSize = maxSize
	}
}

// WithFunction returns an option that registers an expression function.
func WithFunction(fn Function) Option {
	return func(e *Engine) {
		if err := e.registry.RegisterFunction(fn); err != nil {
			GetLogger().WithField("function", fn.Name()).Warn("Function not registered: %v", err)
		}
	}
}

// WithEvaluator returns an option that replaces the computed-variable evaluator.
func WithEvaluator(evaluator Evaluator) Option {
	return func(e *Engine) {
		e.evaluator = evaluator
	}
}

// WithClock returns an option that sets the clock used by the date built-ins.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithSanitizer returns an option that filters every substituted value.
func WithSanitizer(sanitize func(string) string) Option {
	return func(e *Engine) {
		e.sanitizer = sanitize
	}
}

// NewWithOptions creates a new engine with the specified options.
func NewWithOptions(opts ...Option) *Engine {
	engine := &Engine{
		config:   GetGlobalConfig(),
		registry: NewFunctionRegistryWithBuiltins(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(engine)
	}

	if engine.evaluator == nil {
		engine.evaluator = NewExpressionEvaluator(engine.registry)
	}
	if engine.sanitizer == nil && engine.config.SanitizeValues {
		engine.sanitizer = SanitizeHTML
	}
	engine.cache = NewTemplateCacheWithConfig(CacheConfig{
		MaxSize:         engine.config.CacheMaxSize,
		TTL:             engine.config.CacheTTL,
		MaxNestingDepth: engine.config.MaxNestingDepth,
	})
	return engine
}

// Parse returns the parse tree for source, from the cache when possible.
func (e *Engine) Parse(source string) *Template {
	return e.cache.Parse(source)
}

// Render renders template against ctx. Rendering never fails: directives
// that cannot be resolved are left as written.
func (e *Engine) Render(template string, ctx *RenderContext) string {
	tmpl := e.Parse(template)
	GetLogger().DebugTemplate(template, ctx)
	return tmpl.execute(e.newRenderState(ctx))
}

// RenderTemplate renders an already parsed template.
func (e *Engine) RenderTemplate(tmpl *Template, ctx *RenderContext) string {
	return tmpl.execute(e.newRenderState(ctx))
}

func (e *Engine) newRenderState(ctx *RenderContext) *renderState {
	return &renderState{
		ctx:       ctx,
		now:       e.now(),
		config:    e.config,
		sanitizer: e.sanitizer,
	}
}

// RenderDocument merges defaults, stored and provided values, evaluates
// computed variables and renders template for one page.
func (e *Engine) RenderDocument(template string, pageNumber, totalPages int, defs []VariableDefinition, stored map[string]string, provided map[string]value.Value) (string, error) {
	merged, err := e.Resolve(defs, stored, provided)
	if err != nil {
		return "", err
	}
	return e.Render(template, merged.RenderContext(pageNumber, totalPages)), nil
}

// Resolve merges values and adds the computed variables.
func (e *Engine) Resolve(defs []VariableDefinition, stored map[string]string, provided map[string]value.Value) (MergeResult, error) {
	merged := Merge(defs, stored, provided)

	computed, err := ComputeVariables(defs, merged.Flat, merged.Structured, e.evaluator)
	if err != nil {
		return merged, WithContext(err, "compute variables", map[string]interface{}{
			"definitions": len(defs),
		})
	}
	for name, s := range computed.Flat {
		merged.Flat[name] = s
	}
	for name, v := range computed.Structured {
		merged.Structured[name] = v
		delete(merged.Flat, name)
	}
	return merged, nil
}

// RegisterFunction adds an expression function available to computed variables.
func (e *Engine) RegisterFunction(fn Function) error {
	if fn == nil {
		return fmt.Errorf("function cannot be nil")
	}
	return e.registry.RegisterFunction(fn)
}

// Config returns the engine's configuration.
func (e *Engine) Config() *Config {
	return e.config
}

// ClearCache removes all templates from the cache.
func (e *Engine) ClearCache() {
	e.cache.Clear()
}

// CacheSize returns the number of cached templates.
func (e *Engine) CacheSize() int {
	return e.cache.Size()
}

var (
	defaultEngineMu sync.Mutex
	defaultEng      *Engine
)

// defaultEngine returns the engine behind the package-level functions. It is
// rebuilt after SetGlobalConfig.
func defaultEngine() *Engine {
	defaultEngineMu.Lock()
	defer defaultEngineMu.Unlock()
	if defaultEng == nil {
		defaultEng = New()
	}
	return defaultEng
}

func resetDefaultEngine() {
	defaultEngineMu.Lock()
	defaultEng = nil
	defaultEngineMu.Unlock()
}

// RenderDocument renders with the default engine.
func RenderDocument(template string, pageNumber, totalPages int, defs []VariableDefinition, stored map[string]string, provided map[string]value.Value) (string, error) {
	return defaultEngine().RenderDocument(template, pageNumber, totalPages, defs, stored, provided)
}
