package stencil

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CacheConfig contains configuration options for the template cache
type CacheConfig struct {
	// MaxSize is the maximum number of templates to cache. 0 disables caching.
	MaxSize int
	// TTL is the time-to-live for cached templates. 0 means no expiration.
	TTL time.Duration
	// MaxNestingDepth is passed to the parser for templates parsed by the cache.
	MaxNestingDepth int
}

// TemplateCache keeps parsed templates keyed by their source text. It is
// safe for concurrent use.
type TemplateCache struct {
	lru    *expirable.LRU[string, *Template]
	config CacheConfig
}

// NewTemplateCache creates a new template cache from the global configuration
func NewTemplateCache() *TemplateCache {
	config := GetGlobalConfig()
	return NewTemplateCacheWithConfig(CacheConfig{
		MaxSize:         config.CacheMaxSize,
		TTL:             config.CacheTTL,
		MaxNestingDepth: config.MaxNestingDepth,
	})
}

// NewTemplateCacheWithConfig creates a new template cache with the given configuration
func NewTemplateCacheWithConfig(config CacheConfig) *TemplateCache {
	tc := &TemplateCache{config: config}
	if config.MaxSize > 0 {
		tc.lru = expirable.NewLRU[string, *Template](config.MaxSize, nil, config.TTL)
	}
	return tc
}

// Parse returns the cached tree for source, parsing and caching it on a miss.
func (tc *TemplateCache) Parse(source string) *Template {
	if tc.lru == nil {
		return parseWithDepth(source, tc.config.MaxNestingDepth)
	}

	if tmpl, ok := tc.lru.Get(source); ok {
		if logger := GetLogger(); logger.IsDebugMode() {
			logger.WithField("size", len(source)).Debug("Template cache hit")
		}
		return tmpl
	}

	tmpl := parseWithDepth(source, tc.config.MaxNestingDepth)
	tc.lru.Add(source, tmpl)
	if logger := GetLogger(); logger.IsDebugMode() {
		logger.WithField("size", len(source)).Debug("Template cache miss")
	}
	return tmpl
}

// Get retrieves a template from cache without parsing
func (tc *TemplateCache) Get(source string) (*Template, bool) {
	if tc.lru == nil {
		return nil, false
	}
	return tc.lru.Get(source)
}

// Set adds a parsed template to the cache
func (tc *TemplateCache) Set(tmpl *Template) {
	if tc.lru == nil || tmpl == nil {
		return
	}
	tc.lru.Add(tmpl.source, tmpl)
}

// Remove removes a template from the cache
func (tc *TemplateCache) Remove(source string) {
	if tc.lru == nil {
		return
	}
	tc.lru.Remove(source)
}

// Clear removes all templates from the cache
func (tc *TemplateCache) Clear() {
	if tc.lru == nil {
		return
	}
	tc.lru.Purge()
}

// Size returns the current number of cached templates
func (tc *TemplateCache) Size() int {
	if tc.lru == nil {
		return 0
	}
	return tc.lru.Len()
}
