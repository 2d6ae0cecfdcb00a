package stencil

import (
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	valuePolicyOnce sync.Once
	valuePolicy     *bluemonday.Policy
)

// SanitizeHTML removes scripts, event handlers and other unsafe markup from
// a substituted value, keeping basic formatting tags.
func SanitizeHTML(raw string) string {
	if raw == "" {
		return ""
	}
	return valueSanitizer().Sanitize(raw)
}

func valueSanitizer() *bluemonday.Policy {
	valuePolicyOnce.Do(func() {
		valuePolicy = bluemonday.UGCPolicy()
	})
	return valuePolicy
}
