// Package stencil renders page templates with typed variables.
//
// A template is plain text with {{...}} directives. Rendering never fails:
// placeholders that cannot be resolved are left exactly as written, and a
// block without its closing tag is kept as literal text.
//
// # Quick Start
//
//	ctx := stencil.NewRenderContext(3, 10, map[string]string{
//	    "customer": "Ada",
//	    "amount":   "1234.5",
//	}, nil)
//
//	out := stencil.Render("Page {{pageNumber}} of {{totalPages}}: {{customer}} owes {{amount:USD}}", ctx)
//	// Page 3 of 10: Ada owes $1,234.50
//
// # Template Syntax
//
// Placeholders:
//
//	{{name}}                 - Variable
//	{{customer.address}}     - Dotted path into a structured value
//	{{amount:USD}}           - Formatted variable
//	{{pageNumber}}           - Built-in (also totalPages, date, year, time, datetime, today)
//
// Blocks:
//
//	{{#if cond}}...{{else}}...{{/if}}
//	{{#unless cond}}...{{/unless}}
//	{{#each items}}...{{else}}...{{/each}}
//
// Blocks nest. Inside {{#each}} the element is available as {{this}} and,
// for objects, each property both as {{this.prop}} and {{prop}}. The loop
// position is exposed as {{@index}}, {{@number}}, {{@first}} and {{@last}}.
//
// Formats:
//
//	{{name:upper}}  {{name:lower}}  {{name:title}}  {{name:trim}}
//	{{due:yyyy-MM-dd}}  {{due:dd MMMM yyyy}}
//	{{amount:USD}}  {{amount:EUR}}  {{amount:CHF}}
//	{{amount:N2}}  {{rate:P1}}  {{amount:#,##0.00}}  {{amount:%.3f}}
//
// A format that does not apply to the value returns the value unchanged.
//
// # Variables
//
// VariableDefinition describes a typed variable. Validate checks provided
// values against definitions and collects every problem. Merge combines
// defaults, stored values and provided values, and ComputeVariables derives
// computed variables from their expressions in dependency order.
//
//	result := stencil.Validate(defs, provided)
//	if !result.IsValid {
//	    return result.Err()
//	}
//	out, err := stencil.RenderDocument(tmpl, 1, 1, defs, stored, provided)
//
// # Engines
//
// The package-level functions use an engine built from the global
// configuration. New and NewWithOptions build independent engines, each with
// its own template cache and function registry:
//
//	engine := stencil.NewWithOptions(
//	    stencil.WithCache(500),
//	    stencil.WithClock(func() time.Time { return fixed }),
//	)
//
// # Configuration
//
// Configuration comes from defaults, an optional YAML file (LoadConfigFile)
// and PAGESTENCIL_* environment variables:
//
//	PAGESTENCIL_CACHE_MAX_SIZE      - Template cache size (default 100, 0 disables)
//	PAGESTENCIL_CACHE_TTL           - Cache entry lifetime (default none)
//	PAGESTENCIL_LOG_LEVEL           - debug, info, warn, error or off (default info)
//	PAGESTENCIL_MAX_NESTING_DEPTH   - Deepest block nesting (default 32)
//	PAGESTENCIL_DATE_LAYOUT         - Go layout for {{date}} and {{today}}
//	PAGESTENCIL_TIME_LAYOUT         - Go layout for {{time}}
//	PAGESTENCIL_DATETIME_LAYOUT     - Go layout for {{datetime}}
//	PAGESTENCIL_SANITIZE_VALUES     - Strip unsafe HTML from substituted values
//
// # Thread Safety
//
// Parsed templates and engines are safe for concurrent use. A RenderContext
// must not be modified while a render using it is running.
package stencil
