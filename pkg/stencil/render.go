package stencil

import (
	"strings"
	"time"

	"github.com/benjaminschreck/go-pagestencil/pkg/stencil/value"
)

// RenderContext carries the page metadata and variables for one render call.
//
// Variables holds flat (string) variables and Structured holds object, array
// and scalar JSON values. A name present in both resolves to the flat value.
type RenderContext struct {
	PageNumber int
	TotalPages int
	Variables  map[string]string
	Structured map[string]value.Value
}

// NewRenderContext builds a context for a single render.
func NewRenderContext(pageNumber, totalPages int, flat map[string]string, structured map[string]value.Value) *RenderContext {
	return &RenderContext{
		PageNumber: pageNumber,
		TotalPages: totalPages,
		Variables:  flat,
		Structured: structured,
	}
}

// scopeVariables folds both variable maps into a single lookup table.
func (c *RenderContext) scopeVariables() map[string]value.Value {
	vars := make(map[string]value.Value, len(c.Variables)+len(c.Structured))
	for name, v := range c.Structured {
		vars[name] = v
	}
	for name, s := range c.Variables {
		vars[name] = value.Text(s)
	}
	return vars
}

// scope is a chain of variable frames. Loop iterations push a frame holding
// this, the @-variables and the properties of the current item.
type scope struct {
	vars   map[string]value.Value
	parent *scope
}

// lookup resolves a variable path, innermost frame first. A frame that binds
// the whole path, or its first segment, decides the result.
func (s *scope) lookup(path string) (value.Value, bool) {
	segments := value.SplitPath(path)
	if len(segments) == 0 {
		return value.Undefined, false
	}
	for frame := s; frame != nil; frame = frame.parent {
		if v, ok := frame.vars[path]; ok {
			return v, true
		}
		head, ok := frame.vars[segments[0]]
		if !ok {
			continue
		}
		if len(segments) == 1 {
			return head, true
		}
		return value.Resolve(head, segments[1:])
	}
	return value.Undefined, false
}

func (s *scope) push(vars map[string]value.Value) *scope {
	return &scope{vars: vars, parent: s}
}

// renderState is the per-call state shared by all nodes of one render.
type renderState struct {
	ctx       *RenderContext
	now       time.Time
	config    *Config
	sanitizer func(string) string
}

// Render renders template with the package-level default engine.
func Render(template string, ctx *RenderContext) string {
	return defaultEngine().Render(template, ctx)
}

// Execute renders a parsed template.
func (t *Template) Execute(ctx *RenderContext, opts ...RenderOption) string {
	st := &renderState{ctx: ctx, now: time.Now(), config: GetGlobalConfig()}
	for _, opt := range opts {
		opt(st)
	}
	return t.execute(st)
}

func (t *Template) execute(st *renderState) string {
	if st.ctx == nil {
		st.ctx = &RenderContext{}
	}
	root := &scope{vars: st.ctx.scopeVariables()}
	var out strings.Builder
	out.Grow(len(t.source))
	renderNodes(t.nodes, st, root, &out)
	return out.String()
}

// RenderOption adjusts a single render call.
type RenderOption func(*renderState)

// WithNow fixes the wall-clock time used by the date built-ins.
func WithNow(now time.Time) RenderOption {
	return func(st *renderState) { st.now = now }
}

func renderNodes(nodes []Node, st *renderState, sc *scope, out *strings.Builder) {
	for _, n := range nodes {
		n.render(st, sc, out)
	}
}

func (n *TextNode) render(_ *renderState, _ *scope, out *strings.Builder) {
	out.WriteString(n.Content)
}

func (n *VariableNode) render(st *renderState, sc *scope, out *strings.Builder) {
	if !n.HasFormat {
		if text, ok := builtinValue(n.Path, st.ctx, st.now, st.config); ok {
			out.WriteString(text)
			return
		}
		if v, ok := sc.lookup(n.Path); ok {
			out.WriteString(st.sanitize(v.Display()))
			return
		}
		out.WriteString(n.Raw)
		return
	}

	raw, ok := "", false
	if v, found := sc.lookup(n.Path); found {
		raw, ok = v.Display(), true
	} else {
		raw, ok = builtinValue(n.Path, st.ctx, st.now, st.config)
	}
	if !ok {
		out.WriteString(n.Raw)
		return
	}
	out.WriteString(st.sanitize(ApplyFormat(raw, n.Format)))
}

func (st *renderState) sanitize(s string) string {
	if st.sanitizer == nil {
		return s
	}
	return st.sanitizer(s)
}

func (st *renderState) truthy(sc *scope, condition string) bool {
	v, ok := sc.lookup(condition)
	if !ok {
		return false
	}
	return value.IsTruthy(v)
}

func (n *IfNode) render(st *renderState, sc *scope, out *strings.Builder) {
	if st.truthy(sc, n.Condition) {
		renderNodes(n.ThenBody, st, sc, out)
		return
	}
	renderNodes(n.ElseBody, st, sc, out)
}

func (n *UnlessNode) render(st *renderState, sc *scope, out *strings.Builder) {
	if !st.truthy(sc, n.Condition) {
		renderNodes(n.ThenBody, st, sc, out)
		return
	}
	renderNodes(n.ElseBody, st, sc, out)
}

func (n *EachNode) render(st *renderState, sc *scope, out *strings.Builder) {
	collection, ok := sc.lookup(n.Collection)
	items, isArray := collection.Items()
	if !ok || !isArray || len(items) == 0 {
		if ok && !isArray {
			GetLogger().WithField("collection", n.Collection).Debug("Each target is not an array")
		}
		renderNodes(n.ElseBody, st, sc, out)
		return
	}

	count := len(items)
	for i, item := range items {
		renderNodes(n.Body, st, sc.push(loopFrame(item, i, count)), out)
	}
}

// loopFrame binds the loop variables for one iteration. Properties of an
// object item are reachable both as this.<prop> and as bare <prop>.
func loopFrame(item value.Value, index, count int) map[string]value.Value {
	frame := make(map[string]value.Value)
	if obj, ok := item.Object(); ok {
		obj.Range(func(key string, v value.Value) bool {
			frame[key] = v
			return true
		})
	}
	frame["this"] = item
	frame["@index"] = value.Number(float64(index))
	frame["@number"] = value.Number(float64(index + 1))
	frame["@first"] = value.Bool(index == 0)
	frame["@last"] = value.Bool(index == count-1)
	return frame
}
