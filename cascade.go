package textual

import (
	"fmt"
	"sort"
	"strings"
)

// defaultComputedStyle returns the engine defaults for every property.
func defaultComputedStyle() ComputedStyle {
	cs := newComputedStyle()
	for name, def := range properties {
		cs.values[name] = def.Default
	}
	return cs
}

// Resolver turns the stylesheet plus the live node tree into a
// ComputedStyle per node. Resolution is pure: the same stylesheet,
// theme and node state always produce an equal ComputedStyle.
type Resolver struct {
	sheet *Stylesheet
	theme *Theme
}

// NewResolver creates a resolver over a stylesheet and theme.
func NewResolver(sheet *Stylesheet, theme *Theme) *Resolver {
	if theme == nil {
		theme = DefaultTheme
	}
	return &Resolver{sheet: sheet, theme: theme}
}

// Theme returns the active theme.
func (r *Resolver) Theme() *Theme { return r.theme }

// SetTheme swaps the active theme. Callers are expected to re-resolve
// the tree afterwards.
func (r *Resolver) SetTheme(t *Theme) {
	r.theme = t
}

// matchedRule pairs a rule with the data the cascade sorts on.
type matchedRule struct {
	rule *StyleRule
}

// ResolveNode computes the node's style: cascade over matching rules,
// synthetic per-node overrides, inheritance from the parent's computed
// style for unset inherited properties, engine defaults for the rest.
func (r *Resolver) ResolveNode(n *Node) ComputedStyle {
	var matched []matchedRule
	for _, rule := range r.sheet.Rules() {
		if rule.Selector.Matches(n) {
			matched = append(matched, matchedRule{rule: rule})
		}
	}

	// Weakest first; applying in order means the strongest rule ends up
	// owning each property. Specificity dominates, then origin (author
	// beats bundled at equal specificity regardless of source order),
	// then source order (later wins).
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i].rule, matched[j].rule
		if c := a.specificity.Compare(b.specificity); c != 0 {
			return c < 0
		}
		if a.Origin != b.Origin {
			return a.Origin < b.Origin
		}
		return a.SourceIndex < b.SourceIndex
	})

	local := make(map[string]Value, len(properties))
	for _, m := range matched {
		r.applyDeclarations(local, m.rule.Selector.String(), m.rule.Declarations)
	}
	// Direct style writes act as a final, maximal-specificity rule.
	r.applyDeclarations(local, fmt.Sprintf("%s#%d", n.TypeName(), n.Serial()), n.overrides)

	cs := newComputedStyle()
	for name, def := range properties {
		if v, ok := local[name]; ok {
			cs.values[name] = v
			continue
		}
		if def.Inherited && n.parent != nil {
			cs.values[name] = n.parent.computed.Get(name)
			continue
		}
		cs.values[name] = def.Default
	}
	return cs
}

// applyDeclarations parses raw declarations (after variable
// substitution) into the property map. Failures are recorded on the
// stylesheet and the declaration is skipped, leaving any earlier value.
func (r *Resolver) applyDeclarations(dst map[string]Value, selector string, decls []Declaration) {
	for _, d := range decls {
		def, ok := properties[d.Property]
		if !ok {
			r.sheet.addError(selector, d.Property, "unknown property")
			continue
		}
		raw, err := substituteVariables(d.RawValue, r.theme)
		if err != nil {
			r.sheet.addError(selector, d.Property, err.Error())
			continue
		}
		v, err := def.Parse(raw)
		if err != nil {
			r.sheet.addError(selector, d.Property, err.Error())
			continue
		}
		dst[d.Property] = v
	}
}

// substituteVariables replaces $name references from the theme map.
// An unresolved variable is an error; the caller skips the declaration.
func substituteVariables(raw string, theme *Theme) (string, error) {
	if !strings.ContainsRune(raw, '$') {
		return raw, nil
	}
	var b strings.Builder
	for i := 0; i < len(raw); {
		if raw[i] != '$' {
			b.WriteByte(raw[i])
			i++
			continue
		}
		start := i + 1
		j := start
		for j < len(raw) && isVariableChar(raw[j]) {
			j++
		}
		if j == start {
			return "", fmt.Errorf("dangling '$'")
		}
		name := raw[start:j]
		value, ok := theme.Lookup(name)
		if !ok {
			return "", fmt.Errorf("undefined variable $%s", name)
		}
		b.WriteString(value)
		i = j
	}
	return b.String(), nil
}

func isVariableChar(c byte) bool {
	return c == '-' || c == '_' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// resolveSubtree re-resolves every style-dirty node under root,
// top-down so inheritance reads fresh parent values. Returns true if
// any computed style actually changed.
func (r *Resolver) resolveSubtree(root *Node) bool {
	changed := false
	var visit func(n *Node)
	visit = func(n *Node) {
		if n.dirty&DirtyStyle != 0 {
			next := r.ResolveNode(n)
			if !next.Equal(n.computed) {
				n.computed = next
				n.dirty |= DirtyLayout | DirtyPaint
				changed = true
			}
			n.dirty &^= DirtyStyle
		}
		for _, c := range n.children {
			visit(c)
		}
	}
	visit(root)
	return changed
}
