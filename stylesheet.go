package textual

import (
	"fmt"
	"strings"
)

// StyleOrigin orders rule sources for cascade tie-breaking. Bundled
// default styles always lose ties against application styles, and
// per-node overrides outrank everything.
type StyleOrigin uint8

const (
	OriginBundled StyleOrigin = iota // engine / widget defaults
	OriginAuthor                     // application stylesheet
	OriginInline                     // synthetic per-node override rule
)

// Declaration is one "property: value" pair. The value is kept raw
// until variable substitution happens at resolve time.
type Declaration struct {
	Property string
	RawValue string
}

// StyleRule couples a selector with a declaration block.
type StyleRule struct {
	Selector     Selector
	Declarations []Declaration
	Origin       StyleOrigin
	SourceIndex  int

	specificity Specificity
}

// StyleError records a non-fatal stylesheet problem. Offending
// declarations are skipped; the rest of the sheet still applies.
type StyleError struct {
	Selector string
	Property string
	Message  string
}

func (e StyleError) String() string {
	if e.Property != "" {
		return fmt.Sprintf("%s { %s }: %s", e.Selector, e.Property, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Selector, e.Message)
}

// Stylesheet is an ordered collection of parsed rules from one or more
// sources, with accumulated non-fatal errors.
type Stylesheet struct {
	rules     []*StyleRule
	errors    []StyleError
	nextIndex int
}

// NewStylesheet returns an empty stylesheet.
func NewStylesheet() *Stylesheet {
	return &Stylesheet{}
}

// Rules returns the parsed rules in source order.
func (ss *Stylesheet) Rules() []*StyleRule {
	return ss.rules
}

// Errors returns the non-fatal problems found while parsing or
// resolving. The list persists until ClearErrors.
func (ss *Stylesheet) Errors() []StyleError {
	return ss.errors
}

// ClearErrors drops recorded errors.
func (ss *Stylesheet) ClearErrors() {
	ss.errors = nil
}

func (ss *Stylesheet) addError(selector, property, msg string) {
	ss.errors = append(ss.errors, StyleError{Selector: selector, Property: property, Message: msg})
}

// AddSource parses stylesheet text and appends its rules. Problems are
// recorded as errors and the offending declaration or rule is skipped;
// parsing never aborts the rest of the source.
func (ss *Stylesheet) AddSource(css string, origin StyleOrigin) {
	src := stripComments(css)

	pos := 0
	for pos < len(src) {
		open := strings.IndexByte(src[pos:], '{')
		if open < 0 {
			if strings.TrimSpace(src[pos:]) != "" {
				ss.addError(strings.TrimSpace(src[pos:]), "", "expected '{'")
			}
			break
		}
		open += pos
		selText := strings.TrimSpace(src[pos:open])

		closeIdx := strings.IndexByte(src[open:], '}')
		if closeIdx < 0 {
			ss.addError(selText, "", "unterminated rule block")
			break
		}
		closeIdx += open
		body := src[open+1 : closeIdx]
		pos = closeIdx + 1

		decls := ss.parseDeclarations(selText, body)
		if len(decls) == 0 {
			continue
		}

		// Comma-separated selector groups share the declaration block.
		for _, one := range strings.Split(selText, ",") {
			sel, err := ParseSelector(one)
			if err != nil {
				ss.addError(strings.TrimSpace(one), "", err.Error())
				continue
			}
			ss.rules = append(ss.rules, &StyleRule{
				Selector:     sel,
				Declarations: decls,
				Origin:       origin,
				SourceIndex:  ss.nextIndex,
				specificity:  sel.Specificity(),
			})
			ss.nextIndex++
		}
	}
}

// parseDeclarations splits a rule body into property/value pairs.
func (ss *Stylesheet) parseDeclarations(selText, body string) []Declaration {
	var decls []Declaration
	for _, stmt := range strings.Split(body, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		prop, value, ok := strings.Cut(stmt, ":")
		if !ok {
			ss.addError(selText, stmt, "expected 'property: value'")
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		value = strings.TrimSpace(value)
		if _, known := properties[prop]; !known {
			ss.addError(selText, prop, "unknown property")
			continue
		}
		if value == "" {
			ss.addError(selText, prop, "empty value")
			continue
		}
		decls = append(decls, Declaration{Property: prop, RawValue: value})
	}
	return decls
}

// stripComments removes /* ... */ comments.
func stripComments(s string) string {
	var b strings.Builder
	for {
		start := strings.Index(s, "/*")
		if start < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:start])
		end := strings.Index(s[start+2:], "*/")
		if end < 0 {
			return b.String()
		}
		// Keep a space so "a/*x*/b" doesn't fuse tokens.
		b.WriteByte(' ')
		s = s[start+2+end+2:]
	}
}
