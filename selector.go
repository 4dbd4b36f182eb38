package textual

import (
	"fmt"
	"strings"
)

// PseudoState is a bitset of interaction states a selector can require.
type PseudoState uint8

const (
	StateHover PseudoState = 1 << iota
	StateFocus
	StateDisabled
)

// pseudoByName maps selector pseudo-class names to states.
var pseudoByName = map[string]PseudoState{
	"hover":    StateHover,
	"focus":    StateFocus,
	"disabled": StateDisabled,
}

// SimpleSelector is one step of a selector chain: type + id + classes +
// pseudo-state predicates, all of which must hold on a single node.
type SimpleSelector struct {
	Type    string // node type name, "" or "*" matches any
	ID      string
	Classes []string
	States  PseudoState
}

// matches tests a simple selector against one node.
func (s SimpleSelector) matches(n *Node) bool {
	if s.Type != "" && s.Type != "*" && s.Type != n.TypeName() {
		return false
	}
	if s.ID != "" && s.ID != n.ID() {
		return false
	}
	for _, class := range s.Classes {
		if !n.HasClass(class) {
			return false
		}
	}
	if s.States != 0 && n.States()&s.States != s.States {
		return false
	}
	return true
}

// Combinator relates a selector step to the step on its left.
type Combinator uint8

const (
	CombDescendant Combinator = iota // whitespace
	CombChild                        // ">"
)

type selectorStep struct {
	simple SimpleSelector
	comb   Combinator // relation to the previous (left) step
}

// Selector is a parsed chain of simple selectors joined by descendant or
// child combinators, matched right-to-left against a node's ancestry.
type Selector struct {
	steps []selectorStep
	raw   string
}

// String returns the source text of the selector.
func (sel Selector) String() string { return sel.raw }

// Specificity is a selector's matching strength: id count, class+pseudo
// count, type count, compared lexicographically.
type Specificity struct {
	IDs     int
	Classes int
	Types   int
}

// Compare returns -1, 0 or 1 ordering two specificities.
func (s Specificity) Compare(o Specificity) int {
	switch {
	case s.IDs != o.IDs:
		return sign(s.IDs - o.IDs)
	case s.Classes != o.Classes:
		return sign(s.Classes - o.Classes)
	default:
		return sign(s.Types - o.Types)
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

// Specificity computes the selector's specificity tuple.
func (sel Selector) Specificity() Specificity {
	var sp Specificity
	for _, step := range sel.steps {
		if step.simple.ID != "" {
			sp.IDs++
		}
		sp.Classes += len(step.simple.Classes)
		sp.Classes += bitsSet(step.simple.States)
		if t := step.simple.Type; t != "" && t != "*" {
			sp.Types++
		}
	}
	return sp
}

func bitsSet(s PseudoState) int {
	n := 0
	for ; s != 0; s &= s - 1 {
		n++
	}
	return n
}

// ReferencesState reports whether any step of the selector carries a
// pseudo-state predicate. Used to scope re-resolution on state change.
func (sel Selector) ReferencesState() bool {
	for _, step := range sel.steps {
		if step.simple.States != 0 {
			return true
		}
	}
	return false
}

// ParseSelector parses "Type#id.class:pseudo" chains joined by
// whitespace (descendant) or ">" (child).
func ParseSelector(input string) (Selector, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Selector{}, fmt.Errorf("empty selector")
	}

	// Normalize ">" so it always splits into its own token.
	spaced := strings.ReplaceAll(raw, ">", " > ")
	tokens := strings.Fields(spaced)

	var steps []selectorStep
	comb := CombDescendant
	pendingChild := false
	for _, tok := range tokens {
		if tok == ">" {
			if len(steps) == 0 || pendingChild {
				return Selector{}, fmt.Errorf("selector %q: misplaced '>'", raw)
			}
			pendingChild = true
			continue
		}
		simple, err := parseSimpleSelector(tok)
		if err != nil {
			return Selector{}, fmt.Errorf("selector %q: %w", raw, err)
		}
		comb = CombDescendant
		if pendingChild {
			comb = CombChild
			pendingChild = false
		}
		steps = append(steps, selectorStep{simple: simple, comb: comb})
	}
	if pendingChild {
		return Selector{}, fmt.Errorf("selector %q: trailing '>'", raw)
	}
	if len(steps) == 0 {
		return Selector{}, fmt.Errorf("empty selector")
	}
	return Selector{steps: steps, raw: raw}, nil
}

// parseSimpleSelector parses one "Type#id.class:pseudo" token.
func parseSimpleSelector(tok string) (SimpleSelector, error) {
	var s SimpleSelector
	i := 0
	// Leading type name runs until the first #, . or :
	for i < len(tok) && tok[i] != '#' && tok[i] != '.' && tok[i] != ':' {
		i++
	}
	s.Type = tok[:i]

	for i < len(tok) {
		marker := tok[i]
		i++
		start := i
		for i < len(tok) && tok[i] != '#' && tok[i] != '.' && tok[i] != ':' {
			i++
		}
		part := tok[start:i]
		if part == "" {
			return s, fmt.Errorf("dangling %q", string(marker))
		}
		switch marker {
		case '#':
			if s.ID != "" {
				return s, fmt.Errorf("multiple ids")
			}
			s.ID = part
		case '.':
			s.Classes = append(s.Classes, part)
		case ':':
			state, ok := pseudoByName[strings.ToLower(part)]
			if !ok {
				return s, fmt.Errorf("unknown pseudo-class %q", part)
			}
			s.States |= state
		}
	}
	if s.Type == "" && s.ID == "" && len(s.Classes) == 0 && s.States == 0 {
		return s, fmt.Errorf("empty selector step")
	}
	return s, nil
}

// Matches tests the full selector chain against a candidate node,
// walking from the rightmost step backward over the node's ancestors.
func (sel Selector) Matches(n *Node) bool {
	if len(sel.steps) == 0 || n == nil {
		return false
	}
	last := len(sel.steps) - 1
	if !sel.steps[last].simple.matches(n) {
		return false
	}
	return matchAncestors(sel.steps[:last], sel.stepComb(last), n.Parent())
}

func (sel Selector) stepComb(i int) Combinator {
	return sel.steps[i].comb
}

// matchAncestors matches the remaining (leftward) steps against the
// ancestor chain starting at candidate. rel is the combinator between
// the already-matched step and the steps slice's last element.
func matchAncestors(steps []selectorStep, rel Combinator, candidate *Node) bool {
	if len(steps) == 0 {
		return true
	}
	last := len(steps) - 1
	step := steps[last]

	if rel == CombChild {
		if candidate == nil || !step.simple.matches(candidate) {
			return false
		}
		return matchAncestors(steps[:last], step.comb, candidate.Parent())
	}

	// Descendant: any ancestor may satisfy the step; backtrack on failure.
	for anc := candidate; anc != nil; anc = anc.Parent() {
		if step.simple.matches(anc) {
			if matchAncestors(steps[:last], step.comb, anc.Parent()) {
				return true
			}
		}
	}
	return false
}
