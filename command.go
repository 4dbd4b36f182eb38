package textual

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

// Command palette backend: pluggable providers yield (title, action)
// pairs which are fuzzy-matched against the user's query with fzf's
// scoring engine.
//
// Query syntax, per fzf:
//   "foo"   fuzzy subsequence     "'foo"  exact substring
//   "^foo"  prefix                "foo$"  suffix
//   "!foo"  negation              "a b"   AND
//   "a | b" OR

func init() {
	algo.Init("default")
}

var matchSlab = util.MakeSlab(100*1024, 2048)

// Command is one palette entry.
type Command struct {
	Title  string
	Action string
	Help   string
	Score  int
}

// CommandProvider contributes entries to the palette. Providers run
// independently; one failing does not hide the others' results.
type CommandProvider interface {
	Name() string
	Commands(app *App) ([]Command, error)
}

// ProviderError records one provider's failure during a search.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("command provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// SearchCommands queries every provider, scores the results and
// returns them best first. Provider failures, including panics, come
// back alongside the surviving results.
func SearchCommands(app *App, query string, providers []CommandProvider) ([]Command, []error) {
	q := parseMatchQuery(query)

	var out []Command
	var errs []error
	for _, p := range providers {
		cmds, err := runProvider(app, p)
		if err != nil {
			errs = append(errs, &ProviderError{Provider: p.Name(), Err: err})
			continue
		}
		for _, c := range cmds {
			score, ok := q.score(c.Title)
			if !ok {
				continue
			}
			c.Score = score
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, errs
}

func runProvider(app *App, p CommandProvider) (cmds []Command, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return p.Commands(app)
}

// bindingCommands is the built-in provider exposing the focused node's
// shown key bindings as palette entries.
type bindingCommands struct{}

func (bindingCommands) Name() string { return "bindings" }

func (bindingCommands) Commands(app *App) ([]Command, error) {
	n := app.Focused()
	if n == nil {
		n = app.Root()
	}
	if n == nil {
		return nil, nil
	}
	var out []Command
	for _, b := range n.ActiveBindings() {
		title := b.Description
		if title == "" {
			title = b.Action
		}
		out = append(out, Command{Title: title, Action: b.Action, Help: b.Keys})
	}
	return out, nil
}

// matchQuery is a parsed palette query: OR groups of AND terms.
type matchQuery struct {
	groups [][]matchTerm
}

type matchKind int

const (
	matchFuzzy matchKind = iota
	matchExact
	matchPrefix
	matchSuffix
)

type matchTerm struct {
	runes     []rune
	kind      matchKind
	negated   bool
	caseMatch bool
}

func parseMatchQuery(raw string) matchQuery {
	var q matchQuery
	for _, part := range strings.Split(raw, " | ") {
		var group []matchTerm
		for _, tok := range strings.Fields(part) {
			group = append(group, parseMatchTerm(tok))
		}
		if len(group) > 0 {
			q.groups = append(q.groups, group)
		}
	}
	return q
}

func parseMatchTerm(tok string) matchTerm {
	t := matchTerm{kind: matchFuzzy}
	if len(tok) > 1 && tok[0] == '!' {
		t.negated = true
		tok = tok[1:]
	}
	switch {
	case len(tok) > 1 && tok[0] == '\'':
		t.kind = matchExact
		tok = tok[1:]
	case len(tok) > 1 && tok[0] == '^':
		t.kind = matchPrefix
		tok = tok[1:]
	case len(tok) > 1 && tok[len(tok)-1] == '$':
		t.kind = matchSuffix
		tok = tok[:len(tok)-1]
	}
	t.caseMatch = strings.ContainsFunc(tok, unicode.IsUpper)
	if !t.caseMatch {
		tok = strings.ToLower(tok)
	}
	t.runes = []rune(tok)
	return t
}

// score scores a candidate; an empty query matches everything at 0.
func (q *matchQuery) score(candidate string) (int, bool) {
	if len(q.groups) == 0 {
		return 0, true
	}
	best, matched := -1, false
	for _, group := range q.groups {
		total, ok := 0, true
		for i := range group {
			s, termOK := group[i].score(candidate)
			if !termOK {
				ok = false
				break
			}
			total += s
		}
		if ok {
			matched = true
			if total > best {
				best = total
			}
		}
	}
	return best, matched
}

func (t *matchTerm) score(candidate string) (int, bool) {
	chars := util.ToChars([]byte(candidate))

	fn := algo.FuzzyMatchV2
	switch t.kind {
	case matchExact:
		fn = algo.ExactMatchNaive
	case matchPrefix:
		fn = algo.PrefixMatch
	case matchSuffix:
		fn = algo.SuffixMatch
	}

	result, _ := fn(t.caseMatch, false, true, &chars, t.runes, false, matchSlab)
	hit := result.Start >= 0
	if t.negated {
		return 0, !hit
	}
	if !hit {
		return 0, false
	}
	return result.Score, true
}
