package textual

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownAction is returned when no node on the dispatch path and
// no app builtin implements a named action.
var ErrUnknownAction = errors.New("unknown action")

// ErrActionDisabled is returned when a CheckAction hook refuses to run
// an otherwise known action.
var ErrActionDisabled = errors.New("action disabled")

// ActionState is the tri-state answer of a CheckAction hook.
type ActionState int

const (
	// ActionEnabled runs and shows the action.
	ActionEnabled ActionState = iota
	// ActionDisabled shows the action greyed out and refuses to run it.
	ActionDisabled
	// ActionHidden hides the action; dispatch skips past the node.
	ActionHidden
)

// Action is a parsed action string.
type Action struct {
	Namespace string
	Name      string
	Args      []any
}

func (a Action) String() string {
	var b strings.Builder
	if a.Namespace != "" {
		b.WriteString(a.Namespace)
		b.WriteByte('.')
	}
	b.WriteString(a.Name)
	if len(a.Args) > 0 {
		b.WriteByte('(')
		for i, arg := range a.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%v", arg)
		}
		b.WriteByte(')')
	}
	return b.String()
}

// ParseAction parses "[namespace.]name(arg, ...)". Arguments are
// literals only: quoted strings, integers, floats, true/false.
func ParseAction(s string) (Action, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Action{}, errors.New("empty action")
	}

	var a Action
	head := s
	if open := strings.IndexByte(s, '('); open >= 0 {
		if !strings.HasSuffix(s, ")") {
			return Action{}, fmt.Errorf("action %q: missing closing parenthesis", s)
		}
		head = s[:open]
		args, err := parseActionArgs(s[open+1 : len(s)-1])
		if err != nil {
			return Action{}, fmt.Errorf("action %q: %w", s, err)
		}
		a.Args = args
	}

	if dot := strings.LastIndexByte(head, '.'); dot >= 0 {
		a.Namespace = head[:dot]
		a.Name = head[dot+1:]
	} else {
		a.Name = head
	}
	if a.Name == "" || strings.ContainsAny(a.Name, " \t") {
		return Action{}, fmt.Errorf("action %q: bad name", s)
	}
	return a, nil
}

// parseActionArgs splits a comma-separated literal list, honouring
// quotes.
func parseActionArgs(s string) ([]any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var args []any
	var cur strings.Builder
	var quote byte
	flush := func() error {
		lit, err := parseLiteral(strings.TrimSpace(cur.String()))
		if err != nil {
			return err
		}
		args = append(args, lit)
		cur.Reset()
		return nil
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			cur.WriteByte(c)
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
			cur.WriteByte(c)
		case c == ',':
			if err := flush(); err != nil {
				return nil, err
			}
		default:
			cur.WriteByte(c)
		}
	}
	if quote != 0 {
		return nil, errors.New("unterminated string literal")
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return args, nil
}

func parseLiteral(s string) (any, error) {
	if s == "" {
		return nil, errors.New("empty argument")
	}
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1], nil
		}
	}
	switch s {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, nil
	}
	return nil, fmt.Errorf("bad literal %q", s)
}

// RunAction parses and dispatches an action string starting at node n.
// Dispatch walks from n toward the root looking for a spec that
// implements the name; a namespace restricts the walk to nodes of that
// type, except "app" which goes straight to the app's builtins. Hidden
// actions are skipped as if absent; disabled ones stop dispatch.
func (n *Node) RunAction(actionStr string) error {
	a, err := ParseAction(actionStr)
	if err != nil {
		return err
	}
	return n.dispatchAction(a)
}

func (n *Node) dispatchAction(a Action) error {
	if a.Namespace != "app" {
		for t := n; t != nil; t = t.parent {
			if a.Namespace != "" && !strings.EqualFold(t.TypeName(), a.Namespace) {
				continue
			}
			fn, ok := t.spec.actions[a.Name]
			if !ok {
				continue
			}
			switch t.checkAction(a.Name, a.Args) {
			case ActionHidden:
				continue
			case ActionDisabled:
				return fmt.Errorf("%w: %s", ErrActionDisabled, a.Name)
			}
			return fn(t, a.Args)
		}
	}
	if n.app != nil && (a.Namespace == "" || a.Namespace == "app") {
		if err := n.app.runBuiltinAction(a); !errors.Is(err, ErrUnknownAction) {
			return err
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownAction, a.Name)
}

// checkAction consults the spec's CheckAction hook, defaulting to
// enabled.
func (n *Node) checkAction(name string, args []any) ActionState {
	if n.spec.check == nil {
		return ActionEnabled
	}
	return n.spec.check(n, name, args)
}
