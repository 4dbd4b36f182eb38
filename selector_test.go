package textual

import "testing"

func TestParseSelector(t *testing.T) {
	t.Run("simple parts", func(t *testing.T) {
		sel, err := ParseSelector("Button#submit.primary.large:hover")
		if err != nil {
			t.Fatalf("ParseSelector: %v", err)
		}
		if len(sel.steps) != 1 {
			t.Fatalf("steps = %d, want 1", len(sel.steps))
		}
		s := sel.steps[0].simple
		if s.Type != "Button" {
			t.Errorf("Type = %q, want Button", s.Type)
		}
		if s.ID != "submit" {
			t.Errorf("ID = %q, want submit", s.ID)
		}
		if len(s.Classes) != 2 || s.Classes[0] != "primary" || s.Classes[1] != "large" {
			t.Errorf("Classes = %v, want [primary large]", s.Classes)
		}
		if s.States != StateHover {
			t.Errorf("States = %v, want hover", s.States)
		}
	})

	t.Run("combinators", func(t *testing.T) {
		sel, err := ParseSelector("Dialog > .row Button")
		if err != nil {
			t.Fatalf("ParseSelector: %v", err)
		}
		if len(sel.steps) != 3 {
			t.Fatalf("steps = %d, want 3", len(sel.steps))
		}
		if sel.steps[1].comb != CombChild {
			t.Errorf("step 1 combinator = %v, want child", sel.steps[1].comb)
		}
		if sel.steps[2].comb != CombDescendant {
			t.Errorf("step 2 combinator = %v, want descendant", sel.steps[2].comb)
		}
	})

	t.Run("child without surrounding spaces", func(t *testing.T) {
		sel, err := ParseSelector("Dialog>Button")
		if err != nil {
			t.Fatalf("ParseSelector: %v", err)
		}
		if len(sel.steps) != 2 || sel.steps[1].comb != CombChild {
			t.Errorf("got %d steps, comb %v", len(sel.steps), sel.steps[1].comb)
		}
	})

	t.Run("errors", func(t *testing.T) {
		bad := []string{
			"",
			"   ",
			"> Button",
			"Dialog >",
			"Button#",
			".",
			"Button:flashing",
			"Button#a#b",
		}
		for _, input := range bad {
			if _, err := ParseSelector(input); err == nil {
				t.Errorf("ParseSelector(%q) succeeded, want error", input)
			}
		}
	})
}

func TestSpecificity(t *testing.T) {
	tests := []struct {
		selector string
		want     Specificity
	}{
		{"Button", Specificity{Types: 1}},
		{"*", Specificity{}},
		{".primary", Specificity{Classes: 1}},
		{"#submit", Specificity{IDs: 1}},
		{"Button:hover:focus", Specificity{Types: 1, Classes: 2}},
		{"Dialog > .row Button#ok", Specificity{IDs: 1, Classes: 1, Types: 2}},
	}
	for _, tt := range tests {
		sel, err := ParseSelector(tt.selector)
		if err != nil {
			t.Fatalf("ParseSelector(%q): %v", tt.selector, err)
		}
		if got := sel.Specificity(); got != tt.want {
			t.Errorf("Specificity(%q) = %+v, want %+v", tt.selector, got, tt.want)
		}
	}

	t.Run("compare", func(t *testing.T) {
		id := Specificity{IDs: 1}
		classes := Specificity{Classes: 10, Types: 10}
		if id.Compare(classes) != 1 {
			t.Errorf("one id should outrank any number of classes")
		}
		if classes.Compare(classes) != 0 {
			t.Errorf("equal specificities should compare 0")
		}
	})
}

func TestSelectorMatches(t *testing.T) {
	app, root := newTestTree(t, 40, 12)
	dialog := NewNode(&NodeSpec{Type: "Dialog"}, WithID("settings"))
	row := NewNode(&NodeSpec{Type: "Container"}, WithClasses("row"))
	button := NewNode(&NodeSpec{Type: "Button"}, WithClasses("primary"))
	mustMount(t, root, dialog)
	mustMount(t, dialog, row)
	mustMount(t, row, button)
	app.Drain()

	tests := []struct {
		selector string
		node     *Node
		want     bool
	}{
		{"Button", button, true},
		{"*", button, true},
		{".primary", button, true},
		{".secondary", button, false},
		{"#settings", dialog, true},
		{"#settings", button, false},
		{"Dialog Button", button, true},
		{"Dialog > Button", button, false},
		{"Dialog > .row", row, true},
		{"Screen Dialog .row Button", button, true},
		{"Container > Button.primary", button, true},
		{"Sidebar Button", button, false},
	}
	for _, tt := range tests {
		sel, err := ParseSelector(tt.selector)
		if err != nil {
			t.Fatalf("ParseSelector(%q): %v", tt.selector, err)
		}
		if got := sel.Matches(tt.node); got != tt.want {
			t.Errorf("Matches(%q, %s) = %v, want %v", tt.selector, tt.node.TypeName(), got, tt.want)
		}
	}

	t.Run("pseudo state", func(t *testing.T) {
		sel, err := ParseSelector("Button:focus")
		if err != nil {
			t.Fatalf("ParseSelector: %v", err)
		}
		if sel.Matches(button) {
			t.Errorf("unfocused button should not match :focus")
		}
		button.SetState(StateFocus, true)
		if !sel.Matches(button) {
			t.Errorf("focused button should match :focus")
		}
		if !sel.ReferencesState() {
			t.Errorf("ReferencesState() = false, want true")
		}
	})
}
