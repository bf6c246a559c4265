package browserpool

import "testing"

func TestParseRoleLocator(t *testing.T) {
	role, name, ok := parseRoleLocator(`role=button[name="Submit"]`)
	if !ok || role != "button" || name != "Submit" {
		t.Fatalf("got role=%q name=%q ok=%v", role, name, ok)
	}
}

func TestParseRoleLocatorNoName(t *testing.T) {
	role, name, ok := parseRoleLocator("role=link")
	if !ok || role != "link" || name != "" {
		t.Fatalf("got role=%q name=%q ok=%v", role, name, ok)
	}
}

func TestParseRoleLocatorRejectsCSSSelector(t *testing.T) {
	_, _, ok := parseRoleLocator("#submit-button")
	if ok {
		t.Fatal("expected a raw CSS selector to not parse as a role locator")
	}
}

func TestRoleToTagFallsBackToRoleOnlySelector(t *testing.T) {
	got := roleToTag("unknown-role")
	if got != `[role="unknown-role"]` {
		t.Fatalf("unexpected selector: %s", got)
	}
}

func TestRoleToTagIncludesSemanticTag(t *testing.T) {
	got := roleToTag("button")
	if got != `[role="button"], button` {
		t.Fatalf("unexpected selector: %s", got)
	}
}

func TestSplitCombo(t *testing.T) {
	mod, base, ok := splitCombo("Control+c")
	if !ok || mod != "Control" || base != "c" {
		t.Fatalf("got mod=%q base=%q ok=%v", mod, base, ok)
	}
}

func TestSplitComboNoSeparator(t *testing.T) {
	_, _, ok := splitCombo("Enter")
	if ok {
		t.Fatal("expected a plain key to not split as a combo")
	}
}
