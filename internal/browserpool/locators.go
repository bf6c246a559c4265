package browserpool

import (
	"fmt"
	"strings"

	"github.com/go-rod/rod/lib/input"
)

// parseRoleLocator extracts role and name out of a `role=ROLE[name="NAME"]`
// locator string (actionexec.Locate's output), and reports false for a
// locator that's just a raw CSS selector.
func parseRoleLocator(locator string) (role, name string, ok bool) {
	if !strings.HasPrefix(locator, "role=") {
		return "", "", false
	}
	rest := strings.TrimPrefix(locator, "role=")
	i := strings.Index(rest, "[")
	if i < 0 {
		return rest, "", true
	}
	role = rest[:i]
	inner := strings.TrimSuffix(rest[i+1:], "]")
	inner = strings.TrimPrefix(inner, `name="`)
	inner = strings.TrimSuffix(inner, `"`)
	return role, inner, true
}

// roleTags maps an AX role to the semantic HTML it's most often backed by,
// so a role-only locator still resolves even on pages that never set
// explicit role attributes.
var roleTags = map[string]string{
	"button":     "button",
	"link":       "a",
	"textbox":    "input, textarea",
	"searchbox":  `input[type="search"]`,
	"combobox":   "select",
	"listbox":    "select",
	"checkbox":   `input[type="checkbox"]`,
	"radio":      `input[type="radio"]`,
	"tab":        `[role="tab"]`,
	"menuitem":   `[role="menuitem"]`,
	"switch":     `[role="switch"]`,
	"slider":     `input[type="range"]`,
	"spinbutton": `input[type="number"]`,
}

// roleToTag builds a CSS selector matching either the explicit role
// attribute or the role's semantic-HTML fallback.
func roleToTag(role string) string {
	if tag, ok := roleTags[role]; ok {
		return fmt.Sprintf(`[role="%s"], %s`, role, tag)
	}
	return fmt.Sprintf(`[role="%s"]`, role)
}

// keyInputMap maps the press_key whitelist's single keys to rod's input
// package key codes.
var keyInputMap = map[string]input.Key{
	"Enter":      input.Enter,
	"Tab":        input.Tab,
	"Escape":     input.Escape,
	"Backspace":  input.Backspace,
	"Delete":     input.Delete,
	"Home":       input.Home,
	"End":        input.End,
	"PageUp":     input.PageUp,
	"PageDown":   input.PageDown,
	"ArrowUp":    input.ArrowUp,
	"ArrowDown":  input.ArrowDown,
	"ArrowLeft":  input.ArrowLeft,
	"ArrowRight": input.ArrowRight,
	"Space":      input.Space,
	"F1":         input.F1,
	"F2":         input.F2,
	"F3":         input.F3,
	"F4":         input.F4,
	"F5":         input.F5,
	"F6":         input.F6,
	"F7":         input.F7,
	"F8":         input.F8,
	"F9":         input.F9,
	"F10":        input.F10,
	"F11":        input.F11,
	"F12":        input.F12,
}

// comboModifierKeys maps a combo's modifier name to its input key, and
// comboBaseKeys its base key, so the whitelisted combos (actionexec's
// allowedCombos) resolve to a press/release pair rather than requiring a
// second lookup table.
var comboModifierKeys = map[string]input.Key{
	"Shift":   input.ShiftLeft,
	"Control": input.ControlLeft,
	"Meta":    input.MetaLeft,
	"Alt":     input.AltLeft,
}

var comboBaseKeys = map[string]input.Key{
	"c":   input.KeyC,
	"v":   input.KeyV,
	"a":   input.KeyA,
	"Tab": input.Tab,
}
