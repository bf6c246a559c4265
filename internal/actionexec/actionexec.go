// Package actionexec implements execute_action (spec.md §4.11): validates
// ref/action/value against the fixed action vocabulary, resolves the
// target interactable to a live-page locator, performs the primitive,
// drains auto-handled dialogs, and classifies the resulting DOM change.
//
// Grounded on the teacher's cmd/dev-console/tools_interact_elements.go ref
// (there: "index") -> selector resolution plumbing, adapted to call a
// browser session directly instead of round-tripping through a paired
// extension.
package actionexec

import (
	"context"
	"fmt"
	"time"

	"github.com/retio-ai/pagemap/internal/dialogs"
	"github.com/retio-ai/pagemap/internal/domdiff"
	"github.com/retio-ai/pagemap/internal/pagemodel"
)

// Value length caps (spec.md §4.11).
const (
	MaxTypeValueLength   = 1000
	MaxSelectValueLength = 500
)

// ValidActions is the fixed action vocabulary; the AX detector's affordance
// set MUST be a subset of this (spec.md §4.7).
var ValidActions = map[string]bool{
	"click": true, "type": true, "select": true, "press_key": true,
}

// allowedKeys is the single-key whitelist for press_key.
var allowedKeys = map[string]bool{
	"Enter": true, "Tab": true, "Escape": true, "Backspace": true, "Delete": true,
	"Home": true, "End": true, "PageUp": true, "PageDown": true,
	"ArrowUp": true, "ArrowDown": true, "ArrowLeft": true, "ArrowRight": true,
	"Space": true,
	"F1": true, "F2": true, "F3": true, "F4": true, "F5": true, "F6": true,
	"F7": true, "F8": true, "F9": true, "F10": true, "F11": true, "F12": true,
}

// allowedCombos is the fixed whitelist of modifier+key combinations.
var allowedCombos = map[string]bool{
	"Shift+Tab": true, "Control+c": true, "Control+v": true, "Control+a": true,
	"Meta+c": true, "Meta+v": true, "Meta+a": true,
}

// deniedCombos are explicitly never allowed, even though their constituent
// modifier/key both appear elsewhere in the whitelist (spec.md §4.11): they
// close tabs or quit the application.
var deniedCombos = map[string]bool{
	"Control+w": true, "Control+q": true, "Alt+F4": true, "Meta+q": true,
}

// ValidateKey reports whether key is permitted for press_key.
func ValidateKey(key string) error {
	if deniedCombos[key] {
		return fmt.Errorf("key combination %q is never permitted", key)
	}
	if allowedKeys[key] || allowedCombos[key] {
		return nil
	}
	return fmt.Errorf("key %q is not in the permitted set", key)
}

// Session is the browser capability execute_action needs. One production
// implementation wraps *browserpool.Session; tests supply a fake.
type Session interface {
	Click(ctx context.Context, locator string) error
	Fill(ctx context.Context, locator, value string) error
	SelectOption(ctx context.Context, locator, value string) error
	PressKey(ctx context.Context, key string) error
	Settle(ctx context.Context) // short wait for a pending new page/navigation to surface
	CurrentURL() string
	DrainDialogs() []dialogs.Record
	Fingerprint(ctx context.Context) (domdiff.Fingerprint, bool) // ok=false on capture failure
}

// Result is execute_action's JSON response body (spec.md §4.11 step 6).
type Result struct {
	Description string           `json:"description"`
	CurrentURL  string           `json:"current_url"`
	Change      domdiff.Severity `json:"change"`
	RefsExpired bool             `json:"refs_expired,omitempty"`
	Dialogs     []dialogs.Record `json:"dialogs,omitempty"`
}

// Locate builds a locator string for an interactable: role+accessible-name
// when the element has a name (tier 1), otherwise its CSS selector when one
// was recorded, otherwise a bare role locator.
func Locate(ia pagemodel.Interactable) string {
	if ia.Name != "" {
		return fmt.Sprintf("role=%s[name=%q]", ia.Role, ia.Name)
	}
	if ia.Selector != "" {
		return ia.Selector
	}
	return fmt.Sprintf("role=%s", ia.Role)
}

// Execute validates and performs one action against pm's ref-th
// interactable. pm must be the session's current active PageMap; callers
// are responsible for the "no active PageMap" error (§4.11 step 0) before
// calling Execute.
func Execute(ctx context.Context, sess Session, pm *pagemodel.PageMap, ref int, action, value string) (Result, error) {
	if !ValidActions[action] {
		return Result{}, fmt.Errorf("invalid action %q: must be one of click, type, select, press_key", action)
	}
	if ref < 1 || ref > len(pm.Interactables) {
		return Result{}, fmt.Errorf("invalid ref %d: valid refs are 1..%d", ref, len(pm.Interactables))
	}
	ia := pm.Interactables[ref-1]

	switch action {
	case "type":
		if value == "" {
			return Result{}, fmt.Errorf("type requires a value")
		}
		if len(value) > MaxTypeValueLength {
			return Result{}, fmt.Errorf("type value exceeds %d characters", MaxTypeValueLength)
		}
	case "select":
		if value == "" {
			return Result{}, fmt.Errorf("select requires a value")
		}
		if len(value) > MaxSelectValueLength {
			return Result{}, fmt.Errorf("select value exceeds %d characters", MaxSelectValueLength)
		}
	case "press_key":
		if err := ValidateKey(value); err != nil {
			return Result{}, err
		}
	}

	locator := Locate(ia)
	urlBefore := sess.CurrentURL()
	before, haveBefore := sess.Fingerprint(ctx)

	var err error
	switch action {
	case "click":
		err = sess.Click(ctx, locator)
	case "type":
		err = sess.Fill(ctx, locator, value)
	case "select":
		err = sess.SelectOption(ctx, locator, value)
	case "press_key":
		err = sess.PressKey(ctx, value)
	}
	if err != nil {
		return Result{}, fmt.Errorf("action %s on ref %d failed: %w", action, ref, err)
	}

	sess.Settle(ctx)
	drained := sess.DrainDialogs()

	urlAfter := sess.CurrentURL()
	res := Result{
		Description: describeAction(action, ia, value),
		CurrentURL:  urlAfter,
		Dialogs:     drained,
	}

	if urlAfter != urlBefore {
		res.Change = "navigation"
		res.RefsExpired = true
		return res, nil
	}

	after, haveAfter := sess.Fingerprint(ctx)
	if haveBefore && haveAfter {
		res.Change, _ = domdiff.Compare(before, after)
	} else {
		res.Change = domdiff.SeverityNone
	}
	return res, nil
}

func describeAction(action string, ia pagemodel.Interactable, value string) string {
	name := ia.Name
	if name == "" {
		name = ia.Role
	}
	switch action {
	case "click":
		return fmt.Sprintf("clicked %q", name)
	case "type":
		return fmt.Sprintf("typed into %q", name)
	case "select":
		return fmt.Sprintf("selected %q in %q", value, name)
	case "press_key":
		return fmt.Sprintf("pressed %s", value)
	default:
		return action
	}
}

// defaultSettleWait is the short post-action pause for a pending new page to
// surface (spec.md §4.11 step 3), used by the production Session.
const defaultSettleWait = 150 * time.Millisecond

// DefaultSettleWait exposes the constant for the production Session adapter.
func DefaultSettleWait() time.Duration { return defaultSettleWait }
