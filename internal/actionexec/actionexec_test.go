package actionexec

import (
	"context"
	"errors"
	"testing"

	"github.com/retio-ai/pagemap/internal/dialogs"
	"github.com/retio-ai/pagemap/internal/domdiff"
	"github.com/retio-ai/pagemap/internal/pagemodel"
)

type fakeSession struct {
	url        string
	navigateTo string
	clickErr   error
	dialogs    []dialogs.Record
	before     domdiff.Fingerprint
	after      domdiff.Fingerprint
	haveFP     bool
}

func (f *fakeSession) Click(ctx context.Context, locator string) error {
	if f.navigateTo != "" {
		f.url = f.navigateTo
	}
	return f.clickErr
}
func (f *fakeSession) Fill(ctx context.Context, locator, value string) error         { return nil }
func (f *fakeSession) SelectOption(ctx context.Context, locator, value string) error { return nil }
func (f *fakeSession) PressKey(ctx context.Context, key string) error                { return nil }
func (f *fakeSession) Settle(ctx context.Context)                                    {}
func (f *fakeSession) CurrentURL() string                                           { return f.url }
func (f *fakeSession) DrainDialogs() []dialogs.Record                               { return f.dialogs }
func (f *fakeSession) Fingerprint(ctx context.Context) (domdiff.Fingerprint, bool) {
	if !f.haveFP {
		return domdiff.Fingerprint{}, false
	}
	if f.url == f.navigateTo && f.navigateTo != "" {
		return f.after, true
	}
	return f.before, true
}

func pmWithOneButton() *pagemodel.PageMap {
	return &pagemodel.PageMap{
		Interactables: []pagemodel.Interactable{
			{Ref: 1, Role: "button", Name: "Submit", Affordance: pagemodel.AffordanceClick},
		},
	}
}

func TestExecuteRejectsInvalidAction(t *testing.T) {
	sess := &fakeSession{url: "https://example.com"}
	_, err := Execute(context.Background(), sess, pmWithOneButton(), 1, "double_click", "")
	if err == nil {
		t.Fatal("expected error for unknown action")
	}
}

func TestExecuteRejectsOutOfRangeRef(t *testing.T) {
	sess := &fakeSession{url: "https://example.com"}
	_, err := Execute(context.Background(), sess, pmWithOneButton(), 5, "click", "")
	if err == nil {
		t.Fatal("expected error for out-of-range ref")
	}
}

func TestExecuteRejectsOversizedTypeValue(t *testing.T) {
	sess := &fakeSession{url: "https://example.com"}
	big := make([]byte, MaxTypeValueLength+1)
	for i := range big {
		big[i] = 'a'
	}
	_, err := Execute(context.Background(), sess, pmWithOneButton(), 1, "type", string(big))
	if err == nil {
		t.Fatal("expected error for oversized type value")
	}
}

func TestExecuteRejectsDeniedKeyCombo(t *testing.T) {
	sess := &fakeSession{url: "https://example.com"}
	_, err := Execute(context.Background(), sess, pmWithOneButton(), 1, "press_key", "Control+w")
	if err == nil {
		t.Fatal("expected Control+w to be rejected")
	}
}

func TestExecutePropagatesClickFailure(t *testing.T) {
	sess := &fakeSession{url: "https://example.com", clickErr: errors.New("element detached")}
	_, err := Execute(context.Background(), sess, pmWithOneButton(), 1, "click", "")
	if err == nil {
		t.Fatal("expected click failure to propagate")
	}
}

func TestExecuteDetectsNavigation(t *testing.T) {
	sess := &fakeSession{url: "https://example.com", navigateTo: "https://example.com/next"}
	res, err := Execute(context.Background(), sess, pmWithOneButton(), 1, "click", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Change != domdiff.SeverityNone && res.Change != "navigation" {
		t.Fatalf("unexpected change: %v", res.Change)
	}
	if string(res.Change) != "navigation" {
		t.Fatalf("expected navigation, got %v", res.Change)
	}
	if !res.RefsExpired {
		t.Fatal("expected refs_expired true after navigation")
	}
}

func TestExecuteReportsNoChangeWithoutFingerprints(t *testing.T) {
	sess := &fakeSession{url: "https://example.com"}
	res, err := Execute(context.Background(), sess, pmWithOneButton(), 1, "click", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Change != domdiff.SeverityNone {
		t.Fatalf("expected none, got %v", res.Change)
	}
	if res.RefsExpired {
		t.Fatal("did not expect refs_expired without navigation")
	}
}

func TestExecuteDrainsDialogs(t *testing.T) {
	sess := &fakeSession{
		url:     "https://example.com",
		dialogs: []dialogs.Record{{Type: dialogs.KindAlert, Message: "hi", Dismissed: false}},
	}
	res, err := Execute(context.Background(), sess, pmWithOneButton(), 1, "click", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Dialogs) != 1 || res.Dialogs[0].Action() != "accepted" {
		t.Fatalf("expected one accepted dialog, got %+v", res.Dialogs)
	}
}

func TestValidateKeyAllowsWhitelisted(t *testing.T) {
	if err := ValidateKey("Enter"); err != nil {
		t.Fatalf("Enter should be allowed: %v", err)
	}
	if err := ValidateKey("Control+c"); err != nil {
		t.Fatalf("Control+c should be allowed: %v", err)
	}
}

func TestValidateKeyRejectsUnknown(t *testing.T) {
	if err := ValidateKey("Control+Alt+Delete"); err == nil {
		t.Fatal("expected unknown combo to be rejected")
	}
}

func TestLocatePrefersRoleName(t *testing.T) {
	ia := pagemodel.Interactable{Role: "button", Name: "Submit", Selector: "#submit"}
	loc := Locate(ia)
	if loc != `role=button[name="Submit"]` {
		t.Fatalf("unexpected locator: %s", loc)
	}
}

func TestLocateFallsBackToSelector(t *testing.T) {
	ia := pagemodel.Interactable{Role: "button", Selector: "#submit"}
	if got := Locate(ia); got != "#submit" {
		t.Fatalf("expected selector fallback, got %s", got)
	}
}
