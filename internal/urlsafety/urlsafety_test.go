package urlsafety

import "testing"

func TestValidateURLRejectsNonHTTPScheme(t *testing.T) {
	for _, raw := range []string{"ftp://example.com", "file:///etc/passwd", "gopher://example.com"} {
		if err := ValidateURL(raw, false); err == nil {
			t.Errorf("expected %q to be rejected", raw)
		}
	}
}

func TestValidateURLAcceptsOrdinaryHostname(t *testing.T) {
	if err := ValidateURL("https://example.com/path", false); err != nil {
		t.Fatalf("expected ordinary hostname to pass, got %v", err)
	}
}

func TestValidateURLRejectsBlockedHostnames(t *testing.T) {
	for _, raw := range []string{
		"http://localhost/",
		"http://metadata.google.internal/",
		"http://instance-data/",
		"http://foo.local/",
	} {
		if err := ValidateURL(raw, true); err == nil {
			t.Errorf("expected %q to be blocked even with allow_local", raw)
		}
	}
}

func TestValidateURLRejectsPrivateIPByDefault(t *testing.T) {
	for _, raw := range []string{
		"http://10.0.0.1/",
		"http://192.168.1.1/",
		"http://127.0.0.1/",
		"http://100.64.0.1/",
	} {
		if err := ValidateURL(raw, false); err == nil {
			t.Errorf("expected %q to be rejected without allow_local", raw)
		}
	}
}

func TestValidateURLAllowsPrivateIPWhenAllowLocal(t *testing.T) {
	if err := ValidateURL("http://192.168.1.1/", true); err != nil {
		t.Fatalf("expected private IP to pass with allow_local, got %v", err)
	}
}

func TestValidateURLAlwaysRejectsMetadataIP(t *testing.T) {
	if err := ValidateURL("http://169.254.169.254/latest/meta-data/", true); err == nil {
		t.Fatal("expected metadata address to be blocked even with allow_local")
	}
}

func TestValidateURLRejectsOctalDottedPrivateIP(t *testing.T) {
	// 0177.0.0.1 decodes octal-first-octet 0177 = 127, i.e. loopback.
	if err := ValidateURL("http://0177.0.0.1/", false); err == nil {
		t.Fatal("expected octal-encoded loopback IP to be rejected")
	}
}

func TestValidateURLRejectsSingleIntegerLoopback(t *testing.T) {
	// 2130706433 == 127.0.0.1 in decimal.
	if err := ValidateURL("http://2130706433/", false); err == nil {
		t.Fatal("expected decimal-integer loopback IP to be rejected")
	}
	// 0x7f000001 == 127.0.0.1 in hex.
	if err := ValidateURL("http://0x7f000001/", false); err == nil {
		t.Fatal("expected hex-integer loopback IP to be rejected")
	}
}

func TestValidateURLRejectsMissingHostname(t *testing.T) {
	if err := ValidateURL("https:///path", false); err == nil {
		t.Fatal("expected missing hostname to be rejected")
	}
}

func TestValidateURLRejectsMalformedURL(t *testing.T) {
	if err := ValidateURL("://not-a-url", false); err == nil {
		t.Fatal("expected malformed URL to be rejected")
	}
}
