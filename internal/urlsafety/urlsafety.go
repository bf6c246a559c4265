// Package urlsafety implements SSRF-safe URL validation: scheme/hostname
// gating, multi-representation IP normalization (dotted decimal, octal,
// single-integer decimal/hex, IPv4-mapped IPv6), and a DNS-resolved
// post-check. No teacher file covers this (the teacher never navigates a
// browser); the validator is hand-written stdlib net/net-url code, following
// the pure-function, ordered-rule style the teacher uses for its other
// validators (internal/security/security.go's bodyCredentialChecks).
package urlsafety

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// blockedHostnames are rejected regardless of allow_local.
var blockedHostnames = map[string]bool{
	"localhost":                true,
	"metadata.google.internal": true,
	"metadata":                 true,
	"instance-data":            true,
}

var privateCIDRs = mustParseCIDRs(
	"0.0.0.0/8",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"100.64.0.0/10",
	"127.0.0.0/8",
)

var metadataCIDRs = mustParseCIDRs(
	"169.254.0.0/16",
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	out := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(fmt.Sprintf("urlsafety: invalid CIDR literal %q: %v", c, err))
		}
		out = append(out, n)
	}
	return out
}

// ipClass is the classification of a resolved/normalized IP address.
type ipClass int

const (
	classOK ipClass = iota
	classMetadata
	classPrivate
)

func classify(ip net.IP) ipClass {
	if ip == nil {
		return classOK
	}
	if ip.IsLinkLocalUnicast() {
		return classMetadata
	}
	if v4 := ip.To4(); v4 != nil {
		for _, n := range metadataCIDRs {
			if n.Contains(v4) {
				return classMetadata
			}
		}
		for _, n := range privateCIDRs {
			if n.Contains(v4) {
				return classPrivate
			}
		}
		return classOK
	}
	if ip.IsLoopback() {
		return classPrivate
	}
	return classOK
}

// parseFlexibleIP recognizes the IP representations an SSRF attacker might
// use to smuggle a disallowed address past a naive string comparison:
// dotted decimal, dotted-with-octal-octets, single decimal integer, single
// hex integer, and IPv4-mapped IPv6. Returns (ip, true) if host is any kind
// of IP literal, (nil, false) if it is an ordinary hostname.
func parseFlexibleIP(host string) (net.IP, bool) {
	if ip := net.ParseIP(host); ip != nil {
		return ip, true
	}
	if ip, ok := parseOctalDotted(host); ok {
		return ip, true
	}
	if ip, ok := parseSingleInteger(host); ok {
		return ip, true
	}
	return nil, false
}

// parseOctalDotted parses a dotted-quad where at least one octet carries a
// leading zero, in which case that octet (and only that octet) is read in
// base 8. Pure arithmetic, no DNS. Any malformed octet means the string is
// not an octal IP at all, and the caller falls through to treating it as an
// ordinary hostname.
func parseOctalDotted(host string) (net.IP, bool) {
	parts := strings.Split(host, ".")
	if len(parts) != 4 {
		return nil, false
	}
	var out [4]byte
	sawLeadingZero := false
	for i, p := range parts {
		if p == "" {
			return nil, false
		}
		for _, c := range p {
			if c < '0' || c > '9' {
				return nil, false
			}
		}
		base := 10
		if len(p) > 1 && p[0] == '0' {
			base = 8
			sawLeadingZero = true
			for _, c := range p {
				if c < '0' || c > '7' {
					return nil, false
				}
			}
		}
		v, err := strconv.ParseUint(p, base, 16)
		if err != nil || v > 255 {
			return nil, false
		}
		out[i] = byte(v)
	}
	if !sawLeadingZero {
		// Plain dotted decimal: net.ParseIP already handles this case, and
		// returning false here keeps this function's concern to octal only.
		return nil, false
	}
	return net.IPv4(out[0], out[1], out[2], out[3]), true
}

// parseSingleInteger parses a single decimal or 0x-prefixed hex integer as a
// 32-bit IPv4 address in network byte order, e.g. "2130706433" or
// "0x7f000001" both mean 127.0.0.1.
func parseSingleInteger(host string) (net.IP, bool) {
	var v uint64
	var err error
	switch {
	case strings.HasPrefix(host, "0x") || strings.HasPrefix(host, "0X"):
		if len(host) <= 2 {
			return nil, false
		}
		v, err = strconv.ParseUint(host[2:], 16, 32)
	case host != "" && isAllDigits(host):
		v, err = strconv.ParseUint(host, 10, 32)
	default:
		return nil, false
	}
	if err != nil {
		return nil, false
	}
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	return net.IPv4(b[0], b[1], b[2], b[3]), true
}

func isAllDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// ValidateURL returns nil if raw is safe to navigate to, or a short
// human-readable rejection reason. allowLocal, when true, permits private
// and loopback addresses but never cloud-metadata addresses.
func ValidateURL(raw string, allowLocal bool) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL")
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("missing hostname")
	}
	hostLower := strings.ToLower(host)
	if blockedHostnames[hostLower] || strings.HasSuffix(hostLower, ".local") {
		return fmt.Errorf("blocked hostname")
	}

	ip, isIP := parseFlexibleIP(hostLower)
	if !isIP {
		return nil
	}
	return classifyErr(ip, allowLocal)
}

func classifyErr(ip net.IP, allowLocal bool) error {
	switch classify(ip) {
	case classMetadata:
		return fmt.Errorf("cloud metadata address is never allowed")
	case classPrivate:
		if allowLocal {
			return nil
		}
		return fmt.Errorf("private or loopback address")
	default:
		return nil
	}
}

// ValidateURLWithDNS additionally resolves host via DNS and classifies every
// returned address; the URL is rejected if any of them is disallowed.
func ValidateURLWithDNS(ctx context.Context, raw string, allowLocal bool) error {
	if err := ValidateURL(raw, allowLocal); err != nil {
		return err
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL")
	}
	host := u.Hostname()
	if _, isIP := parseFlexibleIP(strings.ToLower(host)); isIP {
		// Already classified by ValidateURL; no DNS needed for literal IPs.
		return nil
	}
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		// DNS failure is not itself an SSRF signal; let navigation fail naturally.
		return nil
	}
	for _, a := range addrs {
		if err := classifyErr(a.IP, allowLocal); err != nil {
			return err
		}
	}
	return nil
}
