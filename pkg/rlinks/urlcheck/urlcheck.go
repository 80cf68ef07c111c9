// Package urlcheck decides whether a string is an absolute URL worth
// shortening.
package urlcheck

import (
	"net/netip"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var allowedSchemes = map[string]bool{
	"http":  true,
	"https": true,
	"ftp":   true,
}

var (
	// label: alphanumerics (or non-ASCII), hyphens only inside
	labelRe = regexp.MustCompile(`^[a-z0-9\x{00a1}-\x{ffff}]+(-+[a-z0-9\x{00a1}-\x{ffff}]+)*$`)
	tldRe   = regexp.MustCompile(`^[a-z\x{00a1}-\x{ffff}]{2,}$`)
	ipv4Re  = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){3}$`)
)

// IsValid reports whether candidate is an absolute http(s) or ftp URL whose
// host is a domain name or a public IPv4 address. Loopback, private and
// link-local addresses are rejected, as is anything without a scheme.
func IsValid(candidate string) bool {
	if candidate == "" || strings.ContainsAny(candidate, " \t\r\n") {
		return false
	}

	u, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	if !allowedSchemes[strings.ToLower(u.Scheme)] {
		return false
	}
	// "http:example.com" parses with an opaque part and no host
	if u.Opaque != "" || u.Host == "" {
		return false
	}

	if port := u.Port(); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil || n < 1 || n > 65535 {
			return false
		}
	} else if strings.HasSuffix(u.Host, ":") {
		return false
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	if ipv4Re.MatchString(host) {
		return isPublicIPv4(host)
	}
	return isDomainName(host)
}

func isPublicIPv4(host string) bool {
	addr, err := netip.ParseAddr(host)
	if err != nil || !addr.Is4() {
		return false
	}
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() ||
		addr.IsUnspecified() || addr.IsMulticast() {
		return false
	}
	octets := addr.As4()
	// 0.0.0.0/8, class E and broadcast
	if octets[0] == 0 || octets[0] >= 224 {
		return false
	}
	return true
}

func isDomainName(host string) bool {
	host = strings.TrimSuffix(host, ".")
	if len(host) > 253 {
		return false
	}
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return false
	}
	for _, l := range labels[:len(labels)-1] {
		if len(l) == 0 || len(l) > 63 || !labelRe.MatchString(l) {
			return false
		}
	}
	return tldRe.MatchString(labels[len(labels)-1])
}
