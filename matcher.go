package throttle

import (
	"net/url"
	"strings"
)

// urlPattern matches request URLs by host + path.
//
// Supported forms:
//   - "api.stripe.com/*" matches the host and anything below it
//   - "api.openai.com/v1/chat/*" matches only chat endpoints
//   - "*.example.com/v*/users" where each * matches any run of characters
//   - "api.example.com/v1/specific" exact match
type urlPattern struct {
	glob   string
	prefix string // set for a trailing "/*"
}

func compilePattern(p string) urlPattern {
	glob := strings.TrimRight(p, "/")
	up := urlPattern{glob: glob}
	if strings.HasSuffix(p, "/*") {
		up.prefix = strings.TrimSuffix(p, "/*")
	}
	return up
}

func (p urlPattern) empty() bool { return p.glob == "" && p.prefix == "" }

func (p urlPattern) matchURL(u *url.URL) bool {
	if p.empty() {
		return false
	}
	return p.match(strings.TrimRight(u.Host+u.Path, "/"))
}

func (p urlPattern) match(hostPath string) bool {
	if p.glob == hostPath {
		return true
	}
	if p.prefix != "" {
		if hostPath == p.prefix || strings.HasPrefix(hostPath, p.prefix+"/") {
			return true
		}
		// "*.github.com/*" also covers the bare host.
		if wildcardMatch(p.prefix, hostPath) {
			return true
		}
	}
	return wildcardMatch(p.glob, hostPath)
}

// wildcardMatch reports whether s matches a pattern in which '*' stands for
// any (possibly empty) run of characters. It backtracks only to the most
// recent star, so it runs in O(len(pattern)*len(s)) at worst.
func wildcardMatch(pattern, s string) bool {
	pi, si := 0, 0
	star, mark := -1, 0
	for si < len(s) {
		switch {
		case pi < len(pattern) && pattern[pi] == '*':
			star, mark = pi, si
			pi++
		case pi < len(pattern) && pattern[pi] == s[si]:
			pi++
			si++
		case star >= 0:
			mark++
			pi, si = star+1, mark
		default:
			return false
		}
	}
	for pi < len(pattern) && pattern[pi] == '*' {
		pi++
	}
	return pi == len(pattern)
}
