// Package redact scrubs secrets and personal data out of free-form text
// before it is logged or returned to a client.
package redact

import "regexp"

const Placeholder = "[REDACTED]"

var patterns = []*regexp.Regexp{
	regexp.MustCompile(`sk_(?:test|live)_[0-9a-zA-Z]{24,}`),
	regexp.MustCompile(`pk_(?:test|live)_[0-9a-zA-Z]{24,}`),
	regexp.MustCompile(`whsec_[0-9a-zA-Z]{16,}`),
	regexp.MustCompile(`Bearer\s+[A-Za-z0-9\-._~+/]+=*`),
	regexp.MustCompile(`(?i)password['"]?\s*[:=]\s*['"][^'"]*['"]`),
	regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`),
}

// String replaces every sensitive match in s with Placeholder.
func String(s string) string {
	for _, p := range patterns {
		s = p.ReplaceAllString(s, Placeholder)
	}
	return s
}

// Error is String applied to err.Error(); nil yields "".
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
