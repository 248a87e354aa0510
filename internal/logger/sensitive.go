package logger

import (
	"regexp"
)

// SensitiveDataPatterns matches credentials and payloads that must never reach a log file
var SensitiveDataPatterns = []*regexp.Regexp{
	// Bearer tokens in Authorization headers
	regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9-._~+/]+=*)`),

	// Model provider secret keys
	regexp.MustCompile(`()(sk-[A-Za-z0-9_-]{8,})`),

	// API keys, tokens and secrets in key=value form
	regexp.MustCompile(`(?i)((api|access|auth|token|secret|key|passw(or)?d)[0-9a-z\-_\.]*\s*[:=]\s*)([^;,\s"]{5,})`),

	// MySQL DSN passwords (user:password@tcp(...))
	regexp.MustCompile(`([A-Za-z0-9_]+:)([^@\s/]+)(@tcp\()`),
}

// inlineMediaPattern matches base64 data URLs and the raw audio payload field
var inlineMediaPattern = regexp.MustCompile(`(data:[a-z]+/[a-z0-9.+-]+;base64,|"data":\s*")[A-Za-z0-9+/=]{16,}`)

// RedactSensitiveData replaces credentials with "[REDACTED]" and drops inline media payloads
func RedactSensitiveData(input string) string {
	if input == "" {
		return input
	}

	for i, pattern := range SensitiveDataPatterns {
		if i == len(SensitiveDataPatterns)-1 {
			input = pattern.ReplaceAllString(input, "$1[REDACTED]$3")
			continue
		}
		input = pattern.ReplaceAllString(input, "$1[REDACTED]")
	}

	return inlineMediaPattern.ReplaceAllString(input, "$1[OMITTED]")
}

// Truncate shortens s to at most n bytes, appending an ellipsis marker
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}
