// Package mask strips PII/secrets from free text before it reaches a log
// line or an audit record (spec.md §7 "HTTP boundary masks secrets... before
// logging"; ported from original_source's error_handler.py::_mask_sensitive).
package mask

import "regexp"

var (
	emailPattern  = regexp.MustCompile(`([A-Za-z0-9._%+-])[A-Za-z0-9._%+-]*@([A-Za-z0-9.-]+\.[A-Za-z]{2,})`)
	cardPattern   = regexp.MustCompile(`\b\d{12,19}\b`)
	secretPattern = regexp.MustCompile(`(?i)(cvv|cvc|password|token|secret)\s*[:=]\s*[^,\s]+`)
)

// Text redacts email local parts, card-number-shaped digit runs, and
// key=value secrets from a free-form string.
func Text(s string) string {
	s = emailPattern.ReplaceAllString(s, "$1***@$2")
	s = cardPattern.ReplaceAllString(s, "****MASKED_CARD****")
	s = secretPattern.ReplaceAllString(s, "$1=***")
	return s
}

// sensitiveKeys are stripped entirely from a snapshot bag rather than masked,
// per spec.md §4.5 step 2 ("drop cvv/cvc/security_code").
var sensitiveKeys = map[string]bool{
	"cvv":           true,
	"cvc":           true,
	"security_code": true,
}

// Snapshot returns a copy of m with PCI-sensitive keys removed and free-text
// string values run through Text. It does not mutate m.
func Snapshot(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if sensitiveKeys[k] {
			continue
		}
		if s, ok := v.(string); ok {
			out[k] = Text(s)
			continue
		}
		out[k] = v
	}
	return out
}
