// Package sanitize implements the input-hardening steps spec.md §4.5 step 2
// requires of the create-reservation use case: strip control characters and
// XSS-shaped markup from free text, reject SQL-injection-shaped fragments,
// and enforce PCI storage rules on customer/vehicle snapshots (drop
// cvv/cvc/security_code, forbid raw PAN). Ported from original_source's
// shared/security/input_sanitizer.py and shared/security/pci.py.
package sanitize

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/rbravo-mcr/reservas-api/internal/domain"
)

var (
	scriptTagPattern = regexp.MustCompile(`(?is)<\s*script[^>]*>.*?<\s*/\s*script\s*>`)
	jsProtoPattern   = regexp.MustCompile(`(?i)javascript:`)
	onEventPattern   = regexp.MustCompile(`(?i)on\w+\s*=`)

	sqlInjectionPattern = regexp.MustCompile(`(?is)(` +
		`--|/\*|\*/|` +
		`\bunion\s+select\b|` +
		`\bdrop\s+table\b|` +
		`\btruncate\s+table\b|` +
		`'\s*(or|and)\s+[\w']+\s*=\s*[\w']+|` +
		`;\s*(select|insert|update|delete|drop|alter|truncate|union)\b)`)

	cardNumberPattern = regexp.MustCompile(`^\d{12,19}$`)
	tokenPattern      = regexp.MustCompile(`^(tok_|pm_|card_)[A-Za-z0-9_]+$`)
)

// Text strips control characters, XSS-shaped markup, and angle brackets,
// then validates the result contains no SQL-injection-shaped fragment.
func Text(value string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, value)
	cleaned = strings.TrimSpace(cleaned)
	cleaned = scriptTagPattern.ReplaceAllString(cleaned, "")
	cleaned = jsProtoPattern.ReplaceAllString(cleaned, "")
	cleaned = onEventPattern.ReplaceAllString(cleaned, "")
	cleaned = strings.ReplaceAll(cleaned, "<", "")
	cleaned = strings.ReplaceAll(cleaned, ">", "")

	if sqlInjectionPattern.MatchString(cleaned) {
		return "", domain.ErrUnsafeFreeText
	}
	return cleaned, nil
}

// Payload recursively sanitizes every string leaf of a snapshot bag,
// returning a new map (the input is never mutated).
func Payload(payload domain.Snapshot) (domain.Snapshot, error) {
	out := make(domain.Snapshot, len(payload))
	for k, v := range payload {
		cleaned, err := sanitizeValue(v)
		if err != nil {
			return nil, err
		}
		out[k] = cleaned
	}
	return out, nil
}

func sanitizeValue(v any) (any, error) {
	switch t := v.(type) {
	case string:
		return Text(t)
	case domain.Snapshot:
		return Payload(t)
	case map[string]any:
		return Payload(domain.Snapshot(t))
	case []any:
		cleaned := make([]any, len(t))
		for i, item := range t {
			c, err := sanitizeValue(item)
			if err != nil {
				return nil, err
			}
			cleaned[i] = c
		}
		return cleaned, nil
	default:
		return v, nil
	}
}

var cardLikeKeyTokens = []string{"card", "pan", "account_number"}

// EnforcePCI rejects raw PAN values and strips cvv/cvc/security_code keys
// from a (already text-sanitized) snapshot bag, recursively.
func EnforcePCI(payload domain.Snapshot) (domain.Snapshot, error) {
	out := make(domain.Snapshot, len(payload))
	for k, v := range payload {
		lowered := strings.ToLower(k)
		if lowered == "cvv" || lowered == "cvc" || lowered == "security_code" {
			continue
		}

		if looksLikeCardNumberField(lowered) {
			valueStr := fmt.Sprintf("%v", v)
			valueStr = strings.TrimSpace(valueStr)
			if cardNumberPattern.MatchString(valueStr) {
				return nil, domain.ErrRawPAN
			}
			if strings.Contains(lowered, "token") && !tokenPattern.MatchString(valueStr) {
				return nil, domain.ErrRawPAN
			}
			out[k] = v
			continue
		}

		switch t := v.(type) {
		case domain.Snapshot:
			nested, err := EnforcePCI(t)
			if err != nil {
				return nil, err
			}
			out[k] = nested
		case map[string]any:
			nested, err := EnforcePCI(domain.Snapshot(t))
			if err != nil {
				return nil, err
			}
			out[k] = nested
		default:
			out[k] = v
		}
	}
	return out, nil
}

func looksLikeCardNumberField(key string) bool {
	for _, token := range cardLikeKeyTokens {
		if strings.Contains(key, token) {
			return true
		}
	}
	return false
}
