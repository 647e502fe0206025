// Package codegen generates globally-unique 8-character alphanumeric
// reservation codes (C3). Grounded on booking_service.go's
// generateConfirmationCode (crypto/rand-based short code) and
// original_source's generate_reservation_code_use_case.py's
// generate-and-check-against-a-predicate shape.
package codegen

import (
	"context"
	"crypto/rand"
	"math/big"

	"github.com/rbravo-mcr/reservas-api/internal/domain"
)

const (
	alphabet      = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength    = 8
	defaultMaxRetries = 1000
)

// ExistsFunc reports whether code is already in use. Implementations query
// the reservation store.
type ExistsFunc func(ctx context.Context, code string) (bool, error)

// Generator produces codes and checks them against an injected uniqueness
// predicate, retrying on collision up to MaxRetries.
type Generator struct {
	MaxRetries int
}

// New returns a Generator with the default retry cap (1000, spec.md §4.2).
func New() *Generator {
	return &Generator{MaxRetries: defaultMaxRetries}
}

// Generate produces one unique code. Each attempt draws a fresh
// cryptographically random code and never reuses a failed attempt. Returns
// ErrCodeGenerationExhausted if every attempt up to MaxRetries collides.
func (g *Generator) Generate(ctx context.Context, exists ExistsFunc) (string, error) {
	maxRetries := g.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		code, err := randomCode()
		if err != nil {
			return "", err
		}
		taken, err := exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", domain.ErrCodeGenerationExhausted
}

func randomCode() (string, error) {
	buf := make([]byte, codeLength)
	alphabetLen := big.NewInt(int64(len(alphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", err
		}
		buf[i] = alphabet[n.Int64()]
	}
	return string(buf), nil
}
