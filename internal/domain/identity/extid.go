package identity

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
)

const (
	externalIDPrefix = "PT-"
	externalIDDigits = 5
	// attempts before giving up on finding a free identifier
	maxGenerateAttempts = 100
)

var externalIDPattern = regexp.MustCompile(`^PT-\d{5}$`)

// ValidExternalID reports whether s has the PT-NNNNN shape.
func ValidExternalID(s string) bool {
	return externalIDPattern.MatchString(s)
}

// IDGenerator produces human-facing patient identifiers of the form PT-NNNNN.
type IDGenerator struct {
	next func() (int, error)
}

func NewIDGenerator() *IDGenerator {
	limit := big.NewInt(100000)
	return &IDGenerator{next: func() (int, error) {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return 0, err
		}
		return int(n.Int64()), nil
	}}
}

// NewSequenceGenerator returns a generator drawing numbers from seq in order,
// then repeating the last one. Tests use it to force collisions.
func NewSequenceGenerator(seq ...int) *IDGenerator {
	i := 0
	return &IDGenerator{next: func() (int, error) {
		if len(seq) == 0 {
			return 0, fmt.Errorf("empty sequence")
		}
		n := seq[i]
		if i < len(seq)-1 {
			i++
		}
		return n, nil
	}}
}

func format(n int) string {
	return fmt.Sprintf("%s%0*d", externalIDPrefix, externalIDDigits, n)
}

// Generate draws identifiers until exists reports one as free. The check is
// best effort; the unique index on patient.external_id is what guarantees
// uniqueness, and callers retry when the insert collides.
func (g *IDGenerator) Generate(ctx context.Context, exists func(ctx context.Context, externalID string) (bool, error)) (string, int, error) {
	for attempt := 1; attempt <= maxGenerateAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", attempt - 1, err
		}
		n, err := g.next()
		if err != nil {
			return "", attempt - 1, fmt.Errorf("draw patient id: %w", err)
		}
		id := format(n)
		taken, err := exists(ctx, id)
		if err != nil {
			return "", attempt - 1, fmt.Errorf("check patient id %s: %w", id, err)
		}
		if !taken {
			return id, attempt - 1, nil
		}
	}
	return "", maxGenerateAttempts, fmt.Errorf("no free patient id after %d attempts", maxGenerateAttempts)
}
