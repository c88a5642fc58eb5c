package vaultcore

import (
	"context"
	"crypto/rand"
	"math/big"
	"strconv"
)

const (
	// MinGeneratedLength is the shortest password the generator produces.
	MinGeneratedLength = 8
	// MaxGeneratedLength is the longest password the generator produces.
	MaxGeneratedLength = 32

	upperAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerAlphabet  = "abcdefghijklmnopqrstuvwxyz"
	digitAlphabet  = "0123456789"
	symbolAlphabet = "!@#$%^&*()_+-=[]{}|;:,.<>?"
)

// GeneratorPolicy configures one generation: the output length and which
// character classes feed the pool. With every class disabled the pool falls
// back to lowercase letters alone; the generator never fails on a policy.
type GeneratorPolicy struct {
	Length    int
	Uppercase bool
	Lowercase bool
	Digits    bool
	Symbols   bool
}

// DefaultGeneratorPolicy enables all four classes at the given length.
func DefaultGeneratorPolicy(length int) GeneratorPolicy {
	return GeneratorPolicy{
		Length:    length,
		Uppercase: true,
		Lowercase: true,
		Digits:    true,
		Symbols:   true,
	}
}

// GeneratedPassword bundles a generated value with its immediate strength
// feedback so the caller renders both from one call.
type GeneratedPassword struct {
	Value    string
	Score    int
	Strength Strength
}

// GeneratePassword draws policy.Length characters independently and
// uniformly from the enabled class pool using crypto/rand. A length outside
// [MinGeneratedLength, MaxGeneratedLength] is clamped to the nearer bound.
// The only error condition is the platform random source failing.
func GeneratePassword(policy GeneratorPolicy) (GeneratedPassword, error) {
	length := policy.Length
	if length < MinGeneratedLength {
		length = MinGeneratedLength
	}
	if length > MaxGeneratedLength {
		length = MaxGeneratedLength
	}

	var pool string
	if policy.Uppercase {
		pool += upperAlphabet
	}
	if policy.Lowercase {
		pool += lowerAlphabet
	}
	if policy.Digits {
		pool += digitAlphabet
	}
	if policy.Symbols {
		pool += symbolAlphabet
	}
	if pool == "" {
		pool = lowerAlphabet
	}

	out := make([]byte, length)
	poolSize := big.NewInt(int64(len(pool)))
	for i := range out {
		n, err := rand.Int(rand.Reader, poolSize)
		if err != nil {
			return GeneratedPassword{}, err
		}
		out[i] = pool[n.Int64()]
	}

	value := string(out)
	score := ScoreStrength(value)
	return GeneratedPassword{
		Value:    value,
		Score:    score,
		Strength: ClassifyStrength(score),
	}, nil
}

// GeneratePassword generates through the engine so the draw is counted and
// audited. A zero policy length uses the configured default.
func (e *Engine) GeneratePassword(ctx context.Context, policy GeneratorPolicy) (GeneratedPassword, error) {
	if e == nil {
		return GeneratedPassword{}, ErrEngineNotReady
	}
	if policy.Length == 0 {
		policy.Length = e.config.Generator.DefaultLength
	}

	generated, err := GeneratePassword(policy)
	if err != nil {
		return GeneratedPassword{}, err
	}

	e.metricInc(MetricPasswordGenerated)
	e.emitAudit(ctx, auditEventPasswordGenerated, true, "", "", nil, func() map[string]string {
		// The generated value itself never reaches the audit trail.
		return map[string]string{
			"length":   strconv.Itoa(len(generated.Value)),
			"strength": string(generated.Strength),
		}
	})
	return generated, nil
}
