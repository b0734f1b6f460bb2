package keys

import (
	"fmt"
	"strings"
)

const fieldSuffix = "field"

// ProjectKey is a derived project key literal including its "field" suffix.
type ProjectKey string

func (k ProjectKey) String() string {
	return string(k)
}

// ID is the key without its type suffix, as used in URLs.
func (k ProjectKey) ID() string {
	return strings.TrimSuffix(string(k), fieldSuffix)
}

// ParseProjectKey accepts a key with or without its "field" suffix.
func ParseProjectKey(input string) (ProjectKey, error) {
	digits := strings.TrimSuffix(strings.TrimSpace(input), fieldSuffix)
	if digits == "" {
		return "", fmt.Errorf("empty project key")
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("invalid project key: %s", input)
		}
	}
	return ProjectKey(digits + fieldSuffix), nil
}

// KeyLiteral renders the composite key struct in on-chain field order. It
// is the text form of KeyBits.
func KeyLiteral(roundID uint32, projectIndex uint16) string {
	return fmt.Sprintf("{round_id: %du32, project_index: %du16}", roundID, projectIndex)
}

// Deriver computes project keys from (round, index) pairs.
type Deriver struct {
	backend *Backend
}

func NewDeriver(backend *Backend) *Deriver {
	return &Deriver{backend: backend}
}

// DeriveProjectKey hashes the composite key. It never blocks on backend
// initialization: ErrBackendLoading means try again later.
func (d *Deriver) DeriveProjectKey(roundID uint32, projectIndex uint16) (ProjectKey, error) {
	if d == nil || d.backend == nil {
		return "", ErrBackendLoading
	}
	h, err := d.backend.Hasher()
	if err != nil {
		return "", err
	}
	out, err := h.HashToField(KeyBits(roundID, projectIndex))
	if err != nil {
		return "", fmt.Errorf("hash project key: %w", err)
	}
	return ParseProjectKey(out)
}
