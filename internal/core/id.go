package core

import (
	"fmt"

	"github.com/google/uuid"
)

// IDGenerator produces unique record identifiers. The store owns one
// generator so uniqueness never depends on wall-clock collisions.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator generates random UUIDv4 identifiers.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// SequenceGenerator generates deterministic "prefix-N" identifiers.
// Intended for tests and fixtures.
type SequenceGenerator struct {
	Prefix string
	next   int
}

func (g *SequenceGenerator) NewID() string {
	g.next++
	return fmt.Sprintf("%s-%d", g.Prefix, g.next)
}
