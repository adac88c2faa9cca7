// Package ids provides the UUID generation seam Storage uses to mint the
// identifiers of the synthetic injector tasks created by Inject.
package ids

import "github.com/google/uuid"

// Generator mints string UUIDs. An interface rather than a direct
// google/uuid dependency throughout the codebase so tests can substitute a
// deterministic sequence.
type Generator interface {
	New() string
}

// UUID4Generator generates random (v4) UUIDs via google/uuid.
type UUID4Generator struct{}

// New returns a newly minted v4 UUID string.
func (UUID4Generator) New() string {
	return uuid.NewString()
}

var _ Generator = UUID4Generator{}

// Default is the package-wide generator used wherever a component is
// constructed without an explicit WithIDGenerator option.
var Default Generator = UUID4Generator{}
