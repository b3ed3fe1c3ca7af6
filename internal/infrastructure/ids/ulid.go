package ids

import (
	"github.com/oklog/ulid/v2"
)

// ULIDGenerator issues run identifiers. They sort by start time, which keeps
// log lines and redis key namespaces of consecutive runs in order.
type ULIDGenerator struct{}

// NewULIDGenerator returns a ULIDGenerator.
func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{}
}

// Generate returns a fresh run id as a 26-character ULID string.
func (g *ULIDGenerator) Generate() string {
	return ulid.Make().String()
}
