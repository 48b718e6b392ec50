package eco

import "github.com/google/uuid"

// SuffixGenerator produces a collision-free hierarchy suffix (§4.7
// "materialize the connection through the hierarchy using a unique
// suffix to avoid collisions with bus nets").
type SuffixGenerator interface {
	NextSuffix() string
}

type uuidSuffixGenerator struct{}

func (uuidSuffixGenerator) NextSuffix() string {
	return uuid.NewString()[:8]
}

// SetSuffixGenerator overrides the design's suffix source, for tests
// that need deterministic hierarchy names.
func (d *Design) SetSuffixGenerator(g SuffixGenerator) {
	d.suffixGen = g
}
