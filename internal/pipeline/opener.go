package pipeline

import (
	"fmt"

	"github.com/districtwater/gridclim/internal/domain"
)

// MultiOpener fans a path out to the first opener that supports its format.
type MultiOpener struct {
	openers []RasterOpener
}

// NewMultiOpener combines format-specific openers. Order decides precedence
// when formats would overlap.
func NewMultiOpener(openers ...RasterOpener) *MultiOpener {
	return &MultiOpener{openers: openers}
}

// Supports reports whether any opener handles the path.
func (m *MultiOpener) Supports(path string) bool {
	for _, o := range m.openers {
		if o.Supports(path) {
			return true
		}
	}
	return false
}

// Open delegates to the first supporting opener.
func (m *MultiOpener) Open(path string) (*domain.RasterGrid, error) {
	for _, o := range m.openers {
		if o.Supports(path) {
			return o.Open(path)
		}
	}
	return nil, fmt.Errorf("no reader supports %q", path)
}
