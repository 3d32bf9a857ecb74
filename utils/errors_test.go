package utils

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestLayoutError(t *testing.T) {
	err := NewLayoutError("ENGINE", "RPM", "start_bit 60 + bit_length 8 exceeds 64 bits")
	assert.EqualError(t, err, "layout: frame ENGINE signal RPM: start_bit 60 + bit_length 8 exceeds 64 bits")
	assert.True(t, errors.Is(err, ErrLayoutViolation))

	wrapped := errors.Wrap(NewLayoutError("ENGINE", "", "duplicate frame id 0x100"), "load")
	assert.True(t, errors.Is(wrapped, ErrLayoutViolation))
	assert.Contains(t, wrapped.Error(), "layout: frame ENGINE: duplicate")

	var le *LayoutError
	assert.True(t, errors.As(wrapped, &le))
	assert.Equal(t, "ENGINE", le.Frame)
}
