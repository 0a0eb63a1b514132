package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "b****@alder.co.uk", MaskEmail("broker@alder.co.uk"))
	assert.Equal(t, "****", MaskEmail("abc"))
	assert.Equal(t, "", MaskEmail("  "))
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "****cdef", MaskSecret("abcdef"))
	assert.Equal(t, "****", MaskSecret("abcd"))
}
