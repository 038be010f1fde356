package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", hash)
	assert.True(t, CheckPassword("s3cret!", hash))
	assert.False(t, CheckPassword("S3cret!", hash))
	assert.False(t, CheckPassword("s3cret!", ""))

	_, err = HashPassword(strings.Repeat("a", 73))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ah.kow@example.sg", NormalizeEmail("  Ah.Kow@Example.SG "))
}
