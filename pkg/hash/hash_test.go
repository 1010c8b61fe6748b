package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheck(t *testing.T) {
	hashed, err := HashPassword("pw")
	require.NoError(t, err)

	assert.NotEqual(t, "pw", hashed)
	assert.True(t, CheckPasswordHash("pw", hashed))
	assert.False(t, CheckPasswordHash("PW", hashed))
	assert.False(t, CheckPasswordHash("pw ", hashed))
}
