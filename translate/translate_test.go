package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchFallback(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(Match(Fallback), Match())
}

func TestFrom(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("line 3 bad", From("line %d %v", 3, "bad"))
}
