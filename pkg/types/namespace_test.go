package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidNamespace(t *testing.T) {
	valid := []string{"a", "counters", "user_settings", "w-reactive", "v2"}
	for _, name := range valid {
		assert.True(t, ValidNamespace(name), name)
	}

	invalid := []string{"", "Counters", "1st", "_x", "-x", "has space", "dots.no", strings.Repeat("a", MaxNamespaceLen+1)}
	for _, name := range invalid {
		assert.False(t, ValidNamespace(name), name)
	}
}

func TestCheckKey(t *testing.T) {
	assert.NoError(t, CheckKey("counters", "c1"))
	assert.ErrorIs(t, CheckKey("Bad", "c1"), ErrInvalidNamespace)
	assert.ErrorIs(t, CheckKey("counters", ""), ErrInvalidID)
}
