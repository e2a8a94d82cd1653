package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetFromStrings(t *testing.T) {
	s := SetFromStrings([]string{"node", "npm", "node"})
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Includes("node"))
	assert.True(t, s.Includes("npm"))
	assert.False(t, s.Includes("yarn"))
}

func TestSetAddDelete(t *testing.T) {
	s := SetFromStrings(nil)
	s.Add("cowsay")
	assert.True(t, s.Includes("cowsay"))
	s.Delete("cowsay")
	assert.False(t, s.Includes("cowsay"))
	assert.Equal(t, 0, s.Len())
}

func TestSetUnsortedList(t *testing.T) {
	s := SetFromStrings([]string{"a", "b"})
	assert.ElementsMatch(t, []string{"a", "b"}, s.UnsortedList())
}
