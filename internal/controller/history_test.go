package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistoryLimit(t *testing.T) {
	h := NewHistory(2, "a", "b", "b", "c")
	assert.Equal(t, []string{"b", "c"}, h.Entries())
	assert.Equal(t, 2, h.Len())
	assert.Equal(t, "c", h.At(1))
}
