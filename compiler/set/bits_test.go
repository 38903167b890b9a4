package set

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBits(t *testing.T) {
	s := MakeBits(4, 7, 4)

	assert.True(t, s.IsSet(4))
	assert.True(t, s.IsSet(7))
	assert.False(t, s.IsSet(5))
	assert.Equal(t, 2, s.Size())

	s.Set(5)
	s.Clear(4)

	var got []int

	s.Range(func(k int) bool {
		got = append(got, k)
		return true
	})

	assert.Equal(t, []int{5, 7}, got)
}
