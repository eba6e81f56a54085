package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlignTo(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		val, align, want int64
	}{
		{0, 0, 0},
		{5, 1, 5},
		{0, 16, 0},
		{1, 16, 16},
		{16, 16, 16},
		{17, 16, 32},
		{0x1001, 0x100, 0x1100},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, AlignTo(tc.val, tc.align), "AlignTo(%d, %d)", tc.val, tc.align)
	}
}

func TestRemoveIf(t *testing.T) {
	t.Parallel()

	got := RemoveIf([]int{1, 2, 3, 4, 5, 6}, func(v int) bool { return v%2 == 0 })
	assert.Equal(t, []int{1, 3, 5}, got)

	assert.Empty(t, RemoveIf([]string{"a"}, func(string) bool { return true }))
}

func TestSortedKeys(t *testing.T) {
	t.Parallel()

	keys := SortedKeys(map[string]int{"DATA": 1, "BSS": 2, "CODE": 3})
	assert.Equal(t, []string{"BSS", "CODE", "DATA"}, keys)
}
