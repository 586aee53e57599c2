package search

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNilBitmapContainsEverything(t *testing.T) {
	var b *Bitmap
	require.True(t, b.Contains(0))
	require.True(t, b.Contains(12345))
}

func TestBitmapSetAndContains(t *testing.T) {
	b := NewBitmap(10)
	b.Set(3)
	b.Set(7)
	require.True(t, b.Contains(3))
	require.True(t, b.Contains(7))
	require.False(t, b.Contains(4))
	require.Equal(t, 2, b.Count())
}

func TestBitmapGrowsBeyondInitialCapacity(t *testing.T) {
	b := NewBitmap(4)
	b.Set(1000)
	require.True(t, b.Contains(1000))
	require.False(t, b.Contains(999))
}
