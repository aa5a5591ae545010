package internal

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundedHistory_PutGet(t *testing.T) {
	h := NewBoundedHistory[string](10)

	h.Put("a", "uno")
	h.Put("b", "dos")

	v, ok := h.Get("a")
	require.True(t, ok)
	assert.Equal(t, "uno", v)

	_, ok = h.Get("zzz")
	assert.False(t, ok)
	assert.Equal(t, 2, h.Len())
}

func TestBoundedHistory_EvictsOldestFirst(t *testing.T) {
	h := NewBoundedHistory[int](3)

	for i := 0; i < 5; i++ {
		h.Put(fmt.Sprintf("m%d", i), i)
	}

	assert.Equal(t, 3, h.Len())

	// m0 y m1 desalojados, m2..m4 presentes
	_, ok := h.Get("m0")
	assert.False(t, ok)
	_, ok = h.Get("m1")
	assert.False(t, ok)

	for i := 2; i < 5; i++ {
		v, ok := h.Get(fmt.Sprintf("m%d", i))
		require.True(t, ok)
		assert.Equal(t, i, v)
	}

	assert.Equal(t, []string{"m2", "m3", "m4"}, h.Keys())
}

func TestBoundedHistory_ReplaceKeepsPosition(t *testing.T) {
	h := NewBoundedHistory[int](3)

	h.Put("a", 1)
	h.Put("b", 2)
	h.Put("a", 10) // reemplazo, no inserción

	assert.Equal(t, []string{"a", "b"}, h.Keys())

	h.Put("c", 3)
	h.Put("d", 4) // desaloja "a"

	_, ok := h.Get("a")
	assert.False(t, ok)
	assert.Equal(t, []string{"b", "c", "d"}, h.Keys())
}

func TestBoundedHistory_Pop(t *testing.T) {
	h := NewBoundedHistory[string](5)

	h.Put("x", "valor")

	v, ok := h.Pop("x")
	require.True(t, ok)
	assert.Equal(t, "valor", v)

	_, ok = h.Pop("x")
	assert.False(t, ok)
	assert.Equal(t, 0, h.Len())
}

func TestBoundedHistory_DefaultCapacity(t *testing.T) {
	h := NewBoundedHistory[int](0)

	for i := 0; i < DefaultHistorySize+20; i++ {
		h.Put(fmt.Sprintf("m%d", i), i)
	}

	assert.Equal(t, DefaultHistorySize, h.Len())
}
