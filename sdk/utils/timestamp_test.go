package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFloorTime(t *testing.T) {
	at := time.Date(2026, 3, 14, 10, 7, 13, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 3, 14, 10, 5, 0, 0, time.UTC), FloorTime(at, 5*time.Minute))
	assert.Equal(t, time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC), FloorTime(at, 15*time.Minute))
}

func TestCeilTime(t *testing.T) {
	at := time.Date(2026, 3, 14, 10, 7, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 3, 14, 10, 15, 0, 0, time.UTC), CeilTime(at, 15*time.Minute))

	aligned := time.Date(2026, 3, 14, 10, 15, 0, 0, time.UTC)
	assert.Equal(t, aligned, CeilTime(aligned, 15*time.Minute), "aligned times stay put")
}

func TestNextBoundary(t *testing.T) {
	at := time.Date(2026, 3, 14, 10, 2, 0, 0, time.UTC)

	next := NextBoundary(at, 5*time.Minute)
	assert.Equal(t, time.Date(2026, 3, 14, 10, 5, 0, 0, time.UTC), next)

	// Un tick alineado salta al siguiente, no se repite.
	assert.Equal(t, time.Date(2026, 3, 14, 10, 10, 0, 0, time.UTC), NextBoundary(next, 5*time.Minute))
}
