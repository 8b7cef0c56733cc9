package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCart_AddAccumulates(t *testing.T) {
	c := NewCart("alice")

	c.Add("tomatoes", 500)
	got := c.Add("tomatoes", 300)

	assert.Equal(t, 800.0, got)
	assert.Equal(t, map[string]float64{"tomatoes": 800}, c.Snapshot())
}

func TestCart_NonPositiveAccumulationRemovesEntry(t *testing.T) {
	c := NewCart("alice")
	c.Add("bread", 2)

	got := c.Add("bread", -2)

	assert.Zero(t, got)
	assert.True(t, c.Empty())
}

func TestCart_SnapshotIsACopy(t *testing.T) {
	c := NewCart("alice")
	c.Add("bread", 1)

	snap := c.Snapshot()
	snap["bread"] = 10

	assert.Equal(t, 1.0, c.Items["bread"])
}

func TestDefaultCartAmount(t *testing.T) {
	assert.Equal(t, 1000.0, DefaultCartAmount(UnitWeight, 0))
	assert.Equal(t, 1000.0, DefaultCartAmount(UnitWeight, -5))
	assert.Equal(t, 250.0, DefaultCartAmount(UnitWeight, 250))
	assert.Equal(t, 1.0, DefaultCartAmount(UnitPiece, 0))
	assert.Equal(t, 3.0, DefaultCartAmount(UnitPiece, 3))
}
