package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_Get(t *testing.T) {
	c := NewCatalog()

	s, ok := c.Get("apt28-part1")
	require.True(t, ok)
	assert.Equal(t, "APT28: Link to Trouble - Part 1", s.Title)
	assert.Equal(t, "Network Security", s.Category)
	assert.Len(t, s.Steps, 3)

	_, ok = c.Get("does-not-exist")
	assert.False(t, ok)

	_, ok = c.Get("")
	assert.False(t, ok)
}

func TestCatalog_List(t *testing.T) {
	c := NewCatalog()

	scenarios := c.List()
	require.NotEmpty(t, scenarios)
	assert.Equal(t, "apt28-part1", scenarios[0].ID, "catalog order is stable")

	ids := make(map[string]bool, len(scenarios))
	for _, s := range scenarios {
		assert.False(t, ids[s.ID], "duplicate id %s", s.ID)
		ids[s.ID] = true
	}
	assert.True(t, ids["web-exploit-1"])
	assert.True(t, ids["forensics-1"])
}

func TestCatalog_ListReturnsCopy(t *testing.T) {
	c := NewCatalog()

	list := c.List()
	list[0].Title = "mutated"

	fresh, ok := c.Get(list[0].ID)
	require.True(t, ok)
	assert.NotEqual(t, "mutated", fresh.Title)
}

func TestCatalog_LockedScenarios(t *testing.T) {
	c := NewCatalog()

	locked, ok := c.Get("apt28-part4")
	require.True(t, ok)
	assert.True(t, locked.Locked)

	open, ok := c.Get("apt28-part3")
	require.True(t, ok)
	assert.False(t, open.Locked)
}
