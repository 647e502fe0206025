package addon

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCatalog_ListActiveFiltersInactiveAndOrdersBySortOrder(t *testing.T) {
	c := NewMemoryCatalog(
		Addon{Code: "GPS", Name: "GPS Navigation", Category: CategoryEquipment, SortOrder: 2, IsActive: true},
		Addon{Code: "CDW", Name: "Collision Damage Waiver", Category: CategoryCoverage, SortOrder: 1, IsActive: true},
		Addon{Code: "OLD", Name: "Discontinued", Category: CategoryEquipment, SortOrder: 0, IsActive: false},
	)

	out, err := c.ListActive(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "CDW", out[0].Code)
	assert.Equal(t, "GPS", out[1].Code)
}

func TestMemoryCatalog_ListActiveFiltersByCategory(t *testing.T) {
	c := NewMemoryCatalog(
		Addon{Code: "GPS", Category: CategoryEquipment, SortOrder: 1, IsActive: true},
		Addon{Code: "CDW", Category: CategoryCoverage, SortOrder: 2, IsActive: true},
	)

	coverage := CategoryCoverage
	out, err := c.ListActive(context.Background(), &coverage)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "CDW", out[0].Code)
}
