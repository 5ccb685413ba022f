package substrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBudgetPool_AllocateFractionAndFloor(t *testing.T) {
	pool := NewBudgetPool(1_000_000, 100_000)

	grant, err := pool.Allocate(1_000_000, 0.25)
	require.NoError(t, err)
	assert.Equal(t, 250_000, grant)
	assert.Equal(t, 750_000, pool.Remaining())
}

func TestBudgetPool_FloorAppliedWhenFractionSmaller(t *testing.T) {
	pool := NewBudgetPool(150_000, 100_000)

	grant, err := pool.Allocate(150_000, 0.1) // 10% of 150k = 15k, below floor
	require.NoError(t, err)
	assert.Equal(t, 100_000, grant)
}

func TestBudgetPool_InsufficientBudget(t *testing.T) {
	pool := NewBudgetPool(50_000, 100_000)

	_, err := pool.Allocate(50_000, 0.25)
	require.Error(t, err)
	var insufficient *InsufficientBudgetError
	require.ErrorAs(t, err, &insufficient)
}

func TestBudgetPool_Release(t *testing.T) {
	pool := NewBudgetPool(1_000_000, 100_000)

	grant, err := pool.Allocate(400_000, 0.5)
	require.NoError(t, err)

	pool.Release(grant / 2)
	assert.Equal(t, 1_000_000-grant+grant/2, pool.Remaining())
}
