package aggregate

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"outing/internal/registration/models"
)

func TestTotalHeadcount(t *testing.T) {
	regs := []models.Registration{
		{AdultFamilyCount: 2, ChildFamilyCount: 1},
		{AdultFamilyCount: 0, ChildFamilyCount: 0},
	}
	assert.Equal(t, 5, TotalHeadcount(regs), "(1+2+1) + (1+0+0)")
}

func TestTotalHeadcountEmpty(t *testing.T) {
	assert.Equal(t, 0, TotalHeadcount(nil))
	assert.Equal(t, 0, TotalHeadcount([]models.Registration{}))
}

func TestTotalHeadcountOrderInvariant(t *testing.T) {
	regs := []models.Registration{
		{AdultFamilyCount: 2, ChildFamilyCount: 1},
		{AdultFamilyCount: 4, ChildFamilyCount: 0},
		{AdultFamilyCount: 0, ChildFamilyCount: 3},
		{AdultFamilyCount: 1, ChildFamilyCount: 1},
	}
	want := TotalHeadcount(regs)

	rng := rand.New(rand.NewSource(1))
	for n := 0; n < 10; n++ {
		rng.Shuffle(len(regs), func(i, j int) {
			regs[i], regs[j] = regs[j], regs[i]
		})
		assert.Equal(t, want, TotalHeadcount(regs))
	}
}

func TestTotalHeadcountCoercesMalformedCounts(t *testing.T) {
	// The store has no schema enforcement; readers must re-coerce.
	regs := []models.Registration{
		{AdultFamilyCount: -2, ChildFamilyCount: 1},
	}
	assert.Equal(t, 2, TotalHeadcount(regs))
}

func TestCompute(t *testing.T) {
	regs := []models.Registration{
		{AdultFamilyCount: 2, ChildFamilyCount: 1},
		{AdultFamilyCount: 1, ChildFamilyCount: -5},
	}

	b := Compute(regs)
	assert.Equal(t, 2, b.Registrants)
	assert.Equal(t, 3, b.Adults)
	assert.Equal(t, 1, b.Children)
	assert.Equal(t, 6, b.Total())
	assert.Equal(t, TotalHeadcount(regs), b.Total())
}
