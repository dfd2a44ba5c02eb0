// Package aggregate computes display totals over the full registration
// collection. Everything here is a pure function, recomputed on demand; there
// is no caching, so readers always reflect the latest fetched document.
package aggregate

import "outing/internal/registration/models"

// Breakdown is the per-category view the dashboard renders.
type Breakdown struct {
	Registrants int `json:"registrants"`
	Adults      int `json:"adults"`
	Children    int `json:"children"`
}

// Total is the combined headcount: every registrant plus their family.
func (b Breakdown) Total() int {
	return b.Registrants + b.Adults + b.Children
}

// TotalHeadcount sums 1 + adultFamilyCount + childFamilyCount over every
// record. Order-invariant; negative counts (possible, the store enforces no
// schema) are coerced to 0 via Registration.Headcount.
func TotalHeadcount(regs []models.Registration) int {
	total := 0
	for _, r := range regs {
		total += r.Headcount()
	}
	return total
}

// Compute builds the per-category breakdown.
func Compute(regs []models.Registration) Breakdown {
	var b Breakdown
	for _, r := range regs {
		b.Registrants++
		b.Adults += clamp(r.AdultFamilyCount)
		b.Children += clamp(r.ChildFamilyCount)
	}
	return b
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
