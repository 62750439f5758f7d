// Package catalog holds the compiled-in plan catalog. Plans are loaded once
// at process start and never mutated; there is no error path.
package catalog

import "github.com/fairyhunter13/hosting-checkout/internal/model"

var plans = []model.Plan{
	{
		ID:       "dirt-age",
		Name:     "Dirt Age",
		Price:    329,
		Category: "budget",
		CPU:      "1 vCPU",
		RAM:      "2 GB RAM",
		Storage:  "15 GB NVMe",
		Capacity: "Up to 6 players",
	},
	{
		ID:       "stone-age",
		Name:     "Stone Age",
		Price:    529,
		Category: "budget",
		CPU:      "2 vCPU",
		RAM:      "4 GB RAM",
		Storage:  "25 GB NVMe",
		Capacity: "Up to 12 players",
	},
	{
		ID:       "iron-age",
		Name:     "Iron Age",
		Price:    799,
		Category: "standard",
		CPU:      "3 vCPU",
		RAM:      "6 GB RAM",
		Storage:  "40 GB NVMe",
		Capacity: "Up to 25 players",
	},
	{
		ID:       "diamond-age",
		Name:     "Diamond Age",
		Price:    1199,
		Category: "premium",
		CPU:      "4 vCPU",
		RAM:      "8 GB RAM",
		Storage:  "60 GB NVMe",
		Capacity: "Up to 50 players",
	},
	{
		ID:       "netherite-age",
		Name:     "Netherite Age",
		Price:    1899,
		Category: "premium",
		CPU:      "6 vCPU",
		RAM:      "12 GB RAM",
		Storage:  "100 GB NVMe",
		Capacity: "Unlimited players",
	},
}

// List returns all plans in catalog order. The returned slice is a copy so
// callers cannot mutate the catalog.
func List() []model.Plan {
	out := make([]model.Plan, len(plans))
	copy(out, plans)
	return out
}

// GetByID returns the plan with the given id, or nil if no such plan exists.
func GetByID(id string) *model.Plan {
	for i := range plans {
		if plans[i].ID == id {
			p := plans[i]
			return &p
		}
	}
	return nil
}
