package workflow

import "github.com/cinemax-app/subscribe/pkg/api"

// Catalog holds the plans from the last successful fetch.
type Catalog struct {
	plans []api.Plan
}

// Plans returns a copy of the known plans.
func (c *Catalog) Plans() []api.Plan {
	out := make([]api.Plan, len(c.plans))
	copy(out, c.plans)
	return out
}

// Len returns the number of known plans.
func (c *Catalog) Len() int { return len(c.plans) }

// At returns the plan at index i.
func (c *Catalog) At(i int) (api.Plan, bool) {
	if i < 0 || i >= len(c.plans) {
		return api.Plan{}, false
	}
	return c.plans[i], true
}

// Find looks a plan up by ID.
func (c *Catalog) Find(id string) (api.Plan, bool) {
	for _, p := range c.plans {
		if p.ID == id {
			return p, true
		}
	}
	return api.Plan{}, false
}

func (c *Catalog) replace(plans []api.Plan) {
	c.plans = make([]api.Plan, len(plans))
	copy(c.plans, plans)
}

func (c *Catalog) clear() { c.plans = nil }
