package sale

import (
	"fmt"
	"sort"

	"github.com/tokenlaunch/salecore/internal/config"
)

// Phase is a time-bounded, optionally whitelisted and capped, discount tier.
// All limits are denominated in sale tokens (weight units under price
// discovery). A nil limit means unbounded.
type Phase struct {
	ID         uint16 `json:"id"`
	StartTime  int64  `json:"startTime"`
	EndTime    int64  `json:"endTime"` // exclusive
	DiscountBP uint16 `json:"discountBp"`

	SaleLimit     *uint64 `json:"saleLimit,omitempty"`
	MinPerAccount *uint64 `json:"minPerAccount,omitempty"`
	MaxPerAccount *uint64 `json:"maxPerAccount,omitempty"`

	// OverflowPhaseID receives this phase's unsold capacity once the phase
	// window closes. Links may form cycles; traversal breaks on revisit.
	OverflowPhaseID *uint16 `json:"overflowPhaseId,omitempty"`
}

// ActiveAt reports whether the phase window contains t.
func (p Phase) ActiveAt(t int64) bool {
	return t >= p.StartTime && t < p.EndTime
}

// Catalog is the static phase set, indexed by id with the overflow links
// materialized as a reverse adjacency map.
type Catalog struct {
	phases  map[uint16]Phase
	order   []uint16
	inbound map[uint16][]uint16
}

// NewCatalog validates the phase set and builds the catalog.
func NewCatalog(phases []Phase) (*Catalog, error) {
	c := &Catalog{
		phases:  make(map[uint16]Phase, len(phases)),
		inbound: make(map[uint16][]uint16),
	}

	for _, p := range phases {
		if _, dup := c.phases[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate phase id %d", config.ErrInvalidSaleConfig, p.ID)
		}
		if p.EndTime <= p.StartTime {
			return nil, fmt.Errorf("%w: phase %d window is empty", config.ErrInvalidSaleConfig, p.ID)
		}
		if p.MinPerAccount != nil && p.MaxPerAccount != nil && *p.MinPerAccount > *p.MaxPerAccount {
			return nil, fmt.Errorf("%w: phase %d min limit exceeds max limit", config.ErrInvalidSaleConfig, p.ID)
		}
		c.phases[p.ID] = p
		c.order = append(c.order, p.ID)
	}

	sort.Slice(c.order, func(i, j int) bool { return c.order[i] < c.order[j] })

	for _, p := range phases {
		if p.OverflowPhaseID == nil {
			continue
		}
		if _, ok := c.phases[*p.OverflowPhaseID]; !ok {
			return nil, fmt.Errorf("%w: phase %d overflows into unknown phase %d", config.ErrPhaseNotFound, p.ID, *p.OverflowPhaseID)
		}
		c.inbound[*p.OverflowPhaseID] = append(c.inbound[*p.OverflowPhaseID], p.ID)
	}

	return c, nil
}

// Get returns the phase with the given id.
func (c *Catalog) Get(id uint16) (Phase, error) {
	p, ok := c.phases[id]
	if !ok {
		return Phase{}, fmt.Errorf("%w: %d", config.ErrPhaseNotFound, id)
	}
	return p, nil
}

// Len returns the number of phases.
func (c *Catalog) Len() int { return len(c.order) }

// ActiveAt returns the phases whose window contains t, ascending by id.
// Id order is the deterministic tie-break for overlapping windows.
func (c *Catalog) ActiveAt(t int64) []Phase {
	var active []Phase
	for _, id := range c.order {
		if p := c.phases[id]; p.ActiveAt(t) {
			active = append(active, p)
		}
	}
	return active
}

// EffectiveLimit returns the sale-token capacity of a phase at time t: its own
// limit plus unsold capacity rolled over from closed phases that overflow into
// it, transitively. The walk is bounded by a visited set, so mutual overflow
// references terminate with no further rollover instead of looping.
// bounded=false means the phase has no limit at all.
func (c *Catalog) EffectiveLimit(id uint16, t int64, sold func(uint16) uint64) (limit uint64, bounded bool, err error) {
	p, ok := c.phases[id]
	if !ok {
		return 0, false, fmt.Errorf("%w: %d", config.ErrPhaseNotFound, id)
	}
	if p.SaleLimit == nil {
		return 0, false, nil
	}

	limit = *p.SaleLimit
	visited := map[uint16]bool{id: true}
	queue := append([]uint16(nil), c.inbound[id]...)

	for len(queue) > 0 {
		q := queue[0]
		queue = queue[1:]
		if visited[q] {
			continue
		}
		visited[q] = true

		pred := c.phases[q]
		if t < pred.EndTime {
			// Still open: its capacity has not rolled over yet.
			continue
		}
		if pred.SaleLimit == nil {
			continue
		}

		leftover := SatSub(*pred.SaleLimit, sold(q))
		limit, err = CheckedAdd(limit, leftover)
		if err != nil {
			return 0, false, err
		}

		queue = append(queue, c.inbound[q]...)
	}

	return limit, true, nil
}
