package sale

import (
	"fmt"
	"log/slog"
)

// DistributionKind tags a DepositDistribution.
type DistributionKind string

const (
	// DistWithDiscount splits the deposit across discount phases, the public
	// sale, and an optional refund.
	DistWithDiscount DistributionKind = "with_discount"
	// DistWithoutDiscount puts the whole deposit into the public sale.
	DistWithoutDiscount DistributionKind = "without_discount"
	// DistRefund returns the whole deposit; nothing was purchasable.
	DistRefund DistributionKind = "refund"
)

// PhaseWeight is the discounted weight bought in one phase, in deposit units
// scaled by the phase discount.
type PhaseWeight struct {
	PhaseID uint16 `json:"phaseId"`
	Weight  uint64 `json:"weight"`
}

// DepositDistribution describes how a deposit splits across phases, the
// public sale, and refund. Mapping every weight back to deposit units and
// adding the refund reproduces the original deposit within rounding.
type DepositDistribution struct {
	Kind         DistributionKind `json:"kind"`
	PhaseWeights []PhaseWeight    `json:"phaseWeights,omitempty"`
	PublicWeight uint64           `json:"publicWeight,omitempty"`
	Weight       uint64           `json:"weight,omitempty"`
	Refund       uint64           `json:"refund,omitempty"`
}

// Allocate splits a deposit across the discount phases active at the given
// time. Pure: consults but never mutates the ledgers. Any arithmetic error
// fails the whole deposit; the caller must refund the full amount.
func Allocate(account string, deposit uint64, at int64, cfg *Config, catalog *Catalog, ledger *DiscountLedger, totals Totals) (DepositDistribution, error) {
	eligible, err := eligiblePhases(account, at, catalog, ledger)
	if err != nil {
		return DepositDistribution{}, err
	}

	if !cfg.IsFixedPrice() {
		return allocatePriceDiscovery(deposit, at, cfg, eligible)
	}

	// Fixed price: a hard global cap applies.
	globalRemaining := SatSub(cfg.SaleAmount, totals.SoldTokens)
	if globalRemaining == 0 {
		return DepositDistribution{Kind: DistRefund, Refund: deposit}, nil
	}

	if len(eligible) == 0 {
		if cfg.PublicSaleStarted(at) {
			return DepositDistribution{Kind: DistWithoutDiscount, Weight: deposit}, nil
		}
		return DepositDistribution{Kind: DistRefund, Refund: deposit}, nil
	}

	return allocateFixedPrice(account, deposit, at, cfg, catalog, ledger, eligible, globalRemaining)
}

// eligiblePhases returns the active phases the account may still buy in,
// ascending by id.
func eligiblePhases(account string, at int64, catalog *Catalog, ledger *DiscountLedger) ([]Phase, error) {
	var out []Phase
	for _, p := range catalog.ActiveAt(at) {
		if !ledger.Admitted(p.ID, account) {
			continue
		}
		if p.MaxPerAccount != nil && ledger.AccountPurchase(p.ID, account) >= *p.MaxPerAccount {
			continue
		}
		limit, bounded, err := catalog.EffectiveLimit(p.ID, at, ledger.Sold)
		if err != nil {
			return nil, err
		}
		if bounded && ledger.Sold(p.ID) >= limit {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func allocateFixedPrice(account string, deposit uint64, at int64, cfg *Config, catalog *Catalog, ledger *DiscountLedger, eligible []Phase, globalRemaining uint64) (DepositDistribution, error) {
	dist := DepositDistribution{Kind: DistWithDiscount}
	remaining := deposit

	for _, p := range eligible {
		if remaining == 0 || globalRemaining == 0 {
			break
		}

		weight, err := ApplyDiscount(remaining, p.DiscountBP)
		if err != nil {
			return DepositDistribution{}, fmt.Errorf("phase %d weight: %w", p.ID, err)
		}
		assets, err := MulDiv(weight, cfg.Mechanic.SaleUnit, cfg.Mechanic.DepositUnit)
		if err != nil {
			return DepositDistribution{}, fmt.Errorf("phase %d assets: %w", p.ID, err)
		}
		if assets == 0 {
			continue
		}

		prior := ledger.AccountPurchase(p.ID, account)
		if p.MinPerAccount != nil && prior == 0 && assets < *p.MinPerAccount {
			// Below the entry floor and no prior position in this phase.
			continue
		}

		// Clip by the largest of the three capacity violations.
		var clip uint64
		limit, bounded, err := catalog.EffectiveLimit(p.ID, at, ledger.Sold)
		if err != nil {
			return DepositDistribution{}, err
		}
		if bounded {
			if over := SatSub(ledger.Sold(p.ID)+assets, limit); over > clip {
				clip = over
			}
		}
		if p.MaxPerAccount != nil {
			if over := SatSub(prior+assets, *p.MaxPerAccount); over > clip {
				clip = over
			}
		}
		if over := SatSub(assets, globalRemaining); over > clip {
			clip = over
		}

		accepted := SatSub(assets, clip)
		if accepted == 0 {
			continue
		}

		acceptedWeight := weight
		consumed := remaining
		if clip > 0 {
			acceptedWeight, err = MulDiv(accepted, cfg.Mechanic.DepositUnit, cfg.Mechanic.SaleUnit)
			if err != nil {
				return DepositDistribution{}, fmt.Errorf("phase %d clip weight: %w", p.ID, err)
			}
			consumed, err = StripDiscount(acceptedWeight, p.DiscountBP)
			if err != nil {
				return DepositDistribution{}, fmt.Errorf("phase %d clip deposit: %w", p.ID, err)
			}
			if consumed == 0 {
				// Rounding left nothing purchasable here.
				continue
			}
			if consumed > remaining {
				consumed = remaining
			}
		}

		dist.PhaseWeights = append(dist.PhaseWeights, PhaseWeight{PhaseID: p.ID, Weight: acceptedWeight})
		remaining -= consumed
		globalRemaining = SatSub(globalRemaining, accepted)
	}

	if remaining > 0 {
		switch {
		case cfg.PublicSaleStarted(at) && globalRemaining > 0:
			assets, err := MulDiv(remaining, cfg.Mechanic.SaleUnit, cfg.Mechanic.DepositUnit)
			if err != nil {
				return DepositDistribution{}, fmt.Errorf("public sale assets: %w", err)
			}
			if assets > globalRemaining {
				accepted, err := MulDiv(globalRemaining, cfg.Mechanic.DepositUnit, cfg.Mechanic.SaleUnit)
				if err != nil {
					return DepositDistribution{}, fmt.Errorf("public sale clip: %w", err)
				}
				dist.PublicWeight = accepted
				dist.Refund = SatSub(remaining, accepted)
			} else {
				dist.PublicWeight = remaining
			}
		default:
			dist.Refund = remaining
		}
	}

	if len(dist.PhaseWeights) == 0 && dist.PublicWeight == 0 {
		return DepositDistribution{Kind: DistRefund, Refund: deposit}, nil
	}

	slog.Debug("deposit allocated",
		"account", account,
		"deposit", deposit,
		"phases", len(dist.PhaseWeights),
		"publicWeight", dist.PublicWeight,
		"refund", dist.Refund,
	)

	return dist, nil
}

// allocatePriceDiscovery applies only the first eligible phase's discount.
// There is no capacity clipping: total sold tokens are determined at
// settlement, not at deposit time.
func allocatePriceDiscovery(deposit uint64, at int64, cfg *Config, eligible []Phase) (DepositDistribution, error) {
	if len(eligible) == 0 {
		if cfg.PublicSaleStarted(at) {
			return DepositDistribution{Kind: DistWithoutDiscount, Weight: deposit}, nil
		}
		return DepositDistribution{Kind: DistRefund, Refund: deposit}, nil
	}

	p := eligible[0]
	weight, err := ApplyDiscount(deposit, p.DiscountBP)
	if err != nil {
		return DepositDistribution{}, fmt.Errorf("phase %d weight: %w", p.ID, err)
	}

	return DepositDistribution{
		Kind:         DistWithDiscount,
		PhaseWeights: []PhaseWeight{{PhaseID: p.ID, Weight: weight}},
	}, nil
}
