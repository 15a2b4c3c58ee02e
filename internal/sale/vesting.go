package sale

import "github.com/tokenlaunch/salecore/internal/config"

// UserAllocation converts an investment weight into the account's total
// sale-token allocation. Under fixed price the weight is already denominated
// in sale tokens. Under price discovery the allocation is the weight's share
// of the sale amount against all sold weight.
func UserAllocation(weight, totalSoldTokens uint64, cfg *Config) (uint64, error) {
	if cfg.IsFixedPrice() {
		return weight, nil
	}
	if weight == 0 || totalSoldTokens == 0 {
		return 0, nil
	}
	return MulDiv(weight, cfg.SaleAmount, totalSoldTokens)
}

// AvailableForClaim returns how much of an account's allocation the vesting
// schedule has released at the given time, cumulative from zero.
func AvailableForClaim(inv Investment, totalSoldTokens uint64, cfg *Config, now int64) (uint64, error) {
	total, err := UserAllocation(inv.Weight, totalSoldTokens, cfg)
	if err != nil {
		return 0, err
	}

	v := cfg.Vesting
	if v == nil {
		return total, nil
	}

	vestingStart := cfg.VestingStart()

	var instant uint64
	if v.InstantClaimBP != nil {
		instant, err = MulDiv(total, uint64(*v.InstantClaimBP), config.BasisPointsDenom)
		if err != nil {
			return 0, err
		}
	}

	switch {
	case now < vestingStart+v.CliffPeriod:
		return instant, nil
	case now >= vestingStart+v.VestingPeriod:
		return total, nil
	}

	// Linear release between instant and total across the scheme's window.
	windowStart := vestingStart
	window := v.VestingPeriod
	if v.Scheme == SchemeAfterCliff {
		windowStart = vestingStart + v.CliffPeriod
		window = v.VestingPeriod - v.CliffPeriod
	}
	if window <= 0 {
		return total, nil
	}

	elapsed := now - windowStart
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > window {
		elapsed = window
	}

	vested, err := MulDiv(total-instant, uint64(elapsed), uint64(window))
	if err != nil {
		return 0, err
	}
	return instant + vested, nil
}

// ClaimableNow returns what the account can claim at the given time beyond
// what it already claimed, saturating at zero.
func ClaimableNow(inv Investment, totalSoldTokens uint64, cfg *Config, now int64) (uint64, error) {
	released, err := AvailableForClaim(inv, totalSoldTokens, cfg, now)
	if err != nil {
		return 0, err
	}
	return SatSub(released, inv.Claimed), nil
}
