package sale

import (
	"fmt"
	"log/slog"

	"github.com/tokenlaunch/salecore/internal/config"
)

// DepositResult is the outcome of applying a deposit to the ledgers.
type DepositResult struct {
	Distribution DepositDistribution
	// Refund is the part of the deposit that could not be accepted and must
	// be returned to the account.
	Refund uint64
}

// ApplyDeposit allocates a deposit and mutates the investment, discount
// ledger, and global totals accordingly. firstDeposit tells the mechanics the
// account has no prior investment record so the participant counter advances.
// Returns the refund owed to the account (0 if fully accepted). Nothing is
// mutated on error.
func ApplyDeposit(inv *Investment, account string, amount uint64, at int64, cfg *Config, catalog *Catalog, ledger *DiscountLedger, totals *Totals, firstDeposit bool) (DepositResult, error) {
	dist, err := Allocate(account, amount, at, cfg, catalog, ledger, *totals)
	if err != nil {
		return DepositResult{}, err
	}

	if dist.Kind == DistRefund {
		return DepositResult{Distribution: dist, Refund: amount}, nil
	}

	// Convert the accepted weights into the units the investment ledger uses
	// before touching any state, so arithmetic failures leave no trace.
	type phaseCredit struct {
		id     uint16
		assets uint64
	}
	var credits []phaseCredit
	var soldDelta uint64

	toAssets := func(weight uint64) (uint64, error) {
		if !cfg.IsFixedPrice() {
			return weight, nil
		}
		return MulDiv(weight, cfg.Mechanic.SaleUnit, cfg.Mechanic.DepositUnit)
	}

	switch dist.Kind {
	case DistWithoutDiscount:
		assets, err := toAssets(dist.Weight)
		if err != nil {
			return DepositResult{}, fmt.Errorf("public weight conversion: %w", err)
		}
		soldDelta = assets
	case DistWithDiscount:
		for _, pw := range dist.PhaseWeights {
			assets, err := toAssets(pw.Weight)
			if err != nil {
				return DepositResult{}, fmt.Errorf("phase %d weight conversion: %w", pw.PhaseID, err)
			}
			credits = append(credits, phaseCredit{id: pw.PhaseID, assets: assets})
			soldDelta, err = CheckedAdd(soldDelta, assets)
			if err != nil {
				return DepositResult{}, err
			}
		}
		pub, err := toAssets(dist.PublicWeight)
		if err != nil {
			return DepositResult{}, fmt.Errorf("public weight conversion: %w", err)
		}
		soldDelta, err = CheckedAdd(soldDelta, pub)
		if err != nil {
			return DepositResult{}, err
		}
	}

	accepted := SatSub(amount, dist.Refund)

	newWeight, err := CheckedAdd(inv.Weight, soldDelta)
	if err != nil {
		return DepositResult{}, err
	}
	newSold, err := CheckedAdd(totals.SoldTokens, soldDelta)
	if err != nil {
		return DepositResult{}, err
	}
	newAmount, err := CheckedAdd(inv.Amount, accepted)
	if err != nil {
		return DepositResult{}, err
	}
	newDeposited, err := CheckedAdd(totals.Deposited, accepted)
	if err != nil {
		return DepositResult{}, err
	}

	inv.Weight = newWeight
	inv.Amount = newAmount
	totals.SoldTokens = newSold
	totals.Deposited = newDeposited
	for _, c := range credits {
		ledger.Record(c.id, account, c.assets)
	}
	if firstDeposit && accepted > 0 {
		totals.Participants++
	}

	refund := dist.Refund

	// Concurrent phase math can momentarily push past the global cap under
	// fixed price; hard-clip the excess back out and refund it undiscounted.
	if cfg.IsFixedPrice() && totals.SoldTokens > cfg.SaleAmount {
		excess := totals.SoldTokens - cfg.SaleAmount
		refundUnits, err := MulDiv(excess, cfg.Mechanic.DepositUnit, cfg.Mechanic.SaleUnit)
		if err != nil {
			return DepositResult{}, fmt.Errorf("cap clip: %w", err)
		}

		inv.Weight = SatSub(inv.Weight, excess)
		totals.SoldTokens = cfg.SaleAmount
		inv.Amount = SatSub(inv.Amount, refundUnits)
		totals.Deposited = SatSub(totals.Deposited, refundUnits)
		refund += refundUnits

		slog.Warn("deposit clipped at global sale cap",
			"account", account,
			"excessAssets", excess,
			"extraRefund", refundUnits,
		)
	}

	return DepositResult{Distribution: dist, Refund: refund}, nil
}

// ApplyWithdraw removes a deposit from the ledgers. Fixed price only supports
// full withdrawal; price discovery supports partial withdrawal with the weight
// recomputed under the discount active now. Nothing is mutated on error.
func ApplyWithdraw(inv *Investment, account string, amount uint64, at int64, cfg *Config, catalog *Catalog, ledger *DiscountLedger, totals *Totals) error {
	if amount > inv.Amount {
		return config.ErrInsufficientFunds
	}

	if cfg.IsFixedPrice() {
		if amount != inv.Amount {
			return config.ErrPartialWithdrawal
		}
		totals.SoldTokens = SatSub(totals.SoldTokens, inv.Weight)
		totals.Deposited = SatSub(totals.Deposited, amount)
		inv.Amount = 0
		inv.Weight = 0
		return nil
	}

	remaining := inv.Amount - amount

	bp, err := currentDiscountBP(account, at, catalog, ledger)
	if err != nil {
		return err
	}
	newWeight, err := ApplyDiscount(remaining, bp)
	if err != nil {
		return err
	}

	// A recomputed weight above the prior one (the discount grew since the
	// original deposit) keeps the old weight; total sold tokens never adjust
	// upward on withdrawal.
	if newWeight < inv.Weight {
		totals.SoldTokens = SatSub(totals.SoldTokens, inv.Weight-newWeight)
		inv.Weight = newWeight
	}

	totals.Deposited = SatSub(totals.Deposited, amount)
	inv.Amount = remaining
	return nil
}

// currentDiscountBP returns the discount of the first phase the account is
// eligible for at t, or 0 when only the public tier applies.
func currentDiscountBP(account string, at int64, catalog *Catalog, ledger *DiscountLedger) (uint16, error) {
	eligible, err := eligiblePhases(account, at, catalog, ledger)
	if err != nil {
		return 0, err
	}
	if len(eligible) == 0 {
		return 0, nil
	}
	return eligible[0].DiscountBP, nil
}
