package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tokenlaunch/salecore/internal/config"
	"github.com/tokenlaunch/salecore/internal/db"
	"github.com/tokenlaunch/salecore/internal/metrics"
	"github.com/tokenlaunch/salecore/internal/sale"
	"github.com/tokenlaunch/salecore/internal/transfer"
)

// DepositReceipt is the settled outcome of a deposit.
type DepositReceipt struct {
	// Accepted is the deposit value kept in the sale after reconciliation.
	Accepted uint64 `json:"accepted"`
	// Refunded is the value actually delivered back to the destination.
	Refunded uint64 `json:"refunded"`
}

// Deposit applies a deposit to the ledger and, when part of it cannot be
// accepted, settles the refund through the custody service. The destination
// receives any refund.
func (e *Engine) Deposit(ctx context.Context, account string, amount uint64, destination string) (DepositReceipt, error) {
	if amount == 0 {
		return DepositReceipt{}, config.ErrZeroAmount
	}
	if err := transfer.ValidateDestination(e.network, destination); err != nil {
		return DepositReceipt{}, err
	}

	e.mu.Lock()

	if st := e.status(); st != sale.StatusOngoing {
		e.mu.Unlock()
		return DepositReceipt{}, fmt.Errorf("%w: deposit requires an ongoing sale, sale is %s", config.ErrWrongSaleStatus, st)
	}
	if err := e.lockAccount(account); err != nil {
		e.mu.Unlock()
		return DepositReceipt{}, err
	}

	inv, existed := e.investments[account]

	res, err := sale.ApplyDeposit(&inv, account, amount, e.now(), e.cfg, e.catalog, e.discounts, &e.totals, !existed)
	if err != nil {
		e.unlockAccount(account)
		e.mu.Unlock()
		return DepositReceipt{}, err
	}

	// A pure refund leaves no position; writing a zero row would make the
	// account look like a returning depositor.
	if res.Distribution.Kind != sale.DistRefund {
		e.investments[account] = inv
		e.recordPhasePurchases(account, res.Distribution)
		if err := e.persistAccount(account, inv); err != nil {
			e.unlockAccount(account)
			e.mu.Unlock()
			return DepositReceipt{}, err
		}
	}

	accepted := sale.SatSub(amount, res.Refund)
	metrics.DepositsTotal.Inc()
	metrics.DepositedAmount.Add(float64(accepted))
	metrics.SaleParticipants.Set(float64(e.totals.Participants))
	metrics.SaleSoldTokens.Set(float64(e.totals.SoldTokens))

	slog.Info("deposit applied",
		"account", account,
		"amount", amount,
		"accepted", accepted,
		"refund", res.Refund,
		"kind", res.Distribution.Kind,
	)

	if res.Refund == 0 {
		e.unlockAccount(account)
		e.mu.Unlock()
		return DepositReceipt{Accepted: amount}, nil
	}

	// Journal the refund before dispatching it. If the journal write fails the
	// refund is kept on the account's books instead of leaving custody.
	id := uuid.NewString()
	row := db.SettlementRow{
		ID:             id,
		Kind:           KindDepositRefund,
		Account:        account,
		Destination:    destination,
		Requested:      res.Refund,
		SnapExisted:    existed,
		SnapInvestment: inv,
		SnapTotals:     e.totals,
	}
	if err := e.store.InsertSettlement(row); err != nil {
		slog.Error("refund journal write failed, keeping refund on the books",
			"account", account, "refund", res.Refund, "error", err)
		e.creditUnused(account, res.Refund)
		perr := e.persistAccount(account, e.investments[account])
		e.unlockAccount(account)
		e.mu.Unlock()
		return DepositReceipt{Accepted: amount}, perr
	}

	// Account stays locked while the transfer is in flight.
	e.mu.Unlock()
	out, terr := e.mover.Transfer(ctx, destination, res.Refund, "deposit refund")
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.unlockAccount(account)

	delivered := e.reconcile(row, out, terr)
	if inv, ok := e.investments[account]; ok {
		if err := e.persistAccount(account, inv); err != nil {
			return DepositReceipt{}, err
		}
	}
	metrics.RefundedAmount.Add(float64(delivered))

	return DepositReceipt{Accepted: amount - delivered, Refunded: delivered}, nil
}

// Withdraw removes deposit value from the sale and sends it to the
// destination. Allowed while the sale is ongoing, and after a failed sale to
// exit the position.
func (e *Engine) Withdraw(ctx context.Context, account string, amount uint64, destination string) (uint64, error) {
	if amount == 0 {
		return 0, config.ErrZeroAmount
	}
	if err := transfer.ValidateDestination(e.network, destination); err != nil {
		return 0, err
	}

	e.mu.Lock()

	if st := e.status(); st != sale.StatusOngoing && st != sale.StatusFailed {
		e.mu.Unlock()
		return 0, fmt.Errorf("%w: withdraw requires an ongoing or failed sale, sale is %s", config.ErrWrongSaleStatus, st)
	}
	if err := e.lockAccount(account); err != nil {
		e.mu.Unlock()
		return 0, err
	}

	inv, ok := e.investments[account]
	if !ok {
		e.unlockAccount(account)
		e.mu.Unlock()
		return 0, config.ErrInsufficientFunds
	}
	snapshot := inv

	if err := sale.ApplyWithdraw(&inv, account, amount, e.now(), e.cfg, e.catalog, e.discounts, &e.totals); err != nil {
		e.unlockAccount(account)
		e.mu.Unlock()
		return 0, err
	}

	e.investments[account] = inv

	id := uuid.NewString()
	row := db.SettlementRow{
		ID:             id,
		Kind:           KindWithdraw,
		Account:        account,
		Destination:    destination,
		Requested:      amount,
		SnapExisted:    true,
		SnapInvestment: snapshot,
		SnapTotals:     e.totals,
	}
	if err := e.store.InsertSettlement(row); err != nil {
		// Nothing was dispatched; put the position back.
		e.totals.Deposited += amount
		e.totals.SoldTokens += sale.SatSub(snapshot.Weight, inv.Weight)
		e.investments[account] = snapshot
		e.unlockAccount(account)
		e.mu.Unlock()
		return 0, fmt.Errorf("journal withdrawal: %w", err)
	}
	if err := e.persistAccount(account, inv); err != nil {
		// Close the journal row so recovery does not re-apply the rollback.
		e.totals.Deposited += amount
		e.totals.SoldTokens += sale.SatSub(snapshot.Weight, inv.Weight)
		e.investments[account] = snapshot
		if rerr := e.store.ReconcileSettlement(id, 0); rerr != nil {
			slog.Error("failed to close settlement journal row", "id", id, "error", rerr)
		}
		e.unlockAccount(account)
		e.mu.Unlock()
		return 0, err
	}

	e.mu.Unlock()
	out, terr := e.mover.Transfer(ctx, destination, amount, "withdrawal")
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.unlockAccount(account)

	delivered := e.reconcile(row, out, terr)
	if err := e.persistAccount(account, e.investments[account]); err != nil {
		return 0, err
	}

	metrics.WithdrawalsTotal.Inc()
	metrics.SaleSoldTokens.Set(float64(e.totals.SoldTokens))

	slog.Info("withdrawal settled",
		"account", account,
		"requested", amount,
		"delivered", delivered,
	)

	if delivered == 0 && terr != nil {
		return 0, fmt.Errorf("withdrawal transfer: %w", terr)
	}
	return delivered, nil
}

// Claim releases the vested part of an account's allocation and sends it to
// the destination. Only available after a successful sale.
func (e *Engine) Claim(ctx context.Context, account string, destination string) (uint64, error) {
	if err := transfer.ValidateDestination(e.network, destination); err != nil {
		return 0, err
	}

	e.mu.Lock()

	if st := e.status(); st != sale.StatusSuccess {
		e.mu.Unlock()
		return 0, fmt.Errorf("%w: claim requires a successful sale, sale is %s", config.ErrWrongSaleStatus, st)
	}
	if err := e.lockAccount(account); err != nil {
		e.mu.Unlock()
		return 0, err
	}

	inv, ok := e.investments[account]
	if !ok {
		e.unlockAccount(account)
		e.mu.Unlock()
		return 0, config.ErrNothingToClaim
	}

	claimable, err := sale.ClaimableNow(inv, e.totals.SoldTokens, e.cfg, e.now())
	if err != nil {
		e.unlockAccount(account)
		e.mu.Unlock()
		return 0, err
	}
	if claimable == 0 {
		e.unlockAccount(account)
		e.mu.Unlock()
		return 0, config.ErrNothingToClaim
	}

	snapshot := inv
	inv.Claimed += claimable
	e.investments[account] = inv

	id := uuid.NewString()
	row := db.SettlementRow{
		ID:             id,
		Kind:           KindClaim,
		Account:        account,
		Destination:    destination,
		Requested:      claimable,
		SnapExisted:    true,
		SnapInvestment: snapshot,
		SnapTotals:     e.totals,
	}
	if err := e.store.InsertSettlement(row); err != nil {
		e.investments[account] = snapshot
		e.unlockAccount(account)
		e.mu.Unlock()
		return 0, fmt.Errorf("journal claim: %w", err)
	}
	if err := e.persistAccount(account, inv); err != nil {
		e.investments[account] = snapshot
		if rerr := e.store.ReconcileSettlement(id, 0); rerr != nil {
			slog.Error("failed to close settlement journal row", "id", id, "error", rerr)
		}
		e.unlockAccount(account)
		e.mu.Unlock()
		return 0, err
	}

	e.mu.Unlock()
	out, terr := e.mover.Transfer(ctx, destination, claimable, "claim")
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.unlockAccount(account)

	delivered := e.reconcile(row, out, terr)
	if err := e.persistAccount(account, e.investments[account]); err != nil {
		return 0, err
	}

	metrics.ClaimsTotal.Inc()
	metrics.ClaimedAmount.Add(float64(delivered))

	slog.Info("claim settled",
		"account", account,
		"claimable", claimable,
		"delivered", delivered,
	)

	if delivered == 0 && terr != nil {
		return 0, fmt.Errorf("claim transfer: %w", terr)
	}
	return delivered, nil
}

// reconcile adjusts the ledger to the amount the custody service accepted and
// closes the journal row. A fully failed or zero-accepted transfer restores
// the row's snapshot exactly; partial acceptance tops the ledger up with the
// unused remainder. Callers hold mu. Returns the delivered amount.
func (e *Engine) reconcile(row db.SettlementRow, out transfer.Outcome, terr error) uint64 {
	accepted := out.Accepted
	if terr != nil {
		accepted = 0
		slog.Error("settlement transfer failed",
			"id", row.ID,
			"kind", row.Kind,
			"account", row.Account,
			"requested", row.Requested,
			"error", terr,
		)
		metrics.SettlementTransfers.WithLabelValues(row.Kind, "failed").Inc()
	} else if accepted < row.Requested {
		metrics.SettlementTransfers.WithLabelValues(row.Kind, "partial").Inc()
	} else {
		metrics.SettlementTransfers.WithLabelValues(row.Kind, "ok").Inc()
	}

	unused := sale.SatSub(row.Requested, accepted)
	if unused > 0 {
		inv := e.investments[row.Account]
		switch row.Kind {
		case KindClaim:
			// The tokens never left custody; they stay claimable.
			inv.Claimed = sale.SatSub(inv.Claimed, unused)
			e.investments[row.Account] = inv
		case KindWithdraw:
			if accepted == 0 {
				// Nothing left custody; restore the position exactly.
				e.totals.Deposited += row.Requested
				e.totals.SoldTokens += sale.SatSub(row.SnapInvestment.Weight, inv.Weight)
				inv.Amount = row.SnapInvestment.Amount
				inv.Weight = row.SnapInvestment.Weight
				e.investments[row.Account] = inv
			} else {
				e.reabsorbUnused(row.Account, unused)
			}
		case KindDepositRefund:
			// The deposit itself stands; refused refund value re-enters the sale.
			e.reabsorbUnused(row.Account, unused)
		}
		metrics.SettlementRollbacks.WithLabelValues(row.Kind).Inc()
	}

	if err := e.store.ReconcileSettlement(row.ID, accepted); err != nil {
		slog.Error("failed to close settlement journal row", "id", row.ID, "error", err)
	}
	if err := e.persistState(); err != nil {
		slog.Error("failed to persist sale state after reconcile", "id", row.ID, "error", err)
	}

	return accepted
}

// reabsorbUnused puts value the custody service refused to pay out back into
// the sale as a fresh deposit. When the deposit mechanics cannot take it (sale
// resolved, caps, arithmetic), the value is kept as weightless deposit balance
// so a later withdrawal can retry it. Callers hold mu.
func (e *Engine) reabsorbUnused(account string, unused uint64) {
	inv, existed := e.investments[account]
	res, err := sale.ApplyDeposit(&inv, account, unused, e.now(), e.cfg, e.catalog, e.discounts, &e.totals, !existed)
	if err != nil {
		slog.Warn("could not reabsorb unused settlement value as a deposit",
			"account", account, "unused", unused, "error", err)
		e.investments[account] = inv
		e.creditUnused(account, unused)
		return
	}
	e.investments[account] = inv
	e.recordPhasePurchases(account, res.Distribution)
	if res.Refund > 0 {
		// Never dispatch a transfer for value that was itself refused; that
		// would loop. Keep it on the books instead.
		e.creditUnused(account, res.Refund)
	}
}

// creditUnused adds value to an account's deposit balance without weight.
// Callers hold mu.
func (e *Engine) creditUnused(account string, amount uint64) {
	inv := e.investments[account]
	inv.Amount += amount
	e.investments[account] = inv
	e.totals.Deposited += amount
}

// recordPhasePurchases persists the discount-phase consumption of an accepted
// distribution. The in-memory ledger was already updated by the mechanics.
// Callers hold mu.
func (e *Engine) recordPhasePurchases(account string, dist sale.DepositDistribution) {
	for _, pw := range dist.PhaseWeights {
		assets := pw.Weight
		if e.cfg.IsFixedPrice() {
			var err error
			assets, err = sale.MulDiv(pw.Weight, e.cfg.Mechanic.SaleUnit, e.cfg.Mechanic.DepositUnit)
			if err != nil {
				slog.Error("phase purchase conversion failed", "account", account, "phase", pw.PhaseID, "error", err)
				continue
			}
		}
		if err := e.store.RecordDiscountPurchase(pw.PhaseID, account, assets); err != nil {
			slog.Error("failed to persist phase purchase",
				"account", account, "phase", pw.PhaseID, "assets", assets, "error", err)
		}
	}
}

func (e *Engine) persistAccount(account string, inv sale.Investment) error {
	if err := e.store.UpsertInvestment(account, inv); err != nil {
		return err
	}
	return e.persistState()
}
