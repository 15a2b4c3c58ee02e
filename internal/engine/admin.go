package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tokenlaunch/salecore/internal/config"
	"github.com/tokenlaunch/salecore/internal/metrics"
	"github.com/tokenlaunch/salecore/internal/sale"
	"github.com/tokenlaunch/salecore/internal/transfer"
)

// AdminWithdrawReceipt reports how an admin withdrawal was split and settled.
type AdminWithdrawReceipt struct {
	Requested  uint64 `json:"requested"`
	Designated uint64 `json:"designated"`
	Delivered  uint64 `json:"delivered"`
}

// AdminWithdraw moves sale proceeds out of custody after a successful sale.
// A configured share is diverted to the designated account first; value the
// designator declined in earlier withdrawals reduces the share until it is
// made whole. Amount zero withdraws the full custody balance.
//
// Unlike participant settlements this takes no per-account lock: the operator
// owns the proceeds and is responsible for not racing their own withdrawals.
func (e *Engine) AdminWithdraw(ctx context.Context, destination string, amount uint64) (AdminWithdrawReceipt, error) {
	if err := transfer.ValidateDestination(e.network, destination); err != nil {
		return AdminWithdrawReceipt{}, err
	}

	e.mu.Lock()
	if st := e.status(); st != sale.StatusSuccess {
		e.mu.Unlock()
		return AdminWithdrawReceipt{}, fmt.Errorf("%w: proceeds withdraw requires a successful sale, sale is %s", config.ErrWrongSaleStatus, st)
	}
	cfg := e.cfg
	designatorCredit := e.refunds.Designator
	e.mu.Unlock()

	if amount == 0 {
		balance, err := e.mover.BalanceOf(ctx, e.holder)
		if err != nil {
			return AdminWithdrawReceipt{}, fmt.Errorf("default withdraw amount: %w", err)
		}
		amount = balance
	}
	if amount == 0 {
		return AdminWithdrawReceipt{}, config.ErrZeroAmount
	}

	var designated, creditApplied uint64
	if cfg.DesignatedBP > 0 {
		cut, err := sale.MulDiv(amount, uint64(cfg.DesignatedBP), config.BasisPointsDenom)
		if err != nil {
			return AdminWithdrawReceipt{}, err
		}
		designated = sale.SatSub(cut, designatorCredit)
		creditApplied = cut - designated
	}
	main := amount - designated

	var designatedDelivered uint64
	if designated > 0 {
		out, err := e.mover.Transfer(ctx, cfg.DesignatedAccount, designated, "designated share")
		if err != nil {
			slog.Error("designated share transfer failed",
				"account", cfg.DesignatedAccount, "amount", designated, "error", err)
			metrics.SettlementTransfers.WithLabelValues("admin_designated", "failed").Inc()
		} else {
			designatedDelivered = out.Accepted
			metrics.SettlementTransfers.WithLabelValues("admin_designated", "ok").Inc()
		}
	}

	var delivered uint64
	out, terr := e.mover.Transfer(ctx, destination, main, "proceeds withdrawal")
	if terr != nil {
		slog.Error("proceeds transfer failed", "destination", destination, "amount", main, "error", terr)
		metrics.SettlementTransfers.WithLabelValues("admin_withdraw", "failed").Inc()
	} else {
		delivered = out.Accepted
		metrics.SettlementTransfers.WithLabelValues("admin_withdraw", "ok").Inc()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Declined designated value is owed to the designator on the next
	// withdrawal; applied credit is consumed.
	e.refunds.Designator = sale.SatSub(e.refunds.Designator, creditApplied) + (designated - designatedDelivered)
	e.refunds.Solver += main - delivered
	if err := e.persistState(); err != nil {
		return AdminWithdrawReceipt{}, err
	}

	slog.Info("proceeds withdrawal settled",
		"requested", amount,
		"designated", designated,
		"designatedDelivered", designatedDelivered,
		"delivered", delivered,
	)

	if terr != nil && delivered == 0 {
		return AdminWithdrawReceipt{}, fmt.Errorf("proceeds transfer: %w", terr)
	}
	return AdminWithdrawReceipt{Requested: amount, Designated: designatedDelivered, Delivered: delivered}, nil
}

// DistributionDelivery is one target's outcome within a distribution round.
type DistributionDelivery struct {
	Account   string `json:"account"`
	Requested uint64 `json:"requested"`
	Delivered uint64 `json:"delivered"`
}

// Distribute delivers the solver and stakeholder allocations after a
// successful sale. Each round settles at most a fixed batch of targets;
// partially accepted transfers leave the remainder pending, so re-invoking
// Distribute is the retry mechanism. Returns ErrAlreadyDistributed once every
// target is fully delivered.
func (e *Engine) Distribute(ctx context.Context) ([]DistributionDelivery, error) {
	e.mu.Lock()

	if st := e.status(); st != sale.StatusSuccess {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: distribution requires a successful sale, sale is %s", config.ErrWrongSaleStatus, st)
	}

	type target struct {
		account string
		pending uint64
	}
	var round []target
	var anyBusy bool
	for _, t := range e.distributionTargets() {
		if _, busy := e.busy[t.Account]; busy {
			anyBusy = true
			continue
		}
		pending := sale.SatSub(t.Allocation, e.progress[t.Account])
		if pending == 0 {
			continue
		}
		round = append(round, target{account: t.Account, pending: pending})
		if len(round) == config.DistributionBatchSize {
			break
		}
	}

	if len(round) == 0 {
		e.mu.Unlock()
		if anyBusy {
			return nil, config.ErrStillInProgress
		}
		return nil, config.ErrAlreadyDistributed
	}

	for _, t := range round {
		e.busy[t.account] = struct{}{}
		if err := e.store.UpsertDistributionProgress(t.account, e.progress[t.account], true); err != nil {
			for _, u := range round {
				delete(e.busy, u.account)
			}
			e.mu.Unlock()
			return nil, fmt.Errorf("mark distribution busy: %w", err)
		}
	}
	e.mu.Unlock()

	var report []DistributionDelivery
	for _, t := range round {
		out, terr := e.mover.Transfer(ctx, t.account, t.pending, "allocation distribution")
		delivered := out.Accepted
		if terr != nil {
			delivered = 0
			slog.Error("distribution transfer failed",
				"account", t.account, "amount", t.pending, "error", terr)
			metrics.SettlementTransfers.WithLabelValues("distribution", "failed").Inc()
		} else if delivered < t.pending {
			metrics.SettlementTransfers.WithLabelValues("distribution", "partial").Inc()
		} else {
			metrics.SettlementTransfers.WithLabelValues("distribution", "ok").Inc()
		}

		e.mu.Lock()
		e.progress[t.account] += delivered
		delete(e.busy, t.account)
		if err := e.store.UpsertDistributionProgress(t.account, e.progress[t.account], false); err != nil {
			slog.Error("failed to persist distribution progress", "account", t.account, "error", err)
		}
		e.mu.Unlock()

		metrics.DistributedAmount.Add(float64(delivered))
		slog.Info("distribution delivery settled",
			"account", t.account,
			"requested", t.pending,
			"delivered", delivered,
		)
		report = append(report, DistributionDelivery{Account: t.account, Requested: t.pending, Delivered: delivered})
	}

	return report, nil
}

// distributionTargets returns the solver and stakeholders in settlement order.
// Callers hold mu.
func (e *Engine) distributionTargets() []sale.Stakeholder {
	var targets []sale.Stakeholder
	if e.cfg.SolverAllocation > 0 {
		targets = append(targets, sale.Stakeholder{Account: e.cfg.SolverAccount, Allocation: e.cfg.SolverAllocation})
	}
	targets = append(targets, e.cfg.Stakeholders...)
	return targets
}

// SetTGE sets the token generation event timestamp. Frozen once the sale has
// resolved: claims may already have been computed against the old value.
func (e *Engine) SetTGE(tge int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if st := e.status(); st == sale.StatusSuccess || st == sale.StatusFailed {
		return config.ErrTGEFrozen
	}

	e.cfg.TGE = &tge
	if err := e.persistState(); err != nil {
		return err
	}
	slog.Info("token generation event set", "tge", tge)
	return nil
}

// SetLocked toggles the admin emergency lock. While locked every mutating
// operation is rejected with the locked status.
func (e *Engine) SetLocked(locked bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.locked = locked
	if err := e.persistState(); err != nil {
		return err
	}
	slog.Warn("sale lock changed", "locked", locked)
	return nil
}

// AddWhitelist admits accounts to a discount phase. Adding the first member
// turns an open phase into a gated one.
func (e *Engine) AddWhitelist(phase uint16, accounts []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.catalog.Get(phase); err != nil {
		return err
	}
	if len(accounts) == 0 {
		return nil
	}

	e.discounts.AddWhitelist(phase, accounts)
	if err := e.store.AddWhitelist(phase, accounts); err != nil {
		return err
	}
	slog.Info("whitelist extended", "phase", phase, "accounts", len(accounts))
	return nil
}
