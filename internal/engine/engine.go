// Package engine holds the mutable sale state and drives every settlement:
// deposits, withdrawals, claims, admin withdrawals and the distribution of
// solver and stakeholder allocations. External transfers are asynchronous and
// may partially fail, so every value-moving operation follows the same shape:
// mutate the ledger optimistically, journal a rollback snapshot, dispatch the
// transfer with the engine mutex released, then reconcile the ledger against
// the amount the custody service actually accepted.
package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/tokenlaunch/salecore/internal/config"
	"github.com/tokenlaunch/salecore/internal/db"
	"github.com/tokenlaunch/salecore/internal/metrics"
	"github.com/tokenlaunch/salecore/internal/sale"
	"github.com/tokenlaunch/salecore/internal/transfer"
)

// Settlement kinds recorded in the journal.
const (
	KindClaim         = "claim"
	KindWithdraw      = "withdraw"
	KindDepositRefund = "deposit_refund"
)

// Engine is the single authority over the sale ledger. All state behind mu;
// the mutex is released while an external transfer is in flight, with the
// affected account held in locks so no second settlement can race it.
type Engine struct {
	mu sync.Mutex

	cfg       *sale.Config
	catalog   *sale.Catalog
	discounts *sale.DiscountLedger

	investments map[string]sale.Investment
	totals      sale.Totals
	refunds     sale.SettlementRefunds
	locked      bool

	// locks holds accounts with a settlement in flight.
	locks map[string]struct{}

	// progress tracks sale tokens already delivered per distribution target.
	progress map[string]uint64
	busy     map[string]struct{}

	mover   transfer.Mover
	store   *db.DB
	clock   clockwork.Clock
	network string
	holder  string
}

// New builds the engine from persisted state and rolls back any settlement
// that was dispatched but never reconciled before the last shutdown.
func New(cfg *sale.Config, catalog *sale.Catalog, store *db.DB, mover transfer.Mover, clock clockwork.Clock, network, holder string) (*Engine, error) {
	investments, err := store.AllInvestments()
	if err != nil {
		return nil, fmt.Errorf("load investments: %w", err)
	}
	state, err := store.GetSaleState()
	if err != nil {
		return nil, fmt.Errorf("load sale state: %w", err)
	}
	discounts, err := store.LoadDiscountLedger()
	if err != nil {
		return nil, fmt.Errorf("load discount ledger: %w", err)
	}
	progress, err := store.LoadDistributionProgress()
	if err != nil {
		return nil, fmt.Errorf("load distribution progress: %w", err)
	}

	if state.TGE != nil && cfg.TGE == nil {
		cfg.TGE = state.TGE
	}

	e := &Engine{
		cfg:         cfg,
		catalog:     catalog,
		discounts:   discounts,
		investments: investments,
		totals:      state.Totals,
		refunds:     state.Refunds,
		locked:      state.Locked,
		locks:       make(map[string]struct{}),
		progress:    progress,
		busy:        make(map[string]struct{}),
		mover:       mover,
		store:       store,
		clock:       clock,
		network:     network,
		holder:      holder,
	}

	if err := e.recoverDispatched(); err != nil {
		return nil, err
	}

	metrics.SaleParticipants.Set(float64(e.totals.Participants))
	metrics.SaleSoldTokens.Set(float64(e.totals.SoldTokens))

	slog.Info("engine initialized",
		"investments", len(investments),
		"deposited", e.totals.Deposited,
		"soldTokens", e.totals.SoldTokens,
		"participants", e.totals.Participants,
		"locked", e.locked,
	)

	return e, nil
}

// recoverDispatched treats every journal row still in the dispatched state as
// a fully failed transfer and rolls the ledger back to its snapshot. Safe
// because a dispatched row can only outlive the process that wrote it when
// the reconcile step never ran.
func (e *Engine) recoverDispatched() error {
	pending, err := e.store.DispatchedSettlements()
	if err != nil {
		return fmt.Errorf("load dispatched settlements: %w", err)
	}

	for _, row := range pending {
		inv := e.investments[row.Account]

		switch row.Kind {
		case KindClaim:
			inv.Claimed = row.SnapInvestment.Claimed
		case KindWithdraw:
			// The withdrawal never reached the account; put the position back.
			e.totals.Deposited += row.Requested
			e.totals.SoldTokens += sale.SatSub(row.SnapInvestment.Weight, inv.Weight)
			inv.Amount = row.SnapInvestment.Amount
			inv.Weight = row.SnapInvestment.Weight
		case KindDepositRefund:
			// The refund never reached the account; keep it on the books as
			// plain deposit value with no weight.
			inv.Amount += row.Requested
			e.totals.Deposited += row.Requested
		default:
			slog.Error("unknown settlement kind in journal", "id", row.ID, "kind", row.Kind)
			continue
		}

		e.investments[row.Account] = inv
		if err := e.store.UpsertInvestment(row.Account, inv); err != nil {
			return fmt.Errorf("recover settlement %s: %w", row.ID, err)
		}
		if err := e.persistState(); err != nil {
			return fmt.Errorf("recover settlement %s: %w", row.ID, err)
		}
		if err := e.store.ReconcileSettlement(row.ID, 0); err != nil {
			return fmt.Errorf("recover settlement %s: %w", row.ID, err)
		}

		metrics.SettlementRollbacks.WithLabelValues(row.Kind).Inc()
		slog.Warn("rolled back interrupted settlement",
			"id", row.ID,
			"kind", row.Kind,
			"account", row.Account,
			"requested", row.Requested,
		)
	}

	return nil
}

func (e *Engine) persistState() error {
	return e.store.SaveSaleState(db.SaleState{
		Totals:  e.totals,
		Refunds: e.refunds,
		TGE:     e.cfg.TGE,
		Locked:  e.locked,
	})
}

func (e *Engine) now() int64 {
	return e.clock.Now().Unix()
}

// status derives the sale status at the current time. Callers hold mu.
func (e *Engine) status() sale.Status {
	return sale.DeriveStatus(e.cfg, e.totals, e.locked, e.now())
}

// lockAccount marks an account as having a settlement in flight. Callers hold mu.
func (e *Engine) lockAccount(account string) error {
	if _, held := e.locks[account]; held {
		return config.ErrStillInProgress
	}
	e.locks[account] = struct{}{}
	return nil
}

func (e *Engine) unlockAccount(account string) {
	delete(e.locks, account)
}

// Status returns the derived sale status.
func (e *Engine) Status() sale.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status()
}

// SaleView is a read-only snapshot of the sale for the API.
type SaleView struct {
	Status     sale.Status            `json:"status"`
	Mechanic   sale.MechanicKind      `json:"mechanic"`
	StartDate  int64                  `json:"startDate"`
	EndDate    int64                  `json:"endDate"`
	SoftCap    uint64                 `json:"softCap"`
	SaleAmount uint64                 `json:"saleAmount"`
	TGE        *int64                 `json:"tge,omitempty"`
	Totals     sale.Totals            `json:"totals"`
	Refunds    sale.SettlementRefunds `json:"refunds"`
}

// Sale returns a snapshot of the sale configuration and global counters.
func (e *Engine) Sale() SaleView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return SaleView{
		Status:     e.status(),
		Mechanic:   e.cfg.Mechanic.Kind,
		StartDate:  e.cfg.StartDate,
		EndDate:    e.cfg.EndDate,
		SoftCap:    e.cfg.SoftCap,
		SaleAmount: e.cfg.SaleAmount,
		TGE:        e.cfg.TGE,
		Totals:     e.totals,
		Refunds:    e.refunds,
	}
}

// InvestmentView is one account's position with its derived claim numbers.
type InvestmentView struct {
	Account    string `json:"account"`
	Amount     uint64 `json:"amount"`
	Weight     uint64 `json:"weight"`
	Claimed    uint64 `json:"claimed"`
	Allocation uint64 `json:"allocation"`
	Claimable  uint64 `json:"claimable"`
}

// Investment returns an account's position. The found flag is false when the
// account never deposited.
func (e *Engine) Investment(account string) (InvestmentView, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	inv, ok := e.investments[account]
	if !ok {
		return InvestmentView{}, false, nil
	}

	allocation, err := sale.UserAllocation(inv.Weight, e.totals.SoldTokens, e.cfg)
	if err != nil {
		return InvestmentView{}, false, err
	}

	var claimable uint64
	if e.status() == sale.StatusSuccess {
		claimable, err = sale.ClaimableNow(inv, e.totals.SoldTokens, e.cfg, e.now())
		if err != nil {
			return InvestmentView{}, false, err
		}
	}

	return InvestmentView{
		Account:    account,
		Amount:     inv.Amount,
		Weight:     inv.Weight,
		Claimed:    inv.Claimed,
		Allocation: allocation,
		Claimable:  claimable,
	}, true, nil
}
