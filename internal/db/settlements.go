package db

import (
	"fmt"
	"time"

	"github.com/tokenlaunch/salecore/internal/sale"
)

// Settlement journal states.
const (
	SettlementDispatched = "dispatched"
	SettlementReconciled = "reconciled"
)

// SettlementRow is one journaled settlement request with the pre-mutation
// snapshot needed to roll the ledger back if the process dies between
// dispatch and reconciliation.
type SettlementRow struct {
	ID          string
	Kind        string
	Account     string
	Destination string
	Requested   uint64
	Accepted    uint64
	State       string

	SnapExisted    bool
	SnapInvestment sale.Investment
	SnapTotals     sale.Totals

	CreatedAt    string
	ReconciledAt string
}

// InsertSettlement journals a dispatched settlement with its rollback snapshot.
func (d *DB) InsertSettlement(row SettlementRow) error {
	existed := 0
	if row.SnapExisted {
		existed = 1
	}
	_, err := d.conn.Exec(
		`INSERT INTO settlements
		 (id, kind, account, destination, requested, state,
		  snap_existed, snap_amount, snap_weight, snap_claimed,
		  snap_deposited, snap_sold_tokens, snap_participants, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.Kind, row.Account, row.Destination, int64(row.Requested), SettlementDispatched,
		existed, int64(row.SnapInvestment.Amount), int64(row.SnapInvestment.Weight), int64(row.SnapInvestment.Claimed),
		int64(row.SnapTotals.Deposited), int64(row.SnapTotals.SoldTokens), int64(row.SnapTotals.Participants),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert settlement %s: %w", row.ID, err)
	}
	return nil
}

// ReconcileSettlement marks a settlement reconciled with the accepted amount.
func (d *DB) ReconcileSettlement(id string, accepted uint64) error {
	_, err := d.conn.Exec(
		`UPDATE settlements SET state = ?, accepted = ?, reconciled_at = ? WHERE id = ?`,
		SettlementReconciled, int64(accepted), time.Now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("reconcile settlement %s: %w", id, err)
	}
	return nil
}

// DispatchedSettlements returns journal rows still waiting for reconciliation.
// After a crash these are treated as failed transfers and rolled back.
func (d *DB) DispatchedSettlements() ([]SettlementRow, error) {
	rows, err := d.conn.Query(
		`SELECT id, kind, account, destination, requested, accepted, state,
		        snap_existed, snap_amount, snap_weight, snap_claimed,
		        snap_deposited, snap_sold_tokens, snap_participants, created_at
		 FROM settlements WHERE state = ? ORDER BY created_at`,
		SettlementDispatched,
	)
	if err != nil {
		return nil, fmt.Errorf("query dispatched settlements: %w", err)
	}
	defer rows.Close()

	var out []SettlementRow
	for rows.Next() {
		var r SettlementRow
		var requested, accepted, existed int64
		var amount, weight, claimed, deposited, sold, participants int64
		if err := rows.Scan(&r.ID, &r.Kind, &r.Account, &r.Destination, &requested, &accepted, &r.State,
			&existed, &amount, &weight, &claimed, &deposited, &sold, &participants, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan settlement row: %w", err)
		}
		r.Requested = uint64(requested)
		r.Accepted = uint64(accepted)
		r.SnapExisted = existed != 0
		r.SnapInvestment = sale.Investment{Amount: uint64(amount), Weight: uint64(weight), Claimed: uint64(claimed)}
		r.SnapTotals = sale.Totals{Deposited: uint64(deposited), SoldTokens: uint64(sold), Participants: uint64(participants)}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settlement rows: %w", err)
	}
	return out, nil
}

// UpsertDistributionProgress writes a stakeholder's distribution counters.
func (d *DB) UpsertDistributionProgress(account string, distributed uint64, busy bool) error {
	b := 0
	if busy {
		b = 1
	}
	_, err := d.conn.Exec(
		`INSERT INTO distribution_progress (account, distributed, busy)
		 VALUES (?, ?, ?)
		 ON CONFLICT(account) DO UPDATE SET distributed = excluded.distributed, busy = excluded.busy`,
		account, int64(distributed), b,
	)
	if err != nil {
		return fmt.Errorf("upsert distribution progress %s: %w", account, err)
	}
	return nil
}

// LoadDistributionProgress returns distributed amounts per stakeholder.
// Busy flags are intentionally not restored: a process restart means no
// transfer is in flight anymore.
func (d *DB) LoadDistributionProgress() (map[string]uint64, error) {
	rows, err := d.conn.Query(`SELECT account, distributed FROM distribution_progress`)
	if err != nil {
		return nil, fmt.Errorf("query distribution progress: %w", err)
	}
	defer rows.Close()

	out := make(map[string]uint64)
	for rows.Next() {
		var account string
		var distributed int64
		if err := rows.Scan(&account, &distributed); err != nil {
			return nil, fmt.Errorf("scan distribution progress row: %w", err)
		}
		out[account] = uint64(distributed)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate distribution progress rows: %w", err)
	}
	return out, nil
}
