package db

import (
	"fmt"

	"github.com/tokenlaunch/salecore/internal/sale"
)

// UpsertInvestment writes an account's investment record.
func (d *DB) UpsertInvestment(account string, inv sale.Investment) error {
	_, err := d.conn.Exec(
		`INSERT INTO investments (account, amount, weight, claimed)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(account) DO UPDATE SET amount = excluded.amount, weight = excluded.weight, claimed = excluded.claimed`,
		account, int64(inv.Amount), int64(inv.Weight), int64(inv.Claimed),
	)
	if err != nil {
		return fmt.Errorf("upsert investment %s: %w", account, err)
	}
	return nil
}

// GetInvestment reads one account's investment record.
func (d *DB) GetInvestment(account string) (sale.Investment, bool, error) {
	var amount, weight, claimed int64
	err := d.conn.QueryRow(
		`SELECT amount, weight, claimed FROM investments WHERE account = ?`, account,
	).Scan(&amount, &weight, &claimed)
	if err != nil {
		if isNoRows(err) {
			return sale.Investment{}, false, nil
		}
		return sale.Investment{}, false, fmt.Errorf("get investment %s: %w", account, err)
	}
	return sale.Investment{Amount: uint64(amount), Weight: uint64(weight), Claimed: uint64(claimed)}, true, nil
}

// AllInvestments returns every investment record keyed by account.
func (d *DB) AllInvestments() (map[string]sale.Investment, error) {
	rows, err := d.conn.Query(`SELECT account, amount, weight, claimed FROM investments`)
	if err != nil {
		return nil, fmt.Errorf("query investments: %w", err)
	}
	defer rows.Close()

	out := make(map[string]sale.Investment)
	for rows.Next() {
		var account string
		var amount, weight, claimed int64
		if err := rows.Scan(&account, &amount, &weight, &claimed); err != nil {
			return nil, fmt.Errorf("scan investment row: %w", err)
		}
		out[account] = sale.Investment{Amount: uint64(amount), Weight: uint64(weight), Claimed: uint64(claimed)}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate investment rows: %w", err)
	}
	return out, nil
}

// SaleState is the single-row global state of the sale.
type SaleState struct {
	Totals  sale.Totals
	Refunds sale.SettlementRefunds
	TGE     *int64
	Locked  bool
}

// SaveSaleState writes the global sale state row.
func (d *DB) SaveSaleState(s SaleState) error {
	var tge any
	if s.TGE != nil {
		tge = *s.TGE
	}
	locked := 0
	if s.Locked {
		locked = 1
	}
	_, err := d.conn.Exec(
		`UPDATE sale_state SET deposited = ?, sold_tokens = ?, participants = ?,
		 solver_refund = ?, designator_refund = ?, tge = ?, locked = ? WHERE id = 1`,
		int64(s.Totals.Deposited), int64(s.Totals.SoldTokens), int64(s.Totals.Participants),
		int64(s.Refunds.Solver), int64(s.Refunds.Designator), tge, locked,
	)
	if err != nil {
		return fmt.Errorf("save sale state: %w", err)
	}
	return nil
}

// GetSaleState reads the global sale state row.
func (d *DB) GetSaleState() (SaleState, error) {
	var deposited, soldTokens, participants, solverRefund, designatorRefund, locked int64
	var tge *int64
	err := d.conn.QueryRow(
		`SELECT deposited, sold_tokens, participants, solver_refund, designator_refund, tge, locked
		 FROM sale_state WHERE id = 1`,
	).Scan(&deposited, &soldTokens, &participants, &solverRefund, &designatorRefund, &tge, &locked)
	if err != nil {
		return SaleState{}, fmt.Errorf("get sale state: %w", err)
	}
	return SaleState{
		Totals: sale.Totals{
			Deposited:    uint64(deposited),
			SoldTokens:   uint64(soldTokens),
			Participants: uint64(participants),
		},
		Refunds: sale.SettlementRefunds{Solver: uint64(solverRefund), Designator: uint64(designatorRefund)},
		TGE:     tge,
		Locked:  locked != 0,
	}, nil
}
