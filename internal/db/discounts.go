package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/tokenlaunch/salecore/internal/sale"
)

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// RecordDiscountPurchase adds an accepted purchase to the persisted phase and
// per-account counters.
func (d *DB) RecordDiscountPurchase(phase uint16, account string, saleTokens uint64) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin discount purchase: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO discount_phase (phase_id, sold) VALUES (?, ?)
		 ON CONFLICT(phase_id) DO UPDATE SET sold = sold + excluded.sold`,
		phase, int64(saleTokens),
	); err != nil {
		tx.Rollback()
		return fmt.Errorf("record phase %d consumption: %w", phase, err)
	}
	if _, err := tx.Exec(
		`INSERT INTO discount_account (phase_id, account, sold) VALUES (?, ?, ?)
		 ON CONFLICT(phase_id, account) DO UPDATE SET sold = sold + excluded.sold`,
		phase, account, int64(saleTokens),
	); err != nil {
		tx.Rollback()
		return fmt.Errorf("record account %s consumption in phase %d: %w", account, phase, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit discount purchase: %w", err)
	}
	return nil
}

// AddWhitelist persists whitelist members for a phase.
func (d *DB) AddWhitelist(phase uint16, accounts []string) error {
	if len(accounts) == 0 {
		return nil
	}
	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin whitelist insert: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO whitelist (phase_id, account) VALUES (?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare whitelist insert: %w", err)
	}
	defer stmt.Close()
	for _, a := range accounts {
		if _, err := stmt.Exec(phase, a); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert whitelist %d/%s: %w", phase, a, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit whitelist insert: %w", err)
	}
	return nil
}

// LoadDiscountLedger rebuilds the in-memory discount ledger from the
// persisted counters and whitelists.
func (d *DB) LoadDiscountLedger() (*sale.DiscountLedger, error) {
	ledger := sale.NewDiscountLedger()

	rows, err := d.conn.Query(`SELECT phase_id, account, sold FROM discount_account`)
	if err != nil {
		return nil, fmt.Errorf("query discount accounts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var phase uint16
		var account string
		var sold int64
		if err := rows.Scan(&phase, &account, &sold); err != nil {
			return nil, fmt.Errorf("scan discount account row: %w", err)
		}
		ledger.Record(phase, account, uint64(sold))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate discount account rows: %w", err)
	}

	wl, err := d.conn.Query(`SELECT phase_id, account FROM whitelist`)
	if err != nil {
		return nil, fmt.Errorf("query whitelists: %w", err)
	}
	defer wl.Close()
	for wl.Next() {
		var phase uint16
		var account string
		if err := wl.Scan(&phase, &account); err != nil {
			return nil, fmt.Errorf("scan whitelist row: %w", err)
		}
		ledger.AddWhitelist(phase, []string{account})
	}
	if err := wl.Err(); err != nil {
		return nil, fmt.Errorf("iterate whitelist rows: %w", err)
	}

	return ledger, nil
}
