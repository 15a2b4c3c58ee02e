package db

import (
	"path/filepath"
	"testing"

	"github.com/tokenlaunch/salecore/internal/sale"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	d, err := New(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := d.RunMigrations(); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	return d
}

func TestMigrationsIdempotent(t *testing.T) {
	d := testDB(t)
	if err := d.RunMigrations(); err != nil {
		t.Fatalf("second RunMigrations: %v", err)
	}
}

func TestInvestmentRoundTrip(t *testing.T) {
	d := testDB(t)

	if _, found, err := d.GetInvestment("alice"); err != nil || found {
		t.Fatalf("GetInvestment on empty db = found=%v err=%v", found, err)
	}

	want := sale.Investment{Amount: 10_000, Weight: 22_000, Claimed: 5}
	if err := d.UpsertInvestment("alice", want); err != nil {
		t.Fatalf("UpsertInvestment: %v", err)
	}
	got, found, err := d.GetInvestment("alice")
	if err != nil || !found {
		t.Fatalf("GetInvestment: found=%v err=%v", found, err)
	}
	if got != want {
		t.Errorf("GetInvestment = %+v, want %+v", got, want)
	}

	// Overwrite on conflict.
	want.Claimed = 600
	if err := d.UpsertInvestment("alice", want); err != nil {
		t.Fatalf("UpsertInvestment update: %v", err)
	}
	all, err := d.AllInvestments()
	if err != nil {
		t.Fatalf("AllInvestments: %v", err)
	}
	if len(all) != 1 || all["alice"] != want {
		t.Errorf("AllInvestments = %+v", all)
	}
}

func TestSaleStateRoundTrip(t *testing.T) {
	d := testDB(t)

	initial, err := d.GetSaleState()
	if err != nil {
		t.Fatalf("GetSaleState: %v", err)
	}
	if initial.Totals != (sale.Totals{}) || initial.Locked || initial.TGE != nil {
		t.Errorf("initial state = %+v, want zero row", initial)
	}

	tge := int64(2500)
	want := SaleState{
		Totals:  sale.Totals{Deposited: 100, SoldTokens: 200, Participants: 3},
		Refunds: sale.SettlementRefunds{Solver: 7, Designator: 9},
		TGE:     &tge,
		Locked:  true,
	}
	if err := d.SaveSaleState(want); err != nil {
		t.Fatalf("SaveSaleState: %v", err)
	}
	got, err := d.GetSaleState()
	if err != nil {
		t.Fatalf("GetSaleState: %v", err)
	}
	if got.Totals != want.Totals || got.Refunds != want.Refunds || !got.Locked {
		t.Errorf("GetSaleState = %+v, want %+v", got, want)
	}
	if got.TGE == nil || *got.TGE != tge {
		t.Errorf("TGE = %v, want %d", got.TGE, tge)
	}
}

func TestDiscountLedgerRoundTrip(t *testing.T) {
	d := testDB(t)

	if err := d.RecordDiscountPurchase(1, "alice", 500); err != nil {
		t.Fatalf("RecordDiscountPurchase: %v", err)
	}
	if err := d.RecordDiscountPurchase(1, "alice", 250); err != nil {
		t.Fatalf("RecordDiscountPurchase: %v", err)
	}
	if err := d.RecordDiscountPurchase(2, "bob", 100); err != nil {
		t.Fatalf("RecordDiscountPurchase: %v", err)
	}
	if err := d.AddWhitelist(2, []string{"bob", "carol"}); err != nil {
		t.Fatalf("AddWhitelist: %v", err)
	}

	ledger, err := d.LoadDiscountLedger()
	if err != nil {
		t.Fatalf("LoadDiscountLedger: %v", err)
	}
	if got := ledger.Sold(1); got != 750 {
		t.Errorf("phase 1 sold = %d, want 750", got)
	}
	if got := ledger.AccountPurchase(1, "alice"); got != 750 {
		t.Errorf("alice phase 1 = %d, want 750", got)
	}
	if !ledger.Admitted(2, "carol") {
		t.Error("carol should be whitelisted in phase 2")
	}
	if ledger.Admitted(2, "mallory") {
		t.Error("mallory should be excluded by the phase 2 whitelist")
	}
	if !ledger.Admitted(1, "mallory") {
		t.Error("phase 1 has no whitelist and should be open")
	}
}

func TestSettlementJournal(t *testing.T) {
	d := testDB(t)

	row := SettlementRow{
		ID:             "s-1",
		Kind:           "claim",
		Account:        "alice",
		Requested:      1_000,
		SnapExisted:    true,
		SnapInvestment: sale.Investment{Amount: 10, Weight: 20, Claimed: 0},
		SnapTotals:     sale.Totals{Deposited: 10, SoldTokens: 20, Participants: 1},
	}
	if err := d.InsertSettlement(row); err != nil {
		t.Fatalf("InsertSettlement: %v", err)
	}

	pending, err := d.DispatchedSettlements()
	if err != nil {
		t.Fatalf("DispatchedSettlements: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d rows, want 1", len(pending))
	}
	got := pending[0]
	if got.Kind != "claim" || got.SnapInvestment != row.SnapInvestment || got.SnapTotals != row.SnapTotals {
		t.Errorf("journal row = %+v", got)
	}

	if err := d.ReconcileSettlement("s-1", 900); err != nil {
		t.Fatalf("ReconcileSettlement: %v", err)
	}
	pending, err = d.DispatchedSettlements()
	if err != nil {
		t.Fatalf("DispatchedSettlements after reconcile: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending after reconcile = %d rows, want 0", len(pending))
	}
}

func TestDistributionProgress(t *testing.T) {
	d := testDB(t)

	if err := d.UpsertDistributionProgress("solver.test", 500, true); err != nil {
		t.Fatalf("UpsertDistributionProgress: %v", err)
	}
	if err := d.UpsertDistributionProgress("solver.test", 800, false); err != nil {
		t.Fatalf("UpsertDistributionProgress update: %v", err)
	}

	got, err := d.LoadDistributionProgress()
	if err != nil {
		t.Fatalf("LoadDistributionProgress: %v", err)
	}
	if got["solver.test"] != 800 {
		t.Errorf("distributed = %d, want 800", got["solver.test"])
	}
}
