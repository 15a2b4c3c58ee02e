package sale

import (
	"testing"
)

func ptrU64(v uint64) *uint64   { return &v }
func ptrU16(v uint16) *uint16   { return &v }
func ptrI64(v int64) *int64     { return &v }

// fixedConfig builds a fixed-price sale: 1 deposit unit buys 2 sale tokens,
// 200_000 sale tokens for participants, window [1000, 2000).
func fixedConfig(phases []Phase) *Config {
	return &Config{
		Mechanic:         PriceMechanic{Kind: MechanicFixedPrice, DepositUnit: 1, SaleUnit: 2},
		StartDate:        1000,
		EndDate:          2000,
		SoftCap:          10_000,
		SaleAmount:       200_000,
		SolverAllocation: 50_000,
		SolverAccount:    "solver.test",
		TotalSaleAmount:  250_000,
		Phases:           phases,
	}
}

func discoveryConfig(phases []Phase) *Config {
	cfg := fixedConfig(phases)
	cfg.Mechanic = PriceMechanic{Kind: MechanicPriceDiscovery}
	cfg.SaleAmount = 1_000_000
	cfg.TotalSaleAmount = 1_050_000
	return cfg
}

func mustCatalog(t *testing.T, phases []Phase) *Catalog {
	t.Helper()
	c, err := NewCatalog(phases)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	return c
}

func TestAllocate_SinglePhaseFullFit(t *testing.T) {
	phases := []Phase{
		{ID: 1, StartTime: 1000, EndTime: 1500, DiscountBP: 1000, SaleLimit: ptrU64(50_000)},
	}
	cfg := fixedConfig(phases)
	cat := mustCatalog(t, phases)
	led := NewDiscountLedger()

	dist, err := Allocate("alice", 10_000, 1200, cfg, cat, led, Totals{})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	if dist.Kind != DistWithDiscount {
		t.Fatalf("kind = %s, want with_discount", dist.Kind)
	}
	if len(dist.PhaseWeights) != 1 || dist.PhaseWeights[0].PhaseID != 1 {
		t.Fatalf("phase weights = %+v, want single phase 1", dist.PhaseWeights)
	}
	// 10_000 at +10% discount.
	if got := dist.PhaseWeights[0].Weight; got != 11_000 {
		t.Errorf("phase weight = %d, want 11000", got)
	}
	if dist.PublicWeight != 0 || dist.Refund != 0 {
		t.Errorf("public/refund = %d/%d, want 0/0", dist.PublicWeight, dist.Refund)
	}
}

func TestAllocate_AccountLimitSpillsToNextPhase(t *testing.T) {
	phases := []Phase{
		{ID: 1, StartTime: 1000, EndTime: 1500, DiscountBP: 1000, SaleLimit: ptrU64(50_000), MaxPerAccount: ptrU64(30_000)},
		{ID: 2, StartTime: 1000, EndTime: 2000, DiscountBP: 500},
	}
	cfg := fixedConfig(phases)
	cat := mustCatalog(t, phases)
	led := NewDiscountLedger()

	dist, err := Allocate("alice", 20_000, 1200, cfg, cat, led, Totals{})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	if len(dist.PhaseWeights) != 2 {
		t.Fatalf("phase weights = %+v, want two phases", dist.PhaseWeights)
	}
	// Phase 1: 20_000 * 1.10 = 22_000 weight = 44_000 assets, clipped to the
	// 30_000 per-account limit: accepted weight 15_000, consuming 13_636.
	if got := dist.PhaseWeights[0]; got.PhaseID != 1 || got.Weight != 15_000 {
		t.Errorf("phase 1 weight = %+v, want {1 15000}", got)
	}
	// Remainder 6_364 at +5% in phase 2.
	if got := dist.PhaseWeights[1]; got.PhaseID != 2 || got.Weight != 6_682 {
		t.Errorf("phase 2 weight = %+v, want {2 6682}", got)
	}
	if dist.Refund != 0 {
		t.Errorf("refund = %d, want 0", dist.Refund)
	}
}

func TestAllocate_WhitelistExcludes(t *testing.T) {
	phases := []Phase{
		{ID: 1, StartTime: 1000, EndTime: 1500, DiscountBP: 1000},
	}
	cfg := fixedConfig(phases)
	cat := mustCatalog(t, phases)
	led := NewDiscountLedger()
	led.AddWhitelist(1, []string{"bob"})

	// alice is not whitelisted: falls through to the public sale.
	dist, err := Allocate("alice", 10_000, 1200, cfg, cat, led, Totals{})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if dist.Kind != DistWithoutDiscount || dist.Weight != 10_000 {
		t.Fatalf("alice distribution = %+v, want without_discount 10000", dist)
	}

	// bob gets the discount.
	dist, err = Allocate("bob", 10_000, 1200, cfg, cat, led, Totals{})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if dist.Kind != DistWithDiscount {
		t.Fatalf("bob distribution kind = %s, want with_discount", dist.Kind)
	}
}

func TestAllocate_BeforePublicSaleRefunds(t *testing.T) {
	phases := []Phase{
		{ID: 1, StartTime: 1000, EndTime: 1200, DiscountBP: 1000},
	}
	cfg := fixedConfig(phases)
	cfg.PublicSaleStart = ptrI64(1800)
	cat := mustCatalog(t, phases)

	// t=1300: phase 1 closed, public sale not open — nothing purchasable.
	dist, err := Allocate("alice", 10_000, 1300, cfg, cat, NewDiscountLedger(), Totals{})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if dist.Kind != DistRefund || dist.Refund != 10_000 {
		t.Fatalf("distribution = %+v, want full refund", dist)
	}
}

func TestAllocate_GlobalCapExhausted(t *testing.T) {
	cfg := fixedConfig(nil)
	cat := mustCatalog(t, nil)

	dist, err := Allocate("alice", 5_000, 1200, cfg, cat, NewDiscountLedger(), Totals{SoldTokens: 200_000})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if dist.Kind != DistRefund || dist.Refund != 5_000 {
		t.Fatalf("distribution = %+v, want full refund", dist)
	}
}

func TestAllocate_MinPurchaseFloorSkipsPhase(t *testing.T) {
	phases := []Phase{
		{ID: 1, StartTime: 1000, EndTime: 1500, DiscountBP: 1000, MinPerAccount: ptrU64(50_000)},
	}
	cfg := fixedConfig(phases)
	cat := mustCatalog(t, phases)
	led := NewDiscountLedger()

	// 1_000 deposit = 2_200 assets, below the 50_000 floor and no prior
	// position: the phase is skipped and the deposit goes to the public sale.
	dist, err := Allocate("alice", 1_000, 1200, cfg, cat, led, Totals{})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if len(dist.PhaseWeights) != 0 || dist.PublicWeight != 1_000 {
		t.Fatalf("distribution = %+v, want all public", dist)
	}

	// With a prior position the floor no longer applies.
	led.Record(1, "alice", 60_000)
	dist, err = Allocate("alice", 1_000, 1200, cfg, cat, led, Totals{SoldTokens: 60_000})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if len(dist.PhaseWeights) != 1 {
		t.Fatalf("distribution = %+v, want phase purchase", dist)
	}
}

func TestAllocate_PublicClipAndRefund(t *testing.T) {
	cfg := fixedConfig(nil)
	cat := mustCatalog(t, nil)

	// 20_000 sale tokens remain = 10_000 deposit units; rest refunds.
	dist, err := Allocate("alice", 25_000, 1200, cfg, cat, NewDiscountLedger(), Totals{SoldTokens: 180_000})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if dist.Kind != DistWithoutDiscount {
		t.Fatalf("kind = %s, want without_discount", dist.Kind)
	}
	// No clipping at allocation time for the pure public path; the deposit
	// mechanics hard-clip against the cap.
	if dist.Weight != 25_000 {
		t.Errorf("weight = %d, want 25000", dist.Weight)
	}
}

func TestAllocate_FidelitySum(t *testing.T) {
	phases := []Phase{
		{ID: 1, StartTime: 1000, EndTime: 1500, DiscountBP: 1000, MaxPerAccount: ptrU64(30_000)},
		{ID: 2, StartTime: 1000, EndTime: 2000, DiscountBP: 500, SaleLimit: ptrU64(10_000)},
	}
	cfg := fixedConfig(phases)
	cat := mustCatalog(t, phases)

	deposits := []uint64{1, 777, 13_636, 20_000, 99_999}
	for _, d := range deposits {
		dist, err := Allocate("alice", d, 1200, cfg, cat, NewDiscountLedger(), Totals{})
		if err != nil {
			t.Fatalf("Allocate(%d): %v", d, err)
		}
		if dist.Kind == DistRefund {
			continue
		}

		// Map every weight back to deposit units; the parts must reproduce
		// the deposit within 1 unit of rounding per phase.
		var sum uint64
		for _, pw := range dist.PhaseWeights {
			p, err := cat.Get(pw.PhaseID)
			if err != nil {
				t.Fatalf("Get(%d): %v", pw.PhaseID, err)
			}
			units, err := StripDiscount(pw.Weight, p.DiscountBP)
			if err != nil {
				t.Fatalf("StripDiscount: %v", err)
			}
			sum += units
		}
		sum += dist.PublicWeight + dist.Refund

		tolerance := uint64(len(dist.PhaseWeights) + 1)
		if sum > d || d-sum > tolerance {
			t.Errorf("deposit %d: parts sum to %d (tolerance %d)", d, sum, tolerance)
		}
	}
}

func TestAllocate_PriceDiscoveryFirstPhaseOnly(t *testing.T) {
	phases := []Phase{
		{ID: 1, StartTime: 1000, EndTime: 1500, DiscountBP: 2000},
		{ID: 2, StartTime: 1000, EndTime: 1500, DiscountBP: 500},
	}
	cfg := discoveryConfig(phases)
	cat := mustCatalog(t, phases)

	dist, err := Allocate("alice", 10_000, 1200, cfg, cat, NewDiscountLedger(), Totals{})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	// Only the first eligible phase's discount applies.
	if len(dist.PhaseWeights) != 1 || dist.PhaseWeights[0].PhaseID != 1 {
		t.Fatalf("phase weights = %+v, want only phase 1", dist.PhaseWeights)
	}
	if dist.PhaseWeights[0].Weight != 12_000 {
		t.Errorf("weight = %d, want 12000", dist.PhaseWeights[0].Weight)
	}
}

func TestEffectiveLimit_RolloverAndCycle(t *testing.T) {
	// Mutually referencing overflow links: 1 -> 2 and 2 -> 1.
	phases := []Phase{
		{ID: 1, StartTime: 1000, EndTime: 1500, DiscountBP: 1000, SaleLimit: ptrU64(100), OverflowPhaseID: ptrU16(2)},
		{ID: 2, StartTime: 1500, EndTime: 2000, DiscountBP: 500, SaleLimit: ptrU64(50), OverflowPhaseID: ptrU16(1)},
	}
	cat := mustCatalog(t, phases)
	led := NewDiscountLedger()
	led.Record(1, "alice", 30)

	// Phase 1 closed with 70 unsold: rolls into phase 2.
	limit, bounded, err := cat.EffectiveLimit(2, 1600, led.Sold)
	if err != nil {
		t.Fatalf("EffectiveLimit(2): %v", err)
	}
	if !bounded || limit != 120 {
		t.Errorf("EffectiveLimit(2) = %d (bounded=%v), want 120", limit, bounded)
	}

	// Phase 2 still open at 1600: nothing rolls back into phase 1, and the
	// cycle terminates instead of looping.
	limit, bounded, err = cat.EffectiveLimit(1, 1600, led.Sold)
	if err != nil {
		t.Fatalf("EffectiveLimit(1): %v", err)
	}
	if !bounded || limit != 100 {
		t.Errorf("EffectiveLimit(1) = %d (bounded=%v), want 100", limit, bounded)
	}

	// Both closed: each side sees the other's leftover exactly once.
	led.Record(2, "bob", 10)
	limit, _, err = cat.EffectiveLimit(1, 2500, led.Sold)
	if err != nil {
		t.Fatalf("EffectiveLimit(1) after close: %v", err)
	}
	if limit != 140 {
		t.Errorf("EffectiveLimit(1) after close = %d, want 140", limit)
	}
}

func TestNewCatalog_UnknownOverflowTarget(t *testing.T) {
	_, err := NewCatalog([]Phase{
		{ID: 1, StartTime: 1000, EndTime: 1500, OverflowPhaseID: ptrU16(9)},
	})
	if err == nil {
		t.Fatal("NewCatalog should reject an overflow link to an unknown phase")
	}
}
