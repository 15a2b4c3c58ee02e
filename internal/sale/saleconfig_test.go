package sale

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"unknown mechanic", func(c *Config) { c.Mechanic.Kind = "dutch_auction" }, true},
		{"zero units", func(c *Config) { c.Mechanic.DepositUnit = 0 }, true},
		{"window inverted", func(c *Config) { c.EndDate = c.StartDate }, true},
		{"allocation sum broken", func(c *Config) { c.TotalSaleAmount += 1 }, true},
		{"solver allocation without account", func(c *Config) { c.SolverAccount = "" }, true},
		{"designated split without account", func(c *Config) { c.DesignatedBP = 500 }, true},
		{"cliff beyond vesting", func(c *Config) {
			c.Vesting = &VestingSchedule{CliffPeriod: 2000, VestingPeriod: 1000, Scheme: SchemeImmediate}
		}, true},
		{"instant claim above 100%", func(c *Config) {
			c.Vesting = &VestingSchedule{CliffPeriod: 0, VestingPeriod: 1000, InstantClaimBP: ptrU16(10_001), Scheme: SchemeImmediate}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := fixedConfig(nil)
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("Validate() accepted invalid config")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() rejected valid config: %v", err)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sale.json")

	raw := `{
		"mechanic": {"kind": "fixed_price", "depositUnit": 1, "saleUnit": 2},
		"startDate": 1000,
		"endDate": 2000,
		"softCap": 10000,
		"saleAmount": 200000,
		"solverAccount": "solver.test",
		"solverAllocation": 50000,
		"totalSaleAmount": 250000,
		"phases": [
			{"id": 1, "startTime": 1000, "endTime": 1500, "discountBp": 1000, "saleLimit": 50000, "overflowPhaseId": 2},
			{"id": 2, "startTime": 1500, "endTime": 2000, "discountBp": 500, "saleLimit": 30000}
		]
	}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write sale file: %v", err)
	}

	cfg, catalog, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.IsFixedPrice() {
		t.Error("mechanic should be fixed price")
	}
	if catalog.Len() != 2 {
		t.Errorf("catalog has %d phases, want 2", catalog.Len())
	}
	p, err := catalog.Get(1)
	if err != nil {
		t.Fatalf("Get(1): %v", err)
	}
	if p.OverflowPhaseID == nil || *p.OverflowPhaseID != 2 {
		t.Errorf("phase 1 overflow = %v, want 2", p.OverflowPhaseID)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("LoadConfig should fail for a missing file")
	}
}
