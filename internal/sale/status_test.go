package sale

import "testing"

func TestDeriveStatus(t *testing.T) {
	cfg := fixedConfig(nil)
	cfg.TGE = ptrI64(2500)

	tests := []struct {
		name   string
		cfg    *Config
		totals Totals
		locked bool
		now    int64
		want   Status
	}{
		{"nil config", nil, Totals{}, false, 1200, StatusNotInitialized},
		{"locked wins", cfg, Totals{}, true, 1200, StatusLocked},
		{"before start", cfg, Totals{}, false, 500, StatusNotStarted},
		{"in window", cfg, Totals{}, false, 1500, StatusOngoing},
		{"ended below soft cap", cfg, Totals{Deposited: 9_999}, false, 2100, StatusFailed},
		{"ended above soft cap before TGE", cfg, Totals{Deposited: 10_000}, false, 2100, StatusPreTGE},
		{"ended above soft cap after TGE", cfg, Totals{Deposited: 10_000}, false, 2600, StatusSuccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveStatus(tt.cfg, tt.totals, tt.locked, tt.now); got != tt.want {
				t.Errorf("DeriveStatus = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDeriveStatus_NoTGEStaysPreTGE(t *testing.T) {
	cfg := fixedConfig(nil)
	if got := DeriveStatus(cfg, Totals{Deposited: 50_000}, false, 9_000_000); got != StatusPreTGE {
		t.Errorf("status without TGE = %s, want pre_tge", got)
	}
}
