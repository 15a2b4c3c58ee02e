package sale

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/tokenlaunch/salecore/internal/config"
)

// MechanicKind selects the pricing mechanism of the sale.
type MechanicKind string

const (
	MechanicFixedPrice     MechanicKind = "fixed_price"
	MechanicPriceDiscovery MechanicKind = "price_discovery"
)

// PriceMechanic is the pricing mechanism. For fixed price, DepositUnit deposit
// tokens buy SaleUnit sale tokens. Price discovery determines the effective
// price from total weight at settlement time and carries no units.
type PriceMechanic struct {
	Kind        MechanicKind `json:"kind"`
	DepositUnit uint64       `json:"depositUnit,omitempty"`
	SaleUnit    uint64       `json:"saleUnit,omitempty"`
}

// ReleaseScheme selects how the linear vesting window is anchored.
type ReleaseScheme string

const (
	// SchemeImmediate interpolates from sale end across the full vesting period.
	SchemeImmediate ReleaseScheme = "immediate"
	// SchemeAfterCliff interpolates from the cliff across the remaining period.
	SchemeAfterCliff ReleaseScheme = "after_cliff"
)

// VestingSchedule describes the release of a participant's allocation.
// Both periods are seconds measured from the sale end date.
type VestingSchedule struct {
	CliffPeriod    int64         `json:"cliffPeriod"`
	VestingPeriod  int64         `json:"vestingPeriod"`
	InstantClaimBP *uint16       `json:"instantClaimBp,omitempty"`
	Scheme         ReleaseScheme `json:"scheme"`
}

// Stakeholder is a recipient of a fixed share of the total sale amount,
// settled by the distribution engine after a successful sale.
type Stakeholder struct {
	Account    string `json:"account"`
	Allocation uint64 `json:"allocation"`
}

// Config is the immutable per-sale configuration, loaded once at startup.
// The only post-creation mutable field is the token-generation-event
// timestamp, which the engine may set while the sale has not yet resolved.
type Config struct {
	Mechanic PriceMechanic `json:"mechanic"`

	StartDate int64 `json:"startDate"` // unix seconds
	EndDate   int64 `json:"endDate"`

	// SoftCap is the minimum total deposit for the sale to succeed.
	SoftCap uint64 `json:"softCap"`
	// SaleAmount is the sale-token budget available to participants.
	// Zero (and ignored) under price discovery.
	SaleAmount uint64 `json:"saleAmount"`
	// TotalSaleAmount covers participants, the solver and all stakeholders.
	TotalSaleAmount  uint64 `json:"totalSaleAmount"`
	SolverAccount    string `json:"solverAccount"`
	SolverAllocation uint64 `json:"solverAllocation"`

	Stakeholders []Stakeholder    `json:"stakeholders,omitempty"`
	Vesting      *VestingSchedule `json:"vesting,omitempty"`

	// DesignatedBP of every admin withdrawal is diverted to DesignatedAccount
	// before the remainder reaches the requested destination.
	DesignatedBP      uint16 `json:"designatedBp,omitempty"`
	DesignatedAccount string `json:"designatedAccount,omitempty"`

	// PublicSaleStart opens the undiscounted tier. Nil means the public sale
	// opens together with the sale itself.
	PublicSaleStart *int64  `json:"publicSaleStart,omitempty"`
	Phases          []Phase `json:"phases,omitempty"`

	// TGE is the token-generation-event timestamp. May be absent at creation
	// and set later, but only before the sale resolves.
	TGE *int64 `json:"tge,omitempty"`
}

// IsFixedPrice reports whether the sale uses the fixed price mechanism.
func (c *Config) IsFixedPrice() bool {
	return c.Mechanic.Kind == MechanicFixedPrice
}

// PublicSaleStarted reports whether the undiscounted tier is open at t.
func (c *Config) PublicSaleStarted(t int64) bool {
	start := c.StartDate
	if c.PublicSaleStart != nil {
		start = *c.PublicSaleStart
	}
	return t >= start
}

// VestingStart returns the timestamp vesting is measured from.
func (c *Config) VestingStart() int64 {
	return c.EndDate
}

// LoadConfig reads the sale configuration from a JSON file, validates it, and
// returns it together with the phase catalog built from its phases.
func LoadConfig(path string) (*Config, *Catalog, error) {
	slog.Debug("loading sale configuration", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read sale file %q: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, nil, fmt.Errorf("parse sale JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	catalog, err := NewCatalog(cfg.Phases)
	if err != nil {
		return nil, nil, err
	}

	slog.Info("sale configuration loaded",
		"path", path,
		"mechanic", cfg.Mechanic.Kind,
		"phases", len(cfg.Phases),
		"stakeholders", len(cfg.Stakeholders),
	)

	return &cfg, catalog, nil
}

// Validate checks the sale configuration invariants.
func (c *Config) Validate() error {
	switch c.Mechanic.Kind {
	case MechanicFixedPrice:
		if c.Mechanic.DepositUnit == 0 || c.Mechanic.SaleUnit == 0 {
			return fmt.Errorf("%w: fixed price units must be positive", config.ErrInvalidSaleConfig)
		}
		if c.SaleAmount == 0 {
			return fmt.Errorf("%w: fixed price sale amount must be positive", config.ErrInvalidSaleConfig)
		}
	case MechanicPriceDiscovery:
		// Participant allocation is proportional; SaleAmount is still the
		// token budget shared among participants.
		if c.SaleAmount == 0 {
			return fmt.Errorf("%w: sale amount must be positive", config.ErrInvalidSaleConfig)
		}
	default:
		return fmt.Errorf("%w: unknown mechanic %q", config.ErrInvalidSaleConfig, c.Mechanic.Kind)
	}

	if c.EndDate <= c.StartDate {
		return fmt.Errorf("%w: end date must be after start date", config.ErrInvalidSaleConfig)
	}

	var stakeholderSum uint64
	for i, s := range c.Stakeholders {
		if s.Account == "" {
			return fmt.Errorf("%w: stakeholder %d has empty account", config.ErrInvalidSaleConfig, i)
		}
		sum, err := CheckedAdd(stakeholderSum, s.Allocation)
		if err != nil {
			return fmt.Errorf("%w: stakeholder allocations overflow", config.ErrInvalidSaleConfig)
		}
		stakeholderSum = sum
	}

	want := c.SaleAmount + c.SolverAllocation + stakeholderSum
	if c.TotalSaleAmount != want {
		return fmt.Errorf("%w: total sale amount %d != sale %d + solver %d + stakeholders %d",
			config.ErrInvalidSaleConfig, c.TotalSaleAmount, c.SaleAmount, c.SolverAllocation, stakeholderSum)
	}

	if c.SolverAllocation > 0 && c.SolverAccount == "" {
		return fmt.Errorf("%w: solver allocation set without solver account", config.ErrInvalidSaleConfig)
	}
	if c.DesignatedBP > 0 && c.DesignatedAccount == "" {
		return fmt.Errorf("%w: designated percentage set without designated account", config.ErrInvalidSaleConfig)
	}
	if c.DesignatedBP > config.BasisPointsDenom {
		return fmt.Errorf("%w: designated percentage %d exceeds %d bp", config.ErrInvalidSaleConfig, c.DesignatedBP, config.BasisPointsDenom)
	}

	if v := c.Vesting; v != nil {
		if v.VestingPeriod <= 0 {
			return fmt.Errorf("%w: vesting period must be positive", config.ErrInvalidSaleConfig)
		}
		if v.CliffPeriod < 0 || v.CliffPeriod > v.VestingPeriod {
			return fmt.Errorf("%w: cliff period must be within the vesting period", config.ErrInvalidSaleConfig)
		}
		if v.Scheme != SchemeImmediate && v.Scheme != SchemeAfterCliff {
			return fmt.Errorf("%w: unknown release scheme %q", config.ErrInvalidSaleConfig, v.Scheme)
		}
		if v.InstantClaimBP != nil && *v.InstantClaimBP > config.BasisPointsDenom {
			return fmt.Errorf("%w: instant claim percentage %d exceeds %d bp", config.ErrInvalidSaleConfig, *v.InstantClaimBP, config.BasisPointsDenom)
		}
	}

	return nil
}
