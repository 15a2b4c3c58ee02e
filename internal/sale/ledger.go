package sale

// Investment is one account's running position in the sale.
type Investment struct {
	// Amount is the raw deposited total, net of refunds.
	Amount uint64 `json:"amount"`
	// Weight is the discount-adjusted purchase total used for allocation.
	// Denominated in sale tokens under fixed price, in discounted deposit
	// units under price discovery.
	Weight uint64 `json:"weight"`
	// Claimed is the cumulative sale tokens already released to the account.
	Claimed uint64 `json:"claimed"`
}

// Totals are the global sale counters.
type Totals struct {
	Deposited    uint64 `json:"deposited"`
	SoldTokens   uint64 `json:"soldTokens"`
	Participants uint64 `json:"participants"`
}

// SettlementRefunds tracks proceeds an external transfer declined to accept,
// so retried admin withdrawals do not divert the same funds twice.
type SettlementRefunds struct {
	Solver     uint64 `json:"solver"`
	Designator uint64 `json:"designator"`
}

// DiscountLedger is the mutable side of the phase catalog: per-phase
// consumption counters, per-account purchase totals and whitelist sets.
// Mutated only by accepted deposits; counters never decrease.
type DiscountLedger struct {
	phaseSold   map[uint16]uint64
	accountSold map[uint16]map[string]uint64
	whitelists  map[uint16]map[string]struct{}
}

// NewDiscountLedger returns an empty ledger.
func NewDiscountLedger() *DiscountLedger {
	return &DiscountLedger{
		phaseSold:   make(map[uint16]uint64),
		accountSold: make(map[uint16]map[string]uint64),
		whitelists:  make(map[uint16]map[string]struct{}),
	}
}

// Sold returns the sale tokens consumed in a phase.
func (l *DiscountLedger) Sold(phase uint16) uint64 {
	return l.phaseSold[phase]
}

// AccountPurchase returns the sale tokens an account has bought in a phase.
func (l *DiscountLedger) AccountPurchase(phase uint16, account string) uint64 {
	return l.accountSold[phase][account]
}

// Record adds an accepted purchase to the phase and account counters.
func (l *DiscountLedger) Record(phase uint16, account string, saleTokens uint64) {
	l.phaseSold[phase] += saleTokens
	m := l.accountSold[phase]
	if m == nil {
		m = make(map[string]uint64)
		l.accountSold[phase] = m
	}
	m[account] += saleTokens
}

// AddWhitelist adds accounts to a phase's whitelist, creating the set on first
// use. A phase gains a whitelist the moment its first member is added.
func (l *DiscountLedger) AddWhitelist(phase uint16, accounts []string) {
	set := l.whitelists[phase]
	if set == nil {
		set = make(map[string]struct{})
		l.whitelists[phase] = set
	}
	for _, a := range accounts {
		set[a] = struct{}{}
	}
}

// Admitted reports whether an account may buy in a phase. A phase without a
// whitelist is open to everyone.
func (l *DiscountLedger) Admitted(phase uint16, account string) bool {
	set, ok := l.whitelists[phase]
	if !ok {
		return true
	}
	_, member := set[account]
	return member
}

// HasWhitelist reports whether the phase is whitelist-gated.
func (l *DiscountLedger) HasWhitelist(phase uint16) bool {
	_, ok := l.whitelists[phase]
	return ok
}

// Whitelist returns the members of a phase's whitelist.
func (l *DiscountLedger) Whitelist(phase uint16) []string {
	set := l.whitelists[phase]
	out := make([]string, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	return out
}

// Phases returns the ids of phases with recorded consumption.
func (l *DiscountLedger) Phases() []uint16 {
	out := make([]uint16, 0, len(l.phaseSold))
	for id := range l.phaseSold {
		out = append(out, id)
	}
	return out
}

// AccountsIn returns the per-account purchases recorded for a phase.
func (l *DiscountLedger) AccountsIn(phase uint16) map[string]uint64 {
	out := make(map[string]uint64, len(l.accountSold[phase]))
	for a, v := range l.accountSold[phase] {
		out[a] = v
	}
	return out
}
