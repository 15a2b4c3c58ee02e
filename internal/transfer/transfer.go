package transfer

import "context"

// Outcome is the custody service's report of how much of a requested transfer
// it actually accepted. Accepted may be anything from zero to the requested
// amount; the settlement engine reconciles the ledger from this value and
// never assumes full acceptance.
type Outcome struct {
	Accepted uint64 `json:"accepted"`
}

// Mover is the one external capability the settlement engine depends on: a
// fallible, asynchronous token transfer plus a balance probe for defaulted
// admin withdrawals.
type Mover interface {
	Transfer(ctx context.Context, destination string, amount uint64, note string) (Outcome, error)
	BalanceOf(ctx context.Context, holder string) (uint64, error)
}
