package sale

// Status is the read-only derived lifecycle state of the sale. Every mutating
// operation's precondition is expressed against this value.
type Status string

const (
	StatusNotInitialized Status = "not_initialized"
	StatusNotStarted     Status = "not_started"
	StatusOngoing        Status = "ongoing"
	// StatusPreTGE: the sale met its soft cap but the token generation event
	// has not happened yet, so claims and distributions stay closed.
	StatusPreTGE  Status = "pre_tge"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusLocked  Status = "locked"
)

// DeriveStatus computes the sale status from wall-clock time, the soft cap,
// the TGE timestamp, and the admin lock flag.
func DeriveStatus(cfg *Config, totals Totals, locked bool, now int64) Status {
	if cfg == nil || cfg.EndDate == 0 {
		return StatusNotInitialized
	}
	if locked {
		return StatusLocked
	}
	if now < cfg.StartDate {
		return StatusNotStarted
	}
	if now < cfg.EndDate {
		return StatusOngoing
	}

	if totals.Deposited < cfg.SoftCap {
		return StatusFailed
	}
	if cfg.TGE != nil && now >= *cfg.TGE {
		return StatusSuccess
	}
	return StatusPreTGE
}
