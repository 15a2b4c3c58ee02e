package config

import "time"

// Discount percentages and the instant-claim percentage are expressed in
// basis points against this denominator.
const BasisPointsDenom = 10_000

// DistributionBatchSize bounds how many stakeholders a single distribution
// round may dispatch transfers for, respecting the custody fan-out limit.
const DistributionBatchSize = 10

// HTTP server limits.
const (
	ServerReadTimeout    = 15 * time.Second
	ServerWriteTimeout   = 60 * time.Second
	ServerIdleTimeout    = 120 * time.Second
	ServerMaxHeaderBytes = 1 << 20
	ShutdownTimeout      = 30 * time.Second
)

// Log retention.
const LogMaxAgeDays = 14
