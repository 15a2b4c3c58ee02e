package transfer

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mr-tron/base58"

	"github.com/tokenlaunch/salecore/internal/config"
)

// ValidateDestination checks a payout address against the configured network
// format before a transfer is journaled.
func ValidateDestination(network, address string) error {
	if address == "" {
		return fmt.Errorf("%w: empty address", config.ErrInvalidDestination)
	}

	switch network {
	case "evm":
		if !common.IsHexAddress(address) {
			return fmt.Errorf("%w: %q is not a valid EVM address", config.ErrInvalidDestination, address)
		}
	case "base58":
		decoded, err := base58.Decode(address)
		if err != nil {
			return fmt.Errorf("%w: %q is not valid base58: %s", config.ErrInvalidDestination, address, err)
		}
		if len(decoded) < 16 || len(decoded) > 64 {
			return fmt.Errorf("%w: %q decodes to %d bytes", config.ErrInvalidDestination, address, len(decoded))
		}
	default:
		return fmt.Errorf("%w: unknown payout network %q", config.ErrInvalidDestination, network)
	}

	return nil
}
