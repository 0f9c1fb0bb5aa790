package odds

import "errors"

var (
	// ErrInvalidOdds is returned for decimal odds <= 1.0, non-finite values,
	// or American odds of exactly zero.
	ErrInvalidOdds = errors.New("invalid odds")

	// ErrParse is returned for malformed fractional odds strings.
	ErrParse = errors.New("malformed odds")

	// ErrInvalidStake is returned for negative, zero (where a stake is required)
	// or non-finite stakes.
	ErrInvalidStake = errors.New("invalid stake")
)
