package ammv1

import "github.com/pkg/errors"

var (
	// ErrPairInactive is returned when quoting or swapping against a
	// deactivated pool.
	ErrPairInactive = errors.New("pair inactive")

	// ErrInsufficientLiquidity is returned when a swap would drain a
	// reserve or the pool cannot produce a positive output.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")

	// ErrPoolNotFound is returned when no pool exists for the pair.
	ErrPoolNotFound = errors.New("pool not found")
)
