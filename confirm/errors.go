package confirm

import "errors"

var (
	// ErrReorgTooDeep is returned when a reorg walk-back exhausts the
	// tracker's window without finding a common ancestor.
	ErrReorgTooDeep = errors.New("confirm: reorg exceeds window depth")
	// ErrNilBlock is returned for a nil block passed to Observe.
	ErrNilBlock = errors.New("confirm: nil block")
	// ErrUnknownAncestor is returned when the chain client cannot supply
	// a requested ancestor block during a reorg walk-back.
	ErrUnknownAncestor = errors.New("confirm: chain client has no ancestor block")
)
