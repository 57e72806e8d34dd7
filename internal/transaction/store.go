package transaction

import (
	"context"
	"errors"
)

var (
	ErrNotFound        = errors.New("transaction: not found")
	ErrAlreadyReversed = errors.New("transaction: already reversed")
)

// Store is the reversal machine's view of one transaction type.
//
// MarkReversed is the serialization point for at-most-once reversal: it must
// atomically flip status to reversed only if it is not reversed already, and
// return ErrAlreadyReversed when another writer got there first. Lock-based
// short-circuits upstream are advisory only.
type Store interface {
	Get(ctx context.Context, id string) (Record, error)
	MarkReversed(ctx context.Context, id string) error
}

// Registry maps a transaction type to its store. The reversal machine looks
// the store up per request instead of hard-wiring one handler per type.
type Registry map[Type]Store

func (r Registry) Lookup(t Type) (Store, bool) {
	s, ok := r[t]
	return s, ok
}
