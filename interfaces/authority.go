package interfaces

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/university-ledger/ledger"
)

// AccessAuthority is the role oracle consulted by satellite ledgers before
// every mutation. Both queries are read-only and run inside the caller's
// transaction, so a denial aborts the whole operation.
type AccessAuthority interface {
	// Address returns the Authority's component address.
	Address() common.Address

	// CheckRole returns nil if account is an active user holding one of
	// roles, and an AuthorizationError otherwise.
	CheckRole(tx *ledger.Tx, account common.Address, roles ...Role) error

	// Recognizes reports whether component was bound by initialization.
	Recognizes(tx *ledger.Tx, component common.Address) bool
}
