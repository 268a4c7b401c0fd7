package authority

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/university-ledger/interfaces"
	"github.com/ruteri/university-ledger/ledger"
)

// Guard is the pre-mutation check a satellite ledger runs against its
// authority inside the mutating transaction.
type Guard struct {
	Authority interfaces.AccessAuthority
	Self      common.Address

	// RequireRecognition rejects every mutation until the authority has
	// bound Self through Initialize.
	RequireRecognition bool
}

// Check returns nil if the transaction may proceed. With no roles only the
// recognition requirement applies. Authority errors are returned unchanged.
func (g Guard) Check(tx *ledger.Tx, roles ...interfaces.Role) error {
	if g.RequireRecognition && !g.Authority.Recognizes(tx, g.Self) {
		return interfaces.StateError("component not recognized by authority")
	}
	if len(roles) == 0 {
		return nil
	}
	return g.Authority.CheckRole(tx, tx.Caller(), roles...)
}
