package ledger

import (
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ErrReadOnly is the panic value raised when a write is attempted through a
// Tx obtained from View.
var ErrReadOnly = errors.New("ledger: write attempted in read-only transaction")

type pendingEvent struct {
	emitter common.Address
	event   Event
}

// Tx is the handle passed to transaction functions.
type Tx struct {
	caller   common.Address
	seq      uint64
	now      time.Time
	readOnly bool

	undo   []func()
	events []pendingEvent
}

// Caller is the identity that submitted the transaction. It is the zero
// address for reads.
func (tx *Tx) Caller() common.Address { return tx.caller }

// Now is the transaction timestamp, fixed for the whole transaction.
func (tx *Tx) Now() time.Time { return tx.now }

// Seq is the sequence number the transaction commits with. For reads it is
// the sequence of the last committed transaction.
func (tx *Tx) Seq() uint64 { return tx.seq }

func (tx *Tx) ReadOnly() bool { return tx.readOnly }

// OnRevert registers an undo action. Undo actions run in reverse order of
// registration if the transaction aborts.
func (tx *Tx) OnRevert(fn func()) {
	tx.mustWrite()
	tx.undo = append(tx.undo, fn)
}

// Emit buffers a notification from emitter. It is published only if the
// transaction commits.
func (tx *Tx) Emit(emitter common.Address, ev Event) {
	tx.mustWrite()
	tx.events = append(tx.events, pendingEvent{emitter: emitter, event: ev})
}

func (tx *Tx) revert() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
	tx.events = nil
}

func (tx *Tx) mustWrite() {
	if tx.readOnly {
		panic(ErrReadOnly)
	}
}
