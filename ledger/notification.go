package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Event is a typed notification payload.
type Event interface {
	// Signature is the canonical event signature, for example
	// "UserRegistered(address,string,uint8)".
	Signature() string
}

// EventName returns the signature up to the opening parenthesis.
func EventName(ev Event) string {
	sig := ev.Signature()
	if i := strings.IndexByte(sig, '('); i >= 0 {
		return sig[:i]
	}
	return sig
}

// Topic returns the keccak256 hash of the event signature.
func Topic(ev Event) common.Hash {
	return crypto.Keccak256Hash([]byte(ev.Signature()))
}

// Notification is a committed event as recorded in the notification log.
type Notification struct {
	// Seq is the position in the ledger-wide log, starting at 1.
	Seq     uint64         `json:"seq"`
	TxSeq   uint64         `json:"tx_seq"`
	TxHash  common.Hash    `json:"tx_hash"`
	Emitter common.Address `json:"emitter"`
	Name    string         `json:"name"`
	Topic   common.Hash    `json:"topic"`
	Time    time.Time      `json:"time"`
	Payload Event          `json:"payload"`
}

// Receipt describes a committed transaction.
type Receipt struct {
	TxSeq         uint64         `json:"tx_seq"`
	TxHash        common.Hash    `json:"tx_hash"`
	From          common.Address `json:"from"`
	To            common.Address `json:"to"`
	Method        string         `json:"method"`
	Time          time.Time      `json:"time"`
	Notifications []Notification `json:"notifications"`
}

// Sink receives committed notifications. Publish is called after the
// transaction has been committed and the ledger lock released; a failing sink
// never affects ledger state. Calls are serialized across transactions and
// arrive in Seq order.
type Sink interface {
	Name() string
	Publish(ctx context.Context, n Notification) error
}
