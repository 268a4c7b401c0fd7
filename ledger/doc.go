/*
Package ledger provides the serialized, atomic execution substrate that every
registry component runs on.

A Ledger behaves like a single-threaded state machine. Each externally
triggered operation runs as one transaction through Execute: the transaction
holds the ledger-wide write lock for its whole duration, so operations on any
component are totally ordered and never observe each other's intermediate
state. Component state lives in ordinary Go maps and slices owned by the
components; all writes go through the journaled helpers in this package (Put,
Append, Set, Sequence.Next) which register an undo action on the Tx. When the
transaction function returns an error, or panics, the journal is replayed in
reverse and every attempted write disappears.

Notifications emitted during a transaction are buffered on the Tx. They are
appended to the ledger's notification log only on commit and handed to the
registered sinks after the lock has been released, so no I/O happens inside
the atomic unit.

Read-only access goes through View, which holds the read lock and hands out a
Tx that rejects writes. Cross-component reads performed inside Execute reuse
the caller's Tx and therefore see a consistent snapshot.

Component addresses are derived exactly like contract addresses, from the
deployer address and a per-deployer nonce (see Deploy).
*/
package ledger
